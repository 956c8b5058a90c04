package mongo

import (
	"fmt"

	"github.com/JiHungLin/Skalds/internal/app/core"
)

type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) Create(cfg interface{}) (core.Component, error) {
	mc, ok := cfg.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for mongo component (*Config required)")
	}
	if mc == nil || !mc.Enabled {
		return nil, fmt.Errorf("mongo component disabled")
	}
	setDefaults(mc)
	return NewMongoComponent(mc), nil
}
