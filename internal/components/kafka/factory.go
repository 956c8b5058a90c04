package kafka

import (
	"fmt"

	"github.com/JiHungLin/Skalds/internal/app/core"
)

type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) Create(cfg interface{}) (core.Component, error) {
	kc, ok := cfg.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for kafka component (*Config required)")
	}
	if kc == nil || !kc.Enabled {
		return nil, fmt.Errorf("kafka component disabled")
	}
	setDefaults(kc)
	return NewProducerComponent(kc), nil
}
