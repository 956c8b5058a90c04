package core

import (
	"context"
	"fmt"
)

// Component is the unit of lifecycle management. Everything long-lived in the
// controller (adapters, stores, monitors, the HTTP server) implements it and
// is started/stopped by the lifecycle manager in dependency order.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	HealthCheck() error
	Dependencies() []string
	IsActive() bool
}

// BaseComponent carries the name/active/deps bookkeeping so concrete
// components only implement the parts they care about.
type BaseComponent struct {
	name   string
	active bool
	deps   []string
}

func NewBaseComponent(name string, deps ...string) *BaseComponent {
	return &BaseComponent{name: name, deps: deps}
}

func (c *BaseComponent) Name() string           { return c.name }
func (c *BaseComponent) Dependencies() []string { return c.deps }
func (c *BaseComponent) IsActive() bool         { return c.active }

func (c *BaseComponent) Start(ctx context.Context) error {
	c.active = true
	return nil
}

func (c *BaseComponent) Stop(ctx context.Context) error {
	c.active = false
	return nil
}

func (c *BaseComponent) HealthCheck() error {
	if !c.active {
		return fmt.Errorf("component %s is not active", c.name)
	}
	return nil
}

// AddDependencies extends the start-order constraints of a component that has
// not started yet. Autowiring uses this so injected fields also order startup.
func (c *BaseComponent) AddDependencies(deps ...string) {
	c.deps = append(c.deps, deps...)
}
