package autowire

import (
	"testing"

	"github.com/JiHungLin/Skalds/internal/app/core"
)

type greeter interface {
	Greet() string
}

type greeterComponent struct {
	*core.BaseComponent
}

func (g *greeterComponent) Greet() string { return "hello" }

type consumerComponent struct {
	*core.BaseComponent
	Dep      greeter           `infra:"dep:greeter"`
	Concrete *greeterComponent `infra:"dep:greeter"`
	Optional greeter           `infra:"dep:missing?"`
}

func TestInjectByTag(t *testing.T) {
	c := core.NewContainer()
	g := &greeterComponent{core.NewBaseComponent("greeter")}
	consumer := &consumerComponent{BaseComponent: core.NewBaseComponent("consumer")}
	_ = c.Register("greeter", g)
	_ = c.Register("consumer", consumer)

	if err := InjectAll(c); err != nil {
		t.Fatalf("inject failed: %v", err)
	}
	if consumer.Dep == nil || consumer.Dep.Greet() != "hello" {
		t.Fatalf("interface field not injected")
	}
	if consumer.Concrete != g {
		t.Fatalf("concrete field not injected")
	}
	if consumer.Optional != nil {
		t.Fatalf("optional missing dep should stay nil")
	}

	// Injection must extend runtime start ordering.
	deps := consumer.Dependencies()
	found := false
	for _, d := range deps {
		if d == "greeter" {
			found = true
		}
	}
	if !found {
		t.Fatalf("injected dep not appended to dependencies: %v", deps)
	}
}

func TestInjectMissingRequiredFails(t *testing.T) {
	type broken struct {
		*core.BaseComponent
		Dep greeter `infra:"dep:nope"`
	}
	c := core.NewContainer()
	b := &broken{BaseComponent: core.NewBaseComponent("broken")}
	_ = c.Register("broken", b)

	if err := InjectAll(c); err == nil {
		t.Fatalf("expected error for missing required dependency")
	}
}
