package core

import (
	"strings"
	"testing"
)

func comp(name string, deps ...string) Component {
	return NewBaseComponent(name, deps...)
}

func TestSortByDependencies(t *testing.T) {
	c := NewContainer()
	_ = c.Register("c", comp("c", "b"))
	_ = c.Register("b", comp("b", "a"))
	_ = c.Register("a", comp("a"))

	ordered, err := c.SortByDependencies()
	if err != nil {
		t.Fatalf("sort failed: %v", err)
	}
	var names []string
	for _, comp := range ordered {
		names = append(names, comp.Name())
	}
	got := strings.Join(names, ",")
	if got != "a,b,c" {
		t.Fatalf("order = %s, want a,b,c", got)
	}
}

func TestCircularDependencyDetected(t *testing.T) {
	c := NewContainer()
	_ = c.Register("a", comp("a", "b"))
	_ = c.Register("b", comp("b", "a"))

	if _, err := c.SortByDependencies(); err == nil {
		t.Fatalf("expected circular dependency error")
	}
}

func TestValidateDependenciesMissing(t *testing.T) {
	c := NewContainer()
	_ = c.Register("a", comp("a", "ghost"))

	_, err := c.ValidateDependencies()
	if err == nil || !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("expected missing dependency error, got %v", err)
	}
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	c := NewContainer()
	if err := c.Register("a", comp("a")); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := c.Register("a", comp("a")); err == nil {
		t.Fatalf("duplicate registration should fail")
	}
}
