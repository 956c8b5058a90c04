package registry

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/JiHungLin/Skalds/internal/app/autowire"
	"github.com/JiHungLin/Skalds/internal/app/config"
	"github.com/JiHungLin/Skalds/internal/app/core"
)

// Builder constructs a component from the loaded configuration. Returning
// enabled=false skips registration silently (component turned off in config);
// returning an error aborts boot.
type Builder func(cfg *config.AppConfig, c *core.Container) (enabled bool, comp core.Component, err error)

type entry struct {
	name      string
	deps      []string // build-order deps: these builders run first
	builder   Builder
	satisfied bool
}

var (
	mu      sync.Mutex
	entries = map[string]*entry{}

	runtimeDepExt = map[string][]string{}
)

// Register adds a builder with no build-order constraints. Called from the
// explicit registration functions (RegisterInfraComponents,
// registry_ext.Register) before App.Run.
func Register(name string, b Builder) {
	RegisterWithDeps(name, nil, b)
}

// RegisterWithDeps adds a builder that must run after the named builders.
func RegisterWithDeps(name string, deps []string, b Builder) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := entries[name]; dup {
		panic(fmt.Sprintf("registry: duplicate builder %s", name))
	}
	entries[name] = &entry{name: name, deps: deps, builder: b}
}

// ExtendRuntimeDependencies declares that component `target` must start after
// `deps`. Applied after all builders ran, before lifecycle sorting. Unknown
// targets are skipped with a warning (they may be disabled in this run mode).
func ExtendRuntimeDependencies(target string, deps ...string) {
	if target == "" || len(deps) == 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	runtimeDepExt[target] = append(runtimeDepExt[target], deps...)
}

// BuildAndRegisterAll runs every registered builder in build-dependency order,
// registers the produced components, applies runtime dependency extensions and
// performs struct-tag autowiring.
func BuildAndRegisterAll(cfg *config.AppConfig, c *core.Container) error {
	mu.Lock()
	ordered, err := buildOrder()
	mu.Unlock()
	if err != nil {
		return err
	}

	for _, e := range ordered {
		enabled, comp, err := e.builder(cfg, c)
		if err != nil {
			return fmt.Errorf("build component %s failed: %w", e.name, err)
		}
		if !enabled {
			continue
		}
		if comp == nil {
			return fmt.Errorf("builder %s reported enabled but produced no component", e.name)
		}
		if err := c.Register(e.name, comp); err != nil {
			return err
		}
	}

	// Snapshot extensions only now: mode-gated builders declare theirs while
	// running.
	mu.Lock()
	ext := make(map[string][]string, len(runtimeDepExt))
	for k, v := range runtimeDepExt {
		ext[k] = append([]string(nil), v...)
	}
	runtimeDepExt = map[string][]string{}
	mu.Unlock()
	applyRuntimeDepExtensions(c, ext)

	if err := autowire.InjectAll(c); err != nil {
		return err
	}
	if _, err := c.ValidateDependencies(); err != nil {
		return err
	}
	return nil
}

func applyRuntimeDepExtensions(c *core.Container, ext map[string][]string) {
	for target, extra := range ext {
		comp, err := c.Resolve(target)
		if err != nil {
			log.Printf("registry: runtime dep extension target %s not registered (skipped)", target)
			continue
		}
		if extender, ok := comp.(interface{ AddDependencies(...string) }); ok {
			extender.AddDependencies(extra...)
		} else {
			log.Printf("registry: component %s does not support AddDependencies; extension skipped", target)
		}
	}
}

// buildOrder topologically sorts builders by their build deps; entries with a
// dep that has no builder are still built (the dep may be registered directly
// on the container by another builder).
func buildOrder() ([]*entry, error) {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var out []*entry

	var visit func(string) error
	visit = func(name string) error {
		e, ok := entries[name]
		if !ok {
			return nil
		}
		if visiting[name] {
			return fmt.Errorf("registry: circular build dependency involving %s", name)
		}
		if visited[name] {
			return nil
		}
		visiting[name] = true
		for _, dep := range e.deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		out = append(out, e)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Reset clears all registrations. Test helper.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	entries = map[string]*entry{}
	runtimeDepExt = map[string][]string{}
}
