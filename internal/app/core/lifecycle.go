package core

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// LifecycleManager starts registered components in dependency order and stops
// them in reverse. A component that fails to start tears the already-started
// prefix down before the error is returned; startup is all-or-nothing.
type LifecycleManager struct {
	container      *Container
	mutex          sync.Mutex
	shutdownCalled bool
	timeout        time.Duration
}

func NewLifecycleManager(container *Container) *LifecycleManager {
	return &LifecycleManager{
		container: container,
		timeout:   30 * time.Second,
	}
}

// SetTimeout bounds each individual component Start/Stop call.
func (lm *LifecycleManager) SetTimeout(timeout time.Duration) {
	lm.timeout = timeout
}

func (lm *LifecycleManager) StartAll(ctx context.Context) error {
	components, err := lm.container.SortByDependencies()
	if err != nil {
		return fmt.Errorf("failed to sort components: %w", err)
	}

	for i, comp := range components {
		startCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := comp.Start(startCtx)
		cancel()
		if err != nil {
			log.Printf("failed to start component %s: %v", comp.Name(), err)
			lm.stopComponents(context.Background(), components[:i])
			return fmt.Errorf("failed to start component %s: %w", comp.Name(), err)
		}
		log.Printf("component %s started", comp.Name())
	}
	return nil
}

func (lm *LifecycleManager) StopAll(ctx context.Context) {
	lm.mutex.Lock()
	if lm.shutdownCalled {
		lm.mutex.Unlock()
		return
	}
	lm.shutdownCalled = true
	lm.mutex.Unlock()

	log.Println("initiating shutdown sequence...")

	components, err := lm.container.SortByDependencies()
	if err != nil {
		log.Printf("failed to sort components for shutdown: %v", err)
		registered := lm.container.ListRegistered()
		components = make([]Component, 0, len(registered))
		for _, comp := range registered {
			components = append(components, comp)
		}
	}
	lm.stopComponents(ctx, components)
}

// stopComponents stops in reverse registration/start order so dependents go
// down before their dependencies.
func (lm *LifecycleManager) stopComponents(ctx context.Context, components []Component) {
	for i := len(components) - 1; i >= 0; i-- {
		comp := components[i]
		if !comp.IsActive() {
			continue
		}
		stopCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		if err := comp.Stop(stopCtx); err != nil {
			log.Printf("failed to stop component %s: %v", comp.Name(), err)
		} else {
			log.Printf("component %s stopped", comp.Name())
		}
		cancel()
	}
}
