package config

import (
	"fmt"
	"time"
)

// RunMode selects which controller components run. Modes compose additively:
// Controller = stores + API, Monitor adds the monitors and reconciler,
// Dispatcher adds the dispatcher.
type RunMode string

const (
	ModeController RunMode = "Controller"
	ModeMonitor    RunMode = "Monitor"
	ModeDispatcher RunMode = "Dispatcher"
)

// MonitorEnabled reports whether the monitor/reconciler set runs in this mode.
func (m RunMode) MonitorEnabled() bool {
	return m == ModeMonitor || m == ModeDispatcher
}

// DispatchEnabled reports whether the dispatcher runs in this mode.
func (m RunMode) DispatchEnabled() bool {
	return m == ModeDispatcher
}

type DispatchPolicy string

const (
	PolicyLeastTasks DispatchPolicy = "LeastTasks"
	PolicyRoundRobin DispatchPolicy = "RoundRobin"
	PolicyRandom     DispatchPolicy = "Random"
)

// Config is the controller section of the application configuration.
type Config struct {
	RunMode RunMode `yaml:"run_mode" json:"run_mode"`

	SkaldSyncInterval    time.Duration `yaml:"skald_sync_interval" json:"skald_sync_interval"`
	TaskSyncInterval     time.Duration `yaml:"task_sync_interval" json:"task_sync_interval"`
	DispatchInterval     time.Duration `yaml:"dispatch_interval" json:"dispatch_interval"`
	SSEKeepaliveInterval time.Duration `yaml:"sse_keepalive_interval" json:"sse_keepalive_interval"`

	SkaldStaleThreshold time.Duration `yaml:"skald_stale_threshold" json:"skald_stale_threshold"`
	SkaldEvictThreshold time.Duration `yaml:"skald_evict_threshold" json:"skald_evict_threshold"`
	StuckWindow         int           `yaml:"stuck_window" json:"stuck_window"`
	AssignmentTimeout   time.Duration `yaml:"assignment_timeout" json:"assignment_timeout"`

	DispatchPolicy DispatchPolicy `yaml:"dispatch_policy" json:"dispatch_policy"`

	PageSizeMax         int `yaml:"page_size_max" json:"page_size_max"`
	SSEBackpressureHigh int `yaml:"sse_backpressure_high" json:"sse_backpressure_high"`
	ReconcilerWorkers   int `yaml:"reconciler_workers" json:"reconciler_workers"`
}

func (c *Config) ApplyDefaults() {
	if c.RunMode == "" {
		c.RunMode = ModeController
	}
	if c.SkaldSyncInterval <= 0 {
		c.SkaldSyncInterval = 3 * time.Second
	}
	if c.TaskSyncInterval <= 0 {
		c.TaskSyncInterval = 3 * time.Second
	}
	if c.DispatchInterval <= 0 {
		c.DispatchInterval = 5 * time.Second
	}
	if c.SSEKeepaliveInterval <= 0 {
		c.SSEKeepaliveInterval = 15 * time.Second
	}
	if c.SkaldStaleThreshold <= 0 {
		c.SkaldStaleThreshold = 10 * time.Second
	}
	if c.SkaldEvictThreshold < 2*c.SkaldStaleThreshold {
		c.SkaldEvictThreshold = 2 * c.SkaldStaleThreshold
	}
	if c.StuckWindow <= 0 {
		c.StuckWindow = 5
	}
	if c.AssignmentTimeout <= 0 {
		c.AssignmentTimeout = 30 * time.Second
	}
	if c.DispatchPolicy == "" {
		c.DispatchPolicy = PolicyLeastTasks
	}
	if c.PageSizeMax <= 0 {
		c.PageSizeMax = 100
	}
	if c.SSEBackpressureHigh <= 0 {
		c.SSEBackpressureHigh = 64
	}
	if c.ReconcilerWorkers <= 0 {
		c.ReconcilerWorkers = 4
	}
}

func (c *Config) Validate() error {
	switch c.RunMode {
	case ModeController, ModeMonitor, ModeDispatcher:
	default:
		return fmt.Errorf("unknown run_mode %q", c.RunMode)
	}
	switch c.DispatchPolicy {
	case PolicyLeastTasks, PolicyRoundRobin, PolicyRandom:
	default:
		return fmt.Errorf("unknown dispatch_policy %q", c.DispatchPolicy)
	}
	if c.StuckWindow < 2 {
		return fmt.Errorf("stuck_window must be at least 2, got %d", c.StuckWindow)
	}
	return nil
}
