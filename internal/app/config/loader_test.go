package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	controller "github.com/JiHungLin/Skalds/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	l := NewLoader("dev", "")
	cfg, err := l.LoadConfig()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Controller.RunMode != controller.ModeController {
		t.Fatalf("default run mode = %s", cfg.Controller.RunMode)
	}
	if cfg.Controller.DispatchPolicy != controller.PolicyLeastTasks {
		t.Fatalf("default policy = %s", cfg.Controller.DispatchPolicy)
	}
	if cfg.Controller.PageSizeMax != 100 {
		t.Fatalf("default page size max = %d", cfg.Controller.PageSizeMax)
	}
	if cfg.Controller.SkaldEvictThreshold < 2*cfg.Controller.SkaldStaleThreshold {
		t.Fatalf("evict threshold must be at least twice the stale threshold")
	}
	if cfg.HTTPServer.ServiceName == "" {
		t.Fatalf("service name should be propagated from app_info")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
app_info:
  app_name: test-controller
controller:
  run_mode: Monitor
  dispatch_policy: RoundRobin
  skald_sync_interval: 7s
`)
	l := NewLoader("dev", path)
	cfg, err := l.LoadConfig()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Controller.RunMode != controller.ModeMonitor {
		t.Fatalf("run mode = %s", cfg.Controller.RunMode)
	}
	if cfg.Controller.SkaldSyncInterval != 7*time.Second {
		t.Fatalf("interval = %s", cfg.Controller.SkaldSyncInterval)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, `
controller:
  run_mode: Monitor
  dispatch_policy: RoundRobin
redis:
  enabled: true
  addresses: ["file-host:6379"]
`)
	t.Setenv("SKALDS_RUN_MODE", "Dispatcher")
	t.Setenv("DISPATCH_POLICY", "Random")
	t.Setenv("REDIS_ADDRESSES", "env-host-1:6379, env-host-2:6379")
	t.Setenv("ASSIGNMENT_TIMEOUT", "45s")
	t.Setenv("STUCK_WINDOW", "7")

	l := NewLoader("dev", path)
	cfg, err := l.LoadConfig()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Controller.RunMode != controller.ModeDispatcher {
		t.Fatalf("env run mode should win, got %s", cfg.Controller.RunMode)
	}
	if cfg.Controller.DispatchPolicy != controller.PolicyRandom {
		t.Fatalf("env policy should win, got %s", cfg.Controller.DispatchPolicy)
	}
	if len(cfg.Redis.Addresses) != 2 || cfg.Redis.Addresses[0] != "env-host-1:6379" {
		t.Fatalf("redis addresses = %v", cfg.Redis.Addresses)
	}
	if cfg.Controller.AssignmentTimeout != 45*time.Second {
		t.Fatalf("assignment timeout = %s", cfg.Controller.AssignmentTimeout)
	}
	if cfg.Controller.StuckWindow != 7 {
		t.Fatalf("stuck window = %d", cfg.Controller.StuckWindow)
	}
}

func TestManagerRejectsInvalidRunMode(t *testing.T) {
	path := writeConfig(t, `
controller:
  run_mode: Bogus
`)
	cm := NewConfigManager("dev", path)
	if err := cm.LoadConfig(); err == nil {
		t.Fatalf("invalid run mode should fail validation")
	}
}
