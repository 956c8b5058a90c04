package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	controller "github.com/JiHungLin/Skalds/internal/config"
)

// Loader reads the YAML config file and applies environment-variable
// overrides on top. A missing file is not fatal; every section has defaults.
type Loader struct {
	env        string
	configPath string
}

func NewLoader(env, configPath string) *Loader {
	if env == "" {
		env = "dev"
	}
	return &Loader{env: env, configPath: configPath}
}

func (l *Loader) LoadConfig() (*AppConfig, error) {
	var cfg AppConfig
	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	cfg.normalize()
	l.mergeEnvVars(&cfg)
	if cfg.AppInfo.Env == "" {
		cfg.AppInfo.Env = l.env
	}
	return &cfg, nil
}

// mergeEnvVars applies the recognized environment overrides. Every option is
// optional; unset variables leave the file/default value alone.
func (l *Loader) mergeEnvVars(cfg *AppConfig) {
	envString("SKALDS_RUN_MODE", func(v string) { cfg.Controller.RunMode = controller.RunMode(v) })
	envString("SKALDS_BIND_ADDRESS", func(v string) { cfg.HTTPServer.Address = v })
	envString("LOG_LEVEL", func(v string) { cfg.Logging.Level = v })
	envString("LOG_OUTPUT", func(v string) { cfg.Logging.Output = v })

	envString("REDIS_ADDRESSES", func(v string) { cfg.Redis.Addresses = splitCSV(v) })
	envString("REDIS_USERNAME", func(v string) { cfg.Redis.Username = v })
	envString("REDIS_PASSWORD", func(v string) { cfg.Redis.Password = v })

	envString("MONGO_URI", func(v string) { cfg.Mongo.URI = v })
	envString("MONGO_DB_NAME", func(v string) { cfg.Mongo.Database = v })

	envString("KAFKA_BROKERS", func(v string) { cfg.Kafka.Brokers = splitCSV(v) })
	envString("KAFKA_USERNAME", func(v string) { cfg.Kafka.Username = v })
	envString("KAFKA_PASSWORD", func(v string) { cfg.Kafka.Password = v })

	envDuration("SKALD_SYNC_INTERVAL", func(v time.Duration) { cfg.Controller.SkaldSyncInterval = v })
	envDuration("TASK_SYNC_INTERVAL", func(v time.Duration) { cfg.Controller.TaskSyncInterval = v })
	envDuration("DISPATCH_INTERVAL", func(v time.Duration) { cfg.Controller.DispatchInterval = v })
	envDuration("SSE_KEEPALIVE_INTERVAL", func(v time.Duration) { cfg.Controller.SSEKeepaliveInterval = v })
	envDuration("SKALD_STALE_THRESHOLD", func(v time.Duration) { cfg.Controller.SkaldStaleThreshold = v })
	envDuration("SKALD_EVICT_THRESHOLD", func(v time.Duration) { cfg.Controller.SkaldEvictThreshold = v })
	envDuration("ASSIGNMENT_TIMEOUT", func(v time.Duration) { cfg.Controller.AssignmentTimeout = v })
	envInt("STUCK_WINDOW", func(v int) { cfg.Controller.StuckWindow = v })
	envInt("PAGE_SIZE_MAX", func(v int) { cfg.Controller.PageSizeMax = v })
	envString("DISPATCH_POLICY", func(v string) { cfg.Controller.DispatchPolicy = controller.DispatchPolicy(v) })
}

func envString(key string, set func(string)) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		set(v)
	}
}

func envInt(key string, set func(int)) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			set(n)
		}
	}
}

func envDuration(key string, set func(time.Duration)) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			set(d)
		}
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
