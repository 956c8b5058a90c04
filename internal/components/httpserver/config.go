package httpserver

import "time"

// Config defines HTTP server settings.
type Config struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	Address         string        `yaml:"address" json:"address"` // e.g. ":8000"
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	GracefulTimeout time.Duration `yaml:"graceful_timeout" json:"graceful_timeout"`

	// ServiceName is injected from app_info (not user configurable via YAML).
	ServiceName string `yaml:"-" json:"-"`
}

func (c *Config) applyDefaults() {
	if c.Address == "" {
		c.Address = ":8000"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	// WriteTimeout must stay zero-able: SSE streams are long-lived writes.
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.GracefulTimeout == 0 {
		c.GracefulTimeout = 10 * time.Second
	}
}
