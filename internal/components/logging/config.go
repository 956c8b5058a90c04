package logging

// LoggingConfig controls the zap logger component.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // DEBUG, INFO, WARN, ERROR, FATAL
	Format string `yaml:"format" json:"format"` // json | console
	Output string `yaml:"output" json:"output"` // stdout | stderr | a file path

	// File rotation; only honored when Output is a file path.
	MaxSizeMB  int  `yaml:"max_size_mb" json:"max_size_mb"`
	MaxAgeDays int  `yaml:"max_age_days" json:"max_age_days"`
	MaxBackups int  `yaml:"max_backups" json:"max_backups"`
	Compress   bool `yaml:"compress" json:"compress"`
}

func (c *LoggingConfig) applyDefaults() {
	if c.Level == "" {
		c.Level = "INFO"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 100
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 7
	}
}
