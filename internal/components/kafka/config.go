package kafka

import "time"

// Config for the Kafka producer connection.
type Config struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	Brokers  []string `yaml:"brokers" json:"brokers"`
	Username string   `yaml:"username" json:"username"`
	Password string   `yaml:"password" json:"password"`

	// WriteTimeout bounds each publish, retries included.
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	BatchTimeout time.Duration `yaml:"batch_timeout" json:"batch_timeout"`
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`
}

func setDefaults(c *Config) {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"127.0.0.1:9092"}
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 2 * time.Second
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 10 * time.Millisecond
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
}
