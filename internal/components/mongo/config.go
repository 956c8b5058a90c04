package mongo

import "time"

// Config for the MongoDB document store connection.
type Config struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	URI      string `yaml:"uri" json:"uri"`
	Database string `yaml:"database" json:"database"`

	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	// OpTimeout bounds each store operation issued through the DAO.
	OpTimeout time.Duration `yaml:"op_timeout" json:"op_timeout"`

	MaxPoolSize uint64 `yaml:"max_pool_size" json:"max_pool_size"`
}

func setDefaults(c *Config) {
	if c.URI == "" {
		c.URI = "mongodb://127.0.0.1:27017"
	}
	if c.Database == "" {
		c.Database = "skalds"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = 3 * time.Second
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = 50
	}
}
