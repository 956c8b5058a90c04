package prometheus

// Config for the Prometheus metrics exporter.
type Config struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	Address          string `yaml:"address" json:"address"` // e.g. ":9090"
	Path             string `yaml:"path" json:"path"`       // default /metrics
	Namespace        string `yaml:"namespace" json:"namespace"`
	CollectGoMetrics bool   `yaml:"collect_go_metrics" json:"collect_go_metrics"`
	CollectProcess   bool   `yaml:"collect_process" json:"collect_process"`
}

func setDefaults(c *Config) {
	if c.Address == "" {
		c.Address = ":9090"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if c.Namespace == "" {
		c.Namespace = "skalds"
	}
}
