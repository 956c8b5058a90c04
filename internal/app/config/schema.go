package config

import (
	"github.com/JiHungLin/Skalds/internal/components/httpserver"
	"github.com/JiHungLin/Skalds/internal/components/kafka"
	"github.com/JiHungLin/Skalds/internal/components/logging"
	"github.com/JiHungLin/Skalds/internal/components/mongo"
	"github.com/JiHungLin/Skalds/internal/components/prometheus"
	"github.com/JiHungLin/Skalds/internal/components/redis"
	"github.com/JiHungLin/Skalds/internal/components/telemetry"
	controller "github.com/JiHungLin/Skalds/internal/config"
)

// AppConfig is the full application configuration: one section per
// infrastructure component plus the controller section.
type AppConfig struct {
	AppInfo    *AppInfo           `yaml:"app_info" json:"app_info"`
	Logging    *logging.LoggingConfig `yaml:"logging" json:"logging"`
	Redis      *redis.Config      `yaml:"redis" json:"redis"`
	Mongo      *mongo.Config      `yaml:"mongo" json:"mongo"`
	Kafka      *kafka.Config      `yaml:"kafka" json:"kafka"`
	HTTPServer *httpserver.Config `yaml:"http_server" json:"http_server"`
	Prometheus *prometheus.Config `yaml:"prometheus" json:"prometheus"`
	Telemetry  *telemetry.Config  `yaml:"telemetry" json:"telemetry"`
	Controller *controller.Config `yaml:"controller" json:"controller"`
}

type AppInfo struct {
	AppName string `yaml:"app_name" json:"app_name"`
	Env     string `yaml:"env" json:"env"`
}

// normalize fills missing sections so a minimal YAML file still boots with
// defaults, and propagates the service name to sections that need it.
func (cfg *AppConfig) normalize() {
	if cfg.AppInfo == nil {
		cfg.AppInfo = &AppInfo{AppName: "skalds-system-controller", Env: "dev"}
	}
	if cfg.AppInfo.AppName == "" {
		cfg.AppInfo.AppName = "skalds-system-controller"
	}
	if cfg.Logging == nil {
		cfg.Logging = &logging.LoggingConfig{}
	}
	if cfg.Redis == nil {
		cfg.Redis = &redis.Config{Enabled: true}
	}
	if cfg.Mongo == nil {
		cfg.Mongo = &mongo.Config{Enabled: true}
	}
	if cfg.Kafka == nil {
		cfg.Kafka = &kafka.Config{Enabled: true}
	}
	if cfg.HTTPServer == nil {
		cfg.HTTPServer = &httpserver.Config{Enabled: true}
	}
	if cfg.Prometheus == nil {
		cfg.Prometheus = &prometheus.Config{Enabled: true}
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = &telemetry.Config{}
	}
	if cfg.Controller == nil {
		cfg.Controller = &controller.Config{}
	}
	cfg.HTTPServer.ServiceName = cfg.AppInfo.AppName
	cfg.Telemetry.ServiceName = cfg.AppInfo.AppName
	cfg.Controller.ApplyDefaults()
}
