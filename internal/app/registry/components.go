package registry

import (
	"github.com/JiHungLin/Skalds/internal/app/config"
	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/components/httpserver"
	"github.com/JiHungLin/Skalds/internal/components/kafka"
	"github.com/JiHungLin/Skalds/internal/components/logging"
	"github.com/JiHungLin/Skalds/internal/components/mongo"
	"github.com/JiHungLin/Skalds/internal/components/prometheus"
	"github.com/JiHungLin/Skalds/internal/components/redis"
	"github.com/JiHungLin/Skalds/internal/components/telemetry"
	"github.com/JiHungLin/Skalds/internal/consts"
)

// RegisterInfraComponents queues the builders for every infrastructure
// component. Called once by the binary before App.Run; kept explicit (rather
// than init()) so tests can compose their own sets.
func RegisterInfraComponents() {
	Register(consts.COMPONENT_LOGGING, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, logging.NewLoggerComponent(cfg.Logging), nil
	})

	Register(consts.COMPONENT_TELEMETRY, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Telemetry == nil || !cfg.Telemetry.Enabled {
			return false, nil, nil
		}
		return true, telemetry.NewTelemetryComponent(cfg.Telemetry), nil
	})

	Register(consts.COMPONENT_REDIS, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Redis == nil || !cfg.Redis.Enabled {
			return false, nil, nil
		}
		comp, err := redis.NewFactory().Create(cfg.Redis)
		if err != nil {
			return true, nil, err
		}
		return true, comp, nil
	})

	Register(consts.COMPONENT_MONGO, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Mongo == nil || !cfg.Mongo.Enabled {
			return false, nil, nil
		}
		comp, err := mongo.NewFactory().Create(cfg.Mongo)
		if err != nil {
			return true, nil, err
		}
		return true, comp, nil
	})

	Register(consts.COMPONENT_KAFKA, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Kafka == nil || !cfg.Kafka.Enabled {
			return false, nil, nil
		}
		comp, err := kafka.NewFactory().Create(cfg.Kafka)
		if err != nil {
			return true, nil, err
		}
		return true, comp, nil
	})

	Register(consts.COMPONENT_HTTP_SERVER, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.HTTPServer == nil || !cfg.HTTPServer.Enabled {
			return false, nil, nil
		}
		comp, err := httpserver.NewFactory(c).Create(cfg.HTTPServer)
		if err != nil {
			return true, nil, err
		}
		return true, comp, nil
	})

	Register(consts.COMPONENT_PROMETHEUS, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Prometheus == nil || !cfg.Prometheus.Enabled {
			return false, nil, nil
		}
		comp, err := prometheus.NewFactory().Create(cfg.Prometheus)
		if err != nil {
			return true, nil, err
		}
		return true, comp, nil
	})
}
