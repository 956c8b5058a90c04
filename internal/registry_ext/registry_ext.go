// Package registry_ext wires the controller's domain components into the
// application registry. Which components build depends on the run mode:
// Controller carries the stores, fanout and API; Monitor adds the monitors
// and reconciler; Dispatcher adds the dispatcher.
package registry_ext

import (
	"github.com/JiHungLin/Skalds/internal/api"
	appconfig "github.com/JiHungLin/Skalds/internal/app/config"
	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/app/registry"
	"github.com/JiHungLin/Skalds/internal/consts"
	"github.com/JiHungLin/Skalds/internal/dao"
	"github.com/JiHungLin/Skalds/internal/dispatcher"
	"github.com/JiHungLin/Skalds/internal/monitor"
	"github.com/JiHungLin/Skalds/internal/reconciler"
	"github.com/JiHungLin/Skalds/internal/store"
)

// Register queues every controller component builder. Call once before
// App.Run, after registry.RegisterInfraComponents.
func Register() {
	// The HTTP server resolves the controllers while mounting routes, so it
	// must start after them.
	registry.ExtendRuntimeDependencies(consts.COMPONENT_HTTP_SERVER,
		consts.COMP_CTRL_SYSTEM, consts.COMP_CTRL_SKALD,
		consts.COMP_CTRL_TASK, consts.COMP_EVENT_FANOUT,
	)

	registry.Register(consts.COMP_DAO_CACHE, func(cfg *appconfig.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, dao.NewRedisCacheDao(), nil
	})
	registry.Register(consts.COMP_DAO_TASK, func(cfg *appconfig.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, dao.NewMongoTaskDao(), nil
	})
	registry.Register(consts.COMP_STORE_SKALD, func(cfg *appconfig.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, store.NewSkaldStore(), nil
	})
	registry.Register(consts.COMP_STORE_TASK, func(cfg *appconfig.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, store.NewTaskStore(), nil
	})

	registry.Register(consts.COMP_RECONCILER, func(cfg *appconfig.AppConfig, c *core.Container) (bool, core.Component, error) {
		if !cfg.Controller.RunMode.MonitorEnabled() {
			return false, nil, nil
		}
		return true, reconciler.NewReconciler(cfg.Controller), nil
	})
	registry.Register(consts.COMP_MONITOR_SKALD, func(cfg *appconfig.AppConfig, c *core.Container) (bool, core.Component, error) {
		if !cfg.Controller.RunMode.MonitorEnabled() {
			return false, nil, nil
		}
		// Loops must outlive the HTTP surface during shutdown, never the
		// other way around.
		registry.ExtendRuntimeDependencies(consts.COMPONENT_HTTP_SERVER, consts.COMP_MONITOR_SKALD)
		return true, monitor.NewSkaldMonitor(cfg.Controller, nil), nil
	})
	registry.Register(consts.COMP_MONITOR_TASK, func(cfg *appconfig.AppConfig, c *core.Container) (bool, core.Component, error) {
		if !cfg.Controller.RunMode.MonitorEnabled() {
			return false, nil, nil
		}
		registry.ExtendRuntimeDependencies(consts.COMPONENT_HTTP_SERVER, consts.COMP_MONITOR_TASK)
		return true, monitor.NewTaskMonitor(cfg.Controller, nil), nil
	})
	registry.Register(consts.COMP_DISPATCHER, func(cfg *appconfig.AppConfig, c *core.Container) (bool, core.Component, error) {
		if !cfg.Controller.RunMode.DispatchEnabled() {
			return false, nil, nil
		}
		registry.ExtendRuntimeDependencies(consts.COMPONENT_HTTP_SERVER, consts.COMP_DISPATCHER)
		return true, dispatcher.NewDispatcher(cfg.Controller, nil), nil
	})

	registry.Register(consts.COMP_CTRL_SYSTEM, func(cfg *appconfig.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, api.NewSystemController(cfg.Controller, c, nil), nil
	})
	registry.Register(consts.COMP_CTRL_SKALD, func(cfg *appconfig.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, api.NewSkaldController(), nil
	})
	registry.Register(consts.COMP_CTRL_TASK, func(cfg *appconfig.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, api.NewTaskController(cfg.Controller, nil), nil
	})
	registry.Register(consts.COMP_EVENT_FANOUT, func(cfg *appconfig.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, api.NewEventFanout(cfg.Controller), nil
	})
}
