package api

import (
	"context"
	"net/http"
	"time"

	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/clock"
	"github.com/JiHungLin/Skalds/internal/config"
	"github.com/JiHungLin/Skalds/internal/consts"
	"github.com/JiHungLin/Skalds/internal/dao"
	"github.com/JiHungLin/Skalds/internal/model"
	"github.com/JiHungLin/Skalds/internal/store"
)

// Version of the system controller surface.
const Version = "1.0.0"

// SystemController serves identity, health, status, dashboard and metrics
// endpoints. It never synthesizes values that disagree with the stores.
type SystemController struct {
	*core.BaseComponent
	Cache  dao.CacheDao      `infra:"dep:cache_dao"`
	Tasks  dao.TaskDao       `infra:"dep:task_dao"`
	Skalds *store.SkaldStore `infra:"dep:skald_store"`
	Store  *store.TaskStore  `infra:"dep:task_store"`

	cfg       *config.Config
	container *core.Container
	clock     clock.Clock
	startedAt time.Time
}

func NewSystemController(cfg *config.Config, container *core.Container, clk clock.Clock) *SystemController {
	if clk == nil {
		clk = clock.Real()
	}
	return &SystemController{
		BaseComponent: core.NewBaseComponent(consts.COMP_CTRL_SYSTEM,
			consts.COMP_DAO_CACHE, consts.COMP_DAO_TASK,
			consts.COMP_STORE_SKALD, consts.COMP_STORE_TASK),
		cfg:       cfg,
		container: container,
		clock:     clk,
	}
}

func (sc *SystemController) Start(ctx context.Context) error {
	sc.startedAt = sc.clock.Now()
	return sc.BaseComponent.Start(ctx)
}

func (sc *SystemController) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "skalds-system-controller",
		"version": Version,
		"mode":    sc.cfg.RunMode,
	})
}

func (sc *SystemController) health(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{
		"cache": reachableWord(sc.Cache.Reachable()),
		"store": reachableWord(sc.Tasks.Reachable()),
		"event": reachableWord(sc.eventReachable()),
	}
	status := "healthy"
	httpStatus := http.StatusOK
	for _, s := range services {
		if s != "healthy" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": sc.clock.Now().UnixMilli(),
		"services":  services,
	})
}

func (sc *SystemController) eventReachable() bool {
	comp, err := sc.container.Resolve(consts.COMPONENT_KAFKA)
	if err != nil {
		return false
	}
	return comp.HealthCheck() == nil
}

func reachableWord(ok bool) string {
	if ok {
		return "healthy"
	}
	return "unreachable"
}

type componentStatus struct {
	Name    string                 `json:"name"`
	Running bool                   `json:"running"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (sc *SystemController) status(w http.ResponseWriter, r *http.Request) {
	var components []componentStatus
	for _, name := range []string{
		consts.COMP_MONITOR_SKALD, consts.COMP_MONITOR_TASK,
		consts.COMP_RECONCILER, consts.COMP_DISPATCHER,
	} {
		comp, err := sc.container.Resolve(name)
		if err != nil {
			continue // not part of this run mode
		}
		components = append(components, componentStatus{
			Name:    name,
			Running: comp.IsActive(),
		})
	}
	components = append(components,
		componentStatus{
			Name:    consts.COMP_STORE_SKALD,
			Running: true,
			Details: map[string]interface{}{
				"totalSkalds":  sc.Skalds.Count(),
				"onlineSkalds": sc.Skalds.OnlineCount(),
			},
		},
		componentStatus{
			Name:    consts.COMP_STORE_TASK,
			Running: true,
			Details: map[string]interface{}{
				"monitoredTasks": sc.Store.Count(),
				"runningTasks":   sc.Store.CountByStatus(model.StatusRunning),
				"assigningTasks": sc.Store.CountByStatus(model.StatusAssigning),
			},
		},
	)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mode":       sc.cfg.RunMode,
		"components": components,
		"uptime":     int64(sc.clock.Now().Sub(sc.startedAt).Seconds()),
		"version":    Version,
	})
}

func (sc *SystemController) dashboardSummary(w http.ResponseWriter, r *http.Request) {
	fleet := sc.Skalds.Snapshot()
	nodes, edges := 0, 0
	for _, sk := range fleet {
		if sk.Kind == model.KindNode {
			nodes++
		} else {
			edges++
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totalSkalds":    len(fleet),
		"onlineSkalds":   sc.Skalds.OnlineCount(),
		"nodeSkalds":     nodes,
		"edgeSkalds":     edges,
		"monitoredTasks": sc.Store.Count(),
		"runningTasks":   sc.Store.CountByStatus(model.StatusRunning),
		"assigningTasks": sc.Store.CountByStatus(model.StatusAssigning),
	})
}

func (sc *SystemController) metrics(w http.ResponseWriter, r *http.Request) {
	fleet := sc.Skalds.Snapshot()
	online, nodes, edges, busyNodes, totalAssigned := 0, 0, 0, 0, 0
	taskDistribution := map[string]int{}
	for id, sk := range fleet {
		if sk.Status == model.SkaldOnline {
			online++
		}
		if sk.Kind == model.KindNode {
			nodes++
			taskDistribution[id] = sk.TaskCount()
			if sk.TaskCount() > 0 {
				busyNodes++
			}
		} else {
			edges++
		}
		totalAssigned += sk.TaskCount()
	}
	avg := 0.0
	if online > 0 {
		avg = float64(totalAssigned) / float64(online)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp": sc.clock.Now().UnixMilli(),
		"skalds": map[string]interface{}{
			"total":     len(fleet),
			"online":    online,
			"offline":   len(fleet) - online,
			"nodes":     nodes,
			"edges":     edges,
			"busyNodes": busyNodes,
			"idleNodes": nodes - busyNodes,
		},
		"tasks": map[string]interface{}{
			"monitored":     sc.Store.Count(),
			"running":       sc.Store.CountByStatus(model.StatusRunning),
			"assigning":     sc.Store.CountByStatus(model.StatusAssigning),
			"totalAssigned": totalAssigned,
		},
		"performance": map[string]interface{}{
			"averageTasksPerSkald": avg,
			"taskDistribution":     taskDistribution,
		},
	})
}

func (sc *SystemController) systemConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mode": sc.cfg.RunMode,
		"monitoring": map[string]interface{}{
			"skaldSyncInterval":   sc.cfg.SkaldSyncInterval.String(),
			"taskSyncInterval":    sc.cfg.TaskSyncInterval.String(),
			"skaldStaleThreshold": sc.cfg.SkaldStaleThreshold.String(),
			"stuckWindow":         sc.cfg.StuckWindow,
			"assignmentTimeout":   sc.cfg.AssignmentTimeout.String(),
		},
		"dispatcher": map[string]interface{}{
			"interval": sc.cfg.DispatchInterval.String(),
			"policy":   sc.cfg.DispatchPolicy,
		},
	})
}

func (sc *SystemController) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version": Version,
		"service": "skalds-system-controller",
	})
}
