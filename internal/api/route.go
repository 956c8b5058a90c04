package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/components/httpserver"
	"github.com/JiHungLin/Skalds/internal/consts"
)

func init() {
	httpserver.RegisterRoutes(RegisterRoutes)
}

// RegisterRoutes mounts the whole query surface. Exposed (in addition to the
// init registration) so tests can wire a router directly.
func RegisterRoutes(r chi.Router, c *core.Container) error {
	sysCtrl, err := resolveSystem(c)
	if err != nil {
		return err
	}
	skaldCtrl, err := resolveSkald(c)
	if err != nil {
		return err
	}
	taskCtrl, err := resolveTask(c)
	if err != nil {
		return err
	}
	fanout, err := resolveFanout(c)
	if err != nil {
		return err
	}

	getID := func(req *http.Request) string { return chi.URLParam(req, "id") }

	r.Get("/", sysCtrl.root)

	// Bounded handlers; the events group below must stay outside this
	// timeout or streams would be cut.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))

		r.Route("/api/system", func(r chi.Router) {
			r.Get("/health", sysCtrl.health)
			r.Get("/status", sysCtrl.status)
			r.Get("/dashboard/summary", sysCtrl.dashboardSummary)
			r.Get("/metrics", sysCtrl.metrics)
			r.Get("/config", sysCtrl.systemConfig)
			r.Get("/version", sysCtrl.version)
		})

		r.Route("/api/skalds", func(r chi.Router) {
			r.Get("/", skaldCtrl.list)
			r.Get("/summary/statistics", skaldCtrl.statistics)
			r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) { skaldCtrl.get(w, req, getID(req)) })
			r.Get("/{id}/tasks", func(w http.ResponseWriter, req *http.Request) { skaldCtrl.tasks(w, req, getID(req)) })
			r.Get("/{id}/status", func(w http.ResponseWriter, req *http.Request) { skaldCtrl.status(w, req, getID(req)) })
		})

		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", taskCtrl.list)
			r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) { taskCtrl.get(w, req, getID(req)) })
			r.Get("/{id}/heartbeat", func(w http.ResponseWriter, req *http.Request) { taskCtrl.heartbeat(w, req, getID(req)) })
			r.Put("/{id}/status", func(w http.ResponseWriter, req *http.Request) { taskCtrl.updateStatus(w, req, getID(req)) })
			r.Put("/{id}/attachments", func(w http.ResponseWriter, req *http.Request) { taskCtrl.updateAttachments(w, req, getID(req)) })
		})

		r.Get("/api/events/status", fanout.status)
	})

	r.Get("/api/events/skalds", fanout.skaldsStream)
	r.Get("/api/events/tasks", fanout.tasksStream)

	return nil
}

func resolveSystem(c *core.Container) (*SystemController, error) {
	comp, err := c.Resolve(consts.COMP_CTRL_SYSTEM)
	if err != nil {
		return nil, err
	}
	ctrl, ok := comp.(*SystemController)
	if !ok {
		return nil, fmt.Errorf("%s type assertion failed", consts.COMP_CTRL_SYSTEM)
	}
	return ctrl, nil
}

func resolveSkald(c *core.Container) (*SkaldController, error) {
	comp, err := c.Resolve(consts.COMP_CTRL_SKALD)
	if err != nil {
		return nil, err
	}
	ctrl, ok := comp.(*SkaldController)
	if !ok {
		return nil, fmt.Errorf("%s type assertion failed", consts.COMP_CTRL_SKALD)
	}
	return ctrl, nil
}

func resolveTask(c *core.Container) (*TaskController, error) {
	comp, err := c.Resolve(consts.COMP_CTRL_TASK)
	if err != nil {
		return nil, err
	}
	ctrl, ok := comp.(*TaskController)
	if !ok {
		return nil, fmt.Errorf("%s type assertion failed", consts.COMP_CTRL_TASK)
	}
	return ctrl, nil
}

func resolveFanout(c *core.Container) (*EventFanout, error) {
	comp, err := c.Resolve(consts.COMP_EVENT_FANOUT)
	if err != nil {
		return nil, err
	}
	ctrl, ok := comp.(*EventFanout)
	if !ok {
		return nil, fmt.Errorf("%s type assertion failed", consts.COMP_EVENT_FANOUT)
	}
	return ctrl, nil
}
