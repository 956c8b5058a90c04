package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/consts"
	"github.com/JiHungLin/Skalds/internal/model"
	"github.com/JiHungLin/Skalds/internal/store"
)

// SkaldController serves fleet queries from the SkaldStore.
type SkaldController struct {
	*core.BaseComponent
	Skalds *store.SkaldStore `infra:"dep:skald_store"`
}

func NewSkaldController() *SkaldController {
	return &SkaldController{
		BaseComponent: core.NewBaseComponent(consts.COMP_CTRL_SKALD, consts.COMP_STORE_SKALD),
	}
}

// list handles GET /api/skalds?type=&status=.
func (c *SkaldController) list(w http.ResponseWriter, r *http.Request) {
	kindFilter := strings.ToLower(r.URL.Query().Get("type"))
	statusFilter := strings.ToLower(r.URL.Query().Get("status"))

	fleet := c.Skalds.Snapshot()
	out := make([]*model.Skald, 0, len(fleet))
	for _, sk := range fleet {
		if kindFilter != "" && string(sk.Kind) != kindFilter {
			continue
		}
		if statusFilter != "" && strings.ToLower(string(sk.Status)) != statusFilter {
			continue
		}
		out = append(out, sk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": out,
		"total": len(out),
	})
}

func (c *SkaldController) get(w http.ResponseWriter, r *http.Request, id string) {
	sk, ok := c.Skalds.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, CodeSkaldNotFound, "skald "+id+" not found")
		return
	}
	writeJSON(w, http.StatusOK, sk)
}

func (c *SkaldController) tasks(w http.ResponseWriter, r *http.Request, id string) {
	sk, ok := c.Skalds.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, CodeSkaldNotFound, "skald "+id+" not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"skaldId": sk.ID,
		"tasks":   sk.CurrentTasks,
		"count":   sk.TaskCount(),
	})
}

func (c *SkaldController) status(w http.ResponseWriter, r *http.Request, id string) {
	sk, ok := c.Skalds.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, CodeSkaldNotFound, "skald "+id+" not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"skaldId":    sk.ID,
		"status":     sk.Status,
		"lastActive": sk.LastActive,
		"heartbeat":  sk.Heartbeat,
	})
}

// statistics handles GET /api/skalds/summary/statistics.
func (c *SkaldController) statistics(w http.ResponseWriter, r *http.Request) {
	fleet := c.Skalds.Snapshot()
	online, nodes, edges, totalTasks := 0, 0, 0, 0
	for _, sk := range fleet {
		if sk.Status == model.SkaldOnline {
			online++
		}
		if sk.Kind == model.KindNode {
			nodes++
		} else {
			edges++
		}
		totalTasks += sk.TaskCount()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":      len(fleet),
		"online":     online,
		"offline":    len(fleet) - online,
		"nodes":      nodes,
		"edges":      edges,
		"totalTasks": totalTasks,
	})
}
