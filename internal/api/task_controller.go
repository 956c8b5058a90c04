package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/clock"
	"github.com/JiHungLin/Skalds/internal/components/kafka"
	"github.com/JiHungLin/Skalds/internal/components/logging"
	"github.com/JiHungLin/Skalds/internal/config"
	"github.com/JiHungLin/Skalds/internal/consts"
	"github.com/JiHungLin/Skalds/internal/dao"
	"github.com/JiHungLin/Skalds/internal/model"
	"github.com/JiHungLin/Skalds/internal/store"
)

// TaskController serves task queries and the two mutation endpoints. Reads
// merge the persisted document with the TaskStore's volatile view; writes go
// through the DAO and emit the matching event.
type TaskController struct {
	*core.BaseComponent
	Tasks    dao.TaskDao      `infra:"dep:task_dao"`
	Store    *store.TaskStore `infra:"dep:task_store"`
	Producer kafka.Producer   `infra:"dep:kafka_producer"`

	cfg   *config.Config
	clock clock.Clock
}

func NewTaskController(cfg *config.Config, clk clock.Clock) *TaskController {
	if clk == nil {
		clk = clock.Real()
	}
	return &TaskController{
		BaseComponent: core.NewBaseComponent(consts.COMP_CTRL_TASK,
			consts.COMP_DAO_TASK, consts.COMP_STORE_TASK, consts.COMPONENT_KAFKA),
		cfg:   cfg,
		clock: clk,
	}
}

// list handles GET /api/tasks?page=&pageSize=&status=&type=&executor=.
// Pagination is 1-based; pageSize above the maximum is clamped.
func (c *TaskController) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, CodeValidation, "page must be a positive integer")
			return
		}
		page = n
	}
	pageSize := 20
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, CodeValidation, "pageSize must be a positive integer")
			return
		}
		pageSize = n
	}
	if pageSize > c.cfg.PageSizeMax {
		pageSize = c.cfg.PageSizeMax
	}

	filter := model.TaskFilter{
		ClassName: q.Get("type"),
		Executor:  q.Get("executor"),
	}
	if v := q.Get("status"); v != "" {
		st, err := model.ParseLifecycleStatus(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidation, err.Error())
			return
		}
		filter.Statuses = []model.TaskLifecycleStatus{st}
	}

	items, total, err := c.Tasks.List(r.Context(), filter, page, pageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeServiceUnavailable, "task store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":    items,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

func (c *TaskController) get(w http.ResponseWriter, r *http.Request, id string) {
	t, err := c.Tasks.Get(r.Context(), id)
	if errors.Is(err, dao.ErrNotFound) {
		writeError(w, http.StatusNotFound, CodeTaskNotFound, "task "+id+" not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeServiceUnavailable, "task store unavailable")
		return
	}
	resp := map[string]interface{}{"task": t}
	if rec, ok := c.Store.Get(id); ok {
		resp["heartbeat"] = rec.Heartbeat
		if rec.Error != "" {
			resp["error"] = rec.Error
		}
		if rec.Exception != "" {
			resp["exception"] = rec.Exception
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *TaskController) heartbeat(w http.ResponseWriter, r *http.Request, id string) {
	if rec, ok := c.Store.Get(id); ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"taskId":    id,
			"heartbeat": rec.Heartbeat,
			"history":   rec.HeartbeatHistory,
			"updatedAt": rec.UpdatedAt,
		})
		return
	}
	// Not currently monitored; the task may still exist in the store.
	if _, err := c.Tasks.Get(r.Context(), id); errors.Is(err, dao.ErrNotFound) {
		writeError(w, http.StatusNotFound, CodeTaskNotFound, "task "+id+" not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"taskId":    id,
		"heartbeat": 0,
		"history":   []int{},
	})
}

// updateStatus handles PUT /api/tasks/{id}/status with body
// {"status": "Created"|"Cancelled"}. Cancelling emits one task.cancel event;
// repeating the same terminal update is a no-op without a second event.
func (c *TaskController) updateStatus(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid JSON body")
		return
	}
	target, err := model.ParseLifecycleStatus(body.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, err.Error())
		return
	}
	if target != model.StatusCreated && target != model.StatusCancelled {
		writeError(w, http.StatusBadRequest, CodeValidation, "status must be Created or Cancelled")
		return
	}

	t, err := c.Tasks.Get(r.Context(), id)
	if errors.Is(err, dao.ErrNotFound) {
		writeError(w, http.StatusNotFound, CodeTaskNotFound, "task "+id+" not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeServiceUnavailable, "task store unavailable")
		return
	}

	if t.Status == target {
		// Idempotent repeat; no event.
		writeJSON(w, http.StatusOK, map[string]interface{}{"taskId": id, "status": target})
		return
	}
	if !model.CanTransition(t.Status, target) {
		writeError(w, http.StatusBadRequest, CodeInvalidStatus,
			"cannot transition from "+string(t.Status)+" to "+string(target))
		return
	}

	err = c.Tasks.UpdateStatusCAS(r.Context(), id,
		[]model.TaskLifecycleStatus{t.Status}, target)
	if err != nil && !errors.Is(err, dao.ErrConflict) {
		writeError(w, http.StatusInternalServerError, CodeServiceUnavailable, "status update failed")
		return
	}
	// A lost CAS means a concurrent writer already moved the task; treated
	// as success.
	if err == nil && target == model.StatusCancelled {
		event := model.NewTaskEvent(uuid.NewString(), "Cancel Task", id, c.clock.Now())
		event.Initiator = "api"
		if perr := c.Producer.Publish(r.Context(), consts.TopicTaskCancel, id, event); perr != nil {
			logging.Errorf(r.Context(), "publish cancel for %s failed: %v", id, perr)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"taskId": id, "status": target})
}

// updateAttachments handles PUT /api/tasks/{id}/attachments with body
// {"attachments": {...}}; persists and emits task.update.attachment.
func (c *TaskController) updateAttachments(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Attachments map[string]interface{} `json:"attachments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid JSON body")
		return
	}
	if body.Attachments == nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "attachments object required")
		return
	}

	err := c.Tasks.UpdateAttachments(r.Context(), id, body.Attachments)
	if errors.Is(err, dao.ErrNotFound) {
		writeError(w, http.StatusNotFound, CodeTaskNotFound, "task "+id+" not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeServiceUnavailable, "attachments update failed")
		return
	}

	event := model.NewTaskEvent(uuid.NewString(), "Update Attachments", id, c.clock.Now())
	if perr := c.Producer.Publish(r.Context(), consts.TopicTaskUpdateAttachment, id, event); perr != nil {
		logging.Errorf(r.Context(), "publish attachment update for %s failed: %v", id, perr)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"taskId": id, "updated": true})
}
