package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/components/logging"
	"github.com/JiHungLin/Skalds/internal/components/prometheus"
	"github.com/JiHungLin/Skalds/internal/config"
	"github.com/JiHungLin/Skalds/internal/consts"
	"github.com/JiHungLin/Skalds/internal/model"
	"github.com/JiHungLin/Skalds/internal/store"
)

type sseMessage struct {
	event string
	data  []byte
}

// EventFanout turns store changes into server-push streams. Each client gets
// a buffered queue; a client that cannot drain it is closed with reason
// slow_consumer instead of blocking the monitors.
type EventFanout struct {
	*core.BaseComponent
	Skalds *store.SkaldStore `infra:"dep:skald_store"`
	Store  *store.TaskStore  `infra:"dep:task_store"`

	cfg *config.Config

	mu        sync.Mutex
	connected int
}

func NewEventFanout(cfg *config.Config) *EventFanout {
	return &EventFanout{
		BaseComponent: core.NewBaseComponent(consts.COMP_EVENT_FANOUT,
			consts.COMP_STORE_SKALD, consts.COMP_STORE_TASK),
		cfg: cfg,
	}
}

// skaldsStream handles GET /api/events/skalds?skald_id=.
func (f *EventFanout) skaldsStream(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("skald_id")
	f.serve(w, r, "skald", func(enqueue func(interface{}) bool) func() {
		return f.Skalds.Subscribe(func(sk *model.Skald) {
			if filter != "" && sk.ID != filter {
				return
			}
			enqueue(sk)
		})
	})
}

// tasksStream handles GET /api/events/tasks?task_id=.
func (f *EventFanout) tasksStream(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("task_id")
	f.serve(w, r, "task", func(enqueue func(interface{}) bool) func() {
		return f.Store.Subscribe(func(rec *model.MonitoredTaskRecord) {
			if filter != "" && rec.ID != filter {
				return
			}
			enqueue(rec)
		})
	})
}

func (f *EventFanout) status(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	connected := f.connected
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connectedClients": connected,
		"status":           "ok",
	})
}

// serve runs one client connection: subscribe, stream events, keep-alive,
// deterministic unsubscribe on disconnect.
func (f *EventFanout) serve(w http.ResponseWriter, r *http.Request, eventName string, subscribe func(enqueue func(interface{}) bool) func()) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, CodeServiceUnavailable, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	queue := make(chan sseMessage, f.cfg.SSEBackpressureHigh)
	slow := make(chan struct{})
	var slowOnce sync.Once

	enqueue := func(v interface{}) bool {
		data, err := json.Marshal(v)
		if err != nil {
			return true
		}
		select {
		case queue <- sseMessage{event: eventName, data: data}:
			return true
		default:
			slowOnce.Do(func() {
				close(slow)
				if mx := prometheus.M(); mx != nil {
					mx.SlowConsumerClosures.Inc()
				}
			})
			return false
		}
	}

	unsubscribe := subscribe(enqueue)
	defer unsubscribe()

	f.addClient(1)
	defer f.addClient(-1)

	keepalive := time.NewTicker(f.cfg.SSEKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-slow:
			logging.Warn(r.Context(), "closing slow consumer stream",
				zap.String("stream", eventName))
			fmt.Fprintf(w, "event: close\ndata: {\"reason\":\"slow_consumer\"}\n\n")
			flusher.Flush()
			return
		case msg := <-queue:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.event, msg.data)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

func (f *EventFanout) addClient(delta int) {
	f.mu.Lock()
	f.connected += delta
	connected := f.connected
	f.mu.Unlock()
	if mx := prometheus.M(); mx != nil {
		mx.ConnectedSSEClients.Set(float64(connected))
	}
}
