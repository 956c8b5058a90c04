package api

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JiHungLin/Skalds/internal/config"
	"github.com/JiHungLin/Skalds/internal/model"
	"github.com/JiHungLin/Skalds/internal/store"
)

func newFanoutForTest() (*EventFanout, chi.Router) {
	cfg := &config.Config{SSEKeepaliveInterval: 50 * time.Millisecond}
	cfg.ApplyDefaults()
	f := NewEventFanout(cfg)
	f.Skalds = store.NewSkaldStore()
	f.Store = store.NewTaskStore()

	r := chi.NewRouter()
	r.Get("/api/events/skalds", f.skaldsStream)
	r.Get("/api/events/tasks", f.tasksStream)
	r.Get("/api/events/status", f.status)
	return f, r
}

// readUntil scans the SSE body until a line containing want appears.
func readUntil(t *testing.T, scanner *bufio.Scanner, want string, deadline time.Duration) bool {
	t.Helper()
	done := make(chan bool, 1)
	go func() {
		for scanner.Scan() {
			if strings.Contains(scanner.Text(), want) {
				done <- true
				return
			}
		}
		done <- false
	}()
	select {
	case ok := <-done:
		return ok
	case <-time.After(deadline):
		return false
	}
}

func TestSkaldStreamPushesChanges(t *testing.T) {
	f, r := newFanoutForTest()
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/events/skalds")
	if err != nil {
		t.Fatalf("stream request failed: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %s", ct)
	}

	// Give the handler a moment to subscribe before producing the change.
	time.Sleep(50 * time.Millisecond)
	f.Skalds.Put(&model.Skald{ID: "s1", Status: model.SkaldOnline})

	scanner := bufio.NewScanner(resp.Body)
	if !readUntil(t, scanner, `"id":"s1"`, 2*time.Second) {
		t.Fatalf("stream did not deliver the skald update")
	}
}

func TestTaskStreamFiltersById(t *testing.T) {
	f, r := newFanoutForTest()
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/events/tasks?task_id=t2")
	if err != nil {
		t.Fatalf("stream request failed: %v", err)
	}
	defer resp.Body.Close()

	time.Sleep(50 * time.Millisecond)
	f.Store.Put(&model.MonitoredTaskRecord{ID: "t1", Heartbeat: 1})
	f.Store.Put(&model.MonitoredTaskRecord{ID: "t2", Heartbeat: 2})

	scanner := bufio.NewScanner(resp.Body)
	if !readUntil(t, scanner, `"id":"t2"`, 2*time.Second) {
		t.Fatalf("filtered stream did not deliver t2")
	}
}

func TestEventsStatusCountsClients(t *testing.T) {
	f, r := newFanoutForTest()
	srv := httptest.NewServer(r)
	defer srv.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events/status", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"connectedClients":0`) {
		t.Fatalf("body = %s", rec.Body.String())
	}

	resp, err := http.Get(srv.URL + "/api/events/skalds")
	if err != nil {
		t.Fatalf("stream request failed: %v", err)
	}
	defer resp.Body.Close()
	time.Sleep(100 * time.Millisecond)

	f.mu.Lock()
	connected := f.connected
	f.mu.Unlock()
	if connected != 1 {
		t.Fatalf("connected = %d, want 1", connected)
	}
}
