package store

import (
	"testing"

	"github.com/JiHungLin/Skalds/internal/model"
)

func TestTaskStorePutDelete(t *testing.T) {
	s := NewTaskStore()
	s.Put(&model.MonitoredTaskRecord{ID: "t1", Status: model.StatusRunning, Heartbeat: 10})
	s.Put(&model.MonitoredTaskRecord{ID: "t2", Status: model.StatusAssigning})

	if s.Count() != 2 {
		t.Fatalf("count = %d, want 2", s.Count())
	}
	if s.CountByStatus(model.StatusRunning) != 1 {
		t.Fatalf("running count wrong")
	}

	rec, ok := s.Get("t1")
	if !ok || rec.Heartbeat != 10 {
		t.Fatalf("get t1 = %+v, %v", rec, ok)
	}

	s.Delete("t1")
	if _, ok := s.Get("t1"); ok {
		t.Fatalf("t1 should be gone")
	}
}

func TestTaskStoreHistoryCopied(t *testing.T) {
	s := NewTaskStore()
	in := &model.MonitoredTaskRecord{ID: "t1", HeartbeatHistory: []int{1, 2}}
	s.Put(in)
	in.HeartbeatHistory[0] = 99

	got, _ := s.Get("t1")
	if got.HeartbeatHistory[0] != 1 {
		t.Fatalf("history leaked caller mutation: %v", got.HeartbeatHistory)
	}
}

func TestTaskStoreSubscribeFilterable(t *testing.T) {
	s := NewTaskStore()
	var seen []int
	unsub := s.Subscribe(func(rec *model.MonitoredTaskRecord) {
		seen = append(seen, rec.Heartbeat)
	})
	defer unsub()

	s.Put(&model.MonitoredTaskRecord{ID: "t1", Heartbeat: 5})
	s.Put(&model.MonitoredTaskRecord{ID: "t1", Heartbeat: 6})
	if len(seen) != 2 || seen[1] != 6 {
		t.Fatalf("subscriber saw %v", seen)
	}
}
