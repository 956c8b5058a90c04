package store

import (
	"context"
	"sync"

	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/consts"
	"github.com/JiHungLin/Skalds/internal/model"
)

// TaskStore is the in-memory view of every monitored (Assigning/Running)
// task. The task monitor writes it; readers get copies.
type TaskStore struct {
	*core.BaseComponent

	mu    sync.RWMutex
	tasks map[string]*model.MonitoredTaskRecord

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func(*model.MonitoredTaskRecord)
}

func NewTaskStore() *TaskStore {
	return &TaskStore{
		BaseComponent: core.NewBaseComponent(consts.COMP_STORE_TASK),
		tasks:         make(map[string]*model.MonitoredTaskRecord),
		subs:          make(map[int]func(*model.MonitoredTaskRecord)),
	}
}

func (s *TaskStore) Stop(ctx context.Context) error {
	s.subMu.Lock()
	s.subs = make(map[int]func(*model.MonitoredTaskRecord))
	s.subMu.Unlock()
	return s.BaseComponent.Stop(ctx)
}

// Put replaces the record and notifies subscribers with a copy.
func (s *TaskStore) Put(rec *model.MonitoredTaskRecord) {
	cp := copyRecord(rec)
	s.mu.Lock()
	s.tasks[cp.ID] = cp
	s.mu.Unlock()
	s.notify(cp)
}

func (s *TaskStore) Get(id string) (*model.MonitoredTaskRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	return copyRecord(rec), true
}

func (s *TaskStore) Delete(id string) {
	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()
}

func (s *TaskStore) Snapshot() map[string]*model.MonitoredTaskRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*model.MonitoredTaskRecord, len(s.tasks))
	for id, rec := range s.tasks {
		out[id] = copyRecord(rec)
	}
	return out
}

func (s *TaskStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func (s *TaskStore) CountByStatus(status model.TaskLifecycleStatus) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.tasks {
		if rec.Status == status {
			n++
		}
	}
	return n
}

// Subscribe registers a callback fired on every record change. The returned
// function unsubscribes.
func (s *TaskStore) Subscribe(fn func(*model.MonitoredTaskRecord)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *TaskStore) notify(rec *model.MonitoredTaskRecord) {
	s.subMu.Lock()
	fns := make([]func(*model.MonitoredTaskRecord), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(copyRecord(rec))
	}
}

func copyRecord(in *model.MonitoredTaskRecord) *model.MonitoredTaskRecord {
	out := *in
	out.HeartbeatHistory = append([]int(nil), in.HeartbeatHistory...)
	return &out
}
