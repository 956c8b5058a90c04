package api

import (
	"context"
	"sync"

	"github.com/JiHungLin/Skalds/internal/dao"
	"github.com/JiHungLin/Skalds/internal/model"
)

type fakeTaskDao struct {
	mu           sync.Mutex
	tasks        map[string]*model.Task
	lastPageSize int
	lastPage     int
}

func newFakeTaskDao(tasks ...*model.Task) *fakeTaskDao {
	f := &fakeTaskDao{tasks: map[string]*model.Task{}}
	for _, t := range tasks {
		cp := *t
		f.tasks[t.ID] = &cp
	}
	return f
}

func (f *fakeTaskDao) Create(_ context.Context, t *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[t.ID]; ok {
		return dao.ErrAlreadyExists
	}
	cp := *t
	f.tasks[t.ID] = &cp
	return nil
}

func (f *fakeTaskDao) Get(_ context.Context, id string) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, dao.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTaskDao) List(_ context.Context, _ model.TaskFilter, page, pageSize int) ([]*model.Task, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPage, f.lastPageSize = page, pageSize
	var out []*model.Task
	for _, t := range f.tasks {
		cp := *t
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (f *fakeTaskDao) ListMonitored(_ context.Context) ([]*model.Task, error) { return nil, nil }

func (f *fakeTaskDao) ListDispatchable(_ context.Context) ([]*model.Task, error) { return nil, nil }

func (f *fakeTaskDao) UpdateStatusCAS(_ context.Context, id string, from []model.TaskLifecycleStatus, to model.TaskLifecycleStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return dao.ErrConflict
	}
	for _, st := range from {
		if t.Status == st {
			t.Status = to
			return nil
		}
	}
	return dao.ErrConflict
}

func (f *fakeTaskDao) UpdateExecutor(_ context.Context, id, executor string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[id]; ok {
		t.Executor = executor
		return nil
	}
	return dao.ErrNotFound
}

func (f *fakeTaskDao) ClearExecutor(_ context.Context, id string) error { return nil }

func (f *fakeTaskDao) UpdateAttachments(_ context.Context, id string, payload map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return dao.ErrNotFound
	}
	t.Attachments = payload
	return nil
}

func (f *fakeTaskDao) Reachable() bool { return true }

type fakeProducer struct {
	mu     sync.Mutex
	topics []string
	keys   []string
}

func (f *fakeProducer) Publish(_ context.Context, topic, key string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeProducer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.topics)
}
