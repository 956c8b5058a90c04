package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/JiHungLin/Skalds/internal/dao"
	"github.com/JiHungLin/Skalds/internal/model"
	"github.com/JiHungLin/Skalds/internal/reconciler"
)

// fakeCache is an in-memory dao.CacheDao.
type fakeCache struct {
	mu      sync.Mutex
	strings map[string]string
	hashes  map[string]map[string]string
	lists   map[string][]string
	purged  []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		strings: map[string]string{},
		hashes:  map[string]map[string]string{},
		lists:   map[string][]string{},
	}
}

func (f *fakeCache) GetString(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.strings[key]
	if !ok {
		return "", dao.ErrNotFound
	}
	return v, nil
}

func (f *fakeCache) SetString(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strings[key] = value
	return nil
}

func (f *fakeCache) GetHashField(_ context.Context, key, field string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hashes[key]
	if !ok {
		return "", dao.ErrNotFound
	}
	v, ok := h[field]
	if !ok {
		return "", dao.ErrNotFound
	}
	return v, nil
}

func (f *fakeCache) SetHashField(_ context.Context, key, field, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hashes[key] == nil {
		f.hashes[key] = map[string]string{}
	}
	f.hashes[key][field] = value
	return nil
}

func (f *fakeCache) GetAllHashFields(_ context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeCache) PushList(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[key] = append(f.lists[key], value)
	return nil
}

func (f *fakeCache) ReadList(_ context.Context, key string, _, _ int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lists[key]...), nil
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.strings, k)
		delete(f.hashes, k)
		delete(f.lists, k)
	}
	return nil
}

func (f *fakeCache) DeleteByPattern(_ context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purged = append(f.purged, pattern)
	return nil
}

func (f *fakeCache) Reachable() bool { return true }

// fakeTaskDao is an in-memory dao.TaskDao.
type fakeTaskDao struct {
	mu    sync.Mutex
	tasks map[string]*model.Task
	// casCalls records every UpdateStatusCAS in "id:to" form.
	casCalls []string
	cleared  []string
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

func (f *fakeTaskDao) List(_ context.Context, filter model.TaskFilter, page, pageSize int) ([]*model.Task, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Task
	for _, t := range f.tasks {
		cp := *t
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (f *fakeTaskDao) ListMonitored(_ context.Context) ([]*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Task
	for _, t := range f.tasks {
		if t.Status == model.StatusAssigning || t.Status == model.StatusRunning {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTaskDao) ListDispatchable(_ context.Context) ([]*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Task
	for _, t := range f.tasks {
		if t.Dispatchable() {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

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
			f.casCalls = append(f.casCalls, id+":"+string(to))
			return nil
		}
	}
	return dao.ErrConflict
}

func (f *fakeTaskDao) UpdateExecutor(_ context.Context, id, executor string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return dao.ErrNotFound
	}
	t.Executor = executor
	return nil
}

func (f *fakeTaskDao) ClearExecutor(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return dao.ErrNotFound
	}
	t.Executor = ""
	f.cleared = append(f.cleared, id)
	return nil
}

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

// fakeProducer records published events.
type fakeProducer struct {
	mu     sync.Mutex
	topics []string
	keys   []string
	events []interface{}
}

func (f *fakeProducer) Publish(_ context.Context, topic, key string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.keys = append(f.keys, key)
	f.events = append(f.events, payload)
	return nil
}

// fakeSink captures reconciler observations synchronously.
type fakeSink struct {
	mu  sync.Mutex
	obs []reconciler.Observation
}

func (f *fakeSink) Submit(o reconciler.Observation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs = append(f.obs, o)
}

func (f *fakeSink) last() (reconciler.Observation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.obs) == 0 {
		return reconciler.Observation{}, false
	}
	return f.obs[len(f.obs)-1], true
}
