package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/JiHungLin/Skalds/internal/clock"
	"github.com/JiHungLin/Skalds/internal/config"
	"github.com/JiHungLin/Skalds/internal/consts"
	"github.com/JiHungLin/Skalds/internal/dao"
	"github.com/JiHungLin/Skalds/internal/model"
	"github.com/JiHungLin/Skalds/internal/store"
)

type fakeTaskDao struct {
	mu       sync.Mutex
	tasks    map[string]*model.Task
	casFail  map[string]bool // force ErrConflict for these ids
	casCalls []string
}

func newFakeTaskDao(tasks ...*model.Task) *fakeTaskDao {
	f := &fakeTaskDao{tasks: map[string]*model.Task{}, casFail: map[string]bool{}}
	for _, t := range tasks {
		cp := *t
		f.tasks[t.ID] = &cp
	}
	return f
}

func (f *fakeTaskDao) Create(_ context.Context, t *model.Task) error { return nil }

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

func (f *fakeTaskDao) List(_ context.Context, _ model.TaskFilter, _, _ int) ([]*model.Task, int64, error) {
	return nil, 0, nil
}

func (f *fakeTaskDao) ListMonitored(_ context.Context) ([]*model.Task, error) { return nil, nil }

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
	// priority desc, then creation asc
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Priority > out[i].Priority ||
				(out[j].Priority == out[i].Priority && out[j].CreateTime < out[i].CreateTime) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeTaskDao) UpdateStatusCAS(_ context.Context, id string, from []model.TaskLifecycleStatus, to model.TaskLifecycleStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.casFail[id] {
		return dao.ErrConflict
	}
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
	if t, ok := f.tasks[id]; ok {
		t.Executor = executor
	}
	return nil
}

func (f *fakeTaskDao) ClearExecutor(_ context.Context, id string) error { return nil }

func (f *fakeTaskDao) UpdateAttachments(_ context.Context, _ string, _ map[string]interface{}) error {
	return nil
}

func (f *fakeTaskDao) Reachable() bool { return true }

type fakeProducer struct {
	mu     sync.Mutex
	topics []string
	keys   []string
	events []*model.TaskEvent
}

func (f *fakeProducer) Publish(_ context.Context, topic, key string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.keys = append(f.keys, key)
	if ev, ok := payload.(*model.TaskEvent); ok {
		f.events = append(f.events, ev)
	}
	return nil
}

func dispatchConfig(policy config.DispatchPolicy) *config.Config {
	cfg := &config.Config{DispatchPolicy: policy}
	cfg.ApplyDefaults()
	return cfg
}

func newDispatcherForTest(tasks *fakeTaskDao, policy config.DispatchPolicy) (*Dispatcher, *store.SkaldStore, *fakeProducer) {
	clk := &clock.Fixed{T: time.UnixMilli(1_700_000_000_000)}
	d := NewDispatcher(dispatchConfig(policy), clk)
	d.Tasks = tasks
	d.Skalds = store.NewSkaldStore()
	producer := &fakeProducer{}
	d.Producer = producer
	return d, d.Skalds, producer
}

func nodeSkald(id string, classes []string, tasks ...string) *model.Skald {
	return &model.Skald{
		ID:                 id,
		Kind:               model.KindNode,
		Status:             model.SkaldOnline,
		SupportedTaskTypes: classes,
		CurrentTasks:       tasks,
	}
}

func TestDispatchHappyPath(t *testing.T) {
	tasks := newFakeTaskDao(&model.Task{
		ID: "t1", ClassName: "W", Mode: model.ModePassive,
		Status: model.StatusCreated, Priority: 5,
	})
	d, skalds, producer := newDispatcherForTest(tasks, config.PolicyLeastTasks)
	skalds.Put(nodeSkald("s1", []string{"W"}))

	if err := d.tick(context.Background(), d.clock.Now()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	got, _ := tasks.Get(context.Background(), "t1")
	if got.Executor != "s1" {
		t.Fatalf("executor = %q, want s1", got.Executor)
	}
	if got.Status != model.StatusAssigning {
		t.Fatalf("status = %s, want Assigning", got.Status)
	}
	if len(producer.topics) != 1 || producer.topics[0] != consts.TopicTaskAssign {
		t.Fatalf("topics = %v", producer.topics)
	}
	if producer.keys[0] != "t1" {
		t.Fatalf("message key = %s, want t1", producer.keys[0])
	}
	ev := producer.events[0]
	if len(ev.TaskIDs) != 1 || ev.TaskIDs[0] != "t1" || ev.Recipient != "s1" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestDispatchLeastTasksTiebreak(t *testing.T) {
	tasks := newFakeTaskDao(&model.Task{
		ID: "t1", ClassName: "W", Mode: model.ModePassive, Status: model.StatusCreated,
	})
	d, skalds, producer := newDispatcherForTest(tasks, config.PolicyLeastTasks)
	skalds.Put(nodeSkald("s1", []string{"W"}, "a"))
	skalds.Put(nodeSkald("s2", []string{"W"}))

	if err := d.tick(context.Background(), d.clock.Now()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if producer.events[0].Recipient != "s2" {
		t.Fatalf("least-tasks should pick s2, got %s", producer.events[0].Recipient)
	}
}

func TestDispatchEligibilityFilter(t *testing.T) {
	tasks := newFakeTaskDao(&model.Task{
		ID: "t1", ClassName: "W", Mode: model.ModePassive, Status: model.StatusCreated,
	})
	d, skalds, producer := newDispatcherForTest(tasks, config.PolicyLeastTasks)
	skalds.Put(&model.Skald{ID: "edge", Kind: model.KindEdge, Status: model.SkaldOnline, SupportedTaskTypes: []string{"W"}})
	skalds.Put(&model.Skald{ID: "offline", Kind: model.KindNode, Status: model.SkaldOffline, SupportedTaskTypes: []string{"W"}})
	skalds.Put(nodeSkald("wrong-class", []string{"X"}))

	if err := d.tick(context.Background(), d.clock.Now()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if len(producer.topics) != 0 {
		t.Fatalf("no eligible candidate, nothing should be published: %v", producer.topics)
	}
	got, _ := tasks.Get(context.Background(), "t1")
	if got.Status != model.StatusCreated {
		t.Fatalf("task should stay Created, got %s", got.Status)
	}
}

func TestDispatchLostCASSkipsPublish(t *testing.T) {
	tasks := newFakeTaskDao(&model.Task{
		ID: "t1", ClassName: "W", Mode: model.ModePassive, Status: model.StatusCreated,
	})
	tasks.casFail["t1"] = true
	d, skalds, producer := newDispatcherForTest(tasks, config.PolicyLeastTasks)
	skalds.Put(nodeSkald("s1", []string{"W"}))

	if err := d.tick(context.Background(), d.clock.Now()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if len(producer.topics) != 0 {
		t.Fatalf("lost CAS must not publish: %v", producer.topics)
	}
}

func TestDispatchSpreadsBurstWithinTick(t *testing.T) {
	tasks := newFakeTaskDao(
		&model.Task{ID: "t1", ClassName: "W", Mode: model.ModePassive, Status: model.StatusCreated, Priority: 2},
		&model.Task{ID: "t2", ClassName: "W", Mode: model.ModePassive, Status: model.StatusCreated, Priority: 1},
	)
	d, skalds, producer := newDispatcherForTest(tasks, config.PolicyLeastTasks)
	skalds.Put(nodeSkald("s1", []string{"W"}))
	skalds.Put(nodeSkald("s2", []string{"W"}))

	if err := d.tick(context.Background(), d.clock.Now()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if len(producer.events) != 2 {
		t.Fatalf("expected two assignments, got %d", len(producer.events))
	}
	if producer.events[0].Recipient == producer.events[1].Recipient {
		t.Fatalf("burst should spread across skalds, both went to %s", producer.events[0].Recipient)
	}
}

func TestRoundRobinPolicyCursor(t *testing.T) {
	p := &roundRobinPolicy{}
	candidates := []*model.Skald{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	got := []string{
		p.Choose(candidates, nil).ID,
		p.Choose(candidates, nil).ID,
		p.Choose(candidates, nil).ID,
		p.Choose(candidates, nil).ID,
	}
	want := []string{"a", "b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("round robin order = %v, want %v", got, want)
		}
	}
}

func TestRandomPolicyStaysInCandidateSet(t *testing.T) {
	p := NewPolicy(config.PolicyRandom, 1)
	candidates := []*model.Skald{{ID: "a"}, {ID: "b"}}
	for i := 0; i < 20; i++ {
		chosen := p.Choose(candidates, nil)
		if chosen == nil || (chosen.ID != "a" && chosen.ID != "b") {
			t.Fatalf("random choice left the candidate set: %+v", chosen)
		}
	}
}
