package dispatcher

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/clock"
	"github.com/JiHungLin/Skalds/internal/components/kafka"
	"github.com/JiHungLin/Skalds/internal/components/logging"
	"github.com/JiHungLin/Skalds/internal/components/prometheus"
	"github.com/JiHungLin/Skalds/internal/config"
	"github.com/JiHungLin/Skalds/internal/consts"
	"github.com/JiHungLin/Skalds/internal/dao"
	"github.com/JiHungLin/Skalds/internal/model"
	"github.com/JiHungLin/Skalds/internal/store"
)

const initiator = "system-controller"

// Dispatcher assigns dispatchable tasks to eligible executors on a timer.
// The status CAS is the linearization point: a lost CAS means another
// dispatcher (or an external cancel) won, and the assign event is not sent.
type Dispatcher struct {
	*core.BaseComponent
	Tasks    dao.TaskDao       `infra:"dep:task_dao"`
	Skalds   *store.SkaldStore `infra:"dep:skald_store"`
	Producer kafka.Producer    `infra:"dep:kafka_producer"`

	cfg    *config.Config
	policy Policy
	clock  clock.Clock

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(cfg *config.Config, clk clock.Clock) *Dispatcher {
	if clk == nil {
		clk = clock.Real()
	}
	return &Dispatcher{
		BaseComponent: core.NewBaseComponent(consts.COMP_DISPATCHER),
		cfg:           cfg,
		policy:        NewPolicy(cfg.DispatchPolicy, clk.Now().UnixNano()),
		clock:         clk,
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	if d.IsActive() {
		return nil
	}
	if err := d.BaseComponent.Start(ctx); err != nil {
		return err
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.cfg.DispatchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if err := d.tick(loopCtx, d.clock.Now()); err != nil {
					logging.Errorf(loopCtx, "dispatch tick failed: %v", err)
				}
			}
		}
	}()
	return nil
}

func (d *Dispatcher) Stop(ctx context.Context) error {
	if !d.IsActive() {
		return nil
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	return d.BaseComponent.Stop(ctx)
}

// tick runs one dispatch round over the current dispatchable backlog.
func (d *Dispatcher) tick(ctx context.Context, now time.Time) error {
	tasks, err := d.Tasks.ListDispatchable(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	fleet := d.Skalds.Snapshot()
	inflight := make(map[string]int)

	for _, t := range tasks {
		candidates := eligible(fleet, t.ClassName)
		if len(candidates) == 0 {
			logging.Debug(ctx, "no eligible skald for task",
				zap.String("task", t.ID), zap.String("class", t.ClassName))
			if mx := prometheus.M(); mx != nil {
				mx.DispatchSkipped.Inc()
			}
			continue
		}
		chosen := d.policy.Choose(candidates, inflight)
		if chosen == nil {
			continue
		}
		if d.assign(ctx, t, chosen, now) {
			inflight[chosen.ID]++
		}
	}
	return nil
}

// assign performs the ordered triple: set executor, CAS to Assigning, publish.
// A lost CAS skips the publish so at most one assign event per task per tick
// leaves the controller.
func (d *Dispatcher) assign(ctx context.Context, t *model.Task, chosen *model.Skald, now time.Time) bool {
	if err := d.Tasks.UpdateExecutor(ctx, t.ID, chosen.ID); err != nil {
		logging.Errorf(ctx, "set executor for %s failed: %v", t.ID, err)
		return false
	}
	err := d.Tasks.UpdateStatusCAS(ctx, t.ID,
		[]model.TaskLifecycleStatus{model.StatusCreated, model.StatusPaused},
		model.StatusAssigning,
	)
	if errors.Is(err, dao.ErrConflict) {
		logging.Debug(ctx, "dispatch lost CAS", zap.String("task", t.ID))
		if mx := prometheus.M(); mx != nil {
			mx.DispatchSkipped.Inc()
		}
		return false
	}
	if err != nil {
		logging.Errorf(ctx, "assign status CAS for %s failed: %v", t.ID, err)
		return false
	}

	event := model.NewTaskEvent(uuid.NewString(), "Assign Task", t.ID, now)
	event.Initiator = initiator
	event.Recipient = chosen.ID
	if err := d.Producer.Publish(ctx, consts.TopicTaskAssign, t.ID, event); err != nil {
		// CAS already succeeded; the assignment timeout demotes the task if
		// the executor never sees the event.
		logging.Errorf(ctx, "publish assign for %s failed: %v", t.ID, err)
		return false
	}
	if mx := prometheus.M(); mx != nil {
		mx.DispatchAssignments.WithLabelValues(d.policy.Name()).Inc()
	}
	logging.Info(ctx, "task assigned",
		zap.String("task", t.ID),
		zap.String("skald", chosen.ID),
		zap.String("policy", d.policy.Name()),
	)
	return true
}

// eligible filters the fleet snapshot to online NODE skalds advertising the
// task class, sorted by id so policies tie-break deterministically.
func eligible(fleet map[string]*model.Skald, className string) []*model.Skald {
	var out []*model.Skald
	for _, sk := range fleet {
		if sk.Kind != model.KindNode || sk.Status != model.SkaldOnline {
			continue
		}
		if !sk.Supports(className) {
			continue
		}
		out = append(out, sk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
