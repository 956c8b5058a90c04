package reconciler

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/components/logging"
	"github.com/JiHungLin/Skalds/internal/components/prometheus"
	"github.com/JiHungLin/Skalds/internal/config"
	"github.com/JiHungLin/Skalds/internal/consts"
	"github.com/JiHungLin/Skalds/internal/dao"
	"github.com/JiHungLin/Skalds/internal/model"
)

// Observation is one task's monitor reading for a single cycle.
type Observation struct {
	TaskID             string
	PrevStatus         model.TaskLifecycleStatus
	Executor           string
	Heartbeat          int
	HasHeartbeat       bool
	HistorySaturated   bool
	Error              string
	Exception          string
	ExecutorOnline     bool
	AssignmentTimedOut bool
}

// Decision is the transition an observation maps to, if any.
type Decision struct {
	To            model.TaskLifecycleStatus
	From          []model.TaskLifecycleStatus
	Reason        string
	ClearExecutor bool
}

var activeStatuses = []model.TaskLifecycleStatus{model.StatusAssigning, model.StatusRunning}

// Decide is the pure reconciliation function. Terminal heartbeat sentinels
// win over everything; an offline executor fails the task before stuck
// detection; promotion and the assignment-timeout demotion come last.
func Decide(o Observation) *Decision {
	if o.HasHeartbeat {
		switch o.Heartbeat {
		case model.HeartbeatFinished:
			return &Decision{To: model.StatusFinished, From: activeStatuses, Reason: "completed"}
		case model.HeartbeatException:
			return &Decision{To: model.StatusFailed, From: activeStatuses, Reason: "exception"}
		case model.HeartbeatCancelled:
			return &Decision{To: model.StatusCancelled, From: activeStatuses, Reason: "cancelled_by_worker"}
		}
	}

	active := o.PrevStatus == model.StatusAssigning || o.PrevStatus == model.StatusRunning
	if active && !o.ExecutorOnline {
		return &Decision{To: model.StatusFailed, From: activeStatuses, Reason: "executor_offline"}
	}

	progressing := o.HasHeartbeat && o.Heartbeat >= 0 && o.Heartbeat < model.HeartbeatFinished
	if o.PrevStatus == model.StatusRunning && progressing && o.HistorySaturated {
		return &Decision{To: model.StatusFailed, From: []model.TaskLifecycleStatus{model.StatusRunning}, Reason: "stuck"}
	}
	if o.PrevStatus == model.StatusAssigning && progressing {
		return &Decision{To: model.StatusRunning, From: []model.TaskLifecycleStatus{model.StatusAssigning}, Reason: "heartbeat"}
	}
	if o.PrevStatus == model.StatusAssigning && !o.HasHeartbeat && o.AssignmentTimedOut {
		return &Decision{
			To:            model.StatusCreated,
			From:          []model.TaskLifecycleStatus{model.StatusAssigning},
			Reason:        "assignment_timeout",
			ClearExecutor: true,
		}
	}
	return nil
}

// Reconciler applies decisions from a worker pool fed by the task monitor.
// A losing CAS means another writer already moved the task and counts as
// success.
type Reconciler struct {
	*core.BaseComponent
	Tasks dao.TaskDao `infra:"dep:task_dao"`

	cfg *config.Config

	obsCh  chan Observation
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReconciler(cfg *config.Config) *Reconciler {
	return &Reconciler{
		BaseComponent: core.NewBaseComponent(consts.COMP_RECONCILER),
		cfg:           cfg,
		obsCh:         make(chan Observation, 256),
	}
}

func (r *Reconciler) Start(ctx context.Context) error {
	if r.IsActive() {
		return nil
	}
	if err := r.BaseComponent.Start(ctx); err != nil {
		return err
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	for i := 0; i < r.cfg.ReconcilerWorkers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for {
				select {
				case <-loopCtx.Done():
					return
				case obs := <-r.obsCh:
					r.apply(loopCtx, obs)
				}
			}
		}()
	}
	return nil
}

func (r *Reconciler) Stop(ctx context.Context) error {
	if !r.IsActive() {
		return nil
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	return r.BaseComponent.Stop(ctx)
}

// Submit queues an observation; drops when the pool is saturated (the next
// monitor cycle re-observes the same state).
func (r *Reconciler) Submit(obs Observation) {
	select {
	case r.obsCh <- obs:
	default:
		logging.Warn(context.Background(), "reconciler queue full, observation dropped",
			zap.String("task", obs.TaskID))
	}
}

func (r *Reconciler) apply(ctx context.Context, obs Observation) {
	d := Decide(obs)
	if d == nil {
		return
	}
	err := r.Tasks.UpdateStatusCAS(ctx, obs.TaskID, d.From, d.To)
	if errors.Is(err, dao.ErrConflict) {
		logging.Debug(ctx, "reconciler lost CAS",
			zap.String("task", obs.TaskID), zap.String("to", string(d.To)))
		return
	}
	if err != nil {
		logging.Errorf(ctx, "reconciler transition %s -> %s failed: %v", obs.TaskID, d.To, err)
		return
	}
	if d.ClearExecutor {
		if err := r.Tasks.ClearExecutor(ctx, obs.TaskID); err != nil {
			logging.Errorf(ctx, "clear executor for %s failed: %v", obs.TaskID, err)
		}
		if mx := prometheus.M(); mx != nil {
			mx.AssignmentTimeouts.Inc()
		}
	}
	if mx := prometheus.M(); mx != nil {
		mx.LifecycleTransitions.WithLabelValues(string(obs.PrevStatus), string(d.To)).Inc()
	}
	logging.Info(ctx, "task transitioned",
		zap.String("task", obs.TaskID),
		zap.String("from", string(obs.PrevStatus)),
		zap.String("to", string(d.To)),
		zap.String("reason", d.Reason),
	)
}
