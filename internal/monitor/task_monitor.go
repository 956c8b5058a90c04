package monitor

import (
	"context"
	"strconv"
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
	"github.com/JiHungLin/Skalds/internal/reconciler"
	"github.com/JiHungLin/Skalds/internal/store"
)

// ObservationSink receives monitor observations; the reconciler implements
// it.
type ObservationSink interface {
	Submit(obs reconciler.Observation)
}

// TaskMonitor rebuilds the TaskStore for every Assigning/Running task, feeds
// observations to the reconciler and cancels ghost workers executors still
// claim but the store no longer monitors.
type TaskMonitor struct {
	*core.BaseComponent
	Cache    dao.CacheDao      `infra:"dep:cache_dao"`
	Tasks    dao.TaskDao       `infra:"dep:task_dao"`
	Skalds   *store.SkaldStore `infra:"dep:skald_store"`
	Store    *store.TaskStore  `infra:"dep:task_store"`
	Rec      ObservationSink   `infra:"dep:reconciler"`
	Producer kafka.Producer    `infra:"dep:kafka_producer"`

	cfg   *config.Config
	clock clock.Clock

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTaskMonitor(cfg *config.Config, clk clock.Clock) *TaskMonitor {
	if clk == nil {
		clk = clock.Real()
	}
	return &TaskMonitor{
		BaseComponent: core.NewBaseComponent(consts.COMP_MONITOR_TASK),
		cfg:           cfg,
		clock:         clk,
	}
}

func (m *TaskMonitor) Start(ctx context.Context) error {
	if m.IsActive() {
		return nil
	}
	if err := m.BaseComponent.Start(ctx); err != nil {
		return err
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.TaskSyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := m.cycle(loopCtx, m.clock.Now()); err != nil {
					logging.Errorf(loopCtx, "task monitor cycle failed: %v", err)
					if mx := prometheus.M(); mx != nil {
						mx.MonitorCycleFailures.WithLabelValues("task").Inc()
					}
				}
				if mx := prometheus.M(); mx != nil {
					mx.MonitorCycleDuration.WithLabelValues("task").Observe(time.Since(start).Seconds())
				}
			}
		}
	}()
	return nil
}

func (m *TaskMonitor) Stop(ctx context.Context) error {
	if !m.IsActive() {
		return nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	return m.BaseComponent.Stop(ctx)
}

func (m *TaskMonitor) cycle(ctx context.Context, now time.Time) error {
	monitored, err := m.Tasks.ListMonitored(ctx)
	if err != nil {
		return err
	}

	monitoredIDs := make(map[string]bool, len(monitored))
	for _, t := range monitored {
		monitoredIDs[t.ID] = true
		m.observe(ctx, t, now)
	}

	// Drop records for tasks that left the monitored set.
	for id := range m.Store.Snapshot() {
		if !monitoredIDs[id] {
			m.Store.Delete(id)
		}
	}

	m.orphanScan(ctx, monitoredIDs, now)

	if mx := prometheus.M(); mx != nil {
		mx.MonitoredTasks.Set(float64(m.Store.Count()))
	}
	return nil
}

// observe polls one task's volatile cache state, refreshes its record and
// hands the reconciler an observation.
func (m *TaskMonitor) observe(ctx context.Context, t *model.Task, now time.Time) {
	heartbeat, hasHeartbeat := 0, false
	if hbStr, err := m.Cache.GetString(ctx, consts.TaskHeartbeatKey(t.ID)); err == nil {
		if hb, perr := strconv.Atoi(hbStr); perr == nil {
			heartbeat, hasHeartbeat = hb, true
		}
	}
	errStr, _ := m.Cache.GetString(ctx, consts.TaskHasErrorKey(t.ID))
	excStr, _ := m.Cache.GetString(ctx, consts.TaskExceptionKey(t.ID))

	prev, hadPrev := m.Store.Get(t.ID)

	rec := &model.MonitoredTaskRecord{
		ID:        t.ID,
		ClassName: t.ClassName,
		Executor:  t.Executor,
		Status:    t.Status,
		Heartbeat: heartbeat,
		Error:     errStr,
		Exception: excStr,
		UpdatedAt: now.UnixMilli(),
	}
	if hadPrev {
		rec.HeartbeatHistory = prev.HeartbeatHistory
	}
	if hasHeartbeat {
		rec.HeartbeatHistory = appendBounded(rec.HeartbeatHistory, heartbeat, m.cfg.StuckWindow)
	}
	if t.Status == model.StatusAssigning {
		if hadPrev && prev.Status == model.StatusAssigning && prev.AssigningSince > 0 {
			rec.AssigningSince = prev.AssigningSince
		} else {
			rec.AssigningSince = now.UnixMilli()
		}
	}
	m.Store.Put(rec)

	executorOnline := false
	if t.Executor != "" {
		if sk, ok := m.Skalds.Get(t.Executor); ok && sk.Status == model.SkaldOnline {
			executorOnline = true
		} else if !ok && m.Skalds.Count() == 0 {
			// No fleet view yet (first cycles after start); don't fail tasks
			// on an empty snapshot.
			executorOnline = true
		}
	}
	timedOut := t.Status == model.StatusAssigning && !hasHeartbeat &&
		rec.AssigningSince > 0 &&
		now.UnixMilli()-rec.AssigningSince >= m.cfg.AssignmentTimeout.Milliseconds()

	m.Rec.Submit(reconciler.Observation{
		TaskID:             t.ID,
		PrevStatus:         t.Status,
		Executor:           t.Executor,
		Heartbeat:          heartbeat,
		HasHeartbeat:       hasHeartbeat,
		HistorySaturated:   rec.HistorySaturated(m.cfg.StuckWindow),
		Error:              errStr,
		Exception:          excStr,
		ExecutorOnline:     executorOnline,
		AssignmentTimedOut: timedOut,
	})
}

// orphanScan cancels every (skald, task) pair the executor claims but the
// store no longer monitors. One cancel per pair per cycle.
func (m *TaskMonitor) orphanScan(ctx context.Context, monitoredIDs map[string]bool, now time.Time) {
	for skaldID, sk := range m.Skalds.Snapshot() {
		for _, taskID := range sk.CurrentTasks {
			if monitoredIDs[taskID] {
				continue
			}
			event := model.NewTaskEvent(uuid.NewString(), "Cancel Task", taskID, now)
			if err := m.Producer.Publish(ctx, consts.TopicTaskCancel, taskID, event); err != nil {
				logging.Errorf(ctx, "orphan cancel for %s failed: %v", taskID, err)
				continue
			}
			if mx := prometheus.M(); mx != nil {
				mx.OrphanCancels.Inc()
			}
			logging.Info(ctx, "orphan task cancel emitted",
				zap.String("task", taskID), zap.String("skald", skaldID))
		}
	}
}
