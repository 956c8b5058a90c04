package monitor

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/clock"
	"github.com/JiHungLin/Skalds/internal/components/logging"
	"github.com/JiHungLin/Skalds/internal/components/prometheus"
	"github.com/JiHungLin/Skalds/internal/config"
	"github.com/JiHungLin/Skalds/internal/consts"
	"github.com/JiHungLin/Skalds/internal/dao"
	"github.com/JiHungLin/Skalds/internal/model"
	"github.com/JiHungLin/Skalds/internal/store"
)

// SkaldMonitor rebuilds the SkaldStore from the cache on a timer. It is the
// store's only writer.
type SkaldMonitor struct {
	*core.BaseComponent
	Cache  dao.CacheDao      `infra:"dep:cache_dao"`
	Skalds *store.SkaldStore `infra:"dep:skald_store"`

	cfg   *config.Config
	clock clock.Clock

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSkaldMonitor(cfg *config.Config, clk clock.Clock) *SkaldMonitor {
	if clk == nil {
		clk = clock.Real()
	}
	return &SkaldMonitor{
		BaseComponent: core.NewBaseComponent(consts.COMP_MONITOR_SKALD),
		cfg:           cfg,
		clock:         clk,
	}
}

func (m *SkaldMonitor) Start(ctx context.Context) error {
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
		ticker := time.NewTicker(m.cfg.SkaldSyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := m.cycle(loopCtx, m.clock.Now()); err != nil {
					logging.Errorf(loopCtx, "skald monitor cycle failed: %v", err)
					if mx := prometheus.M(); mx != nil {
						mx.MonitorCycleFailures.WithLabelValues("skald").Inc()
					}
				}
				if mx := prometheus.M(); mx != nil {
					mx.MonitorCycleDuration.WithLabelValues("skald").Observe(time.Since(start).Seconds())
				}
			}
		}
	}()
	return nil
}

func (m *SkaldMonitor) Stop(ctx context.Context) error {
	if !m.IsActive() {
		return nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	return m.BaseComponent.Stop(ctx)
}

// cycle performs one refresh: registry scan, per-skald detail reads for
// fresh entries, status derivation, then the eviction sweep.
func (m *SkaldMonitor) cycle(ctx context.Context, now time.Time) error {
	registry, err := m.Cache.GetAllHashFields(ctx, consts.SkaldListHash)
	if err != nil {
		return err
	}
	modes, err := m.Cache.GetAllHashFields(ctx, consts.SkaldModeHash)
	if err != nil {
		return err
	}

	nowMs := now.UnixMilli()
	staleMs := m.cfg.SkaldStaleThreshold.Milliseconds()

	for id, lastStr := range registry {
		if id == "" {
			continue
		}
		lastActive, err := strconv.ParseInt(lastStr, 10, 64)
		if err != nil {
			logging.Warn(ctx, "skald registry entry has bad timestamp",
				zap.String("skald", id), zap.String("value", lastStr))
			continue
		}
		rec := m.buildRecord(ctx, id, lastActive, modes[id], nowMs-lastActive > staleMs)
		m.Skalds.Put(rec)
	}

	m.evict(ctx, registry, nowMs)

	if mx := prometheus.M(); mx != nil {
		mx.OnlineSkalds.Set(float64(m.Skalds.OnlineCount()))
	}
	return nil
}

// buildRecord extends the previous record with the latest cache reads. A
// stale skald is marked offline without further network I/O.
func (m *SkaldMonitor) buildRecord(ctx context.Context, id string, lastActive int64, mode string, stale bool) *model.Skald {
	rec := &model.Skald{
		ID:         id,
		Kind:       parseKind(mode),
		LastActive: lastActive,
	}
	if prev, ok := m.Skalds.Get(id); ok {
		rec.Heartbeat = prev.Heartbeat
		rec.HeartbeatHistory = prev.HeartbeatHistory
		rec.SupportedTaskTypes = prev.SupportedTaskTypes
		rec.CurrentTasks = prev.CurrentTasks
	}
	if stale {
		rec.Status = model.SkaldOffline
		return rec
	}

	if hbStr, err := m.Cache.GetString(ctx, consts.SkaldHeartbeatKey(id)); err == nil {
		if hb, perr := strconv.Atoi(hbStr); perr == nil {
			rec.Heartbeat = hb
			rec.HeartbeatHistory = appendBounded(rec.HeartbeatHistory, hb, m.ringLen())
		}
	}
	if allow, err := m.Cache.ReadList(ctx, consts.SkaldAllowTaskClassNameKey(id), 0, -1); err == nil {
		rec.SupportedTaskTypes = allow
	}
	if tasks, err := m.Cache.ReadList(ctx, consts.SkaldAllTaskKey(id), 0, -1); err == nil {
		rec.CurrentTasks = tasks
	}

	// StuckWindow (default five) identical consecutive samples mean a hung executor that still
	// refreshes its registry timestamp.
	if rec.HeartbeatStuck(m.cfg.StuckWindow) {
		rec.Status = model.SkaldOffline
	} else {
		rec.Status = model.SkaldOnline
	}
	return rec
}

// evict drops records absent from the registry beyond the evict threshold and
// purges their leftover cache keys.
func (m *SkaldMonitor) evict(ctx context.Context, registry map[string]string, nowMs int64) {
	evictMs := m.cfg.SkaldEvictThreshold.Milliseconds()
	for _, id := range m.Skalds.IDs() {
		if _, present := registry[id]; present {
			continue
		}
		rec, ok := m.Skalds.Get(id)
		if !ok {
			continue
		}
		if nowMs-rec.LastActive > evictMs {
			if err := m.Cache.DeleteByPattern(ctx, consts.SkaldKeyPattern(id)); err != nil {
				logging.Warnf(ctx, "purge cache keys for %s failed: %v", id, err)
			}
			m.Skalds.Delete(id)
			logging.Info(ctx, "skald evicted", zap.String("skald", id))
		} else if rec.Status != model.SkaldOffline {
			rec.Status = model.SkaldOffline
			m.Skalds.Put(rec)
		}
	}
}

func (m *SkaldMonitor) ringLen() int {
	if m.cfg.StuckWindow > 5 {
		return m.cfg.StuckWindow
	}
	return 5
}

func parseKind(mode string) model.SkaldKind {
	if model.SkaldKind(mode) == model.KindEdge {
		return model.KindEdge
	}
	return model.KindNode
}

func appendBounded(history []int, v, max int) []int {
	history = append(history, v)
	if len(history) > max {
		history = history[len(history)-max:]
	}
	return history
}
