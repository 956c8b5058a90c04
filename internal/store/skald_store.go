package store

import (
	"context"
	"sort"
	"sync"

	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/consts"
	"github.com/JiHungLin/Skalds/internal/model"
)

// SkaldStore is the authoritative in-memory fleet view. The skald monitor is
// its only writer; dispatcher, reconciler, fanout and the API read snapshots.
type SkaldStore struct {
	*core.BaseComponent

	mu     sync.RWMutex
	skalds map[string]*model.Skald

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func(*model.Skald)
}

func NewSkaldStore() *SkaldStore {
	return &SkaldStore{
		BaseComponent: core.NewBaseComponent(consts.COMP_STORE_SKALD),
		skalds:        make(map[string]*model.Skald),
		subs:          make(map[int]func(*model.Skald)),
	}
}

func (s *SkaldStore) Stop(ctx context.Context) error {
	s.subMu.Lock()
	s.subs = make(map[int]func(*model.Skald))
	s.subMu.Unlock()
	return s.BaseComponent.Stop(ctx)
}

// Put replaces the record for skald.ID and notifies subscribers with a copy.
func (s *SkaldStore) Put(skald *model.Skald) {
	cp := copySkald(skald)
	s.mu.Lock()
	s.skalds[cp.ID] = cp
	s.mu.Unlock()
	s.notify(cp)
}

func (s *SkaldStore) Get(id string) (*model.Skald, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	skald, ok := s.skalds[id]
	if !ok {
		return nil, false
	}
	return copySkald(skald), true
}

func (s *SkaldStore) Delete(id string) {
	s.mu.Lock()
	delete(s.skalds, id)
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the whole fleet view.
func (s *SkaldStore) Snapshot() map[string]*model.Skald {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*model.Skald, len(s.skalds))
	for id, skald := range s.skalds {
		out[id] = copySkald(skald)
	}
	return out
}

// IDs returns all known skald ids sorted, for deterministic iteration.
func (s *SkaldStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.skalds))
	for id := range s.skalds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *SkaldStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.skalds)
}

func (s *SkaldStore) OnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, skald := range s.skalds {
		if skald.Status == model.SkaldOnline {
			n++
		}
	}
	return n
}

// Subscribe registers a callback fired on every record change. The returned
// function unsubscribes; a client disconnect must call it.
func (s *SkaldStore) Subscribe(fn func(*model.Skald)) func() {
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

func (s *SkaldStore) notify(skald *model.Skald) {
	s.subMu.Lock()
	fns := make([]func(*model.Skald), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(copySkald(skald))
	}
}

func copySkald(in *model.Skald) *model.Skald {
	out := *in
	out.HeartbeatHistory = append([]int(nil), in.HeartbeatHistory...)
	out.SupportedTaskTypes = append([]string(nil), in.SupportedTaskTypes...)
	out.CurrentTasks = append([]string(nil), in.CurrentTasks...)
	return &out
}
