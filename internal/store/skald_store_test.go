package store

import (
	"testing"

	"github.com/JiHungLin/Skalds/internal/model"
)

func TestSkaldStorePutGetCopies(t *testing.T) {
	s := NewSkaldStore()
	in := &model.Skald{
		ID:           "s1",
		Kind:         model.KindNode,
		Status:       model.SkaldOnline,
		CurrentTasks: []string{"t1"},
	}
	s.Put(in)

	// Mutating the caller's record must not leak into the store.
	in.CurrentTasks[0] = "changed"
	got, ok := s.Get("s1")
	if !ok {
		t.Fatalf("expected record")
	}
	if got.CurrentTasks[0] != "t1" {
		t.Fatalf("store leaked caller mutation: %v", got.CurrentTasks)
	}

	// Mutating a read copy must not leak either.
	got.Status = model.SkaldOffline
	again, _ := s.Get("s1")
	if again.Status != model.SkaldOnline {
		t.Fatalf("store leaked reader mutation")
	}
}

func TestSkaldStoreSnapshotAndCounts(t *testing.T) {
	s := NewSkaldStore()
	s.Put(&model.Skald{ID: "a", Status: model.SkaldOnline})
	s.Put(&model.Skald{ID: "b", Status: model.SkaldOffline})
	s.Put(&model.Skald{ID: "c", Status: model.SkaldOnline})

	if s.Count() != 3 {
		t.Fatalf("count = %d, want 3", s.Count())
	}
	if s.OnlineCount() != 2 {
		t.Fatalf("online = %d, want 2", s.OnlineCount())
	}
	snap := s.Snapshot()
	delete(snap, "a")
	if s.Count() != 3 {
		t.Fatalf("snapshot deletion affected store")
	}

	ids := s.IDs()
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Fatalf("ids not sorted: %v", ids)
	}
}

func TestSkaldStoreSubscribe(t *testing.T) {
	s := NewSkaldStore()
	var seen []string
	unsub := s.Subscribe(func(sk *model.Skald) {
		seen = append(seen, sk.ID)
	})

	s.Put(&model.Skald{ID: "s1"})
	s.Put(&model.Skald{ID: "s2"})
	if len(seen) != 2 || seen[0] != "s1" || seen[1] != "s2" {
		t.Fatalf("subscriber saw %v", seen)
	}

	unsub()
	s.Put(&model.Skald{ID: "s3"})
	if len(seen) != 2 {
		t.Fatalf("unsubscribed callback still fired: %v", seen)
	}
}
