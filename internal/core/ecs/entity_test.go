package ecs_test

import (
	"errors"
	"testing"

	"github.com/l1jgo/detsim/internal/core/ecs"
)

func TestInvalidEntity(t *testing.T) {
	if ecs.InvalidEntity.Index != -1 || ecs.InvalidEntity.Version != 0 {
		t.Fatalf("unexpected sentinel %v", ecs.InvalidEntity)
	}
	if ecs.InvalidEntity.IsValid() {
		t.Fatalf("sentinel reported valid")
	}
	w := newWorld(t, 0)
	if w.IsAlive(ecs.InvalidEntity) {
		t.Fatalf("sentinel reported alive")
	}
}

func TestStaleHandleAfterReuse(t *testing.T) {
	w := newWorld(t, 0)
	e := mustCreate(t, w)
	if err := w.DestroyEntity(e); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	reused := mustCreate(t, w)
	if reused.Index != e.Index {
		t.Fatalf("expected index %d reused, got %d", e.Index, reused.Index)
	}
	if reused.Version != e.Version+1 {
		t.Fatalf("expected version %d, got %d", e.Version+1, reused.Version)
	}
	if w.IsAlive(e) {
		t.Fatalf("stale handle reported alive")
	}
	if _, err := w.ArchetypeOf(e); !errors.Is(err, ecs.ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
	if err := w.DestroyEntity(e); !errors.Is(err, ecs.ErrEntityNotFound) {
		t.Fatalf("destroying a stale handle: %v", err)
	}
	if !w.IsAlive(reused) {
		t.Fatalf("reused handle not alive")
	}
}

func TestAliveCount(t *testing.T) {
	w := newWorld(t, 0)
	var es []ecs.Entity
	for i := 0; i < 7; i++ {
		es = append(es, mustCreate(t, w))
	}
	for _, e := range es[:3] {
		if err := w.DestroyEntity(e); err != nil {
			t.Fatalf("destroy: %v", err)
		}
	}
	if got := w.AliveCount(); got != 4 {
		t.Fatalf("expected 4 alive, got %d", got)
	}
}
