package ecs_test

import (
	"testing"

	"github.com/l1jgo/detsim/internal/core/ecs"
)

type position struct{ X, Y, Z float64 }
type velocity struct{ X, Y, Z float64 }
type health struct{ Current, Max int32 }
type frozen struct{}
type unregistered struct{ N int32 }

var (
	positionID = ecs.MustRegisterComponent[position]()
	velocityID = ecs.MustRegisterComponent[velocity]()
	healthID   = ecs.MustRegisterComponent[health]()
	frozenID   = ecs.MustRegisterComponent[frozen]()
)

func newWorld(t *testing.T, capacity int) *ecs.World {
	t.Helper()
	return ecs.NewWorld(ecs.Config{ChunkCapacity: capacity}, nil)
}

func mustCreate(t *testing.T, w *ecs.World) ecs.Entity {
	t.Helper()
	e, err := w.CreateEntity()
	if err != nil {
		t.Fatalf("create entity: %v", err)
	}
	return e
}

func mustAdd[T any](t *testing.T, w *ecs.World, e ecs.Entity, v T) {
	t.Helper()
	if err := ecs.Add(w, e, v); err != nil {
		t.Fatalf("add %T to %v: %v", v, e, err)
	}
}

// checkStorage verifies that every live entity sits in exactly one chunk
// and that no chunk exceeds its capacity.
func checkStorage(t *testing.T, w *ecs.World) {
	t.Helper()
	seen := make(map[ecs.Entity]int)
	total := 0
	for _, a := range w.Archetypes() {
		n := 0
		for i, c := range a.Chunks() {
			if c.Count() > c.Capacity() {
				t.Fatalf("archetype %d chunk %d holds %d > %d", a.ID(), i, c.Count(), c.Capacity())
			}
			if i < len(a.Chunks())-1 && c.Count() != c.Capacity() {
				t.Fatalf("archetype %d non-tail chunk %d not full", a.ID(), i)
			}
			for _, e := range c.Entities() {
				seen[e]++
				got, err := w.ArchetypeOf(e)
				if err != nil || got != a {
					t.Fatalf("entity %v located in archetype %d but meta disagrees (%v)", e, a.ID(), err)
				}
			}
			n += c.Count()
		}
		if n != a.Len() {
			t.Fatalf("archetype %d Len %d, chunks hold %d", a.ID(), a.Len(), n)
		}
		total += n
	}
	for e, n := range seen {
		if n != 1 {
			t.Fatalf("entity %v stored %d times", e, n)
		}
	}
	if total != w.AliveCount() {
		t.Fatalf("storage holds %d entities, AliveCount %d", total, w.AliveCount())
	}
}
