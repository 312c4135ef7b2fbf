package ecs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/l1jgo/detsim/internal/core/ecs"
)

type movement struct{}

func (movement) Execute(a *ecs.Archetype, c *ecs.Chunk) error {
	pi, _ := a.TryGetColumnIndex(positionID)
	vi, _ := a.TryGetColumnIndex(velocityID)
	pos := ecs.Column[position](c, pi)
	vel := ecs.Column[velocity](c, vi)
	for i := range c.Count() {
		pos[i].X += vel[i].X
		pos[i].Y += vel[i].Y
		pos[i].Z += vel[i].Z
	}
	return nil
}

func TestMovementScenario(t *testing.T) {
	w := newWorld(t, 0)
	e := mustCreate(t, w)
	mustAdd(t, w, e, position{})
	mustAdd(t, w, e, velocity{X: 1})

	q := w.QueryAll(positionID, velocityID)
	w.WarmupQuery(q)
	if err := w.ForEachChunk(q, movement{}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	p, _ := ecs.Get[position](w, e)
	if *p != (position{X: 1}) {
		t.Fatalf("expected {1 0 0}, got %+v", *p)
	}
}

func TestFilterAnyNone(t *testing.T) {
	w := newWorld(t, 0)
	spawn := func(vals ...any) {
		e := mustCreate(t, w)
		for _, v := range vals {
			var err error
			switch v := v.(type) {
			case position:
				err = ecs.Add(w, e, v)
			case velocity:
				err = ecs.Add(w, e, v)
			case health:
				err = ecs.Add(w, e, v)
			case frozen:
				err = ecs.Add(w, e, v)
			}
			if err != nil {
				t.Fatalf("add: %v", err)
			}
		}
	}
	spawn(position{})
	spawn(position{}, velocity{})
	spawn(position{}, health{})
	spawn(position{}, velocity{}, frozen{})
	spawn(health{})

	cases := []struct {
		name string
		f    ecs.Filter
		want int
	}{
		{"all", ecs.Filter{All: []ecs.ComponentTypeID{positionID}}, 4},
		{"none", ecs.Filter{All: []ecs.ComponentTypeID{positionID}, None: []ecs.ComponentTypeID{frozenID}}, 3},
		{"any", ecs.Filter{Any: []ecs.ComponentTypeID{velocityID, healthID}}, 4},
		{"all+any+none", ecs.Filter{
			All:  []ecs.ComponentTypeID{positionID},
			Any:  []ecs.ComponentTypeID{velocityID, healthID},
			None: []ecs.ComponentTypeID{frozenID},
		}, 2},
	}
	for _, tc := range cases {
		if got := w.NewQuery(tc.f).Count(); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestQuerySeesLaterArchetypes(t *testing.T) {
	w := newWorld(t, 0)
	q := w.QueryAll(healthID)
	w.WarmupQuery(q)
	if n := len(q.Archetypes()); n != 0 {
		t.Fatalf("expected no matches, got %d", n)
	}
	e := mustCreate(t, w)
	mustAdd(t, w, e, health{Current: 1})
	mustAdd(t, w, e, position{})
	if n := len(q.Archetypes()); n != 2 {
		t.Fatalf("expected 2 matching archetypes, got %d", n)
	}
	if q.Count() != 1 {
		t.Fatalf("expected 1 entity, got %d", q.Count())
	}
}

func TestForEachChunkOrderAndError(t *testing.T) {
	w := newWorld(t, 2)
	for i := 0; i < 5; i++ {
		e := mustCreate(t, w)
		mustAdd(t, w, e, health{Current: int32(i)})
	}
	for i := 0; i < 3; i++ {
		e := mustCreate(t, w)
		mustAdd(t, w, e, health{Current: int32(10 + i)})
		mustAdd(t, w, e, position{})
	}

	var order []int32
	q := w.QueryAll(healthID)
	err := w.ForEachChunk(q, ecs.ChunkProcessorFunc(func(a *ecs.Archetype, c *ecs.Chunk) error {
		idx, _ := a.TryGetColumnIndex(healthID)
		for _, h := range ecs.Column[health](c, idx)[:c.Count()] {
			order = append(order, h.Current)
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	want := []int32{0, 1, 2, 3, 4, 10, 11, 12}
	if len(order) != len(want) {
		t.Fatalf("visited %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("visit order %v, want %v", order, want)
		}
	}

	boom := errors.New("boom")
	calls := 0
	err = w.ForEachChunk(q, ecs.ChunkProcessorFunc(func(*ecs.Archetype, *ecs.Chunk) error {
		calls++
		return boom
	}))
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected first error to stop iteration, calls=%d err=%v", calls, err)
	}
}

func TestForEachChunkParallel(t *testing.T) {
	w := newWorld(t, 8)
	for i := 0; i < 100; i++ {
		e := mustCreate(t, w)
		mustAdd(t, w, e, position{})
		mustAdd(t, w, e, velocity{X: 2})
	}
	q := w.QueryAll(positionID, velocityID)
	var chunks atomic.Int32
	proc := ecs.ChunkProcessorFunc(func(a *ecs.Archetype, c *ecs.Chunk) error {
		chunks.Add(1)
		return movement{}.Execute(a, c)
	})
	if err := w.ForEachChunkParallel(context.Background(), q, 4, proc); err != nil {
		t.Fatalf("parallel: %v", err)
	}
	if chunks.Load() != 13 {
		t.Fatalf("expected 13 chunks, got %d", chunks.Load())
	}
	err := w.ForEachChunk(q, ecs.ChunkProcessorFunc(func(a *ecs.Archetype, c *ecs.Chunk) error {
		idx, _ := a.TryGetColumnIndex(positionID)
		for _, p := range ecs.Column[position](c, idx) {
			if p.X != 2 {
				t.Fatalf("entity not moved exactly once: %+v", p)
			}
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
}
