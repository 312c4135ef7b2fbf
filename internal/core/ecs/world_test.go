package ecs_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/l1jgo/detsim/internal/core/ecs"
)

func TestRegisterComponentIdempotent(t *testing.T) {
	id, err := ecs.RegisterComponent[position]()
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id != positionID {
		t.Fatalf("expected id %d, got %d", positionID, id)
	}
	if _, err := ecs.GetComponentTypeID[unregistered](); !errors.Is(err, ecs.ErrComponentNotRegistered) {
		t.Fatalf("expected ErrComponentNotRegistered, got %v", err)
	}
}

func TestAddGetSetRemove(t *testing.T) {
	w := newWorld(t, 0)
	e := mustCreate(t, w)
	mustAdd(t, w, e, position{X: 1, Y: 2, Z: 3})
	mustAdd(t, w, e, velocity{X: 4})

	p, err := ecs.Get[position](w, e)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if *p != (position{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("position lost across archetype move: %+v", *p)
	}
	if err := ecs.Set(w, e, velocity{X: 9}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := ecs.Get[velocity](w, e); v.X != 9 {
		t.Fatalf("set not applied: %+v", *v)
	}

	if err := ecs.Remove[position](w, e); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ecs.Has[position](w, e) {
		t.Fatalf("position still present")
	}
	if v, _ := ecs.Get[velocity](w, e); v.X != 9 {
		t.Fatalf("velocity lost on remove: %+v", *v)
	}
	if _, err := ecs.Get[position](w, e); !errors.Is(err, ecs.ErrComponentMissing) {
		t.Fatalf("expected ErrComponentMissing, got %v", err)
	}
}

func TestDuplicateAddAndMissingRemoveFail(t *testing.T) {
	w := newWorld(t, 0)
	e := mustCreate(t, w)
	mustAdd(t, w, e, health{Current: 5, Max: 5})

	if err := ecs.Add(w, e, health{Current: 1}); !errors.Is(err, ecs.ErrComponentExists) {
		t.Fatalf("expected ErrComponentExists, got %v", err)
	}
	if h, _ := ecs.Get[health](w, e); h.Current != 5 {
		t.Fatalf("failed add overwrote value: %+v", *h)
	}
	if err := ecs.Remove[velocity](w, e); !errors.Is(err, ecs.ErrComponentMissing) {
		t.Fatalf("expected ErrComponentMissing, got %v", err)
	}
	if err := ecs.Add(w, e, unregistered{}); !errors.Is(err, ecs.ErrComponentNotRegistered) {
		t.Fatalf("expected ErrComponentNotRegistered, got %v", err)
	}
}

func TestArchetypeMatchesLiveComponentSet(t *testing.T) {
	w := newWorld(t, 4)
	var es []ecs.Entity
	for i := 0; i < 10; i++ {
		es = append(es, mustCreate(t, w))
	}

	steps := []struct {
		add bool
		id  ecs.ComponentTypeID
	}{
		{true, positionID}, {true, velocityID}, {true, healthID},
		{false, velocityID}, {true, frozenID}, {false, positionID},
		{true, velocityID}, {false, healthID}, {false, frozenID},
	}
	target := es[3]
	live := map[ecs.ComponentTypeID]bool{}
	for _, s := range steps {
		var err error
		switch {
		case s.add && s.id == positionID:
			err = ecs.Add(w, target, position{})
		case s.add && s.id == velocityID:
			err = ecs.Add(w, target, velocity{})
		case s.add && s.id == healthID:
			err = ecs.Add(w, target, health{})
		case s.add && s.id == frozenID:
			err = ecs.Add(w, target, frozen{})
		case s.id == positionID:
			err = ecs.Remove[position](w, target)
		case s.id == velocityID:
			err = ecs.Remove[velocity](w, target)
		case s.id == healthID:
			err = ecs.Remove[health](w, target)
		default:
			err = ecs.Remove[frozen](w, target)
		}
		if err != nil {
			t.Fatalf("step %+v: %v", s, err)
		}
		live[s.id] = s.add

		var want []ecs.ComponentTypeID
		for id, ok := range live {
			if ok {
				want = append(want, id)
			}
		}
		slices.Sort(want)
		got, err := w.ComponentTypes(target)
		if err != nil {
			t.Fatalf("component types: %v", err)
		}
		if !slices.Equal(got, want) {
			t.Fatalf("after %+v: archetype %v, live %v", s, got, want)
		}
		checkStorage(t, w)
	}
}

func TestSwapRemoveKeepsData(t *testing.T) {
	w := newWorld(t, 4)
	var es []ecs.Entity
	for i := 0; i < 9; i++ {
		e := mustCreate(t, w)
		mustAdd(t, w, e, health{Current: int32(i), Max: 100})
		es = append(es, e)
	}
	for _, i := range []int{0, 4, 8, 2} {
		if err := w.DestroyEntity(es[i]); err != nil {
			t.Fatalf("destroy %d: %v", i, err)
		}
	}
	checkStorage(t, w)
	for i, e := range es {
		if i == 0 || i == 4 || i == 8 || i == 2 {
			continue
		}
		h, err := ecs.Get[health](w, e)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if h.Current != int32(i) {
			t.Fatalf("entity %d carries %d after swap-remove", i, h.Current)
		}
	}
}

func TestGetOrCreateArchetypeCanonical(t *testing.T) {
	w := newWorld(t, 0)
	a, err := w.GetOrCreateArchetype(velocityID, positionID, positionID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	b, err := w.GetOrCreateArchetype(positionID, velocityID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if a != b {
		t.Fatalf("same type set produced two archetypes")
	}
	if _, err := w.GetOrCreateArchetype(ecs.ComponentTypeID(ecs.MaxComponentTypes - 1)); !errors.Is(err, ecs.ErrComponentNotRegistered) {
		t.Fatalf("expected ErrComponentNotRegistered, got %v", err)
	}

	idx, ok := a.TryGetColumnIndex(velocityID)
	if !ok {
		t.Fatalf("velocity column missing")
	}
	e, err := w.CreateEntityIn(a)
	if err != nil {
		t.Fatalf("create in: %v", err)
	}
	ecs.Column[velocity](a.Chunks()[0], idx)[0].X = 3
	if v, _ := ecs.Get[velocity](w, e); v.X != 3 {
		t.Fatalf("column view does not alias storage")
	}
	if _, ok := a.TryGetColumnIndex(healthID); ok {
		t.Fatalf("unexpected health column")
	}
}

func TestMoveEntity(t *testing.T) {
	w := newWorld(t, 0)
	e := mustCreate(t, w)
	mustAdd(t, w, e, position{X: 7})
	mustAdd(t, w, e, health{Current: 3})

	dst, err := w.GetOrCreateArchetype(positionID, velocityID)
	if err != nil {
		t.Fatalf("archetype: %v", err)
	}
	if err := w.MoveEntity(e, dst); err != nil {
		t.Fatalf("move: %v", err)
	}
	if p, _ := ecs.Get[position](w, e); p.X != 7 {
		t.Fatalf("shared column not copied")
	}
	if v, _ := ecs.Get[velocity](w, e); *v != (velocity{}) {
		t.Fatalf("new column not zeroed")
	}
	if ecs.Has[health](w, e) {
		t.Fatalf("dropped column still reachable")
	}
	checkStorage(t, w)
}

func TestForeignArchetypeRejected(t *testing.T) {
	a := newWorld(t, 0)
	b := newWorld(t, 0)
	foreign, err := b.GetOrCreateArchetype(positionID)
	if err != nil {
		t.Fatalf("archetype: %v", err)
	}

	if _, err := a.CreateEntityIn(foreign); !errors.Is(err, ecs.ErrForeignArchetype) {
		t.Fatalf("expected ErrForeignArchetype, got %v", err)
	}
	if _, err := a.CreateEntityIn(nil); !errors.Is(err, ecs.ErrForeignArchetype) {
		t.Fatalf("nil archetype: expected ErrForeignArchetype, got %v", err)
	}

	e := mustCreate(t, a)
	if err := a.MoveEntity(e, foreign); !errors.Is(err, ecs.ErrForeignArchetype) {
		t.Fatalf("expected ErrForeignArchetype on move, got %v", err)
	}
	if foreign.Len() != 0 || b.AliveCount() != 0 || a.AliveCount() != 1 {
		t.Fatalf("foreign storage touched: len=%d b=%d a=%d", foreign.Len(), b.AliveCount(), a.AliveCount())
	}
	checkStorage(t, a)
	checkStorage(t, b)
}

func TestStructuralChangeDuringIterationRejected(t *testing.T) {
	w := newWorld(t, 0)
	e := mustCreate(t, w)
	mustAdd(t, w, e, position{})

	q := w.QueryAll(positionID)
	err := w.ForEachChunk(q, ecs.ChunkProcessorFunc(func(a *ecs.Archetype, c *ecs.Chunk) error {
		if _, err := w.CreateEntity(); !errors.Is(err, ecs.ErrStructuralChange) {
			t.Fatalf("expected ErrStructuralChange, got %v", err)
		}
		if err := ecs.Add(w, e, velocity{}); !errors.Is(err, ecs.ErrStructuralChange) {
			t.Fatalf("expected ErrStructuralChange, got %v", err)
		}
		return ecs.Set(w, e, position{X: 1})
	}))
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if _, err := w.CreateEntity(); err != nil {
		t.Fatalf("guard not released: %v", err)
	}
}

func TestDigestDeterministic(t *testing.T) {
	build := func() *ecs.World {
		w := newWorld(t, 3)
		for i := 0; i < 8; i++ {
			e := mustCreate(t, w)
			mustAdd(t, w, e, position{X: float64(i)})
			if i%2 == 0 {
				mustAdd(t, w, e, velocity{Y: 1})
			}
		}
		return w
	}
	a, b := build(), build()
	da, err := a.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	db, err := b.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if da != db {
		t.Fatalf("identical worlds hash differently")
	}

	e := a.Archetypes()[1].Chunks()[0].Entities()[0]
	if err := ecs.Set(a, e, position{X: 100}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if d, _ := a.Digest(); d == db {
		t.Fatalf("digest ignored component change")
	}
}
