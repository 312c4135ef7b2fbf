package ecs_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/l1jgo/detsim/internal/core/ecs"
)

func TestDeferredDestroyDuringIteration(t *testing.T) {
	w := newWorld(t, 4)
	for i := 0; i < 10; i++ {
		e := mustCreate(t, w)
		mustAdd(t, w, e, health{Current: int32(i)})
	}
	cb := w.CommandBuffer()
	q := w.QueryAll(healthID)
	err := w.ForEachChunk(q, ecs.ChunkProcessorFunc(func(a *ecs.Archetype, c *ecs.Chunk) error {
		idx, _ := a.TryGetColumnIndex(healthID)
		hs := ecs.Column[health](c, idx)
		for i, e := range c.Entities() {
			if hs[i].Current%2 == 0 {
				cb.DestroyEntity(e)
			}
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if w.AliveCount() != 10 {
		t.Fatalf("destroy applied before playback")
	}
	stats, err := cb.Playback(w)
	if err != nil {
		t.Fatalf("playback: %v", err)
	}
	if stats.Destroyed != 5 || w.AliveCount() != 5 || q.Count() != 5 {
		t.Fatalf("expected 5 alive, stats %+v alive %d", stats, w.AliveCount())
	}
	checkStorage(t, w)
	if cb.State() != ecs.BufferEmpty {
		t.Fatalf("buffer not cleared: %v", cb.State())
	}
}

func TestSortKeyReplayIgnoresInterleaving(t *testing.T) {
	run := func(order []int64) [32]byte {
		w := newWorld(t, 0)
		target := mustCreate(t, w)
		mustAdd(t, w, target, health{})
		cb := w.CommandBuffer()

		var wg sync.WaitGroup
		for _, key := range order {
			wg.Add(1)
			go func() {
				defer wg.Done()
				kw := cb.At(key)
				e := kw.CreateEntity()
				ecs.DeferAdd(kw, e, health{Current: int32(key)})
			}()
			wg.Wait()
		}
		if _, err := cb.Playback(w); err != nil {
			t.Fatalf("playback: %v", err)
		}
		d, err := w.Digest()
		if err != nil {
			t.Fatalf("digest: %v", err)
		}
		return d
	}

	want := run([]int64{5, 1, 3})
	for _, order := range [][]int64{{1, 3, 5}, {3, 5, 1}, {5, 3, 1}} {
		if got := run(order); got != want {
			t.Fatalf("submission order %v changed the outcome", order)
		}
	}
}

func TestSortKeyOrdersCreation(t *testing.T) {
	w := newWorld(t, 0)
	cb := w.CommandBuffer()
	handles := map[int64]ecs.Entity{}
	for _, key := range []int64{5, 1, 3} {
		kw := cb.At(key)
		handles[key] = kw.CreateEntity()
	}
	if _, err := cb.Playback(w); err != nil {
		t.Fatalf("playback: %v", err)
	}
	var got []int32
	for _, key := range []int64{1, 3, 5} {
		e, ok := cb.Resolve(handles[key])
		if !ok || !w.IsAlive(e) {
			t.Fatalf("key %d did not resolve", key)
		}
		got = append(got, e.Index)
	}
	if got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("creation not in sort-key order: %v", got)
	}
}

func TestConcurrentProducers(t *testing.T) {
	w := newWorld(t, 0)
	cb := w.CommandBuffer()
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kw := cb.At(int64(p))
			for i := 0; i < 50; i++ {
				e := kw.CreateEntity()
				ecs.DeferAdd(kw, e, position{X: float64(p)})
			}
		}()
	}
	wg.Wait()
	stats, err := cb.Playback(w)
	if err != nil {
		t.Fatalf("playback: %v", err)
	}
	if stats.Created != 400 || stats.Added != 400 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	checkStorage(t, w)
}

func TestTemporaryEntityReceivesComponents(t *testing.T) {
	w := newWorld(t, 0)
	cb := w.CommandBuffer()
	tmp := cb.CreateEntity()
	if !tmp.IsTemporary() {
		t.Fatalf("expected temporary handle, got %v", tmp)
	}
	ecs.DeferAdd(cb, tmp, position{X: 4})
	ecs.DeferAdd(cb, tmp, velocity{X: 1})
	ecs.DeferRemove[velocity](cb, tmp)
	if cb.State() != ecs.BufferRecording || cb.Len() != 4 {
		t.Fatalf("unexpected buffer %v/%d", cb.State(), cb.Len())
	}

	if _, err := cb.Playback(w); err != nil {
		t.Fatalf("playback: %v", err)
	}
	e, ok := cb.Resolve(tmp)
	if !ok {
		t.Fatalf("temporary handle not resolved")
	}
	if p, err := ecs.Get[position](w, e); err != nil || p.X != 4 {
		t.Fatalf("position not applied: %v", err)
	}
	if ecs.Has[velocity](w, e) {
		t.Fatalf("velocity should be removed")
	}
}

func TestTemporaryHandleExpiresAfterPlayback(t *testing.T) {
	w := newWorld(t, 0)
	cb := w.CommandBuffer()
	old := cb.CreateEntity()
	if _, err := cb.Playback(w); err != nil {
		t.Fatalf("playback: %v", err)
	}
	first, ok := cb.Resolve(old)
	if !ok {
		t.Fatalf("first batch handle did not resolve")
	}

	fresh := cb.CreateEntity()
	if fresh == old {
		t.Fatalf("second batch reused handle %v", old)
	}
	ecs.DeferAdd(cb, old, health{Current: 99})
	ecs.DeferRemove[health](cb, old)
	cb.DestroyEntity(old)
	stats, err := cb.Playback(w)
	if err != nil {
		t.Fatalf("playback: %v", err)
	}
	if stats.Created != 1 || stats.Skipped != 3 || stats.Added != 0 || stats.Destroyed != 0 {
		t.Fatalf("stale handle not skipped: %+v", stats)
	}

	second, ok := cb.Resolve(fresh)
	if !ok {
		t.Fatalf("second batch handle did not resolve")
	}
	if ecs.Has[health](w, second) || ecs.Has[health](w, first) {
		t.Fatalf("stale handle reached an entity")
	}
	if !w.IsAlive(first) || !w.IsAlive(second) || w.AliveCount() != 2 {
		t.Fatalf("expected both entities alive, got %d", w.AliveCount())
	}
	if _, ok := cb.Resolve(old); ok {
		t.Fatalf("handle from an earlier batch still resolves")
	}
}

func TestPlaybackSkipsInvalidTargets(t *testing.T) {
	w := newWorld(t, 0)
	e := mustCreate(t, w)
	mustAdd(t, w, e, health{Current: 1})
	stale := mustCreate(t, w)
	if err := w.DestroyEntity(stale); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	cb := w.CommandBuffer()
	ecs.DeferAdd(cb, e, health{Current: 2})
	ecs.DeferRemove[position](cb, e)
	ecs.DeferAdd(cb, stale, position{})
	cb.DestroyEntity(e)
	cb.DestroyEntity(e)

	stats, err := cb.Playback(w)
	if err != nil {
		t.Fatalf("playback: %v", err)
	}
	want := ecs.PlaybackStats{Destroyed: 1, Skipped: 4}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func TestPlaybackDestroyRunsAfterAdds(t *testing.T) {
	w := newWorld(t, 0)
	e := mustCreate(t, w)
	cb := w.CommandBuffer()
	cb.DestroyEntity(e)
	ecs.DeferAdd(cb, e, position{})

	stats, err := cb.Playback(w)
	if err != nil {
		t.Fatalf("playback: %v", err)
	}
	if stats.Added != 1 || stats.Destroyed != 1 || w.IsAlive(e) {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestPlaybackUnregisteredTypeFailsBatch(t *testing.T) {
	w := newWorld(t, 0)
	cb := w.CommandBuffer()
	cb.CreateEntity()
	ecs.DeferAdd(cb, mustCreate(t, w), unregistered{N: 1})

	_, err := cb.Playback(w)
	if !errors.Is(err, ecs.ErrComponentNotRegistered) {
		t.Fatalf("expected ErrComponentNotRegistered, got %v", err)
	}
	if w.AliveCount() != 1 {
		t.Fatalf("batch partially applied: %d alive", w.AliveCount())
	}
	if cb.Len() != 0 {
		t.Fatalf("failed batch left in buffer")
	}
}

func TestPlaybackDuringIterationRejected(t *testing.T) {
	w := newWorld(t, 0)
	mustAdd(t, w, mustCreate(t, w), position{})
	cb := w.CommandBuffer()
	cb.CreateEntity()
	err := w.ForEachChunk(w.QueryAll(positionID), ecs.ChunkProcessorFunc(func(*ecs.Archetype, *ecs.Chunk) error {
		_, err := cb.Playback(w)
		return err
	}))
	if !errors.Is(err, ecs.ErrStructuralChange) {
		t.Fatalf("expected ErrStructuralChange, got %v", err)
	}
	if cb.Len() != 1 {
		t.Fatalf("rejected playback consumed the batch")
	}
}
