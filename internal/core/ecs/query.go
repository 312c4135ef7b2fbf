package ecs

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Filter selects archetypes by component set. An archetype matches when it
// contains every All type, no None type, and at least one Any type if Any
// is non-empty.
type Filter struct {
	All  []ComponentTypeID
	Any  []ComponentTypeID
	None []ComponentTypeID
}

// Query is an immutable filter with a cached list of matching archetypes.
// The cache grows lazily as the world creates archetypes; match order is
// archetype creation order.
type Query struct {
	world   *World
	filter  Filter
	all     typeMask
	any     typeMask
	none    typeMask
	matches []*Archetype
	cursor  int
}

// NewQuery builds a query over f. Resolve it in a system's OnCreate.
func (w *World) NewQuery(f Filter) *Query {
	return &Query{
		world: w,
		filter: Filter{
			All:  append([]ComponentTypeID(nil), f.All...),
			Any:  append([]ComponentTypeID(nil), f.Any...),
			None: append([]ComponentTypeID(nil), f.None...),
		},
		all:  maskOf(f.All),
		any:  maskOf(f.Any),
		none: maskOf(f.None),
	}
}

// QueryAll builds a query requiring every id.
func (w *World) QueryAll(ids ...ComponentTypeID) *Query {
	return w.NewQuery(Filter{All: ids})
}

// WarmupQuery re-evaluates q against every existing archetype right away so
// the first iteration does no matching work.
func (w *World) WarmupQuery(q *Query) {
	q.matches = q.matches[:0]
	q.cursor = 0
	q.refresh()
}

// Filter returns a copy of the query's filter.
func (q *Query) Filter() Filter {
	return Filter{
		All:  append([]ComponentTypeID(nil), q.filter.All...),
		Any:  append([]ComponentTypeID(nil), q.filter.Any...),
		None: append([]ComponentTypeID(nil), q.filter.None...),
	}
}

func (q *Query) accepts(a *Archetype) bool {
	if !a.mask.containsAll(q.all) || a.mask.intersects(q.none) {
		return false
	}
	return q.any.isEmpty() || a.mask.intersects(q.any)
}

func (q *Query) refresh() {
	archetypes := q.world.archetypes
	for ; q.cursor < len(archetypes); q.cursor++ {
		if a := archetypes[q.cursor]; q.accepts(a) {
			q.matches = append(q.matches, a)
		}
	}
}

// Archetypes returns the matching archetypes, including empty ones.
func (q *Query) Archetypes() []*Archetype {
	q.refresh()
	return append([]*Archetype(nil), q.matches...)
}

// Count returns the number of entities currently matching.
func (q *Query) Count() int {
	q.refresh()
	n := 0
	for _, a := range q.matches {
		n += a.count
	}
	return n
}

// ChunkProcessor is invoked once per matching chunk. It may read and write
// component columns but must route structural changes through a
// CommandBuffer.
type ChunkProcessor interface {
	Execute(a *Archetype, c *Chunk) error
}

// ChunkProcessorFunc adapts a function to ChunkProcessor.
type ChunkProcessorFunc func(a *Archetype, c *Chunk) error

func (f ChunkProcessorFunc) Execute(a *Archetype, c *Chunk) error { return f(a, c) }

// ForEachChunk calls p for every chunk of every matching archetype, in
// archetype creation order then chunk order. The first error stops
// iteration and is returned.
func (w *World) ForEachChunk(q *Query, p ChunkProcessor) error {
	q.refresh()
	w.iterating.Add(1)
	defer w.iterating.Add(-1)
	for _, a := range q.matches {
		for _, c := range a.chunks {
			if err := p.Execute(a, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// ForEachChunkParallel runs p over matching chunks on up to workers
// goroutines. p must only touch the chunk it is given; structural changes
// go through a CommandBuffer with explicit sort keys.
func (w *World) ForEachChunkParallel(ctx context.Context, q *Query, workers int, p ChunkProcessor) error {
	q.refresh()
	w.iterating.Add(1)
	defer w.iterating.Add(-1)

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, a := range q.matches {
		for _, c := range a.chunks {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				return p.Execute(a, c)
			})
		}
	}
	return g.Wait()
}
