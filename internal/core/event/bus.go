package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted in tick N are readable
// in tick N+1. SwapBuffers() is called at tick start by the event swap
// system. Queues dispatch in registration order, so every peer delivers
// events in the same sequence.
type Bus struct {
	mu     sync.Mutex // only protects registration
	queues []queue
	byType map[reflect.Type]queue
}

type queue interface {
	swap()
	dispatch()
	pending() int
}

// Queue holds the buffers and handlers of one event type.
type Queue[T any] struct {
	front    []T
	back     []T
	handlers []func(T)
}

func NewBus() *Bus {
	return &Bus{byType: make(map[reflect.Type]queue)}
}

// Register returns the queue for T, creating it on first use. Systems
// resolve their queues in OnCreate and emit through them directly.
func Register[T any](b *Bus) *Queue[T] {
	t := reflect.TypeFor[T]()
	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.byType[t]; ok {
		return q.(*Queue[T])
	}
	q := &Queue[T]{}
	b.byType[t] = q
	b.queues = append(b.queues, q)
	return q
}

// Emit queues an event into the back buffer (will be readable next tick).
func Emit[T any](b *Bus, event T) {
	Register[T](b).Emit(event)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	Register[T](b).Subscribe(fn)
}

// Emit queues an event for next tick.
func (q *Queue[T]) Emit(event T) { q.back = append(q.back, event) }

// Subscribe adds a handler; handlers run in subscription order.
func (q *Queue[T]) Subscribe(fn func(T)) { q.handlers = append(q.handlers, fn) }

// Events returns the events readable this tick, in emission order.
func (q *Queue[T]) Events() []T { return q.front }

func (q *Queue[T]) swap() {
	clear(q.front)
	q.front, q.back = q.back, q.front[:0]
}

func (q *Queue[T]) dispatch() {
	for _, ev := range q.front {
		for _, h := range q.handlers {
			h(ev)
		}
	}
}

func (q *Queue[T]) pending() int { return len(q.back) }

// SwapBuffers rotates back→front and clears the new back buffer.
// Called once at tick start.
func (b *Bus) SwapBuffers() {
	for _, q := range b.queues {
		q.swap()
	}
}

// DispatchAll delivers all front-buffer events to their subscribed handlers.
func (b *Bus) DispatchAll() {
	for _, q := range b.queues {
		q.dispatch()
	}
}

// Pending counts events waiting for the next swap.
func (b *Bus) Pending() int {
	n := 0
	for _, q := range b.queues {
		n += q.pending()
	}
	return n
}
