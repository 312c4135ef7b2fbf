package system

import (
	"github.com/l1jgo/detsim/internal/core/ecs"
	"github.com/l1jgo/detsim/internal/core/event"
)

// EventSwapSystem makes last tick's events readable and dispatches them to
// subscribers. Phase 0 (Input); it must be the first system added.
type EventSwapSystem struct {
	bus *event.Bus
}

func NewEventSwapSystem(bus *event.Bus) *EventSwapSystem {
	return &EventSwapSystem{bus: bus}
}

func (s *EventSwapSystem) Name() string { return "event_swap" }

func (s *EventSwapSystem) OnCreate(*ecs.World) error { return nil }

func (s *EventSwapSystem) OnUpdate(*ecs.World, uint64) error {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
	return nil
}

func (s *EventSwapSystem) OnDestroy(*ecs.World) error { return nil }
