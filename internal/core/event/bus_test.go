package event_test

import (
	"testing"

	"github.com/l1jgo/detsim/internal/core/event"
)

type ping struct{ N int }
type pong struct{ N int }

func TestEventsVisibleNextTick(t *testing.T) {
	b := event.NewBus()
	q := event.Register[ping](b)
	q.Emit(ping{N: 1})
	if len(q.Events()) != 0 {
		t.Fatalf("event readable in the tick it was emitted")
	}
	if b.Pending() != 1 {
		t.Fatalf("expected 1 pending, got %d", b.Pending())
	}
	b.SwapBuffers()
	if evs := q.Events(); len(evs) != 1 || evs[0].N != 1 {
		t.Fatalf("unexpected events %v", evs)
	}
	b.SwapBuffers()
	if len(q.Events()) != 0 {
		t.Fatalf("events survived a second swap")
	}
}

func TestDispatchOrder(t *testing.T) {
	b := event.NewBus()
	var got []string
	event.Subscribe(b, func(e pong) { got = append(got, "pong") })
	event.Subscribe(b, func(e ping) { got = append(got, "ping-a") })
	event.Subscribe(b, func(e ping) { got = append(got, "ping-b") })

	event.Emit(b, ping{})
	event.Emit(b, pong{})
	b.SwapBuffers()
	b.DispatchAll()

	want := []string{"pong", "ping-a", "ping-b"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRegisterReturnsSameQueue(t *testing.T) {
	b := event.NewBus()
	if event.Register[ping](b) != event.Register[ping](b) {
		t.Fatalf("register created two queues for one type")
	}
}
