// benchmark runs the movement system over a synthetic world and reports
// tick throughput.
//
// Profiling:
//
//	go run ./cmd/benchmark -entities 100000 -profile cpu
//	go tool pprof -http=":8000" cpu.pprof
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/l1jgo/detsim/internal/component"
	"github.com/l1jgo/detsim/internal/core/ecs"
	"github.com/l1jgo/detsim/internal/system"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	entities := flag.Int("entities", 10000, "entities with position and velocity")
	ticks := flag.Int("ticks", 1000, "ticks to run")
	capacity := flag.Int("chunk", 128, "chunk capacity")
	workers := flag.Int("workers", 1, "movement workers")
	mode := flag.String("profile", "", "cpu, mem or empty")
	flag.Parse()

	switch *mode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", *mode)
	}

	ids, err := component.Register()
	if err != nil {
		return err
	}
	w := ecs.NewWorld(ecs.Config{ChunkCapacity: *capacity, InitialEntities: *entities}, zap.NewNop())
	a, err := w.GetOrCreateArchetype(ids.Position, ids.Velocity)
	if err != nil {
		return err
	}
	for i := range *entities {
		e, err := w.CreateEntityIn(a)
		if err != nil {
			return err
		}
		if err := ecs.Set(w, e, component.Velocity{X: 1, Y: float64(i % 7), Z: -1}); err != nil {
			return err
		}
	}

	sched := w.CreateScheduler(ecs.SchedulerConfig{Playback: ecs.PlaybackPerTick})
	if err := sched.AddSystem(ecs.PhaseSimulation, system.NewMovementSystem(ids, *workers)); err != nil {
		return err
	}
	if err := sched.Create(); err != nil {
		return err
	}
	defer sched.Destroy()

	start := time.Now()
	for tick := range *ticks {
		if err := sched.Tick(uint64(tick)); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	sum, err := w.Digest()
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	p.Printf("entities   %d\n", *entities)
	p.Printf("chunks     %d x %d\n", len(a.Chunks()), *capacity)
	p.Printf("workers    %d\n", *workers)
	p.Printf("ticks      %d in %v\n", *ticks, elapsed.Round(time.Millisecond))
	if elapsed > 0 {
		p.Printf("ticks/sec  %.1f\n", float64(*ticks)/elapsed.Seconds())
		p.Printf("ent-ticks  %.0f/sec\n", float64(*ticks)*float64(*entities)/elapsed.Seconds())
	}
	fmt.Printf("digest     %s\n", hex.EncodeToString(sum[:]))
	return nil
}
