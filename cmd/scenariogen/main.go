// scenariogen writes a random scenario YAML file for detsim. The same seed
// always produces the same file.
//
// Usage:
//
//	go run ./cmd/scenariogen -seed 42 -groups 8 -out scenarios/gen.yaml
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/l1jgo/detsim/internal/core/rng"
	"github.com/l1jgo/detsim/internal/data"
)

// Stable id layout: spawners from 1, groups from 1000 in blocks of groupStride.
const (
	spawnerBase = 1
	groupBase   = 1000
	groupStride = 1000
)

func main() {
	seed := flag.Uint64("seed", 1, "generator seed")
	groups := flag.Int("groups", 8, "mover groups")
	maxGroup := flag.Int("max-group", 64, "largest mover group")
	spawners := flag.Int("spawners", 2, "spawner entities")
	outputPath := flag.String("out", "scenarios/generated.yaml", "output file")
	flag.Parse()

	if *maxGroup < 1 || *maxGroup > groupStride {
		fmt.Fprintf(os.Stderr, "error: -max-group must be in [1, %d]\n", groupStride)
		os.Exit(1)
	}

	s := generate(*seed, *groups, *maxGroup, *spawners)
	if err := s.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: generated scenario invalid: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(*outputPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output directory: %v\n", err)
		os.Exit(1)
	}
	if err := s.Write(*outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d entries (%d entities) to %s\n", len(s.Entities), s.Total(), *outputPath)
}

func generate(seed uint64, groups, maxGroup, spawners int) *data.Scenario {
	ctx := rng.NetworkContext{MatchSeed: seed}
	r := rng.CreateGlobal(ctx, "scenariogen", 0, 0)

	s := &data.Scenario{
		Name: fmt.Sprintf("generated-%d", seed),
		Seed: seed,
	}

	for i := range spawners {
		s.Entities = append(s.Entities, data.EntityEntry{
			ID:       uint64(spawnerBase + i),
			Position: quarterVec(r, 32),
			Spawner: &data.SpawnerEntry{
				Interval:      uint32(r.NextIntRange(10, 61)),
				Burst:         uint32(r.NextIntRange(1, 5)),
				ChildLifetime: int32(r.NextIntRange(60, 301)),
				Speed:         quarter(r, 1, 5),
			},
			Steered: &data.SteeredEntry{Strength: quarter(r, 0, 2)},
		})
	}

	for g := range groups {
		e := data.EntityEntry{
			ID:       uint64(groupBase + g*groupStride),
			Count:    r.NextIntRange(1, maxGroup+1),
			Position: quarterVec(r, 64),
			Spacing:  &data.Vec3{X: quarter(r, 1, 9)},
		}
		v := quarterVec(r, 4)
		e.Velocity = &v
		if r.Chance(0.5) {
			hp := int32(r.NextIntRange(50, 201))
			e.Health = &data.HealthEntry{Current: hp, Max: hp}
		}
		if r.Chance(0.25) {
			ttl := int32(r.NextIntRange(30, 601))
			e.Lifetime = &ttl
		}
		if r.Chance(0.5) {
			e.Steered = &data.SteeredEntry{Strength: quarter(r, 0, 2)}
		}
		s.Entities = append(s.Entities, e)
	}
	return s
}

// quarter returns a multiple of 0.25 in [lo, hi) so the YAML round-trips
// exactly.
func quarter(r rng.Rng, lo, hi int) float64 {
	return float64(r.NextIntRange(lo*4, hi*4)) / 4
}

func quarterVec(r rng.Rng, extent int) data.Vec3 {
	return data.Vec3{
		X: quarter(r, -extent, extent),
		Y: quarter(r, -extent, extent),
		Z: 0,
	}
}
