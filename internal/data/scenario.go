package data

import (
	"cmp"
	"fmt"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/detsim/internal/component"
	"github.com/l1jgo/detsim/internal/core/ecs"
)

// Vec3 is a YAML-friendly vector.
type Vec3 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

type HealthEntry struct {
	Current int32 `yaml:"current"`
	Max     int32 `yaml:"max"`
}

type SpawnerEntry struct {
	Interval      uint32  `yaml:"interval"`
	Burst         uint32  `yaml:"burst"`
	ChildLifetime int32   `yaml:"child_lifetime"`
	Speed         float64 `yaml:"speed"`
}

type SteeredEntry struct {
	Strength float64 `yaml:"strength"`
}

// EntityEntry describes Count entities with consecutive stable ids starting
// at ID. Omitted components are not attached.
type EntityEntry struct {
	ID       uint64        `yaml:"id"`
	Count    int           `yaml:"count,omitempty"`
	Position Vec3          `yaml:"position"`
	Spacing  *Vec3         `yaml:"spacing,omitempty"` // offset between copies
	Velocity *Vec3         `yaml:"velocity,omitempty"`
	Lifetime *int32        `yaml:"lifetime,omitempty"`
	Health   *HealthEntry  `yaml:"health,omitempty"`
	Spawner  *SpawnerEntry `yaml:"spawner,omitempty"`
	Steered  *SteeredEntry `yaml:"steered,omitempty"`
}

// Scenario is the initial world every peer builds before tick 0.
type Scenario struct {
	Name     string        `yaml:"name"`
	Seed     uint64        `yaml:"seed,omitempty"`
	Entities []EntityEntry `yaml:"entities"`
}

// LoadScenario loads a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(raw)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(raw []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// MaxEntities bounds the entities one scenario may spawn, per entry and in
// total.
const MaxEntities = 1 << 20

type idRange struct {
	first, last uint64
	entry       int
}

// Validate rejects overlapping stable id ranges, id ranges that wrap past
// the largest uint64, counts above MaxEntities, non-positive lifetimes and
// zero-interval spawners.
func (s *Scenario) Validate() error {
	ranges := make([]idRange, 0, len(s.Entities))
	total := 0
	for i, e := range s.Entities {
		if e.Count < 0 {
			return fmt.Errorf("scenario %q entry %d: negative count", s.Name, i)
		}
		if e.Count > MaxEntities {
			return fmt.Errorf("scenario %q entry %d: count %d exceeds %d", s.Name, i, e.Count, MaxEntities)
		}
		if total += e.count(); total > MaxEntities {
			return fmt.Errorf("scenario %q: more than %d entities", s.Name, MaxEntities)
		}
		if e.Lifetime != nil && *e.Lifetime <= 0 {
			return fmt.Errorf("scenario %q entry %d: lifetime must be positive, got %d", s.Name, i, *e.Lifetime)
		}
		if sp := e.Spawner; sp != nil {
			if sp.Interval == 0 {
				return fmt.Errorf("scenario %q entry %d: spawner interval must be positive", s.Name, i)
			}
			if sp.ChildLifetime < 0 {
				return fmt.Errorf("scenario %q entry %d: negative child_lifetime", s.Name, i)
			}
		}
		span := uint64(e.count() - 1)
		if e.ID > math.MaxUint64-span {
			return fmt.Errorf("scenario %q entry %d: stable ids overflow from %d", s.Name, i, e.ID)
		}
		ranges = append(ranges, idRange{first: e.ID, last: e.ID + span, entry: i})
	}

	slices.SortFunc(ranges, func(a, b idRange) int { return cmp.Compare(a.first, b.first) })
	for k := 1; k < len(ranges); k++ {
		prev, cur := ranges[k-1], ranges[k]
		if cur.first <= prev.last {
			a, b := min(prev.entry, cur.entry), max(prev.entry, cur.entry)
			return fmt.Errorf("scenario %q: stable id %d used by entries %d and %d", s.Name, cur.first, a, b)
		}
	}
	return nil
}

func (e *EntityEntry) count() int {
	if e.Count == 0 {
		return 1
	}
	return e.Count
}

// Total returns the number of entities the scenario spawns.
func (s *Scenario) Total() int {
	n := 0
	for i := range s.Entities {
		n += s.Entities[i].count()
	}
	return n
}

// Write encodes the scenario to path.
func (s *Scenario) Write(path string) error {
	out, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write scenario: %w", err)
	}
	return nil
}

// Spawn creates every scenario entity in w, each directly in its final
// archetype, in file order.
func (s *Scenario) Spawn(w *ecs.World, ids component.IDs) (int, error) {
	spawned := 0
	for i := range s.Entities {
		e := &s.Entities[i]
		types := []ecs.ComponentTypeID{ids.Position, ids.NetworkIdentity}
		if e.Velocity != nil {
			types = append(types, ids.Velocity)
		}
		if e.Lifetime != nil {
			types = append(types, ids.Lifetime)
		}
		if e.Health != nil {
			types = append(types, ids.Health)
		}
		if e.Spawner != nil {
			types = append(types, ids.Spawner)
		}
		if e.Steered != nil {
			types = append(types, ids.Steered)
		}
		arch, err := w.GetOrCreateArchetype(types...)
		if err != nil {
			return spawned, fmt.Errorf("scenario entry %d: %w", i, err)
		}
		for k := 0; k < e.count(); k++ {
			ent, err := w.CreateEntityIn(arch)
			if err != nil {
				return spawned, fmt.Errorf("scenario entry %d: %w", i, err)
			}
			if err := e.apply(w, ent, k); err != nil {
				return spawned, fmt.Errorf("scenario entry %d copy %d: %w", i, k, err)
			}
			spawned++
		}
	}
	return spawned, nil
}

func (e *EntityEntry) apply(w *ecs.World, ent ecs.Entity, k int) error {
	pos := component.Position{X: e.Position.X, Y: e.Position.Y, Z: e.Position.Z}
	if e.Spacing != nil {
		// Conversions force rounding before the add, so no platform fuses it.
		f := float64(k)
		pos.X += float64(e.Spacing.X * f)
		pos.Y += float64(e.Spacing.Y * f)
		pos.Z += float64(e.Spacing.Z * f)
	}
	if err := ecs.Set(w, ent, pos); err != nil {
		return err
	}
	if err := ecs.Set(w, ent, component.NetworkIdentity{StableID: e.ID + uint64(k)}); err != nil {
		return err
	}
	if v := e.Velocity; v != nil {
		if err := ecs.Set(w, ent, component.Velocity{X: v.X, Y: v.Y, Z: v.Z}); err != nil {
			return err
		}
	}
	if e.Lifetime != nil {
		if err := ecs.Set(w, ent, component.Lifetime{RemainingTicks: *e.Lifetime}); err != nil {
			return err
		}
	}
	if h := e.Health; h != nil {
		if err := ecs.Set(w, ent, component.Health{Current: h.Current, Max: h.Max}); err != nil {
			return err
		}
	}
	if sp := e.Spawner; sp != nil {
		if err := ecs.Set(w, ent, component.Spawner{
			Interval:      sp.Interval,
			Burst:         sp.Burst,
			ChildLifetime: sp.ChildLifetime,
			Speed:         sp.Speed,
		}); err != nil {
			return err
		}
	}
	if st := e.Steered; st != nil {
		if err := ecs.Set(w, ent, component.Steered{Strength: st.Strength}); err != nil {
			return err
		}
	}
	return nil
}
