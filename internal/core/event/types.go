package event

import "github.com/l1jgo/detsim/internal/core/ecs"

// Spawned is emitted when a spawner's deferred creation is queued. The
// child is identified by stable id only; its entity does not exist until
// playback.
type Spawned struct {
	StableID uint64
	Tick     uint64
}

// Expired is emitted when an entity's lifetime runs out.
type Expired struct {
	StableID uint64
	Entity   ecs.Entity
	Tick     uint64
}
