package component

// Lifetime counts down once per tick; the entity is destroyed at zero.
type Lifetime struct {
	RemainingTicks int32
}

// Health is hit points. Spawned children roll their Max.
type Health struct {
	Current int32
	Max     int32
}

// Spawner emits Burst children every Interval ticks. Children live for
// ChildLifetime ticks; 0 means forever.
type Spawner struct {
	Interval      uint32
	Burst         uint32
	ChildLifetime int32
	Speed         float64
}
