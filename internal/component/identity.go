package component

// NetworkIdentity carries the id every peer agrees on for this entity.
// RNG streams and command sort keys derive from it, never from ecs.Entity.
type NetworkIdentity struct {
	StableID uint64
}
