package rng

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/google/uuid"
)

// NetworkContext is identical on every peer for a given simulation step.
type NetworkContext struct {
	MatchSeed    uint64
	Tick         uint32
	Phase        uint16
	ProtocolSalt uint16
}

// NetworkKey names what is being rolled. EntityStableID must be a
// network-stable id, never an ecs.Entity index: archetype moves and chunk
// compaction renumber indices differently on each peer.
type NetworkKey struct {
	StreamID       uint64
	EntityStableID uint64
	EventID        uint32
	RollIndex      uint32
}

// Create derives a generator from ctx and key alone. Each field is mixed
// independently, then folded pairwise; StreamID selects the PCG stream.
func Create(ctx NetworkContext, key NetworkKey) *PCG {
	a := Combine(Mix64(ctx.MatchSeed), Mix64(uint64(ctx.Tick)))
	b := Combine(Mix64(uint64(ctx.Phase)), Mix64(uint64(ctx.ProtocolSalt)))
	c := Combine(Mix64(key.StreamID), Mix64(key.EntityStableID))
	d := Combine(Mix64(uint64(key.EventID)), Mix64(uint64(key.RollIndex)))
	seed := Combine(Combine(a, b), Combine(c, d))
	return New(seed, key.StreamID|1)
}

// CreateForEntity derives a per-entity stream.
func CreateForEntity(ctx NetworkContext, streamName string, entityStableID uint64, eventID, rollIndex uint32) *PCG {
	return Create(ctx, NetworkKey{
		StreamID:       StreamIDFromName(streamName),
		EntityStableID: entityStableID,
		EventID:        eventID,
		RollIndex:      rollIndex,
	})
}

// CreateGlobal derives a stream not tied to any entity.
func CreateGlobal(ctx NetworkContext, streamName string, eventID, rollIndex uint32) *PCG {
	return CreateForEntity(ctx, streamName, 0, eventID, rollIndex)
}

// StreamIDFromName hashes name with FNV-1a 64. It is case-sensitive.
func StreamIDFromName(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

// MatchSeedFromUUID folds a match id into a 64-bit seed.
func MatchSeedFromUUID(id uuid.UUID) uint64 {
	hi := binary.LittleEndian.Uint64(id[0:8])
	lo := binary.LittleEndian.Uint64(id[8:16])
	return Combine(Mix64(hi), Mix64(lo))
}
