package ecs

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Digest hashes every non-empty archetype in creation order: its type set,
// its entity handles and the raw bytes of each column. Peers simulating the
// same inputs produce the same digest, so comparing it per tick detects
// desyncs. Component types must be fixed-size.
func (w *World) Digest() ([32]byte, error) {
	var sum [32]byte
	h, err := blake2b.New256(nil)
	if err != nil {
		return sum, err
	}
	for _, a := range w.archetypes {
		if a.count == 0 {
			continue
		}
		header := make([]int32, 0, len(a.types)+2)
		header = append(header, int32(len(a.types)))
		for _, t := range a.types {
			header = append(header, int32(t))
		}
		header = append(header, int32(a.count))
		if err := binary.Write(h, binary.LittleEndian, header); err != nil {
			return sum, err
		}
		for _, c := range a.chunks {
			if err := binary.Write(h, binary.LittleEndian, c.entities); err != nil {
				return sum, err
			}
			for _, col := range c.columns {
				if err := col.encode(h); err != nil {
					return sum, fmt.Errorf("digest archetype %d: %w", a.id, err)
				}
			}
		}
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}
