// Package rng provides a splittable PCG generator whose streams are derived
// only from values every lockstep peer agrees on.
package rng

import (
	"encoding/binary"
	"math/bits"
)

const multiplier uint64 = 6364136223846793005

// Rng is the draw surface systems consume.
type Rng interface {
	NextUInt() uint32
	NextULong() uint64
	NextInt(max int) int
	NextIntRange(min, max int) int
	NextFloat01() float32
	NextDouble01() float64
	Chance(p float64) bool
	NextBool() bool
	NextBytes(buf []byte)
	Advance(delta uint64)
	State() State
}

// PCG is a PCG-XSH-RR generator: 64-bit LCG state, 32-bit permuted output.
type PCG struct {
	state uint64
	inc   uint64
}

var _ Rng = (*PCG)(nil)

// New seeds a generator. inc is a stream selector, not a raw LCG
// increment: its low bit is forced to 1, so inc values 2k and 2k+1 name the
// same stream. Use FromState to restore a raw state, which rejects an even
// increment with ErrEvenIncrement.
func New(seed, inc uint64) *PCG {
	p := &PCG{inc: inc | 1}
	p.step()
	p.state += seed
	p.step()
	return p
}

// FromState restores a generator exactly; s.Inc must be odd.
func FromState(s State) (*PCG, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &PCG{state: s.State, inc: s.Inc}, nil
}

// State returns the generator's current state for checkpoints.
func (p *PCG) State() State { return State{State: p.state, Inc: p.inc} }

func (p *PCG) step() { p.state = p.state*multiplier + p.inc }

// NextUInt advances one step and returns 32 permuted bits.
func (p *PCG) NextUInt() uint32 {
	old := p.state
	p.step()
	xorshifted := uint32(((old >> 18) ^ old) >> 27)
	rot := int(old >> 59)
	return bits.RotateLeft32(xorshifted, -rot)
}

// NextULong returns two draws, high word first.
func (p *PCG) NextULong() uint64 {
	hi := uint64(p.NextUInt())
	lo := uint64(p.NextUInt())
	return hi<<32 | lo
}

// bounded returns a uniform value in [0, bound) using Lemire's
// multiply-high method with rejection, so there is no modulo bias.
func (p *PCG) bounded(bound uint32) uint32 {
	m := uint64(p.NextUInt()) * uint64(bound)
	if low := uint32(m); low < bound {
		threshold := -bound % bound
		for low < threshold {
			m = uint64(p.NextUInt()) * uint64(bound)
			low = uint32(m)
		}
	}
	return uint32(m >> 32)
}

// bounded64 is bounded for spans wider than 32 bits.
func (p *PCG) bounded64(bound uint64) uint64 {
	hi, lo := bits.Mul64(p.NextULong(), bound)
	if lo < bound {
		threshold := -bound % bound
		for lo < threshold {
			hi, lo = bits.Mul64(p.NextULong(), bound)
		}
	}
	return hi
}

// NextInt returns a uniform int in [0, max). It panics if max <= 0.
func (p *PCG) NextInt(max int) int {
	if max <= 0 {
		panic("rng: invalid argument to NextInt")
	}
	return int(p.below(uint64(max)))
}

// NextIntRange returns a uniform int in [min, max). It panics if max <= min.
func (p *PCG) NextIntRange(min, max int) int {
	if max <= min {
		panic("rng: invalid argument to NextIntRange")
	}
	return min + int(p.below(uint64(max)-uint64(min)))
}

// below picks the 32-bit path when the span fits, so small bounds cost a
// single draw.
func (p *PCG) below(span uint64) uint64 {
	switch {
	case span < 1<<32:
		return uint64(p.bounded(uint32(span)))
	case span == 1<<32:
		return uint64(p.NextUInt())
	default:
		return p.bounded64(span)
	}
}

// NextFloat01 returns a float32 in [0, 1) built from the top 24 bits.
func (p *PCG) NextFloat01() float32 {
	return float32(p.NextUInt()>>8) * (1.0 / (1 << 24))
}

// NextDouble01 returns a float64 in [0, 1) built from 53 bits.
func (p *PCG) NextDouble01() float64 {
	return float64(p.NextULong()>>11) * (1.0 / (1 << 53))
}

// Chance reports true with probability prob. It always consumes one 64-bit
// draw so the stream position does not depend on prob.
func (p *PCG) Chance(prob float64) bool {
	return p.NextDouble01() < prob
}

// NextBool returns the top bit of one draw.
func (p *PCG) NextBool() bool {
	return p.NextUInt()>>31 == 1
}

// NextBytes fills buf, four bytes per draw in little-endian order.
func (p *PCG) NextBytes(buf []byte) {
	var word [4]byte
	for len(buf) >= 4 {
		binary.LittleEndian.PutUint32(buf, p.NextUInt())
		buf = buf[4:]
	}
	if len(buf) > 0 {
		binary.LittleEndian.PutUint32(word[:], p.NextUInt())
		copy(buf, word[:])
	}
}

// Advance skips delta steps in O(log delta) using the LCG jump-ahead
// identity. One NextUInt is one step; NextULong is two.
func (p *PCG) Advance(delta uint64) {
	accMult, accPlus := uint64(1), uint64(0)
	curMult, curPlus := multiplier, p.inc
	for delta > 0 {
		if delta&1 != 0 {
			accMult *= curMult
			accPlus = accPlus*curMult + curPlus
		}
		curPlus = (curMult + 1) * curPlus
		curMult *= curMult
		delta >>= 1
	}
	p.state = accMult*p.state + accPlus
}

// Split derives an independent generator from the current state and
// streamID. It does not advance p, so the result depends only on p's state
// and streamID, never on how many splits came before.
func (p *PCG) Split(streamID uint64) *PCG {
	seed := Combine(Mix64(p.state), Mix64(streamID))
	inc := Combine(Mix64(p.inc), Mix64(^streamID))
	return New(seed, inc)
}
