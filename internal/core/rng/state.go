package rng

import (
	"encoding/binary"

	"github.com/rotisserie/eris"
)

// StateSize is the encoded size of a State.
const StateSize = 16

var (
	ErrBufferTooSmall = eris.New("rng state buffer smaller than 16 bytes")
	ErrEvenIncrement  = eris.New("rng increment must be odd")
)

// State is a generator snapshot.
type State struct {
	State uint64
	Inc   uint64
}

// Validate rejects an even increment.
func (s State) Validate() error {
	if s.Inc&1 == 0 {
		return eris.Wrapf(ErrEvenIncrement, "inc=%#x", s.Inc)
	}
	return nil
}

// WriteLittleEndian encodes s into the first 16 bytes of buf.
func (s State) WriteLittleEndian(buf []byte) error {
	if len(buf) < StateSize {
		return eris.Wrapf(ErrBufferTooSmall, "got %d bytes", len(buf))
	}
	binary.LittleEndian.PutUint64(buf[0:8], s.State)
	binary.LittleEndian.PutUint64(buf[8:16], s.Inc)
	return nil
}

// ReadLittleEndian decodes a State from the first 16 bytes of buf.
func ReadLittleEndian(buf []byte) (State, error) {
	if len(buf) < StateSize {
		return State{}, eris.Wrapf(ErrBufferTooSmall, "got %d bytes", len(buf))
	}
	s := State{
		State: binary.LittleEndian.Uint64(buf[0:8]),
		Inc:   binary.LittleEndian.Uint64(buf[8:16]),
	}
	if err := s.Validate(); err != nil {
		return State{}, err
	}
	return s, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *PCG) MarshalBinary() ([]byte, error) {
	buf := make([]byte, StateSize)
	if err := p.State().WriteLittleEndian(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *PCG) UnmarshalBinary(data []byte) error {
	s, err := ReadLittleEndian(data)
	if err != nil {
		return err
	}
	p.state, p.inc = s.State, s.Inc
	return nil
}
