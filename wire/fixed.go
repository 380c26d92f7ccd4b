package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DECODER METHODS

// DecodeFixed32 decodes a 32-bit fixed-width value
func (d *Decoder) DecodeFixed32() (uint32, error) {
	if d.Remaining() < 4 {
		return 0, fmt.Errorf("%w: need 4 bytes for fixed32, have %d", ErrUnexpectedEOF, d.Remaining())
	}

	value := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return value, nil
}

// DecodeFixed64 decodes a 64-bit fixed-width value
func (d *Decoder) DecodeFixed64() (uint64, error) {
	if d.Remaining() < 8 {
		return 0, fmt.Errorf("%w: need 8 bytes for fixed64, have %d", ErrUnexpectedEOF, d.Remaining())
	}

	value := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return value, nil
}

// DecodeFloat32 decodes a 32-bit float from fixed32 data
func (d *Decoder) DecodeFloat32() (float32, error) {
	v, err := d.DecodeFixed32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// DecodeFloat64 decodes a 64-bit float from fixed64 data
func (d *Decoder) DecodeFloat64() (float64, error) {
	v, err := d.DecodeFixed64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ENCODER METHODS

// EncodeFixed32 encodes a 32-bit fixed-width value
func (e *Encoder) EncodeFixed32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// EncodeFixed64 encodes a 64-bit fixed-width value
func (e *Encoder) EncodeFixed64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

// EncodeFloat32 encodes a 32-bit float as fixed32
func (e *Encoder) EncodeFloat32(v float32) {
	e.EncodeFixed32(math.Float32bits(v))
}

// EncodeFloat64 encodes a 64-bit float as fixed64
func (e *Encoder) EncodeFloat64(v float64) {
	e.EncodeFixed64(math.Float64bits(v))
}

// UTILITY FUNCTIONS

// Fixed32Size returns the size of a fixed32 value (always 4 bytes)
func Fixed32Size() int {
	return 4
}

// Fixed64Size returns the size of a fixed64 value (always 8 bytes)
func Fixed64Size() int {
	return 8
}
