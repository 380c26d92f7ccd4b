package wire

import "fmt"

// maxVarintLen is the longest encoding of a 64-bit value.
const maxVarintLen = 10

// AppendVarint appends v to b in base-128 form.
func AppendVarint(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// ConsumeVarint parses a varint from the start of b and returns the value
// and the number of bytes read.
func ConsumeVarint(b []byte) (uint64, int, error) {
	var result uint64
	for i := 0; i < maxVarintLen; i++ {
		if i >= len(b) {
			return 0, 0, fmt.Errorf("%w while reading varint", ErrUnexpectedEOF)
		}
		c := b[i]
		if i == maxVarintLen-1 && c > 1 {
			// the 10th byte may only carry bit 63
			return 0, 0, fmt.Errorf("%w: value exceeds 64 bits", ErrMalformedVarint)
		}
		result |= uint64(c&0x7F) << (7 * uint(i))
		if c&0x80 == 0 {
			return result, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: no terminating byte within %d bytes", ErrMalformedVarint, maxVarintLen)
}

// DECODER METHODS

// DecodeVarint decodes a varint from the current position
func (d *Decoder) DecodeVarint() (uint64, error) {
	v, n, err := ConsumeVarint(d.buf[d.pos:])
	if err != nil {
		return 0, err
	}
	d.pos += n
	return v, nil
}

// SkipVarint skips over a varint without decoding it
func (d *Decoder) SkipVarint() error {
	_, err := d.DecodeVarint()
	return err
}

// ENCODER METHODS

// EncodeVarint encodes a uint64 as varint
func (e *Encoder) EncodeVarint(v uint64) {
	e.buf = AppendVarint(e.buf, v)
}

// EncodeInt32 encodes an int32 as a sign-extended varint. Negative values
// always take ten bytes.
func (e *Encoder) EncodeInt32(v int32) {
	e.EncodeVarint(uint64(int64(v)))
}

// EncodeInt64 encodes an int64 as varint
func (e *Encoder) EncodeInt64(v int64) {
	e.EncodeVarint(uint64(v))
}

// EncodeSint32 encodes a signed int32 with zigzag encoding
func (e *Encoder) EncodeSint32(v int32) {
	e.EncodeVarint(EncodeZigZag32(v))
}

// EncodeSint64 encodes a signed int64 with zigzag encoding
func (e *Encoder) EncodeSint64(v int64) {
	e.EncodeVarint(EncodeZigZag64(v))
}

// EncodeBool encodes a bool as varint
func (e *Encoder) EncodeBool(v bool) {
	if v {
		e.EncodeVarint(1)
	} else {
		e.EncodeVarint(0)
	}
}

// UTILITY FUNCTIONS

// DecodeZigZag32 decodes a zigzag-encoded 32-bit integer
func DecodeZigZag32(encoded uint64) int32 {
	return int32((uint32(encoded) >> 1) ^ uint32(-int32(encoded&1)))
}

// DecodeZigZag64 decodes a zigzag-encoded 64-bit integer
func DecodeZigZag64(encoded uint64) int64 {
	return int64((encoded >> 1) ^ uint64(-int64(encoded&1)))
}

// EncodeZigZag32 encodes a signed 32-bit integer using zigzag encoding
func EncodeZigZag32(v int32) uint64 {
	return uint64((uint32(v) << 1) ^ uint32(v>>31))
}

// EncodeZigZag64 encodes a signed 64-bit integer using zigzag encoding
func EncodeZigZag64(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// VarintSize returns the number of bytes needed to encode the given varint
func VarintSize(v uint64) int {
	switch {
	case v < 1<<7:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<21:
		return 3
	case v < 1<<28:
		return 4
	case v < 1<<35:
		return 5
	case v < 1<<42:
		return 6
	case v < 1<<49:
		return 7
	case v < 1<<56:
		return 8
	case v < 1<<63:
		return 9
	default:
		return 10
	}
}
