package wire

import (
	"fmt"
)

// DECODER METHODS

// DecodeRawBytes decodes a length-delimited payload without copying. The
// returned slice aliases the decoder's buffer and must not outlive the call
// that owns it.
func (d *Decoder) DecodeRawBytes() ([]byte, error) {
	length, err := d.DecodeVarint()
	if err != nil {
		return nil, fmt.Errorf("failed to decode bytes length: %w", err)
	}

	if length > uint64(d.Remaining()) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedLengthDelimited, length, d.Remaining())
	}

	data := d.buf[d.pos : d.pos+int(length)]
	d.pos += int(length)
	return data, nil
}

// DecodeBytes decodes a length-delimited byte array
func (d *Decoder) DecodeBytes() ([]byte, error) {
	raw, err := d.DecodeRawBytes()
	if err != nil {
		return nil, err
	}

	// Copy the data to avoid sharing the underlying buffer
	data := make([]byte, len(raw))
	copy(data, raw)
	return data, nil
}

// DecodeString decodes a length-delimited string
func (d *Decoder) DecodeString() (string, error) {
	raw, err := d.DecodeRawBytes()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SkipBytes skips over a length-delimited byte array
func (d *Decoder) SkipBytes() error {
	_, err := d.DecodeRawBytes()
	return err
}

// ENCODER METHODS

// EncodeBytes encodes a byte array as length-delimited
func (e *Encoder) EncodeBytes(data []byte) {
	e.EncodeVarint(uint64(len(data)))
	e.buf = append(e.buf, data...)
}

// EncodeString encodes a string as length-delimited bytes
func (e *Encoder) EncodeString(s string) {
	e.EncodeVarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// UTILITY FUNCTIONS

// BytesSize returns the size needed to encode the given bytes
func BytesSize(data []byte) int {
	return VarintSize(uint64(len(data))) + len(data)
}

// StringSize returns the size needed to encode the given string
func StringSize(s string) int {
	return VarintSize(uint64(len(s))) + len(s)
}

// LengthPrefixedSize returns the size of a length-delimited payload of n bytes.
func LengthPrefixedSize(n int) int {
	return VarintSize(uint64(n)) + n
}
