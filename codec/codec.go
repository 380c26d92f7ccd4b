// Package codec encodes and decodes dynamic messages in the protocol
// buffers binary wire format, driven by their compiled descriptors.
//
// Encoding walks present fields in ascending field-number order. Decoding
// walks the buffer tag by tag; tags for unknown field numbers and tags whose
// wire type does not fit the field are skipped rather than rejected.
// Malformed input (bad varints, truncated fields, invalid wire types) is
// always a fatal error.
//
// Calls are synchronous and keep no reference to the caller's buffers.
// Encoding distinct messages concurrently is safe; decoding into one
// message from several goroutines is not.
package codec

import (
	"fmt"

	"github.com/vlsir/vlsirwire/dynamic"
	"github.com/vlsir/vlsirwire/schema"
	"github.com/vlsir/vlsirwire/wire"
)

// DefaultMaxDepth bounds message nesting when an option leaves MaxDepth unset.
const DefaultMaxDepth = 100

// maxSafeInteger is the largest integer a float64 represents exactly.
const maxSafeInteger = 1<<53 - 1

// MarshalOptions configures encoding.
type MarshalOptions struct {
	// MaxDepth bounds message nesting; zero means DefaultMaxDepth. It turns
	// a message that contains itself into an error instead of a stack
	// overflow.
	MaxDepth int
}

// UnmarshalOptions configures decoding.
type UnmarshalOptions struct {
	// SafeIntegers rejects 64-bit integer values outside ±(2^53-1) with
	// wire.ErrIntegerOverflow, for consumers that hand values to runtimes
	// whose numbers are IEEE doubles.
	SafeIntegers bool

	// MaxDepth bounds message nesting; zero means DefaultMaxDepth.
	MaxDepth int
}

func maxDepth(n int) int {
	if n <= 0 {
		return DefaultMaxDepth
	}
	return n
}

// Marshal encodes m with default options.
func Marshal(m *dynamic.Message) ([]byte, error) {
	return MarshalOptions{}.Marshal(m)
}

// Size returns the encoded size of m with default options.
func Size(m *dynamic.Message) int {
	return MarshalOptions{}.Size(m)
}

// Unmarshal resets m and decodes b into it with default options.
func Unmarshal(b []byte, m *dynamic.Message) error {
	return UnmarshalOptions{}.Unmarshal(b, m)
}

// Decode decodes b as a message of type desc with default options.
func Decode(b []byte, desc *schema.Message) (*dynamic.Message, error) {
	return UnmarshalOptions{}.Decode(b, desc)
}

// Marshal encodes m.
func (o MarshalOptions) Marshal(m *dynamic.Message) ([]byte, error) {
	if m == nil {
		return []byte{}, nil
	}
	e := wire.NewEncoderSize(o.Size(m))
	if err := o.marshalMessage(e, m, 0); err != nil {
		return nil, fmt.Errorf("failed to encode message %s: %w", m.Descriptor().Name, err)
	}
	return e.Bytes(), nil
}

// MarshalAppend appends the encoding of m to b.
func (o MarshalOptions) MarshalAppend(b []byte, m *dynamic.Message) ([]byte, error) {
	out, err := o.Marshal(m)
	if err != nil {
		return b, err
	}
	return append(b, out...), nil
}

// Size returns the number of bytes Marshal produces for m.
func (o MarshalOptions) Size(m *dynamic.Message) int {
	if m == nil {
		return 0
	}
	return o.sizeMessage(m, 0)
}

// Unmarshal resets m and decodes b into it.
func (o UnmarshalOptions) Unmarshal(b []byte, m *dynamic.Message) error {
	m.Reset()
	if err := o.unmarshalMessage(wire.NewDecoder(b), m, 0); err != nil {
		return fmt.Errorf("failed to decode message %s: %w", m.Descriptor().Name, err)
	}
	return nil
}

// Decode decodes b as a message of type desc.
func (o UnmarshalOptions) Decode(b []byte, desc *schema.Message) (*dynamic.Message, error) {
	m := dynamic.New(desc)
	if err := o.Unmarshal(b, m); err != nil {
		return nil, err
	}
	return m, nil
}
