package wire

// Encoder handles low-level protobuf wire format encoding
type Encoder struct {
	buf []byte
}

// NewEncoder creates a new wire format encoder
func NewEncoder() *Encoder {
	return &Encoder{
		buf: make([]byte, 0),
	}
}

// NewEncoderSize creates an encoder whose buffer can hold size bytes
// without growing.
func NewEncoderSize(size int) *Encoder {
	return &Encoder{
		buf: make([]byte, 0, size),
	}
}

// Bytes returns the encoded bytes
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Reset clears the encoder buffer
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// EncodeTag writes the tag for the field number and wire type.
func (e *Encoder) EncodeTag(fieldNumber FieldNumber, wireType WireType) {
	e.EncodeVarint(uint64(MakeTag(fieldNumber, wireType)))
}

// EncodeRaw appends already-encoded bytes.
func (e *Encoder) EncodeRaw(b []byte) {
	e.buf = append(e.buf, b...)
}
