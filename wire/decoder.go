package wire

import (
	"fmt"
)

// Decoder handles low-level protobuf wire format decoding. A Decoder is a
// cursor owned by a single decode call; it is never shared.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a new wire format decoder
func NewDecoder(data []byte) *Decoder {
	return &Decoder{
		buf: data,
		pos: 0,
	}
}

// Done reports whether the whole buffer has been consumed.
func (d *Decoder) Done() bool {
	return d.pos >= len(d.buf)
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// Pos returns the current offset into the buffer.
func (d *Decoder) Pos() int {
	return d.pos
}

// DecodeTag reads a field tag and validates its components.
func (d *Decoder) DecodeTag() (FieldNumber, WireType, error) {
	tag, err := d.DecodeVarint()
	if err != nil {
		return 0, 0, err
	}
	if tag>>3 > uint64(MaxFieldNumber) {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidFieldNumber, tag>>3)
	}

	fieldNumber, wireType := ParseTag(Tag(tag))
	if fieldNumber < MinFieldNumber {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidFieldNumber, fieldNumber)
	}
	if wireType > WireFixed32 {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidWireType, wireType)
	}
	return fieldNumber, wireType, nil
}

// SkipField skips the payload of a field whose tag has already been read.
func (d *Decoder) SkipField(fieldNumber FieldNumber, wireType WireType) error {
	switch wireType {
	case WireVarint:
		return d.SkipVarint()
	case WireFixed64:
		if d.Remaining() < 8 {
			return fmt.Errorf("%w: not enough data to skip fixed64", ErrUnexpectedEOF)
		}
		d.pos += 8
		return nil
	case WireBytes:
		return d.SkipBytes()
	case WireFixed32:
		if d.Remaining() < 4 {
			return fmt.Errorf("%w: not enough data to skip fixed32", ErrUnexpectedEOF)
		}
		d.pos += 4
		return nil
	case WireStartGroup:
		return d.skipGroup(fieldNumber)
	default:
		return fmt.Errorf("%w: cannot skip wire type %d", ErrInvalidWireType, wireType)
	}
}

// skipGroup consumes fields until the end-group tag matching fieldNumber.
func (d *Decoder) skipGroup(fieldNumber FieldNumber) error {
	for {
		if d.Done() {
			return fmt.Errorf("%w: unterminated group %d", ErrUnexpectedEOF, fieldNumber)
		}
		num, wt, err := d.DecodeTag()
		if err != nil {
			return err
		}
		if wt == WireEndGroup {
			if num != fieldNumber {
				return fmt.Errorf("%w: end group %d does not match start group %d", ErrInvalidWireType, num, fieldNumber)
			}
			return nil
		}
		if err := d.SkipField(num, wt); err != nil {
			return err
		}
	}
}

// RawField is a field read without a schema.
type RawField struct {
	FieldNumber FieldNumber
	WireType    WireType
	Varint      uint64 // WireVarint, WireFixed32 and WireFixed64 payloads
	Bytes       []byte // WireBytes payload and skipped group bodies
}

// DecodeRawField decodes a single field from the current position without a
// schema. It returns nil when the buffer is exhausted.
func (d *Decoder) DecodeRawField() (*RawField, error) {
	if d.Done() {
		return nil, nil
	}

	fieldNumber, wireType, err := d.DecodeTag()
	if err != nil {
		return nil, err
	}

	field := &RawField{FieldNumber: fieldNumber, WireType: wireType}
	switch wireType {
	case WireVarint:
		field.Varint, err = d.DecodeVarint()
	case WireFixed64:
		field.Varint, err = d.DecodeFixed64()
	case WireFixed32:
		var v uint32
		v, err = d.DecodeFixed32()
		field.Varint = uint64(v)
	case WireBytes:
		field.Bytes, err = d.DecodeBytes()
	case WireStartGroup:
		start := d.pos
		err = d.skipGroup(fieldNumber)
		if err == nil {
			field.Bytes = append([]byte(nil), d.buf[start:d.pos]...)
		}
	default:
		err = fmt.Errorf("%w: unexpected %s", ErrInvalidWireType, wireType)
	}
	if err != nil {
		return nil, err
	}
	return field, nil
}
