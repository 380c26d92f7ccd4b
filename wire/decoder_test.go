package wire

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestTagRoundTrip(t *testing.T) {
	tests := []struct {
		number   FieldNumber
		wireType WireType
		expected []byte
	}{
		{1, WireVarint, []byte{0x08}},
		{1, WireBytes, []byte{0x0A}},
		{2, WireBytes, []byte{0x12}},
		{15, WireFixed32, []byte{0x7D}},
		{16, WireVarint, []byte{0x80, 0x01}},
		{MaxFieldNumber, WireFixed64, []byte{0xF9, 0xFF, 0xFF, 0xFF, 0x0F}},
	}

	for _, tt := range tests {
		e := NewEncoder()
		e.EncodeTag(tt.number, tt.wireType)
		if !bytes.Equal(e.Bytes(), tt.expected) {
			t.Errorf("EncodeTag(%d, %s) = %x, want %x", tt.number, tt.wireType, e.Bytes(), tt.expected)
		}
		if TagSize(tt.number) != len(tt.expected) {
			t.Errorf("TagSize(%d) = %d, want %d", tt.number, TagSize(tt.number), len(tt.expected))
		}

		num, wt, err := NewDecoder(e.Bytes()).DecodeTag()
		if err != nil {
			t.Fatalf("DecodeTag(%x): %v", e.Bytes(), err)
		}
		if num != tt.number || wt != tt.wireType {
			t.Errorf("DecodeTag(%x) = %d, %s; want %d, %s", e.Bytes(), num, wt, tt.number, tt.wireType)
		}
	}
}

func TestDecodeTagErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{"field number zero", []byte{0x00}, ErrInvalidFieldNumber},
		{"wire type 6", []byte{0x0E}, ErrInvalidWireType},
		{"wire type 7", []byte{0x0F}, ErrInvalidWireType},
		{"field number too large", AppendVarint(nil, uint64(MaxFieldNumber+1)<<3), ErrInvalidFieldNumber},
		{"truncated tag", []byte{0x80}, ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewDecoder(tt.input).DecodeTag()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFixedRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.EncodeFixed32(0xDEADBEEF)
	e.EncodeFixed64(0x0102030405060708)
	e.EncodeFloat32(1.5)
	e.EncodeFloat64(math.Pi)
	e.EncodeFloat64(math.Inf(-1))

	if e.Len() != 4+8+4+8+8 {
		t.Fatalf("encoded %d bytes", e.Len())
	}
	// little-endian
	if !bytes.Equal(e.Bytes()[:4], []byte{0xEF, 0xBE, 0xAD, 0xDE}) {
		t.Errorf("fixed32 bytes = %x", e.Bytes()[:4])
	}

	d := NewDecoder(e.Bytes())
	if v, err := d.DecodeFixed32(); err != nil || v != 0xDEADBEEF {
		t.Errorf("DecodeFixed32 = %x, %v", v, err)
	}
	if v, err := d.DecodeFixed64(); err != nil || v != 0x0102030405060708 {
		t.Errorf("DecodeFixed64 = %x, %v", v, err)
	}
	if v, err := d.DecodeFloat32(); err != nil || v != 1.5 {
		t.Errorf("DecodeFloat32 = %v, %v", v, err)
	}
	if v, err := d.DecodeFloat64(); err != nil || v != math.Pi {
		t.Errorf("DecodeFloat64 = %v, %v", v, err)
	}
	if v, err := d.DecodeFloat64(); err != nil || !math.IsInf(v, -1) {
		t.Errorf("DecodeFloat64 = %v, %v", v, err)
	}
	if !d.Done() {
		t.Errorf("%d bytes left over", d.Remaining())
	}
}

func TestFixedTruncated(t *testing.T) {
	if _, err := NewDecoder([]byte{1, 2, 3}).DecodeFixed32(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("DecodeFixed32: expected ErrUnexpectedEOF, got %v", err)
	}
	if _, err := NewDecoder([]byte{1, 2, 3, 4, 5, 6, 7}).DecodeFixed64(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("DecodeFixed64: expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.EncodeString("m1")
	e.EncodeBytes([]byte{})
	e.EncodeBytes([]byte{0x00, 0xFF})

	if !bytes.Equal(e.Bytes(), []byte{0x02, 'm', '1', 0x00, 0x02, 0x00, 0xFF}) {
		t.Fatalf("encoded %x", e.Bytes())
	}

	d := NewDecoder(e.Bytes())
	if s, err := d.DecodeString(); err != nil || s != "m1" {
		t.Errorf("DecodeString = %q, %v", s, err)
	}
	if b, err := d.DecodeBytes(); err != nil || len(b) != 0 {
		t.Errorf("DecodeBytes = %x, %v", b, err)
	}
	b, err := d.DecodeBytes()
	if err != nil || !bytes.Equal(b, []byte{0x00, 0xFF}) {
		t.Errorf("DecodeBytes = %x, %v", b, err)
	}
}

func TestDecodeBytesCopies(t *testing.T) {
	buf := []byte{0x02, 'a', 'b'}
	b, err := NewDecoder(buf).DecodeBytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	buf[1] = 'z'
	if b[0] != 'a' {
		t.Error("DecodeBytes result aliases the input buffer")
	}
}

func TestTruncatedLengthDelimited(t *testing.T) {
	// declares 10 bytes, 3 remain
	d := NewDecoder([]byte{0x0A, 'a', 'b', 'c'})
	_, err := d.DecodeRawBytes()
	if !errors.Is(err, ErrTruncatedLengthDelimited) {
		t.Fatalf("expected ErrTruncatedLengthDelimited, got %v", err)
	}

	// the length prefix itself is cut short
	_, err = NewDecoder([]byte{0x80}).DecodeRawBytes()
	if !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestSkipField(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		consumed int
		wantErr  error
	}{
		{"varint", []byte{0x08, 0xAC, 0x02, 0xFF}, 3, nil},
		{"fixed64", []byte{0x09, 1, 2, 3, 4, 5, 6, 7, 8, 0xFF}, 9, nil},
		{"fixed32", []byte{0x0D, 1, 2, 3, 4, 0xFF}, 5, nil},
		{"bytes", []byte{0x0A, 0x02, 'h', 'i', 0xFF}, 4, nil},
		{"group", []byte{0x0B, 0x10, 0x05, 0x1A, 0x01, 'x', 0x0C, 0xFF}, 7, nil},
		{"nested group", []byte{0x0B, 0x13, 0x10, 0x01, 0x14, 0x0C, 0xFF}, 6, nil},
		{"truncated fixed64", []byte{0x09, 1, 2, 3}, 0, ErrUnexpectedEOF},
		{"truncated fixed32", []byte{0x0D, 1}, 0, ErrUnexpectedEOF},
		{"truncated bytes", []byte{0x0A, 0x05, 'h'}, 0, ErrTruncatedLengthDelimited},
		{"unterminated group", []byte{0x0B, 0x10, 0x05}, 0, ErrUnexpectedEOF},
		{"mismatched end group", []byte{0x0B, 0x14}, 0, ErrInvalidWireType},
		{"bare end group", []byte{0x0C}, 0, ErrInvalidWireType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(tt.input)
			num, wt, err := d.DecodeTag()
			if err != nil {
				t.Fatalf("DecodeTag: %v", err)
			}
			err = d.SkipField(num, wt)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Pos() != tt.consumed {
				t.Errorf("consumed %d bytes, want %d", d.Pos(), tt.consumed)
			}
		})
	}
}

func TestDecodeRawField(t *testing.T) {
	// name="m1" (1, LEN), widths [1, 300] packed (2, LEN), flag (3, varint), x (4, fixed32)
	input := []byte{
		0x0A, 0x02, 'm', '1',
		0x12, 0x03, 0x01, 0xAC, 0x02,
		0x18, 0x01,
		0x25, 0x00, 0x00, 0x80, 0x3F,
	}

	d := NewDecoder(input)
	var fields []*RawField
	for {
		f, err := d.DecodeRawField()
		if err != nil {
			t.Fatalf("DecodeRawField: %v", err)
		}
		if f == nil {
			break
		}
		fields = append(fields, f)
	}

	if len(fields) != 4 {
		t.Fatalf("decoded %d fields, want 4", len(fields))
	}
	if fields[0].FieldNumber != 1 || string(fields[0].Bytes) != "m1" {
		t.Errorf("field 0 = %+v", fields[0])
	}
	if fields[1].WireType != WireBytes || !bytes.Equal(fields[1].Bytes, []byte{0x01, 0xAC, 0x02}) {
		t.Errorf("field 1 = %+v", fields[1])
	}
	if fields[2].WireType != WireVarint || fields[2].Varint != 1 {
		t.Errorf("field 2 = %+v", fields[2])
	}
	if fields[3].WireType != WireFixed32 || math.Float32frombits(uint32(fields[3].Varint)) != 1.0 {
		t.Errorf("field 3 = %+v", fields[3])
	}
}
