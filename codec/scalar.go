package codec

import (
	"fmt"

	"github.com/vlsir/vlsirwire/schema"
	"github.com/vlsir/vlsirwire/wire"
)

// encodeScalar writes a canonical scalar value without its tag.
func encodeScalar(e *wire.Encoder, t schema.PrimitiveType, v any) {
	switch t {
	case schema.TypeInt32, schema.TypeEnum:
		e.EncodeInt32(v.(int32))
	case schema.TypeSint32:
		e.EncodeSint32(v.(int32))
	case schema.TypeSfixed32:
		e.EncodeFixed32(uint32(v.(int32)))
	case schema.TypeInt64:
		e.EncodeInt64(v.(int64))
	case schema.TypeSint64:
		e.EncodeSint64(v.(int64))
	case schema.TypeSfixed64:
		e.EncodeFixed64(uint64(v.(int64)))
	case schema.TypeUint32:
		e.EncodeVarint(uint64(v.(uint32)))
	case schema.TypeFixed32:
		e.EncodeFixed32(v.(uint32))
	case schema.TypeUint64:
		e.EncodeVarint(v.(uint64))
	case schema.TypeFixed64:
		e.EncodeFixed64(v.(uint64))
	case schema.TypeFloat:
		e.EncodeFloat32(v.(float32))
	case schema.TypeDouble:
		e.EncodeFloat64(v.(float64))
	case schema.TypeBool:
		e.EncodeBool(v.(bool))
	case schema.TypeString:
		e.EncodeString(v.(string))
	case schema.TypeBytes:
		e.EncodeBytes(v.([]byte))
	}
}

// scalarSize returns the size encodeScalar writes for v.
func scalarSize(t schema.PrimitiveType, v any) int {
	switch t {
	case schema.TypeInt32, schema.TypeEnum:
		return wire.VarintSize(uint64(int64(v.(int32))))
	case schema.TypeSint32:
		return wire.VarintSize(wire.EncodeZigZag32(v.(int32)))
	case schema.TypeInt64:
		return wire.VarintSize(uint64(v.(int64)))
	case schema.TypeSint64:
		return wire.VarintSize(wire.EncodeZigZag64(v.(int64)))
	case schema.TypeUint32:
		return wire.VarintSize(uint64(v.(uint32)))
	case schema.TypeUint64:
		return wire.VarintSize(v.(uint64))
	case schema.TypeBool:
		return 1
	case schema.TypeSfixed32, schema.TypeFixed32, schema.TypeFloat:
		return wire.Fixed32Size()
	case schema.TypeSfixed64, schema.TypeFixed64, schema.TypeDouble:
		return wire.Fixed64Size()
	case schema.TypeString:
		return wire.StringSize(v.(string))
	case schema.TypeBytes:
		return wire.BytesSize(v.([]byte))
	default:
		return 0
	}
}

// decodeScalar reads one value of type t. The caller has already checked
// that the wire type matches.
func (o UnmarshalOptions) decodeScalar(d *wire.Decoder, t schema.PrimitiveType) (any, error) {
	switch t {
	case schema.TypeInt32, schema.TypeEnum:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		// 32-bit targets keep the low 32 bits, so sign-extended, 5-byte and
		// int64-written values all read back the same way.
		return int32(v), nil

	case schema.TypeSint32:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		return wire.DecodeZigZag32(v), nil

	case schema.TypeUint32:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		return uint32(v), nil

	case schema.TypeInt64:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		return o.checkInt64(int64(v))

	case schema.TypeSint64:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		return o.checkInt64(wire.DecodeZigZag64(v))

	case schema.TypeUint64:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		return o.checkUint64(v)

	case schema.TypeBool:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		return v != 0, nil

	case schema.TypeFixed32:
		return d.DecodeFixed32()

	case schema.TypeSfixed32:
		v, err := d.DecodeFixed32()
		if err != nil {
			return nil, err
		}
		return int32(v), nil

	case schema.TypeFloat:
		return d.DecodeFloat32()

	case schema.TypeFixed64:
		v, err := d.DecodeFixed64()
		if err != nil {
			return nil, err
		}
		return o.checkUint64(v)

	case schema.TypeSfixed64:
		v, err := d.DecodeFixed64()
		if err != nil {
			return nil, err
		}
		return o.checkInt64(int64(v))

	case schema.TypeDouble:
		return d.DecodeFloat64()

	case schema.TypeString:
		return d.DecodeString()

	case schema.TypeBytes:
		return d.DecodeBytes()

	default:
		return nil, fmt.Errorf("%w: no scalar decoding for type %q", wire.ErrInvalidWireType, t)
	}
}

func (o UnmarshalOptions) checkInt64(x int64) (any, error) {
	if o.SafeIntegers && (x > maxSafeInteger || x < -maxSafeInteger) {
		return nil, fmt.Errorf("%w: %d is outside the safe integer range", wire.ErrIntegerOverflow, x)
	}
	return x, nil
}

func (o UnmarshalOptions) checkUint64(x uint64) (any, error) {
	if o.SafeIntegers && x > maxSafeInteger {
		return nil, fmt.Errorf("%w: %d is outside the safe integer range", wire.ErrIntegerOverflow, x)
	}
	return x, nil
}
