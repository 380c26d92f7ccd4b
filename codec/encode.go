package codec

import (
	"fmt"
	"math"

	"github.com/vlsir/vlsirwire/dynamic"
	"github.com/vlsir/vlsirwire/schema"
	"github.com/vlsir/vlsirwire/wire"
)

// marshalMessage writes the present fields of m in ascending field-number
// order.
func (o MarshalOptions) marshalMessage(e *wire.Encoder, m *dynamic.Message, depth int) error {
	if depth > maxDepth(o.MaxDepth) {
		return fmt.Errorf("%w (%d)", wire.ErrRecursionLimit, maxDepth(o.MaxDepth))
	}
	for _, fd := range m.Descriptor().SortedFields() {
		v, ok := m.Lookup(fd)
		if !ok {
			continue
		}
		if err := o.encodeField(e, fd, v, depth); err != nil {
			return wire.WrapField(err, fd.Name)
		}
	}
	return nil
}

func (o MarshalOptions) encodeField(e *wire.Encoder, fd *schema.Field, v any, depth int) error {
	num := wire.FieldNumber(fd.Number)

	switch fd.Kind {
	case schema.KindScalar:
		e.EncodeTag(num, fd.Type.WireType())
		encodeScalar(e, fd.Type, v)

	case schema.KindMessage:
		return o.encodeMessageValue(e, num, v.(*dynamic.Message), depth)

	case schema.KindOneofMember:
		if fd.Type == schema.TypeMessage {
			return o.encodeMessageValue(e, num, v.(*dynamic.Message), depth)
		}
		// explicit presence: the active member is written even when zero
		e.EncodeTag(num, fd.Type.WireType())
		encodeScalar(e, fd.Type, v)

	case schema.KindRepeatedScalar:
		l := v.(*dynamic.List)
		if fd.IsPacked() {
			size := 0
			for i := 0; i < l.Len(); i++ {
				size += scalarSize(fd.Type, l.Get(i))
			}
			e.EncodeTag(num, wire.WireBytes)
			e.EncodeVarint(uint64(size))
			for i := 0; i < l.Len(); i++ {
				encodeScalar(e, fd.Type, l.Get(i))
			}
			return nil
		}
		for i := 0; i < l.Len(); i++ {
			e.EncodeTag(num, fd.Type.WireType())
			encodeScalar(e, fd.Type, l.Get(i))
		}

	case schema.KindRepeatedMessage:
		l := v.(*dynamic.List)
		for i := 0; i < l.Len(); i++ {
			if err := o.encodeMessageValue(e, num, l.Get(i).(*dynamic.Message), depth); err != nil {
				return err
			}
		}

	case schema.KindMap:
		var err error
		v.(*dynamic.Map).Range(func(key, value any) bool {
			err = o.encodeMapEntry(e, fd, key, value, depth)
			return err == nil
		})
		return err

	default:
		return fmt.Errorf("unsupported field kind %s", fd.Kind)
	}
	return nil
}

// encodeMessageValue encodes sub into its own buffer, then frames it with
// the tag and its length.
func (o MarshalOptions) encodeMessageValue(e *wire.Encoder, num wire.FieldNumber, sub *dynamic.Message, depth int) error {
	inner := wire.NewEncoder()
	if err := o.marshalMessage(inner, sub, depth+1); err != nil {
		return err
	}
	e.EncodeTag(num, wire.WireBytes)
	e.EncodeBytes(inner.Bytes())
	return nil
}

// encodeMapEntry writes one map entry as an embedded message with the key
// in field 1 and the value in field 2. Zero scalars are omitted from the
// entry like any other implicit-presence field.
func (o MarshalOptions) encodeMapEntry(e *wire.Encoder, fd *schema.Field, key, value any, depth int) error {
	entry := wire.NewEncoder()
	if !isDefault(key) {
		entry.EncodeTag(1, fd.MapKey.WireType())
		encodeScalar(entry, fd.MapKey, key)
	}
	if fd.Type == schema.TypeMessage {
		if err := o.encodeMessageValue(entry, 2, value.(*dynamic.Message), depth+1); err != nil {
			return wire.WrapField(err, "value")
		}
	} else if !isDefault(value) {
		entry.EncodeTag(2, fd.Type.WireType())
		encodeScalar(entry, fd.Type, value)
	}
	e.EncodeTag(wire.FieldNumber(fd.Number), wire.WireBytes)
	e.EncodeBytes(entry.Bytes())
	return nil
}

// isDefault reports whether a canonical scalar equals its zero value.
func isDefault(v any) bool {
	switch x := v.(type) {
	case int32:
		return x == 0
	case int64:
		return x == 0
	case uint32:
		return x == 0
	case uint64:
		return x == 0
	case float32:
		return math.Float32bits(x) == 0
	case float64:
		return math.Float64bits(x) == 0
	case bool:
		return !x
	case string:
		return x == ""
	case []byte:
		return len(x) == 0
	default:
		return false
	}
}
