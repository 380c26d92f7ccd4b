package codec

import (
	"github.com/vlsir/vlsirwire/dynamic"
	"github.com/vlsir/vlsirwire/schema"
	"github.com/vlsir/vlsirwire/wire"
)

// sizeMessage mirrors marshalMessage without writing. Past the depth limit
// it stops descending, so a self-referencing message still terminates;
// marshalMessage reports the error.
func (o MarshalOptions) sizeMessage(m *dynamic.Message, depth int) int {
	if depth > maxDepth(o.MaxDepth) {
		return 0
	}
	n := 0
	for _, fd := range m.Descriptor().SortedFields() {
		v, ok := m.Lookup(fd)
		if !ok {
			continue
		}
		n += o.sizeField(fd, v, depth)
	}
	return n
}

func (o MarshalOptions) sizeField(fd *schema.Field, v any, depth int) int {
	num := wire.FieldNumber(fd.Number)
	tagSize := wire.TagSize(num)

	switch fd.Kind {
	case schema.KindScalar:
		return tagSize + scalarSize(fd.Type, v)

	case schema.KindMessage:
		return tagSize + wire.LengthPrefixedSize(o.sizeMessage(v.(*dynamic.Message), depth+1))

	case schema.KindOneofMember:
		if fd.Type == schema.TypeMessage {
			return tagSize + wire.LengthPrefixedSize(o.sizeMessage(v.(*dynamic.Message), depth+1))
		}
		return tagSize + scalarSize(fd.Type, v)

	case schema.KindRepeatedScalar:
		l := v.(*dynamic.List)
		payload := 0
		for i := 0; i < l.Len(); i++ {
			payload += scalarSize(fd.Type, l.Get(i))
		}
		if fd.IsPacked() {
			return tagSize + wire.LengthPrefixedSize(payload)
		}
		return tagSize*l.Len() + payload

	case schema.KindRepeatedMessage:
		l := v.(*dynamic.List)
		n := 0
		for i := 0; i < l.Len(); i++ {
			n += tagSize + wire.LengthPrefixedSize(o.sizeMessage(l.Get(i).(*dynamic.Message), depth+1))
		}
		return n

	case schema.KindMap:
		n := 0
		v.(*dynamic.Map).Range(func(key, value any) bool {
			n += tagSize + wire.LengthPrefixedSize(o.sizeMapEntry(fd, key, value, depth))
			return true
		})
		return n
	}
	return 0
}

func (o MarshalOptions) sizeMapEntry(fd *schema.Field, key, value any, depth int) int {
	n := 0
	if !isDefault(key) {
		n += wire.TagSize(1) + scalarSize(fd.MapKey, key)
	}
	if fd.Type == schema.TypeMessage {
		n += wire.TagSize(2) + wire.LengthPrefixedSize(o.sizeMessage(value.(*dynamic.Message), depth+2))
	} else if !isDefault(value) {
		n += wire.TagSize(2) + scalarSize(fd.Type, value)
	}
	return n
}
