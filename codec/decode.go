package codec

import (
	"fmt"

	"github.com/vlsir/vlsirwire/dynamic"
	"github.com/vlsir/vlsirwire/schema"
	"github.com/vlsir/vlsirwire/wire"
)

// unmarshalMessage decodes fields from d into m until d is exhausted or an
// end-group tag is read.
func (o UnmarshalOptions) unmarshalMessage(d *wire.Decoder, m *dynamic.Message, depth int) error {
	if depth > maxDepth(o.MaxDepth) {
		return fmt.Errorf("%w (%d)", wire.ErrRecursionLimit, maxDepth(o.MaxDepth))
	}
	desc := m.Descriptor()

	for !d.Done() {
		fieldNumber, wireType, err := d.DecodeTag()
		if err != nil {
			return err
		}
		if wireType == wire.WireEndGroup {
			return nil
		}

		fd := desc.FieldByNumber(int32(fieldNumber))
		if fd == nil || !fd.Accepts(wireType) {
			// Unknown field or a wire type the field cannot take - skip it
			if err := d.SkipField(fieldNumber, wireType); err != nil {
				return err
			}
			continue
		}

		if err := o.decodeField(d, m, fd, wireType, depth); err != nil {
			return wire.WrapField(err, fd.Name)
		}
	}
	return nil
}

func (o UnmarshalOptions) decodeField(d *wire.Decoder, m *dynamic.Message, fd *schema.Field, wireType wire.WireType, depth int) error {
	switch fd.Kind {
	case schema.KindScalar:
		v, err := o.decodeScalar(d, fd.Type)
		if err != nil {
			return err
		}
		return m.SetField(fd, v)

	case schema.KindMessage:
		sub, err := o.decodeMessageValue(d, fd.Message, depth)
		if err != nil {
			return err
		}
		// a later occurrence replaces the earlier one
		return m.SetField(fd, sub)

	case schema.KindOneofMember:
		var (
			v   any
			err error
		)
		if fd.Type == schema.TypeMessage {
			v, err = o.decodeMessageValue(d, fd.Message, depth)
		} else {
			v, err = o.decodeScalar(d, fd.Type)
		}
		if err != nil {
			return err
		}
		// last member on the wire wins and clears its siblings
		return m.SetField(fd, v)

	case schema.KindRepeatedScalar:
		l := m.ListField(fd)
		if wireType == wire.WireBytes && fd.Type.Packable() {
			run, err := d.DecodeRawBytes()
			if err != nil {
				return err
			}
			pd := wire.NewDecoder(run)
			for !pd.Done() {
				v, err := o.decodeScalar(pd, fd.Type)
				if err != nil {
					return err
				}
				if err := l.Append(v); err != nil {
					return err
				}
			}
			return nil
		}
		v, err := o.decodeScalar(d, fd.Type)
		if err != nil {
			return err
		}
		return l.Append(v)

	case schema.KindRepeatedMessage:
		sub, err := o.decodeMessageValue(d, fd.Message, depth)
		if err != nil {
			return err
		}
		return m.ListField(fd).Append(sub)

	case schema.KindMap:
		key, value, err := o.decodeMapEntry(d, fd, depth)
		if err != nil {
			return err
		}
		// later entries overwrite earlier ones with the same key
		return m.MapField(fd).Set(key, value)

	default:
		return fmt.Errorf("%w: field kind %s", wire.ErrInvalidWireType, fd.Kind)
	}
}

// decodeMessageValue decodes a length-delimited embedded message bounded to
// its declared length.
func (o UnmarshalOptions) decodeMessageValue(d *wire.Decoder, desc *schema.Message, depth int) (*dynamic.Message, error) {
	raw, err := d.DecodeRawBytes()
	if err != nil {
		return nil, err
	}
	sub := dynamic.New(desc)
	if err := o.unmarshalMessage(wire.NewDecoder(raw), sub, depth+1); err != nil {
		return nil, err
	}
	return sub, nil
}

// decodeMapEntry decodes one entry message. A missing key or value takes
// its default; a missing message value is an empty message.
func (o UnmarshalOptions) decodeMapEntry(d *wire.Decoder, fd *schema.Field, depth int) (any, any, error) {
	entry, err := o.decodeMessageValue(d, fd.Entry(), depth)
	if err != nil {
		return nil, nil, err
	}
	key := entry.GetByNumber(1)
	value := entry.GetByNumber(2)
	if fd.Type == schema.TypeMessage && value == nil {
		value = dynamic.New(fd.Message)
	}
	return key, value, nil
}
