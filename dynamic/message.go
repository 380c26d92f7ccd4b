// Package dynamic holds message instances built over schema descriptors.
//
// A Message owns its field storage exclusively. Concurrent reads of one
// instance are safe; any mutation, including decoding into it, needs
// exclusive access. Descriptors are shared read-only.
package dynamic

import (
	"errors"
	"fmt"

	"github.com/vlsir/vlsirwire/schema"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrTypeMismatch = errors.New("type mismatch")
)

// Message is a mapping from field descriptor to present-or-absent value.
type Message struct {
	desc   *schema.Message
	values map[int32]any
	oneofs []int32 // active field number per oneof group
}

// New returns an empty message of the given type. desc must be compiled.
func New(desc *schema.Message) *Message {
	return &Message{
		desc:   desc,
		values: make(map[int32]any),
		oneofs: make([]int32, len(desc.OneofGroups)),
	}
}

// Descriptor returns the message's descriptor.
func (m *Message) Descriptor() *schema.Message {
	return m.desc
}

// Reset clears every field.
func (m *Message) Reset() {
	clear(m.values)
	for i := range m.oneofs {
		m.oneofs[i] = schema.OneofNotSet
	}
}

func (m *Message) field(name string) (*schema.Field, error) {
	fd := m.desc.FieldByName(name)
	if fd == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, m.desc.Name, name)
	}
	return fd, nil
}

// Get returns the value of the named field, or its default when absent.
// Repeated and map fields return their *List and *Map.
func (m *Message) Get(name string) any {
	fd := m.desc.FieldByName(name)
	if fd == nil {
		return nil
	}
	return m.GetField(fd)
}

// GetByNumber is Get keyed by field number.
func (m *Message) GetByNumber(n int32) any {
	fd := m.desc.FieldByNumber(n)
	if fd == nil {
		return nil
	}
	return m.GetField(fd)
}

// GetField returns the value of fd, or its default when absent.
func (m *Message) GetField(fd *schema.Field) any {
	switch fd.Kind {
	case schema.KindRepeatedScalar, schema.KindRepeatedMessage:
		return m.ListField(fd)
	case schema.KindMap:
		return m.MapField(fd)
	}
	if v, ok := m.values[fd.Number]; ok {
		return v
	}
	return fd.Default()
}

// Lookup returns the value of fd and whether it is present for encoding.
func (m *Message) Lookup(fd *schema.Field) (any, bool) {
	v, ok := m.values[fd.Number]
	if !ok {
		return nil, false
	}
	switch c := v.(type) {
	case *List:
		return c, c.Len() > 0
	case *Map:
		return c, c.Len() > 0
	}
	return v, true
}

// Has reports presence. It is exact for messages and oneof members; a
// scalar is present when it differs from its default and a repeated or map
// field when it is non-empty.
func (m *Message) Has(name string) bool {
	fd := m.desc.FieldByName(name)
	if fd == nil {
		return false
	}
	_, ok := m.Lookup(fd)
	return ok
}

// Set assigns the named field. See SetField.
func (m *Message) Set(name string, v any) error {
	fd, err := m.field(name)
	if err != nil {
		return err
	}
	return m.SetField(fd, v)
}

// SetField assigns fd. A scalar set to its default becomes absent, nil
// clears a message or oneof member, and setting a oneof member clears the
// other members of its group.
func (m *Message) SetField(fd *schema.Field, v any) error {
	if m.desc.FieldByNumber(fd.Number) != fd {
		return fmt.Errorf("%w: %s is not a field of %s", ErrUnknownField, fd.Name, m.desc.Name)
	}

	switch fd.Kind {
	case schema.KindScalar:
		if v == nil {
			delete(m.values, fd.Number)
			return nil
		}
		cv, err := checkScalar(fd.Type, fd.Enum, v)
		if err != nil {
			return fieldErr(m.desc, fd, err)
		}
		if isZero(cv) {
			delete(m.values, fd.Number)
			return nil
		}
		m.values[fd.Number] = cv
		return nil

	case schema.KindMessage:
		if isNilMessage(v) {
			delete(m.values, fd.Number)
			return nil
		}
		mv, err := checkMessage(fd.Message, v)
		if err != nil {
			return fieldErr(m.desc, fd, err)
		}
		m.values[fd.Number] = mv
		return nil

	case schema.KindOneofMember:
		idx := fd.OneofIndex()
		if v == nil || (fd.Type == schema.TypeMessage && isNilMessage(v)) {
			if m.oneofs[idx] == fd.Number {
				delete(m.values, fd.Number)
				m.oneofs[idx] = schema.OneofNotSet
			}
			return nil
		}
		var (
			cv  any
			err error
		)
		if fd.Type == schema.TypeMessage {
			cv, err = checkMessage(fd.Message, v)
		} else {
			cv, err = checkScalar(fd.Type, fd.Enum, v)
		}
		if err != nil {
			return fieldErr(m.desc, fd, err)
		}
		if cur := m.oneofs[idx]; cur != schema.OneofNotSet && cur != fd.Number {
			delete(m.values, cur)
		}
		m.values[fd.Number] = cv
		m.oneofs[idx] = fd.Number
		return nil

	case schema.KindRepeatedScalar, schema.KindRepeatedMessage:
		l := newList(fd)
		switch src := v.(type) {
		case nil:
		case *List:
			if src.field != fd {
				return fieldErr(m.desc, fd, fmt.Errorf("%w: list belongs to field %s", ErrTypeMismatch, src.field.Name))
			}
			l.items = append(l.items, src.items...)
		case []any:
			for _, item := range src {
				if err := l.Append(item); err != nil {
					return fieldErr(m.desc, fd, err)
				}
			}
		default:
			return fieldErr(m.desc, fd, fmt.Errorf("%w: expected *List or []any, got %T", ErrTypeMismatch, v))
		}
		m.values[fd.Number] = l
		return nil

	case schema.KindMap:
		mp := newMap(fd)
		switch src := v.(type) {
		case nil:
		case *Map:
			if src.field != fd {
				return fieldErr(m.desc, fd, fmt.Errorf("%w: map belongs to field %s", ErrTypeMismatch, src.field.Name))
			}
			src.Range(func(k, val any) bool {
				mp.put(k, val)
				return true
			})
		default:
			return fieldErr(m.desc, fd, fmt.Errorf("%w: expected *Map, got %T", ErrTypeMismatch, v))
		}
		m.values[fd.Number] = mp
		return nil
	}
	return fieldErr(m.desc, fd, fmt.Errorf("unsupported field kind %s", fd.Kind))
}

// Clear makes the named field absent.
func (m *Message) Clear(name string) {
	fd := m.desc.FieldByName(name)
	if fd == nil {
		return
	}
	delete(m.values, fd.Number)
	if idx := fd.OneofIndex(); idx >= 0 && m.oneofs[idx] == fd.Number {
		m.oneofs[idx] = schema.OneofNotSet
	}
}

// WhichOneof returns the field number of the active member of the named
// group, or schema.OneofNotSet.
func (m *Message) WhichOneof(group string) int32 {
	_, idx := m.desc.Oneof(group)
	if idx < 0 {
		return schema.OneofNotSet
	}
	return m.oneofs[idx]
}

// WhichOneofField is WhichOneof returning the member's descriptor.
func (m *Message) WhichOneofField(group string) *schema.Field {
	n := m.WhichOneof(group)
	if n == schema.OneofNotSet {
		return nil
	}
	return m.desc.FieldByNumber(n)
}

// List returns the list stored in a repeated field, creating it if needed.
// It returns nil for fields that are not repeated.
func (m *Message) List(name string) *List {
	fd := m.desc.FieldByName(name)
	if fd == nil {
		return nil
	}
	return m.ListField(fd)
}

// ListField is List keyed by descriptor.
func (m *Message) ListField(fd *schema.Field) *List {
	if !fd.IsList() {
		return nil
	}
	if l, ok := m.values[fd.Number].(*List); ok {
		return l
	}
	l := newList(fd)
	m.values[fd.Number] = l
	return l
}

// Map returns the map stored in a map field, creating it if needed. It
// returns nil for fields that are not maps.
func (m *Message) Map(name string) *Map {
	fd := m.desc.FieldByName(name)
	if fd == nil {
		return nil
	}
	return m.MapField(fd)
}

// MapField is Map keyed by descriptor.
func (m *Message) MapField(fd *schema.Field) *Map {
	if fd.Kind != schema.KindMap {
		return nil
	}
	if mp, ok := m.values[fd.Number].(*Map); ok {
		return mp
	}
	mp := newMap(fd)
	m.values[fd.Number] = mp
	return mp
}

// NewMessageField returns an empty message of the type held by fd, for
// message fields, repeated message fields, message oneof members and maps
// with message values.
func (m *Message) NewMessageField(name string) (*Message, error) {
	fd, err := m.field(name)
	if err != nil {
		return nil, err
	}
	if fd.Type != schema.TypeMessage || fd.Message == nil {
		return nil, fieldErr(m.desc, fd, fmt.Errorf("%w: field does not hold messages", ErrTypeMismatch))
	}
	return New(fd.Message), nil
}

// Range calls f for every present field in ascending field-number order.
func (m *Message) Range(f func(fd *schema.Field, v any) bool) {
	for _, fd := range m.desc.SortedFields() {
		v, ok := m.Lookup(fd)
		if !ok {
			continue
		}
		if !f(fd, v) {
			return
		}
	}
}

// Interface returns a plain Go view of the present fields keyed by name.
// Messages become map[string]any, lists []any and maps map[any]any.
func (m *Message) Interface() map[string]any {
	out := make(map[string]any)
	m.Range(func(fd *schema.Field, v any) bool {
		out[fd.Name] = plain(v)
		return true
	})
	return out
}

func plain(v any) any {
	switch c := v.(type) {
	case *Message:
		return c.Interface()
	case *List:
		items := make([]any, c.Len())
		for i, item := range c.items {
			items[i] = plain(item)
		}
		return items
	case *Map:
		out := make(map[any]any, c.Len())
		c.Range(func(k, val any) bool {
			out[k] = plain(val)
			return true
		})
		return out
	default:
		return v
	}
}

func fieldErr(desc *schema.Message, fd *schema.Field, err error) error {
	return fmt.Errorf("%s.%s: %w", desc.Name, fd.Name, err)
}
