package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vlsir/vlsirwire/wire"
)

// ErrInvalidDescriptor is returned by Compile for descriptors that violate a
// construction-time invariant.
var ErrInvalidDescriptor = errors.New("invalid descriptor")

// Message represents a protobuf message definition. Fields and OneofGroups
// are filled in by the caller; Compile then validates and indexes them.
// After Compile the descriptor is read-only and may be shared by any number
// of goroutines.
type Message struct {
	Name        string     `json:"name"`         // "vlsir.circuit.Module"
	Fields      []*Field   `json:"fields"`       // message fields, excluding oneof members
	OneofGroups []*Oneof   `json:"oneof_groups"` // oneof groups and their members
	NestedTypes []*Message `json:"nested_types"` // nested messages
	NestedEnums []*Enum    `json:"nested_enums"` // nested enums
	MapEntry    bool       `json:"map_entry"`    // is this a map entry?

	state    compileState
	fields   []*Field // every field, oneof members included, ascending by number
	byNumber map[int32]*Field
	byName   map[string]*Field
}

type compileState int

const (
	notCompiled compileState = iota
	compiling
	compiled
)

// Field represents a message field
type Field struct {
	Name     string        `json:"name"`      // "signals"
	Number   int32         `json:"number"`    // 3
	Kind     FieldKind     `json:"kind"`      // scalar, message, repeated, oneof member, map
	Type     PrimitiveType `json:"type"`      // value type; the value type of a map
	TypeName string        `json:"type_name"` // message or enum type name before resolution
	Unpacked bool          `json:"unpacked"`  // [packed=false] on a packable repeated scalar
	MapKey   PrimitiveType `json:"map_key"`   // key type of a map field

	// Resolved descriptors, set by hand or by the registry.
	Message *Message `json:"-"`
	Enum    *Enum    `json:"-"`

	oneofIndex int
	entry      *Message
}

// WireType returns the wire type the field is written with.
func (f *Field) WireType() wire.WireType {
	switch f.Kind {
	case KindMessage, KindRepeatedMessage, KindMap:
		return wire.WireBytes
	case KindRepeatedScalar:
		if f.IsPacked() {
			return wire.WireBytes
		}
	}
	return f.Type.WireType()
}

// IsPacked reports whether a repeated scalar field is written as one LEN run.
func (f *Field) IsPacked() bool {
	return f.Kind == KindRepeatedScalar && f.Type.Packable() && !f.Unpacked
}

// IsList reports whether the field holds an ordered sequence.
func (f *Field) IsList() bool {
	return f.Kind == KindRepeatedScalar || f.Kind == KindRepeatedMessage
}

// IsMessage reports whether values of the field are embedded messages.
func (f *Field) IsMessage() bool {
	return f.Type == TypeMessage && f.Kind != KindMap
}

// HasPresence reports whether the field tracks presence explicitly.
func (f *Field) HasPresence() bool {
	return f.Kind == KindMessage || f.Kind == KindOneofMember
}

// Accepts reports whether a value framed with wt can be applied to the
// field. Anything else is treated as an unknown field.
func (f *Field) Accepts(wt wire.WireType) bool {
	switch f.Kind {
	case KindMessage, KindRepeatedMessage, KindMap:
		return wt == wire.WireBytes
	case KindRepeatedScalar:
		return wt == f.Type.WireType() || (wt == wire.WireBytes && f.Type.Packable())
	default:
		return wt == f.Type.WireType()
	}
}

// Default returns the value a singular field reads as when absent.
func (f *Field) Default() any {
	switch f.Kind {
	case KindScalar:
		return f.Type.Zero()
	case KindOneofMember:
		if f.Type == TypeMessage {
			return nil
		}
		return f.Type.Zero()
	default:
		return nil
	}
}

// OneofIndex returns the index of the field's group in the message's
// OneofGroups, or -1.
func (f *Field) OneofIndex() int {
	if f.Kind != KindOneofMember {
		return -1
	}
	return f.oneofIndex
}

// Entry returns the synthetic entry descriptor of a map field.
func (f *Field) Entry() *Message {
	return f.entry
}

// SortedFields returns every field in ascending field-number order.
func (m *Message) SortedFields() []*Field {
	return m.fields
}

// FieldByNumber returns the field with the given number, or nil.
func (m *Message) FieldByNumber(n int32) *Field {
	return m.byNumber[n]
}

// FieldByName returns the field with the given name, or nil.
func (m *Message) FieldByName(name string) *Field {
	return m.byName[name]
}

// Oneof returns the named group and its index, or nil and -1.
func (m *Message) Oneof(name string) (*Oneof, int) {
	for i, o := range m.OneofGroups {
		if o.Name == name {
			return o, i
		}
	}
	return nil, -1
}

// IsCompiled reports whether Compile has completed for m.
func (m *Message) IsCompiled() bool {
	return m.state == compiled
}

// Compile validates the descriptor and builds its field table. Message
// descriptors referenced by fields are compiled as well. Compile is
// idempotent but not safe for concurrent use; call it before sharing.
func (m *Message) Compile() error {
	if m.state != notCompiled {
		// compiled, or a reference cycle back into a message being compiled
		return nil
	}
	m.state = compiling
	if err := m.compile(); err != nil {
		m.state = notCompiled
		m.fields, m.byNumber, m.byName = nil, nil, nil
		return err
	}
	m.state = compiled
	return nil
}

func (m *Message) compile() error {
	all := make([]*Field, 0, len(m.Fields))
	byNumber := make(map[int32]*Field, len(m.Fields))
	byName := make(map[string]*Field, len(m.Fields))

	add := func(f *Field) error {
		if f.Name == "" {
			return m.invalid(f, "field has no name")
		}
		n := wire.FieldNumber(f.Number)
		if !n.IsValid() {
			return m.invalid(f, fmt.Sprintf("field number %d out of range", f.Number))
		}
		if n >= wire.FirstReservedNumber && n <= wire.LastReservedNumber {
			return m.invalid(f, fmt.Sprintf("field number %d is reserved", f.Number))
		}
		if other, ok := byNumber[f.Number]; ok {
			return m.invalid(f, fmt.Sprintf("field number %d already used by %s", f.Number, other.Name))
		}
		if _, ok := byName[f.Name]; ok {
			return m.invalid(f, "duplicate field name")
		}
		byNumber[f.Number] = f
		byName[f.Name] = f
		all = append(all, f)
		return nil
	}

	members := make(map[*Field]struct{})
	for i, o := range m.OneofGroups {
		if o.Name == "" {
			return fmt.Errorf("%w: message %s: oneof %d has no name", ErrInvalidDescriptor, m.Name, i)
		}
		for _, f := range o.Fields {
			switch f.Kind {
			case KindScalar, KindMessage, KindOneofMember:
			default:
				return m.invalid(f, fmt.Sprintf("oneof %s cannot hold a %s field", o.Name, f.Kind))
			}
			if f.Kind == KindMessage {
				f.Type = TypeMessage
			}
			f.Kind = KindOneofMember
			f.oneofIndex = i
			if err := m.checkValue(f); err != nil {
				return err
			}
			if err := add(f); err != nil {
				return err
			}
			members[f] = struct{}{}
		}
	}

	for _, f := range m.Fields {
		if _, ok := members[f]; ok {
			continue
		}
		if err := m.checkField(f); err != nil {
			return err
		}
		f.oneofIndex = -1
		if err := add(f); err != nil {
			return err
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Number < all[j].Number
	})
	m.fields, m.byNumber, m.byName = all, byNumber, byName

	for _, f := range all {
		if f.Type == TypeMessage && f.Message != nil {
			if err := f.Message.Compile(); err != nil {
				return fmt.Errorf("message %s field %s: %w", m.Name, f.Name, err)
			}
		}
		if f.Kind == KindMap {
			f.entry = newMapEntry(f)
			if err := f.entry.Compile(); err != nil {
				return fmt.Errorf("message %s field %s: %w", m.Name, f.Name, err)
			}
		}
	}
	return nil
}

func (m *Message) checkField(f *Field) error {
	switch f.Kind {
	case KindScalar:
		if f.Type == TypeMessage {
			return m.invalid(f, "message-typed field must be KindMessage")
		}
		return m.checkValue(f)
	case KindMessage, KindRepeatedMessage:
		if f.Type != "" && f.Type != TypeMessage {
			return m.invalid(f, fmt.Sprintf("%s field cannot have type %s", f.Kind, f.Type))
		}
		f.Type = TypeMessage
		return m.checkValue(f)
	case KindRepeatedScalar:
		if f.Type == TypeMessage {
			// messages have no packed form, so a repeated message is never a scalar run
			return fmt.Errorf("%w: %w: message %s field %s: repeated message must be KindRepeatedMessage",
				ErrInvalidDescriptor, wire.ErrInvalidWireType, m.Name, f.Name)
		}
		return m.checkValue(f)
	case KindMap:
		if !f.MapKey.ValidMapKey() {
			return m.invalid(f, fmt.Sprintf("invalid map key type %q", f.MapKey))
		}
		return m.checkValue(f)
	case KindOneofMember:
		return m.invalid(f, "oneof member is not declared in any oneof group")
	default:
		return m.invalid(f, fmt.Sprintf("unknown field kind %d", f.Kind))
	}
}

func (m *Message) checkValue(f *Field) error {
	switch {
	case f.Type == TypeMessage:
		if f.Message == nil {
			return m.invalid(f, fmt.Sprintf("message type %q is not resolved", f.TypeName))
		}
	case f.Type == TypeEnum:
	case f.Type.IsScalar():
	case f.Type == "":
		return m.invalid(f, "field has no type")
	default:
		return m.invalid(f, fmt.Sprintf("unknown type %q", f.Type))
	}
	return nil
}

func (m *Message) invalid(f *Field, reason string) error {
	return fmt.Errorf("%w: message %s field %s: %s", ErrInvalidDescriptor, m.Name, f.Name, reason)
}

// newMapEntry builds the two-field message a map field is framed as.
func newMapEntry(f *Field) *Message {
	value := &Field{
		Name:     "value",
		Number:   2,
		Kind:     KindScalar,
		Type:     f.Type,
		TypeName: f.TypeName,
		Enum:     f.Enum,
	}
	if f.Type == TypeMessage {
		value.Kind = KindMessage
		value.Message = f.Message
	}
	return &Message{
		Name:     entryName(f.Name),
		MapEntry: true,
		Fields: []*Field{
			{Name: "key", Number: 1, Kind: KindScalar, Type: f.MapKey},
			value,
		},
	}
}

// entryName follows protoc: snake_case field "ic" becomes "IcEntry".
func entryName(fieldName string) string {
	var b strings.Builder
	upper := true
	for _, r := range fieldName {
		if r == '_' {
			upper = true
			continue
		}
		if upper && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		upper = false
		b.WriteRune(r)
	}
	b.WriteString("Entry")
	return b.String()
}
