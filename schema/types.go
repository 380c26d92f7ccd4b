package schema

import (
	"github.com/vlsir/vlsirwire/wire"
)

// ProtoFile represents a single .proto file
type ProtoFile struct {
	Name     string     `json:"name"`     // vlsir/circuit.proto
	Package  string     `json:"package"`  // package name
	Syntax   string     `json:"syntax"`   // proto2 or proto3
	Imports  []string   `json:"imports"`  // imported files
	Messages []*Message `json:"messages"` // message definitions
	Enums    []*Enum    `json:"enums"`    // enum definitions
}

// Oneof represents a oneof group
type Oneof struct {
	Name   string   `json:"name"`   // "stype"
	Fields []*Field `json:"fields"` // fields in this oneof
}

// OneofNotSet is the case returned for a oneof group with no active member.
const OneofNotSet int32 = 0

// FieldKind is the shape of a field: how many values it holds and how
// presence is tracked.
type FieldKind int

const (
	KindScalar          FieldKind = iota // implicit presence scalar or enum
	KindMessage                          // singular embedded message, explicit presence
	KindRepeatedScalar                   // packed by default when the type allows it
	KindRepeatedMessage                  // never packed
	KindOneofMember                      // explicit presence, exclusive within its group
	KindMap                              // repeated entry message, key=1 value=2
)

func (k FieldKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindMessage:
		return "message"
	case KindRepeatedScalar:
		return "repeated_scalar"
	case KindRepeatedMessage:
		return "repeated_message"
	case KindOneofMember:
		return "oneof_member"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// PrimitiveType represents protobuf value types
type PrimitiveType string

const (
	TypeDouble   PrimitiveType = "double"
	TypeFloat    PrimitiveType = "float"
	TypeInt64    PrimitiveType = "int64"
	TypeUint64   PrimitiveType = "uint64"
	TypeInt32    PrimitiveType = "int32"
	TypeFixed64  PrimitiveType = "fixed64"
	TypeFixed32  PrimitiveType = "fixed32"
	TypeBool     PrimitiveType = "bool"
	TypeString   PrimitiveType = "string"
	TypeBytes    PrimitiveType = "bytes"
	TypeUint32   PrimitiveType = "uint32"
	TypeSfixed32 PrimitiveType = "sfixed32"
	TypeSfixed64 PrimitiveType = "sfixed64"
	TypeSint32   PrimitiveType = "sint32"
	TypeSint64   PrimitiveType = "sint64"
	TypeEnum     PrimitiveType = "enum"
	TypeMessage  PrimitiveType = "message"
)

var packedEligible = map[PrimitiveType]struct{}{
	TypeDouble:   {},
	TypeFloat:    {},
	TypeInt64:    {},
	TypeUint64:   {},
	TypeInt32:    {},
	TypeFixed64:  {},
	TypeFixed32:  {},
	TypeBool:     {},
	TypeUint32:   {},
	TypeSfixed32: {},
	TypeSfixed64: {},
	TypeSint32:   {},
	TypeSint64:   {},
	TypeEnum:     {},
}

// IsPackedType checks and returns if the Primitive type is packed for repeated label
func IsPackedType(t PrimitiveType) bool {
	_, ok := packedEligible[t]
	return ok
}

// Packable reports whether repeated values of t may share one LEN run.
func (t PrimitiveType) Packable() bool {
	return IsPackedType(t)
}

// IsScalar reports whether t is a known non-message value type.
func (t PrimitiveType) IsScalar() bool {
	return t.Packable() || t == TypeString || t == TypeBytes
}

// ValidMapKey reports whether t may be used as a map key.
func (t PrimitiveType) ValidMapKey() bool {
	switch t {
	case TypeInt32, TypeInt64, TypeUint32, TypeUint64, TypeSint32, TypeSint64,
		TypeFixed32, TypeFixed64, TypeSfixed32, TypeSfixed64, TypeBool, TypeString:
		return true
	default:
		return false
	}
}

// WireType returns the wire type a single value of t is framed with.
func (t PrimitiveType) WireType() wire.WireType {
	switch t {
	case TypeString, TypeBytes, TypeMessage:
		return wire.WireBytes
	case TypeFloat, TypeFixed32, TypeSfixed32:
		return wire.WireFixed32
	case TypeDouble, TypeFixed64, TypeSfixed64:
		return wire.WireFixed64
	default:
		return wire.WireVarint
	}
}

// Zero returns the default value of t in its Go representation. Messages
// have no default value and return nil.
func (t PrimitiveType) Zero() any {
	switch t {
	case TypeDouble:
		return float64(0)
	case TypeFloat:
		return float32(0)
	case TypeInt32, TypeSint32, TypeSfixed32, TypeEnum:
		return int32(0)
	case TypeInt64, TypeSint64, TypeSfixed64:
		return int64(0)
	case TypeUint32, TypeFixed32:
		return uint32(0)
	case TypeUint64, TypeFixed64:
		return uint64(0)
	case TypeBool:
		return false
	case TypeString:
		return ""
	case TypeBytes:
		return []byte{}
	default:
		return nil
	}
}

// Enum represents an enum definition
type Enum struct {
	Name   string       `json:"name"`   // "vlsir.circuit.SpiceType"
	Values []*EnumValue `json:"values"` // enum values
}

// EnumValue represents an enum value
type EnumValue struct {
	Name   string `json:"name"`   // "RESISTOR"
	Number int32  `json:"number"` // 1
}

// ValueByNumber returns the first value declared with number n.
func (e *Enum) ValueByNumber(n int32) *EnumValue {
	for _, v := range e.Values {
		if v.Number == n {
			return v
		}
	}
	return nil
}

// ValueByName returns the value called name.
func (e *Enum) ValueByName(name string) *EnumValue {
	for _, v := range e.Values {
		if v.Name == name {
			return v
		}
	}
	return nil
}
