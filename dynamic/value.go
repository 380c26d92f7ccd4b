package dynamic

import (
	"bytes"
	"fmt"
	"math"

	"github.com/vlsir/vlsirwire/schema"
)

// checkScalar validates v against t and returns it in canonical form.
// Enum fields accept an int32 or, when the enum is resolved, a value name.
func checkScalar(t schema.PrimitiveType, enum *schema.Enum, v any) (any, error) {
	ok := false
	switch t {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		_, ok = v.(int32)
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		_, ok = v.(int64)
	case schema.TypeUint32, schema.TypeFixed32:
		_, ok = v.(uint32)
	case schema.TypeUint64, schema.TypeFixed64:
		_, ok = v.(uint64)
	case schema.TypeFloat:
		_, ok = v.(float32)
	case schema.TypeDouble:
		_, ok = v.(float64)
	case schema.TypeBool:
		_, ok = v.(bool)
	case schema.TypeString:
		_, ok = v.(string)
	case schema.TypeBytes:
		if b, isBytes := v.([]byte); isBytes {
			if b == nil {
				return []byte{}, nil
			}
			return b, nil
		}
	case schema.TypeEnum:
		switch e := v.(type) {
		case int32:
			return e, nil
		case string:
			if enum == nil {
				return nil, fmt.Errorf("%w: enum value %q given for an unresolved enum", ErrTypeMismatch, e)
			}
			ev := enum.ValueByName(e)
			if ev == nil {
				return nil, fmt.Errorf("%w: %q is not a value of %s", ErrTypeMismatch, e, enum.Name)
			}
			return ev.Number, nil
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: expected %s, got %T", ErrTypeMismatch, t, v)
	}
	return v, nil
}

func checkMessage(desc *schema.Message, v any) (*Message, error) {
	mv, ok := v.(*Message)
	if !ok {
		return nil, fmt.Errorf("%w: expected *dynamic.Message, got %T", ErrTypeMismatch, v)
	}
	if mv.desc != desc {
		return nil, fmt.Errorf("%w: expected message %s, got %s", ErrTypeMismatch, desc.Name, mv.desc.Name)
	}
	return mv, nil
}

func isNilMessage(v any) bool {
	if v == nil {
		return true
	}
	mv, ok := v.(*Message)
	return ok && mv == nil
}

// isZero reports whether a canonical scalar equals its type's default.
// Negative zero is not the default.
func isZero(v any) bool {
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

// Equal reports whether a and b hold the same fields with equal values.
func Equal(a, b *Message) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.desc != b.desc {
		return false
	}
	for _, fd := range a.desc.SortedFields() {
		av, aok := a.Lookup(fd)
		bv, bok := b.Lookup(fd)
		if aok != bok {
			return false
		}
		if aok && !valueEqual(av, bv) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch x := a.(type) {
	case *Message:
		y, ok := b.(*Message)
		return ok && Equal(x, y)
	case *List:
		y, ok := b.(*List)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for i := range x.items {
			if !valueEqual(x.items[i], y.items[i]) {
				return false
			}
		}
		return true
	case *Map:
		y, ok := b.(*Map)
		if !ok || x.Len() != y.Len() {
			return false
		}
		equal := true
		x.Range(func(k, v any) bool {
			other, found := y.Get(k)
			equal = found && valueEqual(v, other)
			return equal
		})
		return equal
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	default:
		return a == b
	}
}
