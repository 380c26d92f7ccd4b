package vlsirwire

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/vlsir/vlsirwire/dynamic"
	"github.com/vlsir/vlsirwire/schema"
	"github.com/vlsir/vlsirwire/wire"
)

// ===== MAP -> MESSAGE =====

// fromMap sets the fields of msg from data. Names are applied in sorted
// order; naming two members of one oneof is an error.
func fromMap(msg *dynamic.Message, data map[string]any) error {
	desc := msg.Descriptor()
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make(map[int]string)
	for _, name := range names {
		fd := desc.FieldByName(name)
		if fd == nil {
			return fmt.Errorf("%w: %s has no field %s", dynamic.ErrUnknownField, desc.Name, name)
		}
		if i := fd.OneofIndex(); i >= 0 && data[name] != nil {
			if other, ok := groups[i]; ok {
				return fmt.Errorf("oneof %s: both %s and %s are set", desc.OneofGroups[i].Name, other, name)
			}
			groups[i] = name
		}
		if err := setFromValue(msg, fd, data[name]); err != nil {
			return fmt.Errorf("%s.%s: %w", desc.Name, name, err)
		}
	}
	return nil
}

func setFromValue(msg *dynamic.Message, fd *schema.Field, v any) error {
	switch {
	case fd.Kind == schema.KindMap:
		if v == nil {
			return msg.SetField(fd, nil)
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Map {
			return fmt.Errorf("%w: expected a map, got %T", dynamic.ErrTypeMismatch, v)
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		mp := msg.MapField(fd)
		for _, key := range keys {
			k, err := toScalar(fd.MapKey, key.Interface())
			if err != nil {
				return fmt.Errorf("map key: %w", err)
			}
			val, err := toElement(fd, rv.MapIndex(key).Interface())
			if err != nil {
				return err
			}
			if err := mp.Set(k, val); err != nil {
				return err
			}
		}
		return nil

	case fd.IsList():
		if v == nil {
			return msg.SetField(fd, nil)
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return fmt.Errorf("%w: expected a slice, got %T", dynamic.ErrTypeMismatch, v)
		}
		l := msg.ListField(fd)
		l.Truncate(0)
		for i := 0; i < rv.Len(); i++ {
			item, err := toElement(fd, rv.Index(i).Interface())
			if err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
			if err := l.Append(item); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return nil

	default:
		if v == nil {
			return msg.SetField(fd, nil)
		}
		val, err := toElement(fd, v)
		if err != nil {
			return err
		}
		return msg.SetField(fd, val)
	}
}

// toElement converts a single value, a list element or a map value of fd.
func toElement(fd *schema.Field, v any) (any, error) {
	if fd.Type == schema.TypeMessage {
		return toMessage(fd.Message, v)
	}
	if fd.Type == schema.TypeEnum {
		if name, ok := v.(string); ok {
			return name, nil // resolved by name in dynamic
		}
	}
	return toScalar(fd.Type, v)
}

func toMessage(desc *schema.Message, v any) (*dynamic.Message, error) {
	switch m := v.(type) {
	case *dynamic.Message:
		return m, nil
	case map[string]any:
		sub := dynamic.New(desc)
		if err := fromMap(sub, m); err != nil {
			return nil, err
		}
		return sub, nil
	default:
		return nil, fmt.Errorf("%w: expected map[string]any for %s, got %T", dynamic.ErrTypeMismatch, desc.Name, v)
	}
}

// toScalar converts any Go number, a decimal string for integer types, or
// the exact value type into the canonical value of t.
func toScalar(t schema.PrimitiveType, v any) (any, error) {
	switch t {
	case schema.TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case schema.TypeBytes:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case string:
			return []byte(b), nil
		}
	case schema.TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case schema.TypeFloat, schema.TypeDouble:
		f, ok := toFloat(v)
		if !ok {
			break
		}
		if t == schema.TypeFloat {
			return float32(f), nil
		}
		return f, nil
	default:
		if s, ok := v.(string); ok {
			return parseInteger(t, s)
		}
		return toInteger(t, v)
	}
	return nil, fmt.Errorf("%w: cannot use %T as %s", dynamic.ErrTypeMismatch, v, t)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}

func toInteger(t schema.PrimitiveType, v any) (any, error) {
	rv := reflect.ValueOf(v)
	var (
		i        int64
		u        uint64
		unsigned bool
	)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i = rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, unsigned = rv.Uint(), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("%w: %v is not an integer", dynamic.ErrTypeMismatch, f)
		}
		if f < 0 {
			if f < math.MinInt64 {
				return nil, fmt.Errorf("%w: %v does not fit %s", wire.ErrIntegerOverflow, f, t)
			}
			i = int64(f)
		} else {
			if f >= math.MaxUint64 {
				return nil, fmt.Errorf("%w: %v does not fit %s", wire.ErrIntegerOverflow, f, t)
			}
			u, unsigned = uint64(f), true
		}
	default:
		return nil, fmt.Errorf("%w: cannot use %T as %s", dynamic.ErrTypeMismatch, v, t)
	}
	if unsigned {
		return fromUnsigned(t, u)
	}
	if i >= 0 {
		return fromUnsigned(t, uint64(i))
	}
	return fromNegative(t, i)
}

func fromUnsigned(t schema.PrimitiveType, u uint64) (any, error) {
	overflow := func() (any, error) {
		return nil, fmt.Errorf("%w: %d does not fit %s", wire.ErrIntegerOverflow, u, t)
	}
	switch t {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32, schema.TypeEnum:
		if u > math.MaxInt32 {
			return overflow()
		}
		return int32(u), nil
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		if u > math.MaxInt64 {
			return overflow()
		}
		return int64(u), nil
	case schema.TypeUint32, schema.TypeFixed32:
		if u > math.MaxUint32 {
			return overflow()
		}
		return uint32(u), nil
	case schema.TypeUint64, schema.TypeFixed64:
		return u, nil
	}
	return nil, fmt.Errorf("%w: %s is not an integer type", dynamic.ErrTypeMismatch, t)
}

func fromNegative(t schema.PrimitiveType, i int64) (any, error) {
	switch t {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32, schema.TypeEnum:
		if i < math.MinInt32 {
			return nil, fmt.Errorf("%w: %d does not fit %s", wire.ErrIntegerOverflow, i, t)
		}
		return int32(i), nil
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		return i, nil
	case schema.TypeUint32, schema.TypeFixed32, schema.TypeUint64, schema.TypeFixed64:
		return nil, fmt.Errorf("%w: %d is negative for %s", wire.ErrIntegerOverflow, i, t)
	}
	return nil, fmt.Errorf("%w: %s is not an integer type", dynamic.ErrTypeMismatch, t)
}

func parseInteger(t schema.PrimitiveType, s string) (any, error) {
	if strings.HasPrefix(s, "-") {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", dynamic.ErrTypeMismatch, s)
		}
		return fromNegative(t, i)
	}
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not an integer", dynamic.ErrTypeMismatch, s)
	}
	return fromUnsigned(t, u)
}

// ===== MESSAGE -> STRUCT =====

// messageToStruct maps decoded fields to struct fields
func messageToStruct(msg *dynamic.Message, rv reflect.Value) error {
	desc := msg.Descriptor()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)

		if !fieldValue.CanSet() {
			continue
		}
		name := field.Tag.Get("proto")
		if name == "-" {
			continue
		}
		if name == "" {
			name = toSnakeCase(field.Name)
		}
		fd := desc.FieldByName(name)
		if fd == nil {
			continue
		}
		if err := setFieldValue(fieldValue, msg.GetField(fd), fd); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}
	return nil
}

// setFieldValue sets a struct field with type conversion
func setFieldValue(fieldValue reflect.Value, value any, fd *schema.Field) error {
	switch v := value.(type) {
	case nil:
		return nil

	case *dynamic.Message:
		target := fieldValue
		if target.Kind() == reflect.Ptr && target.Type().Elem().Kind() == reflect.Struct {
			if target.IsNil() {
				target.Set(reflect.New(target.Type().Elem()))
			}
			target = target.Elem()
		}
		if target.Kind() == reflect.Struct {
			return messageToStruct(v, target)
		}
		return assign(fieldValue, v.Interface())

	case *dynamic.List:
		if fieldValue.Kind() != reflect.Slice {
			return fmt.Errorf("cannot store repeated field in %s", fieldValue.Type())
		}
		out := reflect.MakeSlice(fieldValue.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			if err := setFieldValue(out.Index(i), v.Get(i), fd); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		fieldValue.Set(out)
		return nil

	case *dynamic.Map:
		if fieldValue.Kind() != reflect.Map {
			return fmt.Errorf("cannot store map field in %s", fieldValue.Type())
		}
		mt := fieldValue.Type()
		out := reflect.MakeMapWithSize(mt, v.Len())
		var err error
		v.Range(func(k, val any) bool {
			key := reflect.New(mt.Key()).Elem()
			if err = assign(key, k); err != nil {
				return false
			}
			elem := reflect.New(mt.Elem()).Elem()
			if err = setFieldValue(elem, val, fd); err != nil {
				return false
			}
			out.SetMapIndex(key, elem)
			return true
		})
		if err != nil {
			return err
		}
		fieldValue.Set(out)
		return nil

	case int32:
		if fd.Type == schema.TypeEnum && fd.Enum != nil && fieldValue.Kind() == reflect.String {
			if ev := fd.Enum.ValueByNumber(v); ev != nil {
				fieldValue.SetString(ev.Name)
				return nil
			}
		}
	}
	return assign(fieldValue, value)
}

func assign(fieldValue reflect.Value, value any) error {
	sourceValue := reflect.ValueOf(value)
	if sourceValue.Type().AssignableTo(fieldValue.Type()) {
		fieldValue.Set(sourceValue)
		return nil
	}
	if sourceValue.Type().ConvertibleTo(fieldValue.Type()) && sourceValue.Kind() != reflect.String && fieldValue.Kind() != reflect.String {
		fieldValue.Set(sourceValue.Convert(fieldValue.Type()))
		return nil
	}
	if sourceValue.Kind() == reflect.String && fieldValue.Kind() == reflect.String {
		fieldValue.SetString(sourceValue.String())
		return nil
	}
	return fmt.Errorf("cannot convert %T to %s", value, fieldValue.Type())
}

// toSnakeCase converts Go field names such as "AnalysisName" or "ExtModules"
// to protobuf field names.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
