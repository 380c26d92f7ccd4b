package dynamic

import (
	"fmt"
	"slices"

	"github.com/vlsir/vlsirwire/schema"
)

// Map is the value of a map field. Keys are unique; iteration follows first
// insertion order so encoding is deterministic.
type Map struct {
	field  *schema.Field
	keys   []any
	values map[any]any
}

func newMap(fd *schema.Field) *Map {
	return &Map{field: fd, values: make(map[any]any)}
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Get returns the value stored under k.
func (m *Map) Get(k any) (any, bool) {
	v, ok := m.values[k]
	return v, ok
}

// Set inserts or overwrites the entry for k. An overwritten entry keeps its
// position.
func (m *Map) Set(k, v any) error {
	ck, err := checkScalar(m.field.MapKey, nil, k)
	if err != nil {
		return fmt.Errorf("map key: %w", err)
	}
	var cv any
	if m.field.Type == schema.TypeMessage {
		if isNilMessage(v) {
			return fmt.Errorf("%w: nil message value in map %s", ErrTypeMismatch, m.field.Name)
		}
		cv, err = checkMessage(m.field.Message, v)
	} else {
		cv, err = checkScalar(m.field.Type, m.field.Enum, v)
	}
	if err != nil {
		return fmt.Errorf("map value: %w", err)
	}
	m.put(ck, cv)
	return nil
}

func (m *Map) put(k, v any) {
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

// Delete removes the entry for k.
func (m *Map) Delete(k any) {
	if _, ok := m.values[k]; !ok {
		return
	}
	delete(m.values, k)
	if i := slices.Index(m.keys, k); i >= 0 {
		m.keys = slices.Delete(m.keys, i, i+1)
	}
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []any {
	return append([]any(nil), m.keys...)
}

// Range calls f for every entry in insertion order.
func (m *Map) Range(f func(k, v any) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !f(k, m.values[k]) {
			return
		}
	}
}
