package dynamic

import (
	"fmt"

	"github.com/vlsir/vlsirwire/schema"
)

// List is the ordered value sequence of a repeated field. Insertion order is
// preserved and duplicates are allowed.
type List struct {
	field *schema.Field
	items []any
}

func newList(fd *schema.Field) *List {
	return &List{field: fd}
}

// Len returns the number of elements.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Get returns element i.
func (l *List) Get(i int) any {
	return l.items[i]
}

// Set replaces element i.
func (l *List) Set(i int, v any) error {
	cv, err := l.check(v)
	if err != nil {
		return err
	}
	l.items[i] = cv
	return nil
}

// Append adds v to the end of the list.
func (l *List) Append(v any) error {
	cv, err := l.check(v)
	if err != nil {
		return err
	}
	l.items = append(l.items, cv)
	return nil
}

// Values returns a copy of the elements.
func (l *List) Values() []any {
	return append([]any(nil), l.items...)
}

// Truncate drops every element at index n and beyond.
func (l *List) Truncate(n int) {
	clear(l.items[n:])
	l.items = l.items[:n]
}

func (l *List) check(v any) (any, error) {
	if l.field.Kind == schema.KindRepeatedMessage {
		if isNilMessage(v) {
			return nil, fmt.Errorf("%w: nil element in repeated field %s", ErrTypeMismatch, l.field.Name)
		}
		return checkMessage(l.field.Message, v)
	}
	return checkScalar(l.field.Type, l.field.Enum, v)
}
