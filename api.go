// Package vlsirwire reads and writes protobuf messages of the Vlsir schema,
// or any other .proto schema, without generated code.
package vlsirwire

import (
	"fmt"
	"reflect"

	"github.com/vlsir/vlsirwire/codec"
	"github.com/vlsir/vlsirwire/dynamic"
	"github.com/vlsir/vlsirwire/registry"
)

// ===== SCHEMA-AWARE API =====

// Codec provides schema-aware protobuf operations without generated code
type Codec struct {
	registry *registry.Registry

	// Options applied by every encode and decode of this Codec.
	MarshalOptions   codec.MarshalOptions
	UnmarshalOptions codec.UnmarshalOptions
}

// New creates a Codec whose registry resolves imports against protoDirs.
func New(protoDirs ...string) *Codec {
	return NewWithRegistry(registry.NewRegistry(protoDirs))
}

// NewWithRegistry creates a Codec over an already populated registry, such
// as the one returned by vlsir.Load.
func NewWithRegistry(r *registry.Registry) *Codec {
	return &Codec{registry: r}
}

// LoadSchemaFromFile loads a .proto file, relative to the proto directories,
// and everything it imports.
func (c *Codec) LoadSchemaFromFile(protoFile string) error {
	return c.registry.LoadSchemaFromFile(protoFile)
}

// LoadSchema loads a .proto file or every .proto file below a directory.
func (c *Codec) LoadSchema(protoPath string) error {
	return c.registry.LoadSchema(protoPath)
}

// NewMessage returns an empty message of the named type.
func (c *Codec) NewMessage(messageType string) (*dynamic.Message, error) {
	desc, err := c.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %w", err)
	}
	return dynamic.New(desc), nil
}

// Parse decodes protobuf bytes as a message of the named type.
func (c *Codec) Parse(data []byte, messageType string) (*dynamic.Message, error) {
	desc, err := c.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %w", err)
	}
	return c.UnmarshalOptions.Decode(data, desc)
}

// ParseToMap decodes protobuf bytes into nested maps keyed by field name.
// Absent fields are left out.
func (c *Codec) ParseToMap(data []byte, messageType string) (map[string]any, error) {
	msg, err := c.Parse(data, messageType)
	if err != nil {
		return nil, err
	}
	return msg.Interface(), nil
}

// Marshal encodes msg.
func (c *Codec) Marshal(msg *dynamic.Message) ([]byte, error) {
	return c.MarshalOptions.Marshal(msg)
}

// MarshalMap encodes data, keyed by field name, as a message of the named
// type. Nested messages are maps, repeated fields are slices and map fields
// are maps; numbers of any Go numeric type are converted to the field type.
func (c *Codec) MarshalMap(data map[string]any, messageType string) ([]byte, error) {
	msg, err := c.NewMessage(messageType)
	if err != nil {
		return nil, err
	}
	if err := fromMap(msg, data); err != nil {
		return nil, err
	}
	return c.Marshal(msg)
}

// Size returns the number of bytes Marshal would produce for msg.
func (c *Codec) Size(msg *dynamic.Message) int {
	return c.MarshalOptions.Size(msg)
}

// Unmarshal decodes protobuf bytes into a Go struct using reflection. The
// message type is the struct's type name; fields are matched by their
// `proto:"name"` tag or by the snake_case form of the Go field name.
func (c *Codec) Unmarshal(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a pointer to struct")
	}
	return c.UnmarshalAs(data, rv.Elem().Type().Name(), v)
}

// UnmarshalAs is Unmarshal with an explicit message type.
func (c *Codec) UnmarshalAs(data []byte, messageType string, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a pointer to struct")
	}
	msg, err := c.Parse(data, messageType)
	if err != nil {
		return err
	}
	return messageToStruct(msg, rv.Elem())
}

// ===== REGISTRY ACCESS =====

func (c *Codec) Registry() *registry.Registry { return c.registry }
func (c *Codec) ListMessages() []string       { return c.registry.ListMessages() }
func (c *Codec) ListEnums() []string          { return c.registry.ListEnums() }
