package registry

import (
	"fmt"
	"strconv"
	"strings"

	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/vlsir/vlsirwire/schema"
)

// pendingRef is a field whose message or enum type is resolved once every
// file of a load has been registered.
type pendingRef struct {
	field *schema.Field
	scope string // fully qualified name of the declaring message
}

// fileConverter turns one parsed .proto file into schema descriptors.
type fileConverter struct {
	file    *schema.ProtoFile
	pending []pendingRef
}

// convertFile converts a parsed file. Field types naming messages or enums
// are left in TypeName and returned as pending references.
func convertFile(name string, proto *protoparserparser.Proto) (*schema.ProtoFile, []pendingRef, error) {
	if proto == nil {
		return nil, nil, fmt.Errorf("file %s was not parsed", name)
	}
	c := &fileConverter{
		file: &schema.ProtoFile{
			Name:   name,
			Syntax: "proto2",
		},
	}
	if proto.Syntax != nil {
		c.file.Syntax = strings.Trim(proto.Syntax.ProtobufVersion, `"'`)
	}
	for _, body := range proto.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Package:
			c.file.Package = b.Name
		case *protoparserparser.Import:
			c.file.Imports = append(c.file.Imports, strings.Trim(b.Location, `"`))
		}
	}

	for _, body := range proto.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Message:
			msg, err := c.convertMessage(c.file.Package, b)
			if err != nil {
				return nil, nil, err
			}
			c.file.Messages = append(c.file.Messages, msg)
		case *protoparserparser.Enum:
			enum, err := convertEnum(c.file.Package, b)
			if err != nil {
				return nil, nil, err
			}
			c.file.Enums = append(c.file.Enums, enum)
		}
	}
	return c.file, c.pending, nil
}

func qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}

func (c *fileConverter) convertMessage(scope string, m *protoparserparser.Message) (*schema.Message, error) {
	msg := &schema.Message{Name: qualify(scope, m.MessageName)}

	for _, body := range m.MessageBody {
		switch b := body.(type) {
		case *protoparserparser.Field:
			number, err := parseFieldNumber(msg.Name, b.FieldName, b.FieldNumber)
			if err != nil {
				return nil, err
			}
			f := c.newField(msg.Name, b.FieldName, number, b.Type, b.IsRepeated)
			if b.IsRepeated && c.unpacked(b.FieldOptions) {
				f.Unpacked = true
			}
			if b.IsOptional && c.file.Syntax == "proto3" {
				// proto3 optional is a single-member oneof
				msg.OneofGroups = append(msg.OneofGroups, &schema.Oneof{
					Name:   "_" + b.FieldName,
					Fields: []*schema.Field{f},
				})
				continue
			}
			msg.Fields = append(msg.Fields, f)

		case *protoparserparser.MapField:
			number, err := parseFieldNumber(msg.Name, b.MapName, b.FieldNumber)
			if err != nil {
				return nil, err
			}
			key := schema.PrimitiveType(b.KeyType)
			if !key.ValidMapKey() {
				return nil, fmt.Errorf("message %s field %s: invalid map key type %q", msg.Name, b.MapName, b.KeyType)
			}
			f := c.newField(msg.Name, b.MapName, number, b.Type, false)
			f.Kind = schema.KindMap
			f.MapKey = key
			msg.Fields = append(msg.Fields, f)

		case *protoparserparser.Oneof:
			group := &schema.Oneof{Name: b.OneofName}
			for _, of := range b.OneofFields {
				number, err := parseFieldNumber(msg.Name, of.FieldName, of.FieldNumber)
				if err != nil {
					return nil, err
				}
				group.Fields = append(group.Fields, c.newField(msg.Name, of.FieldName, number, of.Type, false))
			}
			msg.OneofGroups = append(msg.OneofGroups, group)

		case *protoparserparser.Message:
			nested, err := c.convertMessage(msg.Name, b)
			if err != nil {
				return nil, err
			}
			msg.NestedTypes = append(msg.NestedTypes, nested)

		case *protoparserparser.Enum:
			enum, err := convertEnum(msg.Name, b)
			if err != nil {
				return nil, err
			}
			msg.NestedEnums = append(msg.NestedEnums, enum)
		}
	}
	return msg, nil
}

// newField builds a field of a scalar type directly, or records a pending
// reference for a message or enum type.
func (c *fileConverter) newField(scope, name string, number int32, typ string, repeated bool) *schema.Field {
	f := &schema.Field{
		Name:   name,
		Number: number,
		Kind:   schema.KindScalar,
	}
	if repeated {
		f.Kind = schema.KindRepeatedScalar
	}
	if t := schema.PrimitiveType(typ); t.IsScalar() && t != schema.TypeEnum {
		f.Type = t
		return f
	}
	f.TypeName = typ
	c.pending = append(c.pending, pendingRef{field: f, scope: scope})
	return f
}

// unpacked reports whether a repeated field is written one element per tag:
// an explicit [packed=false], or proto2 without [packed=true].
func (c *fileConverter) unpacked(options []*protoparserparser.FieldOption) bool {
	for _, opt := range options {
		if opt.OptionName == "packed" {
			return opt.Constant == "false"
		}
	}
	return c.file.Syntax == "proto2"
}

func convertEnum(scope string, e *protoparserparser.Enum) (*schema.Enum, error) {
	enum := &schema.Enum{Name: qualify(scope, e.EnumName)}
	for _, body := range e.EnumBody {
		ef, ok := body.(*protoparserparser.EnumField)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(ef.Number, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("enum %s value %s: invalid number %q", enum.Name, ef.Ident, ef.Number)
		}
		enum.Values = append(enum.Values, &schema.EnumValue{Name: ef.Ident, Number: int32(n)})
	}
	return enum, nil
}

func parseFieldNumber(msgName, fieldName, number string) (int32, error) {
	n, err := strconv.ParseInt(number, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("message %s field %s: invalid field number %q", msgName, fieldName, number)
	}
	return int32(n), nil
}
