package registry

import (
	"context"
	"fmt"
	"io"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/vlsir/vlsirwire/schema"
)

// Compile compiles the named files with protocompile, resolving imports
// against the proto directories and the well-known types, and loads the
// result with LoadFiles. Unlike LoadSchemaFromFile it understands the whole
// .proto language, options and well-known imports included.
func (r *Registry) Compile(ctx context.Context, files ...string) error {
	resolver := &protocompile.SourceResolver{ImportPaths: r.ProtoDirectories}
	if r.fsys != nil {
		resolver.Accessor = func(name string) (io.ReadCloser, error) {
			return r.fsys.Open(name)
		}
	}
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(resolver),
	}
	compiled, err := compiler.Compile(ctx, files...)
	if err != nil {
		return fmt.Errorf("failed to compile proto files: %w", err)
	}
	fds := make([]protoreflect.FileDescriptor, len(compiled))
	for i, f := range compiled {
		fds[i] = f
	}
	return r.LoadFiles(fds...)
}

// LoadFiles registers the types of already linked file descriptors, such
// as the output of protocompile or protoregistry.GlobalFiles. Imported
// files are loaded first.
func (r *Registry) LoadFiles(fds ...protoreflect.FileDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	visited := make(map[string]struct{})
	var order []protoreflect.FileDescriptor
	var visit func(fd protoreflect.FileDescriptor)
	visit = func(fd protoreflect.FileDescriptor) {
		if _, ok := visited[fd.Path()]; ok {
			return
		}
		visited[fd.Path()] = struct{}{}
		imports := fd.Imports()
		for i := 0; i < imports.Len(); i++ {
			if imp := imports.Get(i); imp.FileDescriptor != nil {
				visit(imp.FileDescriptor)
			}
		}
		order = append(order, fd)
	}
	for _, fd := range fds {
		visit(fd)
	}

	for _, fd := range order {
		if _, ok := r.files[fd.Path()]; ok {
			continue
		}
		if err := r.loadFileDescriptor(fd); err != nil {
			return fmt.Errorf("%s: %w", fd.Path(), err)
		}
	}
	return nil
}

// loadFileDescriptor declares every type of fd first so fields can refer
// to types defined later in the same file, then fills in the fields.
func (r *Registry) loadFileDescriptor(fd protoreflect.FileDescriptor) (err error) {
	file := &schema.ProtoFile{
		Name:    fd.Path(),
		Package: string(fd.Package()),
		Syntax:  fd.Syntax().String(),
	}
	imports := fd.Imports()
	for i := 0; i < imports.Len(); i++ {
		file.Imports = append(file.Imports, imports.Get(i).Path())
	}

	declared := make(map[*schema.Message]protoreflect.MessageDescriptor)
	var declare func(mds protoreflect.MessageDescriptors) []*schema.Message
	declare = func(mds protoreflect.MessageDescriptors) []*schema.Message {
		var msgs []*schema.Message
		for i := 0; i < mds.Len(); i++ {
			md := mds.Get(i)
			if md.IsMapEntry() {
				continue
			}
			msg := &schema.Message{
				Name:        string(md.FullName()),
				NestedTypes: declare(md.Messages()),
				NestedEnums: convertEnums(md.Enums()),
			}
			declared[msg] = md
			msgs = append(msgs, msg)
		}
		return msgs
	}
	file.Messages = declare(fd.Messages())
	file.Enums = convertEnums(fd.Enums())

	defer func() {
		if err != nil {
			r.unregister(file)
		}
	}()
	if err := r.registerNames(file); err != nil {
		return err
	}
	for msg, md := range declared {
		if err := r.fillFields(msg, md); err != nil {
			return err
		}
	}
	if err := r.compileFile(file); err != nil {
		return err
	}
	r.files[file.Name] = file
	r.logger.Debug().Str("file", file.Name).Int("messages", len(declared)).Msg("loaded file descriptor")
	return nil
}

func (r *Registry) fillFields(msg *schema.Message, md protoreflect.MessageDescriptor) error {
	groups := make(map[protoreflect.FullName]*schema.Oneof)
	oneofs := md.Oneofs()
	for i := 0; i < oneofs.Len(); i++ {
		od := oneofs.Get(i)
		group := &schema.Oneof{Name: string(od.Name())}
		groups[od.FullName()] = group
		msg.OneofGroups = append(msg.OneofGroups, group)
	}

	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		f, err := r.convertField(fd)
		if err != nil {
			return fmt.Errorf("message %s field %s: %w", msg.Name, fd.Name(), err)
		}
		if od := fd.ContainingOneof(); od != nil {
			group := groups[od.FullName()]
			group.Fields = append(group.Fields, f)
			continue
		}
		msg.Fields = append(msg.Fields, f)
	}
	return nil
}

func (r *Registry) convertField(fd protoreflect.FieldDescriptor) (*schema.Field, error) {
	f := &schema.Field{
		Name:   string(fd.Name()),
		Number: int32(fd.Number()),
	}

	if fd.IsMap() {
		f.Kind = schema.KindMap
		f.MapKey = kindType(fd.MapKey().Kind())
		if err := r.setValueType(f, fd.MapValue()); err != nil {
			return nil, err
		}
		return f, nil
	}

	if err := r.setValueType(f, fd); err != nil {
		return nil, err
	}
	switch {
	case fd.Cardinality() == protoreflect.Repeated && f.Type == schema.TypeMessage:
		f.Kind = schema.KindRepeatedMessage
	case fd.Cardinality() == protoreflect.Repeated:
		f.Kind = schema.KindRepeatedScalar
		f.Unpacked = f.Type.Packable() && !fd.IsPacked()
	case f.Type == schema.TypeMessage:
		f.Kind = schema.KindMessage
	default:
		f.Kind = schema.KindScalar
	}
	return f, nil
}

// setValueType sets the value type of f from fd, linking message and enum
// descriptors already in the registry.
func (r *Registry) setValueType(f *schema.Field, fd protoreflect.FieldDescriptor) error {
	f.Type = kindType(fd.Kind())
	switch fd.Kind() {
	case protoreflect.GroupKind:
		return fmt.Errorf("group fields are not supported")
	case protoreflect.MessageKind:
		f.TypeName = string(fd.Message().FullName())
		msg, ok := r.messages[f.TypeName]
		if !ok {
			return fmt.Errorf("message type %s is not loaded", f.TypeName)
		}
		f.Message = msg
	case protoreflect.EnumKind:
		f.TypeName = string(fd.Enum().FullName())
		f.Enum = r.enums[f.TypeName]
	}
	return nil
}

func convertEnums(eds protoreflect.EnumDescriptors) []*schema.Enum {
	var enums []*schema.Enum
	for i := 0; i < eds.Len(); i++ {
		ed := eds.Get(i)
		enum := &schema.Enum{Name: string(ed.FullName())}
		values := ed.Values()
		for j := 0; j < values.Len(); j++ {
			v := values.Get(j)
			enum.Values = append(enum.Values, &schema.EnumValue{
				Name:   string(v.Name()),
				Number: int32(v.Number()),
			})
		}
		enums = append(enums, enum)
	}
	return enums
}

func kindType(k protoreflect.Kind) schema.PrimitiveType {
	switch k {
	case protoreflect.BoolKind:
		return schema.TypeBool
	case protoreflect.EnumKind:
		return schema.TypeEnum
	case protoreflect.Int32Kind:
		return schema.TypeInt32
	case protoreflect.Sint32Kind:
		return schema.TypeSint32
	case protoreflect.Uint32Kind:
		return schema.TypeUint32
	case protoreflect.Int64Kind:
		return schema.TypeInt64
	case protoreflect.Sint64Kind:
		return schema.TypeSint64
	case protoreflect.Uint64Kind:
		return schema.TypeUint64
	case protoreflect.Sfixed32Kind:
		return schema.TypeSfixed32
	case protoreflect.Fixed32Kind:
		return schema.TypeFixed32
	case protoreflect.FloatKind:
		return schema.TypeFloat
	case protoreflect.Sfixed64Kind:
		return schema.TypeSfixed64
	case protoreflect.Fixed64Kind:
		return schema.TypeFixed64
	case protoreflect.DoubleKind:
		return schema.TypeDouble
	case protoreflect.StringKind:
		return schema.TypeString
	case protoreflect.BytesKind:
		return schema.TypeBytes
	case protoreflect.MessageKind:
		return schema.TypeMessage
	default:
		return ""
	}
}
