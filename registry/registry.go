package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/vlsir/vlsirwire/schema"
)

// ErrNotFound is returned by lookups for names the registry does not hold.
var ErrNotFound = errors.New("not found")

// Registry allows us to store the schema of the protobuf messages. We look
// this up when we need to parse or marshal a message. Loading is serialized;
// lookups may run concurrently with each other and with loading.
type Registry struct {
	ProtoDirectories []string

	fsys   fs.FS
	logger zerolog.Logger

	mu              sync.RWMutex
	files           map[string]*schema.ProtoFile // path -> file
	messages        map[string]*schema.Message   // fully qualified name -> message
	enums           map[string]*schema.Enum      // fully qualified name -> enum
	parsedProtoBody map[string]*protoparserparser.Proto
	protoEntities   map[string]*protoFileEntity
}

type protoFileEntity struct {
	name    string   // import path, e.g. vlsir/circuit.proto
	imports []string // resolved paths of imported files
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for load events. The default discards them.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithFS makes the registry read .proto files from fsys instead of the
// operating system. Proto directories are then paths inside fsys.
func WithFS(fsys fs.FS) Option {
	return func(r *Registry) {
		r.fsys = fsys
	}
}

// NewRegistry returns an empty registry that resolves imports against
// protoDirs.
func NewRegistry(protoDirs []string, opts ...Option) *Registry {
	r := &Registry{
		ProtoDirectories: protoDirs,
		logger:           zerolog.Nop(),
		files:            make(map[string]*schema.ProtoFile),
		messages:         make(map[string]*schema.Message),
		enums:            make(map[string]*schema.Enum),
		parsedProtoBody:  make(map[string]*protoparserparser.Proto),
		protoEntities:    make(map[string]*protoFileEntity),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadSchemaFromFile loads protoFile, found relative to one of the proto
// directories, together with everything it imports.
func (r *Registry) LoadSchemaFromFile(protoFile string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	paths, err := r.getAllProtoInfo(protoFile)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", protoFile, err)
	}
	return r.build(paths)
}

// LoadSchema Given a path it will recursively scan all *proto files inside
// it and load them. The path itself becomes the root that imports are
// resolved against; a single file's directory does the same.
func (r *Registry) LoadSchema(protoPath string) error {
	protoPath = r.clean(protoPath)
	info, err := r.stat(protoPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	root := protoPath
	var names []string
	if !info.IsDir() {
		if !strings.HasSuffix(protoPath, ".proto") {
			return fmt.Errorf("file %s is not a .proto file", protoPath)
		}
		root = r.dir(protoPath)
		names = append(names, r.base(protoPath))
	} else {
		err = r.walk(protoPath, func(rel string) {
			names = append(names, rel)
		})
		if err != nil {
			return fmt.Errorf("failed to walk directory: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !containsString(r.ProtoDirectories, root) {
		r.ProtoDirectories = append(r.ProtoDirectories, root)
	}
	var paths []string
	for _, name := range names {
		p, err := r.getAllProtoInfo(name)
		if err != nil {
			return fmt.Errorf("failed to load proto file %s: %w", name, err)
		}
		paths = append(paths, p...)
	}
	return r.build(paths)
}

// build converts every parsed file that has not been converted yet, then
// resolves and compiles the new types. On failure the new types are
// removed again.
func (r *Registry) build(paths []string) (err error) {
	var (
		added     []*schema.ProtoFile
		pending   []pendingRef
		converted = make(map[string]*schema.ProtoFile)
	)
	for _, p := range paths {
		if _, ok := r.files[p]; ok {
			continue
		}
		if _, ok := converted[p]; ok {
			continue
		}
		file, refs, err := convertFile(r.protoEntities[p].name, r.parsedProtoBody[p])
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		converted[p] = file
		added = append(added, file)
		pending = append(pending, refs...)
	}

	defer func() {
		if err != nil {
			for _, file := range added {
				r.unregister(file)
			}
		}
	}()

	for _, file := range added {
		if err := r.registerNames(file); err != nil {
			return err
		}
	}
	if err := r.resolve(pending); err != nil {
		return err
	}
	for _, file := range added {
		if err := r.compileFile(file); err != nil {
			return err
		}
	}
	for p, file := range converted {
		r.files[p] = file
		r.logger.Debug().Str("file", p).Int("messages", len(file.Messages)).Msg("loaded proto file")
	}
	return nil
}

// Register adds the types of an already built file. Field references must
// be resolved by the caller; the messages are compiled here.
func (r *Registry) Register(file *schema.ProtoFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.registerNames(file); err != nil {
		r.unregister(file)
		return err
	}
	if err := r.compileFile(file); err != nil {
		r.unregister(file)
		return err
	}
	r.files[file.Name] = file
	return nil
}

func (r *Registry) compileFile(file *schema.ProtoFile) error {
	var compile func(msgs []*schema.Message) error
	compile = func(msgs []*schema.Message) error {
		for _, msg := range msgs {
			if err := msg.Compile(); err != nil {
				return fmt.Errorf("%s: %w", file.Name, err)
			}
			if err := compile(msg.NestedTypes); err != nil {
				return err
			}
		}
		return nil
	}
	return compile(file.Messages)
}

// registerNames registers all message and enum names of a file. Names are
// already fully qualified.
func (r *Registry) registerNames(file *schema.ProtoFile) error {
	var register func(msgs []*schema.Message, enums []*schema.Enum) error
	register = func(msgs []*schema.Message, enums []*schema.Enum) error {
		for _, msg := range msgs {
			if prev, ok := r.messages[msg.Name]; ok && prev != msg {
				return fmt.Errorf("%s: message %s is already defined", file.Name, msg.Name)
			}
			r.messages[msg.Name] = msg
			r.logger.Debug().Str("message", msg.Name).Msg("registered message")
			if err := register(msg.NestedTypes, msg.NestedEnums); err != nil {
				return err
			}
		}
		for _, enum := range enums {
			if prev, ok := r.enums[enum.Name]; ok && prev != enum {
				return fmt.Errorf("%s: enum %s is already defined", file.Name, enum.Name)
			}
			r.enums[enum.Name] = enum
			r.logger.Debug().Str("enum", enum.Name).Msg("registered enum")
		}
		return nil
	}
	return register(file.Messages, file.Enums)
}

// unregister removes the names registerNames added for file.
func (r *Registry) unregister(file *schema.ProtoFile) {
	var remove func(msgs []*schema.Message, enums []*schema.Enum)
	remove = func(msgs []*schema.Message, enums []*schema.Enum) {
		for _, msg := range msgs {
			if r.messages[msg.Name] == msg {
				delete(r.messages, msg.Name)
			}
			remove(msg.NestedTypes, msg.NestedEnums)
		}
		for _, enum := range enums {
			if r.enums[enum.Name] == enum {
				delete(r.enums, enum.Name)
			}
		}
	}
	remove(file.Messages, file.Enums)
}

// resolve links every pending type reference to its message or enum.
func (r *Registry) resolve(pending []pendingRef) error {
	known := make(map[string]struct{}, len(r.messages)+len(r.enums))
	for name := range r.messages {
		known[name] = struct{}{}
	}
	for name := range r.enums {
		known[name] = struct{}{}
	}

	for _, ref := range pending {
		f := ref.field
		fullName, err := getReferencedType(f.TypeName, ref.scope, known)
		if err != nil {
			return fmt.Errorf("message %s field %s: %w", ref.scope, f.Name, err)
		}
		f.TypeName = fullName

		if msg, ok := r.messages[fullName]; ok {
			f.Type = schema.TypeMessage
			f.Message = msg
			switch f.Kind {
			case schema.KindScalar:
				f.Kind = schema.KindMessage
			case schema.KindRepeatedScalar:
				f.Kind = schema.KindRepeatedMessage
			}
			continue
		}
		f.Type = schema.TypeEnum
		f.Enum = r.enums[fullName]
	}
	return nil
}

// GetMessage retrieves a message definition by fully qualified name, or by
// a suffix that matches exactly one message.
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name = strings.TrimPrefix(name, ".")
	if msg, exists := r.messages[name]; exists {
		return msg, nil
	}

	var found []string
	for fullName := range r.messages {
		if strings.HasSuffix(fullName, "."+name) {
			found = append(found, fullName)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("message %w: %s", ErrNotFound, name)
	case 1:
		return r.messages[found[0]], nil
	default:
		sort.Strings(found)
		return nil, fmt.Errorf("message name %s is ambiguous: %s", name, strings.Join(found, ", "))
	}
}

// GetEnum retrieves an enum definition the way GetMessage does.
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name = strings.TrimPrefix(name, ".")
	if enum, exists := r.enums[name]; exists {
		return enum, nil
	}

	var found []string
	for fullName := range r.enums {
		if strings.HasSuffix(fullName, "."+name) {
			found = append(found, fullName)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("enum %w: %s", ErrNotFound, name)
	case 1:
		return r.enums[found[0]], nil
	default:
		sort.Strings(found)
		return nil, fmt.Errorf("enum name %s is ambiguous: %s", name, strings.Join(found, ", "))
	}
}

// ListMessages returns all registered message names, sorted
func (r *Registry) ListMessages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.messages))
	for name := range r.messages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListEnums returns all registered enum names, sorted
func (r *Registry) ListEnums() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.enums))
	for name := range r.enums {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ===== FILE ACCESS =====

func (r *Registry) readFile(name string) ([]byte, error) {
	if r.fsys != nil {
		return fs.ReadFile(r.fsys, name)
	}
	return os.ReadFile(name)
}

func (r *Registry) stat(name string) (fs.FileInfo, error) {
	if r.fsys != nil {
		return fs.Stat(r.fsys, name)
	}
	return os.Stat(name)
}

func (r *Registry) join(dir, name string) string {
	if r.fsys != nil {
		return path.Join(dir, name)
	}
	return filepath.Join(dir, name)
}

func (r *Registry) dir(name string) string {
	if r.fsys != nil {
		return path.Dir(name)
	}
	return filepath.Dir(name)
}

func (r *Registry) base(name string) string {
	if r.fsys != nil {
		return path.Base(name)
	}
	return filepath.Base(name)
}

// walk calls fn with the slash-separated path, relative to root, of every
// .proto file below root.
func (r *Registry) walk(root string, fn func(rel string)) error {
	visit := func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".proto") {
			return nil
		}
		rel := p
		if root != "." {
			rel = strings.TrimPrefix(p, root)
		}
		fn(strings.TrimPrefix(filepath.ToSlash(rel), "/"))
		return nil
	}
	if r.fsys != nil {
		return fs.WalkDir(r.fsys, root, visit)
	}
	return filepath.WalkDir(root, visit)
}

func (r *Registry) clean(name string) string {
	if r.fsys != nil {
		return path.Clean(name)
	}
	return filepath.Clean(name)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
