// Package vlsir bundles the Vlsir circuit, simulation, technology and layout
// schema and loads it into registries ready for the codec.
package vlsir

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/vlsir/vlsirwire/registry"
)

//go:embed proto/vlsir/*.proto proto/vlsir/layout/*.proto
var protoFiles embed.FS

// Files lists the bundled schema files, imports first.
var Files = []string{
	"vlsir/utils.proto",
	"vlsir/circuit.proto",
	"vlsir/netlist.proto",
	"vlsir/spice.proto",
	"vlsir/tech.proto",
	"vlsir/layout/raw.proto",
	"vlsir/layout/tetris.proto",
}

// Fully qualified names of commonly used messages and enums.
const (
	Package          = "vlsir.circuit.Package"
	Module           = "vlsir.circuit.Module"
	ExternalModule   = "vlsir.circuit.ExternalModule"
	Instance         = "vlsir.circuit.Instance"
	Port             = "vlsir.circuit.Port"
	Signal           = "vlsir.circuit.Signal"
	ConnectionTarget = "vlsir.circuit.ConnectionTarget"
	SpiceType        = "vlsir.circuit.SpiceType"

	Param         = "vlsir.utils.Param"
	ParamValue    = "vlsir.utils.ParamValue"
	Prefixed      = "vlsir.utils.Prefixed"
	Reference     = "vlsir.utils.Reference"
	QualifiedName = "vlsir.utils.QualifiedName"
	SIPrefix      = "vlsir.utils.SIPrefix"

	NetlistInput  = "vlsir.netlist.NetlistInput"
	NetlistResult = "vlsir.netlist.NetlistResult"
	NetlistFormat = "vlsir.netlist.NetlistFormat"

	SimInput   = "vlsir.spice.SimInput"
	SimResult  = "vlsir.spice.SimResult"
	TranInput  = "vlsir.spice.TranInput"
	TranResult = "vlsir.spice.TranResult"
	AcResult   = "vlsir.spice.AcResult"

	Technology       = "vlsir.tech.Technology"
	LayerInfo        = "vlsir.tech.LayerInfo"
	LayerPurposeType = "vlsir.tech.LayerPurposeType"

	// Raw layout. Short names such as "Library" and "Cell" are shared with
	// the tetris package, so look these up by full name.
	Library     = "vlsir.raw.Library"
	Cell        = "vlsir.raw.Cell"
	Layout      = "vlsir.raw.Layout"
	LayerShapes = "vlsir.raw.LayerShapes"
	Point       = "vlsir.raw.Point"
	Units       = "vlsir.raw.Units"

	TetrisLibrary = "vlsir.tetris.Library"
	TetrisLayout  = "vlsir.tetris.Layout"
	TetrisPlace   = "vlsir.tetris.Place"
	Stack         = "vlsir.tetris.Stack"
)

// FS returns the bundled .proto files, rooted so that import paths such as
// "vlsir/utils.proto" resolve directly.
func FS() fs.FS {
	sub, err := fs.Sub(protoFiles, "proto")
	if err != nil {
		panic(err) // the embedded tree always has this directory
	}
	return sub
}

// Load parses the bundled files with the registry's .proto loader.
func Load(opts ...registry.Option) (*registry.Registry, error) {
	r := registry.NewRegistry([]string{"."}, append(opts, registry.WithFS(FS()))...)
	for _, name := range Files {
		if err := r.LoadSchemaFromFile(name); err != nil {
			return nil, fmt.Errorf("failed to load vlsir schema: %w", err)
		}
	}
	return r, nil
}

// Compile compiles the bundled files with protocompile and loads the
// linked descriptors.
func Compile(ctx context.Context, opts ...registry.Option) (*registry.Registry, error) {
	r := registry.NewRegistry(nil, append(opts, registry.WithFS(FS()))...)
	if err := r.Compile(ctx, Files...); err != nil {
		return nil, fmt.Errorf("failed to compile vlsir schema: %w", err)
	}
	return r, nil
}
