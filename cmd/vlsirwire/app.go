package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vlsir/vlsirwire"
	"github.com/vlsir/vlsirwire/internal/config"
	"github.com/vlsir/vlsirwire/internal/logging"
	"github.com/vlsir/vlsirwire/registry"
	"github.com/vlsir/vlsirwire/vlsir"
)

// app holds the state shared by every subcommand: flags, the resolved
// configuration and the codec built from it.
type app struct {
	configPath string
	protoDirs  []string
	files      []string
	noBundle   bool
	logLevel   string

	cfg    config.Config
	logger zerolog.Logger
	codec  *vlsirwire.Codec
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("proto-path") {
		cfg.ProtoDirs = a.protoDirs
	}
	if flags.Changed("proto") {
		cfg.Files = a.files
	}
	if flags.Changed("no-bundle") {
		cfg.Bundle = !a.noBundle
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	logCfg := logging.DefaultConfig(logging.ProfileRuntime)
	logCfg.Level = level
	logCfg.Timestamp = false
	logging.ApplyEnv(&logCfg)
	a.logger = logging.New(cmd.ErrOrStderr(), logCfg)
	return nil
}

// load builds the codec on first use. Commands that need no schema never
// pay for parsing one.
func (a *app) load() (*vlsirwire.Codec, error) {
	if a.codec != nil {
		return a.codec, nil
	}

	opts := []registry.Option{registry.WithLogger(a.logger)}
	files := a.cfg.Files
	var reg *registry.Registry
	if a.cfg.Bundle {
		// Every proto directory is layered under the bundled tree so user
		// files can import vlsir/*.proto by its usual path.
		layers := layeredFS{vlsir.FS()}
		for _, dir := range a.cfg.ProtoDirs {
			layers = append(layers, os.DirFS(dir))
		}
		reg = registry.NewRegistry([]string{"."}, append(opts, registry.WithFS(layers))...)
		files = append(append([]string(nil), vlsir.Files...), files...)
	} else {
		reg = registry.NewRegistry(a.cfg.ProtoDirs, opts...)
	}

	for _, f := range files {
		if err := reg.LoadSchemaFromFile(f); err != nil {
			return nil, err
		}
	}
	a.logger.Debug().
		Int("messages", len(reg.ListMessages())).
		Int("enums", len(reg.ListEnums())).
		Msg("schemas loaded")

	c := vlsirwire.NewWithRegistry(reg)
	c.MarshalOptions = a.cfg.MarshalOptions()
	c.UnmarshalOptions = a.cfg.UnmarshalOptions()
	a.codec = c
	return c, nil
}

// messageType returns the --type flag value, falling back to the configured
// default.
func (a *app) messageType(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if a.cfg.MessageType != "" {
		return a.cfg.MessageType, nil
	}
	return "", errors.New("no message type: pass --type or set message_type in the config")
}

// readInput reads the named file, or standard input for "" and "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// layeredFS opens a name from the first layer that has it.
type layeredFS []fs.FS

func (l layeredFS) Open(name string) (fs.File, error) {
	for _, fsys := range l {
		f, err := fsys.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}
