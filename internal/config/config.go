// Package config loads the vlsirwire command configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/vlsir/vlsirwire/codec"
	"github.com/vlsir/vlsirwire/internal/logging"
)

// Config is the resolved command configuration.
type Config struct {
	// ProtoDirs are the import roots for Files.
	ProtoDirs []string
	// Files are loaded relative to ProtoDirs.
	Files []string
	// Bundle loads the embedded Vlsir schema set in addition to Files.
	Bundle bool
	// MessageType is used when a command is not given one.
	MessageType  string
	SafeIntegers bool
	MaxDepth     int
	LogLevel     string
}

type fileConfig struct {
	ProtoDirs    []string `toml:"proto_dirs"`
	Files        []string `toml:"files"`
	Bundle       bool     `toml:"bundle"`
	MessageType  string   `toml:"message_type"`
	SafeIntegers bool     `toml:"safe_integers"`
	MaxDepth     int      `toml:"max_depth"`
	LogLevel     string   `toml:"log_level"`
}

func Default() Config {
	return Config{
		Bundle:   true,
		MaxDepth: codec.DefaultMaxDepth,
		LogLevel: "info",
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default values; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("load config: unknown keys: %s", strings.Join(keys, ", "))
	}

	if meta.IsDefined("proto_dirs") {
		cfg.ProtoDirs = normalize(raw.ProtoDirs)
	}
	if meta.IsDefined("files") {
		cfg.Files = normalize(raw.Files)
	}
	if meta.IsDefined("bundle") {
		cfg.Bundle = raw.Bundle
	}
	if meta.IsDefined("message_type") {
		cfg.MessageType = strings.TrimSpace(raw.MessageType)
	}
	if meta.IsDefined("safe_integers") {
		cfg.SafeIntegers = raw.SafeIntegers
	}
	if meta.IsDefined("max_depth") {
		cfg.MaxDepth = raw.MaxDepth
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if len(c.Files) > 0 && len(c.ProtoDirs) == 0 {
		return errors.New("files require at least one entry in proto_dirs")
	}
	return nil
}

// UnmarshalOptions returns the decode options the configuration selects.
func (c Config) UnmarshalOptions() codec.UnmarshalOptions {
	return codec.UnmarshalOptions{SafeIntegers: c.SafeIntegers, MaxDepth: c.MaxDepth}
}

func (c Config) MarshalOptions() codec.MarshalOptions {
	return codec.MarshalOptions{MaxDepth: c.MaxDepth}
}

func normalize(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
