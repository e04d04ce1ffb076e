// Package config loads codetrace.toml, found by walking up from a start
// directory. Every key is optional; command-line flags override them.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"

	"codetrace/internal/phasetrace"
	"codetrace/internal/traceio"
)

// FileName is the configuration file looked up by Find.
const FileName = "codetrace.toml"

type Config struct {
	Log     LogConfig     `toml:"log"`
	Convert ConvertConfig `toml:"convert"`
	Format  FormatConfig  `toml:"format"`
	Trace   TraceConfig   `toml:"trace"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type ConvertConfig struct {
	OutputFormat string `toml:"output_format"`
}

type FormatConfig struct {
	RelativePaths *bool `toml:"relative_paths"`
}

// TraceConfig holds defaults for the --trace and --trace-level flags.
type TraceConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
}

// Default returns the settings used when no file is found.
func Default() Config {
	relative := true
	return Config{
		Log:    LogConfig{Level: "warn"},
		Format: FormatConfig{RelativePaths: &relative},
	}
}

// LogLevel parses [log].level.
func (c Config) LogLevel() (zapcore.Level, error) {
	return ParseLevel(c.Log.Level)
}

// ParseLevel accepts zap level names; empty means warn.
func ParseLevel(s string) (zapcore.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return zapcore.WarnLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// OutputFormat parses [convert].output_format. ok is false when unset.
func (c Config) OutputFormat() (traceio.Format, bool, error) {
	if strings.TrimSpace(c.Convert.OutputFormat) == "" {
		return 0, false, nil
	}
	f, err := traceio.ParseFormat(c.Convert.OutputFormat)
	if err != nil {
		return 0, false, err
	}
	return f, true, nil
}

func (c Config) RelativePaths() bool {
	return c.Format.RelativePaths == nil || *c.Format.RelativePaths
}

// Find returns the nearest codetrace.toml at or above startDir.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load parses path on top of Default and validates the values.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if _, err := cfg.LogLevel(); err != nil {
		return Config{}, fmt.Errorf("%s: [log].level: %w", path, err)
	}
	if _, _, err := cfg.OutputFormat(); err != nil {
		return Config{}, fmt.Errorf("%s: [convert].output_format: %w", path, err)
	}
	if _, err := phasetrace.ParseLevel(cfg.Trace.Level); err != nil {
		return Config{}, fmt.Errorf("%s: [trace].level: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the nearest codetrace.toml, or Default when none exists.
// The returned path is empty in the latter case.
func Discover(startDir string) (Config, string, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, "", err
	}
	return cfg, path, nil
}
