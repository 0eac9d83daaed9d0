package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/rewind"
)

// Errors returned by configuration operations.
var (
	// ErrInvalidValue indicates a setting holds a value outside its
	// allowed range.
	ErrInvalidValue = errors.New("invalid config value")
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "REWIND_"

// Config holds the engine and tooling settings. Zero values for the
// numeric fields mean unbounded or disabled, matching the engine's
// option semantics.
type Config struct {
	MaxStackSize      int   `toml:"max_stack_size"`
	SnapshotInterval  int   `toml:"snapshot_interval"`
	CompressThreshold int   `toml:"compress_threshold"`
	MergeWindowMS     int64 `toml:"merge_window_ms"`

	LogLevel  string `toml:"log_level"`
	StorePath string `toml:"store_path"`
	ScriptDir string `toml:"script_dir"`
}

// Default returns the configuration mirroring the engine defaults.
func Default() *Config {
	return &Config{
		MaxStackSize:      rewind.DefaultMaxStackSize,
		SnapshotInterval:  rewind.DefaultSnapshotInterval,
		CompressThreshold: rewind.DefaultCompressThreshold,
		MergeWindowMS:     rewind.DefaultMergeWindow.Milliseconds(),
		LogLevel:          "info",
	}
}

// Load builds a configuration from defaults, the TOML file at path, and
// environment overrides, in that order. A missing file is not an error;
// an empty path skips the file layer entirely.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// File layer is optional.
		case err != nil:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, c); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyEnv overlays REWIND_-prefixed environment variables.
func (c *Config) applyEnv() error {
	ints := map[string]*int{
		"MAX_STACK_SIZE":     &c.MaxStackSize,
		"SNAPSHOT_INTERVAL":  &c.SnapshotInterval,
		"COMPRESS_THRESHOLD": &c.CompressThreshold,
	}
	for name, dst := range ints {
		val, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q", ErrInvalidValue, EnvPrefix, name, val)
		}
		*dst = n
	}

	if val, ok := os.LookupEnv(EnvPrefix + "MERGE_WINDOW_MS"); ok {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %sMERGE_WINDOW_MS=%q", ErrInvalidValue, EnvPrefix, val)
		}
		c.MergeWindowMS = n
	}

	strs := map[string]*string{
		"LOG_LEVEL":  &c.LogLevel,
		"STORE_PATH": &c.StorePath,
		"SCRIPT_DIR": &c.ScriptDir,
	}
	for name, dst := range strs {
		if val, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = val
		}
	}
	return nil
}

// Validate checks every setting against its allowed range.
func (c *Config) Validate() error {
	if c.MaxStackSize < 0 {
		return fmt.Errorf("%w: max_stack_size %d", ErrInvalidValue, c.MaxStackSize)
	}
	if c.SnapshotInterval < 0 {
		return fmt.Errorf("%w: snapshot_interval %d", ErrInvalidValue, c.SnapshotInterval)
	}
	if c.CompressThreshold < 0 {
		return fmt.Errorf("%w: compress_threshold %d", ErrInvalidValue, c.CompressThreshold)
	}
	if c.MergeWindowMS < 0 {
		return fmt.Errorf("%w: merge_window_ms %d", ErrInvalidValue, c.MergeWindowMS)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidValue, c.LogLevel)
	}
	return nil
}

// MergeWindow returns the merge window as a duration.
func (c *Config) MergeWindow() time.Duration {
	return time.Duration(c.MergeWindowMS) * time.Millisecond
}

// SlogLevel maps the configured log level to its slog value.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Options converts the engine settings to history options.
func (c *Config) Options() []rewind.Option {
	return []rewind.Option{
		rewind.WithMaxStackSize(c.MaxStackSize),
		rewind.WithSnapshotInterval(c.SnapshotInterval),
		rewind.WithCompressThreshold(c.CompressThreshold),
		rewind.WithMergeWindow(c.MergeWindow()),
	}
}
