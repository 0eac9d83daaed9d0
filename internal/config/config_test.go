package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/rewind"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rewind.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	if c.MaxStackSize != rewind.DefaultMaxStackSize {
		t.Errorf("MaxStackSize = %d, want %d", c.MaxStackSize, rewind.DefaultMaxStackSize)
	}
	if c.SnapshotInterval != rewind.DefaultSnapshotInterval {
		t.Errorf("SnapshotInterval = %d, want %d", c.SnapshotInterval, rewind.DefaultSnapshotInterval)
	}
	if c.CompressThreshold != rewind.DefaultCompressThreshold {
		t.Errorf("CompressThreshold = %d, want %d", c.CompressThreshold, rewind.DefaultCompressThreshold)
	}
	if c.MergeWindow() != rewind.DefaultMergeWindow {
		t.Errorf("MergeWindow = %v, want %v", c.MergeWindow(), rewind.DefaultMergeWindow)
	}
	if c.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", c.LogLevel)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.SnapshotInterval != rewind.DefaultSnapshotInterval {
		t.Errorf("SnapshotInterval = %d, want default", c.SnapshotInterval)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.MergeWindowMS != rewind.DefaultMergeWindow.Milliseconds() {
		t.Errorf("MergeWindowMS = %d, want default", c.MergeWindowMS)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
max_stack_size = 50
snapshot_interval = 5
compress_threshold = 20
merge_window_ms = 250
log_level = "debug"
store_path = "/tmp/rewind.db"
script_dir = "scripts"
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.MaxStackSize != 50 || c.SnapshotInterval != 5 || c.CompressThreshold != 20 {
		t.Errorf("numeric fields = %d/%d/%d, want 50/5/20",
			c.MaxStackSize, c.SnapshotInterval, c.CompressThreshold)
	}
	if c.MergeWindow() != 250*time.Millisecond {
		t.Errorf("MergeWindow = %v, want 250ms", c.MergeWindow())
	}
	if c.LogLevel != "debug" || c.StorePath != "/tmp/rewind.db" || c.ScriptDir != "scripts" {
		t.Errorf("string fields = %q/%q/%q", c.LogLevel, c.StorePath, c.ScriptDir)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `max_stack_size = 9`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.MaxStackSize != 9 {
		t.Errorf("MaxStackSize = %d, want 9", c.MaxStackSize)
	}
	if c.SnapshotInterval != rewind.DefaultSnapshotInterval {
		t.Errorf("SnapshotInterval = %d, want default", c.SnapshotInterval)
	}
}

func TestLoadParseError(t *testing.T) {
	path := writeConfig(t, `max_stack_size = "not a number`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted malformed TOML")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
max_stack_size = 50
log_level = "warn"
`)
	t.Setenv("REWIND_MAX_STACK_SIZE", "75")
	t.Setenv("REWIND_LOG_LEVEL", "error")
	t.Setenv("REWIND_MERGE_WINDOW_MS", "100")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.MaxStackSize != 75 {
		t.Errorf("MaxStackSize = %d, want 75 from env", c.MaxStackSize)
	}
	if c.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error from env", c.LogLevel)
	}
	if c.MergeWindowMS != 100 {
		t.Errorf("MergeWindowMS = %d, want 100 from env", c.MergeWindowMS)
	}
}

func TestEnvInvalidInt(t *testing.T) {
	t.Setenv("REWIND_SNAPSHOT_INTERVAL", "often")

	_, err := Load("")
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("error = %v, want ErrInvalidValue", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero values", func(c *Config) {
			c.MaxStackSize = 0
			c.SnapshotInterval = 0
			c.CompressThreshold = 0
			c.MergeWindowMS = 0
		}, false},
		{"negative stack size", func(c *Config) { c.MaxStackSize = -1 }, true},
		{"negative interval", func(c *Config) { c.SnapshotInterval = -1 }, true},
		{"negative threshold", func(c *Config) { c.CompressThreshold = -1 }, true},
		{"negative window", func(c *Config) { c.MergeWindowMS = -1 }, true},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"empty log level", func(c *Config) { c.LogLevel = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidValue) {
				t.Errorf("error = %v, want ErrInvalidValue", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		c := &Config{LogLevel: tt.level}
		if got := c.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestOptionsApply(t *testing.T) {
	c := Default()
	c.MaxStackSize = 12

	h := rewind.New(c.Options()...)
	if h.MaxStackSize() != 12 {
		t.Errorf("MaxStackSize = %d, want 12", h.MaxStackSize())
	}
}
