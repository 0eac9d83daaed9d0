package rewind

import (
	"log/slog"
	"time"
)

// Default configuration values.
const (
	// DefaultMaxStackSize leaves the undo stack unbounded.
	DefaultMaxStackSize = 0

	// DefaultSnapshotInterval snapshots every 10 undoable executes.
	DefaultSnapshotInterval = 10

	// DefaultCompressThreshold compresses once the undo depth passes 100.
	DefaultCompressThreshold = 100

	// DefaultMergeWindow folds rapid executes landing within one second.
	DefaultMergeWindow = time.Second
)

// Option configures a History at construction.
type Option func(*History)

// WithMaxStackSize bounds the undo stack to n entries; overflow evicts
// the oldest entry first. 0 means unbounded. Negative values are ignored.
func WithMaxStackSize(n int) Option {
	return func(h *History) {
		if n >= 0 {
			h.maxStackSize = n
		}
	}
}

// WithSnapshotInterval creates a snapshot whenever the undo depth is a
// positive multiple of n. 0 disables automatic snapshots. Negative
// values are ignored.
func WithSnapshotInterval(n int) Option {
	return func(h *History) {
		if n >= 0 {
			h.snapshotInterval = n
		}
	}
}

// WithCompressThreshold compresses the undo stack once its depth exceeds
// n. 0 disables automatic compression. Negative values are ignored.
func WithCompressThreshold(n int) Option {
	return func(h *History) {
		if n >= 0 {
			h.compressThreshold = n
		}
	}
}

// WithMergeWindow sets the window within which consecutive undoable
// executes may merge. 0 disables merging. Negative values are ignored.
func WithMergeWindow(d time.Duration) Option {
	return func(h *History) {
		if d >= 0 {
			h.mergeWindow = d
		}
	}
}

// WithReporter sets the hook that receives reported failures: command
// errors during undo/redo, abort-time undo errors, and automatic
// snapshot failures.
func WithReporter(fn func(error)) Option {
	return func(h *History) {
		if fn != nil {
			h.report = fn
		}
	}
}

// WithLogger reports failures through logger instead of slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(h *History) {
		if logger == nil {
			return
		}
		h.report = func(err error) {
			logger.Error("history operation failed", "error", err)
		}
	}
}
