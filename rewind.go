package rewind

import (
	"log/slog"
	"time"

	"github.com/dshills/rewind/internal/command"
	"github.com/dshills/rewind/internal/notify"
	"github.com/dshills/rewind/internal/registry"
	"github.com/dshills/rewind/internal/snapshot"
)

// Re-export commonly used types for convenience.
type (
	// Command is a reversible unit of effect tracked by the history.
	Command = command.Command

	// Mergeable marks commands that can fold with a neighboring command
	// into a single history entry.
	Mergeable = command.Mergeable

	// Payload is the serialized {kind, data} form of a command.
	Payload = command.Payload

	// Composite bundles an ordered sequence of commands into one entry.
	Composite = command.Composite

	// Factory builds a command for a registered kind. It receives nil
	// data for by-name execution and the payload's data when rebuilding
	// from serialized state.
	Factory = registry.Factory

	// Subscription identifies one registered listener.
	Subscription = notify.Subscription[State]
)

// CompositeKind tags the serialized form of a Composite.
const CompositeKind = command.CompositeKind

// NewComposite bundles cmds into a single command, preserving order.
func NewComposite(cmds ...Command) *Composite {
	return command.NewComposite(cmds...)
}

// NewPayload builds a Payload for kind, marshaling data as JSON.
func NewPayload(kind string, data any) (Payload, error) {
	return command.NewPayload(kind, data)
}

// State describes the history as reported to listeners, computed at
// notification time.
type State struct {
	CanUndo       bool
	CanRedo       bool
	UndoStackSize int
	RedoStackSize int
}

// guardState is the engine's reentrancy state machine.
type guardState uint8

const (
	stateIdle guardState = iota
	stateBusy
)

// History records executed commands and traverses them backward and
// forward. One History owns its stacks, registry, snapshot store, and
// listener set; nothing is shared between instances.
//
// A History is single-goroutine: hosts embedding it in concurrent code
// must serialize calls to one instance externally. The Idle/Busy guard
// only stops a command's own Execute or Undo from re-entering the engine
// while an operation is in flight.
type History struct {
	undoStack []command.Command
	redoStack []command.Command

	maxStackSize      int
	snapshotInterval  int
	compressThreshold int
	mergeWindow       time.Duration

	state    guardState
	lastExec time.Time
	now      func() time.Time

	transactions [][]command.Command

	registry  *registry.Registry
	snapshots *snapshot.Store
	notifier  *notify.Notifier[State]
	stats     *Stats
	report    func(error)
}

// New creates a History with the given options applied over defaults.
func New(opts ...Option) *History {
	h := &History{
		maxStackSize:      DefaultMaxStackSize,
		snapshotInterval:  DefaultSnapshotInterval,
		compressThreshold: DefaultCompressThreshold,
		mergeWindow:       DefaultMergeWindow,
		now:               time.Now,
		registry:          registry.New(),
		snapshots:         snapshot.New(),
		notifier:          notify.New[State](),
		stats:             newStats(),
	}
	h.report = func(err error) {
		slog.Default().Error("history operation failed", "error", err)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// ============================================================================
// State Accessors
// ============================================================================

// CanUndo reports whether at least one entry can be undone.
func (h *History) CanUndo() bool {
	return len(h.undoStack) > 0
}

// CanRedo reports whether at least one entry can be redone.
func (h *History) CanRedo() bool {
	return len(h.redoStack) > 0
}

// UndoCount returns the number of entries on the undo stack.
func (h *History) UndoCount() int {
	return len(h.undoStack)
}

// RedoCount returns the number of entries on the redo stack.
func (h *History) RedoCount() int {
	return len(h.redoStack)
}

// MaxStackSize returns the undo stack bound; 0 means unbounded.
func (h *History) MaxStackSize() int {
	return h.maxStackSize
}

// SetMaxStackSize changes the undo stack bound; 0 means unbounded.
// Shrinking below the current depth evicts the oldest entries.
func (h *History) SetMaxStackSize(n int) {
	if n < 0 {
		n = 0
	}
	h.maxStackSize = n
	h.evict()
}

// Clear drops both stacks and notifies listeners. Open transactions,
// snapshots, and registered factories are untouched. No-op while an
// operation is in flight.
func (h *History) Clear() {
	if h.state == stateBusy {
		return
	}
	h.undoStack = nil
	h.redoStack = nil
	h.notify()
}

// currentState computes the listener-visible state.
func (h *History) currentState() State {
	return State{
		CanUndo:       len(h.undoStack) > 0,
		CanRedo:       len(h.redoStack) > 0,
		UndoStackSize: len(h.undoStack),
		RedoStackSize: len(h.redoStack),
	}
}

func (h *History) notify() {
	h.notifier.Notify(h.currentState())
}

// evict trims the oldest undo entries while the stack exceeds its bound.
func (h *History) evict() {
	if h.maxStackSize <= 0 {
		return
	}
	if excess := len(h.undoStack) - h.maxStackSize; excess > 0 {
		h.undoStack = h.undoStack[excess:]
		h.stats.recordEvictions(uint64(excess))
	}
}

// ============================================================================
// Listeners
// ============================================================================

// AddListener registers fn to run after state-affecting operations. The
// returned subscription removes exactly this registration.
func (h *History) AddListener(fn func(State)) *Subscription {
	return h.notifier.Subscribe(fn)
}

// ListenerCount returns the number of registered listeners.
func (h *History) ListenerCount() int {
	return h.notifier.Len()
}

// ============================================================================
// Command Registry
// ============================================================================

// RegisterCommand installs factory for kind on this instance's registry.
// A later registration for the same kind replaces the earlier one.
func (h *History) RegisterCommand(kind string, factory Factory) {
	h.registry.Register(kind, factory)
}

// UnregisterCommand removes the factory for kind, if any.
func (h *History) UnregisterCommand(kind string) {
	h.registry.Unregister(kind)
}

// HasCommand reports whether kind has a registered factory.
func (h *History) HasCommand(kind string) bool {
	return h.registry.Has(kind)
}

// CommandKinds returns all registered kinds, sorted.
func (h *History) CommandKinds() []string {
	return h.registry.List()
}
