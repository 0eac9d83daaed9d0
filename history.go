package rewind

import (
	"fmt"
	"time"

	"github.com/dshills/rewind/internal/command"
)

// execConfig carries per-call execution options.
type execConfig struct {
	silent   bool
	undoable bool
}

// ExecOption adjusts how a single Execute call behaves.
type ExecOption func(*execConfig)

// Silent suppresses the listener notification for this call.
func Silent() ExecOption {
	return func(c *execConfig) { c.silent = true }
}

// NotUndoable runs the command without recording it in history.
func NotUndoable() ExecOption {
	return func(c *execConfig) { c.undoable = false }
}

func applyExecOpts(opts []ExecOption) execConfig {
	cfg := execConfig{undoable: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// ============================================================================
// Execute
// ============================================================================

// Execute runs cmd and records it on the undo stack.
//
// While an operation is in flight the call is a no-op. While a
// transaction is open the command is collected into the innermost group
// and not run until the outermost commit. A recorded execute clears the
// redo stack, may merge into the previous entry when inside the merge
// window, evicts the oldest entry past the stack bound, and triggers
// snapshots and compression at their configured cadence.
//
// An error from cmd.Execute is reported and returned; nothing is
// recorded for the failing command.
func (h *History) Execute(cmd Command, opts ...ExecOption) (any, error) {
	if cmd == nil || h.state == stateBusy {
		return nil, nil
	}

	if n := len(h.transactions); n > 0 {
		h.transactions[n-1] = append(h.transactions[n-1], cmd)
		return nil, nil
	}

	return h.run(cmd, applyExecOpts(opts))
}

// ExecuteNamed resolves name through the registry and executes the
// resulting command. The factory is invoked with nil data.
func (h *History) ExecuteNamed(name string, opts ...ExecOption) (any, error) {
	if h.state == stateBusy {
		return nil, nil
	}

	factory, ok := h.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	cmd, err := factory(nil)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	return h.Execute(cmd, opts...)
}

// run executes cmd under the guard and applies history policy.
func (h *History) run(cmd Command, cfg execConfig) (any, error) {
	h.state = stateBusy
	defer func() { h.state = stateIdle }()

	start := time.Now()
	result, err := cmd.Execute()
	if err != nil {
		h.stats.recordFailure(opExecute)
		err = fmt.Errorf("execute: %w", err)
		h.report(err)
		return nil, err
	}
	h.stats.recordOp(opExecute, time.Since(start))

	if cfg.undoable {
		h.record(cmd)
	}
	if !cfg.silent {
		h.notify()
	}
	return result, nil
}

// record pushes cmd, or merges it into the stack top when the previous
// undoable execute landed inside the merge window, then applies the
// eviction, snapshot, and compression policies.
func (h *History) record(cmd Command) {
	now := h.now()

	merged := false
	if len(h.undoStack) > 0 && now.Sub(h.lastExec) < h.mergeWindow {
		if m, ok := cmd.(Mergeable); ok {
			top := h.undoStack[len(h.undoStack)-1]
			if m.CanMerge(top) {
				h.undoStack[len(h.undoStack)-1] = m.Merge(top)
				h.stats.recordMerge()
				merged = true
			}
		}
	}
	if !merged {
		h.undoStack = append(h.undoStack, cmd)
	}

	h.redoStack = nil
	h.lastExec = now

	h.evict()

	if h.snapshotInterval > 0 && len(h.undoStack)%h.snapshotInterval == 0 {
		if err := h.CreateSnapshot(); err != nil {
			h.report(fmt.Errorf("snapshot: %w", err))
		}
	}

	if h.compressThreshold > 0 && len(h.undoStack) > h.compressThreshold {
		h.CompressHistory()
	}
}

// ============================================================================
// Undo / Redo
// ============================================================================

// Undo reverses up to steps entries, most recent first, moving the
// batch to the redo stack in its original oldest-first order. Steps
// below 1 count as 1. No-op while an operation is in flight or when
// there is nothing to undo.
//
// A failing Undo is reported, not returned; the engine then recovers
// from the nearest snapshot at or below the current depth and notifies
// either way. The failed entry stays popped unless a snapshot restores
// it. The returned error is non-nil only when recovery itself fails to
// rebuild a command.
func (h *History) Undo(steps int) error {
	if h.state == stateBusy || len(h.undoStack) == 0 {
		return nil
	}
	if steps < 1 {
		steps = 1
	}
	if steps > len(h.undoStack) {
		steps = len(h.undoStack)
	}

	h.state = stateBusy
	defer func() { h.state = stateIdle }()

	batch := make([]command.Command, 0, steps)
	for i := 0; i < steps; i++ {
		n := len(h.undoStack) - 1
		cmd := h.undoStack[n]
		h.undoStack = h.undoStack[:n]

		start := time.Now()
		if err := cmd.Undo(); err != nil {
			h.stats.recordFailure(opUndo)
			h.report(fmt.Errorf("undo: %w", err))
			return h.recover()
		}
		h.stats.recordOp(opUndo, time.Since(start))
		batch = append(batch, cmd)
	}

	// Move the batch preserving its original oldest-first order.
	for i := len(batch) - 1; i >= 0; i-- {
		h.redoStack = append(h.redoStack, batch[i])
	}

	h.notify()
	return nil
}

// Redo re-applies up to steps entries by invoking their Execute again,
// moving the batch back to the undo stack in its original oldest-first
// order. Guard, clamping, and failure behavior match Undo.
func (h *History) Redo(steps int) error {
	if h.state == stateBusy || len(h.redoStack) == 0 {
		return nil
	}
	if steps < 1 {
		steps = 1
	}
	if steps > len(h.redoStack) {
		steps = len(h.redoStack)
	}

	h.state = stateBusy
	defer func() { h.state = stateIdle }()

	batch := make([]command.Command, 0, steps)
	for i := 0; i < steps; i++ {
		n := len(h.redoStack) - 1
		cmd := h.redoStack[n]
		h.redoStack = h.redoStack[:n]

		start := time.Now()
		if _, err := cmd.Execute(); err != nil {
			h.stats.recordFailure(opRedo)
			h.report(fmt.Errorf("redo: %w", err))
			return h.recover()
		}
		h.stats.recordOp(opRedo, time.Since(start))
		batch = append(batch, cmd)
	}

	for i := len(batch) - 1; i >= 0; i-- {
		h.undoStack = append(h.undoStack, batch[i])
	}

	h.notify()
	return nil
}
