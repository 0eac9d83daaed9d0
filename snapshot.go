package rewind

import (
	"github.com/dshills/rewind/internal/snapshot"
)

// CreateSnapshot serializes both stacks and stores them keyed by the
// current undo depth, replacing any snapshot already held at that
// depth. The engine calls this automatically at the configured
// interval; hosts may call it directly at any time.
func (h *History) CreateSnapshot() error {
	undo, err := serializeStack(h.undoStack)
	if err != nil {
		return err
	}
	redo, err := serializeStack(h.redoStack)
	if err != nil {
		return err
	}

	h.snapshots.Put(&snapshot.Snapshot{
		Depth: len(h.undoStack),
		Undo:  undo,
		Redo:  redo,
		Taken: h.now(),
	})
	h.stats.recordSnapshot()
	return nil
}

// RecoverFromSnapshot restores both stacks from the stored snapshot
// with the greatest depth at or below the current undo depth. With no
// qualifying snapshot the stacks are left untouched. Listeners are
// notified whether or not a snapshot was applied. Rebuilding a command
// whose kind has no registered factory fails with ErrUnknownCommandType
// and replaces nothing.
func (h *History) RecoverFromSnapshot() error {
	return h.recover()
}

func (h *History) recover() error {
	snap, ok := h.snapshots.Nearest(len(h.undoStack))
	if !ok {
		h.notify()
		return nil
	}

	// Stage both stacks before committing either.
	undo, err := h.decodeStack(snap.Undo)
	if err != nil {
		return err
	}
	redo, err := h.decodeStack(snap.Redo)
	if err != nil {
		return err
	}

	h.undoStack = undo
	h.redoStack = redo
	h.stats.recordRecovery()

	h.notify()
	return nil
}

// SnapshotCount returns the number of stored snapshots.
func (h *History) SnapshotCount() int {
	return h.snapshots.Len()
}

// SnapshotDepths returns the stored snapshot depths, sorted ascending.
func (h *History) SnapshotDepths() []int {
	return h.snapshots.Depths()
}

// ClearSnapshots removes every stored snapshot.
func (h *History) ClearSnapshots() {
	h.snapshots.Clear()
}
