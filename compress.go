package rewind

import (
	"github.com/dshills/rewind/internal/command"
)

// CompressHistory rewrites the undo stack by folding maximal adjacent
// mergeable runs into single entries, preserving relative order. Walking
// oldest to newest, each command folds into a running accumulator while
// the accumulator's CanMerge accepts it; otherwise the accumulator is
// flushed and the command starts the next run.
//
// The engine runs this automatically once the undo depth exceeds the
// compress threshold; hosts may call it directly at any time.
func (h *History) CompressHistory() {
	if len(h.undoStack) < 2 {
		return
	}

	compressed := make([]command.Command, 0, len(h.undoStack))
	acc := h.undoStack[0]
	for _, next := range h.undoStack[1:] {
		if m, ok := acc.(Mergeable); ok && m.CanMerge(next) {
			acc = m.Merge(next)
			continue
		}
		compressed = append(compressed, acc)
		acc = next
	}
	compressed = append(compressed, acc)

	if len(compressed) < len(h.undoStack) {
		h.stats.recordCompression()
	}
	h.undoStack = compressed
}
