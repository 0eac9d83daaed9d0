package rewind

import (
	"errors"
	"testing"
	"time"
)

func TestExecuteRecords(t *testing.T) {
	var journal []string
	h := New()

	res, err := h.Execute(&testCmd{name: "a", journal: &journal, result: 42})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res != 42 {
		t.Errorf("result = %v, want 42", res)
	}
	if !h.CanUndo() || h.UndoCount() != 1 {
		t.Errorf("CanUndo = %v, UndoCount = %d, want recording", h.CanUndo(), h.UndoCount())
	}
	wantJournal(t, journal, "a.execute")
}

func TestExecuteNil(t *testing.T) {
	h := New()
	res, err := h.Execute(nil)
	if res != nil || err != nil {
		t.Errorf("Execute(nil) = (%v, %v), want no-op", res, err)
	}
	if h.CanUndo() {
		t.Error("nil command was recorded")
	}
}

func TestUndoRedoScenario(t *testing.T) {
	var journal []string
	h := New()
	for _, name := range []string{"a", "b", "c"} {
		h.Execute(&testCmd{name: name, journal: &journal})
	}

	if err := h.Undo(1); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if h.UndoCount() != 2 || h.RedoCount() != 1 {
		t.Fatalf("after undo: undo=%d redo=%d, want 2/1", h.UndoCount(), h.RedoCount())
	}

	if err := h.Redo(1); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if h.UndoCount() != 3 || h.RedoCount() != 0 {
		t.Fatalf("after redo: undo=%d redo=%d, want 3/0", h.UndoCount(), h.RedoCount())
	}

	wantJournal(t, journal,
		"a.execute", "b.execute", "c.execute",
		"c.undo", "c.execute")
}

func TestUndoEmptyNoOp(t *testing.T) {
	h := New()
	var calls int
	h.AddListener(func(State) { calls++ })

	if err := h.Undo(1); err != nil {
		t.Fatalf("Undo on empty: %v", err)
	}
	if err := h.Redo(1); err != nil {
		t.Fatalf("Redo on empty: %v", err)
	}
	if calls != 0 {
		t.Errorf("empty undo/redo notified %d times, want 0", calls)
	}
}

func TestUndoMultipleStepsBatchOrder(t *testing.T) {
	var journal []string
	h := New()
	for _, name := range []string{"a", "b", "c"} {
		h.Execute(&testCmd{name: name, journal: &journal})
	}
	journal = journal[:0]

	h.Undo(2)
	wantJournal(t, journal, "c.undo", "b.undo")
	if h.UndoCount() != 1 || h.RedoCount() != 2 {
		t.Fatalf("after undo(2): undo=%d redo=%d, want 1/2", h.UndoCount(), h.RedoCount())
	}

	// The moved batch keeps oldest-first order, so redo pops the batch
	// newest first.
	journal = journal[:0]
	h.Redo(2)
	wantJournal(t, journal, "c.execute", "b.execute")
	if h.UndoCount() != 3 || h.RedoCount() != 0 {
		t.Fatalf("after redo(2): undo=%d redo=%d, want 3/0", h.UndoCount(), h.RedoCount())
	}

	// Stack order is restored: undoing walks newest first again.
	journal = journal[:0]
	h.Undo(3)
	wantJournal(t, journal, "c.undo", "b.undo", "a.undo")
}

func TestUndoClampsSteps(t *testing.T) {
	var journal []string
	h := New()
	h.Execute(&testCmd{name: "a", journal: &journal})
	h.Execute(&testCmd{name: "b", journal: &journal})

	if err := h.Undo(10); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if h.UndoCount() != 0 || h.RedoCount() != 2 {
		t.Errorf("undo=%d redo=%d, want 0/2", h.UndoCount(), h.RedoCount())
	}

	if err := h.Undo(0); err != nil {
		t.Fatalf("Undo(0): %v", err)
	}
}

func TestUndoZeroStepsCountsAsOne(t *testing.T) {
	var journal []string
	h := New()
	h.Execute(&testCmd{name: "a", journal: &journal})
	h.Execute(&testCmd{name: "b", journal: &journal})
	journal = journal[:0]

	h.Undo(0)
	wantJournal(t, journal, "b.undo")
}

func TestExecuteClearsRedo(t *testing.T) {
	var journal []string
	h := New()
	h.Execute(&testCmd{name: "a", journal: &journal})
	h.Execute(&testCmd{name: "b", journal: &journal})
	h.Undo(1)
	if h.RedoCount() != 1 {
		t.Fatalf("RedoCount = %d, want 1", h.RedoCount())
	}

	h.Execute(&testCmd{name: "c", journal: &journal})
	if h.RedoCount() != 0 {
		t.Errorf("RedoCount after execute = %d, want 0", h.RedoCount())
	}
}

func TestEvictionOldestFirst(t *testing.T) {
	var journal []string
	h := New(WithMaxStackSize(2))
	for _, name := range []string{"a", "b", "c"} {
		h.Execute(&testCmd{name: name, journal: &journal})
	}

	if h.UndoCount() != 2 {
		t.Fatalf("UndoCount = %d, want 2", h.UndoCount())
	}

	journal = journal[:0]
	h.Undo(1)
	h.Undo(1)
	if h.CanUndo() {
		t.Error("CanUndo = true after undoing the whole stack")
	}
	// The oldest entry was evicted; only b and c remain to undo.
	wantJournal(t, journal, "c.undo", "b.undo")
}

func TestNotUndoableSkipsHistory(t *testing.T) {
	var journal []string
	h := New()

	var calls int
	h.AddListener(func(State) { calls++ })

	res, err := h.Execute(&testCmd{name: "a", journal: &journal}, NotUndoable())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res != "a" {
		t.Errorf("result = %v, want a", res)
	}
	if h.CanUndo() {
		t.Error("non-undoable execute was recorded")
	}
	if calls != 1 {
		t.Errorf("notifications = %d, want 1", calls)
	}
	wantJournal(t, journal, "a.execute")
}

func TestSilentSkipsNotification(t *testing.T) {
	var journal []string
	h := New()

	var calls int
	h.AddListener(func(State) { calls++ })

	h.Execute(&testCmd{name: "a", journal: &journal}, Silent())
	if calls != 0 {
		t.Errorf("notifications = %d, want 0", calls)
	}
	if !h.CanUndo() {
		t.Error("silent execute was not recorded")
	}
}

func TestExecuteNamed(t *testing.T) {
	var journal []string
	h := New()
	registerTestKinds(h, &journal)

	res, err := h.ExecuteNamed("test")
	if err != nil {
		t.Fatalf("ExecuteNamed: %v", err)
	}
	if res != "" {
		t.Errorf("result = %v, want empty name result", res)
	}
	if h.UndoCount() != 1 {
		t.Errorf("UndoCount = %d, want 1", h.UndoCount())
	}
}

func TestExecuteNamedUnknown(t *testing.T) {
	h := New()
	_, err := h.ExecuteNamed("missing")
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("error = %v, want ErrUnknownCommand", err)
	}
	if h.CanUndo() {
		t.Error("unknown command changed state")
	}
}

func TestExecutionFailure(t *testing.T) {
	boom := errors.New("boom")
	var reports []error
	var journal []string
	h := New(quietReporter(&reports))

	h.Execute(&testCmd{name: "a", journal: &journal})
	_, err := h.Execute(&testCmd{name: "bad", journal: &journal, execErr: boom})

	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped %v", err, boom)
	}
	if len(reports) != 1 || !errors.Is(reports[0], boom) {
		t.Errorf("reports = %v, want the execute failure", reports)
	}
	if h.UndoCount() != 1 {
		t.Errorf("UndoCount = %d, want 1 (failed command not recorded)", h.UndoCount())
	}

	// The guard is released; the engine keeps working.
	if _, err := h.Execute(&testCmd{name: "b", journal: &journal}); err != nil {
		t.Fatalf("Execute after failure: %v", err)
	}
	if h.UndoCount() != 2 {
		t.Errorf("UndoCount = %d, want 2", h.UndoCount())
	}
}

// reenterCmd drives the engine from inside its own Execute.
type reenterCmd struct {
	h     *History
	inner Command
}

func (c *reenterCmd) Execute() (any, error) {
	res, err := c.h.Execute(c.inner)
	return []any{res, err}, nil
}

func (c *reenterCmd) Undo() error { return nil }

func (c *reenterCmd) Serialize() (Payload, error) {
	return NewPayload("reenter", nil)
}

func TestReentrantExecuteNoOp(t *testing.T) {
	var journal []string
	h := New()

	res, err := h.Execute(&reenterCmd{h: h, inner: &testCmd{name: "inner", journal: &journal}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	pair := res.([]any)
	if pair[0] != nil || pair[1] != nil {
		t.Errorf("inner Execute = (%v, %v), want no-op", pair[0], pair[1])
	}
	if h.UndoCount() != 1 {
		t.Errorf("UndoCount = %d, want 1 (outer only)", h.UndoCount())
	}
	wantJournal(t, journal)
}

// undoReenterCmd drives the engine from inside its own Undo.
type undoReenterCmd struct {
	h       *History
	journal *[]string
}

func (c *undoReenterCmd) Execute() (any, error) {
	*c.journal = append(*c.journal, "outer.execute")
	return nil, nil
}

func (c *undoReenterCmd) Undo() error {
	*c.journal = append(*c.journal, "outer.undo")
	c.h.Redo(1)
	return nil
}

func (c *undoReenterCmd) Serialize() (Payload, error) {
	return NewPayload("undo-reenter", nil)
}

func TestReentrantUndoNoOp(t *testing.T) {
	var journal []string
	h := New()

	h.Execute(&undoReenterCmd{h: h, journal: &journal})
	h.Undo(1)

	wantJournal(t, journal, "outer.execute", "outer.undo")
	if h.UndoCount() != 0 || h.RedoCount() != 1 {
		t.Errorf("undo=%d redo=%d, want 0/1", h.UndoCount(), h.RedoCount())
	}
}

// ============================================================================
// Merge window
// ============================================================================

func TestMergeWithinWindow(t *testing.T) {
	h := New(WithMergeWindow(time.Second))
	base := time.Now()
	h.now = func() time.Time { return base }

	h.Execute(&concatCmd{text: "a"})
	h.Execute(&concatCmd{text: "b"})

	if h.UndoCount() != 1 {
		t.Fatalf("UndoCount = %d, want 1 (merged)", h.UndoCount())
	}
	// The newer command absorbs the previous top.
	top := h.undoStack[0].(*concatCmd)
	if top.text != "ba" {
		t.Errorf("merged text = %q, want %q", top.text, "ba")
	}
}

func TestMergeOutsideWindow(t *testing.T) {
	h := New(WithMergeWindow(time.Second))
	base := time.Now()
	h.now = func() time.Time { return base }

	h.Execute(&concatCmd{text: "a"})
	h.now = func() time.Time { return base.Add(2 * time.Second) }
	h.Execute(&concatCmd{text: "b"})

	if h.UndoCount() != 2 {
		t.Errorf("UndoCount = %d, want 2 (no merge)", h.UndoCount())
	}
}

func TestMergeAtWindowBoundary(t *testing.T) {
	h := New(WithMergeWindow(time.Second))
	base := time.Now()
	h.now = func() time.Time { return base }

	h.Execute(&concatCmd{text: "a"})
	h.now = func() time.Time { return base.Add(time.Second) }
	h.Execute(&concatCmd{text: "b"})

	// Elapsed time equal to the window does not merge; the window is
	// strictly less-than.
	if h.UndoCount() != 2 {
		t.Errorf("UndoCount = %d, want 2", h.UndoCount())
	}
}

func TestMergeClearsRedo(t *testing.T) {
	h := New(WithMergeWindow(time.Second))
	base := time.Now()
	h.now = func() time.Time { return base }

	h.Execute(&concatCmd{text: "a"})
	h.Execute(&concatCmd{text: "b"})
	h.Undo(1)
	if h.RedoCount() != 1 {
		t.Fatalf("RedoCount = %d, want 1", h.RedoCount())
	}

	// Stack is empty after the undo, so this pushes rather than merges,
	// and the redo stack clears either way.
	h.Execute(&concatCmd{text: "c"})
	if h.RedoCount() != 0 {
		t.Errorf("RedoCount = %d, want 0", h.RedoCount())
	}
}

func TestNoMergeForNonMergeable(t *testing.T) {
	var journal []string
	h := New(WithMergeWindow(time.Second))
	base := time.Now()
	h.now = func() time.Time { return base }

	h.Execute(&testCmd{name: "a", journal: &journal})
	h.Execute(&testCmd{name: "b", journal: &journal})

	if h.UndoCount() != 2 {
		t.Errorf("UndoCount = %d, want 2", h.UndoCount())
	}
}

func TestNoMergeAcrossKinds(t *testing.T) {
	var journal []string
	h := New(WithMergeWindow(time.Second))
	base := time.Now()
	h.now = func() time.Time { return base }

	h.Execute(&testCmd{name: "a", journal: &journal})
	h.Execute(&concatCmd{text: "b"})

	// The newer command is mergeable but rejects the non-concat top.
	if h.UndoCount() != 2 {
		t.Errorf("UndoCount = %d, want 2", h.UndoCount())
	}
}

func TestMergeDisabledByZeroWindow(t *testing.T) {
	h := New(WithMergeWindow(0))
	base := time.Now()
	h.now = func() time.Time { return base }

	h.Execute(&concatCmd{text: "a"})
	h.Execute(&concatCmd{text: "b"})

	if h.UndoCount() != 2 {
		t.Errorf("UndoCount = %d, want 2", h.UndoCount())
	}
}

func TestMergedEntryUndoesAsOne(t *testing.T) {
	h := New(WithMergeWindow(time.Second))
	base := time.Now()
	h.now = func() time.Time { return base }

	h.Execute(&concatCmd{text: "a"})
	h.Execute(&concatCmd{text: "b"})
	h.Undo(1)

	if h.CanUndo() {
		t.Error("CanUndo = true, want merged entry to undo as one")
	}
	if h.RedoCount() != 1 {
		t.Errorf("RedoCount = %d, want 1", h.RedoCount())
	}
}
