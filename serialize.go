package rewind

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/rewind/internal/command"
)

// ExportedState is the transportable form of a History: both stacks as
// serialized payloads plus the configuration. MergeWindow is carried in
// milliseconds; MaxStackSize 0 means unbounded.
type ExportedState struct {
	UndoStack         []command.Payload `json:"undoStack"`
	RedoStack         []command.Payload `json:"redoStack"`
	MaxStackSize      int               `json:"maxStackSize"`
	SnapshotInterval  int               `json:"snapshotInterval"`
	CompressThreshold int               `json:"compressThreshold"`
	MergeWindow       int64             `json:"mergeWindow"`
}

// ExportState serializes every command on both stacks along with the
// current configuration.
func (h *History) ExportState() (*ExportedState, error) {
	undo, err := serializeStack(h.undoStack)
	if err != nil {
		return nil, err
	}
	redo, err := serializeStack(h.redoStack)
	if err != nil {
		return nil, err
	}

	return &ExportedState{
		UndoStack:         undo,
		RedoStack:         redo,
		MaxStackSize:      h.maxStackSize,
		SnapshotInterval:  h.snapshotInterval,
		CompressThreshold: h.compressThreshold,
		MergeWindow:       h.mergeWindow.Milliseconds(),
	}, nil
}

// ImportState replaces both stacks with the state's payloads rebuilt
// through the registry and applies its configuration fields, keeping the
// current value for any field left at zero. Both stacks are staged fully
// before either is committed, so a failed import mutates nothing.
// Transient state resets: the guard returns to idle, the merge clock and
// transaction stack clear, and stored snapshots are dropped.
func (h *History) ImportState(st *ExportedState) error {
	if st == nil {
		return fmt.Errorf("%w: nil state", ErrInvalidState)
	}

	undo, err := h.decodeStack(st.UndoStack)
	if err != nil {
		return err
	}
	redo, err := h.decodeStack(st.RedoStack)
	if err != nil {
		return err
	}

	h.undoStack = undo
	h.redoStack = redo

	if st.MaxStackSize > 0 {
		h.maxStackSize = st.MaxStackSize
	}
	if st.SnapshotInterval > 0 {
		h.snapshotInterval = st.SnapshotInterval
	}
	if st.CompressThreshold > 0 {
		h.compressThreshold = st.CompressThreshold
	}
	if st.MergeWindow > 0 {
		h.mergeWindow = time.Duration(st.MergeWindow) * time.Millisecond
	}

	h.state = stateIdle
	h.lastExec = time.Time{}
	h.transactions = nil
	h.snapshots.Clear()
	return nil
}

// Serialize encodes the exported state as JSON.
func (h *History) Serialize() ([]byte, error) {
	st, err := h.ExportState()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("serialize state: %w", err)
	}
	return data, nil
}

// Deserialize validates data as a serialized state document and imports
// it, with ImportState's staging and failure semantics. Malformed input
// fails with ErrInvalidState.
func (h *History) Deserialize(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: not valid JSON", ErrInvalidState)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return fmt.Errorf("%w: expected an object", ErrInvalidState)
	}
	for _, key := range []string{"undoStack", "redoStack"} {
		if field := root.Get(key); field.Exists() && !field.IsArray() {
			return fmt.Errorf("%w: %s must be an array", ErrInvalidState, key)
		}
	}

	var st ExportedState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return h.ImportState(&st)
}

// serializeStack converts a command stack to its payload form.
func serializeStack(cmds []command.Command) ([]command.Payload, error) {
	payloads := make([]command.Payload, 0, len(cmds))
	for _, cmd := range cmds {
		p, err := cmd.Serialize()
		if err != nil {
			return nil, fmt.Errorf("serialize command: %w", err)
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}

// decodeStack rebuilds a command stack from its payload form.
func (h *History) decodeStack(payloads []command.Payload) ([]command.Command, error) {
	cmds := make([]command.Command, 0, len(payloads))
	for _, p := range payloads {
		cmd, err := h.decodePayload(p)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

// decodePayload rebuilds one command. The composite kind is handled
// intrinsically; every other kind resolves through the registry.
func (h *History) decodePayload(p command.Payload) (command.Command, error) {
	if p.Kind == command.CompositeKind {
		var subs []command.Payload
		if err := json.Unmarshal(p.Data, &subs); err != nil {
			return nil, fmt.Errorf("decode composite: %w", err)
		}
		cmds, err := h.decodeStack(subs)
		if err != nil {
			return nil, err
		}
		return command.NewComposite(cmds...), nil
	}

	factory, ok := h.registry.Get(p.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommandType, p.Kind)
	}
	cmd, err := factory(p.Data)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", p.Kind, err)
	}
	return cmd, nil
}
