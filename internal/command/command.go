package command

import (
	"encoding/json"
	"fmt"
)

// Command represents a reversible unit of effect that can be executed,
// undone, and rebuilt from its serialized form.
type Command interface {
	// Execute applies the command's effect and returns its result.
	// Execute must be safe to invoke more than once; redo re-invokes it.
	Execute() (any, error)

	// Undo reverses the most recent Execute.
	Undo() error

	// Serialize returns a tagged payload a registry factory can rebuild
	// an equivalent command from.
	Serialize() (Payload, error)
}

// Mergeable is an optional capability for commands that can fold with a
// neighbor into a single history entry. Commands that do not implement
// it never merge.
type Mergeable interface {
	Command

	// CanMerge reports whether this command can absorb other.
	CanMerge(other Command) bool

	// Merge returns a command representing the combined effect of this
	// command and other. Merge is not commutative: when a fresh execute
	// merges, the newer command absorbs the previous stack top; when
	// compression merges, the older accumulator absorbs the next command.
	Merge(other Command) Command
}

// Payload is the wire form of a command: a kind tag resolvable through a
// registry plus the data its factory needs to rebuild the command.
type Payload struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// NewPayload builds a Payload for kind, marshaling data as JSON.
func NewPayload(kind string, data any) (Payload, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Payload{}, fmt.Errorf("serialize %s: %w", kind, err)
	}
	return Payload{Kind: kind, Data: raw}, nil
}
