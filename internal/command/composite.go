package command

import "fmt"

// CompositeKind tags the serialized form of a Composite. Deserializers
// recognize it before consulting a registry, so the kind is reserved.
const CompositeKind = "CompositeCommand"

// Composite bundles an ordered sequence of commands into a single history
// entry. A Composite never merges.
type Composite struct {
	Commands []Command
}

// NewComposite creates a composite over cmds, preserving their order.
func NewComposite(cmds ...Command) *Composite {
	return &Composite{Commands: cmds}
}

// Execute runs each command in order and collects their results. It stops
// at the first failure; commands that already ran are not rolled back.
func (c *Composite) Execute() (any, error) {
	results := make([]any, 0, len(c.Commands))
	for i, cmd := range c.Commands {
		res, err := cmd.Execute()
		if err != nil {
			return nil, fmt.Errorf("composite step %d: %w", i, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Undo reverses each command in reverse order, stopping at the first
// failure.
func (c *Composite) Undo() error {
	for i := len(c.Commands) - 1; i >= 0; i-- {
		if err := c.Commands[i].Undo(); err != nil {
			return fmt.Errorf("composite step %d: %w", i, err)
		}
	}
	return nil
}

// Serialize emits the reserved composite kind plus the ordered serialized
// sub-commands.
func (c *Composite) Serialize() (Payload, error) {
	subs := make([]Payload, 0, len(c.Commands))
	for _, cmd := range c.Commands {
		p, err := cmd.Serialize()
		if err != nil {
			return Payload{}, err
		}
		subs = append(subs, p)
	}
	return NewPayload(CompositeKind, subs)
}
