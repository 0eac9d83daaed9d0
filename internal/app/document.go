package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/rewind"
)

// Serialized kinds for the document editing commands.
const (
	kindInsert  = "doc.insert"
	kindDelete  = "doc.delete"
	kindReplace = "doc.replace"
)

// atEnd defers offset resolution to execute time, anchoring the edit
// to the end of the document as it is then. Deferred commands in a
// transaction rely on this: the document may grow before they run.
const atEnd = -1

// Document is the in-memory text the shell's editing directives act on.
// Offsets are byte offsets; commands produced by the shell always land
// on boundaries of earlier edits.
type Document struct {
	text string
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{}
}

// String returns the document text.
func (d *Document) String() string { return d.text }

// Len returns the document length in bytes.
func (d *Document) Len() int { return len(d.text) }

// Interface checks.
var (
	_ rewind.Mergeable = (*insertCommand)(nil)
	_ rewind.Command   = (*deleteCommand)(nil)
	_ rewind.Command   = (*replaceCommand)(nil)
)

// insertCommand inserts text at a byte offset. Adjacent insertions
// merge into one history entry, which is what makes consecutive
// appends undo as a single edit.
type insertCommand struct {
	doc  *Document
	at   int
	text string
}

func (c *insertCommand) Execute() (any, error) {
	at := c.at
	if at == atEnd {
		at = len(c.doc.text)
	}
	if at < 0 || at > len(c.doc.text) {
		return nil, fmt.Errorf("insert at %d: %w", at, ErrOutOfRange)
	}
	c.at = at
	c.doc.text = c.doc.text[:at] + c.text + c.doc.text[at:]
	return c.doc.text, nil
}

func (c *insertCommand) Undo() error {
	end := c.at + len(c.text)
	if c.at < 0 || end > len(c.doc.text) || c.doc.text[c.at:end] != c.text {
		return fmt.Errorf("undo insert at %d: %w", c.at, ErrDiverged)
	}
	c.doc.text = c.doc.text[:c.at] + c.doc.text[end:]
	return nil
}

func (c *insertCommand) CanMerge(other rewind.Command) bool {
	o, ok := other.(*insertCommand)
	if !ok || o.doc != c.doc || c.at < 0 || o.at < 0 {
		return false
	}
	return o.at+len(o.text) == c.at || c.at+len(c.text) == o.at
}

// Merge folds two contiguous insertions into one. The earlier
// insertion is the one the later lands at the end of, so the combined
// text keeps document order regardless of which side is the receiver.
func (c *insertCommand) Merge(other rewind.Command) rewind.Command {
	o := other.(*insertCommand)
	first, second := o, c
	if c.at+len(c.text) == o.at {
		first, second = c, o
	}
	return &insertCommand{doc: c.doc, at: first.at, text: first.text + second.text}
}

func (c *insertCommand) Serialize() (rewind.Payload, error) {
	return rewind.NewPayload(kindInsert, insertPayload{At: c.at, Text: c.text})
}

// deleteCommand removes count bytes starting at a byte offset,
// capturing the removed text on execute so undo can restore it.
type deleteCommand struct {
	doc     *Document
	at      int
	count   int
	deleted string
}

func (c *deleteCommand) Execute() (any, error) {
	at := c.at
	if at == atEnd {
		at = len(c.doc.text) - c.count
	}
	if at < 0 || c.count < 0 || at+c.count > len(c.doc.text) {
		return nil, fmt.Errorf("delete %d at %d: %w", c.count, at, ErrOutOfRange)
	}
	c.at = at
	c.deleted = c.doc.text[at : at+c.count]
	c.doc.text = c.doc.text[:at] + c.doc.text[at+c.count:]
	return c.doc.text, nil
}

func (c *deleteCommand) Undo() error {
	if c.at < 0 || c.at > len(c.doc.text) {
		return fmt.Errorf("undo delete at %d: %w", c.at, ErrOutOfRange)
	}
	c.doc.text = c.doc.text[:c.at] + c.deleted + c.doc.text[c.at:]
	return nil
}

func (c *deleteCommand) Serialize() (rewind.Payload, error) {
	return rewind.NewPayload(kindDelete, deletePayload{At: c.at, Count: c.count, Deleted: c.deleted})
}

// replaceCommand swaps the first occurrence of from with to. Redo
// searches again, so "replace the first occurrence" is the durable
// meaning rather than a fixed offset.
type replaceCommand struct {
	doc  *Document
	from string
	to   string
	at   int
}

func (c *replaceCommand) Execute() (any, error) {
	at := strings.Index(c.doc.text, c.from)
	if at < 0 {
		return nil, fmt.Errorf("replace %q: %w", c.from, ErrNotInDocument)
	}
	c.at = at
	c.doc.text = c.doc.text[:at] + c.to + c.doc.text[at+len(c.from):]
	return c.doc.text, nil
}

func (c *replaceCommand) Undo() error {
	end := c.at + len(c.to)
	if c.at < 0 || end > len(c.doc.text) || c.doc.text[c.at:end] != c.to {
		return fmt.Errorf("undo replace at %d: %w", c.at, ErrDiverged)
	}
	c.doc.text = c.doc.text[:c.at] + c.from + c.doc.text[end:]
	return nil
}

func (c *replaceCommand) Serialize() (rewind.Payload, error) {
	return rewind.NewPayload(kindReplace, replacePayload{From: c.from, To: c.to, At: c.at})
}

// Payload shapes for the document kinds.
type (
	insertPayload struct {
		At   int    `json:"at"`
		Text string `json:"text"`
	}

	deletePayload struct {
		At      int    `json:"at"`
		Count   int    `json:"count"`
		Deleted string `json:"deleted,omitempty"`
	}

	replacePayload struct {
		From string `json:"from"`
		To   string `json:"to"`
		At   int    `json:"at"`
	}
)

// RegisterDocumentCommands installs factories for the document editing
// kinds so a restored history rebuilds its commands against doc.
func RegisterDocumentCommands(h *rewind.History, doc *Document) {
	h.RegisterCommand(kindInsert, func(data json.RawMessage) (rewind.Command, error) {
		var p insertPayload
		if data != nil {
			if err := json.Unmarshal(data, &p); err != nil {
				return nil, fmt.Errorf("decoding %s payload: %w", kindInsert, err)
			}
		}
		return &insertCommand{doc: doc, at: p.At, text: p.Text}, nil
	})

	h.RegisterCommand(kindDelete, func(data json.RawMessage) (rewind.Command, error) {
		var p deletePayload
		if data != nil {
			if err := json.Unmarshal(data, &p); err != nil {
				return nil, fmt.Errorf("decoding %s payload: %w", kindDelete, err)
			}
		}
		return &deleteCommand{doc: doc, at: p.At, count: p.Count, deleted: p.Deleted}, nil
	})

	h.RegisterCommand(kindReplace, func(data json.RawMessage) (rewind.Command, error) {
		var p replacePayload
		if data != nil {
			if err := json.Unmarshal(data, &p); err != nil {
				return nil, fmt.Errorf("decoding %s payload: %w", kindReplace, err)
			}
		}
		return &replaceCommand{doc: doc, from: p.From, to: p.To, at: p.At}, nil
	})
}
