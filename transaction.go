package rewind

import (
	"fmt"

	"github.com/dshills/rewind/internal/command"
)

// BeginTransaction opens a deferred command group. Groups nest
// arbitrarily; commands executed while any group is open are collected
// into the innermost one and not run until the outermost commit.
func (h *History) BeginTransaction() {
	h.transactions = append(h.transactions, nil)
}

// CommitTransaction closes the innermost group and executes its
// contents: a single collected command runs as itself, several run as
// one Composite preserving their recorded order. Inside an enclosing
// transaction the contents defer into the outer group instead of
// running. An empty group, or no open transaction, is a no-op.
func (h *History) CommitTransaction() (any, error) {
	n := len(h.transactions)
	if n == 0 {
		return nil, nil
	}
	group := h.transactions[n-1]
	h.transactions = h.transactions[:n-1]

	switch len(group) {
	case 0:
		return nil, nil
	case 1:
		return h.Execute(group[0])
	default:
		return h.Execute(command.NewComposite(group...))
	}
}

// AbortTransaction discards the innermost group, invoking Undo on every
// member in reverse recorded order. Members never had their Execute
// invoked; abort still calls Undo on each. Undo errors are reported and
// do not stop the remaining members. Nothing reaches history.
func (h *History) AbortTransaction() {
	n := len(h.transactions)
	if n == 0 {
		return
	}
	group := h.transactions[n-1]
	h.transactions = h.transactions[:n-1]

	for i := len(group) - 1; i >= 0; i-- {
		if err := group[i].Undo(); err != nil {
			h.report(fmt.Errorf("abort: %w", err))
		}
	}
}

// Transact runs fn inside its own transaction, committing when fn
// returns nil and aborting when it returns an error.
func (h *History) Transact(fn func() error) error {
	h.BeginTransaction()
	if err := fn(); err != nil {
		h.AbortTransaction()
		return err
	}
	_, err := h.CommitTransaction()
	return err
}

// InTransaction reports whether any transaction group is open.
func (h *History) InTransaction() bool {
	return len(h.transactions) > 0
}

// TransactionDepth returns the number of open transaction groups.
func (h *History) TransactionDepth() int {
	return len(h.transactions)
}
