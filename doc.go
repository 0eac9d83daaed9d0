// Package rewind is a command-based undo/redo history engine.
//
// The engine records reversible operations, traverses them backward and
// forward, groups operations into atomic transactions, merges rapid
// related operations, and persists and restores its entire state. The
// concrete operations stay outside the engine: anything implementing
// Command can be recorded.
//
// # Commands
//
// A Command executes, undoes, and serializes itself into a {kind, data}
// payload. Kinds are resolved through a per-instance registry so
// serialized state can be rebuilt:
//
//	h := rewind.New()
//	h.RegisterCommand("counter.add", func(data json.RawMessage) (rewind.Command, error) {
//		c := &addCmd{n: 1}
//		if data != nil {
//			if err := json.Unmarshal(data, c); err != nil {
//				return nil, err
//			}
//		}
//		return c, nil
//	})
//
//	h.Execute(&addCmd{n: 5})
//	h.Undo(1)
//	h.Redo(1)
//
// Commands that also implement Mergeable may fold with the previous
// entry when executed inside the merge window, and adjacent runs fold
// during compression.
//
// # Transactions
//
// Commands executed inside a transaction are deferred and committed as
// one history entry:
//
//	h.BeginTransaction()
//	h.Execute(first)  // collected, not run
//	h.Execute(second) // collected, not run
//	h.CommitTransaction() // both run, one undo entry
//
// Transactions nest; effects surface when the outermost commit runs.
// Aborting discards the group without touching history.
//
// # Snapshots and Recovery
//
// The engine checkpoints both stacks at a configurable undo-depth
// interval. When a command fails during Undo or Redo the failure is
// reported, swallowed, and the nearest checkpoint at or below the
// current depth is restored.
//
// # Serialization
//
// ExportState/ImportState move the whole engine state, including
// configuration, through the {kind, data} payload form; Serialize and
// Deserialize wrap them in JSON.
//
// # Concurrency
//
// A History is single-goroutine. The Idle/Busy guard prevents a
// command's own Execute or Undo from re-entering the engine while an
// operation is in flight; it is not a thread-safety mechanism. Hosts
// embedding the engine in concurrent code must serialize access to an
// instance externally, one engine per logical document.
package rewind
