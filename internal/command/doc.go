// Package command defines the contract every history entry satisfies.
//
// A Command can be executed, undone, and serialized into a {kind, data}
// payload that a registry factory rebuilds. Commands that additionally
// implement Mergeable may be folded with a neighboring command into one
// history entry. Composite bundles an ordered sequence of commands so a
// transaction commits as a single entry.
package command
