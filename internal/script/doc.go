// Package script defines undoable commands written in Lua.
//
// A scripted command wraps a Lua chunk that defines execute and undo
// functions. The chunk runs in a sandboxed interpreter with no file,
// system, or module access, and serializes as its source text so a
// registered factory can rebuild it on another history instance.
package script
