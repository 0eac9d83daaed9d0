package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/rewind"
)

// Kind tags the serialized form of a scripted command.
const Kind = "lua.script"

// Entry points every script must define.
const (
	fnExecute = "execute"
	fnUndo    = "undo"
)

// Errors for scripted command operations.
var (
	// ErrClosed is returned when calling into a closed command.
	ErrClosed = errors.New("script state is closed")

	// ErrEmptySource is returned when the script source is blank.
	ErrEmptySource = errors.New("script source is empty")

	// ErrMissingFunction is returned when the chunk does not define a
	// required entry point.
	ErrMissingFunction = errors.New("script entry point not defined")
)

// Command is an undoable command whose behavior is defined by a Lua
// chunk. The chunk must define two global functions:
//
//	function execute() ... end
//	function undo() ... end
//
// execute may return a single value (string, number, or boolean) which
// becomes the command's result. State held in Lua globals persists
// across execute and undo calls on the same command, so redo sees
// whatever the previous undo left behind.
//
// The chunk runs in a sandboxed state with only the base, table,
// string, and math libraries open. io, os, debug, and package stay
// closed, and the base functions that load arbitrary code are removed.
//
// gopher-lua's LState is not goroutine-safe; the mutex serializes all
// calls into the state.
type Command struct {
	mu     sync.Mutex
	source string
	state  *lua.LState
	closed bool
}

// New compiles source into a sandboxed Lua state and verifies it
// defines the execute and undo entry points.
func New(source string) (*Command, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptySource
	}

	c := &Command{
		source: source,
		state:  newSandboxedState(),
	}
	if err := c.load(); err != nil {
		c.state.Close()
		return nil, err
	}
	return c, nil
}

// newSandboxedState builds a Lua state with only safe libraries open.
func newSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // opened selectively below
	})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Base functions that can load or run arbitrary code.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}

	return L
}

// load runs the chunk and checks the required entry points exist.
func (c *Command) load() error {
	if err := protect(func() error { return c.state.DoString(c.source) }); err != nil {
		return fmt.Errorf("loading script: %w", err)
	}

	for _, name := range []string{fnExecute, fnUndo} {
		if c.state.GetGlobal(name).Type() != lua.LTFunction {
			return fmt.Errorf("%s: %w", name, ErrMissingFunction)
		}
	}
	return nil
}

// Execute calls the script's execute function and returns its first
// result converted to a Go value.
func (c *Command) Execute() (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	ret, err := c.call(fnExecute)
	if err != nil {
		return nil, err
	}
	return goValue(ret), nil
}

// Undo calls the script's undo function.
func (c *Command) Undo() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	_, err := c.call(fnUndo)
	return err
}

// Serialize returns the command's source under the lua.script kind.
func (c *Command) Serialize() (rewind.Payload, error) {
	return rewind.NewPayload(Kind, scriptPayload{Source: c.source})
}

// Source returns the Lua chunk backing the command.
func (c *Command) Source() string {
	return c.source
}

// Close releases the command's Lua state. Execute and Undo return
// ErrClosed afterward. Close is idempotent.
func (c *Command) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.state.Close()
	c.closed = true
	return nil
}

// call invokes the named global function with no arguments and returns
// its first result. The caller must hold c.mu.
func (c *Command) call(name string) (lua.LValue, error) {
	fn := c.state.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, fmt.Errorf("%s: %w", name, ErrMissingFunction)
	}

	// Record stack top before pushing anything
	top := c.state.GetTop()
	c.state.Push(fn)

	if err := protect(func() error { return c.state.PCall(0, lua.MultRet, nil) }); err != nil {
		return lua.LNil, fmt.Errorf("calling %s: %w", name, err)
	}

	var ret lua.LValue = lua.LNil
	if n := c.state.GetTop() - top; n > 0 {
		ret = c.state.Get(top + 1)
		c.state.Pop(n)
	}
	return ret, nil
}

// protect runs fn, converting a Lua panic into an error.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// goValue converts a Lua value into its Go counterpart. Tables and
// other reference types are reported by their string form.
func goValue(v lua.LValue) any {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	default:
		return val.String()
	}
}

// scriptPayload is the serialized form of a scripted command.
type scriptPayload struct {
	Source string `json:"source"`
}

// Factory returns a command factory that rebuilds scripted commands
// from their serialized source.
func Factory() rewind.Factory {
	return func(data json.RawMessage) (rewind.Command, error) {
		var p scriptPayload
		if data != nil {
			if err := json.Unmarshal(data, &p); err != nil {
				return nil, fmt.Errorf("decoding script payload: %w", err)
			}
		}
		cmd, err := New(p.Source)
		if err != nil {
			return nil, err
		}
		return cmd, nil
	}
}

// Register installs the lua.script factory on h so scripted commands
// survive serialization round trips.
func Register(h *rewind.History) {
	h.RegisterCommand(Kind, Factory())
}
