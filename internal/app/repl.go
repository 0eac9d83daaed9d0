package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/rewind"
	"github.com/dshills/rewind/internal/script"
)

// Run reads directives from the application's input until quit or EOF.
// A quit directive returns ErrQuit; EOF returns nil.
func (app *Application) Run() error {
	app.printf("rewind shell (try 'help')\n")

	scanner := bufio.NewScanner(app.in)
	for {
		app.printf("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := app.handle(line); err != nil {
			if errors.Is(err, ErrQuit) {
				return err
			}
			app.printf("error: %v\n", err)
		}
	}
	return scanner.Err()
}

// handle dispatches a single directive line.
func (app *Application) handle(line string) error {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "help":
		app.printHelp()
		return nil

	case "quit", "exit":
		return ErrQuit

	case "show":
		app.printf("%q (%d bytes)\n", app.doc.String(), app.doc.Len())
		return nil

	case "append":
		if rest == "" {
			return fmt.Errorf("usage: append TEXT")
		}
		return app.execEdit(&insertCommand{doc: app.doc, at: atEnd, text: rest})

	case "insert":
		return app.handleInsert(rest)

	case "delete":
		return app.handleDelete(rest)

	case "replace":
		return app.handleReplace(rest)

	case "undo":
		steps, err := parseSteps(rest)
		if err != nil {
			return err
		}
		if err := app.history.Undo(steps); err != nil {
			return err
		}
		app.printf("%q\n", app.doc.String())
		return nil

	case "redo":
		steps, err := parseSteps(rest)
		if err != nil {
			return err
		}
		if err := app.history.Redo(steps); err != nil {
			return err
		}
		app.printf("%q\n", app.doc.String())
		return nil

	case "list":
		return app.handleList()

	case "stats":
		app.printStats()
		return nil

	case "clear":
		app.history.Clear()
		app.printf("history cleared\n")
		return nil

	case "begin":
		app.history.BeginTransaction()
		app.printf("transaction open (depth %d)\n", app.history.TransactionDepth())
		return nil

	case "commit":
		return app.handleCommit()

	case "abort":
		app.history.AbortTransaction()
		app.printf("transaction aborted\n")
		return nil

	case "snapshot":
		if err := app.history.CreateSnapshot(); err != nil {
			return err
		}
		app.printf("snapshot at depth %d\n", app.history.UndoCount())
		return nil

	case "recover":
		if err := app.history.RecoverFromSnapshot(); err != nil {
			return err
		}
		app.printf("recovered: undo=%d redo=%d\n", app.history.UndoCount(), app.history.RedoCount())
		return nil

	case "compress":
		before := app.history.UndoCount()
		app.history.CompressHistory()
		app.printf("compressed %d entries into %d\n", before, app.history.UndoCount())
		return nil

	case "run":
		return app.handleRun(rest)

	case "scripts":
		names := app.ScriptNames()
		if len(names) == 0 {
			app.printf("(no scripts loaded)\n")
		} else {
			app.printf("%s\n", strings.Join(names, " "))
		}
		return nil

	case "save":
		return app.handleSave(rest)

	case "load":
		return app.handleLoad(rest)

	case "states":
		return app.handleStates()

	case "drop":
		return app.handleDrop(rest)

	default:
		app.printf("unknown directive %q (try 'help')\n", verb)
		return nil
	}
}

// execEdit runs cmd through the history and prints the updated text.
// Inside a transaction the command is deferred and nothing prints yet.
func (app *Application) execEdit(cmd rewind.Command) error {
	res, err := app.history.Execute(cmd)
	if err != nil {
		return err
	}
	if res == nil && app.history.InTransaction() {
		app.printf("deferred (depth %d)\n", app.history.TransactionDepth())
		return nil
	}
	if res != nil {
		app.printf("%q\n", res)
	}
	return nil
}

func (app *Application) handleInsert(rest string) error {
	atArg, text, ok := strings.Cut(rest, " ")
	if !ok || text == "" {
		return fmt.Errorf("usage: insert OFFSET TEXT")
	}
	at, err := strconv.Atoi(atArg)
	if err != nil {
		return fmt.Errorf("offset must be a number, got %q", atArg)
	}
	return app.execEdit(&insertCommand{doc: app.doc, at: at, text: text})
}

func (app *Application) handleDelete(rest string) error {
	count, err := strconv.Atoi(rest)
	if err != nil || count < 1 {
		return fmt.Errorf("usage: delete COUNT")
	}
	return app.execEdit(&deleteCommand{doc: app.doc, at: atEnd, count: count})
}

func (app *Application) handleReplace(rest string) error {
	from, to, ok := strings.Cut(rest, " ")
	if !ok || from == "" || to == "" {
		return fmt.Errorf("usage: replace FROM TO")
	}
	return app.execEdit(&replaceCommand{doc: app.doc, from: from, to: to})
}

func (app *Application) handleCommit() error {
	res, err := app.history.CommitTransaction()
	if err != nil {
		return err
	}
	switch {
	case app.history.InTransaction():
		app.printf("deferred to enclosing transaction (depth %d)\n", app.history.TransactionDepth())
	case res != nil:
		app.printf("committed: %v\n", res)
	default:
		app.printf("transaction committed\n")
	}
	return nil
}

// handleList prints the serialized kind of every stack entry.
func (app *Application) handleList() error {
	state, err := app.history.Serialize()
	if err != nil {
		return err
	}
	app.printf("undo:%s redo:%s\n",
		gjson.GetBytes(state, "undoStack.#.kind").Raw,
		gjson.GetBytes(state, "redoStack.#.kind").Raw)
	return nil
}

func (app *Application) printStats() {
	st := app.history.Stats()
	app.printf("execute: %d ok %d err (avg %v)\n", st.Execute.Count, st.Execute.Errors, st.Execute.Average())
	app.printf("undo:    %d ok %d err (avg %v)\n", st.Undo.Count, st.Undo.Errors, st.Undo.Average())
	app.printf("redo:    %d ok %d err (avg %v)\n", st.Redo.Count, st.Redo.Errors, st.Redo.Average())
	app.printf("merges=%d evictions=%d snapshots=%d recoveries=%d compressions=%d\n",
		st.Merges, st.Evictions, st.Snapshots, st.Recoveries, st.Compressions)
}

// handleRun executes a loaded script by name, falling back to reading
// the name as a file path.
func (app *Application) handleRun(name string) error {
	if name == "" {
		return fmt.Errorf("usage: run NAME")
	}

	source, ok := app.scripts[name]
	if !ok {
		data, err := os.ReadFile(name)
		if err != nil {
			return fmt.Errorf("%q: %w", name, ErrUnknownScript)
		}
		source = string(data)
	}

	cmd, err := script.New(source)
	if err != nil {
		return err
	}

	res, err := app.history.Execute(cmd)
	if err != nil {
		return err
	}
	if res != nil {
		app.printf("%v\n", res)
	}
	return nil
}

// handleSave persists the document and serialized history together
// under one name.
func (app *Application) handleSave(name string) error {
	if app.store == nil {
		return ErrNoStore
	}
	if name == "" {
		return fmt.Errorf("usage: save NAME")
	}

	state, err := app.history.Serialize()
	if err != nil {
		return err
	}

	envelope, err := sjson.SetBytes([]byte(`{}`), "doc", app.doc.String())
	if err != nil {
		return err
	}
	envelope, err = sjson.SetRawBytes(envelope, "history", state)
	if err != nil {
		return err
	}

	if err := app.store.Save(context.Background(), name, envelope); err != nil {
		return err
	}
	app.printf("saved %q\n", name)
	return nil
}

func (app *Application) handleLoad(name string) error {
	if app.store == nil {
		return ErrNoStore
	}
	if name == "" {
		return fmt.Errorf("usage: load NAME")
	}

	data, err := app.store.Load(context.Background(), name)
	if err != nil {
		return err
	}

	history := gjson.GetBytes(data, "history")
	if !history.Exists() {
		return fmt.Errorf("state %q has no history document", name)
	}
	if err := app.history.Deserialize([]byte(history.Raw)); err != nil {
		return err
	}
	app.doc.text = gjson.GetBytes(data, "doc").String()

	app.printf("loaded %q: undo=%d redo=%d\n", name, app.history.UndoCount(), app.history.RedoCount())
	return nil
}

func (app *Application) handleStates() error {
	if app.store == nil {
		return ErrNoStore
	}

	names, err := app.store.List(context.Background())
	if err != nil {
		return err
	}
	if len(names) == 0 {
		app.printf("(no saved states)\n")
		return nil
	}
	for _, name := range names {
		at, err := app.store.SavedAt(context.Background(), name)
		if err != nil {
			app.printf("%s\n", name)
			continue
		}
		app.printf("%s  %s\n", name, at.Format(time.RFC3339))
	}
	return nil
}

func (app *Application) handleDrop(name string) error {
	if app.store == nil {
		return ErrNoStore
	}
	if name == "" {
		return fmt.Errorf("usage: drop NAME")
	}
	if err := app.store.Delete(context.Background(), name); err != nil {
		return err
	}
	app.printf("dropped %q\n", name)
	return nil
}

func (app *Application) printHelp() {
	app.printf(`directives:
  show                print the document
  append TEXT         insert TEXT at the end
  insert OFFSET TEXT  insert TEXT at a byte offset
  delete COUNT        delete the last COUNT bytes
  replace FROM TO     replace the first occurrence of FROM
  undo [N]            undo the last N entries (default 1)
  redo [N]            redo the last N undone entries
  list                show stack entry kinds
  stats               show engine statistics
  clear               drop all history
  begin|commit|abort  transaction control
  snapshot            capture the current undo depth
  recover             restore the nearest snapshot
  compress            fold adjacent mergeable entries
  run NAME            execute a loaded script or .lua file
  scripts             list loaded scripts
  save NAME           persist document and history
  load NAME           restore document and history
  states              list saved states
  drop NAME           delete a saved state
  quit                exit
`)
}

func (app *Application) printf(format string, args ...any) {
	fmt.Fprintf(app.out, format, args...)
}

// parseSteps reads an optional positive step count, defaulting to 1.
func parseSteps(arg string) (int, error) {
	if arg == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("steps must be a positive number, got %q", arg)
	}
	return n, nil
}
