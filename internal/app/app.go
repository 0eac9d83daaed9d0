// Package app wires the history engine, document commands, state
// store, and scripted commands into the interactive rewind shell.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/rewind"
	"github.com/dshills/rewind/internal/config"
	"github.com/dshills/rewind/internal/script"
	"github.com/dshills/rewind/internal/store"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the TOML configuration file.
	ConfigPath string

	// StorePath overrides the state database path from the config.
	StorePath string

	// ScriptDir overrides the script directory from the config.
	ScriptDir string

	// LogLevel overrides the log level from the config.
	LogLevel string

	// Input is where directives are read from. Defaults to os.Stdin.
	Input io.Reader

	// Output is where results are written. Defaults to os.Stdout.
	Output io.Writer

	// LogOutput is where logs are written. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Application owns one history instance, the document its commands
// edit, and the optional state store and script set.
type Application struct {
	cfg     *config.Config
	logger  *slog.Logger
	history *rewind.History
	doc     *Document
	store   *store.Store
	scripts map[string]string

	in  io.Reader
	out io.Writer
}

// New creates an Application from the given options.
func New(opts Options) (*Application, error) {
	app := &Application{
		in:      opts.Input,
		out:     opts.Output,
		scripts: make(map[string]string),
	}
	if app.in == nil {
		app.in = os.Stdin
	}
	if app.out == nil {
		app.out = os.Stdout
	}

	if err := app.bootstrap(opts); err != nil {
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap(opts Options) error {
	// 1. Configuration, with command line overrides on top.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.StorePath != "" {
		cfg.StorePath = opts.StorePath
	}
	if opts.ScriptDir != "" {
		cfg.ScriptDir = opts.ScriptDir
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	app.cfg = cfg

	// 2. Logging
	logOut := opts.LogOutput
	if logOut == nil {
		logOut = os.Stderr
	}
	app.logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	// 3. History engine
	engineOpts := append(cfg.Options(), rewind.WithLogger(app.logger))
	app.history = rewind.New(engineOpts...)

	// 4. Command factories
	app.doc = NewDocument()
	RegisterDocumentCommands(app.history, app.doc)
	script.Register(app.history)

	// 5. State store
	if cfg.StorePath != "" {
		st, err := store.Open(cfg.StorePath)
		if err != nil {
			return fmt.Errorf("opening state store: %w", err)
		}
		app.store = st
	}

	// 6. Scripts
	if cfg.ScriptDir != "" {
		if err := app.loadScripts(cfg.ScriptDir); err != nil {
			return err
		}
	}

	return nil
}

// loadScripts reads every .lua file in dir and keeps the sources that
// compile as commands, keyed by file name without extension.
func (app *Application) loadScripts(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading script directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		source, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading script %s: %w", path, err)
		}

		// Compile once up front so broken scripts surface at startup.
		cmd, err := script.New(string(source))
		if err != nil {
			app.logger.Warn("skipping script", "path", path, "error", err)
			continue
		}
		_ = cmd.Close()

		name := strings.TrimSuffix(entry.Name(), ".lua")
		app.scripts[name] = string(source)
	}

	app.logger.Debug("scripts loaded", "count", len(app.scripts))
	return nil
}

// History returns the application's history engine.
func (app *Application) History() *rewind.History {
	return app.history
}

// Document returns the document being edited.
func (app *Application) Document() *Document {
	return app.doc
}

// ScriptNames returns the loaded script names, sorted.
func (app *Application) ScriptNames() []string {
	names := make([]string, 0, len(app.scripts))
	for name := range app.scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shutdown releases the application's resources. Safe to call more
// than once.
func (app *Application) Shutdown() {
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.logger.Error("closing state store", "error", err)
		}
		app.store = nil
	}
}
