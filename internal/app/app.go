// Package app wires configuration, logging, the journal and the task engine
// into a ready-to-serve dispatcher.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"taskmcp/internal/config"
	"taskmcp/internal/db"
	"taskmcp/internal/engine"
	"taskmcp/internal/events"
	"taskmcp/internal/migrate"
	"taskmcp/internal/server"
	"taskmcp/internal/store"
)

type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	DB         *sql.DB
	Events     *events.Writer
	Engine     engine.Engine
	Dispatcher *server.Dispatcher
}

// NewLogger builds the process logger. Output must never be the protocol
// stream.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(v string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// New opens the journal (when enabled), records the run and builds the
// dispatcher over a fresh, empty task store.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = NewLogger(cfg, io.Discard)
	}
	a := &App{Config: cfg, Logger: logger}

	if cfg.Journal.Enabled {
		conn, err := db.Open(db.Config{Path: cfg.Journal.Path})
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		if err := migrate.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate journal: %w", err)
		}
		w := events.NewWriter(conn)
		if err := w.StartRun(ctx, cfg.Server.Name, cfg.Server.Version); err != nil {
			conn.Close()
			return nil, err
		}
		a.DB = conn
		a.Events = &w
		logger = logger.With("run_id", w.RunID)
		a.Logger = logger
		logger.Debug("journal opened", "path", cfg.Journal.Path, "memory", db.IsMemory(cfg.Journal.Path))
	}

	a.Engine = engine.New(store.New(), a.Events, logger)
	a.Dispatcher = server.NewDispatcher(a.Engine, server.Info{
		Name:            cfg.Server.Name,
		Version:         cfg.Server.Version,
		ProtocolVersion: cfg.Server.ProtocolVersion,
	}, logger)
	return a, nil
}

// Serve runs the transport loop over in and out.
func (a *App) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	srv := &server.Server{Dispatcher: a.Dispatcher, In: in, Out: out, Logger: a.Logger}
	return srv.Serve(ctx)
}

func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
