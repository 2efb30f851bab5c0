package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

type Config struct {
	// Path of the journal database file; ":memory:" or empty keeps it in memory.
	Path string
}

func dsn(path string) string {
	if path == "" || path == memoryPath {
		return "file::memory:?_pragma=foreign_keys(1)"
	}
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
}

// EnsureDir creates the parent directory of a file-backed database.
func EnsureDir(path string) error {
	if path == "" || path == memoryPath {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}
	return nil
}

// Open opens the SQLite database with foreign keys on. The pool is pinned to
// one connection so an in-memory database is not split across connections.
func Open(cfg Config) (*sql.DB, error) {
	if err := EnsureDir(cfg.Path); err != nil {
		return nil, err
	}
	conn, err := sql.Open("sqlite", dsn(cfg.Path))
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	return conn, nil
}

// IsMemory reports whether path selects an in-memory database.
func IsMemory(path string) bool {
	return path == "" || path == memoryPath
}
