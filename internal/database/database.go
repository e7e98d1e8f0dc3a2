// Package database stores classes, lessons and workplan entries in SQLite.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnknownClass = errors.New("unknown class")
)

// DB wraps sql.DB for the planner.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

// NewDB opens the database at path and creates tables if they don't exist.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: db, path: path, logger: logger}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS classes (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '',
			schedule TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Lessons. Nothing prevents two lessons on the same (date, period).
		`CREATE TABLE IF NOT EXISTS lessons (
			id TEXT PRIMARY KEY,
			class_id TEXT NOT NULL,
			date TEXT NOT NULL,
			period INTEGER,
			topic TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			is_cancelled BOOLEAN NOT NULL DEFAULT 0,
			unit_count INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (class_id) REFERENCES classes(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS workplan_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			class_id TEXT NOT NULL,
			date TEXT NOT NULL,
			period INTEGER NOT NULL,
			unit TEXT NOT NULL DEFAULT '',
			curriculum_ref TEXT NOT NULL DEFAULT '',
			topic TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (date, period, class_id),
			FOREIGN KEY (class_id) REFERENCES classes(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_lessons_class_date ON lessons(class_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_workplan_class_date ON workplan_entries(class_id, date)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
