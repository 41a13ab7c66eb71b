package database

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

type DB struct {
	conn *sql.DB
	path string

	cacheMu  sync.RWMutex
	settings map[string]string
}

func New(path string) (*DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(2)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{conn: conn, path: path, settings: make(map[string]string)}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	if err := db.loadSettings(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// DatabaseSizeBytes returns the file size of the database.
func (db *DB) DatabaseSizeBytes() (int64, error) {
	info, err := os.Stat(db.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func (db *DB) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS processed_targets (
			platform     TEXT NOT NULL,
			target_id    TEXT NOT NULL,
			url          TEXT NOT NULL DEFAULT '',
			outcome      TEXT NOT NULL DEFAULT '',
			processed_at TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (platform, target_id)
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT    NOT NULL,
			platform    TEXT    NOT NULL,
			target_id   TEXT    NOT NULL,
			target_url  TEXT    NOT NULL DEFAULT '',
			content     TEXT    NOT NULL,
			trigrams    TEXT    NOT NULL DEFAULT '',
			score       INTEGER NOT NULL DEFAULT 0,
			ai_provider TEXT    NOT NULL DEFAULT '',
			ai_model    TEXT    NOT NULL DEFAULT '',
			publisher   TEXT    NOT NULL DEFAULT '',
			created_at  TEXT    NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_platform ON comments(platform, created_at)`,
		`CREATE TABLE IF NOT EXISTS generation_log (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id              TEXT    NOT NULL,
			platform            TEXT    NOT NULL,
			target_id           TEXT    NOT NULL,
			state               TEXT    NOT NULL,
			attempts            INTEGER NOT NULL DEFAULT 0,
			generation_failures INTEGER NOT NULL DEFAULT 0,
			scoring_failures    INTEGER NOT NULL DEFAULT 0,
			best_score          INTEGER NOT NULL DEFAULT 0,
			tokens_used         INTEGER NOT NULL DEFAULT 0,
			error_message       TEXT    NOT NULL DEFAULT '',
			created_at          TEXT    NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS domain_checks (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			keyword     TEXT NOT NULL,
			domain      TEXT NOT NULL,
			status      TEXT NOT NULL,
			method      TEXT NOT NULL,
			expiry_date TEXT NOT NULL DEFAULT '',
			error       TEXT NOT NULL DEFAULT '',
			checked_at  TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_domain_checks_domain ON domain_checks(domain)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w\nstatement: %s", err, stmt)
		}
	}

	return db.seedSettings()
}

func (db *DB) seedSettings() error {
	defaults := map[string]string{
		"ai_provider":           "openai",
		"ai_fallback_providers": "",
		"ai_review_provider":    "",
		"openai_model":          "gpt-4o-mini",
		"ollama_url":            "http://localhost:11434",
		"ollama_model":          "llama3.2",
	}

	stmt, err := db.conn.Prepare(`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for key, value := range defaults {
		if _, err := stmt.Exec(key, value); err != nil {
			return err
		}
	}
	return nil
}
