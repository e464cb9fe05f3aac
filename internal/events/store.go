package events

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store provides typed access to the raw activity event collections the
// collector bot writes. The analytics core only reads; the insert
// methods exist for the collector and for tests. Production deployments
// point this at the collector's Postgres database; the sqlite backend
// carries local development and tests.
type Store struct {
	db *sqlx.DB
}

// Open connects to the events database. driver is "postgres" or
// "sqlite"; dsn follows the driver's conventions (use ":memory:" with
// sqlite for an in-memory store).
func Open(driver, dsn string) (*Store, error) {
	var db *sqlx.DB
	var err error
	switch driver {
	case "postgres":
		db, err = sqlx.Connect("pgx", dsn)
	case "sqlite":
		if dsn == ":memory:" {
			dsn = ":memory:?_journal_mode=WAL"
		}
		db, err = sqlx.Connect("sqlite", dsn)
		if db != nil {
			db.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported events driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open events database (%s): %w", driver, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the event tables. The schema is owned by the
// collector in production; this is for the sqlite backend used in
// development and tests.
func (s *Store) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS members (
			user_id INTEGER PRIMARY KEY,
			first_seen DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			message_id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			channel_id INTEGER NOT NULL,
			char_count INTEGER,
			sent_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_user_time ON messages(user_id, sent_at)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_channel_time ON messages(channel_id, sent_at)`,

		`CREATE TABLE IF NOT EXISTS voice_sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			channel_id INTEGER NOT NULL,
			joined_at DATETIME NOT NULL,
			left_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_voice_user_time ON voice_sessions(user_id, joined_at)`,

		`CREATE TABLE IF NOT EXISTS activities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			activity_type TEXT NOT NULL,
			activity_name TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_user_time ON activities(user_id, started_at)`,

		`CREATE TABLE IF NOT EXISTS presence_changes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			set_at DATETIME NOT NULL,
			changed_at DATETIME
		)`,

		`CREATE TABLE IF NOT EXISTS custom_statuses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			status_text TEXT,
			emoji TEXT,
			set_at DATETIME NOT NULL
		)`,
	}

	for i, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("events migration %d: %w", i, err)
		}
	}
	return nil
}
