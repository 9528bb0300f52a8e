package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migration struct {
	ID    int
	Name  string
	UpSQL string
}

// migrations are applied in order, each exactly once.
var migrations = []migration{
	{
		ID:   1,
		Name: "001_create_sessions",
		UpSQL: `CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			provider_id TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			mode TEXT NOT NULL DEFAULT 'chat',
			project_root TEXT NOT NULL DEFAULT '',
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
	},
	{
		ID:   2,
		Name: "002_create_messages",
		UpSQL: `CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			tool_calls TEXT NOT NULL DEFAULT '',
			tool_call_id TEXT NOT NULL DEFAULT '',
			is_error BOOLEAN NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
	},
	{
		ID:    3,
		Name:  "003_index_messages_session",
		UpSQL: `CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq)`,
	},
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations WHERE name = ?", m.Name).Scan(&count); err != nil {
			return fmt.Errorf("checking migration %s: %w", m.Name, err)
		}
		if count > 0 {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return fmt.Errorf("applying migration %s: %w", m.Name, err)
		}
		slog.Debug("Applied session store migration", "name", m.Name)
	}
	return nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO migrations (id, name, applied_at) VALUES (?, ?, ?)",
		m.ID, m.Name, time.Now().Format(time.RFC3339)); err != nil {
		return err
	}
	return tx.Commit()
}
