package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
	"github.com/LucasSabena/codemobile-sub001/pkg/sqliteutil"
)

type SQLiteSessionStore struct {
	db *sql.DB
}

// NewSQLiteSessionStore opens the database at path and brings its schema
// up to date.
func NewSQLiteSessionStore(ctx context.Context, path string) (*SQLiteSessionStore, error) {
	db, err := sqliteutil.OpenDB(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteSessionStore{db: db}, nil
}

func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteSessionStore) AddSession(ctx context.Context, session *Session) error {
	if session.ID == "" {
		return ErrEmptyID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, provider_id, model, mode, project_root, input_tokens, output_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.Title, session.ProviderID, session.Model, string(session.Mode), session.ProjectRoot,
		session.InputTokens, session.OutputTokens, session.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

const sessionColumns = "id, title, provider_id, model, mode, project_root, input_tokens, output_tokens, created_at"

func scanSession(scanner interface{ Scan(...any) error }) (*Session, error) {
	var (
		sess      Session
		mode      string
		createdAt string
	)
	if err := scanner.Scan(&sess.ID, &sess.Title, &sess.ProviderID, &sess.Model, &mode, &sess.ProjectRoot,
		&sess.InputTokens, &sess.OutputTokens, &createdAt); err != nil {
		return nil, err
	}
	sess.Mode = Mode(mode)
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at of session %s: %w", sess.ID, err)
	}
	sess.CreatedAt = t
	return &sess, nil
}

func (s *SQLiteSessionStore) GetSession(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sess, err
}

func (s *SQLiteSessionStore) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+sessionColumns+" FROM sessions")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortSessions(sessions)
	return sessions, nil
}

func (s *SQLiteSessionStore) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLiteSessionStore) AddMessage(ctx context.Context, sessionID string, msg chat.Message) error {
	if sessionID == "" {
		return ErrEmptyID
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	var toolCalls string
	if len(msg.ToolCalls) > 0 {
		data, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return fmt.Errorf("marshaling tool calls: %w", err)
		}
		toolCalls = string(data)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content, tool_calls, tool_call_id, is_error, created_at)
		 SELECT id, ?, ?, ?, ?, ?, ? FROM sessions WHERE id = ?`,
		string(msg.Role), msg.Content, toolCalls, msg.ToolCallID, msg.IsError,
		msg.CreatedAt.UTC().Format(time.RFC3339Nano), sessionID)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	slog.Debug("Stored message", "session_id", sessionID, "role", msg.Role)
	return nil
}

func (s *SQLiteSessionStore) GetMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, tool_calls, tool_call_id, is_error, created_at
		 FROM messages WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		var (
			msg       chat.Message
			role      string
			toolCalls string
			createdAt string
		)
		if err := rows.Scan(&role, &msg.Content, &toolCalls, &msg.ToolCallID, &msg.IsError, &createdAt); err != nil {
			return nil, err
		}
		msg.Role = chat.MessageRole(role)
		if toolCalls != "" {
			if err := json.Unmarshal([]byte(toolCalls), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("decoding tool calls: %w", err)
			}
		}
		if msg.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parsing message time: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteSessionStore) UpdateSessionTokens(ctx context.Context, sessionID string, inputTokens, outputTokens int64) error {
	if sessionID == "" {
		return ErrEmptyID
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET input_tokens = ?, output_tokens = ? WHERE id = ?",
		inputTokens, outputTokens, sessionID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
