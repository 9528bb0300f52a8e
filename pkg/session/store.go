package session

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
	"github.com/LucasSabena/codemobile-sub001/pkg/concurrent"
)

var (
	ErrEmptyID  = errors.New("session ID cannot be empty")
	ErrNotFound = errors.New("session not found")
)

// Store persists sessions and their messages. Messages of a session are
// returned in the order they were added.
type Store interface {
	AddSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	// ListSessions returns all sessions, most recent first.
	ListSessions(ctx context.Context) ([]*Session, error)
	DeleteSession(ctx context.Context, id string) error

	AddMessage(ctx context.Context, sessionID string, msg chat.Message) error
	GetMessages(ctx context.Context, sessionID string) ([]chat.Message, error)

	// UpdateSessionTokens sets the cumulative token counters.
	UpdateSessionTokens(ctx context.Context, sessionID string, inputTokens, outputTokens int64) error
}

type memoryEntry struct {
	session  Session
	messages []chat.Message
}

type InMemorySessionStore struct {
	sessions *concurrent.Map[string, memoryEntry]
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: concurrent.NewMap[string, memoryEntry](),
	}
}

func (s *InMemorySessionStore) AddSession(_ context.Context, session *Session) error {
	if session.ID == "" {
		return ErrEmptyID
	}
	s.sessions.Store(session.ID, memoryEntry{session: *session})
	return nil
}

func (s *InMemorySessionStore) GetSession(_ context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	entry, exists := s.sessions.Load(id)
	if !exists {
		return nil, ErrNotFound
	}
	sess := entry.session
	return &sess, nil
}

func (s *InMemorySessionStore) ListSessions(_ context.Context) ([]*Session, error) {
	sessions := make([]*Session, 0, s.sessions.Length())
	s.sessions.Range(func(_ string, entry memoryEntry) bool {
		sess := entry.session
		sessions = append(sessions, &sess)
		return true
	})
	sortSessions(sessions)
	return sessions, nil
}

func (s *InMemorySessionStore) DeleteSession(_ context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if !s.sessions.Delete(id) {
		return ErrNotFound
	}
	return nil
}

func (s *InMemorySessionStore) AddMessage(_ context.Context, sessionID string, msg chat.Message) error {
	if sessionID == "" {
		return ErrEmptyID
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	ok := s.sessions.Update(sessionID, func(entry memoryEntry, exists bool) (memoryEntry, bool) {
		if !exists {
			return entry, false
		}
		// Copy on write: readers may hold the previous slice.
		entry.messages = append(slices.Clip(entry.messages), msg)
		return entry, true
	})
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *InMemorySessionStore) GetMessages(_ context.Context, sessionID string) ([]chat.Message, error) {
	if sessionID == "" {
		return nil, ErrEmptyID
	}
	entry, exists := s.sessions.Load(sessionID)
	if !exists {
		return nil, ErrNotFound
	}
	return slices.Clone(entry.messages), nil
}

func (s *InMemorySessionStore) UpdateSessionTokens(_ context.Context, sessionID string, inputTokens, outputTokens int64) error {
	if sessionID == "" {
		return ErrEmptyID
	}
	ok := s.sessions.Update(sessionID, func(entry memoryEntry, exists bool) (memoryEntry, bool) {
		entry.session.InputTokens = inputTokens
		entry.session.OutputTokens = outputTokens
		return entry, exists
	})
	if !ok {
		return ErrNotFound
	}
	return nil
}

func sortSessions(sessions []*Session) {
	slices.SortStableFunc(sessions, func(a, b *Session) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
}
