// Package session stores conversations and their append-only message log.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Mode selects whether the model may use tools.
type Mode string

const (
	ModeChat  Mode = "chat"
	ModeBuild Mode = "build"
)

// Session is the metadata of one conversation. Messages are kept by the
// Store.
type Session struct {
	ID          string
	Title       string
	ProviderID  string
	Model       string
	Mode        Mode
	ProjectRoot string

	InputTokens  int64
	OutputTokens int64

	CreatedAt time.Time
}

type Opt func(*Session)

func WithTitle(title string) Opt {
	return func(s *Session) {
		s.Title = title
	}
}

func WithMode(mode Mode) Opt {
	return func(s *Session) {
		s.Mode = mode
	}
}

func WithModel(providerID, model string) Opt {
	return func(s *Session) {
		s.ProviderID = providerID
		s.Model = model
	}
}

// WithProjectRoot sets the directory or tree:// root tools operate on.
func WithProjectRoot(root string) Opt {
	return func(s *Session) {
		s.ProjectRoot = root
	}
}

func New(opts ...Opt) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Mode:      ModeChat,
		CreatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Build reports whether the session offers tools to the model.
func (s *Session) Build() bool {
	return s.Mode == ModeBuild
}
