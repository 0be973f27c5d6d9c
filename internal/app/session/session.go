package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"rentcal/internal/domain/calendar"
)

var (
	ErrSessionNotFound = errors.New("session: not found")
	ErrSessionExists   = errors.New("session: already exists")
)

// Session is the single owner of one calendar. Every read and write of the
// calendar goes through With, so gestures never interleave.
type Session struct {
	id string

	mu           sync.Mutex
	cal          *calendar.Calendar
	loaded       bool
	committedRev uint64

	// commitMu keeps two commits of one session from interleaving their
	// delete and insert steps.
	commitMu sync.Mutex
	stale    atomic.Bool
}

func New(cal *calendar.Calendar) *Session {
	return &Session{id: cal.ID(), cal: cal}
}

func (s *Session) ID() string { return s.id }

// EntityID never changes over the life of a session.
func (s *Session) EntityID() string { return s.cal.EntityID() }

// With runs fn with the calendar locked.
func (s *Session) With(fn func(cal *calendar.Calendar) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.cal)
}

// Unsaved reports whether the calendar changed since the last successful
// commit. Callers must hold the calendar lock, i.e. call it inside With.
func (s *Session) Unsaved() bool {
	return s.cal.Revision() != s.committedRev
}

// HasUnsavedChanges is Unsaved for callers outside With.
func (s *Session) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Unsaved()
}

// MarkStale makes the next load re-fetch remote data.
func (s *Session) MarkStale() { s.stale.Store(true) }

func (s *Session) Stale() bool { return s.stale.Load() }

// Store keeps open sessions.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	ByEntity(ctx context.Context, entityID string) ([]*Session, error)
}
