package session

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"rentcal/internal/app/calsync"
	"rentcal/internal/app/outbox"
	"rentcal/internal/domain/calendar"
	"rentcal/internal/domain/shared/datekey"
)

// Result is the outcome of a gesture: the refreshed view and whether
// anything that must be persisted changed.
type Result struct {
	View    calendar.View
	Dirty   bool
	Unsaved bool
}

type OpenParams struct {
	EntityID string
	// DraftID resumes a draft calendar. Ignored when EntityID is set.
	DraftID string
	Month   datekey.MonthKey
	// DefaultCost pins the default cost for the session when positive.
	DefaultCost int64
}

type Options struct {
	Store       Store
	Coordinator *calsync.Coordinator
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Clock       calendar.Clock
	DefaultCost int64
	NewID       func() string
	Logger      *slog.Logger
}

type Service struct {
	store       Store
	coord       *calsync.Coordinator
	box         outbox.Outbox
	encoder     outbox.EventEncoder
	clock       calendar.Clock
	defaultCost int64
	newID       func() string
	logger      *slog.Logger
}

func NewService(opts Options) *Service {
	if opts.Store == nil || opts.Coordinator == nil {
		panic("session: store and coordinator required")
	}
	svc := &Service{
		store:       opts.Store,
		coord:       opts.Coordinator,
		box:         opts.Outbox,
		encoder:     opts.Encoder,
		clock:       opts.Clock,
		defaultCost: opts.DefaultCost,
		newID:       opts.NewID,
		logger:      opts.Logger,
	}
	if svc.newID == nil {
		svc.newID = uuid.NewString
	}
	if svc.logger == nil {
		svc.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return svc
}

// Open starts an editing session and loads its first month. Resuming an
// open draft returns the existing session.
func (s *Service) Open(ctx context.Context, p OpenParams) (*Session, error) {
	id := s.newID()
	if p.EntityID == "" && p.DraftID != "" {
		id = p.DraftID
		if existing, err := s.store.Get(ctx, id); err == nil {
			return existing, nil
		} else if !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
	}
	cost := p.DefaultCost
	if cost <= 0 {
		cost = s.defaultCost
	}
	cal := calendar.New(calendar.Options{
		ID:            id,
		EntityID:      p.EntityID,
		Month:         p.Month,
		Settings:      calendar.Settings{DefaultCost: cost},
		DefaultPinned: p.DefaultCost > 0,
		Clock:         s.clock,
	})
	sess := New(cal)
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, err
	}
	if _, err := s.Load(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "calendar session opened", "session_id", id, "entity_id", p.EntityID, "mode", cal.Mode())
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.store.Get(ctx, id)
}

// Load hydrates the session on first use or after it went stale, and
// otherwise only materializes the displayed month. The fetch runs without
// the session lock; the merge runs under it. A failed fetch degrades to
// default prices and is not an error.
func (s *Service) Load(ctx context.Context, sess *Session) (calsync.LoadResult, error) {
	var (
		target  calsync.Target
		initial bool
		fetch   bool
		res     calsync.LoadResult
	)
	_ = sess.With(func(cal *calendar.Calendar) error {
		target = calsync.TargetOf(cal)
		initial = !sess.loaded
		fetch = initial || sess.Stale()
		if !fetch {
			res.Ensured = cal.EnsureBasePrices(cal.CurrentMonth())
		}
		return nil
	})
	if !fetch {
		return res, nil
	}
	if !initial {
		s.logger.InfoContext(ctx, "reloading stale session", "session_id", sess.ID(), "entity_id", target.EntityID)
	}

	h := s.coord.Prefetch(ctx, target, initial)
	err := sess.With(func(cal *calendar.Calendar) error {
		res = s.coord.Apply(cal, h)
		sess.loaded = true
		sess.stale.Store(false)
		return nil
	})
	return res, err
}

// Mutate runs fn against the session calendar. Events the calendar raised
// are handed to the outbox. On a domain error the current view is still
// returned so callers can render it.
func (s *Service) Mutate(ctx context.Context, id string, fn func(cal *calendar.Calendar) error) (Result, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	var (
		res    Result
		opErr  error
		viewOK bool
	)
	err = sess.With(func(cal *calendar.Calendar) error {
		before := cal.Revision()
		opErr = fn(cal)
		res.Dirty = cal.Revision() != before
		res.Unsaved = sess.Unsaved()
		if view, vErr := cal.View(); vErr == nil {
			res.View, viewOK = view, true
		}
		return outbox.RecordDomainEvents(ctx, s.box, s.encoder, cal.Drain())
	})
	if err != nil {
		return res, err
	}
	if opErr != nil {
		return res, opErr
	}
	if !viewOK {
		return res, calendar.ErrNoCurrentMonth
	}
	return res, nil
}

// View returns the current view without changing anything.
func (s *Service) View(ctx context.Context, id string) (calendar.View, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return calendar.View{}, err
	}
	var view calendar.View
	err = sess.With(func(cal *calendar.Calendar) error {
		view, err = cal.View()
		return err
	})
	return view, err
}

func (s *Service) Snapshot(ctx context.Context, id string) (calendar.Snapshot, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return calendar.Snapshot{}, err
	}
	var snap calendar.Snapshot
	_ = sess.With(func(cal *calendar.Calendar) error {
		snap = cal.Snapshot()
		return nil
	})
	return snap, nil
}

// Navigate moves the displayed month and loads it.
func (s *Service) Navigate(ctx context.Context, id string, delta int) (Result, error) {
	res, err := s.Mutate(ctx, id, func(cal *calendar.Calendar) error {
		_, err := cal.Navigate(delta)
		return err
	})
	if err != nil {
		return res, err
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return res, err
	}
	if _, err := s.Load(ctx, sess); err != nil {
		return res, err
	}
	res.View, err = s.View(ctx, id)
	return res, err
}

// Commit persists the session now. The in-memory calendar stays the source
// of truth whatever the outcome.
func (s *Service) Commit(ctx context.Context, id string) error {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	sess.commitMu.Lock()
	defer sess.commitMu.Unlock()

	var batch calsync.Batch
	err = sess.With(func(cal *calendar.Calendar) error {
		var prepErr error
		batch, prepErr = calsync.Prepare(cal)
		return prepErr
	})
	if err != nil {
		return err
	}
	n, err := s.coord.Commit(ctx, batch)
	if err != nil {
		return err
	}
	err = sess.With(func(cal *calendar.Calendar) error {
		sess.committedRev = batch.Revision
		if cal.Mode() == calendar.ModeEdit {
			cal.MarkCommitted(n)
		}
		return outbox.RecordDomainEvents(ctx, s.box, s.encoder, cal.Drain())
	})
	if err != nil {
		return err
	}
	if s.box != nil {
		return s.box.Flush(ctx)
	}
	return nil
}

// Clear drops every local edit of the session and its cached data.
func (s *Service) Clear(ctx context.Context, id string) (Result, error) {
	var target calsync.Target
	res, err := s.Mutate(ctx, id, func(cal *calendar.Calendar) error {
		cal.ClearAll()
		target = calsync.TargetOf(cal)
		return nil
	})
	if err != nil {
		return res, err
	}
	if err := s.coord.ClearCache(ctx, target); err != nil {
		s.logger.WarnContext(ctx, "local cache not cleared", "session_id", id, "error", err)
	}
	return res, nil
}

// Invalidate marks every session of entityID except origin as stale and
// returns how many were marked.
func (s *Service) Invalidate(ctx context.Context, entityID, originID string) (int, error) {
	sessions, err := s.store.ByEntity(ctx, entityID)
	if err != nil {
		return 0, err
	}
	marked := 0
	for _, sess := range sessions {
		if sess.ID() == originID {
			continue
		}
		sess.MarkStale()
		marked++
	}
	if marked > 0 {
		s.logger.InfoContext(ctx, "sessions invalidated", "entity_id", entityID, "origin", originID, "count", marked)
	}
	return marked, nil
}

// Close forgets a session.
func (s *Service) Close(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
