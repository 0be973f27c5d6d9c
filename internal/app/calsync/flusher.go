package calsync

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// CommitFunc commits one session.
type CommitFunc func(ctx context.Context, sessionID string) error

// Flusher coalesces bursts of edits into one trailing commit per session.
// Every Touch restarts the session's timer; Flush commits right away.
type Flusher struct {
	delay   time.Duration
	timeout time.Duration
	commit  CommitFunc
	logger  *slog.Logger

	mu     sync.Mutex
	timers map[string]pendingCommit
	seq    uint64
	closed bool
}

type pendingCommit struct {
	timer *time.Timer
	seq   uint64
}

func NewFlusher(delay, timeout time.Duration, commit CommitFunc, logger *slog.Logger) *Flusher {
	if commit == nil {
		panic("calsync: commit func required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Flusher{
		delay:   delay,
		timeout: timeout,
		commit:  commit,
		logger:  logger,
		timers:  make(map[string]pendingCommit),
	}
}

// Touch schedules a trailing commit for sessionID.
func (f *Flusher) Touch(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if p, ok := f.timers[sessionID]; ok {
		p.timer.Stop()
	}
	f.seq++
	seq := f.seq
	f.timers[sessionID] = pendingCommit{
		timer: time.AfterFunc(f.delay, func() { f.fire(sessionID, seq) }),
		seq:   seq,
	}
}

func (f *Flusher) fire(sessionID string, seq uint64) {
	f.mu.Lock()
	if p, ok := f.timers[sessionID]; ok && p.seq == seq {
		delete(f.timers, sessionID)
	}
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	if err := f.commit(ctx, sessionID); err != nil {
		f.logger.Error("scheduled commit failed", "session_id", sessionID, "error", err)
	}
}

// Flush cancels the pending timer and commits immediately.
func (f *Flusher) Flush(ctx context.Context, sessionID string) error {
	f.Cancel(sessionID)
	return f.commit(ctx, sessionID)
}

// Cancel drops a pending commit without running it.
func (f *Flusher) Cancel(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.timers[sessionID]; ok {
		p.timer.Stop()
		delete(f.timers, sessionID)
	}
}

// Pending reports whether a commit is scheduled for sessionID.
func (f *Flusher) Pending(sessionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.timers[sessionID]
	return ok
}

// Close commits every pending session and stops accepting new ones.
func (f *Flusher) Close(ctx context.Context) error {
	f.mu.Lock()
	f.closed = true
	ids := make([]string, 0, len(f.timers))
	for id, p := range f.timers {
		if p.timer.Stop() {
			ids = append(ids, id)
		}
		delete(f.timers, id)
	}
	f.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := f.commit(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
