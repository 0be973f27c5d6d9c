package calendar

import (
	"context"

	"rentcal/internal/app/dto"
)

const (
	commitKey = "calendar.commit"
	clearKey  = "calendar.clear"
	closeKey  = "calendar.close"
)

// CommitCommand persists the session immediately, cancelling any pending
// debounced commit.
type CommitCommand struct {
	SessionID string `validate:"required"`
}

func (c CommitCommand) Key() string { return commitKey }

type CommitHandler struct {
	Deps
}

func (h *CommitHandler) Handle(ctx context.Context, cmd CommitCommand) (dto.CommitResult, error) {
	if _, err := h.Sessions.Get(ctx, cmd.SessionID); err != nil {
		return dto.CommitResult{}, err
	}
	var err error
	if h.Scheduler != nil {
		err = h.Scheduler.Flush(ctx, cmd.SessionID)
	} else {
		err = h.Sessions.Commit(ctx, cmd.SessionID)
	}
	res := dto.CommitResult{SessionID: cmd.SessionID, Committed: err == nil}
	if err != nil {
		h.logger().ErrorContext(ctx, "calendar commit failed", "session_id", cmd.SessionID, "error", err)
		res.Error = err.Error()
	}
	return res, nil
}

type ClearCommand struct {
	SessionID string `validate:"required"`
}

func (c ClearCommand) Key() string { return clearKey }

type ClearHandler struct {
	Deps
}

func (h *ClearHandler) Handle(ctx context.Context, cmd ClearCommand) (dto.CalendarView, error) {
	if cmd.SessionID == "" {
		return dto.CalendarView{}, ErrSessionRequired
	}
	res, err := h.Sessions.Clear(ctx, cmd.SessionID)
	if res.Dirty && h.Scheduler != nil {
		h.Scheduler.Touch(cmd.SessionID)
	}
	return mapResult(res), err
}

// CloseCommand flushes pending edits and forgets the session.
type CloseCommand struct {
	SessionID string `validate:"required"`
}

func (c CloseCommand) Key() string { return closeKey }

type CloseHandler struct {
	Deps
}

func (h *CloseHandler) Handle(ctx context.Context, cmd CloseCommand) (struct{}, error) {
	sess, err := h.Sessions.Get(ctx, cmd.SessionID)
	if err != nil {
		return struct{}{}, err
	}
	if h.Scheduler != nil && sess.HasUnsavedChanges() {
		if err := h.Scheduler.Flush(ctx, cmd.SessionID); err != nil {
			h.logger().WarnContext(ctx, "flush before close failed", "session_id", cmd.SessionID, "error", err)
		}
	}
	return struct{}{}, h.Sessions.Close(ctx, cmd.SessionID)
}
