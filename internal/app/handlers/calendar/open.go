package calendar

import (
	"context"
	"fmt"
	"strings"

	"rentcal/internal/app/dto"
	"rentcal/internal/app/session"
	domaincalendar "rentcal/internal/domain/calendar"
	"rentcal/internal/domain/shared/datekey"
)

const (
	openCalendarKey = "calendar.open"
	navigateKey     = "calendar.navigate"
	getViewKey      = "calendar.view"
	getSnapshotKey  = "calendar.snapshot"
)

// OpenCalendarCommand starts an editing session. An EntityID opens the
// calendar of a stored entity; without one a draft is created or resumed.
type OpenCalendarCommand struct {
	EntityID    string `validate:"omitempty,max=128"`
	DraftID     string `validate:"omitempty,max=128"`
	Month       string `validate:"omitempty,datetime=2006-01"`
	DefaultCost int64  `validate:"gte=0"`
}

func (c OpenCalendarCommand) Key() string { return openCalendarKey }

type OpenCalendarHandler struct {
	Deps
}

func (h *OpenCalendarHandler) Handle(ctx context.Context, cmd OpenCalendarCommand) (dto.CalendarView, error) {
	var month datekey.MonthKey
	if raw := strings.TrimSpace(cmd.Month); raw != "" {
		m, err := datekey.ParseMonthKey(raw)
		if err != nil {
			return dto.CalendarView{}, fmt.Errorf("open calendar: %w", err)
		}
		month = m
	}
	sess, err := h.Sessions.Open(ctx, session.OpenParams{
		EntityID:    strings.TrimSpace(cmd.EntityID),
		DraftID:     strings.TrimSpace(cmd.DraftID),
		Month:       month,
		DefaultCost: cmd.DefaultCost,
	})
	if err != nil {
		return dto.CalendarView{}, err
	}
	view, err := h.Sessions.View(ctx, sess.ID())
	if err != nil {
		return dto.CalendarView{}, err
	}
	out := dto.MapCalendarView(view)
	out.Unsaved = sess.HasUnsavedChanges()
	return out, nil
}

type NavigateCommand struct {
	SessionID string `validate:"required"`
	Delta     int    `validate:"min=-120,max=120"`
}

func (c NavigateCommand) Key() string { return navigateKey }

type NavigateHandler struct {
	Deps
}

func (h *NavigateHandler) Handle(ctx context.Context, cmd NavigateCommand) (dto.CalendarView, error) {
	res, err := h.Sessions.Navigate(ctx, cmd.SessionID, cmd.Delta)
	if res.Dirty && h.Scheduler != nil {
		h.Scheduler.Touch(cmd.SessionID)
	}
	return mapResult(res), err
}

type GetViewQuery struct {
	SessionID string `validate:"required"`
}

func (q GetViewQuery) Key() string { return getViewKey }

type GetViewHandler struct {
	Deps
}

func (h *GetViewHandler) Handle(ctx context.Context, q GetViewQuery) (dto.CalendarView, error) {
	sess, err := h.Sessions.Get(ctx, q.SessionID)
	if err != nil {
		return dto.CalendarView{}, err
	}
	view, err := h.Sessions.View(ctx, q.SessionID)
	if err != nil {
		return dto.CalendarView{}, err
	}
	out := dto.MapCalendarView(view)
	out.Unsaved = sess.HasUnsavedChanges()
	return out, nil
}

type GetSnapshotQuery struct {
	SessionID string `validate:"required"`
}

func (q GetSnapshotQuery) Key() string { return getSnapshotKey }

type GetSnapshotHandler struct {
	Deps
}

// Handle returns a detached copy of the session state for diagnostics.
func (h *GetSnapshotHandler) Handle(ctx context.Context, q GetSnapshotQuery) (domaincalendar.Snapshot, error) {
	return h.Sessions.Snapshot(ctx, q.SessionID)
}
