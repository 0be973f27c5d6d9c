package calendar

import (
	"context"

	"rentcal/internal/app/dto"
	domaincalendar "rentcal/internal/domain/calendar"
	"rentcal/internal/domain/pricing"
)

const (
	clickDayKey        = "calendar.day.click"
	hoverDayKey        = "calendar.day.hover"
	leaveSurfaceKey    = "calendar.hover.leave"
	applySelectionKey  = "calendar.selection.apply"
	cancelSelectionKey = "calendar.selection.cancel"
	setBlockingKey     = "calendar.selection.blocking"
)

// ClickDayCommand is a click on one day cell. RequestKey makes a retried
// click a replay instead of a second toggle.
type ClickDayCommand struct {
	SessionID  string `validate:"required"`
	Date       string `validate:"required,datetime=2006-01-02"`
	RequestKey string `validate:"omitempty,max=128"`
}

func (c ClickDayCommand) Key() string            { return clickDayKey }
func (c ClickDayCommand) IdempotencyKey() string { return scopedKey(c.SessionID, c.RequestKey) }
func (c ClickDayCommand) ResultPrototype() any   { return &dto.CalendarView{} }

type ClickDayHandler struct {
	Deps
}

func (h *ClickDayHandler) Handle(ctx context.Context, cmd ClickDayCommand) (dto.CalendarView, error) {
	d, err := parseDate(cmd.Date)
	if err != nil {
		return dto.CalendarView{}, err
	}
	var outcome domaincalendar.ClickOutcome
	view, err := h.mutate(ctx, cmd.SessionID, func(cal *domaincalendar.Calendar) error {
		var clickErr error
		outcome, clickErr = cal.Click(d)
		return clickErr
	})
	view.Outcome = string(outcome)
	if err == nil {
		h.logger().DebugContext(ctx, "day clicked", "session_id", cmd.SessionID, "date", d.String(), "outcome", string(outcome))
	}
	return view, err
}

type HoverDayCommand struct {
	SessionID string `validate:"required"`
	Date      string `validate:"required,datetime=2006-01-02"`
}

func (c HoverDayCommand) Key() string { return hoverDayKey }

type HoverDayHandler struct {
	Deps
}

func (h *HoverDayHandler) Handle(ctx context.Context, cmd HoverDayCommand) (dto.CalendarView, error) {
	d, err := parseDate(cmd.Date)
	if err != nil {
		return dto.CalendarView{}, err
	}
	return h.mutate(ctx, cmd.SessionID, func(cal *domaincalendar.Calendar) error {
		cal.Hover(d)
		return nil
	})
}

type LeaveSurfaceCommand struct {
	SessionID string `validate:"required"`
}

func (c LeaveSurfaceCommand) Key() string { return leaveSurfaceKey }

type LeaveSurfaceHandler struct {
	Deps
}

func (h *LeaveSurfaceHandler) Handle(ctx context.Context, cmd LeaveSurfaceCommand) (dto.CalendarView, error) {
	return h.mutate(ctx, cmd.SessionID, func(cal *domaincalendar.Calendar) error {
		cal.LeaveSurface()
		return nil
	})
}

// ApplySelectionCommand carries the discount exactly as typed; "10%" and
// "abc" are both accepted, the latter as 0.
type ApplySelectionCommand struct {
	SessionID  string `validate:"required"`
	Percent    string `validate:"max=32"`
	RequestKey string `validate:"omitempty,max=128"`
}

func (c ApplySelectionCommand) Key() string            { return applySelectionKey }
func (c ApplySelectionCommand) IdempotencyKey() string { return scopedKey(c.SessionID, c.RequestKey) }
func (c ApplySelectionCommand) ResultPrototype() any   { return &dto.CalendarView{} }

type ApplySelectionHandler struct {
	Deps
}

func (h *ApplySelectionHandler) Handle(ctx context.Context, cmd ApplySelectionCommand) (dto.CalendarView, error) {
	percent := pricing.ParsePercent(cmd.Percent)
	return h.mutate(ctx, cmd.SessionID, func(cal *domaincalendar.Calendar) error {
		return cal.Apply(percent)
	})
}

type CancelSelectionCommand struct {
	SessionID  string `validate:"required"`
	RequestKey string `validate:"omitempty,max=128"`
}

func (c CancelSelectionCommand) Key() string            { return cancelSelectionKey }
func (c CancelSelectionCommand) IdempotencyKey() string { return scopedKey(c.SessionID, c.RequestKey) }
func (c CancelSelectionCommand) ResultPrototype() any   { return &dto.CalendarView{} }

type CancelSelectionHandler struct {
	Deps
}

func (h *CancelSelectionHandler) Handle(ctx context.Context, cmd CancelSelectionCommand) (dto.CalendarView, error) {
	return h.mutate(ctx, cmd.SessionID, func(cal *domaincalendar.Calendar) error {
		return cal.Cancel()
	})
}

type SetBlockingModeCommand struct {
	SessionID string `validate:"required"`
	Enabled   bool
}

func (c SetBlockingModeCommand) Key() string { return setBlockingKey }

type SetBlockingModeHandler struct {
	Deps
}

func (h *SetBlockingModeHandler) Handle(ctx context.Context, cmd SetBlockingModeCommand) (dto.CalendarView, error) {
	return h.mutate(ctx, cmd.SessionID, func(cal *domaincalendar.Calendar) error {
		cal.SetBlockingMode(cmd.Enabled)
		return nil
	})
}
