package calendar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"rentcal/internal/app/dto"
	"rentcal/internal/app/session"
	"rentcal/internal/domain/availability"
	domaincalendar "rentcal/internal/domain/calendar"
	"rentcal/internal/domain/pricing"
	"rentcal/internal/domain/shared/datekey"
	"rentcal/internal/domain/shared/daterange"
)

var ErrSessionRequired = errors.New("calendar: session id is required")

// Scheduler receives the dirty signal of a gesture and decides when the
// session is committed.
type Scheduler interface {
	Touch(sessionID string)
	Flush(ctx context.Context, sessionID string) error
}

// Deps is shared by every calendar handler.
type Deps struct {
	Sessions  *session.Service
	Scheduler Scheduler
	Logger    *slog.Logger
}

// mutate runs fn in the session and schedules a commit when it changed
// persisted state. A domain error is returned together with the current view.
func (d Deps) mutate(ctx context.Context, sessionID string, fn func(cal *domaincalendar.Calendar) error) (dto.CalendarView, error) {
	if strings.TrimSpace(sessionID) == "" {
		return dto.CalendarView{}, ErrSessionRequired
	}
	res, err := d.Sessions.Mutate(ctx, sessionID, fn)
	if res.Dirty && d.Scheduler != nil {
		d.Scheduler.Touch(sessionID)
	}
	return mapResult(res), err
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d.Logger
}

func mapResult(res session.Result) dto.CalendarView {
	if res.View.Month.IsZero() {
		return dto.CalendarView{}
	}
	view := dto.MapCalendarView(res.View)
	view.Dirty = res.Dirty
	view.Unsaved = res.Unsaved
	return view
}

func parseDate(raw string) (datekey.DateKey, error) {
	return datekey.Parse(strings.TrimSpace(raw))
}

// scopedKey ties a client request key to its session so two sessions
// reusing a key do not share a replay.
func scopedKey(sessionID, requestKey string) string {
	requestKey = strings.TrimSpace(requestKey)
	if requestKey == "" {
		return ""
	}
	return sessionID + ":" + requestKey
}

var conflictErrors = []error{
	domaincalendar.ErrNoCurrentMonth,
	domaincalendar.ErrBeforeCurrentMonth,
	domaincalendar.ErrSelectionPending,
	domaincalendar.ErrNoPendingRange,
	domaincalendar.ErrPastDate,
	domaincalendar.ErrDateBlocked,
	domaincalendar.ErrDateNotVisible,
	domaincalendar.ErrInvalidPrice,
	availability.ErrEmptyRange,
	pricing.ErrNegativePrice,
}

var badInputErrors = []error{
	ErrSessionRequired,
	datekey.ErrInvalidDate,
	datekey.ErrInvalidMonth,
	daterange.ErrInvalidRange,
}

// IsConflict reports whether err is a refused gesture rather than a failure.
// The session is unchanged and its view is still valid.
func IsConflict(err error) bool { return matchAny(err, conflictErrors) }

// IsBadInput reports whether err was caused by a malformed request.
func IsBadInput(err error) bool { return matchAny(err, badInputErrors) }

func matchAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
