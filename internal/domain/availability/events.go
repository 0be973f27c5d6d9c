package availability

import (
	"time"

	"rentcal/internal/domain/shared/datekey"
	"rentcal/internal/domain/shared/daterange"
)

type DatesBlocked struct {
	CalendarID string
	Range      daterange.DateRange
	Reason     BlockReason
	At         time.Time
}

func (e DatesBlocked) EventName() string     { return "calendar.dates_blocked" }
func (e DatesBlocked) AggregateID() string   { return e.CalendarID }
func (e DatesBlocked) OccurredAt() time.Time { return e.At }

type DateUnblocked struct {
	CalendarID string
	Date       datekey.DateKey
	At         time.Time
}

func (e DateUnblocked) EventName() string     { return "calendar.date_unblocked" }
func (e DateUnblocked) AggregateID() string   { return e.CalendarID }
func (e DateUnblocked) OccurredAt() time.Time { return e.At }

func DatesBlockedEvent(calendarID string, r daterange.DateRange, reason BlockReason, at time.Time) DatesBlocked {
	return DatesBlocked{CalendarID: calendarID, Range: r, Reason: reason, At: at}
}

func DateUnblockedEvent(calendarID string, d datekey.DateKey, at time.Time) DateUnblocked {
	return DateUnblocked{CalendarID: calendarID, Date: d, At: at}
}
