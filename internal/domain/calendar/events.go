package calendar

import (
	"time"

	"rentcal/internal/domain/shared/datekey"
	"rentcal/internal/domain/shared/daterange"
)

type RangeSelected struct {
	CalendarID string
	Range      daterange.DateRange
	At         time.Time
}

func (e RangeSelected) EventName() string     { return "calendar.range_selected" }
func (e RangeSelected) AggregateID() string   { return e.CalendarID }
func (e RangeSelected) OccurredAt() time.Time { return e.At }

type DiscountApplied struct {
	CalendarID string
	Range      daterange.DateRange
	Percent    float64
	Days       int
	At         time.Time
}

func (e DiscountApplied) EventName() string     { return "calendar.discount_applied" }
func (e DiscountApplied) AggregateID() string   { return e.CalendarID }
func (e DiscountApplied) OccurredAt() time.Time { return e.At }

type RangeCanceled struct {
	CalendarID string
	Range      daterange.DateRange
	At         time.Time
}

func (e RangeCanceled) EventName() string     { return "calendar.range_canceled" }
func (e RangeCanceled) AggregateID() string   { return e.CalendarID }
func (e RangeCanceled) OccurredAt() time.Time { return e.At }

type DateExcluded struct {
	CalendarID string
	Date       datekey.DateKey
	At         time.Time
}

func (e DateExcluded) EventName() string     { return "calendar.date_excluded" }
func (e DateExcluded) AggregateID() string   { return e.CalendarID }
func (e DateExcluded) OccurredAt() time.Time { return e.At }

type PricePinned struct {
	CalendarID string
	Date       datekey.DateKey
	Price      int64
	At         time.Time
}

func (e PricePinned) EventName() string     { return "calendar.price_pinned" }
func (e PricePinned) AggregateID() string   { return e.CalendarID }
func (e PricePinned) OccurredAt() time.Time { return e.At }

type Cleared struct {
	CalendarID string
	At         time.Time
}

func (e Cleared) EventName() string     { return "calendar.cleared" }
func (e Cleared) AggregateID() string   { return e.CalendarID }
func (e Cleared) OccurredAt() time.Time { return e.At }

// Committed is raised after the full price set of an entity was replaced
// in the remote store. Other sessions of the same entity react to it.
type Committed struct {
	CalendarID string    `json:"calendar_id"`
	EntityID   string    `json:"entity_id"`
	Records    int       `json:"records"`
	At         time.Time `json:"at"`
}

func (e Committed) EventName() string     { return "calendar.committed" }
func (e Committed) AggregateID() string   { return e.EntityID }
func (e Committed) OccurredAt() time.Time { return e.At }

func RangeSelectedEvent(id string, r daterange.DateRange, at time.Time) RangeSelected {
	return RangeSelected{CalendarID: id, Range: r, At: at}
}

func DiscountAppliedEvent(id string, r daterange.DateRange, percent float64, days int, at time.Time) DiscountApplied {
	return DiscountApplied{CalendarID: id, Range: r, Percent: percent, Days: days, At: at}
}

func RangeCanceledEvent(id string, r daterange.DateRange, at time.Time) RangeCanceled {
	return RangeCanceled{CalendarID: id, Range: r, At: at}
}

func DateExcludedEvent(id string, d datekey.DateKey, at time.Time) DateExcluded {
	return DateExcluded{CalendarID: id, Date: d, At: at}
}

func PricePinnedEvent(id string, d datekey.DateKey, price int64, at time.Time) PricePinned {
	return PricePinned{CalendarID: id, Date: d, Price: price, At: at}
}

func ClearedEvent(id string, at time.Time) Cleared {
	return Cleared{CalendarID: id, At: at}
}

func CommittedEvent(id, entityID string, records int, at time.Time) Committed {
	return Committed{CalendarID: id, EntityID: entityID, Records: records, At: at}
}
