package daterange

import (
	"errors"
	"fmt"

	"rentcal/internal/domain/shared/datekey"
)

var (
	ErrInvalidRange = errors.New("daterange: end must not be before start")
)

// DateRange represents a closed interval [Start, End] of calendar days.
type DateRange struct {
	Start datekey.DateKey `json:"start"`
	End   datekey.DateKey `json:"end"`
}

// New orders the endpoints chronologically, so a range picked backwards is
// still valid.
func New(a, b datekey.DateKey) DateRange {
	if b.Before(a) {
		a, b = b, a
	}
	return DateRange{Start: a, End: b}
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ErrInvalidRange
	}
	if dr.End.Before(dr.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Len is the number of days covered, both ends included.
func (dr DateRange) Len() int {
	return int(dr.End.Ordinal()-dr.Start.Ordinal()) + 1
}

func (dr DateRange) ContainsDate(d datekey.DateKey) bool {
	return !d.Before(dr.Start) && !d.After(dr.End)
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return !dr.End.Before(other.Start) && !other.End.Before(dr.Start)
}

// Days enumerates every date in the range.
func (dr DateRange) Days() []datekey.DateKey {
	if dr.Validate() != nil {
		return nil
	}
	out := make([]datekey.DateKey, 0, dr.Len())
	for d := dr.Start; !d.After(dr.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// Label renders the range the way the chosen-dates prompt shows it:
// "05 - 10 March" inside one month, "28 February - 03 March" across months.
func (dr DateRange) Label() string {
	if dr.Start.MonthKey() == dr.End.MonthKey() {
		return fmt.Sprintf("%02d - %02d %s", dr.Start.Day(), dr.End.Day(), dr.Start.Month())
	}
	return fmt.Sprintf("%02d %s - %02d %s", dr.Start.Day(), dr.Start.Month(), dr.End.Day(), dr.End.Month())
}
