package datekey

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidDate  = errors.New("datekey: invalid calendar date")
	ErrInvalidMonth = errors.New("datekey: invalid month key")
)

const (
	isoLayout   = "2006-01-02"
	monthLayout = "2006-01"
	secondsDay  = 24 * 60 * 60
)

// DateKey is a calendar date without time of day or zone.
// The zero value is not a valid date; use IsZero to detect it.
type DateKey struct {
	year    int
	month   time.Month
	day     int
	ordinal int64
}

// New validates the triple and returns the key. Overflowing values such as
// 31 April are rejected instead of being normalized.
func New(year int, month time.Month, day int) (DateKey, error) {
	if month < time.January || month > time.December || day < 1 {
		return DateKey{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, int(month), day)
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return DateKey{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, int(month), day)
	}
	return fromUTCMidnight(t), nil
}

// Must is New for literals in tests and fixtures.
func Must(year int, month time.Month, day int) DateKey {
	d, err := New(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

// FromTime takes the calendar date of t in t's own location.
func FromTime(t time.Time) DateKey {
	y, m, d := t.Date()
	return fromUTCMidnight(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// FromOrdinal is the inverse of Ordinal.
func FromOrdinal(ordinal int64) DateKey {
	return fromUTCMidnight(time.Unix(ordinal*secondsDay, 0).UTC())
}

// Parse reads an ISO-8601 calendar date ("2025-03-01").
func Parse(raw string) (DateKey, error) {
	t, err := time.Parse(isoLayout, raw)
	if err != nil {
		return DateKey{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return fromUTCMidnight(t), nil
}

func fromUTCMidnight(t time.Time) DateKey {
	return DateKey{
		year:    t.Year(),
		month:   t.Month(),
		day:     t.Day(),
		ordinal: t.Unix() / secondsDay,
	}
}

func (d DateKey) Year() int          { return d.year }
func (d DateKey) Month() time.Month  { return d.month }
func (d DateKey) Day() int           { return d.day }
func (d DateKey) IsZero() bool       { return d.year == 0 && d.month == 0 && d.day == 0 }
func (d DateKey) MonthKey() MonthKey { return MonthKey{Year: d.year, Month: d.month} }

// Ordinal is the number of days since 1970-01-01.
func (d DateKey) Ordinal() int64 { return d.ordinal }

// Time returns midnight UTC of the date.
func (d DateKey) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

func (d DateKey) Weekday() time.Weekday { return d.Time().Weekday() }

func (d DateKey) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d DateKey) AddDays(n int) DateKey { return FromOrdinal(d.ordinal + int64(n)) }

func (d DateKey) Equal(other DateKey) bool  { return d.ordinal == other.ordinal }
func (d DateKey) Before(other DateKey) bool { return d.ordinal < other.ordinal }
func (d DateKey) After(other DateKey) bool  { return d.ordinal > other.ordinal }

// Compare returns -1, 0 or +1.
func (d DateKey) Compare(other DateKey) int {
	switch {
	case d.ordinal < other.ordinal:
		return -1
	case d.ordinal > other.ordinal:
		return 1
	default:
		return 0
	}
}

func (d DateKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

func (d DateKey) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *DateKey) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthKey identifies one displayed month.
type MonthKey struct {
	Year  int
	Month time.Month
}

func NewMonthKey(year int, month time.Month) (MonthKey, error) {
	if month < time.January || month > time.December {
		return MonthKey{}, fmt.Errorf("%w: %04d-%02d", ErrInvalidMonth, year, int(month))
	}
	return MonthKey{Year: year, Month: month}, nil
}

// ParseMonthKey reads "2025-03".
func ParseMonthKey(raw string) (MonthKey, error) {
	t, err := time.Parse(monthLayout, raw)
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonth, raw)
	}
	return MonthKey{Year: t.Year(), Month: t.Month()}, nil
}

func (m MonthKey) IsZero() bool { return m.Year == 0 && m.Month == 0 }

func (m MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m MonthKey) First() DateKey { return Must(m.Year, m.Month, 1) }

func (m MonthKey) Last() DateKey { return Must(m.Year, m.Month, m.Days()) }

func (m MonthKey) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Add moves by delta months across year boundaries.
func (m MonthKey) Add(delta int) MonthKey {
	t := time.Date(m.Year, m.Month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

func (m MonthKey) Before(other MonthKey) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

func (m MonthKey) Contains(d DateKey) bool {
	return d.year == m.Year && d.month == m.Month
}

// Date returns the given day of the month.
func (m MonthKey) Date(day int) (DateKey, error) {
	return New(m.Year, m.Month, day)
}

func (m MonthKey) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *MonthKey) UnmarshalText(text []byte) error {
	parsed, err := ParseMonthKey(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
