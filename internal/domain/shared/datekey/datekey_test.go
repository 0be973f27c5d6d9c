package datekey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsOverflow(t *testing.T) {
	_, err := New(2025, time.April, 31)
	require.ErrorIs(t, err, ErrInvalidDate)

	_, err = New(2025, time.February, 29)
	require.ErrorIs(t, err, ErrInvalidDate)

	d, err := New(2024, time.February, 29)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.String())
}

func TestOrderingFollowsOrdinal(t *testing.T) {
	a := Must(2024, time.December, 31)
	b := Must(2025, time.January, 1)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, int64(1), b.Ordinal()-a.Ordinal())
	assert.True(t, a.AddDays(1).Equal(b))
	assert.Equal(t, b, FromOrdinal(b.Ordinal()))
}

func TestParseAndText(t *testing.T) {
	d, err := Parse("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, d.Weekday())
	assert.True(t, d.IsWeekend())

	var back DateKey
	text, err := d.MarshalText()
	require.NoError(t, err)
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, d, back)

	_, err = Parse("01.03.2025")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestFromTimeUsesLocalDate(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	ts := time.Date(2025, time.March, 2, 1, 0, 0, 0, loc)
	assert.Equal(t, Must(2025, time.March, 2), FromTime(ts))
}

func TestMonthKeyArithmetic(t *testing.T) {
	m := MonthKey{Year: 2025, Month: time.December}
	assert.Equal(t, MonthKey{Year: 2026, Month: time.January}, m.Add(1))
	assert.Equal(t, MonthKey{Year: 2025, Month: time.November}, m.Add(-1))
	assert.Equal(t, 31, m.Days())
	assert.Equal(t, 28, MonthKey{Year: 2025, Month: time.February}.Days())
	assert.True(t, m.Before(m.Add(1)))
	assert.True(t, m.Contains(Must(2025, time.December, 15)))

	parsed, err := ParseMonthKey("2025-03")
	require.NoError(t, err)
	assert.Equal(t, "2025-03", parsed.String())

	_, err = NewMonthKey(2025, 13)
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestGridIsMondayFirst(t *testing.T) {
	// March 2025 starts on a Saturday.
	m := MonthKey{Year: 2025, Month: time.March}
	cells := Grid(m)

	assert.Equal(t, 5, LeadingBlanks(m))
	for i := 0; i < 5; i++ {
		assert.False(t, cells[i].Exists, "cell %d", i)
	}
	assert.True(t, cells[5].Exists)
	assert.Equal(t, Must(2025, time.March, 1), cells[5].Date)
	assert.Equal(t, Must(2025, time.March, 31), cells[35].Date)
	assert.False(t, cells[36].Exists)

	existing := 0
	for _, c := range cells {
		if c.Exists {
			existing++
		}
	}
	assert.Equal(t, 31, existing)
	assert.Len(t, VisibleDates(m), 31)
}

func TestGridMondayStartHasNoLeadingBlanks(t *testing.T) {
	m := MonthKey{Year: 2024, Month: time.January}
	assert.Equal(t, 0, LeadingBlanks(m))
	assert.Equal(t, Must(2024, time.January, 1), Grid(m)[0].Date)
}
