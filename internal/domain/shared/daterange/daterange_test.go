package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcal/internal/domain/shared/datekey"
)

func TestNewNormalizesOrder(t *testing.T) {
	r := New(datekey.Must(2025, time.March, 10), datekey.Must(2025, time.March, 5))
	require.NoError(t, r.Validate())
	assert.Equal(t, 5, r.Start.Day())
	assert.Equal(t, 10, r.End.Day())
	assert.Equal(t, 6, r.Len())
	assert.Len(t, r.Days(), 6)
}

func TestContainsAndOverlaps(t *testing.T) {
	r := New(datekey.Must(2025, time.March, 5), datekey.Must(2025, time.March, 8))
	assert.True(t, r.ContainsDate(datekey.Must(2025, time.March, 5)))
	assert.True(t, r.ContainsDate(datekey.Must(2025, time.March, 8)))
	assert.False(t, r.ContainsDate(datekey.Must(2025, time.March, 9)))

	other := New(datekey.Must(2025, time.March, 8), datekey.Must(2025, time.March, 12))
	assert.True(t, r.Overlaps(other))
	assert.False(t, r.Overlaps(New(datekey.Must(2025, time.March, 9), datekey.Must(2025, time.March, 9))))
}

func TestLabel(t *testing.T) {
	same := New(datekey.Must(2025, time.March, 5), datekey.Must(2025, time.March, 10))
	assert.Equal(t, "05 - 10 March", same.Label())

	across := New(datekey.Must(2025, time.February, 28), datekey.Must(2025, time.March, 3))
	assert.Equal(t, "28 February - 03 March", across.Label())
}

func TestZeroRangeIsInvalid(t *testing.T) {
	assert.ErrorIs(t, DateRange{}.Validate(), ErrInvalidRange)
	assert.Nil(t, DateRange{}.Days())
}
