package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcal/internal/domain/shared/datekey"
)

func selectRange(t *testing.T, c *Calendar, from, to int) {
	t.Helper()
	outcome, err := c.Click(march(from))
	require.NoError(t, err)
	require.Equal(t, ClickStarted, outcome)
	outcome, err = c.Click(march(to))
	require.NoError(t, err)
	require.Equal(t, ClickCompleted, outcome)
}

func TestTwoClickGesture(t *testing.T) {
	c := newMarch(t, 0)
	assert.Equal(t, PhaseIdle, c.Phase())

	_, err := c.Click(march(10))
	require.NoError(t, err)
	assert.Equal(t, PhasePickingEnd, c.Phase())

	_, err = c.Click(march(5))
	require.NoError(t, err)
	assert.Equal(t, PhasePendingDiscount, c.Phase())
	assert.False(t, c.Selection().Confirmed)

	r, ok := c.PendingRange()
	require.True(t, ok)
	assert.Equal(t, march(5), r.Start)
	assert.Equal(t, march(10), r.End)
}

func TestNoNewRangeWhilePending(t *testing.T) {
	c := newMarch(t, 0)
	selectRange(t, c, 3, 4)

	outcome, err := c.Click(march(20))
	assert.ErrorIs(t, err, ErrSelectionPending)
	assert.Equal(t, ClickIgnored, outcome)
	assert.Len(t, c.Ranges(), 1)
}

func TestClickIgnoresPastBlockedAndForeignDays(t *testing.T) {
	c := New(Options{ID: "cal", Month: marchMonth, Settings: Settings{DefaultCost: 8000}, Clock: fixedClock(2025, time.March, 10)})
	require.NoError(t, c.BlockDays(15, 15))

	_, err := c.Click(march(9))
	assert.ErrorIs(t, err, ErrPastDate)
	_, err = c.Click(march(15))
	assert.ErrorIs(t, err, ErrDateBlocked)
	_, err = c.Click(datekey.Must(2025, time.April, 1))
	assert.ErrorIs(t, err, ErrDateNotVisible)
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestApplyDiscountPopulatesOverlay(t *testing.T) {
	c := newMarch(t, 0)
	selectRange(t, c, 3, 12)
	c.excluded[march(6)] = struct{}{}

	require.NoError(t, c.Apply(10))

	dates := c.OverlayDates()
	assert.Len(t, dates, 9)
	for _, d := range dates {
		p, _ := c.Overlay(d)
		assert.Equal(t, int64(7200), p)
	}
	_, has := c.Overlay(march(6))
	assert.False(t, has)
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.True(t, c.Selection().Confirmed)
}

func TestApplySkipsPastDays(t *testing.T) {
	now := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	c := New(Options{ID: "cal", Month: marchMonth, Settings: Settings{DefaultCost: 8000}, Clock: func() time.Time { return now }})
	selectRange(t, c, 3, 6)

	now = now.AddDate(0, 0, 2)
	require.NoError(t, c.Apply(10))

	assert.Equal(t, []datekey.DateKey{march(5), march(6)}, c.OverlayDates())
}

func TestCancelBeforeApplyPopsRange(t *testing.T) {
	c := newMarch(t, 0)
	selectRange(t, c, 3, 12)

	require.NoError(t, c.Cancel())
	assert.Empty(t, c.Ranges())
	assert.Empty(t, c.OverlayDates())
	assert.Equal(t, PhaseIdle, c.Phase())

	assert.ErrorIs(t, c.Cancel(), ErrNoPendingRange)
}

func TestCancelWhilePickingEndKeepsRanges(t *testing.T) {
	c := newMarch(t, 0)
	selectRange(t, c, 3, 4)
	require.NoError(t, c.Apply(10))

	_, err := c.Click(march(20))
	require.NoError(t, err)
	require.NoError(t, c.Cancel())

	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Len(t, c.Ranges(), 1)
	assert.Len(t, c.OverlayDates(), 2)
}

func TestCarveOutRemovesOnlyThatDate(t *testing.T) {
	c := newMarch(t, 0)
	selectRange(t, c, 3, 7)
	require.NoError(t, c.Apply(10))

	outcome, err := c.Click(march(5))
	require.NoError(t, err)
	assert.Equal(t, ClickExcluded, outcome)

	_, has := c.Overlay(march(5))
	assert.False(t, has)
	for _, day := range []int{3, 4, 6, 7} {
		p, ok := c.Overlay(march(day))
		assert.True(t, ok, "day %d", day)
		assert.Equal(t, int64(7200), p)
	}
	res := c.ResolvePrice(march(5))
	assert.Equal(t, StatusExcluded, res.Status)
	assert.Equal(t, int64(8000), res.Price)
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestClickOnExcludedRestartsRange(t *testing.T) {
	c := newMarch(t, 0)
	selectRange(t, c, 3, 7)
	require.NoError(t, c.Apply(10))
	_, err := c.Click(march(5))
	require.NoError(t, err)

	outcome, err := c.Click(march(5))
	require.NoError(t, err)
	assert.Equal(t, ClickRestarted, outcome)
	assert.False(t, c.IsExcluded(march(5)))
	assert.Equal(t, PhasePickingEnd, c.Phase())
	assert.Equal(t, march(5), c.Selection().TempStart)
}

func TestBlockingModeApplyBlocksAndPops(t *testing.T) {
	c := newMarch(t, 0)
	c.SetBlockingMode(true)
	selectRange(t, c, 10, 12)

	v, err := c.View()
	require.NoError(t, err)
	require.NotNil(t, v.Prompt)
	assert.True(t, v.Prompt.Blocking)
	assert.Equal(t, "10 - 12 March", v.Prompt.Label)

	require.NoError(t, c.Apply(50))

	for _, day := range []int{10, 11, 12} {
		assert.Equal(t, StatusBlocked, c.ResolvePrice(march(day)).Status)
	}
	assert.Empty(t, c.OverlayDates())
	assert.Empty(t, c.Ranges())
	assert.False(t, c.Selection().Blocking)
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestBlockingModeCancelSkipsBlock(t *testing.T) {
	c := newMarch(t, 0)
	c.SetBlockingMode(true)
	selectRange(t, c, 10, 12)

	require.NoError(t, c.Cancel())
	assert.Zero(t, c.Blocked().Len())
	assert.Empty(t, c.Ranges())
}

func TestHoverPreview(t *testing.T) {
	c := newMarch(t, 0)
	require.NoError(t, c.BlockDays(7, 7))

	c.Hover(march(9))
	assert.False(t, c.IsHovered(march(9)), "no preview while idle")

	_, err := c.Click(march(5))
	require.NoError(t, err)
	c.Hover(march(9))
	for _, day := range []int{5, 6, 8, 9} {
		assert.True(t, c.IsHovered(march(day)), "day %d", day)
	}
	assert.False(t, c.IsHovered(march(7)))

	c.Hover(march(3))
	assert.True(t, c.IsHovered(march(3)))
	assert.False(t, c.IsHovered(march(9)))

	c.LeaveSurface()
	assert.False(t, c.IsHovered(march(3)))
}

func TestApplyWithoutPendingRange(t *testing.T) {
	c := newMarch(t, 0)
	assert.ErrorIs(t, c.Apply(10), ErrNoPendingRange)
}

func TestPendingEventsFollowGesture(t *testing.T) {
	c := newMarch(t, 0)
	selectRange(t, c, 3, 4)
	require.NoError(t, c.Apply(10))

	var names []string
	for _, e := range c.Drain() {
		names = append(names, e.EventName())
	}
	assert.Equal(t, []string{"calendar.range_selected", "calendar.discount_applied"}, names)
	assert.Empty(t, c.PendingEvents())
}
