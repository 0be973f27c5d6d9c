package calendar

import (
	"rentcal/internal/domain/shared/datekey"
	"rentcal/internal/domain/shared/daterange"
)

type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhasePickingEnd      Phase = "picking_end"
	PhasePendingDiscount Phase = "pending_discount"
)

// Selection is the transient state of the two-click gesture.
type Selection struct {
	TempStart datekey.DateKey `json:"tempStart"`
	Confirmed bool            `json:"confirmed"`
	Blocking  bool            `json:"blocking"`
}

func (s Selection) Phase() Phase {
	switch {
	case !s.TempStart.IsZero():
		return PhasePickingEnd
	case !s.Confirmed:
		return PhasePendingDiscount
	default:
		return PhaseIdle
	}
}

// ClickOutcome says what a click did.
type ClickOutcome string

const (
	ClickStarted   ClickOutcome = "range_started"
	ClickCompleted ClickOutcome = "range_completed"
	ClickExcluded  ClickOutcome = "date_excluded"
	ClickRestarted ClickOutcome = "exclusion_removed"
	ClickIgnored   ClickOutcome = "ignored"
)

func (c *Calendar) Selection() Selection { return c.selection }

func (c *Calendar) Phase() Phase { return c.selection.Phase() }

// Click feeds a day click into the selection gesture. Past and blocked days
// are ignored, and no new range may start while one awaits apply or cancel.
func (c *Calendar) Click(d datekey.DateKey) (ClickOutcome, error) {
	if err := c.checkClickable(d); err != nil {
		return ClickIgnored, err
	}
	switch c.selection.Phase() {
	case PhasePendingDiscount:
		return ClickIgnored, ErrSelectionPending
	case PhasePickingEnd:
		r := daterange.New(c.selection.TempStart, d)
		c.ranges = append(c.ranges, r)
		c.selection.TempStart = datekey.DateKey{}
		c.selection.Confirmed = false
		c.clearHover()
		c.Record(RangeSelectedEvent(c.id, r, c.clock()))
		return ClickCompleted, nil
	}

	if _, ok := c.excluded[d]; ok {
		delete(c.excluded, d)
		c.selection.TempStart = d
		c.touch()
		return ClickRestarted, nil
	}
	if c.inCommittedRange(d) {
		c.exclude(d)
		return ClickExcluded, nil
	}
	c.selection.TempStart = d
	return ClickStarted, nil
}

func (c *Calendar) checkClickable(d datekey.DateKey) error {
	if c.current.IsZero() {
		return ErrNoCurrentMonth
	}
	if !c.current.Contains(d) {
		return ErrDateNotVisible
	}
	if c.IsPast(d) {
		return ErrPastDate
	}
	if c.isBlocked(d) {
		return ErrDateBlocked
	}
	return nil
}

func (c *Calendar) inCommittedRange(d datekey.DateKey) bool {
	for _, r := range c.ranges {
		if r.ContainsDate(d) {
			return true
		}
	}
	return false
}

// Hover recomputes the preview span between the pending start and d. It only
// has an effect while the second click is awaited.
func (c *Calendar) Hover(d datekey.DateKey) {
	c.clearHover()
	if c.selection.Phase() != PhasePickingEnd {
		return
	}
	if c.IsPast(d) || c.isBlocked(d) {
		return
	}
	for _, day := range daterange.New(c.selection.TempStart, d).Days() {
		if c.IsPast(day) || c.isBlocked(day) {
			continue
		}
		c.hover[day] = struct{}{}
	}
}

// LeaveSurface drops the hover preview.
func (c *Calendar) LeaveSurface() { c.clearHover() }

func (c *Calendar) clearHover() {
	if len(c.hover) == 0 {
		return
	}
	c.hover = make(map[datekey.DateKey]struct{})
}

func (c *Calendar) IsHovered(d datekey.DateKey) bool {
	_, ok := c.hover[d]
	return ok
}

// SetBlockingMode switches Apply between discounting and blocking.
func (c *Calendar) SetBlockingMode(enabled bool) {
	c.selection.Blocking = enabled
}

// Apply resolves the pending range. In blocking mode the span is blocked and
// the range is dropped; otherwise percent is applied to every non-past,
// non-excluded day of the range.
func (c *Calendar) Apply(percent float64) error {
	if c.selection.Phase() != PhasePendingDiscount || len(c.ranges) == 0 {
		return ErrNoPendingRange
	}
	last := c.ranges[len(c.ranges)-1]
	if c.selection.Blocking {
		if err := c.BlockRange(last); err != nil {
			return err
		}
		c.selection.Blocking = false
		c.popRange()
		c.selection.Confirmed = true
		return nil
	}
	c.applyOverlay(last, percent)
	c.selection.Confirmed = true
	return nil
}

// Cancel abandons the gesture. While the second click is awaited it only
// forgets the start; while a range is pending it pops that range.
func (c *Calendar) Cancel() error {
	switch c.selection.Phase() {
	case PhasePickingEnd:
		c.selection.TempStart = datekey.DateKey{}
		c.clearHover()
		return nil
	case PhasePendingDiscount:
		c.popRange()
		c.selection.Blocking = false
		c.selection.Confirmed = true
		return nil
	default:
		return ErrNoPendingRange
	}
}

// PendingRange is the range awaiting apply or cancel.
func (c *Calendar) PendingRange() (daterange.DateRange, bool) {
	if c.selection.Phase() != PhasePendingDiscount || len(c.ranges) == 0 {
		return daterange.DateRange{}, false
	}
	return c.ranges[len(c.ranges)-1], true
}
