package calendar

import (
	"rentcal/internal/domain/pricing"
	"rentcal/internal/domain/shared/datekey"
	"rentcal/internal/domain/shared/daterange"
)

func (c *Calendar) applyOverlay(r daterange.DateRange, percent float64) {
	price := pricing.ApplyDiscount(c.settings.DefaultCost, percent)
	applied := 0
	for _, d := range r.Days() {
		if c.IsPast(d) {
			continue
		}
		if _, ok := c.excluded[d]; ok {
			continue
		}
		c.overlay[d] = price
		if !c.isBlocked(d) && !c.IsAuthoritative(d) {
			c.setRecord(d, price)
		}
		applied++
	}
	c.Record(DiscountAppliedEvent(c.id, r, percent, applied, c.clock()))
	c.touch()
}

// exclude carves d out of its range and drops its discount.
func (c *Calendar) exclude(d datekey.DateKey) {
	c.excluded[d] = struct{}{}
	if _, ok := c.overlay[d]; ok {
		delete(c.overlay, d)
		c.setRecordIfPresent(d, c.settings.DefaultCost)
	}
	c.Record(DateExcludedEvent(c.id, d, c.clock()))
	c.touch()
}

// popRange removes the most recent range with its overlay entries and
// exclusions. Records it had discounted go back to their base price.
func (c *Calendar) popRange() {
	if len(c.ranges) == 0 {
		return
	}
	last := c.ranges[len(c.ranges)-1]
	c.ranges = c.ranges[:len(c.ranges)-1]
	for _, d := range last.Days() {
		delete(c.excluded, d)
		if _, ok := c.overlay[d]; !ok {
			continue
		}
		delete(c.overlay, d)
		if !c.isBlocked(d) && !c.IsAuthoritative(d) {
			c.setRecordIfPresent(d, c.resolve(d, false).Price)
		}
	}
	c.Record(RangeCanceledEvent(c.id, last, c.clock()))
	c.touch()
}

// OverlayDates lists the days with a range discount in order.
func (c *Calendar) OverlayDates() []datekey.DateKey {
	return sortedKeys(c.overlay)
}

// ExcludedDates lists the carved-out days in order.
func (c *Calendar) ExcludedDates() []datekey.DateKey {
	return sortedKeys(c.excluded)
}
