package calendar

import "rentcal/internal/domain/shared/datekey"

type Status string

const (
	StatusAvailable         Status = "available"
	StatusBlocked           Status = "blocked"
	StatusPast              Status = "past"
	StatusExcluded          Status = "excluded"
	StatusDiscounted        Status = "discounted"
	StatusWeekendDiscounted Status = "weekend_discounted"
	StatusDefault           Status = "default"
)

type Resolution struct {
	Date   datekey.DateKey `json:"date"`
	Price  int64           `json:"price"`
	Status Status          `json:"status"`
}

// ResolvePrice returns the displayed price and state of d. The first
// matching rule wins:
//
//	past > blocked > authoritative > excluded > range overlay > weekend > cached or default
func (c *Calendar) ResolvePrice(d datekey.DateKey) Resolution {
	return c.resolve(d, true)
}

// ResolveMonth resolves every real day of the displayed month.
func (c *Calendar) ResolveMonth() ([]Resolution, error) {
	if c.current.IsZero() {
		return nil, ErrNoCurrentMonth
	}
	dates := datekey.VisibleDates(c.current)
	out := make([]Resolution, 0, len(dates))
	for _, d := range dates {
		out = append(out, c.resolve(d, true))
	}
	return out, nil
}

// resolve skips the cached record when useCache is false, which is how
// records are re-priced after a settings change.
func (c *Calendar) resolve(d datekey.DateKey, useCache bool) Resolution {
	res := Resolution{Date: d}
	if c.IsPast(d) {
		res.Status = StatusPast
		return res
	}
	remote, hasRemote := c.authoritative[d]
	if (hasRemote && remote == 0) || c.blocked.IsBlocked(d) {
		res.Status = StatusBlocked
		return res
	}
	if hasRemote {
		res.Price, res.Status = remote, StatusAvailable
		return res
	}
	if _, ok := c.excluded[d]; ok {
		res.Price, res.Status = c.settings.DefaultCost, StatusExcluded
		return res
	}
	if p, ok := c.overlay[d]; ok {
		res.Price, res.Status = p, StatusDiscounted
		return res
	}
	if c.settings.Weekend.Applies(d) {
		res.Price, res.Status = c.settings.Weekend.PriceFor(d, c.settings.DefaultCost), StatusWeekendDiscounted
		return res
	}
	res.Price, res.Status = c.settings.DefaultCost, StatusDefault
	if useCache {
		if t, ok := c.tables[d.MonthKey()]; ok {
			if rec, ok := t.Get(d); ok && rec.Price > 0 {
				res.Price = rec.Price
			}
		}
	}
	return res
}

func (c *Calendar) isBlocked(d datekey.DateKey) bool {
	if p, ok := c.authoritative[d]; ok && p == 0 {
		return true
	}
	return c.blocked.IsBlocked(d)
}
