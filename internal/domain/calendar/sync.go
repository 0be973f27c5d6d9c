package calendar

import (
	"sort"

	"rentcal/internal/domain/availability"
	"rentcal/internal/domain/pricing"
	"rentcal/internal/domain/shared/datekey"
	"rentcal/internal/domain/shared/daterange"
)

// SyncRecord is one persisted row of an entity's price set.
type SyncRecord struct {
	EntityID string          `json:"entity_id"`
	Date     datekey.DateKey `json:"date"`
	Price    int64           `json:"price"`
}

type MergeResult struct {
	Months []datekey.MonthKey
	// SeededDefault is set when the first positive remote price became the
	// default cost.
	SeededDefault bool
}

// MergeRemote replaces the authoritative records with recs. Zero prices
// become blocked days. Local edits that are not pinned are kept.
func (c *Calendar) MergeRemote(recs []SyncRecord) MergeResult {
	sorted := make([]SyncRecord, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	fresh := make(map[datekey.DateKey]int64, len(sorted))
	for _, rec := range sorted {
		if rec.Date.IsZero() || rec.Price < 0 {
			continue
		}
		fresh[rec.Date] = rec.Price
	}
	for d, p := range c.authoritative {
		if _, still := fresh[d]; !still && p == 0 {
			c.blocked.Unblock(d)
		}
	}

	var res MergeResult
	months := make(map[datekey.MonthKey]struct{})
	c.authoritative = fresh
	c.remote = make(map[datekey.DateKey]int64, len(fresh))
	for d, p := range fresh {
		c.remote[d] = p
	}
	for _, rec := range sorted {
		p, ok := fresh[rec.Date]
		if !ok {
			continue
		}
		if p == 0 {
			c.blocked.Block(rec.Date)
		}
		c.setRecord(rec.Date, p)
		months[rec.Date.MonthKey()] = struct{}{}
		if !c.defaultPinned && !res.SeededDefault && p > 0 {
			c.settings.DefaultCost = p
			res.SeededDefault = true
		}
	}
	if res.SeededDefault {
		for _, t := range c.tables {
			t.DefaultCost = c.settings.DefaultCost
		}
		c.rebase()
	}
	for m := range months {
		res.Months = append(res.Months, m)
	}
	sort.Slice(res.Months, func(i, j int) bool { return res.Months[i].Before(res.Months[j]) })
	return res
}

// SyncRecords serializes the full price set for a commit: every table
// record, blocked day, discounted day and authoritative record. Past days
// are kept only when they carry an authoritative price.
func (c *Calendar) SyncRecords() []SyncRecord {
	dates := make(map[datekey.DateKey]struct{})
	for _, t := range c.tables {
		for _, rec := range t.Records() {
			dates[rec.Date] = struct{}{}
		}
	}
	for _, d := range c.blocked.All() {
		dates[d] = struct{}{}
	}
	for d := range c.overlay {
		dates[d] = struct{}{}
	}
	for d := range c.authoritative {
		dates[d] = struct{}{}
	}

	out := make([]SyncRecord, 0, len(dates))
	for _, d := range sortedKeys(dates) {
		if c.IsPast(d) {
			if p, ok := c.authoritative[d]; ok {
				out = append(out, SyncRecord{EntityID: c.entityID, Date: d, Price: p})
			}
			continue
		}
		out = append(out, SyncRecord{EntityID: c.entityID, Date: d, Price: c.resolve(d, true).Price})
	}
	return out
}

// MarkCommitted records that n rows were persisted for the entity.
func (c *Calendar) MarkCommitted(n int) {
	c.Record(CommittedEvent(c.id, c.entityID, n, c.clock()))
}

// LocalState is what the local cache holds for a draft calendar.
type LocalState struct {
	Tables  []*pricing.MonthPriceTable
	Blocked *availability.BlockedDates
}

// RestoreLocal hydrates a calendar from the local cache. Months already
// loaded in memory win over cached ones.
func (c *Calendar) RestoreLocal(state LocalState) {
	if state.Blocked != nil {
		for _, d := range state.Blocked.All() {
			c.blocked.Block(d)
		}
	}
	for _, t := range state.Tables {
		if t == nil {
			continue
		}
		if _, ok := c.tables[t.Month]; ok {
			continue
		}
		c.tables[t.Month] = t
	}
}

// RestoreSettings applies persisted settings without counting as an edit.
// A non-positive cost is ignored and a pinned default cost is kept.
func (c *Calendar) RestoreSettings(defaultCost int64, weekend *pricing.WeekendDiscount) {
	if defaultCost > 0 && !c.defaultPinned {
		c.settings.DefaultCost = defaultCost
	}
	if weekend != nil {
		c.settings.Weekend = *weekend
	}
	c.settings = c.settings.Normalize()
}

// Snapshot is a detached copy of the calendar state.
type Snapshot struct {
	ID            string                     `json:"id"`
	EntityID      string                     `json:"entityId,omitempty"`
	Mode          Mode                       `json:"mode"`
	Month         datekey.MonthKey           `json:"month"`
	Settings      Settings                   `json:"settings"`
	Tables        []*pricing.MonthPriceTable `json:"tables"`
	Blocked       *availability.BlockedDates `json:"blocked"`
	Authoritative []pricing.PriceRecord      `json:"authoritative"`
	Ranges        []daterange.DateRange      `json:"ranges"`
	Excluded      []datekey.DateKey          `json:"excluded"`
	Overlay       []pricing.PriceRecord      `json:"overlay"`
	Selection     Selection                  `json:"selection"`
	Phase         Phase                      `json:"phase"`
	Revision      uint64                     `json:"revision"`
}

func (c *Calendar) Snapshot() Snapshot {
	s := Snapshot{
		ID:        c.id,
		EntityID:  c.entityID,
		Mode:      c.Mode(),
		Month:     c.current,
		Settings:  c.settings,
		Blocked:   c.blocked.Clone(),
		Ranges:    c.Ranges(),
		Excluded:  c.ExcludedDates(),
		Selection: c.selection,
		Phase:     c.Phase(),
		Revision:  c.revision,
	}
	for _, t := range c.Tables() {
		s.Tables = append(s.Tables, t.Clone())
	}
	for _, d := range sortedKeys(c.authoritative) {
		s.Authoritative = append(s.Authoritative, pricing.PriceRecord{Date: d, Price: c.authoritative[d]})
	}
	for _, d := range c.OverlayDates() {
		s.Overlay = append(s.Overlay, pricing.PriceRecord{Date: d, Price: c.overlay[d]})
	}
	return s
}

func sortedKeys[V any](m map[datekey.DateKey]V) []datekey.DateKey {
	out := make([]datekey.DateKey, 0, len(m))
	for d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
