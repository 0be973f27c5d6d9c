package calendar

import (
	"errors"
	"sort"
	"time"

	"rentcal/internal/domain/availability"
	"rentcal/internal/domain/pricing"
	"rentcal/internal/domain/shared/datekey"
	"rentcal/internal/domain/shared/daterange"
	"rentcal/internal/domain/shared/events"
)

var (
	ErrNoCurrentMonth     = errors.New("calendar: no current month")
	ErrBeforeCurrentMonth = errors.New("calendar: cannot navigate before the current month")
	ErrSelectionPending   = errors.New("calendar: a selected range awaits apply or cancel")
	ErrNoPendingRange     = errors.New("calendar: no range awaits apply or cancel")
	ErrPastDate           = errors.New("calendar: date is in the past")
	ErrDateBlocked        = errors.New("calendar: date is blocked")
	ErrDateNotVisible     = errors.New("calendar: date is not in the displayed month")
	ErrInvalidPrice       = errors.New("calendar: invalid price")
)

// Mode tells whether the calendar edits an existing entity or a draft.
type Mode string

const (
	ModeEdit   Mode = "edit"
	ModeCreate Mode = "create"
)

// Clock returns the current instant. Its location decides what "today" is.
type Clock func() time.Time

// Settings is the explicit replacement for process-wide pricing flags.
type Settings struct {
	DefaultCost int64                   `json:"defaultCost"`
	Weekend     pricing.WeekendDiscount `json:"weekendDiscount"`
}

// Normalize applies the fallback default cost and drops negative percents.
func (s Settings) Normalize() Settings {
	s.DefaultCost = pricing.GlobalSettings{DefaultCost: s.DefaultCost}.ResolveDefaultCost()
	if s.Weekend.Percent < 0 {
		s.Weekend.Percent = 0
	}
	return s
}

// Options configure a new calendar.
type Options struct {
	ID       string
	EntityID string
	Month    datekey.MonthKey
	Settings Settings
	// DefaultPinned keeps a remote load from seeding the default cost.
	DefaultPinned bool
	Clock         Clock
}

// Calendar owns the price tables, blocked days, overlays and the selection
// gesture of one editing session. It is not safe for concurrent use.
type Calendar struct {
	id       string
	entityID string
	clock    Clock

	current       datekey.MonthKey
	settings      Settings
	defaultPinned bool

	tables        map[datekey.MonthKey]*pricing.MonthPriceTable
	blocked       *availability.BlockedDates
	authoritative map[datekey.DateKey]int64
	// remote is the last merged remote row set; ClearAll falls back to it.
	remote map[datekey.DateKey]int64

	ranges   []daterange.DateRange
	excluded map[datekey.DateKey]struct{}
	overlay  map[datekey.DateKey]int64

	selection Selection
	hover     map[datekey.DateKey]struct{}

	revision uint64
	events.EventRecorder
}

func New(opts Options) *Calendar {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	c := &Calendar{
		id:            opts.ID,
		entityID:      opts.EntityID,
		clock:         clock,
		settings:      opts.Settings.Normalize(),
		defaultPinned: opts.DefaultPinned,
		tables:        make(map[datekey.MonthKey]*pricing.MonthPriceTable),
		blocked:       availability.NewBlockedDates(),
		authoritative: make(map[datekey.DateKey]int64),
		remote:        make(map[datekey.DateKey]int64),
		excluded:      make(map[datekey.DateKey]struct{}),
		overlay:       make(map[datekey.DateKey]int64),
		hover:         make(map[datekey.DateKey]struct{}),
		selection:     Selection{Confirmed: true},
	}
	c.current = opts.Month
	if c.current.IsZero() {
		c.current = c.Today().MonthKey()
	}
	return c
}

func (c *Calendar) ID() string       { return c.id }
func (c *Calendar) EntityID() string { return c.entityID }

func (c *Calendar) Mode() Mode {
	if c.entityID != "" {
		return ModeEdit
	}
	return ModeCreate
}

func (c *Calendar) Today() datekey.DateKey { return datekey.FromTime(c.clock()) }

func (c *Calendar) IsPast(d datekey.DateKey) bool { return d.Before(c.Today()) }

func (c *Calendar) Settings() Settings { return c.settings }

func (c *Calendar) CurrentMonth() datekey.MonthKey { return c.current }

// Revision grows with every change that has to be persisted.
func (c *Calendar) Revision() uint64 { return c.revision }

func (c *Calendar) touch() { c.revision++ }

func (c *Calendar) CanNavigateBack() bool {
	return c.Today().MonthKey().Before(c.current)
}

// Navigate moves the displayed month by delta. Months before the one
// containing today are refused.
func (c *Calendar) Navigate(delta int) (datekey.MonthKey, error) {
	if c.current.IsZero() {
		return datekey.MonthKey{}, ErrNoCurrentMonth
	}
	next := c.current.Add(delta)
	if next.Before(c.Today().MonthKey()) {
		return c.current, ErrBeforeCurrentMonth
	}
	c.current = next
	c.clearHover()
	return next, nil
}

func (c *Calendar) table(m datekey.MonthKey) *pricing.MonthPriceTable {
	t, ok := c.tables[m]
	if !ok {
		t = pricing.NewMonthPriceTable(m, c.settings.DefaultCost)
		c.tables[m] = t
	}
	return t
}

func (c *Calendar) setRecord(d datekey.DateKey, price int64) {
	_ = c.table(d.MonthKey()).Set(d, price)
}

// setRecordIfPresent supersedes an existing record only.
func (c *Calendar) setRecordIfPresent(d datekey.DateKey, price int64) {
	if t, ok := c.tables[d.MonthKey()]; ok && t.Has(d) {
		_ = t.Set(d, price)
	}
}

// EnsureBasePrices materializes a record for every day of m that has none.
// Existing records are never overwritten. It returns the number of records
// inserted. Materialized records are derivable and do not bump the revision.
func (c *Calendar) EnsureBasePrices(m datekey.MonthKey) int {
	if m.IsZero() {
		return 0
	}
	t := c.table(m)
	inserted := 0
	for _, d := range datekey.VisibleDates(m) {
		if ok, _ := t.Insert(d, c.basePrice(d)); ok {
			inserted++
		}
	}
	return inserted
}

// basePrice is the price a freshly materialized record gets.
func (c *Calendar) basePrice(d datekey.DateKey) int64 {
	switch {
	case c.IsPast(d), c.isBlocked(d):
		return 0
	default:
		return c.settings.Weekend.PriceFor(d, c.settings.DefaultCost)
	}
}

// BlockRange blocks every day of r and zeroes the records that exist.
func (c *Calendar) BlockRange(r daterange.DateRange) error {
	return c.blockRange(r, availability.ReasonHostBlock)
}

func (c *Calendar) blockRange(r daterange.DateRange, reason availability.BlockReason) error {
	added, err := c.blocked.BlockRange(r)
	if err != nil {
		return err
	}
	for _, d := range r.Days() {
		c.setRecordIfPresent(d, 0)
	}
	if len(added) > 0 {
		c.Record(availability.DatesBlockedEvent(c.id, r, reason, c.clock()))
	}
	c.touch()
	return nil
}

// BlockDays blocks [startDay, endDay] of the displayed month.
func (c *Calendar) BlockDays(startDay, endDay int) error {
	if c.current.IsZero() {
		return ErrNoCurrentMonth
	}
	start, err := c.current.Date(startDay)
	if err != nil {
		return err
	}
	end, err := c.current.Date(endDay)
	if err != nil {
		return err
	}
	return c.BlockRange(daterange.New(start, end))
}

// UnblockDate releases d. Its record goes back to the current default cost;
// the price held before blocking is not retained.
func (c *Calendar) UnblockDate(d datekey.DateKey) error {
	removed := c.blocked.Unblock(d)
	if p, ok := c.authoritative[d]; ok && (removed || p == 0) {
		delete(c.authoritative, d)
		removed = true
	}
	if !removed {
		return nil
	}
	c.setRecordIfPresent(d, c.settings.DefaultCost)
	c.Record(availability.DateUnblockedEvent(c.id, d, c.clock()))
	c.touch()
	return nil
}

// SetPrice pins a manual price for d. A price of 0 blocks the day.
func (c *Calendar) SetPrice(d datekey.DateKey, price int64) error {
	if price < 0 {
		return ErrInvalidPrice
	}
	if c.IsPast(d) {
		return ErrPastDate
	}
	if price == 0 {
		return c.blockRange(daterange.New(d, d), availability.ReasonManual)
	}
	c.blocked.Unblock(d)
	delete(c.overlay, d)
	delete(c.excluded, d)
	c.authoritative[d] = price
	c.setRecord(d, price)
	c.Record(PricePinnedEvent(c.id, d, price, c.clock()))
	c.touch()
	return nil
}

// SetDefaultCost changes the default and re-prices every record that is not
// pinned by a remote or manual value. Non-positive costs fall back to the
// built-in default.
func (c *Calendar) SetDefaultCost(cost int64) {
	if cost <= 0 {
		cost = pricing.FallbackDefaultCost
	}
	c.settings.DefaultCost = cost
	c.defaultPinned = true
	for _, t := range c.tables {
		t.DefaultCost = cost
	}
	c.rebase()
	c.touch()
}

// SetWeekendDiscount changes the standing weekend rule and re-prices records.
func (c *Calendar) SetWeekendDiscount(enabled bool, percent float64) {
	if percent < 0 {
		percent = 0
	}
	c.settings.Weekend = pricing.WeekendDiscount{Enabled: enabled, Percent: percent}
	c.rebase()
	c.touch()
}

func (c *Calendar) rebase() {
	for _, t := range c.tables {
		t.Update(func(rec pricing.PriceRecord) int64 {
			return c.resolve(rec.Date, false).Price
		})
	}
}

// ClearAll drops every local edit: tables, blocks, manual prices, ranges,
// overlays, the selection and the weekend rule. The default cost and the
// loaded remote records survive, and the displayed month is re-priced.
func (c *Calendar) ClearAll() {
	c.tables = make(map[datekey.MonthKey]*pricing.MonthPriceTable)
	c.blocked.Clear()
	c.authoritative = make(map[datekey.DateKey]int64, len(c.remote))
	for d, p := range c.remote {
		c.authoritative[d] = p
	}
	c.ranges = nil
	c.excluded = make(map[datekey.DateKey]struct{})
	c.overlay = make(map[datekey.DateKey]int64)
	c.selection = Selection{Confirmed: true}
	c.clearHover()
	c.settings.Weekend = pricing.WeekendDiscount{}
	for _, d := range sortedKeys(c.authoritative) {
		p := c.authoritative[d]
		if p == 0 {
			c.blocked.Block(d)
		}
		c.setRecord(d, p)
	}
	c.EnsureBasePrices(c.current)
	c.Record(ClearedEvent(c.id, c.clock()))
	c.touch()
}

// Tables returns the loaded month tables in chronological order.
func (c *Calendar) Tables() []*pricing.MonthPriceTable {
	out := make([]*pricing.MonthPriceTable, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

func (c *Calendar) Table(m datekey.MonthKey) (*pricing.MonthPriceTable, bool) {
	t, ok := c.tables[m]
	return t, ok
}

func (c *Calendar) Blocked() *availability.BlockedDates { return c.blocked }

func (c *Calendar) Ranges() []daterange.DateRange {
	out := make([]daterange.DateRange, len(c.ranges))
	copy(out, c.ranges)
	return out
}

func (c *Calendar) Overlay(d datekey.DateKey) (int64, bool) {
	p, ok := c.overlay[d]
	return p, ok
}

func (c *Calendar) IsExcluded(d datekey.DateKey) bool {
	_, ok := c.excluded[d]
	return ok
}

func (c *Calendar) IsAuthoritative(d datekey.DateKey) bool {
	_, ok := c.authoritative[d]
	return ok
}
