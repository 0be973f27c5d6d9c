package calsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"rentcal/internal/app/policies"
	"rentcal/internal/domain/availability"
	"rentcal/internal/domain/calendar"
	"rentcal/internal/domain/pricing"
	"rentcal/internal/domain/shared/daterange"
)

var (
	ErrRemoteUnavailable = errors.New("calsync: remote store unavailable")
	ErrCommitFailed      = errors.New("calsync: commit failed")
	ErrNoLocalCache      = errors.New("calsync: local cache not configured")
	// ErrNothingToCommit is returned instead of replacing remote rows with an
	// empty set.
	ErrNothingToCommit = errors.New("calsync: nothing to commit")
)

// Target identifies the calendar a load or commit is for. It is read under
// the session lock and carried across the unlocked I/O.
type Target struct {
	CalendarID string
	EntityID   string
}

func TargetOf(cal *calendar.Calendar) Target {
	return Target{CalendarID: cal.ID(), EntityID: cal.EntityID()}
}

func (t Target) Mode() calendar.Mode {
	if t.EntityID != "" {
		return calendar.ModeEdit
	}
	return calendar.ModeCreate
}

// Hydration is the fetched data waiting to be merged into a calendar.
type Hydration struct {
	Source      string
	Remote      []calendar.SyncRecord
	Local       calendar.LocalState
	DefaultCost int64
	Weekend     *pricing.WeekendDiscount
	Err         error
}

type LoadResult struct {
	Source        string
	Ensured       int
	SeededDefault bool
}

// Coordinator moves calendar state between memory, the remote store and the
// local cache. Its I/O methods never touch a calendar; Apply and Prepare do
// and must run under the owner's lock.
type Coordinator struct {
	remote  policies.RemoteStore
	cache   policies.LocalCache
	logger  *slog.Logger
	metrics Metrics
	flights singleflight.Group
}

func NewCoordinator(remote policies.RemoteStore, cache policies.LocalCache, logger *slog.Logger, metrics Metrics) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Coordinator{remote: remote, cache: cache, logger: logger, metrics: metrics}
}

// Prefetch gathers what a load needs. Concurrent fetches for one entity
// share a single remote query. withSettings also reads the shared settings
// keys, which only the first load of a session should do.
func (c *Coordinator) Prefetch(ctx context.Context, t Target, withSettings bool) Hydration {
	var h Hydration
	if withSettings {
		h.DefaultCost, h.Weekend = c.readSettings(ctx)
	}
	if t.Mode() == calendar.ModeCreate {
		local, err := c.readLocal(ctx, Namespace(t.CalendarID))
		if err != nil {
			c.logger.WarnContext(ctx, "local cache read failed", "calendar_id", t.CalendarID, "error", err)
			c.metrics.ObserveLoad(SourceLocal, ResultError)
			h.Source, h.Err = SourceFallback, err
			return h
		}
		c.metrics.ObserveLoad(SourceLocal, ResultOK)
		h.Source, h.Local = SourceLocal, local
		return h
	}

	recs, err := c.fetchRemote(ctx, t.EntityID)
	if err != nil {
		c.logger.WarnContext(ctx, "remote load failed, using defaults", "entity_id", t.EntityID, "error", err)
		c.metrics.ObserveLoad(SourceRemote, ResultError)
		h.Source, h.Err = SourceFallback, err
		return h
	}
	c.metrics.ObserveLoad(SourceRemote, ResultOK)
	c.logger.InfoContext(ctx, "remote prices loaded", "entity_id", t.EntityID, "records", len(recs))
	h.Source, h.Remote = SourceRemote, recs
	return h
}

func (c *Coordinator) fetchRemote(ctx context.Context, entityID string) ([]calendar.SyncRecord, error) {
	if c.remote == nil {
		return nil, ErrRemoteUnavailable
	}
	// The flight outlives any single caller.
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.flights.Do(entityID, func() (any, error) {
		return c.remote.Query(shared, entityID, daterange.DateRange{})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	}
	recs, _ := v.([]calendar.SyncRecord)
	return recs, nil
}

// Apply merges h into cal and materializes the displayed month. A failed
// fetch still leaves the month fully priced from defaults.
func (c *Coordinator) Apply(cal *calendar.Calendar, h Hydration) LoadResult {
	res := LoadResult{Source: h.Source}
	cal.RestoreSettings(h.DefaultCost, h.Weekend)
	switch h.Source {
	case SourceRemote:
		merged := cal.MergeRemote(h.Remote)
		res.SeededDefault = merged.SeededDefault
	case SourceLocal:
		cal.RestoreLocal(h.Local)
	}
	res.Ensured = cal.EnsureBasePrices(cal.CurrentMonth())
	return res
}

// LoadMonth is Prefetch followed by Apply for callers that own cal
// exclusively.
func (c *Coordinator) LoadMonth(ctx context.Context, cal *calendar.Calendar, withSettings bool) (LoadResult, error) {
	h := c.Prefetch(ctx, TargetOf(cal), withSettings)
	return c.Apply(cal, h), h.Err
}

func (c *Coordinator) readLocal(ctx context.Context, ns string) (calendar.LocalState, error) {
	var state calendar.LocalState
	if c.cache == nil {
		return state, nil
	}
	keys, err := c.cache.Keys(ctx, ns+KeyMonthPrefix)
	if err != nil {
		return state, err
	}
	for _, key := range keys {
		m, ok := monthFromKey(ns, key)
		if !ok {
			continue
		}
		raw, err := c.cache.Get(ctx, key)
		if errors.Is(err, policies.ErrCacheMiss) {
			continue
		}
		if err != nil {
			return state, err
		}
		table, err := pricing.DecodeMonthPriceTable(m, raw)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping corrupt month table", "key", key, "error", err)
			continue
		}
		state.Tables = append(state.Tables, table)
	}

	raw, err := c.cache.Get(ctx, ns+KeyBlocked)
	switch {
	case errors.Is(err, policies.ErrCacheMiss):
	case err != nil:
		return state, err
	default:
		blocked := availability.NewBlockedDates()
		if err := json.Unmarshal(raw, blocked); err != nil {
			c.logger.WarnContext(ctx, "skipping corrupt blocked dates", "key", ns+KeyBlocked, "error", err)
		} else {
			state.Blocked = blocked
		}
	}
	return state, nil
}

// readSettings reads the shared settings keys. Missing or malformed values
// are treated as unset.
func (c *Coordinator) readSettings(ctx context.Context) (int64, *pricing.WeekendDiscount) {
	if c.cache == nil {
		return 0, nil
	}
	var cost int64
	if raw, err := c.cache.Get(ctx, KeyGlobalSettings); err == nil {
		var gs pricing.GlobalSettings
		if json.Unmarshal(raw, &gs) == nil {
			cost = gs.DefaultCost
		}
	}
	enabledRaw, errEnabled := c.cache.Get(ctx, KeyWeekendEnabled)
	percentRaw, errPercent := c.cache.Get(ctx, KeyWeekendPercent)
	if errEnabled != nil && errPercent != nil {
		return cost, nil
	}
	weekend := &pricing.WeekendDiscount{}
	if errEnabled == nil {
		weekend.Enabled, _ = strconv.ParseBool(string(enabledRaw))
	}
	if errPercent == nil {
		weekend.Percent = pricing.ParsePercent(string(percentRaw))
	}
	return cost, weekend
}

// Batch is a commit prepared under the session lock.
type Batch struct {
	Target
	Revision uint64
	Records  []calendar.SyncRecord
	Tables   map[string][]byte
	Blocked  []byte
	Settings calendar.Settings
}

// Prepare captures everything a commit writes.
func Prepare(cal *calendar.Calendar) (Batch, error) {
	b := Batch{
		Target:   TargetOf(cal),
		Revision: cal.Revision(),
		Settings: cal.Settings(),
	}
	if b.Mode() == calendar.ModeEdit {
		b.Records = cal.SyncRecords()
		return b, nil
	}
	ns := Namespace(b.CalendarID)
	b.Tables = make(map[string][]byte)
	for _, t := range cal.Tables() {
		raw, err := json.Marshal(t)
		if err != nil {
			return Batch{}, err
		}
		b.Tables[MonthKey(ns, t.Month)] = raw
	}
	raw, err := json.Marshal(cal.Blocked())
	if err != nil {
		return Batch{}, err
	}
	b.Blocked = raw
	return b, nil
}

// Commit persists b. Edit calendars replace every remote row of the entity;
// drafts are written to the local cache. In-memory state is never rolled
// back on failure.
func (c *Coordinator) Commit(ctx context.Context, b Batch) (int, error) {
	if err := c.writeSettings(ctx, b.Settings); err != nil {
		c.logger.WarnContext(ctx, "settings not cached", "calendar_id", b.CalendarID, "error", err)
	}
	if b.Mode() == calendar.ModeCreate {
		n, err := c.commitLocal(ctx, b)
		c.observeCommit(ctx, SourceLocal, b, n, err)
		return n, err
	}
	n, err := c.commitRemote(ctx, b)
	c.observeCommit(ctx, SourceRemote, b, n, err)
	return n, err
}

func (c *Coordinator) commitRemote(ctx context.Context, b Batch) (int, error) {
	if c.remote == nil {
		return 0, fmt.Errorf("%w: %w", ErrCommitFailed, ErrRemoteUnavailable)
	}
	if len(b.Records) == 0 {
		return 0, ErrNothingToCommit
	}
	if err := c.remote.DeleteAll(ctx, b.EntityID); err != nil {
		return 0, fmt.Errorf("%w: delete rows: %w", ErrCommitFailed, err)
	}
	if err := c.remote.InsertMany(ctx, b.Records); err != nil {
		return 0, fmt.Errorf("%w: insert rows: %w", ErrCommitFailed, err)
	}
	return len(b.Records), nil
}

func (c *Coordinator) commitLocal(ctx context.Context, b Batch) (int, error) {
	if c.cache == nil {
		return 0, fmt.Errorf("%w: %w", ErrCommitFailed, ErrNoLocalCache)
	}
	n := 0
	for key, raw := range b.Tables {
		if err := c.cache.Set(ctx, key, raw); err != nil {
			return n, fmt.Errorf("%w: %s: %w", ErrCommitFailed, key, err)
		}
		n++
	}
	key := Namespace(b.CalendarID) + KeyBlocked
	if err := c.cache.Set(ctx, key, b.Blocked); err != nil {
		return n, fmt.Errorf("%w: %s: %w", ErrCommitFailed, key, err)
	}
	return n, nil
}

func (c *Coordinator) writeSettings(ctx context.Context, s calendar.Settings) error {
	if c.cache == nil {
		return nil
	}
	gs, err := json.Marshal(pricing.GlobalSettings{DefaultCost: s.DefaultCost})
	if err != nil {
		return err
	}
	if err := c.cache.Set(ctx, KeyGlobalSettings, gs); err != nil {
		return err
	}
	if err := c.cache.Set(ctx, KeyWeekendEnabled, []byte(strconv.FormatBool(s.Weekend.Enabled))); err != nil {
		return err
	}
	return c.cache.Set(ctx, KeyWeekendPercent, []byte(strconv.FormatFloat(s.Weekend.Percent, 'f', -1, 64)))
}

func (c *Coordinator) observeCommit(ctx context.Context, target string, b Batch, n int, err error) {
	if errors.Is(err, ErrNothingToCommit) {
		c.metrics.ObserveCommit(target, ResultSkipped, 0)
		c.logger.WarnContext(ctx, "commit skipped, no records", "calendar_id", b.CalendarID, "entity_id", b.EntityID)
		return
	}
	if err != nil {
		c.metrics.ObserveCommit(target, ResultError, n)
		c.logger.ErrorContext(ctx, "commit failed", "calendar_id", b.CalendarID, "entity_id", b.EntityID, "target", target, "error", err)
		return
	}
	c.metrics.ObserveCommit(target, ResultOK, n)
	c.logger.InfoContext(ctx, "calendar committed", "calendar_id", b.CalendarID, "entity_id", b.EntityID, "target", target, "records", n, "revision", b.Revision)
}

// ClearCache removes the cached month tables, blocked dates and weekend rule
// of a calendar. The shared default cost is kept.
func (c *Coordinator) ClearCache(ctx context.Context, t Target) error {
	if c.cache == nil {
		return nil
	}
	ns := Namespace(t.CalendarID)
	keys, err := c.cache.Keys(ctx, ns+KeyMonthPrefix)
	if err != nil {
		return err
	}
	keys = append(keys, ns+KeyBlocked, KeyWeekendEnabled, KeyWeekendPercent)
	return c.cache.Delete(ctx, keys...)
}
