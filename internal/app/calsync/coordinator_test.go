package calsync

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcal/internal/app/policies"
	"rentcal/internal/domain/calendar"
	"rentcal/internal/domain/shared/datekey"
	"rentcal/internal/domain/shared/daterange"
)

type stubRemote struct {
	mu         sync.Mutex
	rows       map[string][]calendar.SyncRecord
	queryErr   error
	deleteErr  error
	insertErr  error
	queries    atomic.Int32
	queryGate  chan struct{}
	honorCtx   bool
	deleteCall []string
}

func (s *stubRemote) Query(ctx context.Context, entityID string, _ daterange.DateRange) ([]calendar.SyncRecord, error) {
	s.queries.Add(1)
	if s.queryGate != nil {
		<-s.queryGate
	}
	if s.honorCtx && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]calendar.SyncRecord(nil), s.rows[entityID]...), nil
}

func (s *stubRemote) DeleteAll(ctx context.Context, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCall = append(s.deleteCall, entityID)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.rows, entityID)
	return nil
}

func (s *stubRemote) InsertMany(ctx context.Context, recs []calendar.SyncRecord) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows == nil {
		s.rows = make(map[string][]calendar.SyncRecord)
	}
	for _, r := range recs {
		s.rows[r.EntityID] = append(s.rows[r.EntityID], r)
	}
	return nil
}

type stubCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newStubCache() *stubCache { return &stubCache{items: make(map[string][]byte)} }

func (c *stubCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if !ok {
		return nil, policies.ErrCacheMiss
	}
	return v, nil
}

func (c *stubCache) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *stubCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *stubCache) Keys(ctx context.Context, prefix string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

type recordingMetrics struct {
	mu      sync.Mutex
	loads   []string
	commits []string
}

func (m *recordingMetrics) ObserveLoad(source, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads = append(m.loads, source+":"+result)
}

func (m *recordingMetrics) ObserveCommit(target, result string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits = append(m.commits, target+":"+result)
}

var march = datekey.MonthKey{Year: 2025, Month: time.March}

func day(d int) datekey.DateKey { return datekey.Must(2025, time.March, d) }

func clock() time.Time { return time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC) }

func newCal(id, entityID string) *calendar.Calendar {
	return calendar.New(calendar.Options{ID: id, EntityID: entityID, Month: march, Clock: clock})
}

func TestLoadMonthFromRemote(t *testing.T) {
	remote := &stubRemote{rows: map[string][]calendar.SyncRecord{
		"svc-1": {
			{EntityID: "svc-1", Date: day(10), Price: 9500},
			{EntityID: "svc-1", Date: day(11), Price: 0},
		},
	}}
	metrics := &recordingMetrics{}
	coord := NewCoordinator(remote, newStubCache(), nil, metrics)
	cal := newCal("s1", "svc-1")

	res, err := coord.LoadMonth(context.Background(), cal, true)
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, res.Source)
	assert.True(t, res.SeededDefault)
	assert.Equal(t, 29, res.Ensured)

	assert.Equal(t, calendar.StatusAvailable, cal.ResolvePrice(day(10)).Status)
	assert.Equal(t, calendar.StatusBlocked, cal.ResolvePrice(day(11)).Status)
	assert.Equal(t, int64(9500), cal.Settings().DefaultCost)
	assert.Equal(t, []string{"remote:ok"}, metrics.loads)
}

func TestLoadMonthFallsBackOnRemoteFailure(t *testing.T) {
	remote := &stubRemote{queryErr: errors.New("connection refused")}
	coord := NewCoordinator(remote, nil, nil, nil)
	cal := newCal("s1", "svc-1")

	res, err := coord.LoadMonth(context.Background(), cal, false)
	require.ErrorIs(t, err, ErrRemoteUnavailable)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, 31, res.Ensured)

	table, ok := cal.Table(march)
	require.True(t, ok)
	assert.Equal(t, 31, table.Len())
}

func TestPrefetchSharesInFlightQuery(t *testing.T) {
	gate := make(chan struct{})
	remote := &stubRemote{queryGate: gate, rows: map[string][]calendar.SyncRecord{
		"svc-1": {{EntityID: "svc-1", Date: day(10), Price: 9500}},
	}}
	coord := NewCoordinator(remote, nil, nil, nil)

	var wg sync.WaitGroup
	results := make([]Hydration, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = coord.Prefetch(context.Background(), Target{CalendarID: "s", EntityID: "svc-1"}, false)
		}(i)
	}
	require.Eventually(t, func() bool { return remote.queries.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), remote.queries.Load())
	for _, h := range results {
		require.NoError(t, h.Err)
		assert.Len(t, h.Remote, 1)
	}
}

func TestCommitReplacesRemoteRows(t *testing.T) {
	remote := &stubRemote{rows: map[string][]calendar.SyncRecord{
		"svc-1": {{EntityID: "svc-1", Date: day(20), Price: 1}},
	}}
	cache := newStubCache()
	metrics := &recordingMetrics{}
	coord := NewCoordinator(remote, cache, nil, metrics)
	cal := calendar.New(calendar.Options{ID: "s1", EntityID: "svc-1", Month: march, Clock: clock, DefaultPinned: true, Settings: calendar.Settings{DefaultCost: 8000}})
	_, err := coord.LoadMonth(context.Background(), cal, false)
	require.NoError(t, err)
	require.NoError(t, cal.BlockDays(5, 6))

	batch, err := Prepare(cal)
	require.NoError(t, err)
	n, err := coord.Commit(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 31, n)
	assert.Equal(t, []string{"svc-1"}, remote.deleteCall)
	assert.Len(t, remote.rows["svc-1"], 31)
	assert.Equal(t, []string{"remote:ok"}, metrics.commits)

	reloaded := calendar.New(calendar.Options{ID: "s2", EntityID: "svc-1", Month: march, Clock: clock, DefaultPinned: true, Settings: calendar.Settings{DefaultCost: 8000}})
	_, err = coord.LoadMonth(context.Background(), reloaded, false)
	require.NoError(t, err)
	for _, d := range datekey.VisibleDates(march) {
		assert.Equal(t, cal.ResolvePrice(d).Price, reloaded.ResolvePrice(d).Price, d.String())
	}

	enabled, err := cache.Get(context.Background(), KeyWeekendEnabled)
	require.NoError(t, err)
	assert.Equal(t, "false", string(enabled))
}

func TestCommitFailureKeepsMemory(t *testing.T) {
	remote := &stubRemote{insertErr: errors.New("timeout")}
	coord := NewCoordinator(remote, nil, nil, nil)
	cal := newCal("s1", "svc-1")
	cal.EnsureBasePrices(march)
	require.NoError(t, cal.BlockDays(5, 5))

	batch, err := Prepare(cal)
	require.NoError(t, err)
	_, err = coord.Commit(context.Background(), batch)
	require.ErrorIs(t, err, ErrCommitFailed)
	assert.Equal(t, calendar.StatusBlocked, cal.ResolvePrice(day(5)).Status)

	remote.insertErr = nil
	remote.deleteErr = errors.New("denied")
	_, err = coord.Commit(context.Background(), batch)
	assert.ErrorIs(t, err, ErrCommitFailed)
}

func TestEmptyBatchNeverDeletesRemoteRows(t *testing.T) {
	remote := &stubRemote{rows: map[string][]calendar.SyncRecord{
		"svc": {
			{EntityID: "svc", Date: day(10), Price: 9500},
			{EntityID: "svc", Date: day(11), Price: 0},
		},
	}}
	metrics := &recordingMetrics{}
	coord := NewCoordinator(remote, nil, nil, metrics)

	n, err := coord.Commit(context.Background(), Batch{Target: Target{CalendarID: "s1", EntityID: "svc"}})
	require.ErrorIs(t, err, ErrNothingToCommit)
	assert.Zero(t, n)
	assert.Empty(t, remote.deleteCall)
	assert.Len(t, remote.rows["svc"], 2)
	assert.Equal(t, []string{"remote:skipped"}, metrics.commits)
}

func TestCommitAfterClearAllKeepsRemoteRows(t *testing.T) {
	remote := &stubRemote{rows: map[string][]calendar.SyncRecord{
		"svc": {
			{EntityID: "svc", Date: day(10), Price: 9500},
			{EntityID: "svc", Date: day(11), Price: 0},
		},
	}}
	coord := NewCoordinator(remote, nil, nil, nil)
	cal := newCal("s1", "svc")
	_, err := coord.LoadMonth(context.Background(), cal, false)
	require.NoError(t, err)

	cal.ClearAll()
	batch, err := Prepare(cal)
	require.NoError(t, err)
	_, err = coord.Commit(context.Background(), batch)
	require.NoError(t, err)

	prices := make(map[datekey.DateKey]int64)
	for _, r := range remote.rows["svc"] {
		prices[r.Date] = r.Price
	}
	assert.Len(t, prices, 31)
	assert.Equal(t, int64(9500), prices[day(10)])
	assert.Equal(t, int64(0), prices[day(11)])
}

func TestSharedQuerySurvivesCancelledCaller(t *testing.T) {
	gate := make(chan struct{})
	remote := &stubRemote{queryGate: gate, rows: map[string][]calendar.SyncRecord{
		"svc-1": {{EntityID: "svc-1", Date: day(10), Price: 9500}},
	}}
	remote.honorCtx = true
	coord := NewCoordinator(remote, nil, nil, nil)
	target := Target{CalendarID: "s", EntityID: "svc-1"}

	first, cancel := context.WithCancel(context.Background())
	done := make(chan Hydration, 1)
	go func() { done <- coord.Prefetch(first, target, false) }()
	require.Eventually(t, func() bool { return remote.queries.Load() >= 1 }, time.Second, time.Millisecond)

	second := make(chan Hydration, 1)
	go func() { second <- coord.Prefetch(context.Background(), target, false) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(gate)

	h := <-second
	require.NoError(t, h.Err)
	assert.Len(t, h.Remote, 1)
	<-done
	assert.Equal(t, int32(1), remote.queries.Load())
}

func TestDraftRoundTripThroughLocalCache(t *testing.T) {
	cache := newStubCache()
	coord := NewCoordinator(nil, cache, nil, nil)

	draft := newCal("draft-1", "")
	_, err := coord.LoadMonth(context.Background(), draft, true)
	require.NoError(t, err)
	require.NoError(t, draft.BlockDays(7, 8))
	draft.SetWeekendDiscount(true, 10)
	require.NoError(t, draft.SetPrice(day(12), 9900))

	batch, err := Prepare(draft)
	require.NoError(t, err)
	n, err := coord.Commit(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	keys, err := cache.Keys(context.Background(), Namespace("draft-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"draft:draft-1:blockedDatesMap", "draft:draft-1:monthData-2025-03"}, keys)

	again := newCal("draft-1", "")
	res, err := coord.LoadMonth(context.Background(), again, true)
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, res.Source)
	assert.Zero(t, res.Ensured)
	assert.True(t, again.Settings().Weekend.Active())
	assert.Equal(t, calendar.StatusBlocked, again.ResolvePrice(day(7)).Status)
	assert.Equal(t, int64(7200), again.ResolvePrice(day(1)).Price)
	assert.Equal(t, int64(9900), again.ResolvePrice(day(12)).Price)
}

func TestClearCacheKeepsDefaultCost(t *testing.T) {
	cache := newStubCache()
	coord := NewCoordinator(nil, cache, nil, nil)
	ctx := context.Background()
	ns := Namespace("d")
	for _, k := range []string{ns + "monthData-2025-03", ns + "monthData-2025-04", ns + KeyBlocked, KeyWeekendEnabled, KeyWeekendPercent, KeyGlobalSettings, Namespace("other") + "monthData-2025-03"} {
		require.NoError(t, cache.Set(ctx, k, []byte("x")))
	}

	require.NoError(t, coord.ClearCache(ctx, Target{CalendarID: "d"}))

	keys, err := cache.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{KeyGlobalSettings, Namespace("other") + "monthData-2025-03"}, keys)
}
