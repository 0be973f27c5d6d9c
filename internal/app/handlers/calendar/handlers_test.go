package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcal/internal/app/calsync"
	"rentcal/internal/app/dto"
	"rentcal/internal/app/session"
	"rentcal/internal/infra/storage/memory"
)

type stubScheduler struct {
	touched  []string
	flushed  []string
	flushErr error
}

func (s *stubScheduler) Touch(id string) { s.touched = append(s.touched, id) }

func (s *stubScheduler) Flush(_ context.Context, id string) error {
	s.flushed = append(s.flushed, id)
	return s.flushErr
}

func newDeps(t *testing.T, sched *stubScheduler) Deps {
	t.Helper()
	coord := calsync.NewCoordinator(memory.NewPeriodStore(), memory.NewCache(), nil, nil)
	svc := session.NewService(session.Options{
		Store:       memory.NewSessionStore(),
		Coordinator: coord,
		Clock:       func() time.Time { return time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC) },
		DefaultCost: 8000,
	})
	return Deps{Sessions: svc, Scheduler: sched}
}

func openSession(t *testing.T, deps Deps) string {
	t.Helper()
	view, err := (&OpenCalendarHandler{Deps: deps}).Handle(context.Background(), OpenCalendarCommand{EntityID: "svc-1", Month: "2025-03"})
	require.NoError(t, err)
	require.NotEmpty(t, view.SessionID)
	return view.SessionID
}

func cellStatus(view dto.CalendarView, date string) string {
	for _, c := range view.Cells {
		if c.Date == date {
			return c.Status
		}
	}
	return ""
}

func TestDirtyGestureTouchesScheduler(t *testing.T) {
	sched := &stubScheduler{}
	deps := newDeps(t, sched)
	id := openSession(t, deps)
	ctx := context.Background()

	_, err := (&HoverDayHandler{Deps: deps}).Handle(ctx, HoverDayCommand{SessionID: id, Date: "2025-03-04"})
	require.NoError(t, err)
	assert.Empty(t, sched.touched)

	view, err := (&BlockDaysHandler{Deps: deps}).Handle(ctx, BlockDaysCommand{SessionID: id, StartDay: 10, EndDay: 12})
	require.NoError(t, err)
	assert.True(t, view.Dirty)
	assert.Equal(t, "blocked", cellStatus(view, "2025-03-11"))
	assert.Equal(t, []string{id}, sched.touched)
}

func TestClickOutsideCurrentMonthIsConflict(t *testing.T) {
	deps := newDeps(t, &stubScheduler{})
	id := openSession(t, deps)

	_, err := (&ClickDayHandler{Deps: deps}).Handle(context.Background(), ClickDayCommand{SessionID: id, Date: "2025-02-27"})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestMissingSessionIsBadInput(t *testing.T) {
	deps := newDeps(t, &stubScheduler{})
	_, err := (&SetDefaultCostHandler{Deps: deps}).Handle(context.Background(), SetDefaultCostCommand{Cost: "9000"})
	require.ErrorIs(t, err, ErrSessionRequired)
	assert.True(t, IsBadInput(err))
}

func TestCommitReportsFailureInResult(t *testing.T) {
	sched := &stubScheduler{flushErr: errors.New("remote down")}
	deps := newDeps(t, sched)
	id := openSession(t, deps)

	res, err := (&CommitHandler{Deps: deps}).Handle(context.Background(), CommitCommand{SessionID: id})
	require.NoError(t, err)
	assert.False(t, res.Committed)
	assert.Equal(t, "remote down", res.Error)
	assert.Equal(t, []string{id}, sched.flushed)
}

func TestCloseFlushesUnsavedEdits(t *testing.T) {
	sched := &stubScheduler{}
	deps := newDeps(t, sched)
	id := openSession(t, deps)
	ctx := context.Background()

	_, err := (&SetDayPriceHandler{Deps: deps}).Handle(ctx, SetDayPriceCommand{SessionID: id, Date: "2025-03-20", Price: "9900"})
	require.NoError(t, err)

	_, err = (&CloseHandler{Deps: deps}).Handle(ctx, CloseCommand{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, []string{id}, sched.flushed)

	_, err = deps.Sessions.Get(ctx, id)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestScopedKey(t *testing.T) {
	assert.Equal(t, "", scopedKey("s1", "  "))
	assert.Equal(t, "s1:k", scopedKey("s1", " k "))
	assert.NotEqual(t, scopedKey("s1", "k"), scopedKey("s2", "k"))
}
