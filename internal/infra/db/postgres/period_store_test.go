package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcal/internal/domain/calendar"
	"rentcal/internal/domain/shared/datekey"
	"rentcal/internal/domain/shared/daterange"
)

func newPeriodStoreMock(t *testing.T) (*PeriodStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	store := NewPeriodStore(sqlx.NewDb(db, "sqlmock"))
	n := 0
	store.newID = func() string {
		n++
		return fmt.Sprintf("row-%d", n)
	}
	return store, mock, func() { db.Close() }
}

func TestPeriodStoreQueryAll(t *testing.T) {
	store, mock, cleanup := newPeriodStoreMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "service_id", "date", "price"}).
		AddRow("r1", "svc-1", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), int64(9000)).
		AddRow("r2", "svc-1", time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC), int64(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, service_id, date, price FROM available_periods WHERE service_id = $1 ORDER BY date")).
		WithArgs("svc-1").
		WillReturnRows(rows)

	recs, err := store.Query(context.Background(), "svc-1", daterange.DateRange{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, calendar.SyncRecord{EntityID: "svc-1", Date: datekey.Must(2025, time.March, 5), Price: 9000}, recs[0])
	assert.Equal(t, int64(0), recs[1].Price)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodStoreQueryFiltered(t *testing.T) {
	store, mock, cleanup := newPeriodStoreMock(t)
	defer cleanup()

	filter := daterange.New(datekey.Must(2025, time.March, 1), datekey.Must(2025, time.March, 31))
	mock.ExpectQuery(regexp.QuoteMeta("AND date BETWEEN $2 AND $3 ORDER BY date")).
		WithArgs("svc-1", filter.Start.Time(), filter.End.Time()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "service_id", "date", "price"}))

	recs, err := store.Query(context.Background(), "svc-1", filter)
	require.NoError(t, err)
	assert.Empty(t, recs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodStoreDeleteAll(t *testing.T) {
	store, mock, cleanup := newPeriodStoreMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM available_periods WHERE service_id = $1")).
		WithArgs("svc-1").
		WillReturnResult(sqlmock.NewResult(0, 31))

	require.NoError(t, store.DeleteAll(context.Background(), "svc-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodStoreInsertMany(t *testing.T) {
	store, mock, cleanup := newPeriodStoreMock(t)
	defer cleanup()

	recs := []calendar.SyncRecord{
		{EntityID: "svc-1", Date: datekey.Must(2025, time.March, 5), Price: 9000},
		{EntityID: "svc-1", Date: datekey.Must(2025, time.March, 6), Price: 0},
	}
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO available_periods (id, service_id, date, price) VALUES")).
		WithArgs("row-1", "svc-1", recs[0].Date.Time(), int64(9000), "row-2", "svc-1", recs[1].Date.Time(), int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, store.InsertMany(context.Background(), recs))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodStoreInsertManyRollsBack(t *testing.T) {
	store, mock, cleanup := newPeriodStoreMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO available_periods")).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := store.InsertMany(context.Background(), []calendar.SyncRecord{{EntityID: "svc-1", Date: datekey.Must(2025, time.March, 5), Price: 1}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodStoreInsertManyEmpty(t *testing.T) {
	store, mock, cleanup := newPeriodStoreMock(t)
	defer cleanup()

	require.NoError(t, store.InsertMany(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
