package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"rentcal/internal/app/policies"
	"rentcal/internal/domain/calendar"
	"rentcal/internal/domain/shared/datekey"
	"rentcal/internal/domain/shared/daterange"
)

// insertChunk bounds the rows of one INSERT statement.
const insertChunk = 500

type periodRow struct {
	ID        string    `db:"id"`
	ServiceID string    `db:"service_id"`
	Date      time.Time `db:"date"`
	Price     int64     `db:"price"`
}

// PeriodStore reads and replaces the rows of the available_periods table.
type PeriodStore struct {
	db    *sqlx.DB
	newID func() string
}

func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func NewPeriodStore(db *sqlx.DB) *PeriodStore {
	return &PeriodStore{db: db, newID: uuid.NewString}
}

func (s *PeriodStore) Query(ctx context.Context, entityID string, filter daterange.DateRange) ([]calendar.SyncRecord, error) {
	query := `SELECT id, service_id, date, price FROM available_periods WHERE service_id = $1`
	args := []any{entityID}
	if filter.Validate() == nil {
		query += ` AND date BETWEEN $2 AND $3`
		args = append(args, filter.Start.Time(), filter.End.Time())
	}
	query += ` ORDER BY date`

	var rows []periodRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query available_periods: %w", err)
	}
	out := make([]calendar.SyncRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, calendar.SyncRecord{
			EntityID: r.ServiceID,
			Date:     datekey.FromTime(r.Date.UTC()),
			Price:    r.Price,
		})
	}
	return out, nil
}

func (s *PeriodStore) DeleteAll(ctx context.Context, entityID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM available_periods WHERE service_id = $1`, entityID); err != nil {
		return fmt.Errorf("delete available_periods: %w", err)
	}
	return nil
}

// InsertMany writes recs in chunks inside one transaction.
func (s *PeriodStore) InsertMany(ctx context.Context, recs []calendar.SyncRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO available_periods (id, service_id, date, price) VALUES (:id, :service_id, :date, :price)`
	for start := 0; start < len(recs); start += insertChunk {
		end := min(start+insertChunk, len(recs))
		rows := make([]periodRow, 0, end-start)
		for _, rec := range recs[start:end] {
			rows = append(rows, periodRow{
				ID:        s.newID(),
				ServiceID: rec.EntityID,
				Date:      rec.Date.Time(),
				Price:     rec.Price,
			})
		}
		if _, err := tx.NamedExecContext(ctx, insert, rows); err != nil {
			return fmt.Errorf("insert available_periods: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PeriodStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var (
	_ policies.RemoteStore = (*PeriodStore)(nil)
	_ policies.Pinger      = (*PeriodStore)(nil)
)
