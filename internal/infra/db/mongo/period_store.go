package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentcal/internal/app/policies"
	"rentcal/internal/domain/calendar"
	"rentcal/internal/domain/shared/datekey"
	"rentcal/internal/domain/shared/daterange"
)

// PeriodStore keeps per-date prices in the available_periods collection,
// one document per (service_id, date).
type PeriodStore struct {
	col   *mongo.Collection
	newID func() string
}

func NewPeriodStore(ctx context.Context, db *mongo.Database) (*PeriodStore, error) {
	col := db.Collection("available_periods")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "service_id", Value: 1}, {Key: "date", Value: 1}}}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, err
	}
	return &PeriodStore{col: col, newID: uuid.NewString}, nil
}

type periodDocument struct {
	ID        string `bson:"_id"`
	ServiceID string `bson:"service_id"`
	Date      string `bson:"date"`
	Price     int64  `bson:"price"`
}

func (s *PeriodStore) Query(ctx context.Context, entityID string, filter daterange.DateRange) ([]calendar.SyncRecord, error) {
	q := bson.M{"service_id": entityID}
	if filter.Validate() == nil {
		q["date"] = bson.M{"$gte": filter.Start.String(), "$lte": filter.End.String()}
	}
	cur, err := s.col.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []calendar.SyncRecord
	for cur.Next(ctx) {
		var doc periodDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		d, err := datekey.Parse(doc.Date)
		if err != nil {
			return nil, fmt.Errorf("period %s: %w", doc.ID, err)
		}
		out = append(out, calendar.SyncRecord{EntityID: doc.ServiceID, Date: d, Price: doc.Price})
	}
	return out, cur.Err()
}

func (s *PeriodStore) DeleteAll(ctx context.Context, entityID string) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"service_id": entityID})
	return err
}

func (s *PeriodStore) InsertMany(ctx context.Context, recs []calendar.SyncRecord) error {
	if len(recs) == 0 {
		return nil
	}
	docs := make([]any, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, periodDocument{
			ID:        s.newID(),
			ServiceID: rec.EntityID,
			Date:      rec.Date.String(),
			Price:     rec.Price,
		})
	}
	_, err := s.col.InsertMany(ctx, docs)
	return err
}

func (s *PeriodStore) Ping(ctx context.Context) error {
	return s.col.Database().Client().Ping(ctx, nil)
}

var (
	_ policies.RemoteStore = (*PeriodStore)(nil)
	_ policies.Pinger      = (*PeriodStore)(nil)
)
