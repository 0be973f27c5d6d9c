package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"rentcal/internal/domain/shared/datekey"
)

var (
	ErrNegativePrice = errors.New("pricing: price cannot be negative")
	ErrForeignDate   = errors.New("pricing: date does not belong to the table month")
)

// PriceRecord is the price of one day. A price of 0 means blocked or
// unavailable, never free.
type PriceRecord struct {
	Date  datekey.DateKey `json:"date"`
	Price int64           `json:"price"`
}

// MonthPriceTable holds the per-day prices of one month ordered by date.
// Records are superseded in place and never removed individually.
type MonthPriceTable struct {
	Month       datekey.MonthKey
	DefaultCost int64
	records     []PriceRecord
}

func NewMonthPriceTable(m datekey.MonthKey, defaultCost int64) *MonthPriceTable {
	return &MonthPriceTable{Month: m, DefaultCost: defaultCost}
}

func (t *MonthPriceTable) Len() int { return len(t.records) }

func (t *MonthPriceTable) search(d datekey.DateKey) (int, bool) {
	i := sort.Search(len(t.records), func(i int) bool {
		return !t.records[i].Date.Before(d)
	})
	return i, i < len(t.records) && t.records[i].Date.Equal(d)
}

func (t *MonthPriceTable) Get(d datekey.DateKey) (PriceRecord, bool) {
	i, ok := t.search(d)
	if !ok {
		return PriceRecord{}, false
	}
	return t.records[i], true
}

func (t *MonthPriceTable) Has(d datekey.DateKey) bool {
	_, ok := t.search(d)
	return ok
}

// Set inserts or supersedes the record for d.
func (t *MonthPriceTable) Set(d datekey.DateKey, price int64) error {
	if price < 0 {
		return ErrNegativePrice
	}
	if !t.Month.Contains(d) {
		return fmt.Errorf("%w: %s not in %s", ErrForeignDate, d, t.Month)
	}
	i, ok := t.search(d)
	if ok {
		t.records[i].Price = price
		return nil
	}
	t.records = append(t.records, PriceRecord{})
	copy(t.records[i+1:], t.records[i:])
	t.records[i] = PriceRecord{Date: d, Price: price}
	return nil
}

// Insert adds a record only if none exists for d.
func (t *MonthPriceTable) Insert(d datekey.DateKey, price int64) (bool, error) {
	if t.Has(d) {
		return false, nil
	}
	if err := t.Set(d, price); err != nil {
		return false, err
	}
	return true, nil
}

// Update rewrites every record through fn. fn receives the current record and
// returns the new price.
func (t *MonthPriceTable) Update(fn func(rec PriceRecord) int64) {
	for i := range t.records {
		if p := fn(t.records[i]); p >= 0 {
			t.records[i].Price = p
		}
	}
}

// Records returns a copy in date order.
func (t *MonthPriceTable) Records() []PriceRecord {
	out := make([]PriceRecord, len(t.records))
	copy(out, t.records)
	return out
}

type tableJSON struct {
	DefaultCost int64         `json:"defaultCost"`
	Prices      []PriceRecord `json:"prices"`
}

// MarshalJSON uses the {defaultCost, prices} shape of the monthData-YYYY-MM
// cache entries.
func (t *MonthPriceTable) MarshalJSON() ([]byte, error) {
	prices := t.records
	if prices == nil {
		prices = []PriceRecord{}
	}
	return json.Marshal(tableJSON{DefaultCost: t.DefaultCost, Prices: prices})
}

// DecodeMonthPriceTable reads a cached table. Records outside m or with a
// negative price are dropped.
func DecodeMonthPriceTable(m datekey.MonthKey, data []byte) (*MonthPriceTable, error) {
	var raw tableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode month table %s: %w", m, err)
	}
	t := NewMonthPriceTable(m, raw.DefaultCost)
	for _, rec := range raw.Prices {
		_ = t.Set(rec.Date, rec.Price)
	}
	return t, nil
}

// Clone returns an independent copy.
func (t *MonthPriceTable) Clone() *MonthPriceTable {
	out := NewMonthPriceTable(t.Month, t.DefaultCost)
	out.records = t.Records()
	return out
}
