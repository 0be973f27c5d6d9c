package availability

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"rentcal/internal/domain/shared/datekey"
	"rentcal/internal/domain/shared/daterange"
)

var (
	ErrEmptyRange = errors.New("availability: range is empty")
)

type BlockReason string

const (
	ReasonHostBlock BlockReason = "HOST_BLOCK"
	ReasonManual    BlockReason = "MANUAL_PRICE"
)

// BlockedDates is the per-month set of days forced to be unavailable.
// A month without blocked days has no entry at all.
type BlockedDates struct {
	months map[datekey.MonthKey]map[datekey.DateKey]struct{}
}

func NewBlockedDates() *BlockedDates {
	return &BlockedDates{months: make(map[datekey.MonthKey]map[datekey.DateKey]struct{})}
}

// Block adds d and reports whether it was newly added.
func (b *BlockedDates) Block(d datekey.DateKey) bool {
	if b.months == nil {
		b.months = make(map[datekey.MonthKey]map[datekey.DateKey]struct{})
	}
	m := d.MonthKey()
	set, ok := b.months[m]
	if !ok {
		set = make(map[datekey.DateKey]struct{})
		b.months[m] = set
	}
	if _, exists := set[d]; exists {
		return false
	}
	set[d] = struct{}{}
	return true
}

// BlockRange blocks every day of r and returns the days that were newly added.
func (b *BlockedDates) BlockRange(r daterange.DateRange) ([]datekey.DateKey, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyRange, err)
	}
	var added []datekey.DateKey
	for _, d := range r.Days() {
		if b.Block(d) {
			added = append(added, d)
		}
	}
	return added, nil
}

// Unblock removes d and reports whether it was present.
func (b *BlockedDates) Unblock(d datekey.DateKey) bool {
	m := d.MonthKey()
	set, ok := b.months[m]
	if !ok {
		return false
	}
	if _, exists := set[d]; !exists {
		return false
	}
	delete(set, d)
	if len(set) == 0 {
		delete(b.months, m)
	}
	return true
}

func (b *BlockedDates) IsBlocked(d datekey.DateKey) bool {
	set, ok := b.months[d.MonthKey()]
	if !ok {
		return false
	}
	_, blocked := set[d]
	return blocked
}

// HasMonth reports whether m has at least one blocked day.
func (b *BlockedDates) HasMonth(m datekey.MonthKey) bool {
	_, ok := b.months[m]
	return ok
}

// Months returns the months with blocked days in chronological order.
func (b *BlockedDates) Months() []datekey.MonthKey {
	out := make([]datekey.MonthKey, 0, len(b.months))
	for m := range b.months {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Dates returns the blocked days of m in order.
func (b *BlockedDates) Dates(m datekey.MonthKey) []datekey.DateKey {
	set := b.months[m]
	out := make([]datekey.DateKey, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// All returns every blocked day in order.
func (b *BlockedDates) All() []datekey.DateKey {
	var out []datekey.DateKey
	for _, m := range b.Months() {
		out = append(out, b.Dates(m)...)
	}
	return out
}

func (b *BlockedDates) Len() int {
	n := 0
	for _, set := range b.months {
		n += len(set)
	}
	return n
}

func (b *BlockedDates) Clear() {
	b.months = make(map[datekey.MonthKey]map[datekey.DateKey]struct{})
}

// MarshalJSON writes the blockedDatesMap shape: {"2025-03": ["2025-03-05", ...]}.
func (b *BlockedDates) MarshalJSON() ([]byte, error) {
	raw := make(map[string][]datekey.DateKey, len(b.months))
	for _, m := range b.Months() {
		raw[m.String()] = b.Dates(m)
	}
	return json.Marshal(raw)
}

func (b *BlockedDates) UnmarshalJSON(data []byte) error {
	var raw map[string][]datekey.DateKey
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode blocked dates: %w", err)
	}
	b.Clear()
	for key, dates := range raw {
		m, err := datekey.ParseMonthKey(key)
		if err != nil {
			return err
		}
		for _, d := range dates {
			if m.Contains(d) {
				b.Block(d)
			}
		}
	}
	return nil
}

// Clone returns an independent copy.
func (b *BlockedDates) Clone() *BlockedDates {
	out := NewBlockedDates()
	for _, d := range b.All() {
		out.Block(d)
	}
	return out
}
