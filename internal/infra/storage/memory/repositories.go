package memory

import (
	"context"
	"sort"
	"sync"

	"rentcal/internal/app/policies"
	"rentcal/internal/app/session"
	"rentcal/internal/domain/calendar"
	"rentcal/internal/domain/shared/daterange"
)

// SessionStore keeps editing sessions for the lifetime of the process.
type SessionStore struct {
	mu    sync.RWMutex
	items map[string]*session.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{items: make(map[string]*session.Session)}
}

func (s *SessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.items[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return sess, nil
}

func (s *SessionStore) Put(ctx context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sess.ID()] = sess
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// ByEntity returns the sessions editing entityID. Draft sessions have no
// entity and are never returned.
func (s *SessionStore) ByEntity(ctx context.Context, entityID string) ([]*session.Session, error) {
	if entityID == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*session.Session
	for _, sess := range s.items {
		if sess.EntityID() == entityID {
			out = append(out, sess)
		}
	}
	return out, nil
}

// PeriodStore is an in-memory remote store for local runs and tests.
type PeriodStore struct {
	mu   sync.RWMutex
	rows map[string][]calendar.SyncRecord
}

func NewPeriodStore() *PeriodStore {
	return &PeriodStore{rows: make(map[string][]calendar.SyncRecord)}
}

func (p *PeriodStore) Query(ctx context.Context, entityID string, filter daterange.DateRange) ([]calendar.SyncRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	filtered := filter.Validate() == nil
	out := make([]calendar.SyncRecord, 0, len(p.rows[entityID]))
	for _, rec := range p.rows[entityID] {
		if filtered && !filter.ContainsDate(rec.Date) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (p *PeriodStore) DeleteAll(ctx context.Context, entityID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rows, entityID)
	return nil
}

func (p *PeriodStore) InsertMany(ctx context.Context, recs []calendar.SyncRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rec := range recs {
		p.rows[rec.EntityID] = append(p.rows[rec.EntityID], rec)
	}
	return nil
}

func (p *PeriodStore) Ping(context.Context) error { return nil }

var (
	_ session.Store        = (*SessionStore)(nil)
	_ policies.RemoteStore = (*PeriodStore)(nil)
	_ policies.Pinger      = (*PeriodStore)(nil)
)
