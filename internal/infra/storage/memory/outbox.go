package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "rentcal/internal/app/outbox"
	infraoutbox "rentcal/internal/infra/outbox"
)

type outboxEntry struct {
	record   appoutbox.EventRecord
	attempts int
	next     time.Time
	claimed  bool
	sent     bool
}

// Outbox queues events in memory for the outbox worker.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
	now     func() time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{now: time.Now}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, &outboxEntry{record: record, next: o.now()})
	return nil
}

// Flush drops entries that were already published.
func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.entries[:0]
	for _, e := range o.entries {
		if !e.sent {
			kept = append(kept, e)
		}
	}
	o.entries = kept
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	for _, e := range o.entries {
		if e.sent || e.claimed || e.next.After(now) {
			continue
		}
		e.claimed = true
		r := e.record
		return &infraoutbox.Message{
			ID:         r.ID,
			Name:       r.Name,
			Payload:    r.Payload,
			OccurredAt: r.OccurredAt,
			Aggregate:  r.Aggregate,
			Headers:    r.Headers,
			Attempts:   e.attempts,
		}, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e := o.find(id); e != nil {
		e.sent = true
		e.claimed = false
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e := o.find(id); e != nil {
		e.claimed = false
		e.attempts++
		e.next = next
	}
	return nil
}

// Pending returns the records not yet published.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []appoutbox.EventRecord
	for _, e := range o.entries {
		if !e.sent {
			out = append(out, e.record)
		}
	}
	return out
}

func (o *Outbox) find(id string) *outboxEntry {
	for _, e := range o.entries {
		if e.record.ID == id {
			return e
		}
	}
	return nil
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Queue = (*Outbox)(nil)
)
