package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQueue struct {
	pending []*Message
	sent    []string
	failed  map[string]time.Time
}

func (q *stubQueue) Claim(ctx context.Context, workerID string) (*Message, error) {
	if len(q.pending) == 0 {
		return nil, nil
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	return msg, nil
}

func (q *stubQueue) MarkSent(ctx context.Context, id string) error {
	q.sent = append(q.sent, id)
	return nil
}

func (q *stubQueue) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	if q.failed == nil {
		q.failed = make(map[string]time.Time)
	}
	q.failed[id] = next
	return nil
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type stubProducer struct {
	err  error
	msgs []published
}

func (p *stubProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, "calendar.events.v1", TopicFor("", "calendar.committed"))
	assert.Equal(t, "dev.calendar.events.v1", TopicFor("dev.", "calendar.dates_blocked"))
	assert.Equal(t, "plain.events.v1", TopicFor("", "plain"))
}

func TestProcessOncePublishesCloudEvent(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	q := &stubQueue{pending: []*Message{{
		ID:         "evt-1",
		Name:       "calendar.committed",
		Payload:    []byte(`{"calendar_id":"s1","entity_id":"svc-1","records":3}`),
		OccurredAt: at,
		Aggregate:  "svc-1",
		Headers:    map[string]string{"event-name": "calendar.committed"},
	}}}
	p := &stubProducer{}
	w := &Worker{Queue: q, Producer: p}

	require.NoError(t, w.ProcessOnce(context.Background()))
	require.Len(t, p.msgs, 1)
	assert.Equal(t, []string{"evt-1"}, q.sent)

	msg := p.msgs[0]
	assert.Equal(t, "calendar.events.v1", msg.topic)
	assert.Equal(t, "svc-1", msg.key)
	assert.Equal(t, "application/cloudevents+json", msg.headers["content-type"])
	assert.Equal(t, "calendar.committed", msg.headers["event-name"])

	var evt CloudEvent
	require.NoError(t, json.Unmarshal(msg.payload, &evt))
	assert.Equal(t, "calendar.committed.v1", evt.Type)
	assert.Equal(t, "app://rentcal", evt.Source)
	assert.Equal(t, "evt-1", evt.ID)
	assert.JSONEq(t, `{"calendar_id":"s1","entity_id":"svc-1","records":3}`, string(evt.Data))
}

func TestProcessOnceReschedulesFailedPublish(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	q := &stubQueue{pending: []*Message{{ID: "evt-1", Name: "calendar.cleared", Payload: []byte(`{}`), Attempts: 1}}}
	w := &Worker{
		Queue:    q,
		Producer: &stubProducer{err: errors.New("broker down")},
		Backoff:  []time.Duration{time.Second, 10 * time.Second},
		Now:      func() time.Time { return now },
	}

	require.NoError(t, w.ProcessOnce(context.Background()))
	assert.Empty(t, q.sent)
	assert.Equal(t, now.Add(10*time.Second), q.failed["evt-1"])
}

func TestProcessOnceRejectsInvalidPayload(t *testing.T) {
	q := &stubQueue{pending: []*Message{{ID: "evt-1", Name: "calendar.cleared", Payload: []byte("nope")}}}
	p := &stubProducer{}
	w := &Worker{Queue: q, Producer: p}

	require.NoError(t, w.ProcessOnce(context.Background()))
	assert.Empty(t, p.msgs)
	assert.Contains(t, q.failed, "evt-1")
}

func TestRunRequiresDependencies(t *testing.T) {
	w := &Worker{}
	assert.ErrorIs(t, w.Run(context.Background()), ErrWorkerNotConfigured)
}
