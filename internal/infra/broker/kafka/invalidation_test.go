package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraoutbox "rentcal/internal/infra/outbox"
	"rentcal/internal/infra/storage/memory"
)

type invalidateCall struct {
	entityID string
	originID string
}

type stubInvalidator struct {
	calls []invalidateCall
}

func (s *stubInvalidator) Invalidate(ctx context.Context, entityID, originID string) (int, error) {
	s.calls = append(s.calls, invalidateCall{entityID: entityID, originID: originID})
	return 1, nil
}

func committedMessage(t *testing.T, id, typ string, data any) *sarama.ConsumerMessage {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	payload, err := json.Marshal(infraoutbox.CloudEvent{
		SpecVersion:     "1.0",
		ID:              id,
		Type:            typ,
		Source:          "app://rentcal",
		Time:            time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		DataContentType: "application/json",
		Data:            raw,
	})
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: "calendar.events.v1", Value: payload}
}

func TestInvalidationHandlerMarksOtherSessions(t *testing.T) {
	inv := &stubInvalidator{}
	h := &InvalidationHandler{Sessions: inv, Inbox: memory.NewInbox()}

	msg := committedMessage(t, "evt-1", committedEventType, map[string]any{
		"calendar_id": "sess-a",
		"entity_id":   "svc-1",
		"records":     31,
	})
	require.NoError(t, h.Handle(context.Background(), msg))
	require.Len(t, inv.calls, 1)
	assert.Equal(t, invalidateCall{entityID: "svc-1", originID: "sess-a"}, inv.calls[0])
}

func TestInvalidationHandlerSkipsRedelivery(t *testing.T) {
	inv := &stubInvalidator{}
	h := &InvalidationHandler{Sessions: inv, Inbox: memory.NewInbox()}
	msg := committedMessage(t, "evt-1", committedEventType, map[string]any{"calendar_id": "a", "entity_id": "svc-1"})

	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Len(t, inv.calls, 1)
}

func TestInvalidationHandlerIgnoresOtherEvents(t *testing.T) {
	inv := &stubInvalidator{}
	h := &InvalidationHandler{Sessions: inv}

	require.NoError(t, h.Handle(context.Background(), committedMessage(t, "evt-2", "calendar.range_selected.v1", map[string]any{"calendar_id": "a"})))
	require.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte("{not json")}))
	require.NoError(t, h.Handle(context.Background(), committedMessage(t, "evt-3", committedEventType, map[string]any{"calendar_id": "draft"})))
	assert.Empty(t, inv.calls)
}

func TestLoopbackDeliversToHandler(t *testing.T) {
	inv := &stubInvalidator{}
	lb := Loopback{Handler: &InvalidationHandler{Sessions: inv}}
	msg := committedMessage(t, "evt-4", committedEventType, map[string]any{"calendar_id": "a", "entity_id": "svc-9"})

	err := lb.Publish(context.Background(), msg.Topic, "svc-9", msg.Value, map[string]string{"event-name": "calendar.committed"})
	require.NoError(t, err)
	require.Len(t, inv.calls, 1)
	assert.Equal(t, "svc-9", inv.calls[0].entityID)
}
