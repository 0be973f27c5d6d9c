package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/IBM/sarama"

	infraoutbox "rentcal/internal/infra/outbox"
)

const committedEventType = "calendar.committed.v1"

// Invalidator marks other sessions of an entity as stale.
type Invalidator interface {
	Invalidate(ctx context.Context, entityID, originID string) (int, error)
}

// Inbox deduplicates redelivered events.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// InvalidationHandler reacts to calendar.committed events: every other
// session editing the same entity reloads on its next gesture.
type InvalidationHandler struct {
	Sessions Invalidator
	Inbox    Inbox
	Logger   *slog.Logger
}

type committedData struct {
	CalendarID string `json:"calendar_id"`
	EntityID   string `json:"entity_id"`
	Records    int    `json:"records"`
}

func (h *InvalidationHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt infraoutbox.CloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		h.logger().WarnContext(ctx, "dropping malformed event", "topic", msg.Topic, "error", err)
		return nil
	}
	if evt.Type != committedEventType {
		return nil
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, evt.ID)
		if err != nil {
			return fmt.Errorf("inbox: %w", err)
		}
		if seen {
			return nil
		}
	}
	var data committedData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		h.logger().WarnContext(ctx, "dropping malformed committed event", "event_id", evt.ID, "error", err)
		return nil
	}
	if data.EntityID == "" {
		return nil
	}
	n, err := h.Sessions.Invalidate(ctx, data.EntityID, data.CalendarID)
	if err != nil {
		return err
	}
	h.logger().DebugContext(ctx, "committed event applied", "event_id", evt.ID, "entity_id", data.EntityID, "sessions", n)
	return nil
}

func (h *InvalidationHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return h.Logger
}

// Loopback delivers published messages straight to a handler when no
// broker is configured.
type Loopback struct {
	Handler MessageHandler
}

func (l Loopback) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if l.Handler == nil {
		return nil
	}
	hs := recordHeaders(headers)
	ptrs := make([]*sarama.RecordHeader, 0, len(hs))
	for i := range hs {
		ptrs = append(ptrs, &hs[i])
	}
	return l.Handler.Handle(ctx, &sarama.ConsumerMessage{
		Topic:   topic,
		Key:     []byte(key),
		Value:   payload,
		Headers: ptrs,
	})
}

var (
	_ MessageHandler       = (*InvalidationHandler)(nil)
	_ infraoutbox.Producer = Loopback{}
	_ infraoutbox.Producer = (*Producer)(nil)
)
