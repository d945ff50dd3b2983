package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"ekyc/internal/platform/kafka/consumer"
	audit "ekyc/pkg/platform/audit"
)

// EventHandler materializes audit events from Kafka into a store. The store
// must be idempotent on event ID (the Postgres audit store is) because
// delivery is at least once.
type EventHandler struct {
	store  audit.Store
	strict bool
	logger *slog.Logger
}

// NewComplianceHandler rejects compliance events without an actor.
func NewComplianceHandler(store audit.Store, logger *slog.Logger) *EventHandler {
	return &EventHandler{store: store, strict: true, logger: logger}
}

// NewEventHandler accepts security and operations events.
func NewEventHandler(store audit.Store, logger *slog.Logger) *EventHandler {
	return &EventHandler{store: store, logger: logger}
}

// Handle decodes and stores one event. Malformed messages are logged and
// committed; store failures are returned so the consumer retries.
func (h *EventHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, err := uuid.Parse(string(msg.Key))
	if err != nil {
		h.logger.Error("failed to parse audit event ID",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	var event audit.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("failed to unmarshal audit event",
			"topic", msg.Topic,
			"event_id", eventID,
			"error", err,
		)
		return nil
	}
	if event.Action == "" {
		h.logger.Error("audit event missing action", "event_id", eventID)
		return nil
	}
	if h.strict && event.Actor.IsNil() {
		h.logger.Error("CRITICAL: compliance event missing actor",
			"event_id", eventID,
			"action", event.Action,
		)
		return nil
	}
	event.ID = eventID.String()

	if err := h.store.Append(ctx, event); err != nil {
		return fmt.Errorf("store audit event %s: %w", eventID, err)
	}
	h.logger.Debug("stored audit event",
		"event_id", eventID,
		"action", event.Action,
		"category", event.Category,
	)
	return nil
}
