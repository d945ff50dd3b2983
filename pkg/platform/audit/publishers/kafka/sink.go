// Package kafka streams audit events to per-category Kafka topics.
//
// The record key is the event ID so consumers can write idempotently; the
// value is the JSON encoded audit.Event.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	audit "ekyc/pkg/platform/audit"
)

// Publisher is the subset of the Kafka producer the sink needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Sink implements audit.Store on Kafka.
type Sink struct {
	producer    Publisher
	topicPrefix string
}

// New creates a sink publishing to "<topicPrefix>.<category>".
func New(producer Publisher, topicPrefix string) *Sink {
	return &Sink{producer: producer, topicPrefix: topicPrefix}
}

// Topic returns the topic events of category are published to.
func (s *Sink) Topic(category audit.EventCategory) string {
	return TopicFor(s.topicPrefix, category)
}

// Topics returns every topic the sink may publish to.
func (s *Sink) Topics() []string {
	return []string{
		s.Topic(audit.CategoryCompliance),
		s.Topic(audit.CategorySecurity),
		s.Topic(audit.CategoryOperations),
	}
}

// TopicFor builds the topic name for a category.
func TopicFor(prefix string, category audit.EventCategory) string {
	return prefix + "." + string(category)
}

// Append publishes event and waits for the broker acknowledgement.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	headers := map[string]string{"action": event.Action}
	if event.RequestID != "" {
		headers["request_id"] = event.RequestID
	}
	return s.producer.Publish(ctx, s.Topic(event.Category), []byte(event.ID), value, headers)
}
