package consumer

import (
	"context"
	"log/slog"
	"sort"

	"ekyc/internal/platform/kafka/consumer"
	audit "ekyc/pkg/platform/audit"
	kafkasink "ekyc/pkg/platform/audit/publishers/kafka"
)

// TopicHandler handles records from one audit topic.
type TopicHandler interface {
	Handle(ctx context.Context, msg *consumer.Message) error
}

// Router maps audit topics, one per event category, to handlers.
type Router struct {
	prefix   string
	handlers map[string]TopicHandler
	logger   *slog.Logger
}

// NewRouter creates a router for topics named by kafkasink.TopicFor(prefix, ...).
func NewRouter(prefix string, logger *slog.Logger) *Router {
	return &Router{
		prefix:   prefix,
		handlers: make(map[string]TopicHandler),
		logger:   logger,
	}
}

// Route registers handler for the topic carrying category events.
func (r *Router) Route(category audit.EventCategory, handler TopicHandler) {
	r.handlers[kafkasink.TopicFor(r.prefix, category)] = handler
}

// Topics returns the routed topics in sorted order, for the consumer
// subscription.
func (r *Router) Topics() []string {
	topics := make([]string, 0, len(r.handlers))
	for topic := range r.handlers {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// Handle dispatches msg by topic. Records on unrouted topics are logged and
// acknowledged so they are not redelivered.
func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	handler, ok := r.handlers[msg.Topic]
	if !ok {
		r.logger.WarnContext(ctx, "audit record on unrouted topic",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		return nil
	}
	return handler.Handle(ctx, msg)
}
