// Package consumer reads Kafka records as a consumer group member and hands
// them to a Handler, committing offsets only after the handler accepted them.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is one consumed record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes a message. A returned error is retried with backoff until
// it succeeds or the consumer stops; handlers return nil for messages that
// can never succeed.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Config holds consumer settings.
type Config struct {
	Brokers    []string
	GroupID    string
	Topics     []string
	MaxBackoff time.Duration
}

// Consumer is a consumer group member.
type Consumer struct {
	client     *kgo.Client
	handler    Handler
	logger     *slog.Logger
	maxBackoff time.Duration
}

// New creates a consumer. Auto-commit is disabled.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka consumer requires at least one broker")
	}
	if cfg.GroupID == "" || len(cfg.Topics) == 0 {
		return nil, errors.New("kafka consumer requires a group and topics")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 10 * time.Second
	}
	return &Consumer{client: client, handler: handler, logger: logger, maxBackoff: maxBackoff}, nil
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.WarnContext(ctx, "kafka fetch error", "topic", topic, "partition", partition, "error", err)
		})

		var handled []*kgo.Record
		var stopErr error
		fetches.EachRecord(func(record *kgo.Record) {
			if stopErr != nil {
				return
			}
			if err := c.handle(ctx, toMessage(record)); err != nil {
				stopErr = err
				return
			}
			handled = append(handled, record)
		})
		if len(handled) > 0 {
			if err := c.client.CommitRecords(ctx, handled...); err != nil {
				c.logger.WarnContext(ctx, "kafka commit failed", "error", err)
			}
		}
		if stopErr != nil {
			return stopErr
		}
	}
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() {
	c.client.Close()
}

func (c *Consumer) handle(ctx context.Context, msg *Message) error {
	backoff := 100 * time.Millisecond
	for {
		err := c.handler.Handle(ctx, msg)
		if err == nil {
			return nil
		}
		c.logger.WarnContext(ctx, "kafka handler failed, retrying",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

func toMessage(record *kgo.Record) *Message {
	msg := &Message{
		Topic:     record.Topic,
		Partition: record.Partition,
		Offset:    record.Offset,
		Key:       record.Key,
		Value:     record.Value,
		Timestamp: record.Timestamp,
	}
	if len(record.Headers) > 0 {
		msg.Headers = make(map[string]string, len(record.Headers))
		for _, h := range record.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}
	}
	return msg
}
