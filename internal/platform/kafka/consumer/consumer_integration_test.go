//go:build integration

package consumer_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ekyc/internal/platform/kafka/consumer"
	"ekyc/internal/platform/kafka/producer"
	"ekyc/pkg/testutil/containers"
)

type collector struct {
	mu   sync.Mutex
	msgs []*consumer.Message
}

func (c *collector) Handle(_ context.Context, msg *consumer.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func TestProduceConsumeRoundTrip(t *testing.T) {
	rp := containers.GetManager().GetRedpanda(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	prod, err := producer.New(producer.Config{Brokers: rp.Brokers, ClientID: "ekyc-test"}, logger)
	require.NoError(t, err)
	defer prod.Close()
	require.NoError(t, prod.EnsureTopics(ctx, 1, 1, "audit.compliance"))
	require.NoError(t, prod.EnsureTopics(ctx, 1, 1, "audit.compliance"), "existing topics are not an error")

	require.NoError(t, prod.Publish(ctx, "audit.compliance", []byte("k1"), []byte(`{"action":"access_approved"}`),
		map[string]string{"action": "access_approved"}))

	sink := &collector{}
	cons, err := consumer.New(consumer.Config{
		Brokers: rp.Brokers,
		GroupID: "ekyc-test",
		Topics:  []string{"audit.compliance"},
	}, sink, logger)
	require.NoError(t, err)
	defer cons.Close()

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = cons.Run(runCtx)
	}()

	require.Eventually(t, func() bool { return sink.count() == 1 }, 30*time.Second, 100*time.Millisecond)
	stop()
	<-done

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Equal(t, "k1", string(sink.msgs[0].Key))
	require.Equal(t, "access_approved", sink.msgs[0].Headers["action"])
}
