package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "ekyc/pkg/platform/audit"
	"ekyc/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("outbox write failed")
}

func TestPublisher_Emit(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("stores the compliance event as given", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := New(store)

		err := pub.Emit(ctx, audit.ComplianceEvent{
			Timestamp:   fixed,
			Action:      audit.EventAccessApproved,
			Actor:       "FI1",
			ClientID:    "CLIENT1",
			Institution: "FI2",
		})
		require.NoError(t, err)

		events, err := store.ListByClient(ctx, "CLIENT1")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, audit.CategoryCompliance, events[0].Category)
		assert.Equal(t, fixed, events[0].Timestamp)
		assert.Empty(t, events[0].ID, "the outbox assigns ids")
		assert.Equal(t, "FI2", events[0].Institution.String())
	})

	t.Run("rejects events the relay could not attribute", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := New(store)
		require.Error(t, pub.Emit(ctx, audit.ComplianceEvent{Action: audit.EventAccessApproved}))
		require.Error(t, pub.Emit(ctx, audit.ComplianceEvent{
			Action: audit.EventAccessApproved, Actor: "FI1", ClientID: "CLIENT1", Institution: "FI2",
		}), "events carry the operation time")
		require.Error(t, pub.Emit(ctx, audit.ComplianceEvent{Actor: "FI1"}))
		require.Error(t, pub.Emit(ctx, audit.ComplianceEvent{Actor: "FI1", Action: audit.EventClientDataDenied}),
			"security actions do not belong on the compliance path")
		require.Error(t, pub.Emit(ctx, audit.ComplianceEvent{Actor: "FI1", Action: audit.EventAccessRemoved, ClientID: "CLIENT1"}))
		require.Error(t, pub.Emit(ctx, audit.ComplianceEvent{Actor: "FI1", Action: audit.EventClientRegistered}))

		events, _ := store.ListAll(ctx)
		assert.Empty(t, events)
	})

	t.Run("fails closed and counts the failure", func(t *testing.T) {
		metrics := NewMetricsWithRegistry(prometheus.NewRegistry())
		pub := New(failingStore{}, WithMetrics(metrics))

		err := pub.Emit(ctx, audit.ComplianceEvent{
			Timestamp:   fixed,
			Action:      audit.EventAccessRemoved,
			Actor:       "FI1",
			ClientID:    "CLIENT1",
			Institution: "FI2",
		})
		require.Error(t, err)
		assert.InDelta(t, 1, testutil.ToFloat64(metrics.PersistFailures), 0)
		assert.InDelta(t, 0, testutil.ToFloat64(metrics.EventsEmitted), 0)
	})
}
