package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// play feeds outcomes to b: 'f' is a failed Kafka append, 's' a successful
// one. It returns the state after each step and every transition seen.
func play(b *Breaker, script string) (states []State, changes []StateChange) {
	for _, step := range script {
		var change StateChange
		switch step {
		case 'f':
			_, change = b.RecordFailure()
		case 's':
			_, change = b.RecordSuccess()
		}
		states = append(states, b.State())
		if change.Opened || change.Closed {
			changes = append(changes, change)
		}
	}
	return states, changes
}

func TestBreaker_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		successes int
		script    string
		wantOpen  bool
		wantMoves []StateChange
	}{
		{"sporadic failures stay closed", 3, 2, "ffsffsff", false, nil},
		{"outage opens the circuit", 3, 2, "fff", true, []StateChange{{Opened: true}}},
		{"recovery needs consecutive successes", 1, 2, "fsfs", true, []StateChange{{Opened: true}}},
		{"recovered broker closes the circuit", 1, 2, "fss", false, []StateChange{{Opened: true}, {Closed: true}}},
		{"failures while open report no new transition", 1, 2, "ffff", true, []StateChange{{Opened: true}}},
		{"defaults open after five failures", 0, 0, "fffff", true, []StateChange{{Opened: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("audit-kafka", WithFailureThreshold(tt.failures), WithSuccessThreshold(tt.successes))
			states, moves := play(b, tt.script)
			require.Len(t, states, len(tt.script))
			assert.Equal(t, tt.wantOpen, b.IsOpen())
			assert.Equal(t, tt.wantMoves, moves)
		})
	}
}

func TestBreaker_RoutingHints(t *testing.T) {
	b := New("audit-kafka", WithFailureThreshold(2), WithSuccessThreshold(1))

	useFallback, _ := b.RecordFailure()
	assert.False(t, useFallback, "below threshold the primary is still used")
	useFallback, _ = b.RecordFailure()
	assert.True(t, useFallback)

	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.Equal(t, StateChange{}, change)
}

func TestBreaker_Reset(t *testing.T) {
	b := New("audit-kafka", WithFailureThreshold(1))
	assert.Equal(t, "audit-kafka", b.Name())

	play(b, "f")
	require.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	_, moves := play(b, "s")
	assert.Empty(t, moves)
}
