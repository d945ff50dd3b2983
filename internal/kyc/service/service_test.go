package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	kycmetrics "ekyc/internal/kyc/metrics"
	"ekyc/internal/ledger"
	ledgermem "ekyc/internal/ledger/memory"
	id "ekyc/pkg/domain"
	dErrors "ekyc/pkg/domain-errors"
	audit "ekyc/pkg/platform/audit"
	"ekyc/pkg/platform/audit/store/outbox"
	"ekyc/pkg/platform/sentinel"
	"ekyc/pkg/requestcontext"
)

type securityRecorder struct {
	mu     sync.Mutex
	events []audit.SecurityEvent
}

func (r *securityRecorder) Emit(_ context.Context, e audit.SecurityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *securityRecorder) actions() []audit.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.AuditEvent, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

type opsRecorder struct{ events []audit.OpsEvent }

func (r *opsRecorder) Track(_ context.Context, e audit.OpsEvent) { r.events = append(r.events, e) }

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	store    *ledgermem.Store
	security *securityRecorder
	ops      *opsRecorder
	metrics  *kycmetrics.Metrics
	svc      *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithRequestID(context.Background(), "req-test")
	s.store = ledgermem.New()
	s.security = &securityRecorder{}
	s.ops = &opsRecorder{}
	s.metrics = kycmetrics.NewWithRegistry(prometheus.NewRegistry())
	s.svc = New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithSecurityAuditor(s.security),
		WithOpsTracker(s.ops),
	)
	for range 2 {
		_, err := s.svc.RegisterInstitution(s.ctx, map[string]any{"name": "bank"})
		s.Require().NoError(err)
	}
}

func (s *ServiceSuite) pendingActions() []string {
	var actions []string
	s.Require().NoError(s.store.RunInTx(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		entries, err := outbox.Pending(ctx, tx, 0)
		for _, e := range entries {
			actions = append(actions, e.Event.Action)
		}
		return err
	}))
	return actions
}

func (s *ServiceSuite) registerAlice() id.ClientID {
	clientID, err := s.svc.RegisterClient(s.ctx, "FI1", map[string]any{
		"name":         "Alice",
		"dob":          "1990-01-01",
		"registeredBy": "FI1",
	})
	s.Require().NoError(err)
	return clientID
}

func (s *ServiceSuite) TestWorkedScenario() {
	clientID := s.registerAlice()
	s.Equal(id.ClientID("CLIENT1"), clientID)

	data, err := s.svc.GetClientData(s.ctx, "FI1", clientID, "name")
	s.Require().NoError(err)
	s.Equal(map[string]any{"name": "Alice"}, data)

	_, err = s.svc.GetClientData(s.ctx, "FI2", clientID, "name")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	s.Require().NoError(s.svc.Approve(s.ctx, "FI1", clientID, "FI2"))
	data, err = s.svc.GetClientData(s.ctx, "FI2", clientID, "name")
	s.Require().NoError(err)
	s.Equal(map[string]any{"name": "Alice"}, data)

	s.Require().NoError(s.svc.Remove(s.ctx, "FI1", clientID, "FI2"))
	_, err = s.svc.GetClientData(s.ctx, "FI2", clientID, "name")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	s.Equal([]audit.AuditEvent{audit.EventClientDataDenied, audit.EventClientDataDenied}, s.security.actions())
	s.Len(s.ops.events, 2)
	s.InDelta(2, testutil.ToFloat64(s.metrics.AccessDenied), 0)
}

func (s *ServiceSuite) TestComplianceEventsCommitWithTheirOperation() {
	clientID := s.registerAlice()
	s.Require().NoError(s.svc.Approve(s.ctx, "FI1", clientID, "FI2"))
	s.Require().NoError(s.svc.Approve(s.ctx, "FI1", clientID, "FI2"))
	s.Require().NoError(s.svc.Remove(s.ctx, "FI1", clientID, "FI2"))
	s.Require().NoError(s.svc.Remove(s.ctx, "FI1", clientID, "FI2"))

	s.Equal([]string{
		string(audit.EventInstitutionRegistered),
		string(audit.EventInstitutionRegistered),
		string(audit.EventClientRegistered),
		string(audit.EventAccessApproved),
		string(audit.EventAccessRemoved),
	}, s.pendingActions(), "idempotent repeats stage nothing")
}

func (s *ServiceSuite) TestFailedOperationStagesNothing() {
	before := s.store.Len()

	_, err := s.svc.RegisterClient(s.ctx, "FI2", map[string]any{"name": "Mallory", "registeredBy": "FI1"})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	s.Require().NoError(s.svc.Approve(s.ctx, "FI1", s.registerAlice(), "FI2"))
	afterApprove := s.store.Len()

	err = s.svc.Approve(s.ctx, "FI2", "CLIENT1", "FI3")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	err = s.svc.Approve(s.ctx, "FI1", "CLIENT404", "FI2")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	err = s.svc.Approve(s.ctx, "FI1", "CLIENT1", "FI\x002")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	s.Equal(afterApprove, s.store.Len())
	s.Greater(afterApprove, before)
}

func (s *ServiceSuite) TestSelfRevocationIsAllowedAndFlagged() {
	clientID := s.registerAlice()
	s.Require().NoError(s.svc.Remove(s.ctx, "FI1", clientID, "FI1"))

	institutions, err := s.svc.ListInstitutionsForClient(s.ctx, clientID)
	s.Require().NoError(err)
	s.Empty(institutions)

	data, err := s.svc.GetClientData(s.ctx, "FI1", clientID, "name")
	s.Require().NoError(err, "the registrant keeps read access")
	s.Equal("Alice", data["name"])

	s.Equal([]audit.AuditEvent{audit.EventSelfAccessRemoved}, s.security.actions())
	s.InDelta(1, testutil.ToFloat64(s.metrics.SelfRevocations), 0)
}

func (s *ServiceSuite) TestSelfRevocationCanBeDisabled() {
	svc := New(s.store, WithSelfRevoke(false))
	clientID := s.registerAlice()

	err := svc.Remove(s.ctx, "FI1", clientID, "FI1")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	institutions, err := svc.ListInstitutionsForClient(s.ctx, clientID)
	s.Require().NoError(err)
	s.Equal([]id.InstitutionID{"FI1"}, institutions)
}

func (s *ServiceSuite) TestRelationshipMirror() {
	c1 := s.registerAlice()
	c2, err := s.svc.RegisterClient(s.ctx, "FI2", map[string]any{"name": "Bob", "registeredBy": "FI2"})
	s.Require().NoError(err)
	s.Require().NoError(s.svc.Approve(s.ctx, "FI1", c1, "FI2"))

	forward, err := s.svc.ListInstitutionsForClient(s.ctx, c1)
	s.Require().NoError(err)
	s.ElementsMatch([]id.InstitutionID{"FI1", "FI2"}, forward)

	reverse, err := s.svc.ListClientsForInstitution(s.ctx, "FI2")
	s.Require().NoError(err)
	s.ElementsMatch([]id.ClientID{c1, c2}, reverse)

	_, err = s.svc.ListClientsForInstitution(s.ctx, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestGetInstitutionDataIsSelfOnly() {
	institution, err := s.svc.GetInstitutionData(s.ctx, "FI2")
	s.Require().NoError(err)
	s.Equal(id.InstitutionID("FI2"), institution.ID)

	_, err = s.svc.GetInstitutionData(s.ctx, "FI9")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.GetInstitutionData(s.ctx, "CLIENT1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestQueryAll() {
	s.registerAlice()

	clients, err := s.svc.QueryAll(s.ctx, id.DocTypeClient)
	s.Require().NoError(err)
	s.Len(clients, 1)

	institutions, err := s.svc.QueryAll(s.ctx, id.DocTypeInstitution)
	s.Require().NoError(err)
	s.Len(institutions, 2)

	_, err = s.svc.QueryAll(s.ctx, id.DocType("fi"))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	s.Contains(s.security.actions(), audit.EventBulkQueryPerformed)

	n, err := s.svc.CountInstitutions(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(2), n)
}

// replayStore runs every transaction under the same tx id over a plain map
// and keeps the last write set.
type replayStore struct {
	txID   string
	data   map[string][]byte
	writes [][]ledger.Mutation
}

func newReplayStore() *replayStore {
	return &replayStore{txID: "tx-replayed", data: make(map[string][]byte)}
}

func (r *replayStore) RunInTx(ctx context.Context, fn func(context.Context, ledger.Tx) error) error {
	overlay := ledger.NewOverlay(r.txID, mapSnapshot(r.data))
	if err := fn(ctx, overlay); err != nil {
		return err
	}
	mutations := overlay.Mutations()
	r.writes = append(r.writes, mutations)
	for _, m := range mutations {
		if m.Deleted {
			delete(r.data, m.Key)
			continue
		}
		r.data[m.Key] = m.Value
	}
	return nil
}

func (r *replayStore) Close() error { return nil }

type mapSnapshot map[string][]byte

func (m mapSnapshot) Get(_ context.Context, key string) ([]byte, error) { return m[key], nil }

func (m mapSnapshot) Scan(_ context.Context, prefix string) ([]ledger.KV, error) {
	var out []ledger.KV
	for k, v := range m {
		if strings.HasPrefix(k, prefix) {
			out = append(out, ledger.KV{Key: k, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *ServiceSuite) TestReplayedOperationsStageIdenticalWrites() {
	opTime := time.Unix(1_700_000_000, 0).UTC()
	replay := func(ctx context.Context, opts ...Option) [][]ledger.Mutation {
		store := newReplayStore()
		svc := New(store, append(opts, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))...)
		for range 2 {
			_, err := svc.RegisterInstitution(ctx, map[string]any{"name": "bank"})
			s.Require().NoError(err)
		}
		clientID, err := svc.RegisterClient(ctx, "FI1", map[string]any{"name": "Alice", "registeredBy": "FI1"})
		s.Require().NoError(err)
		s.Require().NoError(svc.Approve(ctx, "FI1", clientID, "FI2"))
		s.Require().NoError(svc.Remove(ctx, "FI1", clientID, "FI2"))
		return store.writes
	}

	first := replay(requestcontext.WithTime(s.ctx, opTime))
	s.Require().Len(first, 5)
	s.Equal(first, replay(requestcontext.WithTime(s.ctx, opTime)))

	s.Equal(first, replay(s.ctx, WithClock(func() time.Time { return opTime })),
		"without a request time the operation time is taken once, before the transaction")
}

func (s *ServiceSuite) TestOperationsAreTraced() {
	recorder := tracetest.NewSpanRecorder()
	svc := New(s.store,
		WithTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	clientID, err := svc.RegisterClient(s.ctx, "FI1", map[string]any{"name": "Alice", "registeredBy": "FI1"})
	s.Require().NoError(err)
	_, err = svc.GetClientData(s.ctx, "FI2", clientID, "name")
	s.Require().Error(err)

	spans := recorder.Ended()
	s.Require().Len(spans, 2)

	s.Equal("kyc.register_client", spans[0].Name())
	s.Equal(codes.Ok, spans[0].Status().Code)
	attrs := map[attribute.Key]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	s.Equal("FI1", attrs["kyc.caller"])
	s.NotEmpty(attrs["ledger.tx_id"])

	s.Equal("kyc.get_client_data", spans[1].Name())
	s.Equal(codes.Error, spans[1].Status().Code)
	s.Len(spans[1].Events(), 1, "the denial is recorded on the span")
}

type conflictStore struct{ ledger.Store }

func (conflictStore) RunInTx(context.Context, func(context.Context, ledger.Tx) error) error {
	return sentinel.ErrConflict
}

type brokenStore struct{ ledger.Store }

func (brokenStore) RunInTx(context.Context, func(context.Context, ledger.Tx) error) error {
	return errors.New("disk on fire")
}

func (s *ServiceSuite) TestInfrastructureErrorsAreCoded() {
	svc := New(conflictStore{}, WithMetrics(s.metrics))
	err := svc.Approve(s.ctx, "FI1", "CLIENT1", "FI2")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.ErrorIs(err, sentinel.ErrConflict)
	s.InDelta(1, testutil.ToFloat64(s.metrics.LedgerConflicts), 0)

	svc = New(brokenStore{}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	_, err = svc.GetClientData(s.ctx, "FI1", "CLIENT1", "name")
	s.Equal(dErrors.CodeInternal, dErrors.CodeOf(err))
}
