// Package service exposes the KYC operations. Each call runs as exactly one
// ledger transaction: registry, relationship index, access engine and the
// compliance outbox all stage into it, and nothing commits unless the whole
// operation succeeds.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ekyc/internal/access"
	kycmetrics "ekyc/internal/kyc/metrics"
	"ekyc/internal/ledger"
	"ekyc/internal/query"
	"ekyc/internal/registry"
	"ekyc/internal/registry/models"
	"ekyc/internal/relationship"
	id "ekyc/pkg/domain"
	dErrors "ekyc/pkg/domain-errors"
	audit "ekyc/pkg/platform/audit"
	"ekyc/pkg/platform/audit/publishers/compliance"
	"ekyc/pkg/platform/audit/store/outbox"
	"ekyc/pkg/platform/sentinel"
	txcontext "ekyc/pkg/platform/tx"
	"ekyc/pkg/requestcontext"
)

const tracerName = "ekyc.kyc"

// ComplianceAuditor stages compliance events in the active transaction.
type ComplianceAuditor interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// SecurityAuditor records security events outside the transaction.
type SecurityAuditor interface {
	Emit(ctx context.Context, event audit.SecurityEvent)
}

// OpsTracker records routine reads, best effort.
type OpsTracker interface {
	Track(ctx context.Context, event audit.OpsEvent)
}

// Service coordinates the KYC components over one ledger store.
type Service struct {
	ledger     ledger.Store
	registry   *registry.Registry
	index      *relationship.Index
	engine     *access.Engine
	query      *query.Service
	compliance ComplianceAuditor
	security   SecurityAuditor
	ops        OpsTracker
	metrics    *kycmetrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
	selfRevoke bool
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *kycmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithComplianceAuditor replaces the default outbox-backed publisher.
func WithComplianceAuditor(a ComplianceAuditor) Option {
	return func(s *Service) {
		s.compliance = a
	}
}

func WithSecurityAuditor(a SecurityAuditor) Option {
	return func(s *Service) {
		s.security = a
	}
}

func WithOpsTracker(t OpsTracker) Option {
	return func(s *Service) {
		s.ops = t
	}
}

// WithTracerProvider traces operations with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// WithClock sets the operation time source for callers that do not put a
// request time in the context.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithSelfRevoke controls whether registrants may remove their own approval.
func WithSelfRevoke(allowed bool) Option {
	return func(s *Service) {
		s.selfRevoke = allowed
	}
}

// New wires the KYC components over store.
func New(store ledger.Store, opts ...Option) *Service {
	s := &Service{
		ledger:     store,
		logger:     slog.Default(),
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
		selfRevoke: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.compliance == nil {
		s.compliance = compliance.New(outbox.New(), compliance.WithLogger(s.logger))
	}
	s.index = relationship.New()
	s.registry = registry.New(s.index)
	s.engine = access.New(s.registry, s.index, access.WithSelfRevoke(s.selfRevoke))
	s.query = query.New()
	return s
}

// RegisterClient stores a client on behalf of caller and returns its id.
func (s *Service) RegisterClient(ctx context.Context, caller id.InstitutionID, attributes map[string]any) (id.ClientID, error) {
	var clientID id.ClientID
	err := s.run(ctx, "register_client", caller, func(ctx context.Context, tx ledger.Tx) error {
		client, err := s.registry.RegisterClient(ctx, tx, caller, attributes)
		if err != nil {
			return err
		}
		clientID = client.ID
		return s.compliance.Emit(ctx, audit.ComplianceEvent{
			Timestamp:   requestcontext.Now(ctx),
			Action:      audit.EventClientRegistered,
			Actor:       caller,
			ClientID:    client.ID,
			Institution: caller,
			Decision:    "registered",
			RequestID:   requestcontext.RequestID(ctx),
		})
	})
	if err != nil {
		return "", err
	}
	if s.metrics != nil {
		s.metrics.IncClientsRegistered()
	}
	s.logger.InfoContext(ctx, "client registered",
		"client_id", clientID,
		"registered_by", caller,
		"request_id", requestcontext.RequestID(ctx),
	)
	return clientID, nil
}

// RegisterInstitution stores an institution. Operator path only.
func (s *Service) RegisterInstitution(ctx context.Context, attributes map[string]any) (id.InstitutionID, error) {
	var institutionID id.InstitutionID
	err := s.run(ctx, "register_institution", "", func(ctx context.Context, tx ledger.Tx) error {
		institution, err := s.registry.RegisterInstitution(ctx, tx, attributes)
		if err != nil {
			return err
		}
		institutionID = institution.ID
		return s.compliance.Emit(ctx, audit.ComplianceEvent{
			Timestamp:   requestcontext.Now(ctx),
			Action:      audit.EventInstitutionRegistered,
			Actor:       institution.ID,
			Institution: institution.ID,
			Decision:    "registered",
			RequestID:   requestcontext.RequestID(ctx),
		})
	})
	if err != nil {
		return "", err
	}
	return institutionID, nil
}

// GetClientData returns the requested fields of a client caller may read.
func (s *Service) GetClientData(ctx context.Context, caller id.InstitutionID, clientID id.ClientID, fields string) (map[string]any, error) {
	var projection map[string]any
	err := s.run(ctx, "get_client_data", caller, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		projection, err = s.engine.GetClientData(ctx, tx, caller, clientID, fields)
		return err
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			if s.metrics != nil {
				s.metrics.IncAccessDenied()
			}
			s.emitSecurity(ctx, audit.SecurityEvent{
				Action:   audit.EventClientDataDenied,
				Actor:    caller,
				ClientID: clientID,
				Reason:   dErrors.MessageOf(err),
				Severity: audit.SeverityWarning,
			})
		}
		return nil, err
	}
	s.track(ctx, audit.OpsEvent{Action: audit.EventClientDataRead, Actor: caller, ClientID: clientID})
	return projection, nil
}

// GetInstitutionData returns the caller's own institution record.
func (s *Service) GetInstitutionData(ctx context.Context, caller id.InstitutionID) (*models.Institution, error) {
	var institution *models.Institution
	err := s.run(ctx, "get_institution_data", caller, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		institution, err = s.registry.GetInstitution(ctx, tx, caller)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.track(ctx, audit.OpsEvent{Action: audit.EventInstitutionSelfRead, Actor: caller})
	return institution, nil
}

// Approve grants institutionID read access to clientID.
func (s *Service) Approve(ctx context.Context, caller id.InstitutionID, clientID id.ClientID, institutionID id.InstitutionID) error {
	var created bool
	err := s.run(ctx, "approve", caller, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		created, err = s.engine.Approve(ctx, tx, caller, clientID, institutionID)
		if err != nil || !created {
			return err
		}
		return s.compliance.Emit(ctx, audit.ComplianceEvent{
			Timestamp:   requestcontext.Now(ctx),
			Action:      audit.EventAccessApproved,
			Actor:       caller,
			ClientID:    clientID,
			Institution: institutionID,
			Decision:    "granted",
			RequestID:   requestcontext.RequestID(ctx),
		})
	})
	if err != nil {
		return err
	}
	if created && s.metrics != nil {
		s.metrics.IncApprovalsGranted()
	}
	return nil
}

// Remove revokes institutionID's read access to clientID. A registrant
// removing its own edge is allowed unless disabled, and always reported.
func (s *Service) Remove(ctx context.Context, caller id.InstitutionID, clientID id.ClientID, institutionID id.InstitutionID) error {
	var deleted bool
	err := s.run(ctx, "remove", caller, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		deleted, err = s.engine.Remove(ctx, tx, caller, clientID, institutionID)
		if err != nil || !deleted {
			return err
		}
		return s.compliance.Emit(ctx, audit.ComplianceEvent{
			Timestamp:   requestcontext.Now(ctx),
			Action:      audit.EventAccessRemoved,
			Actor:       caller,
			ClientID:    clientID,
			Institution: institutionID,
			Decision:    "revoked",
			RequestID:   requestcontext.RequestID(ctx),
		})
	})
	if err != nil {
		return err
	}
	if deleted && s.metrics != nil {
		s.metrics.IncApprovalsRevoked()
	}
	// caller passed the ownership check, so caller is the registrant
	if deleted && caller == institutionID {
		if s.metrics != nil {
			s.metrics.IncSelfRevocations()
		}
		s.logger.WarnContext(ctx, "registrant removed its own approval",
			"client_id", clientID,
			"institution_id", institutionID,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.emitSecurity(ctx, audit.SecurityEvent{
			Action:   audit.EventSelfAccessRemoved,
			Actor:    caller,
			ClientID: clientID,
			Reason:   "registrant removed its own approval edge",
			Severity: audit.SeverityWarning,
		})
	}
	return nil
}

// ListInstitutionsForClient returns the institutions approved for clientID.
func (s *Service) ListInstitutionsForClient(ctx context.Context, clientID id.ClientID) ([]id.InstitutionID, error) {
	if _, err := id.ParseClientID(string(clientID)); err != nil {
		return nil, err
	}
	var out []id.InstitutionID
	err := s.run(ctx, "list_institutions_for_client", requestcontext.Principal(ctx), func(ctx context.Context, tx ledger.Tx) error {
		var err error
		out, err = s.index.InstitutionsForClient(ctx, tx, clientID)
		return err
	})
	return out, err
}

// ListClientsForInstitution returns the clients institutionID is approved for.
func (s *Service) ListClientsForInstitution(ctx context.Context, institutionID id.InstitutionID) ([]id.ClientID, error) {
	if _, err := id.ParseInstitutionID(string(institutionID)); err != nil {
		return nil, err
	}
	var out []id.ClientID
	err := s.run(ctx, "list_clients_for_institution", requestcontext.Principal(ctx), func(ctx context.Context, tx ledger.Tx) error {
		var err error
		out, err = s.index.ClientsForInstitution(ctx, tx, institutionID)
		return err
	})
	return out, err
}

// QueryAll returns every record of docType without projection. Exposed only
// on the operator surface.
func (s *Service) QueryAll(ctx context.Context, docType id.DocType) ([]query.Record, error) {
	if !docType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown document type")
	}
	var records []query.Record
	actor := requestcontext.Principal(ctx)
	err := s.run(ctx, "query_all", actor, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		records, err = s.query.QueryAll(ctx, tx, docType)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emitSecurity(ctx, audit.SecurityEvent{
		Action:   audit.EventBulkQueryPerformed,
		Actor:    actor,
		Reason:   "queryAll " + string(docType),
		Severity: audit.SeverityInfo,
	})
	return records, nil
}

// CountInstitutions reports how many institutions are registered.
func (s *Service) CountInstitutions(ctx context.Context) (uint64, error) {
	var n uint64
	err := s.run(ctx, "count_institutions", "", func(ctx context.Context, tx ledger.Tx) error {
		var err error
		n, err = s.registry.CountInstitutions(ctx, tx)
		return err
	})
	return n, err
}

// run executes fn in one ledger transaction and translates infrastructure
// errors into coded errors. The operation time is fixed before the
// transaction starts; fn must not read the clock.
func (s *Service) run(ctx context.Context, operation string, caller id.InstitutionID, fn func(ctx context.Context, tx ledger.Tx) error) error {
	if _, ok := requestcontext.RequestTime(ctx); !ok {
		ctx = requestcontext.WithTime(ctx, s.now())
	}
	ctx, span := s.tracer.Start(ctx, "kyc."+operation,
		trace.WithAttributes(
			attribute.String("kyc.operation", operation),
			attribute.String("kyc.caller", caller.String()),
		),
	)
	defer span.End()
	start := time.Now()

	err := s.ledger.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		span.SetAttributes(attribute.String("ledger.tx_id", tx.TxID()))
		return fn(txcontext.WithTx(ctx, tx), tx)
	})
	err = translate(err)

	result := "ok"
	if err != nil {
		result = string(dErrors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		if dErrors.HasCode(err, dErrors.CodeConflict) && s.metrics != nil {
			s.metrics.IncLedgerConflicts()
		}
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			s.logger.ErrorContext(ctx, "kyc operation failed",
				"operation", operation,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, result, time.Since(start).Seconds())
	}
	return err
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "concurrent update, retry the operation")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "ledger operation failed")
	}
}

func (s *Service) emitSecurity(ctx context.Context, event audit.SecurityEvent) {
	if s.security == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	event.IP = requestcontext.ClientIP(ctx)
	s.security.Emit(ctx, event)
}

func (s *Service) track(ctx context.Context, event audit.OpsEvent) {
	if s.ops == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	s.ops.Track(ctx, event)
}
