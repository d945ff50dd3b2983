package audit

import (
	"time"

	id "ekyc/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance:
	// record registration and every change to who may read a client record.
	// These are staged in the same ledger transaction as the change itself.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and forensics,
	// such as denied reads and registrants revoking their own access.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine access patterns. Can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is the transport-agnostic audit record shared by every sink.
//
// Actor is the institution principal that performed the action. ClientID is
// the client record concerned, if any. Institution is the institution affected
// by the action: the grantee of an approval or a newly registered institution.
type Event struct {
	ID          string           `json:"id"`
	Category    EventCategory    `json:"category"`
	Timestamp   time.Time        `json:"timestamp"`
	Action      string           `json:"action"`
	Actor       id.InstitutionID `json:"actor,omitempty"`
	ClientID    id.ClientID      `json:"client_id,omitempty"`
	Institution id.InstitutionID `json:"institution,omitempty"`
	Decision    string           `json:"decision,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	RequestID   string           `json:"request_id,omitempty"`
	TxID        string           `json:"tx_id,omitempty"`
}

type AuditEvent string

const (
	// Registry events
	EventClientRegistered      AuditEvent = "client_registered"
	EventInstitutionRegistered AuditEvent = "institution_registered"

	// Access events
	EventAccessApproved      AuditEvent = "access_approved"
	EventAccessRemoved       AuditEvent = "access_removed"
	EventSelfAccessRemoved   AuditEvent = "self_access_removed"
	EventClientDataRead      AuditEvent = "client_data_read"
	EventClientDataDenied    AuditEvent = "client_data_denied"
	EventBulkQueryPerformed  AuditEvent = "bulk_query_performed"
	EventInstitutionSelfRead AuditEvent = "institution_self_read"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventClientRegistered:      CategoryCompliance,
	EventInstitutionRegistered: CategoryCompliance,
	EventAccessApproved:        CategoryCompliance,
	EventAccessRemoved:         CategoryCompliance,

	EventSelfAccessRemoved:  CategorySecurity,
	EventClientDataDenied:   CategorySecurity,
	EventBulkQueryPerformed: CategorySecurity,

	EventClientDataRead:      CategoryOperations,
	EventInstitutionSelfRead: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// ComplianceEvent captures a change that must be recorded iff it commits.
// Use with the compliance publisher for fail-closed semantics.
type ComplianceEvent struct {
	Timestamp   time.Time
	Action      AuditEvent
	Actor       id.InstitutionID
	ClientID    id.ClientID
	Institution id.InstitutionID
	Decision    string
	RequestID   string
}

// Category returns CategoryCompliance (always).
func (e ComplianceEvent) Category() EventCategory { return CategoryCompliance }

// ToEvent converts to the shared Event type.
func (e ComplianceEvent) ToEvent() Event {
	return Event{
		Category:    CategoryCompliance,
		Timestamp:   e.Timestamp,
		Action:      string(e.Action),
		Actor:       e.Actor,
		ClientID:    e.ClientID,
		Institution: e.Institution,
		Decision:    e.Decision,
		RequestID:   e.RequestID,
	}
}

// SecurityEvent captures security-relevant actions for SIEM and alerting.
// Events are processed asynchronously with buffering.
type SecurityEvent struct {
	Timestamp time.Time
	Action    AuditEvent
	Actor     id.InstitutionID
	ClientID  id.ClientID
	Reason    string
	IP        string
	RequestID string
	Severity  Severity
}

// Severity levels for security events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Category returns CategorySecurity (always).
func (e SecurityEvent) Category() EventCategory { return CategorySecurity }

// ToEvent converts to the shared Event type. Severity travels as the decision.
func (e SecurityEvent) ToEvent() Event {
	return Event{
		Category:  CategorySecurity,
		Timestamp: e.Timestamp,
		Action:    string(e.Action),
		Actor:     e.Actor,
		ClientID:  e.ClientID,
		Decision:  string(e.Severity),
		Reason:    e.Reason,
		RequestID: e.RequestID,
	}
}

// OpsEvent captures operational events with minimal overhead.
// Events are fire-and-forget with optional sampling.
type OpsEvent struct {
	Timestamp time.Time
	Action    AuditEvent
	Actor     id.InstitutionID
	ClientID  id.ClientID
	RequestID string
}

// Category returns CategoryOperations (always).
func (e OpsEvent) Category() EventCategory { return CategoryOperations }

// ToEvent converts to the shared Event type.
func (e OpsEvent) ToEvent() Event {
	return Event{
		Category:  CategoryOperations,
		Timestamp: e.Timestamp,
		Action:    string(e.Action),
		Actor:     e.Actor,
		ClientID:  e.ClientID,
		RequestID: e.RequestID,
	}
}
