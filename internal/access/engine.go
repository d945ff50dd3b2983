// Package access decides who may read or delegate a client record and
// releases attributes field by field.
//
// Every read is authorized before a single attribute is touched: the engine
// loads the record, checks the caller against the registrant and the
// relationship index, and only then projects the requested fields.
package access

import (
	"context"

	"ekyc/internal/ledger"
	"ekyc/internal/registry"
	"ekyc/internal/registry/models"
	"ekyc/internal/relationship"
	id "ekyc/pkg/domain"
	dErrors "ekyc/pkg/domain-errors"
)

// Engine evaluates access rules inside a ledger transaction.
type Engine struct {
	registry   *registry.Registry
	index      *relationship.Index
	selfRevoke bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithSelfRevoke controls whether a registrant may remove its own approval
// edge. Allowed by default; the registrant keeps read access either way.
func WithSelfRevoke(allowed bool) Option {
	return func(e *Engine) {
		e.selfRevoke = allowed
	}
}

// New creates an access engine.
func New(reg *registry.Registry, index *relationship.Index, opts ...Option) *Engine {
	e := &Engine{registry: reg, index: index, selfRevoke: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CanRead reports whether caller is the registrant or an approved institution.
func (e *Engine) CanRead(ctx context.Context, tx ledger.Tx, caller id.InstitutionID, client *models.Client) (bool, error) {
	if caller.IsNil() {
		return false, nil
	}
	if client.IsRegisteredBy(caller) {
		return true, nil
	}
	if _, err := id.ParseInstitutionID(string(caller)); err != nil {
		return false, nil
	}
	return e.index.Has(ctx, tx, client.ID, caller)
}

// GetClientData returns the requested subset of a client's attributes.
// Fails CodeNotFound for an unknown client and CodeUnauthorized when caller
// may not read it.
func (e *Engine) GetClientData(ctx context.Context, tx ledger.Tx, caller id.InstitutionID, clientID id.ClientID, fields string) (map[string]any, error) {
	client, err := e.registry.GetClient(ctx, tx, clientID)
	if err != nil {
		return nil, err
	}
	allowed, err := e.CanRead(ctx, tx, caller, client)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not approved to access this client data")
	}
	return Project(client.Attributes, fields), nil
}

// Approve lets the registrant grant institutionID read access. It reports
// whether a new edge was written.
func (e *Engine) Approve(ctx context.Context, tx ledger.Tx, caller id.InstitutionID, clientID id.ClientID, institutionID id.InstitutionID) (bool, error) {
	if _, err := e.authorizeOwner(ctx, tx, caller, clientID, institutionID); err != nil {
		return false, err
	}
	return e.index.Grant(ctx, tx, clientID, institutionID)
}

// Remove lets the registrant revoke institutionID's read access. It reports
// whether an edge was deleted.
func (e *Engine) Remove(ctx context.Context, tx ledger.Tx, caller id.InstitutionID, clientID id.ClientID, institutionID id.InstitutionID) (bool, error) {
	client, err := e.authorizeOwner(ctx, tx, caller, clientID, institutionID)
	if err != nil {
		return false, err
	}
	if !e.selfRevoke && client.IsRegisteredBy(institutionID) {
		return false, dErrors.New(dErrors.CodeUnauthorized, "registrant cannot remove its own approval")
	}
	return e.index.Revoke(ctx, tx, clientID, institutionID)
}

func (e *Engine) authorizeOwner(ctx context.Context, tx ledger.Tx, caller id.InstitutionID, clientID id.ClientID, institutionID id.InstitutionID) (*models.Client, error) {
	if _, err := id.ParseClientID(string(clientID)); err != nil {
		return nil, err
	}
	if _, err := id.ParseInstitutionID(string(institutionID)); err != nil {
		return nil, err
	}
	client, err := e.registry.GetClient(ctx, tx, clientID)
	if err != nil {
		return nil, err
	}
	if !client.IsRegisteredBy(caller) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not who registered the client")
	}
	return client, nil
}
