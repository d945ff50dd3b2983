// Package registry owns client and institution records and allocates their
// identifiers.
//
// Identifiers are derived purely from ledger state: each document type has a
// sequence entry that is read and advanced inside the registering transaction,
// so a replayed transaction allocates the same id. Two registrations racing on
// the same sequence value are separated by the ledger's commit protocol; the
// loser fails with a conflict instead of overwriting a record.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"ekyc/internal/ledger"
	"ekyc/internal/registry/models"
	"ekyc/internal/relationship"
	id "ekyc/pkg/domain"
	dErrors "ekyc/pkg/domain-errors"
)

const (
	sequenceNamespace = "seq"

	clientIDPrefix      = "CLIENT"
	institutionIDPrefix = "FI"
)

// Registry stores records through the transaction it is handed.
type Registry struct {
	index *relationship.Index
}

// New creates a registry that records initial approval edges in index.
func New(index *relationship.Index) *Registry {
	return &Registry{index: index}
}

// RegisterClient stores a new client on behalf of caller and approves caller
// for it. Fails CodeUnauthorized when attributes name another registrant.
func (r *Registry) RegisterClient(ctx context.Context, tx ledger.Tx, caller id.InstitutionID, attributes map[string]any) (*models.Client, error) {
	// Validate before allocating so a rejected request stages nothing.
	if _, err := models.NewClient("", caller, attributes); err != nil {
		return nil, err
	}
	n, err := nextSequence(ctx, tx, id.DocTypeClient)
	if err != nil {
		return nil, err
	}
	clientID := id.ClientID(clientIDPrefix + strconv.FormatUint(n, 10))
	client, err := models.NewClient(clientID, caller, attributes)
	if err != nil {
		return nil, err
	}
	if err := putNew(ctx, tx, string(clientID), client); err != nil {
		return nil, err
	}
	if _, err := r.index.Grant(ctx, tx, clientID, caller); err != nil {
		return nil, err
	}
	return client, nil
}

// RegisterInstitution stores a new institution. Administrative path only.
func (r *Registry) RegisterInstitution(ctx context.Context, tx ledger.Tx, attributes map[string]any) (*models.Institution, error) {
	if err := models.ValidateAttributes(attributes); err != nil {
		return nil, err
	}
	n, err := nextSequence(ctx, tx, id.DocTypeInstitution)
	if err != nil {
		return nil, err
	}
	institutionID := id.InstitutionID(institutionIDPrefix + strconv.FormatUint(n, 10))
	institution, err := models.NewInstitution(institutionID, attributes)
	if err != nil {
		return nil, err
	}
	if err := putNew(ctx, tx, string(institutionID), institution); err != nil {
		return nil, err
	}
	return institution, nil
}

// GetClient loads a client record. Fails CodeNotFound when absent.
func (r *Registry) GetClient(ctx context.Context, tx ledger.Tx, clientID id.ClientID) (*models.Client, error) {
	var client models.Client
	found, err := getRecord(ctx, tx, string(clientID), &client)
	if err != nil {
		return nil, err
	}
	if !found || client.DocType != id.DocTypeClient {
		return nil, dErrors.New(dErrors.CodeNotFound, "client does not exist")
	}
	return &client, nil
}

// GetInstitution returns the caller's own institution record. There is no
// path to read another institution's record.
func (r *Registry) GetInstitution(ctx context.Context, tx ledger.Tx, caller id.InstitutionID) (*models.Institution, error) {
	var institution models.Institution
	found, err := getRecord(ctx, tx, string(caller), &institution)
	if err != nil {
		return nil, err
	}
	if !found || institution.DocType != id.DocTypeInstitution {
		return nil, dErrors.New(dErrors.CodeNotFound, "institution data not found")
	}
	return &institution, nil
}

// CountInstitutions reports how many institutions have been allocated.
func (r *Registry) CountInstitutions(ctx context.Context, tx ledger.Tx) (uint64, error) {
	return currentSequence(ctx, tx, id.DocTypeInstitution)
}

func sequenceKey(docType id.DocType) (string, error) {
	return ledger.CreateCompositeKey(sequenceNamespace, string(docType))
}

func currentSequence(ctx context.Context, tx ledger.Tx, docType id.DocType) (uint64, error) {
	key, err := sequenceKey(docType)
	if err != nil {
		return 0, err
	}
	raw, err := tx.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("read %s sequence: %w", docType, err)
	}
	if raw == nil {
		return 0, nil
	}
	n, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "corrupt id sequence")
	}
	return n, nil
}

func nextSequence(ctx context.Context, tx ledger.Tx, docType id.DocType) (uint64, error) {
	n, err := currentSequence(ctx, tx, docType)
	if err != nil {
		return 0, err
	}
	n++
	key, err := sequenceKey(docType)
	if err != nil {
		return 0, err
	}
	if err := tx.Put(ctx, key, []byte(strconv.FormatUint(n, 10))); err != nil {
		return 0, fmt.Errorf("advance %s sequence: %w", docType, err)
	}
	return n, nil
}

func putNew(ctx context.Context, tx ledger.Tx, key string, record any) error {
	if err := ledger.ValidatePlainKey(key); err != nil {
		return err
	}
	existing, err := tx.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("check %s: %w", key, err)
	}
	if existing != nil {
		return dErrors.New(dErrors.CodeConflict, "identifier "+key+" is already allocated")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode record")
	}
	if err := tx.Put(ctx, key, data); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// getRecord decodes the record under key into out. Ids that cannot form a
// plain key are reported as missing.
func getRecord(ctx context.Context, tx ledger.Tx, key string, out any) (bool, error) {
	if err := ledger.ValidatePlainKey(key); err != nil {
		return false, nil
	}
	raw, err := tx.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := DecodeRecord(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// DecodeRecord unmarshals a stored record, keeping numbers as json.Number so
// attribute values survive a round trip unchanged.
func DecodeRecord(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode stored record")
	}
	return nil
}
