// Package relationship maintains approval edges between clients and
// institutions as two mirrored composite-key namespaces.
//
// An edge (C, F) exists iff both of these keys are present:
//
//	client~institution / C / F   (forward)
//	institution~client / F / C   (reverse)
//
// Key presence is the membership bit; the stored value carries no meaning.
// Every mutation writes or deletes the two keys together inside the caller's
// transaction, and the index never stores record content.
package relationship

import (
	"context"
	"fmt"

	"ekyc/internal/ledger"
	id "ekyc/pkg/domain"
)

const (
	NamespaceClientInstitution = "client~institution"
	NamespaceInstitutionClient = "institution~client"
)

// Composite keys need a non-empty value on every backend.
var presence = []byte{0x00}

// Index is stateless; all state lives in the ledger transaction passed in.
type Index struct{}

// New creates a relationship index.
func New() *Index {
	return &Index{}
}

func edgeKeys(clientID id.ClientID, institutionID id.InstitutionID) (string, string, error) {
	forward, err := ledger.CreateCompositeKey(NamespaceClientInstitution, string(clientID), string(institutionID))
	if err != nil {
		return "", "", err
	}
	reverse, err := ledger.CreateCompositeKey(NamespaceInstitutionClient, string(institutionID), string(clientID))
	if err != nil {
		return "", "", err
	}
	return forward, reverse, nil
}

// Grant creates the edge (clientID, institutionID). It reports whether
// anything was written; granting an existing edge stages no writes.
func (i *Index) Grant(ctx context.Context, tx ledger.Tx, clientID id.ClientID, institutionID id.InstitutionID) (bool, error) {
	forward, reverse, err := edgeKeys(clientID, institutionID)
	if err != nil {
		return false, err
	}
	hasForward, err := exists(ctx, tx, forward)
	if err != nil {
		return false, err
	}
	hasReverse, err := exists(ctx, tx, reverse)
	if err != nil {
		return false, err
	}
	if hasForward && hasReverse {
		return false, nil
	}
	// A half-present edge is repaired rather than left asymmetric.
	if !hasForward {
		if err := tx.Put(ctx, forward, presence); err != nil {
			return false, fmt.Errorf("put forward edge: %w", err)
		}
	}
	if !hasReverse {
		if err := tx.Put(ctx, reverse, presence); err != nil {
			return false, fmt.Errorf("put reverse edge: %w", err)
		}
	}
	return true, nil
}

// Revoke removes the edge (clientID, institutionID). Revoking a missing edge is
// a no-op; the result reports whether anything was deleted.
func (i *Index) Revoke(ctx context.Context, tx ledger.Tx, clientID id.ClientID, institutionID id.InstitutionID) (bool, error) {
	forward, reverse, err := edgeKeys(clientID, institutionID)
	if err != nil {
		return false, err
	}
	removed := false
	for _, key := range []string{forward, reverse} {
		present, err := exists(ctx, tx, key)
		if err != nil {
			return false, err
		}
		if !present {
			continue
		}
		if err := tx.Delete(ctx, key); err != nil {
			return false, fmt.Errorf("delete edge: %w", err)
		}
		removed = true
	}
	return removed, nil
}

// Has reports whether institutionID is approved for clientID.
func (i *Index) Has(ctx context.Context, tx ledger.Tx, clientID id.ClientID, institutionID id.InstitutionID) (bool, error) {
	forward, err := ledger.CreateCompositeKey(NamespaceClientInstitution, string(clientID), string(institutionID))
	if err != nil {
		return false, err
	}
	return exists(ctx, tx, forward)
}

// InstitutionsForClient lists approved institutions in key order.
func (i *Index) InstitutionsForClient(ctx context.Context, tx ledger.Tx, clientID id.ClientID) ([]id.InstitutionID, error) {
	others, err := scanPartners(ctx, tx, NamespaceClientInstitution, string(clientID))
	if err != nil {
		return nil, err
	}
	out := make([]id.InstitutionID, 0, len(others))
	for _, o := range others {
		out = append(out, id.InstitutionID(o))
	}
	return out, nil
}

// ClientsForInstitution lists clients the institution may read, in key order.
func (i *Index) ClientsForInstitution(ctx context.Context, tx ledger.Tx, institutionID id.InstitutionID) ([]id.ClientID, error) {
	others, err := scanPartners(ctx, tx, NamespaceInstitutionClient, string(institutionID))
	if err != nil {
		return nil, err
	}
	out := make([]id.ClientID, 0, len(others))
	for _, o := range others {
		out = append(out, id.ClientID(o))
	}
	return out, nil
}

func scanPartners(ctx context.Context, tx ledger.Tx, namespace, subject string) ([]string, error) {
	prefix, err := ledger.CreateCompositeKey(namespace, subject)
	if err != nil {
		return nil, err
	}
	kvs, err := tx.ScanPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", namespace, err)
	}
	out := make([]string, 0, len(kvs))
	for _, kv := range kvs {
		_, attrs, err := ledger.SplitCompositeKey(kv.Key)
		if err != nil {
			return nil, err
		}
		if len(attrs) != 2 {
			return nil, fmt.Errorf("index key in %s has %d attributes", namespace, len(attrs))
		}
		out = append(out, attrs[1])
	}
	return out, nil
}

func exists(ctx context.Context, tx ledger.Tx, key string) (bool, error) {
	v, err := tx.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read index: %w", err)
	}
	return v != nil, nil
}
