// Package query returns whole records by document type for administrative
// reporting. It applies no caller check and no field projection; transports
// must only expose it to operators.
package query

import (
	"context"
	"encoding/json"
	"fmt"

	"ekyc/internal/ledger"
	"ekyc/internal/registry"
	id "ekyc/pkg/domain"
)

// Record is one stored document.
type Record struct {
	Key     string          `json:"key"`
	DocType id.DocType      `json:"docType"`
	Record  json.RawMessage `json:"record"`
}

type envelope struct {
	DocType id.DocType `json:"docType"`
}

// Service scans the plain record key space.
type Service struct{}

// New creates a query service.
func New() *Service {
	return &Service{}
}

// QueryAll returns every record whose docType matches, in key order. Index,
// sequence and outbox entries live in the composite key space and are skipped.
func (s *Service) QueryAll(ctx context.Context, tx ledger.Tx, docType id.DocType) ([]Record, error) {
	kvs, err := tx.ScanPrefix(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	out := make([]Record, 0)
	for _, kv := range kvs {
		if ledger.IsCompositeKey(kv.Key) {
			continue
		}
		var env envelope
		if err := registry.DecodeRecord(kv.Value, &env); err != nil {
			return nil, err
		}
		if env.DocType != docType {
			continue
		}
		out = append(out, Record{Key: kv.Key, DocType: env.DocType, Record: json.RawMessage(kv.Value)})
	}
	return out, nil
}
