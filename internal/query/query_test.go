package query

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ekyc/internal/ledger"
	"ekyc/internal/ledger/memory"
	"ekyc/internal/registry"
	"ekyc/internal/relationship"
	id "ekyc/pkg/domain"
	"ekyc/pkg/testutil"
)

func TestQueryAll(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	reg := registry.New(relationship.New())
	svc := New()

	testutil.Given(t, "a ledger with institutions, clients and index entries", func(t *testing.T) {
		require.NoError(t, store.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
			if _, err := reg.RegisterInstitution(ctx, tx, map[string]any{"name": "First Bank"}); err != nil {
				return err
			}
			if _, err := reg.RegisterInstitution(ctx, tx, map[string]any{"name": "Second Bank"}); err != nil {
				return err
			}
			_, err := reg.RegisterClient(ctx, tx, "FI1", map[string]any{"name": "Alice", "registeredBy": "FI1"})
			return err
		}))

		query := func(docType id.DocType) []Record {
			var out []Record
			require.NoError(t, store.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
				var err error
				out, err = svc.QueryAll(ctx, tx, docType)
				return err
			}))
			return out
		}

		testutil.When(t, "querying institutions", func(t *testing.T) {
			testutil.Then(t, "only institution records are returned in key order", func(t *testing.T) {
				records := query(id.DocTypeInstitution)
				require.Len(t, records, 2)
				assert.Equal(t, "FI1", records[0].Key)
				assert.Equal(t, "FI2", records[1].Key)
			})
		})

		testutil.When(t, "querying clients", func(t *testing.T) {
			testutil.Then(t, "full records are returned without projection", func(t *testing.T) {
				records := query(id.DocTypeClient)
				require.Len(t, records, 1)
				var decoded map[string]any
				require.NoError(t, json.Unmarshal(records[0].Record, &decoded))
				assert.Equal(t, "FI1", decoded["registeredBy"])
				assert.Equal(t, map[string]any{"name": "Alice", "registeredBy": "FI1"}, decoded["attributes"])
			})
		})

		testutil.When(t, "querying a type with no records", func(t *testing.T) {
			testutil.Then(t, "an empty list is returned", func(t *testing.T) {
				assert.Empty(t, query(id.DocType("other")))
			})
		})
	})
}
