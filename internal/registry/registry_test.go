package registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"ekyc/internal/ledger"
	"ekyc/internal/ledger/memory"
	"ekyc/internal/registry/models"
	"ekyc/internal/relationship"
	id "ekyc/pkg/domain"
	dErrors "ekyc/pkg/domain-errors"
)

type RegistrySuite struct {
	suite.Suite
	store    *memory.Store
	index    *relationship.Index
	registry *Registry
	ctx      context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.store = memory.New()
	s.index = relationship.New()
	s.registry = New(s.index)
	s.ctx = context.Background()
}

func (s *RegistrySuite) registerClient(caller id.InstitutionID, attrs map[string]any) (*models.Client, error) {
	var client *models.Client
	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		client, err = s.registry.RegisterClient(ctx, tx, caller, attrs)
		return err
	})
	return client, err
}

func (s *RegistrySuite) TestRegisterClient() {
	s.Run("allocates sequential ids from ledger state", func() {
		first, err := s.registerClient("FI1", map[string]any{"name": "Alice", "registeredBy": "FI1"})
		s.Require().NoError(err)
		s.Equal(id.ClientID("CLIENT1"), first.ID)
		s.Equal(id.DocTypeClient, first.DocType)
		s.Equal(id.InstitutionID("FI1"), first.RegisteredBy)

		second, err := s.registerClient("FI2", map[string]any{"name": "Bob", "registeredBy": "FI2"})
		s.Require().NoError(err)
		s.Equal(id.ClientID("CLIENT2"), second.ID)
	})

	s.Run("approves the registrant", func() {
		err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
			fis, err := s.index.InstitutionsForClient(ctx, tx, "CLIENT1")
			s.Require().NoError(err)
			s.Equal([]id.InstitutionID{"FI1"}, fis)
			return nil
		})
		s.Require().NoError(err)
	})

	s.Run("rejects a registrant other than the caller", func() {
		before := s.store.Len()
		_, err := s.registerClient("FI2", map[string]any{"name": "Mallory", "registeredBy": "FI1"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal(before, s.store.Len(), "rejected registration stages nothing")
	})

	s.Run("rejects missing or non-string registeredBy", func() {
		_, err := s.registerClient("FI1", map[string]any{"name": "Alice"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.registerClient("FI1", map[string]any{"registeredBy": 7})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects unaddressable attribute names", func() {
		for _, name := range []string{"", " name", "a,b"} {
			_, err := s.registerClient("FI1", map[string]any{"registeredBy": "FI1", name: "x"})
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), "name %q", name)
		}
	})
}

func (s *RegistrySuite) TestRegisterClientFailsOnOccupiedID() {
	s.Require().NoError(s.store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.Put(ctx, "CLIENT1", []byte(`{"docType":"client","id":"CLIENT1"}`))
	}))

	_, err := s.registerClient("FI1", map[string]any{"registeredBy": "FI1"})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *RegistrySuite) TestStoredEnvelopeIsDeterministic() {
	attrs := map[string]any{"zeta": 1, "alpha": "a", "registeredBy": "FI1"}
	_, err := s.registerClient("FI1", attrs)
	s.Require().NoError(err)

	err = s.store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
		raw, err := tx.Get(ctx, "CLIENT1")
		s.Require().NoError(err)
		s.Equal(`{"docType":"client","id":"CLIENT1","registeredBy":"FI1","attributes":{"alpha":"a","registeredBy":"FI1","zeta":1}}`, string(raw))
		return nil
	})
	s.Require().NoError(err)
}

func (s *RegistrySuite) TestInstitutions() {
	var fi *models.Institution
	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		fi, err = s.registry.RegisterInstitution(ctx, tx, map[string]any{"name": "First Bank"})
		return err
	})
	s.Require().NoError(err)
	s.Equal(id.InstitutionID("FI1"), fi.ID)

	s.Run("caller reads its own record", func() {
		err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
			got, err := s.registry.GetInstitution(ctx, tx, "FI1")
			s.Require().NoError(err)
			s.Equal("First Bank", got.Attributes["name"])

			n, err := s.registry.CountInstitutions(ctx, tx)
			s.Require().NoError(err)
			s.Equal(uint64(1), n)
			return nil
		})
		s.Require().NoError(err)
	})

	s.Run("unknown caller gets not found", func() {
		err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
			_, err := s.registry.GetInstitution(ctx, tx, "FI9")
			return err
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("a client id is not an institution", func() {
		_, err := s.registerClient("FI1", map[string]any{"registeredBy": "FI1"})
		s.Require().NoError(err)
		err = s.store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
			_, err := s.registry.GetInstitution(ctx, tx, "CLIENT1")
			return err
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *RegistrySuite) TestGetClientKeepsNumbersExact() {
	_, err := s.registerClient("FI1", map[string]any{"registeredBy": "FI1", "balance": json.Number("12345678901234567890")})
	s.Require().NoError(err)

	err = s.store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
		c, err := s.registry.GetClient(ctx, tx, "CLIENT1")
		s.Require().NoError(err)
		s.Equal(json.Number("12345678901234567890"), c.Attributes["balance"])

		_, err = s.registry.GetClient(ctx, tx, "CLIENT2")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		return nil
	})
	s.Require().NoError(err)
}
