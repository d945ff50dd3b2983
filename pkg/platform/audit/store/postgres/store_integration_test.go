//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "ekyc/pkg/platform/audit"
	"ekyc/pkg/testutil/containers"
)

type PostgresAuditSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
}

func TestPostgresAuditSuite(t *testing.T) {
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	store, err := Open(context.Background(), s.pg.DSN)
	s.Require().NoError(err)
	s.store = store
}

func (s *PostgresAuditSuite) TearDownSuite() {
	_ = s.store.Close()
}

func (s *PostgresAuditSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "audit_events"))
}

func (s *PostgresAuditSuite) TestAppendIsIdempotentOnID() {
	ctx := context.Background()
	event := audit.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		Action:    string(audit.EventAccessApproved),
		Actor:     "FI1",
		ClientID:  "CLIENT1",
	}
	s.Require().NoError(s.store.Append(ctx, event))
	s.Require().NoError(s.store.Append(ctx, event))

	events, err := s.store.ListByClient(ctx, "CLIENT1")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.CategoryCompliance, events[0].Category)
	s.Equal(event.ID, events[0].ID)
}

func (s *PostgresAuditSuite) TestListByActions() {
	ctx := context.Background()
	base := time.Now().UTC()
	for i, action := range []audit.AuditEvent{audit.EventClientDataDenied, audit.EventClientDataRead, audit.EventSelfAccessRemoved} {
		s.Require().NoError(s.store.Append(ctx, audit.Event{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Action:    string(action),
			Actor:     "FI2",
		}))
	}

	events, err := s.store.ListByActions(ctx, []audit.AuditEvent{audit.EventClientDataDenied, audit.EventSelfAccessRemoved}, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventSelfAccessRemoved), events[0].Action, "newest first")

	recent, err := s.store.ListRecent(ctx, 1)
	s.Require().NoError(err)
	s.Len(recent, 1)
}
