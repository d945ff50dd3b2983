package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ekyc/internal/kyc/handler/mocks"
	"ekyc/internal/query"
	"ekyc/internal/registry/models"
	id "ekyc/pkg/domain"
	dErrors "ekyc/pkg/domain-errors"
	"ekyc/pkg/testutil"
)

type KYCHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	invoker *mocks.MockInvoker
	router  chi.Router
}

func TestKYCHandlerSuite(t *testing.T) {
	suite.Run(t, new(KYCHandlerSuite))
}

func (s *KYCHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.invoker = mocks.NewMockInvoker(ctrl)
	h := New(s.service, s.invoker, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterAdmin(s.router)
}

func (s *KYCHandlerSuite) as(principal string, req *http.Request) *http.Request {
	return testutil.WithPrincipal(req, principal)
}

func (s *KYCHandlerSuite) TestRegisterClient() {
	s.Run("created", func() {
		attrs := map[string]any{"name": "Alice", "registeredBy": "FI1"}
		s.service.EXPECT().RegisterClient(gomock.Any(), id.InstitutionID("FI1"), attrs).Return(id.ClientID("CLIENT1"), nil)

		req := s.as("FI1", testutil.NewJSONRequest(s.T(), http.MethodPost, "/clients", RegisterClientRequest{Attributes: attrs}))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[RegisterClientResponse](s.T(), rr)
		s.Equal(id.ClientID("CLIENT1"), resp.ClientID)
	})

	s.Run("registrant mismatch is forbidden", func() {
		s.service.EXPECT().RegisterClient(gomock.Any(), id.InstitutionID("FI2"), gomock.Any()).
			Return(id.ClientID(""), dErrors.New(dErrors.CodeUnauthorized, "caller is not who registered the client"))

		req := s.as("FI2", testutil.NewJSONRequest(s.T(), http.MethodPost, "/clients",
			RegisterClientRequest{Attributes: map[string]any{"registeredBy": "FI1"}}))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertError(s.T(), rr, dErrors.CodeUnauthorized)
	})

	s.Run("empty attributes never reach the service", func() {
		req := s.as("FI1", testutil.NewRequestWithBody(s.T(), http.MethodPost, "/clients", `{"attributes":{}}`))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("missing principal is unauthenticated", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/clients", `{"attributes":{"a":1}}`))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})
}

func (s *KYCHandlerSuite) TestGetClientData() {
	s.Run("projection", func() {
		s.service.EXPECT().GetClientData(gomock.Any(), id.InstitutionID("FI2"), id.ClientID("CLIENT1"), "name,dob").
			Return(map[string]any{"name": "Alice"}, nil)

		rr := testutil.DoRequest(s.router, s.as("FI2", testutil.NewRequest(s.T(), http.MethodGet, "/clients/CLIENT1?fields=name,dob")))

		testutil.AssertStatusOK(s.T(), rr)
		var body map[string]any
		s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
		s.Equal(map[string]any{"name": "Alice"}, body)
	})

	s.Run("not found", func() {
		s.service.EXPECT().GetClientData(gomock.Any(), gomock.Any(), id.ClientID("CLIENT9"), "").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "client not found"))

		rr := testutil.DoRequest(s.router, s.as("FI2", testutil.NewRequest(s.T(), http.MethodGet, "/clients/CLIENT9")))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})

	s.Run("internal errors hide their message", func() {
		s.service.EXPECT().GetClientData(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInternal, "badger: value log corrupt"))

		rr := testutil.DoRequest(s.router, s.as("FI2", testutil.NewRequest(s.T(), http.MethodGet, "/clients/CLIENT1?fields=name")))
		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
		s.NotContains(rr.Body.String(), "badger")
	})
}

func (s *KYCHandlerSuite) TestApproveAndRemove() {
	s.service.EXPECT().Approve(gomock.Any(), id.InstitutionID("FI1"), id.ClientID("CLIENT1"), id.InstitutionID("FI2")).Return(nil)
	rr := testutil.DoRequest(s.router, s.as("FI1", testutil.NewJSONRequest(s.T(), http.MethodPost, "/clients/CLIENT1/approvals",
		ApproveRequest{InstitutionID: " FI2 "})))
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	s.service.EXPECT().Remove(gomock.Any(), id.InstitutionID("FI1"), id.ClientID("CLIENT1"), id.InstitutionID("FI2")).Return(nil)
	rr = testutil.DoRequest(s.router, s.as("FI1", testutil.NewRequest(s.T(), http.MethodDelete, "/clients/CLIENT1/approvals/FI2")))
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	rr = testutil.DoRequest(s.router, s.as("FI1", testutil.NewRequestWithBody(s.T(), http.MethodPost, "/clients/CLIENT1/approvals", `{}`)))
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
}

func (s *KYCHandlerSuite) TestRelationships() {
	s.service.EXPECT().ListInstitutionsForClient(gomock.Any(), id.ClientID("CLIENT1")).
		Return([]id.InstitutionID{"FI1", "FI2"}, nil)
	rr := testutil.DoRequest(s.router, s.as("FI3", testutil.NewRequest(s.T(), http.MethodGet, "/clients/CLIENT1/institutions")))
	testutil.AssertStatusOK(s.T(), rr)
	institutions := testutil.UnmarshalResponse[InstitutionsResponse](s.T(), rr)
	s.Equal([]id.InstitutionID{"FI1", "FI2"}, institutions.InstitutionIDs)

	s.service.EXPECT().ListClientsForInstitution(gomock.Any(), id.InstitutionID("FI9")).Return(nil, nil)
	rr = testutil.DoRequest(s.router, s.as("FI3", testutil.NewRequest(s.T(), http.MethodGet, "/institutions/FI9/clients")))
	testutil.AssertStatusOK(s.T(), rr)
	s.JSONEq(`{"client_ids":[]}`, rr.Body.String())
}

func (s *KYCHandlerSuite) TestGetInstitution() {
	s.service.EXPECT().GetInstitutionData(gomock.Any(), id.InstitutionID("FI1")).
		Return(&models.Institution{DocType: id.DocTypeInstitution, ID: "FI1", Attributes: map[string]any{"name": "bank"}}, nil)

	rr := testutil.DoRequest(s.router, s.as("FI1", testutil.NewRequest(s.T(), http.MethodGet, "/institutions/me")))
	testutil.AssertStatusOK(s.T(), rr)
	got := testutil.UnmarshalResponse[models.Institution](s.T(), rr)
	s.Equal(id.InstitutionID("FI1"), got.ID)
}

func (s *KYCHandlerSuite) TestInvoke() {
	s.invoker.EXPECT().Invoke(gomock.Any(), id.InstitutionID("FI1"), "getRelationByFi", []string{"FI1"}).
		Return([]id.ClientID{"CLIENT1"}, nil)
	rr := testutil.DoRequest(s.router, s.as("FI1", testutil.NewJSONRequest(s.T(), http.MethodPost, "/invoke",
		InvokeRequest{Function: "getRelationByFi", Args: []string{"FI1"}})))
	testutil.AssertStatusOK(s.T(), rr)
	s.JSONEq(`{"result":["CLIENT1"]}`, rr.Body.String())

	s.invoker.EXPECT().Invoke(gomock.Any(), id.InstitutionID("FI1"), "approve", []string{}).
		Return(nil, dErrors.New(dErrors.CodeInvalidInput, "incorrect number of arguments, expecting 2"))
	rr = testutil.DoRequest(s.router, s.as("FI1", testutil.NewRequestWithBody(s.T(), http.MethodPost, "/invoke", `{"function":"approve"}`)))
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	s.Equal("incorrect number of arguments, expecting 2", testutil.UnmarshalErrorResponse(s.T(), rr)["error_description"])
}

func (s *KYCHandlerSuite) TestAdminRoutes() {
	s.Run("query requires the admin flag", func() {
		rr := testutil.DoRequest(s.router, s.as("FI1", testutil.NewRequest(s.T(), http.MethodGet, "/admin/records?type=client")))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("query all", func() {
		s.service.EXPECT().QueryAll(gomock.Any(), id.DocTypeClient).
			Return([]query.Record{{Key: "CLIENT1", DocType: id.DocTypeClient, Record: json.RawMessage(`{"id":"CLIENT1"}`)}}, nil)
		rr := testutil.DoRequest(s.router, testutil.WithAdmin(testutil.NewRequest(s.T(), http.MethodGet, "/admin/records?type=client")))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[RecordsResponse](s.T(), rr)
		s.Len(resp.Records, 1)
	})

	s.Run("unknown doc type", func() {
		rr := testutil.DoRequest(s.router, testutil.WithAdmin(testutil.NewRequest(s.T(), http.MethodGet, "/admin/records?type=fi")))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("register institution", func() {
		s.service.EXPECT().RegisterInstitution(gomock.Any(), map[string]any{"name": "bank"}).Return(id.InstitutionID("FI3"), nil)
		req := testutil.WithAdmin(testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/institutions",
			RegisterInstitutionRequest{Attributes: map[string]any{"name": "bank"}}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		s.Equal(id.InstitutionID("FI3"), testutil.UnmarshalResponse[RegisterInstitutionResponse](s.T(), rr).InstitutionID)
	})
}

var _ Service = (*mocks.MockService)(nil)
