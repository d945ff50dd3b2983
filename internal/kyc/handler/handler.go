// Package handler exposes the KYC service over HTTP. Authentication happens in
// middleware; the handlers only read the principal it stored and pass it on.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ekyc/internal/query"
	"ekyc/internal/registry/models"
	id "ekyc/pkg/domain"
	dErrors "ekyc/pkg/domain-errors"
	"ekyc/pkg/platform/httputil"
	"ekyc/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/kyc-mocks.go -package=mocks Service,Invoker

// Service defines the KYC operations served over HTTP.
type Service interface {
	RegisterClient(ctx context.Context, caller id.InstitutionID, attributes map[string]any) (id.ClientID, error)
	RegisterInstitution(ctx context.Context, attributes map[string]any) (id.InstitutionID, error)
	GetClientData(ctx context.Context, caller id.InstitutionID, clientID id.ClientID, fields string) (map[string]any, error)
	GetInstitutionData(ctx context.Context, caller id.InstitutionID) (*models.Institution, error)
	Approve(ctx context.Context, caller id.InstitutionID, clientID id.ClientID, institutionID id.InstitutionID) error
	Remove(ctx context.Context, caller id.InstitutionID, clientID id.ClientID, institutionID id.InstitutionID) error
	ListInstitutionsForClient(ctx context.Context, clientID id.ClientID) ([]id.InstitutionID, error)
	ListClientsForInstitution(ctx context.Context, institutionID id.InstitutionID) ([]id.ClientID, error)
	QueryAll(ctx context.Context, docType id.DocType) ([]query.Record, error)
}

// Invoker runs named operations with positional arguments.
type Invoker interface {
	Invoke(ctx context.Context, caller id.InstitutionID, function string, args []string) (any, error)
}

// Handler handles KYC endpoints.
type Handler struct {
	service Service
	invoker Invoker
	logger  *slog.Logger
}

// New creates a new KYC Handler.
func New(service Service, invoker Invoker, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		invoker: invoker,
		logger:  logger,
	}
}

// Register registers the routes for authenticated institutions. The router is
// expected to carry the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/clients", h.handleRegisterClient)
	r.Get("/clients/{clientID}", h.handleGetClientData)
	r.Post("/clients/{clientID}/approvals", h.handleApprove)
	r.Delete("/clients/{clientID}/approvals/{institutionID}", h.handleRemove)
	r.Get("/clients/{clientID}/institutions", h.handleListInstitutions)
	r.Get("/institutions/me", h.handleGetInstitution)
	r.Get("/institutions/{institutionID}/clients", h.handleListClients)
	r.Post("/invoke", h.handleInvoke)
}

// RegisterAdmin registers the operator routes. The router is expected to carry
// the admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/records", h.handleQueryAll)
	r.Post("/admin/institutions", h.handleRegisterInstitution)
}

func (h *Handler) handleRegisterClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[RegisterClientRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	clientID, err := h.service.RegisterClient(ctx, caller, req.Attributes)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to register client", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, RegisterClientResponse{ClientID: clientID})
}

func (h *Handler) handleGetClientData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	clientID := id.ClientID(chi.URLParam(r, "clientID"))
	data, err := h.service.GetClientData(ctx, caller, clientID, r.URL.Query().Get("fields"))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to read client data", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, data)
}

func (h *Handler) handleGetInstitution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	institution, err := h.service.GetInstitutionData(ctx, caller)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to read institution", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, institution)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ApproveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	clientID := id.ClientID(chi.URLParam(r, "clientID"))
	if err := h.service.Approve(ctx, caller, clientID, id.InstitutionID(req.InstitutionID)); err != nil {
		h.writeServiceError(ctx, w, "failed to approve institution", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	clientID := id.ClientID(chi.URLParam(r, "clientID"))
	institutionID := id.InstitutionID(chi.URLParam(r, "institutionID"))
	if err := h.service.Remove(ctx, caller, clientID, institutionID); err != nil {
		h.writeServiceError(ctx, w, "failed to remove approval", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListInstitutions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requirePrincipal(w, r); !ok {
		return
	}

	institutions, err := h.service.ListInstitutionsForClient(ctx, id.ClientID(chi.URLParam(r, "clientID")))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list institutions", err)
		return
	}
	if institutions == nil {
		institutions = []id.InstitutionID{}
	}
	httputil.WriteJSON(w, http.StatusOK, InstitutionsResponse{InstitutionIDs: institutions})
}

func (h *Handler) handleListClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requirePrincipal(w, r); !ok {
		return
	}

	clients, err := h.service.ListClientsForInstitution(ctx, id.InstitutionID(chi.URLParam(r, "institutionID")))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list clients", err)
		return
	}
	if clients == nil {
		clients = []id.ClientID{}
	}
	httputil.WriteJSON(w, http.StatusOK, ClientsResponse{ClientIDs: clients})
}

func (h *Handler) handleInvoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[InvokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.invoker.Invoke(ctx, caller, req.Function, req.Args)
	if err != nil {
		h.writeServiceError(ctx, w, "invoke failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, InvokeResponse{Result: result})
}

func (h *Handler) handleQueryAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAdmin(w, r) {
		return
	}

	docType, err := id.ParseDocType(r.URL.Query().Get("type"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.service.QueryAll(ctx, docType)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to query records", err)
		return
	}
	if records == nil {
		records = []query.Record{}
	}
	httputil.WriteJSON(w, http.StatusOK, RecordsResponse{Records: records})
}

func (h *Handler) handleRegisterInstitution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if !h.requireAdmin(w, r) {
		return
	}

	req, ok := httputil.DecodeAndPrepare[RegisterInstitutionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	institutionID, err := h.service.RegisterInstitution(ctx, req.Attributes)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to register institution", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, RegisterInstitutionResponse{InstitutionID: institutionID})
}

func (h *Handler) requirePrincipal(w http.ResponseWriter, r *http.Request) (id.InstitutionID, bool) {
	caller := requestcontext.Principal(r.Context())
	if caller.IsNil() {
		// RequireAuth should have rejected the request already.
		h.logger.ErrorContext(r.Context(), "principal missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "authentication required"))
		return "", false
	}
	return caller, true
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !requestcontext.IsAdmin(r.Context()) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "admin token required"))
		return false
	}
	return true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
