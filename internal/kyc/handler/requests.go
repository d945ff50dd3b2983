package handler

import (
	"strings"

	"ekyc/internal/query"
	id "ekyc/pkg/domain"
	dErrors "ekyc/pkg/domain-errors"
)

// RegisterClientRequest is the body of POST /clients.
type RegisterClientRequest struct {
	Attributes map[string]any `json:"attributes"`
}

func (r *RegisterClientRequest) Validate() error {
	if len(r.Attributes) == 0 {
		return dErrors.New(dErrors.CodeValidation, "attributes are required")
	}
	return nil
}

// RegisterInstitutionRequest is the body of POST /admin/institutions.
type RegisterInstitutionRequest struct {
	Attributes map[string]any `json:"attributes"`
}

func (r *RegisterInstitutionRequest) Validate() error {
	if r.Attributes == nil {
		r.Attributes = map[string]any{}
	}
	return nil
}

// ApproveRequest is the body of POST /clients/{clientID}/approvals.
type ApproveRequest struct {
	InstitutionID string `json:"institution_id"`
}

func (r *ApproveRequest) Validate() error {
	r.InstitutionID = strings.TrimSpace(r.InstitutionID)
	if r.InstitutionID == "" {
		return dErrors.New(dErrors.CodeValidation, "institution_id is required")
	}
	return nil
}

// InvokeRequest is the body of POST /invoke.
type InvokeRequest struct {
	Function string   `json:"function"`
	Args     []string `json:"args"`
}

func (r *InvokeRequest) Validate() error {
	r.Function = strings.TrimSpace(r.Function)
	if r.Function == "" {
		return dErrors.New(dErrors.CodeValidation, "function is required")
	}
	if r.Args == nil {
		r.Args = []string{}
	}
	return nil
}

type RegisterClientResponse struct {
	ClientID id.ClientID `json:"client_id"`
}

type RegisterInstitutionResponse struct {
	InstitutionID id.InstitutionID `json:"institution_id"`
}

type InstitutionsResponse struct {
	InstitutionIDs []id.InstitutionID `json:"institution_ids"`
}

type ClientsResponse struct {
	ClientIDs []id.ClientID `json:"client_ids"`
}

type InvokeResponse struct {
	Result any `json:"result"`
}

type RecordsResponse struct {
	Records []query.Record `json:"records"`
}
