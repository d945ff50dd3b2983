package testutil

import (
	"net/http"

	id "ekyc/pkg/domain"
	"ekyc/pkg/requestcontext"
)

// WithPrincipal adds a caller identity to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// Invalid ids are silently ignored so tests can exercise the unauthenticated path.
func WithPrincipal(req *http.Request, principal string) *http.Request {
	if parsed, err := id.ParseInstitutionID(principal); err == nil {
		return req.WithContext(requestcontext.WithPrincipal(req.Context(), parsed))
	}
	return req
}

// WithAdmin marks the request as having passed the admin token check.
func WithAdmin(req *http.Request) *http.Request {
	return req.WithContext(requestcontext.WithAdmin(req.Context()))
}
