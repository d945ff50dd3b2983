// Package requesttime fixes the operation time of each request before any
// ledger transaction starts. Registry records and outbox entries written by the
// request all carry this one instant.
package requesttime

import (
	"net/http"
	"time"

	"ekyc/pkg/requestcontext"
)

// Stamp returns middleware that records now() as the request's operation time.
func Stamp(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Middleware stamps requests with the wall clock in UTC, so staged payloads do
// not depend on the host's zone.
var Middleware = Stamp(func() time.Time { return time.Now().UTC() })
