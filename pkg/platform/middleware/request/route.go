package request

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// chiRoutePattern returns the matched route pattern so metrics do not carry
// raw ids.
func chiRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
