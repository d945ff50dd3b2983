package revocation

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	jwttoken "ekyc/internal/jwt_token"
	dErrors "ekyc/pkg/domain-errors"
	"ekyc/pkg/platform/httputil"
	"ekyc/pkg/requestcontext"
)

// Revoker adds a JTI to the revocation list.
type Revoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// TokenParser validates a token and returns its claims.
type TokenParser interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// RevokeRequest is the body of POST /admin/tokens/revoke.
type RevokeRequest struct {
	Token string `json:"token"`
}

func (r *RevokeRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)
	if r.Token == "" {
		return dErrors.New(dErrors.CodeValidation, "token is required")
	}
	return nil
}

// Handler serves the operator endpoint that revokes an access token.
type Handler struct {
	revoker Revoker
	parser  TokenParser
	logger  *slog.Logger
	now     Clock
}

func NewHandler(revoker Revoker, parser TokenParser, logger *slog.Logger) *Handler {
	return &Handler{revoker: revoker, parser: parser, logger: logger, now: time.Now}
}

// Register adds the route. The router is expected to carry the admin token
// middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/tokens/revoke", h.handleRevoke)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if !requestcontext.IsAdmin(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "admin token required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[RevokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	claims, err := h.parser.ValidateToken(req.Token)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "token is not valid"))
		return
	}
	ttl := time.Hour
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(h.now())
	}
	if err := h.revoker.RevokeToken(ctx, claims.ID, ttl); err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke token",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "access token revoked",
		"request_id", requestID,
		"jti", claims.ID,
		"principal", claims.Subject,
	)
	w.WriteHeader(http.StatusNoContent)
}
