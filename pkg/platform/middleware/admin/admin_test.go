package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ekyc/pkg/requestcontext"
)

func TestRequireAdminToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, requestcontext.IsAdmin(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name  string
		hash  string
		token string
		want  int
	}{
		{"matching token", string(hash), "s3cret", http.StatusOK},
		{"wrong token", string(hash), "guess", http.StatusUnauthorized},
		{"missing token", string(hash), "", http.StatusUnauthorized},
		{"admin surface disabled", "", "s3cret", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/records", nil)
			if tc.token != "" {
				req.Header.Set(HeaderAdminToken, tc.token)
			}
			w := httptest.NewRecorder()
			RequireAdminToken(tc.hash, logger)(next).ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
