package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"nextfare/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVerifier implements domain.IdentityVerifier for tests.
type fakeVerifier struct {
	identity domain.Identity
	err      error
}

func (f *fakeVerifier) Verify(token string) (domain.Identity, error) {
	if f.err != nil {
		return domain.Identity{}, f.err
	}
	return f.identity, nil
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		verifier   *fakeVerifier
		wantStatus int
		wantNext   bool
	}{
		{
			name:       "missing header",
			authHeader: "",
			verifier:   &fakeVerifier{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			authHeader: "Basic abc123",
			verifier:   &fakeVerifier{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "empty token",
			authHeader: "Bearer   ",
			verifier:   &fakeVerifier{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid token",
			authHeader: "Bearer bad-token",
			verifier:   &fakeVerifier{err: errors.New("expired")},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "valid token",
			authHeader: "Bearer good-token",
			verifier:   &fakeVerifier{identity: domain.Identity{SubjectID: "uid-1", Email: "a@b.com"}},
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			var gotIdentity domain.Identity
			next := func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				gotIdentity, _ = IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}

			handler := RequireAuth(tt.verifier)(next)
			req := httptest.NewRequest(http.MethodGet, "/users/profile", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantNext, nextCalled)
			if tt.wantNext {
				require.Equal(t, "uid-1", gotIdentity.SubjectID)
				require.Equal(t, "a@b.com", gotIdentity.Email)
			}
		})
	}
}
