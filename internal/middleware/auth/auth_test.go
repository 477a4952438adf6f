package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detetive/internal/core"
)

const secret = "0123456789abcdef0123456789abcdef"

func newTokens(t *testing.T, now time.Time) *Tokens {
	t.Helper()
	tk, err := NewTokens(secret, time.Hour)
	require.NoError(t, err)
	tk.now = func() time.Time { return now }
	return tk
}

func TestNewTokensRejectsShortSecret(t *testing.T) {
	_, err := NewTokens("short", time.Hour)
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	tk := newTokens(t, now)

	token, exp, err := tk.Issue("user-1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	id, err := tk.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	tk.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = tk.Verify(token)
	assert.True(t, errors.Is(err, core.ErrUnauthorized), "expired tokens are rejected")
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	now := time.Now()
	tk := newTokens(t, now)

	other, err := NewTokens("another-secret-of-enough-length", time.Hour)
	require.NoError(t, err)
	forged, _, err := other.Issue("user-1")
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "user-1", Issuer: issuer, ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"bad signature": forged,
		"alg none":      noneAlg,
		"garbage":       "not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tk.Verify(token)
			assert.ErrorIs(t, err, core.ErrUnauthorized)
		})
	}
}

func TestMiddleware(t *testing.T) {
	tk := newTokens(t, time.Now())
	token, _, err := tk.Issue("user-1")
	require.NoError(t, err)

	h := tk.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r.Context())
		assert.True(t, ok)
		_, _ = w.Write([]byte(id))
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"tampered", "Bearer " + token + "x", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			} else {
				assert.Equal(t, "user-1", rec.Body.String())
			}
		})
	}
}
