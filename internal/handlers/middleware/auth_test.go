package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/apperrors"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/handlers/userctx"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
)

// Allow to use a function as auth service
type authFunc func(ctx context.Context, access string) (models.Claims, error)

func (f authFunc) Authenticate(ctx context.Context, access string) (models.Claims, error) {
	return f(ctx, access)
}

func doGet(t *testing.T, url string, header string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
	require.NoError(t, err)
	if header != "" {
		req.Header.Set("Authorization", header)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "should make request to test server")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "should read response body")
	defer resp.Body.Close() // nolint:errcheck

	return resp, string(body)
}

func TestAuthMiddleware(t *testing.T) {
	// Simple handler that writes subject from context
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Must always be true cause middleware has to set claims or write error to response
		claims, ok := userctx.FromContext(r.Context())
		require.True(t, ok)

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(claims.Subject))
		require.NoError(t, err, "should write subject to response")
	})

	t.Run("auth ok", func(t *testing.T) {
		middleware := AuthMiddleware(authFunc(func(_ context.Context, access string) (models.Claims, error) {
			require.Equal(t, "good-token", access)
			return models.Claims{Subject: "alice@example.com", Role: models.RoleUser}, nil
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, body := doGet(t, srv.URL+"/test", "Bearer good-token")

		require.Equalf(t, http.StatusOK, resp.StatusCode, "should return status OK. Resp: %s", body)
		require.Equal(t, "alice@example.com", body)
	})

	t.Run("missing header not verified", func(t *testing.T) {
		called := false
		middleware := AuthMiddleware(authFunc(func(context.Context, string) (models.Claims, error) {
			called = true
			return models.Claims{}, nil
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		for _, header := range []string{"", "Basic abc", "Bearer ", "bearer good-token"} {
			resp, body := doGet(t, srv.URL+"/test", header)

			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "header %q. Resp: %s", header, body)
			require.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
		}
		require.False(t, called, "verification must not happen without bearer token")
	})

	t.Run("rejections", func(t *testing.T) {
		tests := []struct {
			err     error
			code    int
			message string
		}{
			{err: apperrors.ErrExpiredCredential, code: http.StatusUnauthorized, message: "Invalid or expired token"},
			{err: apperrors.ErrWrongCredentialType, code: http.StatusUnauthorized, message: "Invalid or expired token"},
			{err: apperrors.ErrUnknownPrincipal, code: http.StatusUnauthorized, message: "Invalid or expired token"},
			{err: fmt.Errorf("lookup: %w", apperrors.ErrUpstreamUnavailable), code: http.StatusServiceUnavailable, message: "Authentication unavailable"},
			{err: errors.New("boom"), code: http.StatusInternalServerError, message: "Internal server error"},
		}

		for _, tt := range tests {
			t.Run(tt.err.Error(), func(t *testing.T) {
				middleware := AuthMiddleware(authFunc(func(context.Context, string) (models.Claims, error) {
					return models.Claims{}, tt.err
				}))

				srv := httptest.NewServer(middleware(handler))
				defer srv.Close()

				resp, body := doGet(t, srv.URL+"/test", "Bearer some-token")

				require.Equalf(t, tt.code, resp.StatusCode, "Resp: %s", body)
				require.JSONEq(t, fmt.Sprintf(`{"error": "service_error", "message": %q}`, tt.message), body)
			})
		}
	})
}

func TestRequireRole(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	withClaims := func(claims models.Claims) func(http.Handler) http.Handler {
		return AuthMiddleware(authFunc(func(context.Context, string) (models.Claims, error) {
			return claims, nil
		}))
	}

	t.Run("admin ok", func(t *testing.T) {
		srv := httptest.NewServer(withClaims(models.Claims{Subject: "a", Role: models.RoleAdmin})(RequireRole(models.RoleAdmin)(handler)))
		defer srv.Close()

		resp, _ := doGet(t, srv.URL, "Bearer token")

		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("user forbidden", func(t *testing.T) {
		srv := httptest.NewServer(withClaims(models.Claims{Subject: "a", Role: models.RoleUser})(RequireRole(models.RoleAdmin)(handler)))
		defer srv.Close()

		resp, body := doGet(t, srv.URL, "Bearer token")

		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.JSONEq(t, `{"error": "service_error", "message": "Access denied"}`, body)
	})

	t.Run("no claims", func(t *testing.T) {
		srv := httptest.NewServer(RequireRole(models.RoleAdmin)(handler))
		defer srv.Close()

		resp, _ := doGet(t, srv.URL, "")

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
