package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/handlers/middleware"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/handlers/render"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
)

// Headers the gateway sets for backends after verification
const (
	HeaderSubject = "X-Auth-Subject"
	HeaderRole    = "X-Auth-Role"
)

// Auth outcomes as reported to observer
const (
	AuthBypass       = "bypass"
	AuthAllow        = "allow"
	AuthUnauthorized = "unauthorized"
	AuthUnavailable  = "unavailable"
)

type tokenVerifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

type AuthObserver interface {
	ObserveAuth(ctx context.Context, outcome string)
}

// AuthInterceptor lets public routes through, everything else needs a token the identity service accepts
// Rejected tokens are 401; identity service failures are 503 and never count as rejections
func AuthInterceptor(bypass *Bypass, v tokenVerifier, obs AuthObserver, l logger.Logger) func(http.Handler) http.Handler {
	observe := func(ctx context.Context, outcome string) {
		if obs != nil {
			obs.ObserveAuth(ctx, outcome)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Identity headers are trusted by backends, so clients must not set them
			r.Header.Del(HeaderSubject)
			r.Header.Del(HeaderRole)

			if bypass.IsPublic(r) {
				observe(r.Context(), AuthBypass)
				next.ServeHTTP(w, r)
				return
			}

			token := middleware.BearerToken(r)
			if token == "" {
				observe(r.Context(), AuthUnauthorized)
				render.Unauthorized(w, "Missing or invalid Authorization header")
				return
			}

			principal, err := v.Verify(r.Context(), token)
			if err != nil {
				var verr *VerifyError
				if errors.As(err, &verr) && verr.Code == CodeUnauthorized {
					l.Info("Request rejected", "path", r.URL.Path, "status", verr.StatusCode)
					observe(r.Context(), AuthUnauthorized)
					render.Unauthorized(w, "Invalid or expired token")
					return
				}

				l.Error("Token verification failed", "path", r.URL.Path, "error", err)
				observe(r.Context(), AuthUnavailable)
				render.ServiceError(w, "Authentication service unavailable", http.StatusServiceUnavailable)
				return
			}

			observe(r.Context(), AuthAllow)
			r.Header.Set(HeaderSubject, principal.Email)
			r.Header.Set(HeaderRole, string(principal.Role))
			next.ServeHTTP(w, r)
		})
	}
}
