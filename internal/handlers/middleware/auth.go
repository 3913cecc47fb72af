package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/apperrors"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/handlers/render"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/handlers/userctx"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
)

const bearerPrefix = "Bearer "

type authService interface {
	Authenticate(ctx context.Context, access string) (models.Claims, error)
}

// BearerToken returns token from Authorization header or empty string
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// AuthMiddleware lets through requests with valid access token only
// Verified claims are put to request context
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				render.Unauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := as.Authenticate(r.Context(), token)
			switch {
			case err == nil:
			case apperrors.IsUnauthorized(err):
				render.Unauthorized(w, "Invalid or expired token")
				return
			default:
				render.Error(w, err, "Authentication unavailable")
				return
			}

			ctx := userctx.New(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole must be used after AuthMiddleware
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := userctx.FromContext(r.Context())
			if !ok {
				render.Unauthorized(w, "Unauthorized")
				return
			}
			if claims.Role != role {
				render.ServiceError(w, "Access denied", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
