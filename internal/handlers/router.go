package handlers

import (
	"context"
	"net/http"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/handlers/middleware"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/service/user"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(authService authService, logger logger.Logger) http.Handler {
	withAuth := middleware.AuthMiddleware(authService)
	adminOnly := func(h http.Handler) http.Handler {
		return chain(h, withAuth, middleware.RequireRole(models.RoleAdmin))
	}

	mux := http.NewServeMux()

	mux.Handle("GET /{$}", handleRoot())
	mux.Handle("GET /health", handleHealth())

	mux.Handle("POST /register", handleRegister(authService, logger))
	mux.Handle("POST /login", handleLogin(authService, logger))
	mux.Handle("POST /refresh", handleRefresh(authService, logger))
	mux.Handle("POST /logout", handleLogout(authService, logger))
	mux.Handle("POST /forgot-password", handleForgotPassword(authService, logger))
	mux.Handle("POST /reset-password", handleResetPassword(authService, logger))

	mux.Handle("GET /me", withAuth(handleMe()))
	mux.Handle("GET /admin-only", adminOnly(handleAdminOnly()))

	handler := chain(mux,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Has to return apperrors.ErrUserAlreadyExists if email is taken
	Register(ctx context.Context, params user.CreateUserParams) (models.TokenPair, error)

	// Has to return apperrors.ErrInvalidCredentials on wrong email or password
	Login(ctx context.Context, email string, password string) (models.TokenPair, error)

	// Rotate refresh token. Credential rejections are apperrors credential errors
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	Logout(ctx context.Context, refresh string) (models.Claims, error)

	// Has to return apperrors.ErrUserNotFound for unknown email
	ForgotPassword(ctx context.Context, email string) (models.IssuedToken, error)
	ResetPassword(ctx context.Context, resetToken string, newPassword string) error

	Authenticate(ctx context.Context, access string) (models.Claims, error)
}
