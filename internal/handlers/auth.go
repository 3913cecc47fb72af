package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/apperrors"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/handlers/middleware"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/handlers/render"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/service/user"
)

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	AccessExpiresIn  int64  `json:"access_token_expiry_time_in_seconds"`
	RefreshExpiresIn int64  `json:"refresh_token_expiry_time_in_seconds"`
}

func newTokenResponse(pair models.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:      pair.Access.Value,
		RefreshToken:     pair.Refresh.Value,
		TokenType:        "bearer",
		AccessExpiresIn:  int64(pair.Access.TTL.Seconds()),
		RefreshExpiresIn: int64(pair.Refresh.TTL.Seconds()),
	}
}

// renderAuthError logs unexpected failures and renders the public message
// Message is used for client side errors only
func renderAuthError(w http.ResponseWriter, l logger.Logger, err error, message string) {
	code := apperrors.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		l.Error("Auth request failed", "error", err)
	}
	if code == http.StatusServiceUnavailable {
		message = "Service temporarily unavailable"
	}
	render.Error(w, err, message)
}

func handleRegister(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username" validate:"required,min=3,max=20"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
		Role     string `json:"role" validate:"role"`
	}
	type response struct {
		Message string `json:"message"`
		tokenResponse
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Register(r.Context(), user.CreateUserParams{
			Username: data.Username,
			Email:    data.Email,
			Password: data.Password,
			Role:     models.Role(data.Role),
		})
		if err != nil {
			renderAuthError(w, l, err, "User already exists")
			return
		}

		render.JSON(w, response{Message: "User registered successfully", tokenResponse: newTokenResponse(pair)})
	})
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Login(r.Context(), data.Email, data.Password)
		if err != nil {
			renderAuthError(w, l, err, "Invalid credentials")
			return
		}

		render.JSON(w, newTokenResponse(pair))
	})
}

func handleRefresh(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh := middleware.BearerToken(r)
		if refresh == "" {
			render.Unauthorized(w, "Missing or invalid Authorization header")
			return
		}

		pair, err := authService.Refresh(r.Context(), refresh)
		if err != nil {
			renderAuthError(w, l, err, "Invalid or expired refresh token")
			return
		}

		render.JSON(w, newTokenResponse(pair))
	})
}

func handleLogout(authService authService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh := middleware.BearerToken(r)
		if refresh == "" {
			render.Unauthorized(w, "Missing or invalid Authorization header")
			return
		}

		claims, err := authService.Logout(r.Context(), refresh)
		if err != nil {
			renderAuthError(w, l, err, "Invalid or expired refresh token")
			return
		}

		render.JSON(w, response{Message: fmt.Sprintf("%s logged out successfully", claims.Subject)})
	})
}

func handleForgotPassword(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Email string `json:"email" validate:"required,email"`
	}
	type response struct {
		ResetPasswordToken string `json:"reset_password_token"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		token, err := authService.ForgotPassword(r.Context(), data.Email)
		if err != nil {
			renderAuthError(w, l, err, "User not found")
			return
		}

		render.JSON(w, response{ResetPasswordToken: token.Value})
	})
}

func handleResetPassword(authService authService, l logger.Logger) http.Handler {
	type request struct {
		ResetPasswordToken string `json:"reset_password_token" validate:"required"`
		NewPassword        string `json:"new_password" validate:"required,min=6"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = authService.ResetPassword(r.Context(), data.ResetPasswordToken, data.NewPassword)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrUserNotFound):
			// Token was fine but the user is gone
			render.Unauthorized(w, "Invalid or expired reset token")
			return
		default:
			renderAuthError(w, l, err, "Invalid or expired reset token")
			return
		}

		render.JSON(w, response{Message: "Password reset successfully"})
	})
}
