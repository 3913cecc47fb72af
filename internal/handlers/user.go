package handlers

import (
	"fmt"
	"net/http"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/handlers/render"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/handlers/userctx"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
)

func handleRoot() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, map[string]string{"message": "Auth Service is running"})
	})
}

func handleHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, map[string]string{"status": "ok"})
	})
}

func handleMe() http.Handler {
	type userInfo struct {
		Email string      `json:"email"`
		Role  models.Role `json:"role"`
	}
	type response struct {
		Message string   `json:"message"`
		User    userInfo `json:"user"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := userctx.FromContext(r.Context())
		render.JSON(w, response{
			Message: "Registered user",
			User:    userInfo{Email: claims.Subject, Role: claims.Role},
		})
	})
}

func handleAdminOnly() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := userctx.FromContext(r.Context())
		render.JSON(w, map[string]string{"message": fmt.Sprintf("Welcome, admin %s", claims.Subject)})
	})
}
