package userctx

import (
	"context"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// Create a new context with verified claims of the caller
func New(ctx context.Context, c models.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// Extract the caller claims from the context
func FromContext(ctx context.Context) (models.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(models.Claims)
	return c, ok
}
