package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
)

type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	Role         models.Role
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with the email exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// If user not found must return apperrors.ErrUserNotFound
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// RefreshTokenRepo is the ledger storage: one record per user
type RefreshTokenRepo interface {
	// Insert or overwrite user's record; the record becomes valid again
	Upsert(ctx context.Context, userID uuid.UUID, token string, createdAt time.Time) (models.RefreshToken, error)

	// Overwrite user's record with token only if old is still the valid one, in a single statement
	// Otherwise has to return apperrors.ErrRevokedCredential
	Replace(ctx context.Context, userID uuid.UUID, old string, token string, createdAt time.Time) (models.RefreshToken, error)

	// Mark token invalid. Unknown tokens are not an error
	// Returns whether some record was changed
	Invalidate(ctx context.Context, token string) (bool, error)

	// Mark user's record invalid, no error if the user has no record
	InvalidateByUser(ctx context.Context, userID uuid.UUID) error

	// Return the record only if it is valid
	// Otherwise has to return apperrors.ErrRevokedCredential
	GetValid(ctx context.Context, token string) (models.RefreshToken, error)

	// Delete invalid records created before the moment
	// If userID is uuid.Nil records of all users are affected
	DeleteInvalid(ctx context.Context, userID uuid.UUID, createdBefore time.Time) (int64, error)
}

type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo

	// Run fn in transaction. Storage passed to fn is bound to the transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}
