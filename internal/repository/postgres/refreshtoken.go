package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/apperrors"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const upsertToken = `-- name: UpsertRefreshToken
INSERT INTO refresh_tokens (user_id, token, is_valid, created_at)
VALUES ($1, $2, TRUE, $3)
ON CONFLICT (user_id) DO UPDATE
SET token = EXCLUDED.token,
    is_valid = TRUE,
    created_at = EXCLUDED.created_at
RETURNING id, user_id, token, is_valid, created_at
`

// Upsert keeps the single record per user: the row is overwritten in place
func (r *RefreshTokenRepo) Upsert(ctx context.Context, userID uuid.UUID, token string, createdAt time.Time) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, upsertToken, userID, token, createdAt)
	t, err := pgx.CollectOneRow(rows, rowToRefreshToken)
	if err != nil {
		return t, dbError(err)
	}
	return t, nil
}

const replaceToken = `-- name: ReplaceRefreshToken
UPDATE refresh_tokens
SET token = $3,
    is_valid = TRUE,
    created_at = $4
WHERE user_id = $1 AND token = $2 AND is_valid
RETURNING id, user_id, token, is_valid, created_at
`

// Replace swaps the valid token for a new one only if old is still the valid token of the user
// Returns apperrors.ErrRevokedCredential if it is not
func (r *RefreshTokenRepo) Replace(ctx context.Context, userID uuid.UUID, old string, token string, createdAt time.Time) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, replaceToken, userID, old, token, createdAt)
	t, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, pgx.ErrNoRows):
		return t, fmt.Errorf("repo error: %w", apperrors.ErrRevokedCredential)
	default:
		return t, dbError(err)
	}
}

const invalidateToken = `-- name: InvalidateRefreshToken
UPDATE refresh_tokens
SET is_valid = FALSE
WHERE token = $1 AND is_valid
`

func (r *RefreshTokenRepo) Invalidate(ctx context.Context, token string) (bool, error) {
	tag, err := r.DB.Exec(ctx, invalidateToken, token)
	if err != nil {
		return false, dbError(err)
	}
	return tag.RowsAffected() > 0, nil
}

const invalidateUserToken = `-- name: InvalidateUserRefreshToken
UPDATE refresh_tokens
SET is_valid = FALSE
WHERE user_id = $1
`

func (r *RefreshTokenRepo) InvalidateByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, invalidateUserToken, userID)
	if err != nil {
		return dbError(err)
	}
	return nil
}

const getValidToken = `-- name: GetValidRefreshToken
SELECT id, user_id, token, is_valid, created_at
FROM refresh_tokens
WHERE token = $1 AND is_valid
`

func (r *RefreshTokenRepo) GetValid(ctx context.Context, token string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getValidToken, token)
	t, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, pgx.ErrNoRows):
		return t, fmt.Errorf("repo error: %w", apperrors.ErrRevokedCredential)
	default:
		return t, dbError(err)
	}
}

const deleteInvalid = `-- name: DeleteInvalidRefreshTokens
DELETE FROM refresh_tokens
WHERE NOT is_valid
  AND created_at < $1
  AND ($2::uuid IS NULL OR user_id = $2)
`

func (r *RefreshTokenRepo) DeleteInvalid(ctx context.Context, userID uuid.UUID, createdBefore time.Time) (int64, error) {
	var user *uuid.UUID
	if userID != uuid.Nil {
		user = &userID
	}

	tag, err := r.DB.Exec(ctx, deleteInvalid, createdBefore, user)
	if err != nil {
		return 0, dbError(err)
	}
	return tag.RowsAffected(), nil
}

func rowToRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.IsValid, &t.CreatedAt)
	return t, err
}
