package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/apperrors"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/repository"
)

const defaultTimeout = 3 * time.Second

type Config struct {
	// Deadline for every store call
	// If not set than default is used
	Timeout time.Duration

	// Clock, time.Now if not set
	Now func() time.Time
}

// Ledger keeps the single currently valid refresh credential per user
type Ledger struct {
	storage repository.Storage
	logger  logger.Logger
	timeout time.Duration
	now     func() time.Time
}

func New(cfg Config, storage repository.Storage, l logger.Logger) *Ledger {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Ledger{
		storage: storage,
		logger:  l,
		timeout: cfg.Timeout,
		now:     cfg.Now,
	}
}

// Save token as the only valid one for the user
func (l *Ledger) Save(ctx context.Context, token string, userID uuid.UUID) (models.RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var saved models.RefreshToken
	err := l.storage.InTx(ctx, func(s repository.Storage) error {
		var err error
		saved, err = s.Refresh().Upsert(ctx, userID, token, l.now())
		return err
	})
	if err != nil {
		return saved, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	l.logger.Debug("Refresh token saved", "user_id", userID)
	return saved, nil
}

// Invalidate is idempotent: unknown or already invalid tokens are not an error
func (l *Ledger) Invalidate(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	changed, err := l.storage.Refresh().Invalidate(ctx, token)
	if err != nil {
		return fmt.Errorf("error while invalidating refresh token. Err: %w", err)
	}

	if changed {
		l.logger.Info("Refresh token invalidated")
	}
	return nil
}

// Replace supersedes old with token in one conditional write
// If old is no longer the valid token of the user apperrors.ErrRevokedCredential is returned and nothing changes
func (l *Ledger) Replace(ctx context.Context, old string, token string, userID uuid.UUID) (models.RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	saved, err := l.storage.Refresh().Replace(ctx, userID, old, token, l.now())
	if err != nil {
		return saved, fmt.Errorf("error while replacing refresh token. Err: %w", err)
	}

	l.logger.Debug("Refresh token rotated", "user_id", userID)
	return saved, nil
}

// Revoke invalidates token only if it is currently valid
// Unlike Invalidate it reports apperrors.ErrRevokedCredential when there was nothing to revoke
func (l *Ledger) Revoke(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	changed, err := l.storage.Refresh().Invalidate(ctx, token)
	if err != nil {
		return fmt.Errorf("error while revoking refresh token. Err: %w", err)
	}
	if !changed {
		return fmt.Errorf("%w: refresh token is not valid", apperrors.ErrRevokedCredential)
	}

	l.logger.Info("Refresh token revoked")
	return nil
}

// AssertValid returns apperrors.ErrRevokedCredential if there is no valid record for the token
// Storage faults are returned as is
func (l *Ledger) AssertValid(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	_, err := l.storage.Refresh().GetValid(ctx, token)
	if err != nil {
		return fmt.Errorf("refresh token check failed. Err: %w", err)
	}
	return nil
}

// DeleteExpired removes user's invalid records older than olderThanDays
// Housekeeping only, auth decisions never depend on it
func (l *Ledger) DeleteExpired(ctx context.Context, userID uuid.UUID, olderThanDays int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	before := l.now().AddDate(0, 0, -olderThanDays)
	deleted, err := l.storage.Refresh().DeleteInvalid(ctx, userID, before)
	if err != nil {
		return 0, fmt.Errorf("error while deleting expired refresh tokens. Err: %w", err)
	}

	if deleted > 0 {
		l.logger.Info("Expired refresh tokens deleted", "user_id", userID, "count", deleted)
	}
	return deleted, nil
}

// DeleteAllExpired is DeleteExpired for every user
func (l *Ledger) DeleteAllExpired(ctx context.Context, olderThanDays int) (int64, error) {
	return l.DeleteExpired(ctx, uuid.Nil, olderThanDays)
}
