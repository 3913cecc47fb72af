package issuer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/apperrors"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultResetTTL   = 15 * time.Minute

	defaultLookupTimeout = 3 * time.Second
)

type encoder interface {
	Encode(claims models.Claims) (string, error)
}

type store interface {
	Save(ctx context.Context, token string, userID uuid.UUID) (models.RefreshToken, error)

	// Has to return apperrors.ErrRevokedCredential if old is not the valid token anymore
	Replace(ctx context.Context, old string, token string, userID uuid.UUID) (models.RefreshToken, error)
}

type directory interface {
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration

	// Deadline for principal lookup on rotation
	LookupTimeout time.Duration

	// Clock, time.Now if not set
	Now func() time.Time
}

// Issuer mints token pairs and records the refresh one in the ledger
type Issuer struct {
	codec     encoder
	ledger    store
	directory directory
	logger    logger.Logger

	accessTTL     time.Duration
	refreshTTL    time.Duration
	resetTTL      time.Duration
	lookupTimeout time.Duration
	now           func() time.Time
}

func New(cfg Config, c encoder, l store, d directory, log logger.Logger) *Issuer {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	if cfg.ResetTTL == 0 {
		cfg.ResetTTL = defaultResetTTL
	}
	if cfg.LookupTimeout == 0 {
		cfg.LookupTimeout = defaultLookupTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Issuer{
		codec:         c,
		ledger:        l,
		directory:     d,
		logger:        log,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		resetTTL:      cfg.ResetTTL,
		lookupTimeout: cfg.LookupTimeout,
		now:           cfg.Now,
	}
}

// Issue new pair for the user
// Either both tokens are returned and the refresh one is saved, or nothing is
func (i *Issuer) Issue(ctx context.Context, user models.User) (models.TokenPair, error) {
	pair, err := i.mintPair(user)
	if err != nil {
		return models.TokenPair{}, err
	}

	_, err = i.ledger.Save(ctx, pair.Refresh.Value, user.ID)
	if err != nil {
		i.logger.Error("Could not save refresh token", "user_id", user.ID, "error", err)
		return models.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}

	i.logger.Info("Token pair issued", "subject", user.Email, "role", string(user.Role))
	return pair, nil
}

// Rotate exchanges the presented refresh token, already verified into claims, for a new pair
// The presented token is redeemed at most once: a concurrent rotation or logout that wins makes this one fail with apperrors.ErrRevokedCredential
// The user is looked up again so the new access token carries the current role
func (i *Issuer) Rotate(ctx context.Context, presented string, claims models.Claims) (models.TokenPair, error) {
	user, err := i.lookup(ctx, claims.Subject)
	if err != nil {
		return models.TokenPair{}, err
	}

	if user.Role != claims.Role {
		i.logger.Info("Role changed since refresh token was issued", "subject", user.Email, "was", string(claims.Role), "now", string(user.Role))
	}

	pair, err := i.mintPair(user)
	if err != nil {
		return models.TokenPair{}, err
	}

	_, err = i.ledger.Replace(ctx, presented, pair.Refresh.Value, user.ID)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrRevokedCredential):
		i.logger.Warn("Refresh token was redeemed concurrently", "subject", user.Email)
		return models.TokenPair{}, err
	default:
		i.logger.Error("Could not rotate refresh token", "user_id", user.ID, "error", err)
		return models.TokenPair{}, fmt.Errorf("rotate tokens: %w", err)
	}

	i.logger.Info("Token pair rotated", "subject", user.Email, "role", string(user.Role))
	return pair, nil
}

func (i *Issuer) lookup(ctx context.Context, email string) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, i.lookupTimeout)
	defer cancel()

	user, err := i.directory.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, apperrors.ErrUserNotFound):
		return models.User{}, fmt.Errorf("%w: user %s not found", apperrors.ErrUnknownPrincipal, email)
	case errors.Is(err, context.DeadlineExceeded):
		return models.User{}, fmt.Errorf("principal lookup: %w: %w", apperrors.ErrUpstreamUnavailable, err)
	default:
		return models.User{}, fmt.Errorf("rotate tokens: %w", err)
	}
}

func (i *Issuer) mintPair(user models.User) (models.TokenPair, error) {
	now := i.now()

	access, err := i.mint(user, models.TokenTypeAccess, now, i.accessTTL)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, err := i.mint(user, models.TokenTypeRefresh, now, i.refreshTTL)
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

// IssueReset mints password reset token. It is not stored anywhere
func (i *Issuer) IssueReset(user models.User) (models.IssuedToken, error) {
	return i.mint(user, models.TokenTypePasswordReset, i.now(), i.resetTTL)
}

func (i *Issuer) mint(user models.User, typ models.TokenType, now time.Time, ttl time.Duration) (models.IssuedToken, error) {
	expiresAt := now.Add(ttl)

	value, err := i.codec.Encode(models.Claims{
		Subject:   user.Email,
		Role:      user.Role,
		Type:      typ,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("could not encode %s token: %w", typ, err)
	}

	return models.IssuedToken{Value: value, ExpiresAt: expiresAt, TTL: ttl}, nil
}
