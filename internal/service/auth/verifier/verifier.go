package verifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/apperrors"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
)

const defaultLookupTimeout = 3 * time.Second

type codec interface {
	Decode(token string) (models.Claims, error)
	PeekType(token string) models.TokenType
}

type ledger interface {
	Invalidate(ctx context.Context, token string) error
	AssertValid(ctx context.Context, token string) error
}

type directory interface {
	// Has to return apperrors.ErrUserNotFound if there is no such user
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

type Config struct {
	// Deadline for principal lookup
	LookupTimeout time.Duration

	// Clock, time.Now if not set
	Now func() time.Time
}

type Verifier struct {
	codec     codec
	ledger    ledger
	directory directory
	logger    logger.Logger

	lookupTimeout time.Duration
	now           func() time.Time
}

func New(cfg Config, c codec, l ledger, d directory, log logger.Logger) *Verifier {
	if cfg.LookupTimeout == 0 {
		cfg.LookupTimeout = defaultLookupTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Verifier{
		codec:         c,
		ledger:        l,
		directory:     d,
		logger:        log,
		lookupTimeout: cfg.LookupTimeout,
		now:           cfg.Now,
	}
}

// Verify runs the gates in order and stops at the first failure:
// decode, required fields, type, expiry, principal existence
// Rejections wrap one of apperrors credential errors; store faults wrap apperrors.ErrUpstreamUnavailable or stay unexpected
func (v *Verifier) Verify(ctx context.Context, token string, required models.TokenType) (models.Claims, error) {
	log := v.logger.With("required_type", required.String())

	claims, err := v.codec.Decode(token)
	if err != nil {
		log.Error("Credential decoding failed", "error", err)
		if v.codec.PeekType(token) == models.TokenTypeRefresh {
			v.burn(ctx, log, token, "malformed")
		}
		return models.Claims{}, err
	}

	if claims.Subject == "" || claims.Role == "" {
		log.Warn("Credential misses required claims", "subject", claims.Subject, "role", claims.Role)
		return models.Claims{}, fmt.Errorf("%w: subject and role are required", apperrors.ErrMalformedCredential)
	}

	if claims.Type != required {
		log.Warn("Credential type mismatch", "type", claims.Type.String())
		return models.Claims{}, fmt.Errorf("%w: got %s", apperrors.ErrWrongCredentialType, claims.Type)
	}

	if !v.now().Before(claims.ExpiresAt) {
		log.Warn("Credential expired", "subject", claims.Subject, "expired_at", claims.ExpiresAt)
		if required == models.TokenTypeRefresh {
			v.burn(ctx, log, token, "expired")
		}
		return models.Claims{}, fmt.Errorf("%w: at %s", apperrors.ErrExpiredCredential, claims.ExpiresAt.Format(time.RFC3339))
	}

	lookupCtx, cancel := context.WithTimeout(ctx, v.lookupTimeout)
	defer cancel()

	_, err = v.directory.GetUserByEmail(lookupCtx, claims.Subject)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUserNotFound):
		log.Warn("Credential subject not found", "subject", claims.Subject)
		return models.Claims{}, fmt.Errorf("%w: user %s not found", apperrors.ErrUnknownPrincipal, claims.Subject)
	default:
		log.Error("Principal lookup failed", "subject", claims.Subject, "error", err)
		return models.Claims{}, fmt.Errorf("principal lookup failed: %w", err)
	}

	log.Debug("Credential verified", "subject", claims.Subject)
	return claims, nil
}

// VerifyRefresh checks the ledger first, independent of signature and expiry
func (v *Verifier) VerifyRefresh(ctx context.Context, token string) (models.Claims, error) {
	err := v.ledger.AssertValid(ctx, token)
	if err != nil {
		if errors.Is(err, apperrors.ErrRevokedCredential) {
			v.logger.Warn("Refresh token is not valid in ledger")
		} else {
			v.logger.Error("Refresh token ledger check failed", "error", err)
		}
		return models.Claims{}, err
	}

	return v.Verify(ctx, token, models.TokenTypeRefresh)
}

// burn invalidates refresh token in the ledger
// The rejection stands even if the ledger write fails
func (v *Verifier) burn(ctx context.Context, log logger.Logger, token string, reason string) {
	err := v.ledger.Invalidate(ctx, token)
	if err != nil {
		log.Error("Failed to invalidate refresh token", "reason", reason, "error", err)
		return
	}
	log.Info("Refresh token invalidated on verification", "reason", reason)
}
