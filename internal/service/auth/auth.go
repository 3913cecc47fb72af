package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/service/user"
)

type userService interface {
	// Has to return apperrors.ErrUserAlreadyExists if email is taken
	CreateUser(ctx context.Context, params user.CreateUserParams) (models.User, error)

	// Has to return apperrors.ErrInvalidCredentials on unknown email or wrong password
	Login(ctx context.Context, email string, password string) (models.User, error)

	// Has to return apperrors.ErrUserNotFound if there is no such user
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Replace password and revoke refresh token at once
	SetPassword(ctx context.Context, userID uuid.UUID, password string) error
}

type tokenIssuer interface {
	Issue(ctx context.Context, user models.User) (models.TokenPair, error)
	Rotate(ctx context.Context, presented string, claims models.Claims) (models.TokenPair, error)
	IssueReset(user models.User) (models.IssuedToken, error)
}

type tokenVerifier interface {
	Verify(ctx context.Context, token string, required models.TokenType) (models.Claims, error)
	VerifyRefresh(ctx context.Context, token string) (models.Claims, error)
}

type tokenRevoker interface {
	// Has to return apperrors.ErrRevokedCredential if the token is not valid at the moment of revocation
	Revoke(ctx context.Context, token string) error
}

// AuthService glues users and credentials into the identity use cases
type AuthService struct {
	users    userService
	issuer   tokenIssuer
	verifier tokenVerifier
	ledger   tokenRevoker
	logger   logger.Logger
}

func NewService(users userService, issuer tokenIssuer, verifier tokenVerifier, ledger tokenRevoker, l logger.Logger) *AuthService {
	return &AuthService{
		users:    users,
		issuer:   issuer,
		verifier: verifier,
		ledger:   ledger,
		logger:   l,
	}
}

// Register user and log them in straight away
func (s *AuthService) Register(ctx context.Context, params user.CreateUserParams) (models.TokenPair, error) {
	u, err := s.users.CreateUser(ctx, params)
	if err != nil {
		return models.TokenPair{}, err
	}

	s.logger.Info("User registered", "email", u.Email, "role", string(u.Role))

	pair, err := s.issuer.Issue(ctx, u)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be issued. Err: %w", err)
	}
	return pair, nil
}

func (s *AuthService) Login(ctx context.Context, email string, password string) (models.TokenPair, error) {
	u, err := s.users.Login(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login failed", "email", email, "error", err)
		return models.TokenPair{}, err
	}

	return s.issuer.Issue(ctx, u)
}

// Refresh exchanges valid refresh token for a new pair
// The presented token is superseded by the new one; of concurrent refreshes with the same token only one succeeds
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	claims, err := s.verifier.VerifyRefresh(ctx, refresh)
	if err != nil {
		return models.TokenPair{}, err
	}

	return s.issuer.Rotate(ctx, refresh, claims)
}

// Logout revokes the refresh token. Returns whose token it was
func (s *AuthService) Logout(ctx context.Context, refresh string) (models.Claims, error) {
	claims, err := s.verifier.VerifyRefresh(ctx, refresh)
	if err != nil {
		return models.Claims{}, err
	}

	// Token may have been rotated or revoked since the check above
	err = s.ledger.Revoke(ctx, refresh)
	if err != nil {
		return models.Claims{}, fmt.Errorf("logout failed. Err: %w", err)
	}

	s.logger.Info("User logged out", "email", claims.Subject)
	return claims, nil
}

// ForgotPassword returns reset token for the user
// Delivery to the user is up to the caller
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (models.IssuedToken, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return models.IssuedToken{}, err
	}

	token, err := s.issuer.IssueReset(u)
	if err != nil {
		return models.IssuedToken{}, err
	}

	s.logger.Info("Password reset token issued", "email", u.Email)
	return token, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, resetToken string, newPassword string) error {
	claims, err := s.verifier.Verify(ctx, resetToken, models.TokenTypePasswordReset)
	if err != nil {
		return err
	}

	u, err := s.users.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		return err
	}

	err = s.users.SetPassword(ctx, u.ID, newPassword)
	if err != nil {
		return fmt.Errorf("password reset failed. Err: %w", err)
	}

	s.logger.Info("Password reset", "email", u.Email)
	return nil
}

// Authenticate checks access token and returns its claims
func (s *AuthService) Authenticate(ctx context.Context, access string) (models.Claims, error) {
	return s.verifier.Verify(ctx, access, models.TokenTypeAccess)
}
