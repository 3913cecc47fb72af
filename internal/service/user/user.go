package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/apperrors"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/repository"
)

type CreateUserParams struct {
	Username string
	Email    string
	Password string
	Role     models.Role
}

const defaultTimeout = 3 * time.Second

type Config struct {
	// Deadline for every store call
	// If not set than default is used
	Timeout time.Duration
}

type UserService struct {
	hasher  PasswordHasher
	storage repository.Storage
	timeout time.Duration
}

func NewService(cfg Config, hasher PasswordHasher, storage repository.Storage) *UserService {
	if hasher == nil {
		hasher = DefaultHasher
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	return &UserService{
		hasher:  hasher,
		storage: storage,
		timeout: cfg.Timeout,
	}
}

// withTimeout runs store call under the service deadline
// Missed deadline is reported as apperrors.ErrUpstreamUnavailable
func withTimeout[T any](ctx context.Context, timeout time.Duration, call func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := call(ctx)
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, apperrors.ErrUpstreamUnavailable) {
		err = fmt.Errorf("user store: %w: %w", apperrors.ErrUpstreamUnavailable, err)
	}
	return res, err
}

// CreateUser hashes the password and stores new user
// Role defaults to models.RoleUser
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	if params.Password == "" {
		return models.User{}, errors.New("password must not be empty")
	}
	if params.Role == "" {
		params.Role = models.RoleUser
	}
	if !params.Role.Valid() {
		return models.User{}, fmt.Errorf("unknown role %q", params.Role)
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	user, err := withTimeout(ctx, s.timeout, func(ctx context.Context) (models.User, error) {
		return s.storage.User().CreateUser(ctx, repository.CreateUserParams{
			Username:     params.Username,
			Email:        params.Email,
			PasswordHash: hash,
			Role:         params.Role,
		})
	})
	if err != nil {
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

// Login returns user if password matches
// Unknown email and wrong password are both apperrors.ErrInvalidCredentials
func (s *UserService) Login(ctx context.Context, email string, password string) (models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUserNotFound):
		// Burn the same time as a real comparison would take
		_, _ = s.hasher.Hash(password)
		return models.User{}, apperrors.ErrInvalidCredentials
	default:
		return models.User{}, err
	}

	err = s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		return models.User{}, apperrors.ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return withTimeout(ctx, s.timeout, func(ctx context.Context) (models.User, error) {
		return s.storage.User().GetUserByID(ctx, userID)
	})
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return withTimeout(ctx, s.timeout, func(ctx context.Context) (models.User, error) {
		return s.storage.User().GetUserByEmail(ctx, email)
	})
}

// SetPassword replaces user's password and revokes the refresh token in one transaction
func (s *UserService) SetPassword(ctx context.Context, userID uuid.UUID, password string) error {
	if password == "" {
		return errors.New("password must not be empty")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("can't use this as password, Err: %w", err)
	}

	_, err = withTimeout(ctx, s.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.storage.InTx(ctx, func(storage repository.Storage) error {
			err := storage.User().UpdatePassword(ctx, userID, hash)
			if err != nil {
				return err
			}
			return storage.Refresh().InvalidateByUser(ctx, userID)
		})
	})
	return err
}
