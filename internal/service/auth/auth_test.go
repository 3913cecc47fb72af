package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/apperrors"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/repository/postgres"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/service/auth/issuer"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/service/auth/ledger"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/service/auth/tokencodec"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/service/auth/verifier"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/service/user"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/testutil"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func Test_Auth(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	codec, err := tokencodec.New("test-secret-key", "HS256")
	require.NoError(t, err)

	// Build the whole service on top of db transaction
	// Rollback transaction when test stops
	withTx := func(t *testing.T, fn func(s *AuthService, c *clock)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			c := &clock{now: time.Now()}
			l := logger.NewNoOpLogger()
			storage := postgres.NewStorage(tx)

			users := user.NewService(user.Config{}, user.BcryptHasher{Cost: bcrypt.MinCost}, storage)
			refreshLedger := ledger.New(ledger.Config{Now: c.Now}, storage, l)
			v := verifier.New(verifier.Config{Now: c.Now}, codec, refreshLedger, users, l)
			i := issuer.New(issuer.Config{
				AccessTTL:  15 * time.Minute,
				RefreshTTL: 24 * time.Hour,
				ResetTTL:   15 * time.Minute,
				Now:        c.Now,
			}, codec, refreshLedger, users, l)

			fn(NewService(users, i, v, refreshLedger, l), c)
		})
	}

	// Same stack on the pool itself, for tests that need several connections at once
	// Data is not rolled back, so every test registers its own user
	onPool := func() *AuthService {
		l := logger.NewNoOpLogger()
		storage := postgres.NewStorage(pg.Pool)

		users := user.NewService(user.Config{}, user.BcryptHasher{Cost: bcrypt.MinCost}, storage)
		refreshLedger := ledger.New(ledger.Config{}, storage, l)
		v := verifier.New(verifier.Config{}, codec, refreshLedger, users, l)
		i := issuer.New(issuer.Config{}, codec, refreshLedger, users, l)

		return NewService(users, i, v, refreshLedger, l)
	}
	uniqueUser := func() user.CreateUserParams {
		return user.CreateUserParams{Username: "bob", Email: uuid.NewString() + "@example.com", Password: "secret1"}
	}

	alice := user.CreateUserParams{Username: "alice", Email: "alice@example.com", Password: "secret1"}

	t.Run("Register", func(t *testing.T) {
		t.Run("new user ok", func(t *testing.T) {
			withTx(t, func(s *AuthService, _ *clock) {
				pair, err := s.Register(t.Context(), alice)

				require.NoError(t, err, "registering new user should be ok")
				require.NotEmpty(t, pair.Access.Value, "access token should not be empty")
				require.NotEmpty(t, pair.Refresh.Value, "refresh token should not be empty")
			})
		})

		t.Run("fail if user exists", func(t *testing.T) {
			withTx(t, func(s *AuthService, _ *clock) {
				_, err := s.Register(t.Context(), alice)
				require.NoError(t, err, "no error has should happen if user not exists")

				_, err = s.Register(t.Context(), alice)

				require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
			})
		})
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("existing user ok", func(t *testing.T) {
			withTx(t, func(s *AuthService, _ *clock) {
				_, err := s.Register(t.Context(), alice)
				require.NoError(t, err)

				pair, err := s.Login(t.Context(), alice.Email, alice.Password)

				require.NoError(t, err)
				require.NotEmpty(t, pair.Access.Value)

				claims, err := s.Authenticate(t.Context(), pair.Access.Value)
				require.NoError(t, err)
				require.Equal(t, alice.Email, claims.Subject)
				require.Equal(t, models.RoleUser, claims.Role)
			})
		})

		tests := []struct {
			name     string
			email    string
			password string
		}{
			{
				name:     "wrong password",
				email:    alice.Email,
				password: "wrong",
			},
			{
				name:     "user not exists",
				email:    "bob@example.com",
				password: alice.Password,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				withTx(t, func(s *AuthService, _ *clock) {
					_, err := s.Register(t.Context(), alice)
					require.NoError(t, err)

					_, err = s.Login(t.Context(), tt.email, tt.password)

					require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
				})
			})
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("refresh once ok", func(t *testing.T) {
			withTx(t, func(s *AuthService, _ *clock) {
				initial, err := s.Register(t.Context(), alice)
				require.NoError(t, err)

				pair, err := s.Refresh(t.Context(), initial.Refresh.Value)

				require.NoError(t, err)
				require.NotEqual(t, initial.Access.Value, pair.Access.Value)
				require.NotEqual(t, initial.Refresh.Value, pair.Refresh.Value)
			})
		})

		t.Run("old refresh token superseded", func(t *testing.T) {
			withTx(t, func(s *AuthService, _ *clock) {
				initial, err := s.Register(t.Context(), alice)
				require.NoError(t, err)
				rotated, err := s.Refresh(t.Context(), initial.Refresh.Value)
				require.NoError(t, err)

				_, err = s.Refresh(t.Context(), initial.Refresh.Value)
				require.ErrorIs(t, err, apperrors.ErrRevokedCredential)

				_, err = s.Refresh(t.Context(), rotated.Refresh.Value)
				require.NoError(t, err, "the newest token still works")
			})
		})

		t.Run("login supersedes earlier session", func(t *testing.T) {
			withTx(t, func(s *AuthService, _ *clock) {
				first, err := s.Register(t.Context(), alice)
				require.NoError(t, err)
				_, err = s.Login(t.Context(), alice.Email, alice.Password)
				require.NoError(t, err)

				_, err = s.Refresh(t.Context(), first.Refresh.Value)

				require.ErrorIs(t, err, apperrors.ErrRevokedCredential)
			})
		})

		t.Run("access token rejected", func(t *testing.T) {
			withTx(t, func(s *AuthService, _ *clock) {
				pair, err := s.Register(t.Context(), alice)
				require.NoError(t, err)

				_, err = s.Refresh(t.Context(), pair.Access.Value)

				require.ErrorIs(t, err, apperrors.ErrRevokedCredential, "access token is never in the ledger")
			})
		})

		t.Run("expired refresh token burned", func(t *testing.T) {
			withTx(t, func(s *AuthService, c *clock) {
				pair, err := s.Register(t.Context(), alice)
				require.NoError(t, err)

				c.now = c.now.Add(25 * time.Hour)
				_, err = s.Refresh(t.Context(), pair.Refresh.Value)
				require.ErrorIs(t, err, apperrors.ErrExpiredCredential)

				// Even if clock goes back the token stays dead
				c.now = c.now.Add(-25 * time.Hour)
				_, err = s.Refresh(t.Context(), pair.Refresh.Value)
				require.ErrorIs(t, err, apperrors.ErrRevokedCredential)
			})
		})
	})

	t.Run("Concurrent redemption", func(t *testing.T) {
		t.Run("same refresh token redeemed once", func(t *testing.T) {
			s := onPool()
			initial, err := s.Register(t.Context(), uniqueUser())
			require.NoError(t, err)

			const attempts = 5
			results := make([]error, attempts)
			pairs := make([]models.TokenPair, attempts)

			var wg sync.WaitGroup
			for n := range attempts {
				wg.Add(1)
				go func() {
					defer wg.Done()
					pairs[n], results[n] = s.Refresh(t.Context(), initial.Refresh.Value)
				}()
			}
			wg.Wait()

			var winner models.TokenPair
			succeeded := 0
			for n, err := range results {
				if err == nil {
					succeeded++
					winner = pairs[n]
					continue
				}
				require.ErrorIs(t, err, apperrors.ErrRevokedCredential)
			}
			require.Equal(t, 1, succeeded, "refresh token must be redeemed exactly once")

			_, err = s.Refresh(t.Context(), winner.Refresh.Value)
			require.NoError(t, err, "token of the winning rotation is the valid one")
		})

		t.Run("logout racing refresh", func(t *testing.T) {
			s := onPool()
			initial, err := s.Register(t.Context(), uniqueUser())
			require.NoError(t, err)

			var (
				wg         sync.WaitGroup
				rotated    models.TokenPair
				refreshErr error
				logoutErr  error
			)
			wg.Add(2)
			go func() {
				defer wg.Done()
				rotated, refreshErr = s.Refresh(t.Context(), initial.Refresh.Value)
			}()
			go func() {
				defer wg.Done()
				_, logoutErr = s.Logout(t.Context(), initial.Refresh.Value)
			}()
			wg.Wait()

			if refreshErr == nil {
				require.ErrorIs(t, logoutErr, apperrors.ErrRevokedCredential, "logout of a rotated token must fail")
				_, err = s.Refresh(t.Context(), rotated.Refresh.Value)
				require.NoError(t, err)
			} else {
				require.NoError(t, logoutErr)
				require.ErrorIs(t, refreshErr, apperrors.ErrRevokedCredential, "refresh after logout must fail")
			}
		})
	})

	t.Run("Logout", func(t *testing.T) {
		t.Run("logout revokes refresh", func(t *testing.T) {
			withTx(t, func(s *AuthService, _ *clock) {
				pair, err := s.Register(t.Context(), alice)
				require.NoError(t, err)

				claims, err := s.Logout(t.Context(), pair.Refresh.Value)
				require.NoError(t, err)
				require.Equal(t, alice.Email, claims.Subject)

				_, err = s.Refresh(t.Context(), pair.Refresh.Value)
				require.ErrorIs(t, err, apperrors.ErrRevokedCredential)

				_, err = s.Logout(t.Context(), pair.Refresh.Value)
				require.ErrorIs(t, err, apperrors.ErrRevokedCredential, "second logout is rejected")
			})
		})

		t.Run("access token still valid until expiry", func(t *testing.T) {
			withTx(t, func(s *AuthService, _ *clock) {
				pair, err := s.Register(t.Context(), alice)
				require.NoError(t, err)
				_, err = s.Logout(t.Context(), pair.Refresh.Value)
				require.NoError(t, err)

				_, err = s.Authenticate(t.Context(), pair.Access.Value)

				require.NoError(t, err)
			})
		})
	})

	t.Run("Password reset", func(t *testing.T) {
		t.Run("reset ok", func(t *testing.T) {
			withTx(t, func(s *AuthService, _ *clock) {
				pair, err := s.Register(t.Context(), alice)
				require.NoError(t, err)

				reset, err := s.ForgotPassword(t.Context(), alice.Email)
				require.NoError(t, err)

				err = s.ResetPassword(t.Context(), reset.Value, "new-secret")
				require.NoError(t, err)

				_, err = s.Login(t.Context(), alice.Email, "new-secret")
				require.NoError(t, err)

				_, err = s.Refresh(t.Context(), pair.Refresh.Value)
				require.ErrorIs(t, err, apperrors.ErrRevokedCredential, "sessions before reset are revoked")
			})
		})

		t.Run("unknown email", func(t *testing.T) {
			withTx(t, func(s *AuthService, _ *clock) {
				_, err := s.ForgotPassword(t.Context(), "nobody@example.com")

				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})

		t.Run("access token can't reset password", func(t *testing.T) {
			withTx(t, func(s *AuthService, _ *clock) {
				pair, err := s.Register(t.Context(), alice)
				require.NoError(t, err)

				err = s.ResetPassword(t.Context(), pair.Access.Value, "new-secret")

				require.ErrorIs(t, err, apperrors.ErrWrongCredentialType)
			})
		})

		t.Run("expired reset token", func(t *testing.T) {
			withTx(t, func(s *AuthService, c *clock) {
				_, err := s.Register(t.Context(), alice)
				require.NoError(t, err)
				reset, err := s.ForgotPassword(t.Context(), alice.Email)
				require.NoError(t, err)

				c.now = c.now.Add(16 * time.Minute)
				err = s.ResetPassword(t.Context(), reset.Value, "new-secret")

				require.ErrorIs(t, err, apperrors.ErrExpiredCredential)
			})
		})
	})

	t.Run("Authenticate", func(t *testing.T) {
		t.Run("refresh token rejected", func(t *testing.T) {
			withTx(t, func(s *AuthService, _ *clock) {
				pair, err := s.Register(t.Context(), alice)
				require.NoError(t, err)

				_, err = s.Authenticate(t.Context(), pair.Refresh.Value)

				require.ErrorIs(t, err, apperrors.ErrWrongCredentialType)
			})
		})

		t.Run("expired access", func(t *testing.T) {
			withTx(t, func(s *AuthService, c *clock) {
				pair, err := s.Register(t.Context(), alice)
				require.NoError(t, err)

				c.now = c.now.Add(15 * time.Minute)
				_, err = s.Authenticate(t.Context(), pair.Access.Value)

				require.ErrorIs(t, err, apperrors.ErrExpiredCredential)
			})
		})
	})
}
