package tokencodec

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/apperrors"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
)

func Test_Codec(t *testing.T) {
	codec, err := New("test-secret-key", "")
	require.NoError(t, err)

	claims := models.Claims{
		Subject:   "alice@example.com",
		Role:      models.RoleUser,
		Type:      models.TokenTypeAccess,
		ExpiresAt: time.Now().Add(15 * time.Minute).Truncate(time.Second),
	}

	t.Run("new", func(t *testing.T) {
		t.Run("defaults to HS256", func(t *testing.T) {
			require.Equal(t, "HS256", codec.alg.Alg())
		})

		t.Run("empty secret", func(t *testing.T) {
			_, err := New("", "HS256")
			require.Error(t, err)
		})

		t.Run("non hmac algorithm", func(t *testing.T) {
			_, err := New("secret", "RS256")
			require.Error(t, err, "shared secret can't be used with asymmetric algorithm")
		})

		t.Run("unknown algorithm", func(t *testing.T) {
			_, err := New("secret", "XX999")
			require.Error(t, err)
		})
	})

	t.Run("encode decode", func(t *testing.T) {
		token, err := codec.Encode(claims)
		require.NoError(t, err)

		got, err := codec.Decode(token)

		require.NoError(t, err)
		assert.Equal(t, claims.Subject, got.Subject)
		assert.Equal(t, claims.Role, got.Role)
		assert.Equal(t, claims.Type, got.Type)
		assert.WithinDuration(t, claims.ExpiresAt, got.ExpiresAt, 0)
		assert.NotEmpty(t, got.ID, "jti has to be generated")
	})

	t.Run("same claims give different tokens", func(t *testing.T) {
		first, err := codec.Encode(claims)
		require.NoError(t, err)
		second, err := codec.Encode(claims)
		require.NoError(t, err)

		require.NotEqual(t, first, second)
	})

	t.Run("expired token is decoded", func(t *testing.T) {
		expired := claims
		expired.ExpiresAt = time.Now().Add(-time.Hour)
		token, err := codec.Encode(expired)
		require.NoError(t, err)

		got, err := codec.Decode(token)

		require.NoError(t, err, "expiry is checked by verifier, not codec")
		require.True(t, got.ExpiresAt.Before(time.Now()))
	})

	t.Run("decode fails closed", func(t *testing.T) {
		valid, err := codec.Encode(claims)
		require.NoError(t, err)

		other, err := New("another-secret", "HS256")
		require.NoError(t, err)
		foreign, err := other.Encode(claims)
		require.NoError(t, err)

		hs512, err := New("test-secret-key", "HS512")
		require.NoError(t, err)
		otherAlg, err := hs512.Encode(claims)
		require.NoError(t, err)

		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub":  claims.Subject,
			"role": "user",
			"type": "access",
			"exp":  claims.ExpiresAt.Unix(),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  claims.Subject,
			"role": "user",
			"type": "access",
		}).SignedString([]byte("test-secret-key"))
		require.NoError(t, err)

		unknownType, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  claims.Subject,
			"role": "user",
			"type": "forgot_password",
			"exp":  claims.ExpiresAt.Unix(),
		}).SignedString([]byte("test-secret-key"))
		require.NoError(t, err)

		parts := strings.Split(valid, ".")
		tampered := parts[0] + "." + parts[1] + "x." + parts[2]

		tests := []struct {
			name  string
			token string
		}{
			{"not a token", "invalid token"},
			{"empty", ""},
			{"wrong secret", foreign},
			{"wrong algorithm", otherAlg},
			{"none algorithm", unsigned},
			{"tampered payload", tampered},
			{"no expiry", noExp},
			{"unknown type", unknownType},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := codec.Decode(tt.token)

				require.ErrorIs(t, err, apperrors.ErrMalformedCredential)
				require.Equal(t, models.Claims{}, got, "no partial claims on failure")
			})
		}
	})

	t.Run("peek type", func(t *testing.T) {
		refresh := claims
		refresh.Type = models.TokenTypeRefresh
		token, err := codec.Encode(refresh)
		require.NoError(t, err)

		other, err := New("another-secret", "HS256")
		require.NoError(t, err)
		foreign, err := other.Encode(refresh)
		require.NoError(t, err)

		require.Equal(t, models.TokenTypeRefresh, codec.PeekType(token))
		require.Equal(t, models.TokenTypeRefresh, codec.PeekType(foreign), "signature is not checked")
		require.Equal(t, models.TokenTypeUnknown, codec.PeekType("garbage"))
	})
}
