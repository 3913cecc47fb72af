package tokencodec

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/apperrors"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
)

const defaultSigningMethod = "HS256"

type tokenClaims struct {
	jwt.RegisteredClaims
	Role models.Role      `json:"role,omitempty"`
	Type models.TokenType `json:"type"`
}

// Codec signs and parses credentials with a single shared secret
// It keeps no state besides the key
type Codec struct {
	key []byte
	alg jwt.SigningMethod
}

// New codec. Only HMAC algorithms are accepted: the key is a shared secret
func New(secretKey string, alg string) (*Codec, error) {
	if secretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}
	if alg == "" {
		alg = defaultSigningMethod
	}

	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}

	return &Codec{key: []byte(secretKey), alg: method}, nil
}

// Encode claims into signed string
// Empty claims ID is replaced with random one, so two credentials are never equal
func (c *Codec) Encode(claims models.Claims) (string, error) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}

	token := jwt.NewWithClaims(c.alg, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.ID,
			Subject:   claims.Subject,
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
		Role: claims.Role,
		Type: claims.Type,
	})

	s, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("error while signing token. Err: %w", err)
	}
	return s, nil
}

// Decode checks signature and structure only
// Expiry, required fields and type are left for the caller: that order matters for verification
// Any failure is apperrors.ErrMalformedCredential, never partial claims
func (c *Codec) Decode(token string) (models.Claims, error) {
	tc := &tokenClaims{}

	_, err := jwt.ParseWithClaims(
		token,
		tc,
		func(t *jwt.Token) (any, error) {
			return c.key, nil
		},
		jwt.WithValidMethods([]string{c.alg.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return models.Claims{}, fmt.Errorf("%w: %w", apperrors.ErrMalformedCredential, err)
	}
	if tc.ExpiresAt == nil {
		return models.Claims{}, fmt.Errorf("%w: no exp claim", apperrors.ErrMalformedCredential)
	}

	return models.Claims{
		ID:        tc.ID,
		Subject:   tc.Subject,
		Role:      tc.Role,
		Type:      tc.Type,
		ExpiresAt: tc.ExpiresAt.Time,
	}, nil
}

// PeekType reads stated credential type without checking the signature
// Must never be used for authorization decisions
func (c *Codec) PeekType(token string) models.TokenType {
	tc := &tokenClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, tc)
	if err != nil {
		return models.TokenTypeUnknown
	}
	return tc.Type
}
