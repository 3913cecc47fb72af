package models

import (
	"fmt"
	"time"
)

// TokenType is a closed set of credential kinds
type TokenType uint8

const (
	TokenTypeUnknown TokenType = iota
	TokenTypeAccess
	TokenTypeRefresh
	TokenTypePasswordReset
)

func (t TokenType) String() string {
	switch t {
	case TokenTypeAccess:
		return "access"
	case TokenTypeRefresh:
		return "refresh"
	case TokenTypePasswordReset:
		return "password_reset"
	default:
		return "unknown"
	}
}

func (t TokenType) MarshalText() ([]byte, error) {
	if t == TokenTypeUnknown {
		return nil, fmt.Errorf("can't encode unknown token type")
	}
	return []byte(t.String()), nil
}

// UnmarshalText fails on anything outside of the known set
func (t *TokenType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "access":
		*t = TokenTypeAccess
	case "refresh":
		*t = TokenTypeRefresh
	case "password_reset":
		*t = TokenTypePasswordReset
	default:
		return fmt.Errorf("unknown token type %q", string(b))
	}
	return nil
}

// Claims carried by every credential
type Claims struct {
	ID        string
	Subject   string // principal email
	Role      Role
	Type      TokenType
	ExpiresAt time.Time
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
	TTL       time.Duration
}

// Token pair issued on login, registration or refresh
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
