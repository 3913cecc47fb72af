package user

import (
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"
)

// Interface to create or compare password hashes
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Compare stored hash with user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

// Used when nothing else is configured
var DefaultHasher PasswordHasher = BcryptHasher{Cost: bcrypt.DefaultCost}

// Bcrypt password hasher
// Password is pre-hashed with sha256 so long passwords are not truncated at 72 bytes
type BcryptHasher struct {
	// bcrypt.DefaultCost if zero
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	sum := sha256.Sum256([]byte(password))
	hash, err := bcrypt.GenerateFromPassword(sum[:], cost)
	return string(hash), err
}

func (h BcryptHasher) Compare(hashedPassword string, password string) error {
	sum := sha256.Sum256([]byte(password))
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), sum[:])
}
