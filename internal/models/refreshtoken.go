package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the ledger record: at most one per user
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	IsValid   bool
	CreatedAt time.Time
}
