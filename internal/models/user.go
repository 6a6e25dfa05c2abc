package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account holder. Users are never physically deleted: IsDeleted
// marks them inactive while their balance row and ledger history remain
// readable for audit.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsDeleted bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
}
