package models

import (
	"time"

	"github.com/google/uuid"
)

// Balance holds one user's funds in integer cents. AmountCents is always
// equal to the sum of the user's transactions and never goes negative;
// both are enforced by the ledger, which is the only writer.
type Balance struct {
	UserID      uuid.UUID `json:"user_id"`
	AmountCents int64     `json:"amount_cents"`
	UpdatedAt   time.Time `json:"updated_at"`
}
