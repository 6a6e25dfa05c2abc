package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction kinds. Spend and refund entries always carry a related task
// id; top-ups never do.
const (
	TransactionTopUp  = "top_up"
	TransactionSpend  = "spend"
	TransactionRefund = "refund"
)

// Transaction is an immutable ledger entry. Debits are negative, credits
// positive. Rows are append-only: they are never updated or deleted, so the
// ledger can be replayed to reconstruct any balance.
type Transaction struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	AmountCents   int64      `json:"amount_cents"`
	Kind          string     `json:"kind"`
	RelatedTaskID *uuid.UUID `json:"related_task_id,omitempty"`
	Description   string     `json:"description"`
	CreatedAt     time.Time  `json:"created_at"`
}
