package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictpay/backend/internal/models"
)

// Store is the persistence surface the ledger service needs. Methods taking
// a pgx.Tx run inside the caller's transaction so balance mutations and
// their transaction rows commit (or roll back) together.
type Store interface {
	InTx(ctx context.Context, fn func(pgx.Tx) error) error
	DeductBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) (bool, error)
	AddBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) (bool, error)
	InsertTransaction(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
	Balance(ctx context.Context, userID uuid.UUID) (int64, bool, error)
	Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error)
	UserActive(ctx context.Context, userID uuid.UUID) (bool, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

// InTx runs fn in a single transaction, committing if it returns nil.
func (r *Repository) InTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeductBalance atomically decrements the balance, refusing to go negative.
// The condition in the UPDATE doubles as the row lock: two concurrent
// debits for the same user serialize on the row, so both cannot pass an
// insufficient-funds check against a stale balance. Returns false when the
// balance is too low (or the user has no balance row).
func (r *Repository) DeductBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) (bool, error) {
	result, err := tx.Exec(ctx, `
		UPDATE balances
		SET amount_cents = amount_cents - $1, updated_at = now()
		WHERE user_id = $2 AND amount_cents >= $1
	`, amountCents, userID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// AddBalance atomically increments the balance. Returns false when the user
// has no balance row.
func (r *Repository) AddBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) (bool, error) {
	result, err := tx.Exec(ctx, `
		UPDATE balances
		SET amount_cents = amount_cents + $1, updated_at = now()
		WHERE user_id = $2
	`, amountCents, userID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (r *Repository) InsertTransaction(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	row := tx.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, amount_cents, kind, related_task_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, t.ID, t.UserID, t.AmountCents, t.Kind, t.RelatedTaskID, t.Description)
	return row.Scan(&t.CreatedAt)
}

func (r *Repository) Balance(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	var amount int64
	row := r.pool.QueryRow(ctx, `SELECT amount_cents FROM balances WHERE user_id = $1`, userID)
	if err := row.Scan(&amount); err != nil {
		if err == pgx.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, err
	}
	return amount, true, nil
}

func (r *Repository) Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount_cents, kind, related_task_id, description, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(&t.ID, &t.UserID, &t.AmountCents, &t.Kind, &t.RelatedTaskID, &t.Description, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

// UserActive reports whether the user exists and is not soft-deleted.
func (r *Repository) UserActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	var active bool
	row := r.pool.QueryRow(ctx, `SELECT NOT is_deleted FROM users WHERE id = $1`, userID)
	if err := row.Scan(&active); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return active, nil
}
