package users

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictpay/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the user and their zero balance in one transaction. Every
// user has a balance row from the moment of registration.
func (r *Repository) Create(ctx context.Context, name, email string) (*models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	u := models.User{ID: uuid.New(), Name: name, Email: email}
	row := tx.QueryRow(ctx, `
		INSERT INTO users (id, name, email)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, u.ID, u.Name, u.Email)
	if err := row.Scan(&u.CreatedAt); err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `INSERT INTO balances (user_id, amount_cents) VALUES ($1, 0)`, u.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetActive returns the user only if not soft-deleted.
func (r *Repository) GetActive(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.get(ctx, id, true)
}

// GetAny returns the user even if soft-deleted. History endpoints use this:
// a deleted user's ledger and task history remain readable.
func (r *Repository) GetAny(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.get(ctx, id, false)
}

func (r *Repository) get(ctx context.Context, id uuid.UUID, activeOnly bool) (*models.User, error) {
	query := `SELECT id, name, email, is_deleted, created_at FROM users WHERE id = $1`
	if activeOnly {
		query += ` AND NOT is_deleted`
	}
	var u models.User
	row := r.pool.QueryRow(ctx, query, id)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.IsDeleted, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// SoftDelete marks the user deleted. The balance row is kept. Returns false
// when the user does not exist or is already deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET is_deleted = true WHERE id = $1 AND NOT is_deleted
	`, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}
