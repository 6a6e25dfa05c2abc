package registry

import (
	"context"

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

func (r *Repository) Create(ctx context.Context, name, description string, costPerPrediction int64) (*models.Model, error) {
	var m models.Model
	row := r.pool.QueryRow(ctx, `
		INSERT INTO ml_models (name, description, cost_per_prediction, active)
		VALUES ($1, $2, $3, true)
		RETURNING id, name, description, cost_per_prediction, active, created_at
	`, name, description, costPerPrediction)
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.CostPerPrediction, &m.Active, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) GetByID(ctx context.Context, id int32) (*models.Model, error) {
	var m models.Model
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, description, cost_per_prediction, active, created_at
		FROM ml_models WHERE id = $1
	`, id)
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.CostPerPrediction, &m.Active, &m.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repository) ListActive(ctx context.Context) ([]*models.Model, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, cost_per_prediction, active, created_at
		FROM ml_models WHERE active ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Model
	for rows.Next() {
		var m models.Model
		err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.CostPerPrediction, &m.Active, &m.CreatedAt)
		if err != nil {
			return nil, err
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
