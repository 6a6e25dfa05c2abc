package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictpay/backend/internal/models"
)

// RefundInfo describes the compensation owed after a task moved to failed.
type RefundInfo struct {
	UserID      uuid.UUID
	AmountCents int64
}

// Store is the task persistence surface. Status changes are conditional
// UPDATEs keyed on the allowed source statuses, so the check and the write
// are one atomic statement; a lost race shows up as zero rows affected,
// never as a silent overwrite.
type Store interface {
	InTx(ctx context.Context, fn func(pgx.Tx) error) error
	Insert(ctx context.Context, tx pgx.Tx, t *models.Task) error
	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Task, error)
	Status(ctx context.Context, id uuid.UUID) (models.TaskStatus, bool, error)
	SetInProgress(ctx context.Context, id uuid.UUID) (bool, error)
	SetCompleted(ctx context.Context, id uuid.UUID, result string) (bool, error)
	SetFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string) (*RefundInfo, error)
	StaleWaiting(ctx context.Context, cutoff time.Time, limit int) ([]*models.Task, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

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

func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, t *models.Task) error {
	row := tx.QueryRow(ctx, `
		INSERT INTO ml_tasks (id, user_id, model_id, input, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, t.ID, t.UserID, t.ModelID, t.Input, t.Status)
	return row.Scan(&t.CreatedAt)
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var t models.Task
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, model_id, input, status, result, created_at, completed_at
		FROM ml_tasks WHERE id = $1
	`, id)
	err := row.Scan(&t.ID, &t.UserID, &t.ModelID, &t.Input, &t.Status, &t.Result, &t.CreatedAt, &t.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, model_id, input, status, result, created_at, completed_at
		FROM ml_tasks
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		var t models.Task
		err := rows.Scan(&t.ID, &t.UserID, &t.ModelID, &t.Input, &t.Status, &t.Result, &t.CreatedAt, &t.CompletedAt)
		if err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

func (r *Repository) Status(ctx context.Context, id uuid.UUID) (models.TaskStatus, bool, error) {
	var status models.TaskStatus
	row := r.pool.QueryRow(ctx, `SELECT status FROM ml_tasks WHERE id = $1`, id)
	if err := row.Scan(&status); err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return status, true, nil
}

// SetInProgress moves waiting -> in_progress. False means the task was not
// in waiting (already accepted, terminal, or missing).
func (r *Repository) SetInProgress(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE ml_tasks SET status = $2 WHERE id = $1 AND status = $3
	`, id, models.TaskInProgress, models.TaskWaiting)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// SetCompleted moves in_progress -> completed, storing the result and
// completion time. False means the task was not in progress.
func (r *Repository) SetCompleted(ctx context.Context, id uuid.UUID, result string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ml_tasks SET status = $2, result = $3, completed_at = now()
		WHERE id = $1 AND status = $4
	`, id, models.TaskCompleted, result, models.TaskInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetFailed moves a non-terminal task to failed inside the caller's
// transaction and returns the refund owed (model cost at submission time).
// A nil RefundInfo with nil error means the task was already terminal or
// missing: nothing was written, no refund is due. The terminal check and
// the status write are one statement, so two racing failers cannot both
// observe a refundable task.
func (r *Repository) SetFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string) (*RefundInfo, error) {
	var info RefundInfo
	row := tx.QueryRow(ctx, `
		UPDATE ml_tasks t
		SET status = $2, result = $3, completed_at = now()
		FROM ml_models m
		WHERE t.id = $1 AND m.id = t.model_id AND t.status IN ($4, $5)
		RETURNING t.user_id, m.cost_per_prediction
	`, id, models.TaskFailed, "Error: "+reason, models.TaskWaiting, models.TaskInProgress)
	if err := row.Scan(&info.UserID, &info.AmountCents); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &info, nil
}

func (r *Repository) StaleWaiting(ctx context.Context, cutoff time.Time, limit int) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, model_id, input, status, result, created_at, completed_at
		FROM ml_tasks
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`, models.TaskWaiting, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		var t models.Task
		err := rows.Scan(&t.ID, &t.UserID, &t.ModelID, &t.Input, &t.Status, &t.Result, &t.CreatedAt, &t.CompletedAt)
		if err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
