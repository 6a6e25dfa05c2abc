package execution

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

// ReconcileWorker runs periodically and republishes messages for waiting
// tasks older than staleAfter. Submission enqueues transactionally, so a
// stale waiting task means its queue job was lost out-of-band (exhausted
// retries, manual cancellation). The money is already spent; the task must
// eventually reach a terminal state.
type ReconcileWorker struct {
	river.WorkerDefaults[ReconcileArgs]
	tasks      TaskService
	staleAfter time.Duration
	log        *slog.Logger
}

func NewReconcileWorker(tasks TaskService, staleAfter time.Duration, log *slog.Logger) *ReconcileWorker {
	if log == nil {
		log = slog.Default()
	}
	return &ReconcileWorker{tasks: tasks, staleAfter: staleAfter, log: log}
}

func (w *ReconcileWorker) Work(ctx context.Context, job *river.Job[ReconcileArgs]) error {
	n, err := w.tasks.ReenqueueStale(ctx, w.staleAfter)
	if err != nil {
		return err
	}
	if n > 0 {
		w.log.Info("republished stale waiting tasks", "count", n)
	}
	return nil
}
