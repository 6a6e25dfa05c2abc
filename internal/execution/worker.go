package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/predictpay/backend/internal/predict"
)

// AcceptResult tells a worker what state its delivery found the task in.
type AcceptResult int

const (
	// AcceptStarted: the task moved waiting -> in_progress; process it.
	AcceptStarted AcceptResult = iota
	// AcceptInProgress: an earlier delivery already accepted the task and
	// its worker never acknowledged (crash). Processing is re-entrant: run
	// it again, the debit happened exactly once at submission.
	AcceptInProgress
	// AcceptDone: the task is already terminal; acknowledge and drop.
	AcceptDone
	// AcceptNotFound: the message outlived its task; acknowledge and drop.
	AcceptNotFound
)

// TaskService is the contract the workers need to drive a task to a
// terminal state and to republish lost work.
type TaskService interface {
	Accept(ctx context.Context, taskID uuid.UUID) (AcceptResult, error)
	Complete(ctx context.Context, taskID uuid.UUID, result string) error
	Fail(ctx context.Context, taskID uuid.UUID, reason string) error
	ReenqueueStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// PredictWorker consumes prediction messages. Returning nil acknowledges
// the message; returning an error hands it back for redelivery. A
// processing failure is compensated (failed status + refund) and then
// acknowledged; it must never bounce back to the queue, or an already
// refunded task would be redelivered forever. Only a failure of the store
// writes themselves is returned, because then redelivery is the correct
// recovery.
type PredictWorker struct {
	river.WorkerDefaults[PredictArgs]
	tasks          TaskService
	predictor      predict.Predictor
	predictTimeout time.Duration
	log            *slog.Logger
}

func NewPredictWorker(tasks TaskService, predictor predict.Predictor, predictTimeout time.Duration, log *slog.Logger) *PredictWorker {
	if log == nil {
		log = slog.Default()
	}
	return &PredictWorker{
		tasks:          tasks,
		predictor:      predictor,
		predictTimeout: predictTimeout,
		log:            log,
	}
}

func (w *PredictWorker) Work(ctx context.Context, job *river.Job[PredictArgs]) error {
	taskID, err := uuid.Parse(job.Args.TaskID)
	if err != nil {
		w.log.Error("dropping message with malformed task id", "task_id", job.Args.TaskID, "error", err)
		return nil
	}

	accept, err := w.tasks.Accept(ctx, taskID)
	if err != nil {
		return fmt.Errorf("accept task %s: %w", taskID, err)
	}
	switch accept {
	case AcceptNotFound:
		w.log.Warn("message outlived its task, dropping", "task_id", taskID)
		return nil
	case AcceptDone:
		w.log.Info("task already terminal, dropping redelivery", "task_id", taskID)
		return nil
	case AcceptInProgress:
		w.log.Warn("redelivery of in-progress task, retrying processing", "task_id", taskID)
	}

	w.log.Info("processing task", "task_id", taskID, "model", job.Args.Model)

	predictCtx, cancel := context.WithTimeout(ctx, w.predictTimeout)
	defer cancel()
	result, predictErr := w.predictor.Predict(predictCtx, job.Args.Features.Input)
	if predictErr != nil {
		return w.failTask(ctx, taskID, predictErr.Error())
	}

	if err := w.tasks.Complete(ctx, taskID, result); err != nil {
		return fmt.Errorf("mark task %s completed: %w", taskID, err)
	}
	w.log.Info("task completed", "task_id", taskID)
	return nil
}

func (w *PredictWorker) failTask(ctx context.Context, taskID uuid.UUID, reason string) error {
	if err := w.tasks.Fail(ctx, taskID, reason); err != nil {
		return fmt.Errorf("task %s failed (%s) and the compensating write also failed: %w", taskID, reason, err)
	}
	w.log.Warn("task failed, spend refunded", "task_id", taskID, "reason", reason)
	return nil
}
