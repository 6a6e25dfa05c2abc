package tasks

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/predictpay/backend/internal/execution"
	"github.com/predictpay/backend/internal/ledger"
	"github.com/predictpay/backend/internal/models"
)

// ErrInvalidInput is returned when the submitted input fails structural
// validation. The check runs before any money moves.
var ErrInvalidInput = errors.New("invalid input")

// ErrTaskNotFound is returned when a task id resolves to nothing.
var ErrTaskNotFound = errors.New("task not found")

// ErrInvalidTransition is returned for out-of-order status changes.
var ErrInvalidTransition = errors.New("illegal status transition")

const (
	minInputLen      = 3
	reenqueueBatch   = 100
	defaultTaskLimit = 100
)

// ModelResolver is the slice of the model catalog submission needs.
type ModelResolver interface {
	GetModel(ctx context.Context, id int32) (*models.Model, error)
}

// InsertPredictTxFunc enqueues a prediction message within the given
// transaction. Provided by main as a closure over river.Client.InsertTx, so
// the message commits atomically with the debit and the task row.
type InsertPredictTxFunc func(ctx context.Context, tx pgx.Tx, args execution.PredictArgs) error

// InputRule is the pluggable domain predicate applied after the structural
// checks. The default requires at least one letter, since the bundled
// models analyze words.
type InputRule func(input string) bool

var letterRe = regexp.MustCompile(`[A-Za-zА-Яа-яЁё]`)

// DefaultInputRule accepts input containing at least one letter.
func DefaultInputRule(input string) bool {
	return letterRe.MatchString(input)
}

type Service interface {
	// Submit charges the user and records the task, publishing the work
	// message in the same transaction. The task is returned immediately in
	// waiting status; processing happens asynchronously.
	Submit(ctx context.Context, userID uuid.UUID, modelID int32, input string) (*models.Task, error)
	// Accept moves the task to in_progress before any processing work, so
	// a crash after acceptance is visible rather than silently lost.
	Accept(ctx context.Context, taskID uuid.UUID) (execution.AcceptResult, error)
	// Complete stores the result and finishes the task. Funds were spent
	// at submission; success moves no money.
	Complete(ctx context.Context, taskID uuid.UUID, result string) error
	// Fail moves the task to failed and writes the compensating refund in
	// one transaction. Calling it again for the same task is a no-op: a
	// task is never refunded twice.
	Fail(ctx context.Context, taskID uuid.UUID, reason string) error
	Get(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Task, error)
	// ReenqueueStale republishes messages for waiting tasks older than
	// olderThan, covering tasks whose queue job was lost out-of-band.
	// Paid work must not sit in waiting forever.
	ReenqueueStale(ctx context.Context, olderThan time.Duration) (int, error)
}

type service struct {
	store         Store
	ledger        ledger.Service
	catalog       ModelResolver
	insertPredict InsertPredictTxFunc
	inputRule     InputRule
	maxInputBytes int
}

// NewService creates the submission/lifecycle service. rule may be nil, in
// which case DefaultInputRule applies.
func NewService(store Store, ledgerSvc ledger.Service, catalog ModelResolver, insertPredict InsertPredictTxFunc, rule InputRule, maxInputBytes int) Service {
	if rule == nil {
		rule = DefaultInputRule
	}
	return &service{
		store:         store,
		ledger:        ledgerSvc,
		catalog:       catalog,
		insertPredict: insertPredict,
		inputRule:     rule,
		maxInputBytes: maxInputBytes,
	}
}

var _ Service = (*service)(nil)

func (s *service) validateInput(input string) error {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) < minInputLen {
		return fmt.Errorf("%w: input shorter than %d characters", ErrInvalidInput, minInputLen)
	}
	if s.maxInputBytes > 0 && len(input) > s.maxInputBytes {
		return fmt.Errorf("%w: input exceeds %d bytes", ErrInvalidInput, s.maxInputBytes)
	}
	if !s.inputRule(trimmed) {
		return fmt.Errorf("%w: input rejected by model input rule", ErrInvalidInput)
	}
	return nil
}

func (s *service) Submit(ctx context.Context, userID uuid.UUID, modelID int32, input string) (*models.Task, error) {
	model, err := s.catalog.GetModel(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:      uuid.New(),
		UserID:  userID,
		ModelID: model.ID,
		Input:   input,
		Status:  models.TaskWaiting,
	}
	// One transaction: task row, debit with its spend entry, and the queue
	// message. Insufficient funds (or a publish failure) rolls back all
	// three, so there is never a charged task without a message or a task
	// row without its funding spend.
	err = s.store.InTx(ctx, func(tx pgx.Tx) error {
		if err := s.store.Insert(ctx, tx, task); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		_, err := s.ledger.Debit(ctx, tx, userID, model.CostPerPrediction, task.ID,
			fmt.Sprintf("charge for model %s", model.Name))
		if err != nil {
			return err
		}
		return s.insertPredict(ctx, tx, execution.PredictArgs{
			TaskID:    task.ID.String(),
			Features:  execution.Features{Input: input},
			Model:     model.ID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *service) Accept(ctx context.Context, taskID uuid.UUID) (execution.AcceptResult, error) {
	ok, err := s.store.SetInProgress(ctx, taskID)
	if err != nil {
		return 0, err
	}
	if ok {
		return execution.AcceptStarted, nil
	}
	status, found, err := s.store.Status(ctx, taskID)
	if err != nil {
		return 0, err
	}
	switch {
	case !found:
		return execution.AcceptNotFound, nil
	case status == models.TaskInProgress:
		return execution.AcceptInProgress, nil
	case status.Terminal():
		return execution.AcceptDone, nil
	default:
		return 0, fmt.Errorf("task %s in unexpected status %s after accept", taskID, status)
	}
}

func (s *service) Complete(ctx context.Context, taskID uuid.UUID, result string) error {
	ok, err := s.store.SetCompleted(ctx, taskID, result)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	status, found, err := s.store.Status(ctx, taskID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("complete task %s: %w", taskID, ErrTaskNotFound)
	}
	return fmt.Errorf("complete task %s: %w: %s -> %s", taskID, ErrInvalidTransition, status, models.TaskCompleted)
}

func (s *service) Fail(ctx context.Context, taskID uuid.UUID, reason string) error {
	return s.store.InTx(ctx, func(tx pgx.Tx) error {
		refund, err := s.store.SetFailed(ctx, tx, taskID, reason)
		if err != nil {
			return err
		}
		if refund == nil {
			// Already terminal (or missing): the refund, if any, was
			// written by whoever got there first.
			return nil
		}
		if refund.AmountCents <= 0 {
			return nil
		}
		_, err = s.ledger.Credit(ctx, tx, refund.UserID, refund.AmountCents,
			models.TransactionRefund, &taskID,
			fmt.Sprintf("refund for failed task %s", taskID))
		if err != nil {
			return fmt.Errorf("refund task %s: %w", taskID, err)
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	t, err := s.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Task, error) {
	if limit <= 0 {
		limit = defaultTaskLimit
	}
	return s.store.ListByUser(ctx, userID, limit)
}

func (s *service) ReenqueueStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	stale, err := s.store.StaleWaiting(ctx, cutoff, reenqueueBatch)
	if err != nil {
		return 0, err
	}
	republished := 0
	for _, t := range stale {
		err := s.store.InTx(ctx, func(tx pgx.Tx) error {
			return s.insertPredict(ctx, tx, execution.PredictArgs{
				TaskID:    t.ID.String(),
				Features:  execution.Features{Input: t.Input},
				Model:     t.ModelID,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		})
		if err != nil {
			return republished, fmt.Errorf("re-enqueue task %s: %w", t.ID, err)
		}
		republished++
	}
	return republished, nil
}
