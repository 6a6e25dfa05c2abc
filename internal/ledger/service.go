package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/predictpay/backend/internal/models"
)

// ErrInsufficientFunds is returned when a debit exceeds the user's balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInvalidAmount is returned for debits or credits of a non-positive amount.
var ErrInvalidAmount = errors.New("amount must be positive")

// ErrUserNotFound is returned when the user does not exist or is deleted.
var ErrUserNotFound = errors.New("user not found")

// Service owns all balance mutations. Every mutation appends a transaction
// row in the same unit of work as the balance change, keeping the invariant
// that a balance equals the sum of its ledger entries.
type Service interface {
	// Debit charges the user inside the caller's transaction, recording a
	// negative spend entry tied to taskID.
	Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64, taskID uuid.UUID, description string) (*models.Transaction, error)
	// Credit adds funds inside the caller's transaction. kind is top_up
	// (relatedTaskID nil) or refund (relatedTaskID set).
	Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64, kind string, relatedTaskID *uuid.UUID, description string) (*models.Transaction, error)
	// TopUp credits an active user in its own transaction.
	TopUp(ctx context.Context, userID uuid.UUID, amountCents int64) (*models.Transaction, error)
	BalanceOf(ctx context.Context, userID uuid.UUID) (int64, error)
	// Transactions returns the user's ledger history, newest first. History
	// stays readable for soft-deleted users.
	Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error)
}

const defaultHistoryLimit = 100

type service struct {
	store Store
}

func NewService(store Store) Service {
	return &service{store: store}
}

var _ Service = (*service)(nil)

func (s *service) Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64, taskID uuid.UUID, description string) (*models.Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	ok, err := s.store.DeductBalance(ctx, tx, userID, amountCents)
	if err != nil {
		return nil, fmt.Errorf("deduct balance: %w", err)
	}
	if !ok {
		return nil, ErrInsufficientFunds
	}
	t := &models.Transaction{
		ID:            uuid.New(),
		UserID:        userID,
		AmountCents:   -amountCents,
		Kind:          models.TransactionSpend,
		RelatedTaskID: &taskID,
		Description:   description,
	}
	if err := s.store.InsertTransaction(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("record spend: %w", err)
	}
	return t, nil
}

func (s *service) Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64, kind string, relatedTaskID *uuid.UUID, description string) (*models.Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	ok, err := s.store.AddBalance(ctx, tx, userID, amountCents)
	if err != nil {
		return nil, fmt.Errorf("add balance: %w", err)
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	t := &models.Transaction{
		ID:            uuid.New(),
		UserID:        userID,
		AmountCents:   amountCents,
		Kind:          kind,
		RelatedTaskID: relatedTaskID,
		Description:   description,
	}
	if err := s.store.InsertTransaction(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("record credit: %w", err)
	}
	return t, nil
}

func (s *service) TopUp(ctx context.Context, userID uuid.UUID, amountCents int64) (*models.Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	active, err := s.store.UserActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrUserNotFound
	}
	var t *models.Transaction
	err = s.store.InTx(ctx, func(tx pgx.Tx) error {
		t, err = s.Credit(ctx, tx, userID, amountCents, models.TransactionTopUp, nil, "balance top-up")
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) BalanceOf(ctx context.Context, userID uuid.UUID) (int64, error) {
	amount, found, err := s.store.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrUserNotFound
	}
	return amount, nil
}

func (s *service) Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.Transactions(ctx, userID, limit)
}
