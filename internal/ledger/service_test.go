package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictpay/backend/internal/models"
)

// memStore is an in-memory Store so the service logic runs without a
// database. Tx arguments are ignored; InTx applies fn directly, which is
// enough because the mock's individual operations are already atomic under
// its mutex.
type memStore struct {
	mu           sync.Mutex
	balances     map[uuid.UUID]int64
	deleted      map[uuid.UUID]bool
	transactions []*models.Transaction
}

func newMemStore() *memStore {
	return &memStore{
		balances: make(map[uuid.UUID]int64),
		deleted:  make(map[uuid.UUID]bool),
	}
}

func (m *memStore) addUser(id uuid.UUID, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[id] = balance
}

func (m *memStore) InTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return fn(nil)
}

func (m *memStore) DeductBalance(_ context.Context, _ pgx.Tx, userID uuid.UUID, amountCents int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[userID]
	if !ok || bal < amountCents {
		return false, nil
	}
	m.balances[userID] = bal - amountCents
	return true, nil
}

func (m *memStore) AddBalance(_ context.Context, _ pgx.Tx, userID uuid.UUID, amountCents int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[userID]; !ok {
		return false, nil
	}
	m.balances[userID] += amountCents
	return true, nil
}

func (m *memStore) InsertTransaction(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.transactions = append(m.transactions, &cp)
	return nil
}

func (m *memStore) Balance(_ context.Context, userID uuid.UUID) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[userID]
	return bal, ok, nil
}

func (m *memStore) Transactions(_ context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for i := len(m.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if m.transactions[i].UserID == userID {
			out = append(out, m.transactions[i])
		}
	}
	return out, nil
}

func (m *memStore) UserActive(_ context.Context, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.balances[userID]
	return ok && !m.deleted[userID], nil
}

// ledgerSum is the balance reconstructed from the transaction log.
func (m *memStore) ledgerSum(userID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, t := range m.transactions {
		if t.UserID == userID {
			sum += t.AmountCents
		}
	}
	return sum
}

func TestDebitRejectsNonPositiveAmounts(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	store.addUser(userID, 500)
	svc := NewService(store)

	for _, amount := range []int64{0, -100} {
		_, err := svc.Debit(context.Background(), nil, userID, amount, uuid.New(), "bad")
		require.ErrorIs(t, err, ErrInvalidAmount)
	}
	assert.Empty(t, store.transactions)
}

func TestDebitInsufficientFundsLeavesNoTrace(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	store.addUser(userID, 50)
	svc := NewService(store)

	_, err := svc.Debit(context.Background(), nil, userID, 100, uuid.New(), "charge")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	bal, err := svc.BalanceOf(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), bal)
	assert.Empty(t, store.transactions)
}

func TestDebitWritesSpendEntry(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	taskID := uuid.New()
	store.addUser(userID, 0)
	svc := NewService(store)

	_, err := svc.TopUp(context.Background(), userID, 200)
	require.NoError(t, err)

	tx, err := svc.Debit(context.Background(), nil, userID, 100, taskID, "charge for model word-stats-basic")
	require.NoError(t, err)

	assert.Equal(t, int64(-100), tx.AmountCents)
	assert.Equal(t, models.TransactionSpend, tx.Kind)
	require.NotNil(t, tx.RelatedTaskID)
	assert.Equal(t, taskID, *tx.RelatedTaskID)

	bal, err := svc.BalanceOf(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), bal)
	assert.Equal(t, bal, store.ledgerSum(userID))
}

func TestTopUpAndRefundKeepLedgerConsistent(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	taskID := uuid.New()
	store.addUser(userID, 0)
	svc := NewService(store)

	_, err := svc.TopUp(context.Background(), userID, 200)
	require.NoError(t, err)
	_, err = svc.Debit(context.Background(), nil, userID, 100, taskID, "charge")
	require.NoError(t, err)
	_, err = svc.Credit(context.Background(), nil, userID, 100, models.TransactionRefund, &taskID, "refund")
	require.NoError(t, err)

	// The balance equals the sum of the user's ledger at every point; check
	// the final state here.
	bal, err := svc.BalanceOf(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), bal)
	assert.Equal(t, bal, store.ledgerSum(userID))

	history, err := svc.Transactions(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	// Newest first: refund, spend, top_up.
	assert.Equal(t, models.TransactionRefund, history[0].Kind)
	assert.Equal(t, models.TransactionSpend, history[1].Kind)
	assert.Equal(t, models.TransactionTopUp, history[2].Kind)
	assert.Nil(t, history[2].RelatedTaskID)
}

func TestTopUpRejectsDeletedOrUnknownUsers(t *testing.T) {
	store := newMemStore()
	deletedID := uuid.New()
	store.addUser(deletedID, 0)
	store.deleted[deletedID] = true
	svc := NewService(store)

	_, err := svc.TopUp(context.Background(), deletedID, 100)
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.TopUp(context.Background(), uuid.New(), 100)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreditUnknownUser(t *testing.T) {
	svc := NewService(newMemStore())
	_, err := svc.Credit(context.Background(), nil, uuid.New(), 100, models.TransactionTopUp, nil, "")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestBalanceOfUnknownUser(t *testing.T) {
	svc := NewService(newMemStore())
	_, err := svc.BalanceOf(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrUserNotFound)
}
