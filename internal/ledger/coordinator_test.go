package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/dvloznov/wealthflow/internal/storage"
	"github.com/dvloznov/wealthflow/internal/storage/inmemory"
	"github.com/dvloznov/wealthflow/internal/syncstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore wraps the in-memory backend, counting writes and optionally
// failing balance updates to simulate the partial-failure window between a
// ledger write and its compensating update.
type countingStore struct {
	inner *inmemory.Store

	mu          sync.Mutex
	inserts     int
	updates     int
	deletes     int
	failUpdates bool
}

func newCountingStore() *countingStore {
	return &countingStore{inner: inmemory.NewStore()}
}

func (c *countingStore) Subscribe(ctx context.Context, collection, ownerID string, fn storage.SnapshotFunc) (storage.CancelFunc, error) {
	return c.inner.Subscribe(ctx, collection, ownerID, fn)
}

func (c *countingStore) Insert(ctx context.Context, collection string, doc storage.Document) (string, error) {
	c.mu.Lock()
	c.inserts++
	c.mu.Unlock()
	return c.inner.Insert(ctx, collection, doc)
}

func (c *countingStore) Update(ctx context.Context, collection, id string, patch storage.Document) error {
	c.mu.Lock()
	fail := c.failUpdates
	c.updates++
	c.mu.Unlock()
	if fail {
		return fmt.Errorf("update rejected")
	}
	return c.inner.Update(ctx, collection, id, patch)
}

func (c *countingStore) Delete(ctx context.Context, collection, id string) error {
	c.mu.Lock()
	c.deletes++
	c.mu.Unlock()
	return c.inner.Delete(ctx, collection, id)
}

func (c *countingStore) writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inserts + c.updates + c.deletes
}

var _ storage.Store = (*countingStore)(nil)

type fixture struct {
	db    *countingStore
	store *syncstore.Store
	coord *Coordinator
}

// newFixture attaches a session for u1 with one account at the given
// starting balance. The in-memory backend pushes synchronously, so writes
// are visible in the snapshot as soon as the call returns.
func newFixture(t *testing.T, initialBalance float64) (*fixture, string) {
	t.Helper()
	db := newCountingStore()
	store := syncstore.New(db, zerolog.Nop())
	require.NoError(t, store.Attach(context.Background(), "u1"))
	t.Cleanup(store.Detach)

	coord := New(store, zerolog.Nop())
	accountID, err := store.CreateAccount(context.Background(), domain.Account{
		Name:            "Primary Savings",
		InstitutionName: "CTBC Bank",
		Currency:        "TWD",
		Balance:         initialBalance,
	})
	require.NoError(t, err)
	return &fixture{db: db, store: store, coord: coord}, accountID
}

func expense(accountID string, amount float64, category string) domain.Transaction {
	return domain.Transaction{
		AccountID: accountID,
		Amount:    amount,
		Type:      domain.TypeExpense,
		Category:  category,
		Date:      time.Now(),
	}
}

func income(accountID string, amount float64, category string) domain.Transaction {
	tx := expense(accountID, amount, category)
	tx.Type = domain.TypeIncome
	return tx
}

// balance reads the account's current balance from the snapshot.
func (f *fixture) balance(t *testing.T, accountID string) float64 {
	t.Helper()
	account, ok := f.store.AccountByID(accountID)
	require.True(t, ok)
	return account.Balance
}

// requireInvariant asserts balance == initial + sum of signed amounts of
// all existing transactions against the account.
func (f *fixture) requireInvariant(t *testing.T, accountID string, initial float64) {
	t.Helper()
	var sum float64
	for _, tx := range f.store.Transactions() {
		if tx.AccountID == accountID {
			sum += domain.SignedAmount(tx)
		}
	}
	require.InDelta(t, initial+sum, f.balance(t, accountID), 1e-9)
}

func TestRecordTransaction_AdjustsBalance(t *testing.T) {
	f, accountID := newFixture(t, 150000)
	ctx := context.Background()

	_, err := f.coord.RecordTransaction(ctx, income(accountID, 65000, "Salary"))
	require.NoError(t, err)
	assert.Equal(t, 215000.0, f.balance(t, accountID))

	_, err = f.coord.RecordTransaction(ctx, expense(accountID, 12000, "Housing"))
	require.NoError(t, err)
	assert.Equal(t, 203000.0, f.balance(t, accountID))

	f.requireInvariant(t, accountID, 150000)
}

func TestInvariant_HoldsAcrossSequences(t *testing.T) {
	f, accountID := newFixture(t, 45000)
	ctx := context.Background()

	var txIDs []string
	steps := []domain.Transaction{
		income(accountID, 65000, "Salary"),
		expense(accountID, 350, "Food"),
		expense(accountID, 1500, "Transport"),
		income(accountID, 8000, "Bonus"),
		expense(accountID, 12000, "Housing"),
	}
	for _, tx := range steps {
		id, err := f.coord.RecordTransaction(ctx, tx)
		require.NoError(t, err)
		txIDs = append(txIDs, id)
		f.requireInvariant(t, accountID, 45000)
	}

	// Remove in mixed order; the invariant must hold after every call.
	for _, i := range []int{2, 0, 4, 1, 3} {
		require.NoError(t, f.coord.RemoveTransaction(ctx, txIDs[i]))
		f.requireInvariant(t, accountID, 45000)
	}

	assert.Equal(t, 45000.0, f.balance(t, accountID))
	assert.Empty(t, f.store.Transactions())
}

func TestRemoveTransaction_UnknownIDIsNoOp(t *testing.T) {
	f, accountID := newFixture(t, 1000)
	writesBefore := f.db.writes()

	require.NoError(t, f.coord.RemoveTransaction(context.Background(), "no-such-tx"))

	assert.Equal(t, writesBefore, f.db.writes(), "no-op must not issue writes")
	assert.Equal(t, 1000.0, f.balance(t, accountID))
}

func TestRecordTransaction_UnknownAccount(t *testing.T) {
	f, _ := newFixture(t, 1000)
	writesBefore := f.db.writes()

	_, err := f.coord.RecordTransaction(context.Background(), expense("no-such-account", 100, "Food"))

	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Equal(t, writesBefore, f.db.writes(), "reference error must perform zero writes")
}

func TestRecordTransaction_TransferRejected(t *testing.T) {
	f, accountID := newFixture(t, 1000)
	writesBefore := f.db.writes()

	tx := expense(accountID, 100, "Other")
	tx.Type = domain.TypeTransfer
	_, err := f.coord.RecordTransaction(context.Background(), tx)

	assert.ErrorIs(t, err, domain.ErrTransferUnsupported)
	assert.Equal(t, writesBefore, f.db.writes())
}

func TestRemoveTransaction_AccountDeleted(t *testing.T) {
	f, accountID := newFixture(t, 1000)
	ctx := context.Background()

	txID, err := f.coord.RecordTransaction(ctx, expense(accountID, 100, "Food"))
	require.NoError(t, err)

	// Deleting the account orphans the transaction.
	require.NoError(t, f.store.RemoveAccount(ctx, accountID))
	require.Len(t, f.store.Transactions(), 1, "account deletion does not cascade")

	// Removal degrades gracefully: the ledger entry goes, the impossible
	// balance correction is skipped.
	require.NoError(t, f.coord.RemoveTransaction(ctx, txID))
	assert.Empty(t, f.store.Transactions())
}

func TestRecordTransaction_BalanceUpdateFailure(t *testing.T) {
	f, accountID := newFixture(t, 1000)
	ctx := context.Background()

	f.db.failUpdates = true
	txID, err := f.coord.RecordTransaction(ctx, expense(accountID, 100, "Food"))

	require.Error(t, err, "partial failure must be reported")
	assert.NotEmpty(t, txID, "ledger entry is committed and not rolled back")
	require.Len(t, f.store.Transactions(), 1)
	assert.Equal(t, 1000.0, f.balance(t, accountID), "balance does not reflect the entry")

	// The breach is detectable by reconciliation.
	drifts := f.coord.Reconcile(map[string]float64{accountID: 1000})
	require.Len(t, drifts, 1)
	assert.Equal(t, accountID, drifts[0].AccountID)
	assert.Equal(t, 1000.0, drifts[0].Stored)
	assert.Equal(t, 900.0, drifts[0].Computed)
}

func TestReconcile_CleanLedger(t *testing.T) {
	f, accountID := newFixture(t, 5000)
	ctx := context.Background()

	_, err := f.coord.RecordTransaction(ctx, income(accountID, 1000, "Salary"))
	require.NoError(t, err)
	_, err = f.coord.RecordTransaction(ctx, expense(accountID, 250, "Food"))
	require.NoError(t, err)

	assert.Empty(t, f.coord.Reconcile(map[string]float64{accountID: 5000}))
}
