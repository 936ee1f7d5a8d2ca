package syncstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/dvloznov/wealthflow/internal/storage"
	"github.com/dvloznov/wealthflow/internal/storage/inmemory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore records subscriptions and lets tests deliver pushes by hand,
// including pushes on subscriptions that were already torn down. Used to
// exercise the generation-token guard.
type fakeStore struct {
	mu      sync.Mutex
	subs    []*fakeSub
	subErr  map[string]error
	inserts int
	updates int
	deletes int
}

type fakeSub struct {
	collection string
	ownerID    string
	fn         storage.SnapshotFunc
	cancelled  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{subErr: make(map[string]error)}
}

func (f *fakeStore) Subscribe(ctx context.Context, collection, ownerID string, fn storage.SnapshotFunc) (storage.CancelFunc, error) {
	f.mu.Lock()
	if err := f.subErr[collection]; err != nil {
		f.mu.Unlock()
		return nil, err
	}
	sub := &fakeSub{collection: collection, ownerID: ownerID, fn: fn}
	f.subs = append(f.subs, sub)
	f.mu.Unlock()

	fn([]storage.Document{})
	return func() {
		f.mu.Lock()
		sub.cancelled = true
		f.mu.Unlock()
	}, nil
}

func (f *fakeStore) Insert(ctx context.Context, collection string, doc storage.Document) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	return fmt.Sprintf("doc-%d", f.inserts), nil
}

func (f *fakeStore) Update(ctx context.Context, collection, id string, patch storage.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return nil
}

// sub returns the n-th live or dead subscription for a collection.
func (f *fakeStore) sub(collection string, n int) *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := 0
	for _, s := range f.subs {
		if s.collection != collection {
			continue
		}
		if i == n {
			return s
		}
		i++
	}
	return nil
}

var _ storage.Store = (*fakeStore)(nil)

func TestStore_AttachSubscribesThreeCollections(t *testing.T) {
	fake := newFakeStore()
	s := New(fake, zerolog.Nop())

	require.NoError(t, s.Attach(context.Background(), "u1"))
	defer s.Detach()

	assert.Equal(t, "u1", s.UserID())
	require.NotNil(t, fake.sub(storage.CollectionAccounts, 0))
	require.NotNil(t, fake.sub(storage.CollectionTransactions, 0))
	require.NotNil(t, fake.sub(storage.CollectionHoldings, 0))
	assert.Equal(t, "u1", fake.sub(storage.CollectionAccounts, 0).ownerID)
}

func TestStore_PushReplacesSnapshot(t *testing.T) {
	fake := newFakeStore()
	s := New(fake, zerolog.Nop())
	require.NoError(t, s.Attach(context.Background(), "u1"))
	defer s.Detach()

	sub := fake.sub(storage.CollectionAccounts, 0)
	sub.fn([]storage.Document{
		{"id": "a1", "name": "Primary Savings", "balance": float64(150000)},
		{"id": "a2", "name": "Salary Account", "balance": float64(45000)},
	})

	accounts := s.Accounts()
	require.Len(t, accounts, 2)

	// A later push is authoritative full state, not a delta.
	sub.fn([]storage.Document{{"id": "a1", "name": "Primary Savings", "balance": float64(150000)}})
	assert.Len(t, s.Accounts(), 1)
}

func TestStore_TransactionsSortedByDateDescending(t *testing.T) {
	fake := newFakeStore()
	s := New(fake, zerolog.Nop())
	require.NoError(t, s.Attach(context.Background(), "u1"))
	defer s.Detach()

	day := func(n int) string {
		return time.Date(2026, 8, n, 0, 0, 0, 0, time.UTC).Format(time.RFC3339Nano)
	}
	fake.sub(storage.CollectionTransactions, 0).fn([]storage.Document{
		{"id": "t1", "date": day(3), "amount": float64(10), "type": "EXPENSE"},
		{"id": "t2", "date": day(9), "amount": float64(20), "type": "EXPENSE"},
		{"id": "t3", "date": day(6), "amount": float64(30), "type": "INCOME"},
	})

	txs := s.Transactions()
	require.Len(t, txs, 3)
	assert.Equal(t, []string{"t2", "t3", "t1"}, []string{txs[0].ID, txs[1].ID, txs[2].ID})
}

func TestStore_ReattachDiscardsDelayedPushFromOldUser(t *testing.T) {
	fake := newFakeStore()
	s := New(fake, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, s.Attach(ctx, "u1"))
	oldSub := fake.sub(storage.CollectionAccounts, 0)

	// Re-attach with a different user while the old subscription still has
	// a push in flight.
	require.NoError(t, s.Attach(ctx, "u2"))
	defer s.Detach()

	assert.True(t, oldSub.cancelled, "old subscription should be cancelled on re-attach")

	// The delayed push from u1's subscription arrives after re-attach. It
	// must not reach u2's snapshot.
	oldSub.fn([]storage.Document{{"id": "a1", "name": "u1 account", "balance": float64(999)}})

	assert.Equal(t, "u2", s.UserID())
	assert.Empty(t, s.Accounts(), "stale push must not mutate the new user's snapshot")
}

func TestStore_DetachStopsBufferedPushes(t *testing.T) {
	fake := newFakeStore()
	s := New(fake, zerolog.Nop())
	require.NoError(t, s.Attach(context.Background(), "u1"))

	sub := fake.sub(storage.CollectionHoldings, 0)
	sub.fn([]storage.Document{{"id": "h1", "symbol": "2330", "quantity": float64(1000)}})
	require.Len(t, s.Holdings(), 1)

	s.Detach()

	assert.Empty(t, s.Holdings(), "detach clears snapshots")
	assert.Equal(t, "", s.UserID())

	// A buffered push delivered after Detach must be discarded.
	sub.fn([]storage.Document{{"id": "h1", "symbol": "2330", "quantity": float64(1000)}})
	assert.Empty(t, s.Holdings())
}

func TestStore_AttachFailureCleansUp(t *testing.T) {
	fake := newFakeStore()
	fake.subErr[storage.CollectionHoldings] = fmt.Errorf("subscription rejected")
	s := New(fake, zerolog.Nop())

	err := s.Attach(context.Background(), "u1")
	require.Error(t, err)

	assert.Equal(t, "", s.UserID())
	assert.True(t, fake.sub(storage.CollectionAccounts, 0).cancelled)
	assert.True(t, fake.sub(storage.CollectionTransactions, 0).cancelled)
}

func TestStore_MutationsRequireAttachment(t *testing.T) {
	s := New(newFakeStore(), zerolog.Nop())
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, domain.Account{Name: "x", Currency: "TWD"})
	assert.ErrorIs(t, err, ErrNotAttached)

	err = s.RemoveHolding(ctx, "h1")
	assert.ErrorIs(t, err, ErrNotAttached)

	err = s.UpdateAccountBalance(ctx, "a1", 100)
	assert.ErrorIs(t, err, ErrNotAttached)
}

func TestStore_CreateAccountRejectsInvalidInput(t *testing.T) {
	fake := newFakeStore()
	s := New(fake, zerolog.Nop())
	require.NoError(t, s.Attach(context.Background(), "u1"))
	defer s.Detach()

	_, err := s.CreateAccount(context.Background(), domain.Account{Currency: "TWD"})
	require.Error(t, err)
	assert.Equal(t, 0, fake.inserts, "invalid input must be rejected before any write")
}

func TestStore_OnChangeFiresAfterAppliedPush(t *testing.T) {
	fake := newFakeStore()
	s := New(fake, zerolog.Nop())
	require.NoError(t, s.Attach(context.Background(), "u1"))
	defer s.Detach()

	fired := 0
	cancel := s.OnChange(func() { fired++ })
	defer cancel()

	fake.sub(storage.CollectionAccounts, 0).fn([]storage.Document{{"id": "a1"}})
	assert.Equal(t, 1, fired)

	cancel()
	fake.sub(storage.CollectionAccounts, 0).fn([]storage.Document{})
	assert.Equal(t, 1, fired, "cancelled listener must not fire")
}

// End-to-end against the real in-memory backend: writes round-trip back
// into the snapshot through the subscription push.
func TestStore_RoundTripWithInMemoryBackend(t *testing.T) {
	ctx := context.Background()
	db := inmemory.NewStore()
	s := New(db, zerolog.Nop())
	require.NoError(t, s.Attach(ctx, "u1"))
	defer s.Detach()

	id, err := s.CreateAccount(ctx, domain.Account{
		Name:            "Primary Savings",
		InstitutionName: "CTBC Bank",
		Currency:        "TWD",
		Balance:         150000,
	})
	require.NoError(t, err)

	accounts := s.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, id, accounts[0].ID)
	assert.Equal(t, 150000.0, accounts[0].Balance)

	require.NoError(t, s.EditAccount(ctx, id, storage.Document{"name": "Emergency Fund"}))
	assert.Equal(t, "Emergency Fund", s.Accounts()[0].Name)

	require.NoError(t, s.RemoveAccount(ctx, id))
	assert.Empty(t, s.Accounts())
}

func TestStore_SnapshotDerivesFromCollections(t *testing.T) {
	fake := newFakeStore()
	s := New(fake, zerolog.Nop())
	require.NoError(t, s.Attach(context.Background(), "u1"))
	defer s.Detach()

	fake.sub(storage.CollectionAccounts, 0).fn([]storage.Document{
		{"id": "a1", "balance": float64(150000)},
		{"id": "a2", "balance": float64(45000)},
	})
	fake.sub(storage.CollectionHoldings, 0).fn([]storage.Document{
		{"id": "h1", "quantity": float64(1000), "currentPrice": float64(980)},
		{"id": "h2", "quantity": float64(50), "currentPrice": float64(175)},
		{"id": "h3", "quantity": float64(2000), "currentPrice": float64(165)},
	})

	snap := s.Snapshot()
	assert.Equal(t, 195000.0, snap.TotalCash)
	assert.Equal(t, 1318750.0, snap.TotalStockValue)
	assert.Equal(t, 1513750.0, snap.NetWorth)
}
