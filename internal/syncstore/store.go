package syncstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/dvloznov/wealthflow/internal/storage"
	"github.com/rs/zerolog"
)

// ErrNotAttached is returned by mutation passthroughs when no user session
// is attached.
var ErrNotAttached = errors.New("sync store is not attached to a user")

// Store keeps three always-current snapshots (accounts, transactions,
// holdings) scoped to the attached user, fed by live subscriptions against
// the storage backend. Consumers read copies and never mutate the
// snapshots; all writes funnel through the passthrough methods so the
// ledger coordinator has a single entry point.
//
// Every Attach bumps a generation counter captured by the subscription
// callbacks; a push carrying a stale generation is discarded. This is what
// prevents a late-arriving push from a torn-down subscription from bleeding
// one user's data into another user's session.
type Store struct {
	db  storage.Store
	log zerolog.Logger

	mu           sync.Mutex
	userID       string
	generation   uint64
	cancels      []storage.CancelFunc
	accounts     []domain.Account
	transactions []domain.Transaction
	holdings     []domain.Holding

	listeners    map[int64]func()
	nextListener int64
}

// New creates a detached sync store backed by db.
func New(db storage.Store, log zerolog.Logger) *Store {
	return &Store{
		db:        db,
		log:       log,
		listeners: make(map[int64]func()),
	}
}

// Attach establishes the three live subscriptions for userID. If the store
// is already attached it fully detaches first, so no stale-user data is
// ever visible, even transiently.
func (s *Store) Attach(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("Attach: userID is required")
	}

	s.mu.Lock()
	stale := s.detachLocked()
	s.generation++
	gen := s.generation
	s.userID = userID
	s.mu.Unlock()

	for _, cancel := range stale {
		cancel()
	}

	// Subscriptions are established outside the lock: the backend delivers
	// the initial push synchronously and the callback needs the lock.
	targets := []string{
		storage.CollectionAccounts,
		storage.CollectionTransactions,
		storage.CollectionHoldings,
	}
	var cancels []storage.CancelFunc
	for _, collection := range targets {
		collection := collection
		cancel, err := s.db.Subscribe(ctx, collection, userID, func(docs []storage.Document) {
			s.apply(gen, collection, docs)
		})
		if err != nil {
			for _, c := range cancels {
				c()
			}
			s.mu.Lock()
			if s.generation == gen {
				s.resetLocked()
			}
			s.mu.Unlock()
			return fmt.Errorf("Attach: subscribing to %s: %w", collection, err)
		}
		cancels = append(cancels, cancel)
	}

	s.mu.Lock()
	if s.generation != gen {
		// Detached or re-attached while we were subscribing; these
		// subscriptions belong to a dead session.
		s.mu.Unlock()
		for _, c := range cancels {
			c()
		}
		return fmt.Errorf("Attach: session superseded while attaching")
	}
	s.cancels = cancels
	s.mu.Unlock()

	s.log.Info().Str("user_id", userID).Msg("Sync store attached")
	return nil
}

// Detach cancels all subscriptions and clears the snapshots. After Detach
// returns, no callback can mutate state: the generation bump invalidates
// pushes from subscriptions whose cancellation is still in flight.
func (s *Store) Detach() {
	s.mu.Lock()
	userID := s.userID
	cancels := s.detachLocked()
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if userID != "" {
		s.log.Info().Str("user_id", userID).Msg("Sync store detached")
	}
}

// detachLocked bumps the generation, clears all state and returns the
// cancel functions to run outside the lock.
func (s *Store) detachLocked() []storage.CancelFunc {
	cancels := s.cancels
	s.generation++
	s.resetLocked()
	return cancels
}

func (s *Store) resetLocked() {
	s.userID = ""
	s.cancels = nil
	s.accounts = nil
	s.transactions = nil
	s.holdings = nil
}

// apply installs a full-replacement push for one collection, unless the
// push belongs to a superseded generation.
func (s *Store) apply(gen uint64, collection string, docs []storage.Document) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.log.Debug().Str("collection", collection).Msg("Discarding stale push")
		return
	}

	switch collection {
	case storage.CollectionAccounts:
		accounts := make([]domain.Account, 0, len(docs))
		for _, doc := range docs {
			accounts = append(accounts, storage.DecodeAccount(doc))
		}
		s.accounts = accounts
	case storage.CollectionTransactions:
		transactions := make([]domain.Transaction, 0, len(docs))
		for _, doc := range docs {
			transactions = append(transactions, storage.DecodeTransaction(doc))
		}
		// Newest first, stable on ties.
		sort.SliceStable(transactions, func(i, j int) bool {
			return transactions[i].Date.After(transactions[j].Date)
		})
		s.transactions = transactions
	case storage.CollectionHoldings:
		holdings := make([]domain.Holding, 0, len(docs))
		for _, doc := range docs {
			holdings = append(holdings, storage.DecodeHolding(doc))
		}
		s.holdings = holdings
	}

	listeners := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// UserID returns the attached user id, or "" when detached.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Accounts returns a copy of the accounts snapshot.
func (s *Store) Accounts() []domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Account, len(s.accounts))
	copy(out, s.accounts)
	return out
}

// Transactions returns a copy of the transactions snapshot, sorted by date
// descending.
func (s *Store) Transactions() []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Holdings returns a copy of the holdings snapshot.
func (s *Store) Holdings() []domain.Holding {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Holding, len(s.holdings))
	copy(out, s.holdings)
	return out
}

// AccountByID looks up an account in the current snapshot.
func (s *Store) AccountByID(id string) (domain.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Account{}, false
}

// TransactionByID looks up a transaction in the current snapshot.
func (s *Store) TransactionByID(id string) (domain.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.transactions {
		if tx.ID == id {
			return tx, true
		}
	}
	return domain.Transaction{}, false
}

// Snapshot derives the aggregate view from the current snapshots.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.BuildSnapshot(s.accounts, s.transactions, s.holdings)
}

// OnChange registers fn to run after every applied push. The returned
// CancelFunc removes the listener.
func (s *Store) OnChange(fn func()) storage.CancelFunc {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// ownerID returns the attached user id or ErrNotAttached.
func (s *Store) ownerID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == "" {
		return "", ErrNotAttached
	}
	return s.userID, nil
}
