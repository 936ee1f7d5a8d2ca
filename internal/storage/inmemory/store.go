package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/wealthflow/internal/storage"
	"github.com/google/uuid"
)

// Store is an in-memory implementation of storage.Store. It keeps documents
// in memory and pushes full owner-filtered snapshots to subscribers after
// every change. Data is lost on process exit - for persistence, use the
// BigQuery-backed store.
//
// Deliveries to a given subscription are serialized and monotonic: a later
// push always reflects a state at least as new as an earlier one.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]storage.Document
	subs        map[int64]*subscription
	nextSubID   int64

	// notifyMu serializes snapshot computation and delivery so concurrent
	// mutations cannot reorder pushes for a subscription.
	notifyMu sync.Mutex
}

type subscription struct {
	collection string
	ownerID    string
	fn         storage.SnapshotFunc
	cancelled  bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		collections: make(map[string]map[string]storage.Document),
		subs:        make(map[int64]*subscription),
	}
}

// Subscribe implements storage.Store. The callback receives one initial
// push with the current owner-filtered set before Subscribe returns.
func (s *Store) Subscribe(ctx context.Context, collection, ownerID string, fn storage.SnapshotFunc) (storage.CancelFunc, error) {
	if collection == "" {
		return nil, fmt.Errorf("Subscribe: collection is required")
	}
	if ownerID == "" {
		return nil, fmt.Errorf("Subscribe: ownerID is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("Subscribe: callback is required")
	}

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	sub := &subscription{collection: collection, ownerID: ownerID, fn: fn}
	s.subs[id] = sub
	s.mu.Unlock()

	// Initial push with the current state.
	s.notify(collection)

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			sub.cancelled = true
			delete(s.subs, id)
		}
	}
	return cancel, nil
}

// Insert implements storage.Store. It assigns a generated id, stores a copy
// of the document and notifies matching subscribers.
func (s *Store) Insert(ctx context.Context, collection string, doc storage.Document) (string, error) {
	if collection == "" {
		return "", fmt.Errorf("Insert: collection is required")
	}

	id := uuid.NewString()
	stored := copyDoc(doc)
	stored["id"] = id

	s.mu.Lock()
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]storage.Document)
		s.collections[collection] = docs
	}
	docs[id] = stored
	s.mu.Unlock()

	s.notify(collection)
	return id, nil
}

// Update implements storage.Store. It merges the patch into the stored
// document and notifies matching subscribers.
func (s *Store) Update(ctx context.Context, collection, id string, patch storage.Document) error {
	s.mu.Lock()
	docs, ok := s.collections[collection]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("Update: %s/%s: %w", collection, id, storage.ErrNotFound)
	}
	doc, ok := docs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("Update: %s/%s: %w", collection, id, storage.ErrNotFound)
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		doc[k] = v
	}
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

// Delete implements storage.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	docs, ok := s.collections[collection]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("Delete: %s/%s: %w", collection, id, storage.ErrNotFound)
	}
	if _, ok := docs[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("Delete: %s/%s: %w", collection, id, storage.ErrNotFound)
	}
	delete(docs, id)
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

// notify pushes the current owner-filtered full set of a collection to
// every live subscription on it.
func (s *Store) notify(collection string) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	type delivery struct {
		fn   storage.SnapshotFunc
		docs []storage.Document
	}

	s.mu.RLock()
	var deliveries []delivery
	for _, sub := range s.subs {
		if sub.cancelled || sub.collection != collection {
			continue
		}
		deliveries = append(deliveries, delivery{
			fn:   sub.fn,
			docs: s.snapshotLocked(collection, sub.ownerID),
		})
	}
	s.mu.RUnlock()

	// Callbacks run outside the data lock so they may call back into the
	// store without deadlocking.
	for _, d := range deliveries {
		d.fn(d.docs)
	}
}

// snapshotLocked returns copies of all documents in a collection owned by
// ownerID. Caller must hold at least a read lock.
func (s *Store) snapshotLocked(collection, ownerID string) []storage.Document {
	result := []storage.Document{}
	for _, doc := range s.collections[collection] {
		if owner, _ := doc[storage.OwnerField].(string); owner != ownerID {
			continue
		}
		result = append(result, copyDoc(doc))
	}
	return result
}

func copyDoc(doc storage.Document) storage.Document {
	out := make(storage.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// Ensure Store implements the storage interface.
var _ storage.Store = (*Store)(nil)
