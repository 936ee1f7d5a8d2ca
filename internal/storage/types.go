package storage

import (
	"context"
	"errors"
)

// Collection names for the three live collections. Every document in every
// collection carries an "ownerId" field; all queries filter on it and no
// cross-user query path exists.
const (
	CollectionAccounts     = "accounts"
	CollectionTransactions = "transactions"
	CollectionHoldings     = "holdings"
)

// OwnerField is the document field holding the owning user's id.
const OwnerField = "ownerId"

// ErrNotFound is returned by Update and Delete when no document with the
// given id exists in the collection.
var ErrNotFound = errors.New("document not found")

// Document is the schemaless record exchanged with the storage backend.
// Values are strings, float64 numbers, or time values encoded as RFC 3339
// strings; the codec helpers in this package handle decoding.
type Document map[string]interface{}

// CancelFunc tears down a subscription. Safe to call more than once.
type CancelFunc func()

// SnapshotFunc receives the complete current document set for a
// subscription. The slice is the authoritative full state for the
// collection, never a delta, and must not be retained past the call.
type SnapshotFunc func(docs []Document)

// Store is the storage collaborator contract: durable collections with
// owner-filtered live-query subscriptions. Implementations must deliver an
// initial push on Subscribe and preserve push ordering per subscription;
// no ordering is guaranteed across collections.
type Store interface {
	// Subscribe registers fn for the complete owner-filtered document set
	// of a collection, delivered once immediately and again after every
	// change. The returned CancelFunc stops further deliveries.
	Subscribe(ctx context.Context, collection, ownerID string, fn SnapshotFunc) (CancelFunc, error)

	// Insert stores a new document and returns its generated id.
	Insert(ctx context.Context, collection string, doc Document) (string, error)

	// Update applies a partial patch to an existing document.
	Update(ctx context.Context, collection, id string, patch Document) error

	// Delete removes a document. Deleting an unknown id returns ErrNotFound.
	Delete(ctx context.Context, collection, id string) error
}
