package syncstore

import (
	"context"
	"fmt"

	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/dvloznov/wealthflow/internal/storage"
)

// Mutation passthroughs. Each forwards to the storage backend, tagging new
// documents with the attached user's id. No snapshot is mutated locally:
// the snapshot updates only when the subscription push for the write
// arrives, so callers see their own writes after the round trip, not
// before. A failed write leaves the snapshot at its last-known-good value.

// CreateAccount validates and inserts a new account for the attached user.
func (s *Store) CreateAccount(ctx context.Context, a domain.Account) (string, error) {
	userID, err := s.ownerID()
	if err != nil {
		return "", err
	}
	if err := domain.ValidateAccount(a); err != nil {
		return "", err
	}

	doc := storage.EncodeAccount(a)
	doc[storage.OwnerField] = userID
	id, err := s.db.Insert(ctx, storage.CollectionAccounts, doc)
	if err != nil {
		return "", fmt.Errorf("CreateAccount: %w", err)
	}
	return id, nil
}

// EditAccount applies a partial patch to an account. The id and owner tag
// cannot be patched.
func (s *Store) EditAccount(ctx context.Context, id string, patch storage.Document) error {
	if _, err := s.ownerID(); err != nil {
		return err
	}
	if err := s.db.Update(ctx, storage.CollectionAccounts, id, sanitizePatch(patch)); err != nil {
		return fmt.Errorf("EditAccount: %w", err)
	}
	return nil
}

// RemoveAccount deletes an account. Its transactions are retained; balance
// corrections for them become impossible and are skipped on removal.
func (s *Store) RemoveAccount(ctx context.Context, id string) error {
	if _, err := s.ownerID(); err != nil {
		return err
	}
	if err := s.db.Delete(ctx, storage.CollectionAccounts, id); err != nil {
		return fmt.Errorf("RemoveAccount: %w", err)
	}
	return nil
}

// CreateHolding validates and inserts a new holding for the attached user.
func (s *Store) CreateHolding(ctx context.Context, h domain.Holding) (string, error) {
	userID, err := s.ownerID()
	if err != nil {
		return "", err
	}
	if err := domain.ValidateHolding(h); err != nil {
		return "", err
	}

	doc := storage.EncodeHolding(h)
	doc[storage.OwnerField] = userID
	id, err := s.db.Insert(ctx, storage.CollectionHoldings, doc)
	if err != nil {
		return "", fmt.Errorf("CreateHolding: %w", err)
	}
	return id, nil
}

// EditHolding applies a partial patch to a holding.
func (s *Store) EditHolding(ctx context.Context, id string, patch storage.Document) error {
	if _, err := s.ownerID(); err != nil {
		return err
	}
	if err := s.db.Update(ctx, storage.CollectionHoldings, id, sanitizePatch(patch)); err != nil {
		return fmt.Errorf("EditHolding: %w", err)
	}
	return nil
}

// RemoveHolding deletes a holding.
func (s *Store) RemoveHolding(ctx context.Context, id string) error {
	if _, err := s.ownerID(); err != nil {
		return err
	}
	if err := s.db.Delete(ctx, storage.CollectionHoldings, id); err != nil {
		return fmt.Errorf("RemoveHolding: %w", err)
	}
	return nil
}

// InsertTransaction writes a ledger entry. Used only by the ledger
// coordinator, which owns the compensating balance update; nothing else
// may write transactions.
func (s *Store) InsertTransaction(ctx context.Context, tx domain.Transaction) (string, error) {
	userID, err := s.ownerID()
	if err != nil {
		return "", err
	}

	doc := storage.EncodeTransaction(tx)
	doc[storage.OwnerField] = userID
	id, err := s.db.Insert(ctx, storage.CollectionTransactions, doc)
	if err != nil {
		return "", fmt.Errorf("InsertTransaction: %w", err)
	}
	return id, nil
}

// DeleteTransaction removes a ledger entry. Used only by the ledger
// coordinator.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := s.ownerID(); err != nil {
		return err
	}
	if err := s.db.Delete(ctx, storage.CollectionTransactions, id); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}

// UpdateAccountBalance blindly sets an account balance. The value is
// computed by the coordinator from the snapshot read, not from live server
// state. Used only by the ledger coordinator.
func (s *Store) UpdateAccountBalance(ctx context.Context, accountID string, balance float64) error {
	if _, err := s.ownerID(); err != nil {
		return err
	}
	patch := storage.Document{"balance": balance}
	if err := s.db.Update(ctx, storage.CollectionAccounts, accountID, patch); err != nil {
		return fmt.Errorf("UpdateAccountBalance: %w", err)
	}
	return nil
}

// sanitizePatch strips fields a caller must not rewrite.
func sanitizePatch(patch storage.Document) storage.Document {
	out := make(storage.Document, len(patch))
	for k, v := range patch {
		if k == "id" || k == storage.OwnerField {
			continue
		}
		out[k] = v
	}
	return out
}
