package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/dvloznov/wealthflow/internal/syncstore"
	"github.com/rs/zerolog"
)

var (
	// ErrAccountNotFound is returned when the account referenced by an
	// in-flight transaction is missing from the snapshot, typically because
	// it was deleted concurrently. No writes are performed.
	ErrAccountNotFound = errors.New("referenced account not found")
)

// Coordinator preserves the balance invariant across transaction add and
// remove, the only two transaction mutations (an edit is modeled externally
// as remove + add). Every transaction write is paired with a compensating
// balance update against the owning account.
//
// The two writes are not atomic: the storage backend offers no
// multi-document transactions. If the balance update fails after the ledger
// write succeeded, the invariant is broken; the failure is reported to the
// caller and no automatic rollback is attempted, to avoid compounding
// partial-failure scenarios. Reconcile detects the resulting drift.
//
// The pair of operations is not idempotent: recording the same logical
// transaction twice double-counts. Callers must check the snapshot before
// retrying.
type Coordinator struct {
	store *syncstore.Store
	log   zerolog.Logger
}

// New creates a coordinator over the given sync store.
func New(store *syncstore.Store, log zerolog.Logger) *Coordinator {
	return &Coordinator{store: store, log: log}
}

// RecordTransaction validates tx, writes the ledger entry and adjusts the
// owning account's balance by the signed amount. The balance written is
// computed from the snapshot value read up front, not from live server
// state (a blind update, vulnerable to lost updates under concurrent
// writers from other sessions).
func (c *Coordinator) RecordTransaction(ctx context.Context, tx domain.Transaction) (string, error) {
	if err := domain.ValidateTransaction(tx); err != nil {
		return "", err
	}

	account, ok := c.store.AccountByID(tx.AccountID)
	if !ok {
		return "", fmt.Errorf("RecordTransaction: account %s: %w", tx.AccountID, ErrAccountNotFound)
	}

	txID, err := c.store.InsertTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("RecordTransaction: %w", err)
	}

	delta := domain.SignedAmount(tx)
	if err := c.store.UpdateAccountBalance(ctx, account.ID, account.Balance+delta); err != nil {
		// The ledger entry is committed but the balance is not adjusted.
		// Report the breach; Reconcile will surface the drift.
		c.log.Error().
			Err(err).
			Str("transaction_id", txID).
			Str("account_id", account.ID).
			Float64("delta", delta).
			Msg("Balance update failed after ledger write; account balance has drifted")
		return txID, fmt.Errorf("RecordTransaction: transaction %s recorded but balance update failed: %w", txID, err)
	}

	return txID, nil
}

// RemoveTransaction deletes a ledger entry and reverses its effect on the
// owning account. Removing an unknown id is a no-op. If the account no
// longer exists the correction is skipped: it is impossible and is not
// attempted against any surrogate.
func (c *Coordinator) RemoveTransaction(ctx context.Context, txID string) error {
	tx, ok := c.store.TransactionByID(txID)
	if !ok {
		return nil
	}

	if err := c.store.DeleteTransaction(ctx, txID); err != nil {
		return fmt.Errorf("RemoveTransaction: %w", err)
	}

	account, ok := c.store.AccountByID(tx.AccountID)
	if !ok {
		c.log.Warn().
			Str("transaction_id", txID).
			Str("account_id", tx.AccountID).
			Msg("Account missing on transaction removal; skipping balance correction")
		return nil
	}

	delta := domain.SignedAmount(tx)
	if err := c.store.UpdateAccountBalance(ctx, account.ID, account.Balance-delta); err != nil {
		c.log.Error().
			Err(err).
			Str("transaction_id", txID).
			Str("account_id", account.ID).
			Msg("Balance reversal failed after ledger delete; account balance has drifted")
		return fmt.Errorf("RemoveTransaction: transaction %s deleted but balance reversal failed: %w", txID, err)
	}

	return nil
}
