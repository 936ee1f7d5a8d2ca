package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dvloznov/wealthflow/internal/api/middleware"
	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/dvloznov/wealthflow/internal/ledger"
	"github.com/rs/zerolog"
)

// TransactionsHandler handles ledger endpoints. All writes go through the
// ledger coordinator so each transaction carries its compensating balance
// update.
type TransactionsHandler struct {
	sessions *SessionManager
	log      zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(sessions *SessionManager, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{sessions: sessions, log: log}
}

// List handles GET /api/transactions
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}

	transactions := s.Store.Transactions()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// Record handles POST /api/transactions
func (h *TransactionsHandler) Record(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}

	var tx domain.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := s.Ledger.RecordTransaction(r.Context(), tx)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrAccountNotFound):
			middleware.WriteError(w, http.StatusNotFound, "Account not found")
		case id != "":
			// The ledger entry was written but the balance update failed.
			// Surface the partial write so the client can reconcile.
			h.log.Error().Err(err).Str("transaction_id", id).Msg("Transaction recorded with balance drift")
			middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{
				"id":    id,
				"error": "Transaction recorded but the account balance was not updated",
			})
		default:
			writeMutationError(w, h.log, err, "Failed to record transaction")
		}
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Delete handles DELETE /api/transactions/{id}. Unknown ids are treated as
// already removed.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}

	if err := s.Ledger.RemoveTransaction(r.Context(), id); err != nil {
		writeMutationError(w, h.log, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reconcile handles POST /api/reconcile. The optional body maps account ids
// to their balances at creation; accounts not listed are assumed to have
// started at zero.
func (h *TransactionsHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}

	initial := make(map[string]float64)
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&initial); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	drifts := s.Ledger.Reconcile(initial)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"drifts":     drifts,
		"consistent": len(drifts) == 0,
	})
}
