package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dvloznov/wealthflow/internal/api/middleware"
	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/dvloznov/wealthflow/internal/storage"
	"github.com/rs/zerolog"
)

// AccountsHandler handles bank account endpoints.
type AccountsHandler struct {
	sessions *SessionManager
	log      zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(sessions *SessionManager, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{sessions: sessions, log: log}
}

// List handles GET /api/accounts
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}

	accounts := s.Store.Accounts()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// Create handles POST /api/accounts
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}

	var account domain.Account
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := s.Store.CreateAccount(r.Context(), account)
	if err != nil {
		writeMutationError(w, h.log, err, "Failed to create account")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Update handles PUT /api/accounts/{id}
func (h *AccountsHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}

	var patch storage.Document
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.Store.EditAccount(r.Context(), id, patch); err != nil {
		writeMutationError(w, h.log, err, "Failed to update account")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Delete handles DELETE /api/accounts/{id}. Transactions referencing the
// account are retained; see the ledger coordinator for how their removal
// behaves afterwards.
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}

	if err := s.Store.RemoveAccount(r.Context(), id); err != nil {
		writeMutationError(w, h.log, err, "Failed to delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeMutationError maps storage and validation failures onto HTTP
// statuses: user input to 400, unknown ids to 404, the rest to 500.
func writeMutationError(w http.ResponseWriter, log zerolog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrTransferUnsupported):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg(fallback)
		middleware.WriteError(w, http.StatusInternalServerError, fallback)
	}
}
