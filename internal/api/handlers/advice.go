package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dvloznov/wealthflow/internal/advice"
	"github.com/dvloznov/wealthflow/internal/api/middleware"
	"github.com/rs/zerolog"
)

// AdviceHandler exposes the AI advisor.
type AdviceHandler struct {
	sessions *SessionManager
	advisor  *advice.Advisor
	log      zerolog.Logger
}

// NewAdviceHandler creates a new advice handler.
func NewAdviceHandler(sessions *SessionManager, advisor *advice.Advisor, log zerolog.Logger) *AdviceHandler {
	return &AdviceHandler{sessions: sessions, advisor: advisor, log: log}
}

// Advice handles GET /api/advice, returning markdown commentary over the
// session's current snapshots.
func (h *AdviceHandler) Advice(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}

	text, err := h.advisor.FinancialAdvice(r.Context(), s.Store.Accounts(), s.Store.Transactions(), s.Store.Holdings())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to generate advice")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to generate advice")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"advice": text})
}

// Categorize handles POST /api/advice/categorize, suggesting a one-word
// category for a free-text description. It always succeeds; failures degrade
// to the default category.
func (h *AdviceHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	if _, ok := session(w, r, h.sessions); !ok {
		return
	}

	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Description == "" {
		middleware.WriteError(w, http.StatusBadRequest, "A description is required")
		return
	}

	category := h.advisor.Categorize(r.Context(), req.Description)
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"category": category})
}
