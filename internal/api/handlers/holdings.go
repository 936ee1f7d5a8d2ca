package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dvloznov/wealthflow/internal/api/middleware"
	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/dvloznov/wealthflow/internal/storage"
	"github.com/rs/zerolog"
)

// HoldingsHandler handles stock portfolio endpoints.
type HoldingsHandler struct {
	sessions *SessionManager
	log      zerolog.Logger
}

// NewHoldingsHandler creates a new holdings handler.
func NewHoldingsHandler(sessions *SessionManager, log zerolog.Logger) *HoldingsHandler {
	return &HoldingsHandler{sessions: sessions, log: log}
}

type holdingView struct {
	domain.Holding
	GainLoss        float64 `json:"gain_loss"`
	GainLossPercent float64 `json:"gain_loss_percent"`
}

// List handles GET /api/holdings
func (h *HoldingsHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}

	holdings := s.Store.Holdings()
	views := make([]holdingView, 0, len(holdings))
	for _, holding := range holdings {
		views = append(views, holdingView{
			Holding:         holding,
			GainLoss:        domain.GainLoss(holding),
			GainLossPercent: domain.GainLossPercent(holding),
		})
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"holdings":    views,
		"count":       len(views),
		"total_value": domain.TotalStockValue(holdings),
	})
}

// Create handles POST /api/holdings
func (h *HoldingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}

	var holding domain.Holding
	if err := json.NewDecoder(r.Body).Decode(&holding); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := s.Store.CreateHolding(r.Context(), holding)
	if err != nil {
		writeMutationError(w, h.log, err, "Failed to create holding")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Update handles PUT /api/holdings/{id}
func (h *HoldingsHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}

	var patch storage.Document
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.Store.EditHolding(r.Context(), id, patch); err != nil {
		writeMutationError(w, h.log, err, "Failed to update holding")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Delete handles DELETE /api/holdings/{id}
func (h *HoldingsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}

	if err := s.Store.RemoveHolding(r.Context(), id); err != nil {
		writeMutationError(w, h.log, err, "Failed to delete holding")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh handles POST /api/holdings/refresh, repricing every holding once
// regardless of whether the background refresher is running.
func (h *HoldingsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}

	s.RefreshQuotes(r.Context())
	holdings := s.Store.Holdings()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"refreshed":   len(holdings),
		"total_value": domain.TotalStockValue(holdings),
	})
}
