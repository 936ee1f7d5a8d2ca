package handlers

import (
	"net/http"

	"github.com/dvloznov/wealthflow/internal/api/middleware"
	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/rs/zerolog"
)

// DashboardHandler serves the derived aggregate views.
type DashboardHandler struct {
	sessions *SessionManager
	log      zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(sessions *SessionManager, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{sessions: sessions, log: log}
}

// Summary handles GET /api/dashboard: the snapshot plus per-category income
// and expense breakdowns, all derived from the session's current state.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}

	transactions := s.Store.Transactions()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"snapshot":            s.Store.Snapshot(),
		"income_by_category":  domain.AggregateByCategory(transactions, domain.TypeIncome),
		"expense_by_category": domain.AggregateByCategory(transactions, domain.TypeExpense),
	})
}

// Categories handles GET /api/categories, the category vocabulary split by
// transaction type.
func (h *DashboardHandler) Categories(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"income":  domain.CategoriesFor(domain.TypeIncome),
		"expense": domain.CategoriesFor(domain.TypeExpense),
	})
}
