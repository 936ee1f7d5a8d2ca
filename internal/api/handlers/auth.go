package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dvloznov/wealthflow/internal/api/middleware"
	"github.com/dvloznov/wealthflow/internal/auth"
	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/rs/zerolog"
)

// AuthHandler handles session endpoints.
type AuthHandler struct {
	sessions *SessionManager
	log      zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(sessions *SessionManager, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, log: log}
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.sessions.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			middleware.WriteError(w, http.StatusConflict, "Email is already registered")
			return
		}
		h.log.Error().Err(err).Msg("Registration failed")
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, sessionResponse{Token: session.Token, User: session.User})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			middleware.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.log.Error().Err(err).Msg("Login failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, sessionResponse{Token: session.Token, User: session.User})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromContext(r.Context())
	if err := h.sessions.Logout(r.Context(), token); err != nil {
		h.log.Error().Err(err).Msg("Logout failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Logout failed")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// session resolves the request's session, writing a 401 when absent.
func session(w http.ResponseWriter, r *http.Request, sessions *SessionManager) (*Session, bool) {
	token := middleware.TokenFromContext(r.Context())
	s, ok := sessions.Session(token)
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Session expired")
		return nil, false
	}
	return s, true
}
