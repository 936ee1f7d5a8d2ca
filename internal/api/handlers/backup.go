package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/wealthflow/internal/api/middleware"
	"github.com/dvloznov/wealthflow/internal/backup"
	"github.com/rs/zerolog"
)

// BackupHandler exports a user's data to the backup bucket.
type BackupHandler struct {
	sessions *SessionManager
	exporter *backup.Exporter
	log      zerolog.Logger
}

// NewBackupHandler creates a new backup handler. exporter may be nil when no
// bucket is configured.
func NewBackupHandler(sessions *SessionManager, exporter *backup.Exporter, log zerolog.Logger) *BackupHandler {
	return &BackupHandler{sessions: sessions, exporter: exporter, log: log}
}

// Export handles POST /api/backup, uploading the session's full state as a
// JSON archive.
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}
	if h.exporter == nil {
		middleware.WriteError(w, http.StatusNotImplemented, "Backups are not configured")
		return
	}

	archive := backup.Archive{
		UserID:       s.User.ID,
		ExportedAt:   time.Now().UTC(),
		Accounts:     s.Store.Accounts(),
		Transactions: s.Store.Transactions(),
		Holdings:     s.Store.Holdings(),
		Snapshot:     s.Store.Snapshot(),
	}

	object, err := h.exporter.Export(r.Context(), archive)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", s.User.ID).Msg("Backup export failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Backup export failed")
		return
	}

	h.log.Info().Str("user_id", s.User.ID).Str("object", object).Msg("Backup exported")
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"object": object})
}
