package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// StreamHandler pushes snapshot updates over a websocket. A message goes out
// on connect and after every applied subscription push; consecutive pushes
// between writes coalesce into one message.
type StreamHandler struct {
	sessions *SessionManager
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(sessions *SessionManager, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The REST API is already wide open via CORS; the websocket
			// matches it.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

type streamMessage struct {
	Snapshot     domain.Snapshot      `json:"snapshot"`
	Accounts     []domain.Account     `json:"accounts"`
	Transactions []domain.Transaction `json:"transactions"`
	Holdings     []domain.Holding     `json:"holdings"`
}

// Serve handles GET /api/stream.
func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r, h.sessions)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Buffered with capacity one so bursts of pushes collapse into a single
	// pending notification.
	changed := make(chan struct{}, 1)
	cancel := s.Store.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer cancel()

	// Reader goroutine: the client sends nothing meaningful, but reading is
	// required to notice the connection closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, s); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-changed:
			if err := h.write(conn, s); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, s *Session) error {
	msg := streamMessage{
		Snapshot:     s.Store.Snapshot(),
		Accounts:     s.Store.Accounts(),
		Transactions: s.Store.Transactions(),
		Holdings:     s.Store.Holdings(),
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.log.Debug().Err(err).Msg("Websocket write failed; closing stream")
		return err
	}
	return nil
}
