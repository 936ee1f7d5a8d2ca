package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/wealthflow/internal/auth"
	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/dvloznov/wealthflow/internal/ledger"
	"github.com/dvloznov/wealthflow/internal/quotes"
	"github.com/dvloznov/wealthflow/internal/storage"
	"github.com/dvloznov/wealthflow/internal/syncstore"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session is one signed-in user's server-side state: a sync store attached
// to their partition and the ledger coordinator over it. Sessions are
// independent; two users (or two logins of the same user) never share a
// store.
type Session struct {
	Token  string
	User   domain.User
	Store  *syncstore.Store
	Ledger *ledger.Coordinator

	refresher *quotes.Refresher
	running   bool
	cancel    context.CancelFunc
}

// RefreshQuotes reprices the session's holdings once, independent of the
// background refresh loop.
func (s *Session) RefreshQuotes(ctx context.Context) {
	s.refresher.RefreshOnce(ctx)
}

// SessionManager owns the token → session map. Login and Register attach a
// fresh sync store; Logout detaches it, which is what prevents subscription
// leaks across user switches.
type SessionManager struct {
	auth          auth.Service
	db            storage.Store
	quoteInterval time.Duration
	log           zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager creates a session manager. quoteInterval > 0 starts a
// simulated quote refresher per session.
func NewSessionManager(authSvc auth.Service, db storage.Store, quoteInterval time.Duration, log zerolog.Logger) *SessionManager {
	return &SessionManager{
		auth:          authSvc,
		db:            db,
		quoteInterval: quoteInterval,
		log:           log,
		sessions:      make(map[string]*Session),
	}
}

// Register creates a user and opens a session for them.
func (m *SessionManager) Register(ctx context.Context, email, password, displayName string) (*Session, error) {
	user, err := m.auth.Register(ctx, email, password, displayName)
	if err != nil {
		return nil, err
	}
	return m.open(ctx, *user)
}

// Login validates credentials and opens a session.
func (m *SessionManager) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.open(ctx, *user)
}

func (m *SessionManager) open(ctx context.Context, user domain.User) (*Session, error) {
	// Subscriptions and the quote loop must outlive the login request, whose
	// context is cancelled as soon as the response is written. The session
	// gets its own context, cancelled on Logout/Close.
	sessionCtx, cancel := context.WithCancel(context.Background())

	store := syncstore.New(m.db, m.log)
	if err := store.Attach(sessionCtx, user.ID); err != nil {
		cancel()
		return nil, fmt.Errorf("open session: %w", err)
	}

	interval := m.quoteInterval
	if interval <= 0 {
		interval = quotes.DefaultInterval
	}
	session := &Session{
		Token:     uuid.NewString(),
		User:      user,
		Store:     store,
		Ledger:    ledger.New(store, m.log),
		refresher: quotes.New(store, interval, m.log),
		cancel:    cancel,
	}
	if m.quoteInterval > 0 {
		session.refresher.Start(sessionCtx)
		session.running = true
	}

	m.mu.Lock()
	m.sessions[session.Token] = session
	m.mu.Unlock()

	m.log.Info().Str("user_id", user.ID).Msg("Session opened")
	return session, nil
}

// Logout tears down the session for a token. Unknown tokens are a no-op.
func (m *SessionManager) Logout(ctx context.Context, token string) error {
	m.mu.Lock()
	session, ok := m.sessions[token]
	delete(m.sessions, token)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	if session.running {
		session.refresher.Stop()
	}
	session.Store.Detach()
	session.cancel()
	if err := m.auth.Logout(ctx); err != nil {
		return fmt.Errorf("Logout: %w", err)
	}
	m.log.Info().Str("user_id", session.User.ID).Msg("Session closed")
	return nil
}

// Session resolves a token.
func (m *SessionManager) Session(token string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	return session, ok
}

// ValidToken implements middleware.TokenValidator.
func (m *SessionManager) ValidToken(token string) bool {
	_, ok := m.Session(token)
	return ok
}

// Close detaches every live session, for server shutdown.
func (m *SessionManager) Close() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		if s.running {
			s.refresher.Stop()
		}
		s.Store.Detach()
		s.cancel()
	}
}
