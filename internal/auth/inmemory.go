package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// InMemoryService is an in-memory implementation of Service. Passwords are
// stored as bcrypt hashes. Accounts are lost on process exit - suitable for
// local development and tests.
type InMemoryService struct {
	mu           sync.Mutex
	users        map[string]*record // keyed by normalized email
	current      *domain.User
	observers    map[int64]func(*domain.User)
	nextObserver int64
}

type record struct {
	user domain.User
	hash []byte
}

// NewInMemoryService creates an empty auth service.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{
		users:     make(map[string]*record),
		observers: make(map[int64]func(*domain.User)),
	}
}

// Register implements Service.
func (s *InMemoryService) Register(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("Register: email is required")
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("Register: password must be at least 6 characters")
	}
	if displayName == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("Register: hashing password: %w", err)
	}

	s.mu.Lock()
	if _, exists := s.users[email]; exists {
		s.mu.Unlock()
		return nil, ErrEmailTaken
	}
	user := domain.User{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: displayName,
	}
	s.users[email] = &record{user: user, hash: hash}
	s.current = &user
	observers := s.observersLocked()
	s.mu.Unlock()

	notify(observers, &user)
	return &user, nil
}

// Login implements Service.
func (s *InMemoryService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)

	s.mu.Lock()
	rec, ok := s.users[email]
	s.mu.Unlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(rec.hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.mu.Lock()
	user := rec.user
	s.current = &user
	observers := s.observersLocked()
	s.mu.Unlock()

	notify(observers, &user)
	return &user, nil
}

// Logout implements Service. Observers are notified with nil.
func (s *InMemoryService) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	observers := s.observersLocked()
	s.mu.Unlock()

	notify(observers, nil)
	return nil
}

// OnStateChange implements Service. The observer is invoked immediately
// with the current session state.
func (s *InMemoryService) OnStateChange(fn func(*domain.User)) CancelFunc {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	current := s.current
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *InMemoryService) observersLocked() []func(*domain.User) {
	out := make([]func(*domain.User), 0, len(s.observers))
	for _, fn := range s.observers {
		out = append(out, fn)
	}
	return out
}

func notify(observers []func(*domain.User), user *domain.User) {
	for _, fn := range observers {
		fn(user)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Ensure InMemoryService implements the Service interface.
var _ Service = (*InMemoryService)(nil)
