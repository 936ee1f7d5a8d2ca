package auth

import (
	"context"
	"errors"

	"github.com/dvloznov/wealthflow/internal/domain"
)

var (
	// ErrInvalidCredentials is returned when the email/password pair does
	// not match a registered user.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned by Register for an already-registered email.
	ErrEmailTaken = errors.New("email is already registered")
)

// CancelFunc removes an auth-state observer.
type CancelFunc func()

// Service is the auth collaborator contract: credential validation and
// session-state observation. Observers receive the signed-in user, or nil
// when the session ends; the user's id is the stable partition key for all
// collections.
type Service interface {
	// Register creates a user and signs them in.
	Register(ctx context.Context, email, password, displayName string) (*domain.User, error)

	// Login validates credentials and signs the user in.
	Login(ctx context.Context, email, password string) (*domain.User, error)

	// Logout ends the current session.
	Logout(ctx context.Context) error

	// OnStateChange registers an observer called with the user on every
	// session-state change, and immediately with the current state.
	OnStateChange(fn func(*domain.User)) CancelFunc
}
