package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-dashboard/internal/remote"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// TokenKey is the single durable key holding the session token.
const TokenKey = "token"

var validate = validator.New()

// Authenticator is the auth API as seen by the Store.
type Authenticator interface {
	Login(ctx context.Context, creds remote.Credentials) (remote.LoginResponse, error)
	Register(ctx context.Context, reg remote.Registration) error
}

// Session is the active authenticated session.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username,omitempty"`
}

// Store holds the current authentication token and mirrors it to durable storage.
type Store struct {
	mu    sync.RWMutex
	token string

	kv   KV
	auth Authenticator
}

// NewStore creates a Store and restores any token persisted by a previous run.
func NewStore(ctx context.Context, kv KV, auth Authenticator) (*Store, error) {
	s := &Store{kv: kv, auth: auth}

	token, err := kv.Get(ctx, TokenKey)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("restore session: %w", err)
	default:
		s.token = token
		log.Printf("INFO: session: restored persisted session")
	}
	return s, nil
}

// Login authenticates against the auth API and persists the returned token.
// On any failure the previous session state is left untouched.
func (s *Store) Login(ctx context.Context, creds remote.Credentials) (Session, error) {
	if err := validate.Struct(creds); err != nil {
		return Session{}, &weather.AuthError{Message: "username and password are required"}
	}

	resp, err := s.auth.Login(ctx, creds)
	if err != nil {
		return Session{}, err
	}

	token := resp.AccessToken()
	if err := s.kv.Set(ctx, TokenKey, token); err != nil {
		return Session{}, fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	username := resp.User.Username
	if username == "" {
		username = creds.Username
	}
	log.Printf("INFO: session: %s logged in", username)
	return Session{Token: token, Username: username}, nil
}

// Register creates an account through the auth API. It does not log in.
func (s *Store) Register(ctx context.Context, reg remote.Registration) error {
	if err := validate.Struct(reg); err != nil {
		return err
	}
	return s.auth.Register(ctx, reg)
}

// Logout clears the token. The in-memory token is always cleared, even if
// removing it from durable storage fails.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if err := s.kv.Delete(ctx, TokenKey); err != nil && !errors.Is(err, ErrNotFound) {
		log.Printf("ERROR: session: failed to clear persisted token: %v", err)
		return err
	}
	return nil
}

// IsAuthenticated reports whether a non-empty token is held.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Token returns the current token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}
