// Package session persists the bearer credential issued by the todo service.
//
// A Store is the only owner of the persisted token. The transport reads it on
// every request and the auth state machine writes it; neither touches the
// underlying file directly.
package session

import (
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoSession is returned by Load when no token is stored.
var ErrNoSession = errors.New("no stored session")

// Store persists a single opaque token.
type Store interface {
	// Save persists token, replacing any previous one.
	Save(token string) error

	// Load returns the stored token, or ErrNoSession if there is none.
	Load() (string, error)

	// Clear removes the stored token. Clearing an empty store is not an error.
	Clear() error
}

// MemoryStore is a Store that lives only as long as the process.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements Store.
func (s *MemoryStore) Save(token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", ErrNoSession
	}
	return s.token, nil
}

// Clear implements Store.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// TokenSource exposes a Store as an oauth2.TokenSource. Token returns
// ErrNoSession when the store is empty.
func TokenSource(s Store) oauth2.TokenSource {
	return storeTokenSource{store: s}
}

type storeTokenSource struct {
	store Store
}

func (ts storeTokenSource) Token() (*oauth2.Token, error) {
	tok, err := ts.store.Load()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}
