// Package session owns the signed-in identity and its credential
// material. Identity is always threaded explicitly; nothing in the
// program reads it as ambient global state.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Hargou/captioncraft/internal/api"
	"github.com/Hargou/captioncraft/internal/store"
)

// ErrNotAuthenticated is returned when an operation requires a signed-in
// user and none exists. It fails fast, before any network attempt.
var ErrNotAuthenticated = errors.New("not authenticated")

// Manager tracks the current session. The password is held only in
// memory for the session's lifetime; the server expects it on every
// mutating call.
type Manager struct {
	gateway api.Gateway
	cache   *store.Store

	mu       sync.RWMutex
	user     *api.User
	password string
}

// NewManager builds a Manager over the given gateway and cache.
func NewManager(gateway api.Gateway, cache *store.Store) *Manager {
	return &Manager{gateway: gateway, cache: cache}
}

// Login authenticates against the server and, on success, records the
// identity in the cache and retains the credential for later calls.
func (m *Manager) Login(ctx context.Context, username, password string) (api.User, error) {
	user, err := m.gateway.Login(ctx, username, password)
	if err != nil {
		return api.User{}, err
	}
	if err := m.cache.SetCurrentUser(ctx, user); err != nil {
		return api.User{}, fmt.Errorf("record session: %w", err)
	}

	m.mu.Lock()
	m.user = &user
	m.password = password
	m.mu.Unlock()

	return user, nil
}

// Register creates an account and signs it in.
func (m *Manager) Register(ctx context.Context, username, name, password string) (api.User, error) {
	if err := m.gateway.Register(ctx, username, name, password); err != nil {
		return api.User{}, err
	}
	return m.Login(ctx, username, password)
}

// Resume restores the identity persisted by a previous run. The
// password is never persisted, so a resumed session can read but not
// mutate until the user signs in again.
func (m *Manager) Resume(ctx context.Context) (api.User, error) {
	user, found, err := m.cache.CurrentUser(ctx)
	if err != nil {
		return api.User{}, err
	}
	if !found {
		return api.User{}, ErrNotAuthenticated
	}

	m.mu.Lock()
	m.user = &user
	m.password = ""
	m.mu.Unlock()

	return user, nil
}

// Logout clears the session and invalidates the whole post cache, so a
// later sign-in starts from a clean mirror.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.user = nil
	m.password = ""
	m.mu.Unlock()

	if err := m.cache.ClearCurrentUser(ctx); err != nil {
		return err
	}
	return m.cache.DeleteAllPosts(ctx)
}

// Current returns the signed-in user, if any.
func (m *Manager) Current() (api.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return api.User{}, false
	}
	return *m.user, true
}

// Credentials returns the material authenticated calls require, or
// ErrNotAuthenticated when no session exists.
func (m *Manager) Credentials() (api.Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil || m.password == "" {
		return api.Credentials{}, ErrNotAuthenticated
	}
	return api.Credentials{UserID: m.user.ID, Password: m.password}, nil
}
