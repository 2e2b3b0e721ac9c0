// Package session holds the process-wide authentication state: who is
// logged in and with which token.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robertmeta/portal-cli/model"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// ErrNoSession is returned by Token when nobody is logged in.
var ErrNoSession = errors.New("no active session")

// Persister stores the session across process restarts.
type Persister interface {
	SaveSession(sess model.Session) error
	LoadSession() (*model.Session, error)
	ClearSession() error
}

// Authenticator is the slice of the user service the session needs.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*model.Token, error)
	GetCurrentUser(ctx context.Context, token string) (*model.User, error)
}

// Manager is the single owner of session state. Create one per process
// and hand it to every controller.
type Manager struct {
	mu       sync.RWMutex
	store    Persister
	auth     Authenticator
	current  *model.Session
	restored bool
	log      zerolog.Logger
}

// New creates a Manager. The session starts empty until Restore or
// Login is called.
func New(store Persister, auth Authenticator, logger zerolog.Logger) *Manager {
	return &Manager{
		store: store,
		auth:  auth,
		log:   logger,
	}
}

// Restore loads a persisted token, if any, and trusts it without asking
// the server. Only the first call has an effect.
func (m *Manager) Restore() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.restored {
		return nil
	}
	m.restored = true

	sess, err := m.store.LoadSession()
	if err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	if !sess.IsAuthenticated() {
		return nil
	}

	m.current = sess
	m.log.Debug().Bool("has_user", sess.CurrentUser != nil).Msg("session restored")
	return nil
}

// Login authenticates against the user service, resolves the user and
// persists the result. On any failure the previous session is kept.
func (m *Manager) Login(ctx context.Context, username, password string) (*model.Session, error) {
	m.mu.RLock()
	auth := m.auth
	m.mu.RUnlock()
	if auth == nil {
		return nil, errors.New("session has no authenticator")
	}

	tok, err := auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	user, err := auth.GetCurrentUser(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	sess := model.Session{
		Token:       tok.AccessToken,
		TokenType:   tok.Type(),
		CurrentUser: user,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SaveSession(sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	m.current = &sess
	m.restored = true

	m.log.Info().Str("user", user.Username).Msg("logged in")
	return copySession(&sess), nil
}

// Logout forgets the session on disk and then in memory. It never talks
// to the server and is safe to call repeatedly. When the durable copy
// cannot be removed the session stays in place and the error is
// returned, so a later Restore cannot bring back a session that looked
// logged out.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.ClearSession(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	m.current = nil
	return nil
}

// Invalidate drops a session the server rejected. The in-memory session
// is dropped even if the durable copy cannot be removed; a restored copy
// is rejected again on its first use.
func (m *Manager) Invalidate() error {
	m.log.Warn().Msg("session rejected by server, logging out")

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = nil
	if err := m.store.ClearSession(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// RefreshUser fetches the current user for the held token and updates
// the snapshot.
func (m *Manager) RefreshUser(ctx context.Context) (*model.User, error) {
	m.mu.RLock()
	auth := m.auth
	cur := copySession(m.current)
	m.mu.RUnlock()

	if !cur.IsAuthenticated() {
		return nil, ErrNoSession
	}
	if auth == nil {
		return nil, errors.New("session has no authenticator")
	}

	user, err := auth.GetCurrentUser(ctx, cur.Token)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A logout or re-login may have happened meanwhile.
	if m.current == nil || m.current.Token != cur.Token {
		return user, nil
	}
	m.current.CurrentUser = user
	if err := m.store.SaveSession(*m.current); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist refreshed user")
	}
	u := *user
	return &u, nil
}

// IsAuthenticated reports whether a token is held.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.IsAuthenticated()
}

// Snapshot returns a copy of the session, or nil when logged out.
func (m *Manager) Snapshot() *model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySession(m.current)
}

// CurrentUser returns the known user, which may be nil even when
// authenticated (a restored token without a user snapshot).
func (m *Manager) CurrentUser() *model.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || m.current.CurrentUser == nil {
		return nil
	}
	u := *m.current.CurrentUser
	return &u
}

// Token implements oauth2.TokenSource so gateways can attach the bearer
// token of whoever is logged in at request time.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.current.IsAuthenticated() {
		return nil, ErrNoSession
	}
	return &oauth2.Token{
		AccessToken: m.current.Token,
		TokenType:   m.current.TokenType,
	}, nil
}

func copySession(s *model.Session) *model.Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.CurrentUser != nil {
		u := *s.CurrentUser
		c.CurrentUser = &u
	}
	return &c
}
