package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/robertmeta/portal-cli/apitest"
	"github.com/robertmeta/portal-cli/gateway"
	"github.com/robertmeta/portal-cli/model"
	"github.com/robertmeta/portal-cli/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, st *store.Store, svc *apitest.Services) *Manager {
	t.Helper()
	users := gateway.NewUserService(svc.Users.URL, gateway.Options{})
	return New(st, users, zerolog.Nop())
}

func openStore(t *testing.T, path string) *store.Store {
	t.Helper()
	st, err := store.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestManager_LoginThenRestore(t *testing.T) {
	svc := apitest.New()
	defer svc.Close()

	path := filepath.Join(t.TempDir(), "session.db")

	for _, username := range []string{"johndoe", "janedoe", "bobsmith"} {
		t.Run(username, func(t *testing.T) {
			st := openStore(t, path)
			m := newManager(t, st, svc)

			sess, err := m.Login(context.Background(), username, "pw")
			require.NoError(t, err)
			require.NotNil(t, sess.CurrentUser)
			assert.Equal(t, username, sess.CurrentUser.Username)
			require.NoError(t, st.Close())

			// Simulated reload: a fresh process with the same database.
			reopened := openStore(t, path)
			before := svc.TotalRequests()
			restored := newManager(t, reopened, svc)
			require.NoError(t, restored.Restore())

			assert.True(t, restored.IsAuthenticated())
			require.NotNil(t, restored.CurrentUser())
			assert.Equal(t, sess.CurrentUser.ID, restored.CurrentUser().ID)
			assert.Equal(t, sess.Token, restored.Snapshot().Token)
			assert.Equal(t, before, svc.TotalRequests(), "restore must not hit the network")
		})
	}
}

func TestManager_LoginFailureKeepsPriorSession(t *testing.T) {
	svc := apitest.New()
	defer svc.Close()

	st := openStore(t, ":memory:")
	m := newManager(t, st, svc)

	_, err := m.Login(context.Background(), "johndoe", "pw")
	require.NoError(t, err)
	prior := m.Snapshot()

	_, err = m.Login(context.Background(), "ghost", "pw")
	require.Error(t, err)

	var re *gateway.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 401, re.StatusCode)

	assert.Equal(t, prior, m.Snapshot())
	persisted, err := st.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, prior.Token, persisted.Token)
}

func TestManager_LoginFailureFromColdStart(t *testing.T) {
	svc := apitest.New()
	defer svc.Close()

	m := newManager(t, openStore(t, ":memory:"), svc)
	_, err := m.Login(context.Background(), "ghost", "pw")
	require.Error(t, err)
	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.Snapshot())
}

func TestManager_LogoutIsIdempotent(t *testing.T) {
	svc := apitest.New()
	defer svc.Close()

	st := openStore(t, ":memory:")
	m := newManager(t, st, svc)

	_, err := m.Login(context.Background(), "johndoe", "pw")
	require.NoError(t, err)
	require.True(t, m.IsAuthenticated())

	before := svc.TotalRequests()

	require.NoError(t, m.Logout())
	assert.False(t, m.IsAuthenticated())

	require.NoError(t, m.Logout())
	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.CurrentUser())

	assert.Equal(t, before, svc.TotalRequests(), "logout must not call the server")

	persisted, err := st.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, persisted)

	// Logging out a session that never existed is fine too.
	fresh := newManager(t, openStore(t, ":memory:"), svc)
	require.NoError(t, fresh.Logout())
	assert.False(t, fresh.IsAuthenticated())
}

// stuckStore refuses to clear the persisted session.
type stuckStore struct {
	*store.Store
}

func (s stuckStore) ClearSession() error {
	return errors.New("disk full")
}

func TestManager_LogoutFailureKeepsSession(t *testing.T) {
	svc := apitest.New()
	defer svc.Close()

	path := filepath.Join(t.TempDir(), "portal.db")
	st := openStore(t, path)
	users := gateway.NewUserService(svc.Users.URL, gateway.Options{})
	m := New(stuckStore{st}, users, zerolog.Nop())

	_, err := m.Login(context.Background(), "johndoe", "pw")
	require.NoError(t, err)

	require.Error(t, m.Logout())
	assert.True(t, m.IsAuthenticated(), "memory and disk stay in agreement")

	persisted, err := st.LoadSession()
	require.NoError(t, err)
	require.NotNil(t, persisted)

	require.Error(t, m.Invalidate())
	assert.False(t, m.IsAuthenticated(), "a rejected token is dropped from memory regardless")
}

func TestManager_RestoreWithoutToken(t *testing.T) {
	svc := apitest.New()
	defer svc.Close()

	m := newManager(t, openStore(t, ":memory:"), svc)
	require.NoError(t, m.Restore())
	assert.False(t, m.IsAuthenticated())

	_, err := m.Token()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_RestoreTrustsUnknownToken(t *testing.T) {
	svc := apitest.New()
	defer svc.Close()

	st := openStore(t, ":memory:")
	require.NoError(t, st.SaveSession(model.Session{Token: "stale", TokenType: "bearer"}))

	m := newManager(t, st, svc)
	require.NoError(t, m.Restore())
	assert.True(t, m.IsAuthenticated(), "restored optimistically")
	assert.Nil(t, m.CurrentUser())

	// The server rejects it once asked.
	_, err := m.RefreshUser(context.Background())
	assert.True(t, errors.Is(err, gateway.ErrUnauthorized))

	require.NoError(t, m.Invalidate())
	assert.False(t, m.IsAuthenticated())
}

func TestManager_RestoreRunsOnce(t *testing.T) {
	svc := apitest.New()
	defer svc.Close()

	st := openStore(t, ":memory:")
	m := newManager(t, st, svc)
	require.NoError(t, m.Restore())
	assert.False(t, m.IsAuthenticated())

	require.NoError(t, st.SaveSession(model.Session{Token: "later", TokenType: "bearer"}))
	require.NoError(t, m.Restore())
	assert.False(t, m.IsAuthenticated(), "second Restore is a no-op")
}

func TestManager_RefreshUser(t *testing.T) {
	svc := apitest.New()
	defer svc.Close()

	st := openStore(t, ":memory:")
	m := newManager(t, st, svc)

	_, err := m.RefreshUser(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)

	sess, err := m.Login(context.Background(), "bobsmith", "pw")
	require.NoError(t, err)

	// Drop the user snapshot to mimic a restored token.
	require.NoError(t, st.SaveSession(model.Session{Token: sess.Token, TokenType: sess.TokenType}))
	reloaded := newManager(t, st, svc)
	require.NoError(t, reloaded.Restore())
	require.Nil(t, reloaded.CurrentUser())

	u, err := reloaded.RefreshUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bobsmith", u.Username)
	require.NotNil(t, reloaded.CurrentUser())

	persisted, err := st.LoadSession()
	require.NoError(t, err)
	require.NotNil(t, persisted.CurrentUser)
	assert.Equal(t, "bobsmith", persisted.CurrentUser.Username)
}

func TestManager_TokenSource(t *testing.T) {
	svc := apitest.New()
	defer svc.Close()

	m := newManager(t, openStore(t, ":memory:"), svc)
	sess, err := m.Login(context.Background(), "janedoe", "pw")
	require.NoError(t, err)

	tok, err := m.Token()
	require.NoError(t, err)
	assert.Equal(t, sess.Token, tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())

	// The data gateway picks up whoever is logged in at request time.
	svc.RequireToken.Store(true)
	data := gateway.NewDataService(svc.Data.URL, gateway.Options{Tokens: m})
	_, err = data.ListContent(context.Background(), model.ContentFilters{})
	require.NoError(t, err)

	require.NoError(t, m.Logout())
	_, err = data.ListContent(context.Background(), model.ContentFilters{})
	assert.True(t, errors.Is(err, gateway.ErrUnauthorized))
}
