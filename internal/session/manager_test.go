package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autosysadmin/console-cli/internal/api"
)

type stubGateway struct {
	loginFn    func(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
	meFn       func(ctx context.Context) (*api.User, error)
	loginCalls int
	meCalls    int
	token      string
	hook       func()
}

func (s *stubGateway) Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
	s.loginCalls++
	if s.loginFn == nil {
		return nil, errors.New("no login stub")
	}
	return s.loginFn(ctx, req)
}

func (s *stubGateway) Me(ctx context.Context) (*api.User, error) {
	s.meCalls++
	if s.meFn == nil {
		return nil, errors.New("no me stub")
	}
	return s.meFn(ctx)
}

func (s *stubGateway) SetToken(token string) { s.token = token }

func (s *stubGateway) OnUnauthorized(fn func()) { s.hook = fn }

func newTestManager(t *testing.T) (*Manager, *Store, *stubGateway) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "session.json"))
	gw := &stubGateway{}
	return NewManager(store, gw), store, gw
}

// checkInvariant asserts that a credential is held iff the session is
// authenticated.
func checkInvariant(t *testing.T, m *Manager) {
	t.Helper()
	assert.Equal(t, m.Phase() == PhaseAuthenticated, m.Token() != "")
}

func TestManagerStartsInitializing(t *testing.T) {
	m, _, _ := newTestManager(t)
	assert.Equal(t, PhaseInitializing, m.Phase())
	checkInvariant(t, m)
}

func TestRestoreWithPersistedCredential(t *testing.T) {
	m, store, gw := newTestManager(t)
	require.NoError(t, store.Save("tok-restored"))

	require.NoError(t, m.Restore())

	assert.Equal(t, PhaseAuthenticated, m.Phase())
	assert.Equal(t, "tok-restored", m.Token())
	assert.Equal(t, "tok-restored", gw.token)
	checkInvariant(t, m)

	// Restore is purely local.
	assert.Zero(t, gw.loginCalls)
	assert.Zero(t, gw.meCalls)

	// The identity is a fabricated placeholder.
	identity := m.Identity()
	require.NotNil(t, identity)
	assert.Empty(t, identity.Email)
}

func TestRestoreWithoutCredential(t *testing.T) {
	m, _, _ := newTestManager(t)

	require.NoError(t, m.Restore())

	assert.Equal(t, PhaseAnonymous, m.Phase())
	assert.Nil(t, m.Identity())
	checkInvariant(t, m)
}

func TestRestoreRunsOnce(t *testing.T) {
	m, store, _ := newTestManager(t)
	require.NoError(t, m.Restore())
	assert.Equal(t, PhaseAnonymous, m.Phase())

	// A credential appearing later must not flip the settled session.
	require.NoError(t, store.Save("tok-late"))
	require.NoError(t, m.Restore())
	assert.Equal(t, PhaseAnonymous, m.Phase())
}

func TestRestoreVerifiedFetchesIdentity(t *testing.T) {
	m, store, gw := newTestManager(t)
	require.NoError(t, store.Save("tok-restored"))
	gw.meFn = func(ctx context.Context) (*api.User, error) {
		return &api.User{ID: "u-1", Email: "op@example.com", Roles: []string{"admin"}}, nil
	}

	require.NoError(t, m.RestoreVerified(context.Background()))

	assert.Equal(t, PhaseAuthenticated, m.Phase())
	identity := m.Identity()
	require.NotNil(t, identity)
	assert.Equal(t, "op@example.com", identity.Email)
	assert.Equal(t, 1, gw.meCalls)
	checkInvariant(t, m)
}

func TestRestoreVerifiedDegradesToAnonymous(t *testing.T) {
	m, store, gw := newTestManager(t)
	require.NoError(t, store.Save("tok-stale"))
	gw.meFn = func(ctx context.Context) (*api.User, error) {
		return nil, &api.APIError{StatusCode: http.StatusUnauthorized, Message: "token expired"}
	}

	err := m.RestoreVerified(context.Background())
	require.Error(t, err)

	assert.Equal(t, PhaseAnonymous, m.Phase())
	checkInvariant(t, m)

	// The stale credential is purged from durable storage.
	token, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.Empty(t, token)
}

func TestLoginSuccess(t *testing.T) {
	m, store, gw := newTestManager(t)
	require.NoError(t, m.Restore())

	gw.loginFn = func(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
		assert.Equal(t, "op@example.com", req.Email)
		return &api.LoginResponse{
			User:  api.User{ID: "u-1", Email: req.Email, Roles: []string{"admin"}},
			Token: "tok-fresh",
		}, nil
	}

	require.NoError(t, m.Login(context.Background(), "op@example.com", "hunter2"))

	assert.Equal(t, PhaseAuthenticated, m.Phase())
	assert.Equal(t, "tok-fresh", m.Token())
	assert.Equal(t, "tok-fresh", gw.token)
	checkInvariant(t, m)

	identity := m.Identity()
	require.NotNil(t, identity)
	assert.Equal(t, []string{"admin"}, identity.Roles)

	// The credential survives a restart.
	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-fresh", persisted)
}

func TestLoginFailureStaysAnonymous(t *testing.T) {
	m, store, gw := newTestManager(t)
	require.NoError(t, m.Restore())

	gw.loginFn = func(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
		return nil, &api.APIError{StatusCode: http.StatusForbidden, Message: "bad credentials"}
	}

	err := m.Login(context.Background(), "op@example.com", "wrong")
	require.Error(t, err)

	assert.Equal(t, PhaseAnonymous, m.Phase())
	checkInvariant(t, m)

	token, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.Empty(t, token)
}

func TestLoginRejectsConcurrentCall(t *testing.T) {
	m, _, gw := newTestManager(t)
	require.NoError(t, m.Restore())

	release := make(chan struct{})
	started := make(chan struct{})
	gw.loginFn = func(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
		close(started)
		<-release
		return &api.LoginResponse{User: api.User{Email: req.Email}, Token: "tok"}, nil
	}

	done := make(chan error, 1)
	go func() {
		done <- m.Login(context.Background(), "op@example.com", "pw")
	}()

	<-started
	err := m.Login(context.Background(), "op@example.com", "pw")
	assert.ErrorIs(t, err, ErrLoginInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gw.loginCalls)

	// Once settled, login is available again.
	gw.loginFn = func(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
		return &api.LoginResponse{User: api.User{Email: req.Email}, Token: "tok-2"}, nil
	}
	require.NoError(t, m.Login(context.Background(), "op@example.com", "pw"))
}

func TestLogoutClearsEverything(t *testing.T) {
	m, store, gw := newTestManager(t)
	require.NoError(t, store.Save("tok"))
	require.NoError(t, m.Restore())
	require.Equal(t, PhaseAuthenticated, m.Phase())

	m.Logout()

	assert.Equal(t, PhaseAnonymous, m.Phase())
	assert.Empty(t, m.Token())
	assert.Empty(t, gw.token)
	assert.Nil(t, m.Identity())
	checkInvariant(t, m)

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestForceLogoutIsIdempotent(t *testing.T) {
	m, _, _ := newTestManager(t)
	require.NoError(t, m.Restore())

	m.ForceLogout()
	m.ForceLogout()

	assert.Equal(t, PhaseAnonymous, m.Phase())
	checkInvariant(t, m)
}

func TestSetPreferencesRequiresAuthentication(t *testing.T) {
	m, store, _ := newTestManager(t)

	m.SetPreferences(&api.UserSettings{Theme: "dark"})
	assert.Nil(t, m.Identity())

	require.NoError(t, store.Save("tok"))
	require.NoError(t, m.Restore())

	m.SetPreferences(&api.UserSettings{Theme: "dark"})
	identity := m.Identity()
	require.NotNil(t, identity)
	require.NotNil(t, identity.Settings)
	assert.Equal(t, "dark", identity.Settings.Theme)
}

// TestUnauthorizedResponseForcesLogout exercises the full 401 path through a
// real gateway: an authenticated session plus a backend that rejects the
// credential must leave the session anonymous with storage purged.
func TestUnauthorizedResponseForcesLogout(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"token expired"}`))
	}))
	defer backend.Close()

	client := api.NewClient(backend.URL, api.WithTimeout(5*time.Second))
	store := NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save("tok-revoked"))

	m := NewManager(store, client)
	require.NoError(t, m.Restore())
	require.Equal(t, PhaseAuthenticated, m.Phase())

	_, err := client.ListAgents(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))

	assert.Equal(t, PhaseAnonymous, m.Phase())
	checkInvariant(t, m)

	token, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.Empty(t, token)
}
