package session

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/autosysadmin/console-cli/internal/api"
)

// Phase is the lifecycle state of the local session.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseAnonymous
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// ErrLoginInFlight is returned when Login is invoked while a previous call
// has not yet settled.
var ErrLoginInFlight = errors.New("login already in flight")

// Identity is the authenticated user's profile cached by the manager. It is
// immutable once attached except for Settings, which the settings-update
// collaborator may replace wholesale.
type Identity struct {
	ID       string
	Email    string
	Roles    []string
	Settings *api.UserSettings
}

// Gateway is the slice of the API client the manager depends on.
type Gateway interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
	Me(ctx context.Context) (*api.User, error)
	SetToken(token string)
	OnUnauthorized(fn func())
}

// Manager owns the authenticated-identity lifecycle: cold-start restore,
// login, logout, and the forced logout triggered by the gateway on 401.
//
// Invariant: a credential is held if and only if the phase is
// PhaseAuthenticated.
type Manager struct {
	mu    sync.Mutex
	store *Store
	gw    Gateway

	phase         Phase
	identity      *Identity
	token         string
	restored      bool
	loginInFlight bool
}

// NewManager constructs a session manager bound to the given store and
// gateway. The manager registers itself as the gateway's 401 handler.
func NewManager(store *Store, gw Gateway) *Manager {
	m := &Manager{
		store: store,
		gw:    gw,
		phase: PhaseInitializing,
	}
	gw.OnUnauthorized(m.ForceLogout)
	return m
}

// Restore performs the one-time cold-start check. When a persisted
// credential exists the manager enters PhaseAuthenticated with a placeholder
// identity and no network round-trip; the identity stays a placeholder until
// something fetches the real profile. Without a credential the session
// settles into PhaseAnonymous. Subsequent calls are no-ops.
func (m *Manager) Restore() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.restored {
		return nil
	}
	m.restored = true

	token, err := m.store.Load()
	if err != nil {
		m.becomeAnonymousLocked()
		return err
	}
	if token == "" {
		m.becomeAnonymousLocked()
		return nil
	}

	// Trusted without verification. See RestoreVerified for the round-trip
	// variant.
	m.token = token
	m.phase = PhaseAuthenticated
	m.identity = &Identity{Roles: []string{"user"}}
	m.gw.SetToken(token)
	return nil
}

// RestoreVerified is the hardened cold-start path: it validates the
// persisted credential against the backend and treats any failure as
// anonymous, clearing the stale credential.
func (m *Manager) RestoreVerified(ctx context.Context) error {
	m.mu.Lock()
	if m.restored {
		m.mu.Unlock()
		return nil
	}
	m.restored = true

	token, err := m.store.Load()
	if err != nil || token == "" {
		m.becomeAnonymousLocked()
		m.mu.Unlock()
		return err
	}
	m.gw.SetToken(token)
	m.mu.Unlock()

	user, err := m.gw.Me(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		// A 401 already forced logout through the gateway hook; everything
		// else degrades to anonymous as well.
		m.clearLocked()
		return err
	}

	m.token = token
	m.phase = PhaseAuthenticated
	m.identity = identityFromUser(user)
	return nil
}

// Login authenticates against the backend and, on success, persists the
// credential and transitions to PhaseAuthenticated. On failure the session
// remains anonymous and the error is returned as-is; there is no retry.
// A second call while one is in flight is rejected with ErrLoginInFlight.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.mu.Lock()
	if m.loginInFlight {
		m.mu.Unlock()
		return ErrLoginInFlight
	}
	m.loginInFlight = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.loginInFlight = false
		m.mu.Unlock()
	}()

	resp, err := m.gw.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Save(resp.Token); err != nil {
		return err
	}

	m.token = resp.Token
	m.phase = PhaseAuthenticated
	m.identity = identityFromUser(&resp.User)
	m.gw.SetToken(resp.Token)
	return nil
}

// Logout clears the persisted credential and resets the session to
// PhaseAnonymous. It always succeeds; a storage error is logged and the
// in-memory state is reset regardless.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

// ForceLogout is the gateway-invoked variant of Logout, fired on any 401.
// It is idempotent: concurrent in-flight requests that each observe a 401
// converge on the same anonymous state.
func (m *Manager) ForceLogout() {
	m.Logout()
}

// Phase returns the current lifecycle phase.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Token returns the current credential, empty unless authenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Identity returns the cached identity, or nil when not authenticated.
func (m *Manager) Identity() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return nil
	}
	copied := *m.identity
	return &copied
}

// SetPreferences replaces the identity's settings wholesale. It is a no-op
// outside of PhaseAuthenticated.
func (m *Manager) SetPreferences(settings *api.UserSettings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseAuthenticated || m.identity == nil {
		return
	}
	m.identity.Settings = settings
}

func (m *Manager) clearLocked() {
	if err := m.store.Clear(); err != nil {
		logrus.Warnf("clear persisted session: %v", err)
	}
	m.becomeAnonymousLocked()
	m.gw.SetToken("")
}

func (m *Manager) becomeAnonymousLocked() {
	m.phase = PhaseAnonymous
	m.token = ""
	m.identity = nil
}

func identityFromUser(u *api.User) *Identity {
	if u == nil {
		return nil
	}
	roles := make([]string, len(u.Roles))
	copy(roles, u.Roles)
	return &Identity{
		ID:       u.ID,
		Email:    u.Email,
		Roles:    roles,
		Settings: u.Settings,
	}
}
