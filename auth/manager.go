package auth

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/dentatrack/console/api"
	apperrors "github.com/dentatrack/console/internal/errors"
	"github.com/dentatrack/console/session"
	"github.com/dentatrack/console/users"
)

// State is the lifecycle state of the session manager.
type State string

const (
	StateUninitialized   State = "uninitialized"
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// Snapshot is an immutable view of the manager handed to observers and the
// navigation gate.
type Snapshot struct {
	State State
	User  *users.User
}

// Loading reports whether the manager is resolving the initial session or a
// login attempt.
func (s Snapshot) Loading() bool {
	return s.State == StateUninitialized || s.State == StateLoading
}

// Authenticated reports whether a current user is established.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated
}

// Observer receives a snapshot after every state transition.
type Observer func(Snapshot)

// Manager owns the current-user identity and the login, registration and
// logout operations. CurrentUser is non-nil exactly when the state is
// StateAuthenticated.
type Manager struct {
	client *api.Client
	store  session.Store
	log    zerolog.Logger

	lock        sync.RWMutex
	state       State
	currentUser *users.User
	observers   []Observer
}

// NewManager creates an auth manager in the Uninitialized state.
func NewManager(client *api.Client, store session.Store, log zerolog.Logger) (*Manager, error) {
	if client == nil {
		return nil, errors.New("[NewManager] api client is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] session store is required")
	}
	return &Manager{
		client: client,
		store:  store,
		log:    log,
		state:  StateUninitialized,
	}, nil
}

// Subscribe registers an observer for state transitions. Observers are called
// synchronously, outside the manager lock, in registration order.
func (m *Manager) Subscribe(obs Observer) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.observers = append(m.observers, obs)
}

// Snapshot returns the current state and user.
func (m *Manager) Snapshot() Snapshot {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return Snapshot{State: m.state, User: m.currentUser}
}

// CurrentUser returns the authenticated user, or nil.
func (m *Manager) CurrentUser() *users.User {
	return m.Snapshot().User
}

// IsAuthenticated reports whether a user session is established.
func (m *Manager) IsAuthenticated() bool {
	return m.Snapshot().Authenticated()
}

// Init resolves the stored session on startup: with a stored token it fetches
// the current user, otherwise it settles in Unauthenticated. An unusable
// stored session (no viable refresh) is cleared.
func (m *Manager) Init(ctx context.Context) error {
	m.transition(StateLoading, nil)

	stored, err := m.store.Load()
	if err != nil {
		m.log.Error().Err(err).Msg("failed to load stored session")
		m.transition(StateUnauthenticated, nil)
		return apperrors.Wrapf(err, "[Manager.Init] load session")
	}
	if stored == nil || stored.AccessToken == "" {
		m.transition(StateUnauthenticated, nil)
		return nil
	}

	user, err := m.fetchCurrentUser(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("stored session is not usable, clearing it")
		if clearErr := m.store.Clear(); clearErr != nil {
			m.log.Error().Err(clearErr).Msg("failed to clear session store")
		}
		m.transition(StateUnauthenticated, nil)
		return nil
	}

	m.transition(StateAuthenticated, user)
	return nil
}

// Login authenticates with the platform, stores the returned token pair and
// establishes the current user. On any failure the state returns to
// Unauthenticated and the error is surfaced to the caller.
func (m *Manager) Login(ctx context.Context, credentials users.LoginCredentials) error {
	if err := credentials.Validate(); err != nil {
		return apperrors.Wrapf(err, "[Manager.Login] invalid credentials form")
	}

	m.transition(StateLoading, nil)

	tokens := &api.TokenResponse{}
	if err := m.client.Post(ctx, "/users/login", credentials, tokens, nil); err != nil {
		m.transition(StateUnauthenticated, nil)
		if api.IsStatus(err, 401) {
			return errors.Wrap(apperrors.ErrInvalidCredentials, "[Manager.Login]")
		}
		return errors.Wrap(err, "[Manager.Login] login request failed")
	}

	if err := m.client.SaveTokens(tokens); err != nil {
		m.transition(StateUnauthenticated, nil)
		return errors.Wrap(err, "[Manager.Login] store tokens")
	}

	user, err := m.fetchCurrentUser(ctx)
	if err != nil {
		if clearErr := m.store.Clear(); clearErr != nil {
			m.log.Error().Err(clearErr).Msg("failed to clear session store")
		}
		m.transition(StateUnauthenticated, nil)
		return errors.Wrap(err, "[Manager.Login] fetch current user")
	}

	m.transition(StateAuthenticated, user)
	m.log.Info().Str("email", user.Email).Str("role", string(user.Role)).Msg("logged in")
	return nil
}

// Register creates a standalone clinic-owning account. Registration does not
// authenticate the new user; callers return to the login prompt afterwards.
func (m *Manager) Register(ctx context.Context, data users.RegisterData) error {
	if err := data.Validate(); err != nil {
		return apperrors.Wrapf(err, "[Manager.Register] invalid registration form")
	}
	if err := m.client.Post(ctx, "/users/register", data, nil, nil); err != nil {
		return errors.Wrap(err, "[Manager.Register]")
	}
	return nil
}

// RegisterWithInvite creates an account bound to an existing clinic through a
// valid, unexpired, unused invitation token. Like Register, it does not
// authenticate the caller.
func (m *Manager) RegisterWithInvite(ctx context.Context, data users.RegisterData, invitationToken string) error {
	if invitationToken == "" {
		return errors.Wrap(apperrors.ErrInvalidInvitation, "[Manager.RegisterWithInvite] missing token")
	}
	if err := data.Validate(); err != nil {
		return apperrors.Wrapf(err, "[Manager.RegisterWithInvite] invalid registration form")
	}
	if !data.IsInviteBound() {
		return errors.Wrap(apperrors.ErrInvalidInvitation, "[Manager.RegisterWithInvite] clinicId and doctorId are required")
	}
	query := map[string]string{"token": invitationToken}
	if err := m.client.Post(ctx, "/users/register/invite", data, nil, query); err != nil {
		return errors.Wrap(err, "[Manager.RegisterWithInvite]")
	}
	return nil
}

// Logout clears the stored session and the current user unconditionally. It
// is idempotent and callable from any state.
func (m *Manager) Logout() {
	if err := m.store.Clear(); err != nil {
		m.log.Error().Err(err).Msg("failed to clear session store on logout")
	}
	if err := m.store.ClearActiveClinic(); err != nil {
		m.log.Error().Err(err).Msg("failed to clear active clinic on logout")
	}
	m.transition(StateUnauthenticated, nil)
}

// SessionExpired is the forced-logout hook wired into the api client: the
// store is already cleared, so only the in-memory state resets here.
func (m *Manager) SessionExpired() {
	m.log.Warn().Msg("session expired, returning to login")
	if err := m.store.ClearActiveClinic(); err != nil {
		m.log.Error().Err(err).Msg("failed to clear active clinic")
	}
	m.transition(StateUnauthenticated, nil)
}

func (m *Manager) fetchCurrentUser(ctx context.Context) (*users.User, error) {
	user := &users.User{}
	if err := m.client.Get(ctx, "/users/me", user, nil); err != nil {
		return nil, err
	}
	return user, nil
}

// transition swaps state and user together, preserving the invariant that a
// user is present exactly in the Authenticated state, then notifies
// observers outside the lock.
func (m *Manager) transition(state State, user *users.User) {
	if state != StateAuthenticated {
		user = nil
	}

	m.lock.Lock()
	m.state = state
	m.currentUser = user
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	m.lock.Unlock()

	snap := Snapshot{State: state, User: user}
	for _, obs := range observers {
		obs(snap)
	}
}
