// Package auth manages the single signed-in session. There is no real
// identity provider behind it: credential login accepts anything after a
// simulated round trip, and the SSO path fails whenever the caller omits
// the password. That SSO behavior is a caller contract, not an accident.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nazeru/storefront-lab-go/internal/store/domain"
	"github.com/nazeru/storefront-lab-go/internal/store/simulate"
	"github.com/nazeru/storefront-lab-go/pkg/contracts"
	"github.com/nazeru/storefront-lab-go/pkg/logging"
	"github.com/nazeru/storefront-lab-go/pkg/metrics"
)

// ErrSSOMissingCredentials is the hard failure of the SSO stub when no
// password is supplied.
var ErrSSOMissingCredentials = errors.New("SSO authentication failed: missing credentials")

const (
	DefaultDelay = 1 * time.Second

	demoAvatar = "https://images.pexels.com/photos/614810/pexels-photo-614810.jpeg?auto=compress&cs=tinysrgb&w=1260&h=750&dpr=2"
)

type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
)

type Manager struct {
	mu    sync.Mutex
	state State
	user  domain.User

	Delay   time.Duration
	journal *contracts.Journal
	metrics *metrics.StoreMetrics
}

type Option func(*Manager)

func WithDelay(d time.Duration) Option {
	return func(m *Manager) { m.Delay = d }
}

func WithJournal(j *contracts.Journal) Option {
	return func(m *Manager) { m.journal = j }
}

func WithMetrics(sm *metrics.StoreMetrics) Option {
	return func(m *Manager) { m.metrics = sm }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{state: StateUnauthenticated, Delay: DefaultDelay}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Bootstrap simulates checking for a stored session at startup. There is
// no store, so it always resolves signed out.
func (m *Manager) Bootstrap(ctx context.Context) error {
	m.setState(StateAuthenticating)
	if err := simulate.Sleep(ctx, m.Delay); err != nil {
		m.setState(StateUnauthenticated)
		return err
	}
	m.mu.Lock()
	m.state = StateUnauthenticated
	m.user = domain.User{}
	m.mu.Unlock()
	return nil
}

// Login signs in with username/password. The password is never checked;
// a blank username becomes the demo identity.
func (m *Manager) Login(ctx context.Context, username, password string) (domain.User, error) {
	return m.signIn(ctx, "password", username, func() error { return nil })
}

// LoginWithSSO signs in through the SSO stub. It requires a non-empty
// password; callers that omit it always get ErrSSOMissingCredentials and
// the session stays unauthenticated.
func (m *Manager) LoginWithSSO(ctx context.Context, username, password string) (domain.User, error) {
	return m.signIn(ctx, "sso", username, func() error {
		if password == "" {
			return ErrSSOMissingCredentials
		}
		return nil
	})
}

func (m *Manager) signIn(ctx context.Context, method, username string, check func() error) (domain.User, error) {
	start := time.Now()
	m.setState(StateAuthenticating)

	if err := simulate.Sleep(ctx, m.Delay); err != nil {
		m.setState(StateUnauthenticated)
		return domain.User{}, err
	}
	if err := check(); err != nil {
		m.setState(StateUnauthenticated)
		m.countLogin(method, "failed")
		if m.journal != nil {
			m.journal.Record(contracts.EventAuthSignInFailed, "", map[string]any{"method": method})
		}
		logging.Log(logging.Fields{Service: "auth", Step: method, Status: "failed", DurationMS: time.Since(start).Milliseconds(), Message: err.Error()})
		return domain.User{}, err
	}

	user := demoUser(username)
	m.mu.Lock()
	m.state = StateAuthenticated
	m.user = user
	m.mu.Unlock()

	m.countLogin(method, "ok")
	if m.journal != nil {
		m.journal.Record(contracts.EventAuthSignedIn, "", map[string]any{"method": method, "user_id": string(user.ID)})
	}
	logging.Log(logging.Fields{Service: "auth", UserID: string(user.ID), Step: method, Status: "signed_in", DurationMS: time.Since(start).Milliseconds()})
	return user, nil
}

// Logout clears the session. Unlike the login paths it is synchronous.
func (m *Manager) Logout() {
	m.mu.Lock()
	wasSignedIn := m.state == StateAuthenticated
	m.state = StateUnauthenticated
	m.user = domain.User{}
	m.mu.Unlock()
	if wasSignedIn && m.journal != nil {
		m.journal.Record(contracts.EventAuthSignedOut, "", nil)
	}
}

// User returns the current session's user, if any.
func (m *Manager) User() (domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user, m.state == StateAuthenticated
}

func (m *Manager) IsAuthenticated() bool {
	_, ok := m.User()
	return ok
}

// IsLoading reports whether a login or bootstrap check is in flight.
func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAuthenticating
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) countLogin(method, status string) {
	if m.metrics != nil {
		m.metrics.Logins.WithLabelValues(method, status).Inc()
	}
}

func demoUser(username string) domain.User {
	name := username
	if name == "" {
		name = "Demo User"
	}
	local := strings.ToLower(username)
	if local == "" {
		local = "demo"
	}
	return domain.User{
		ID:     "1",
		Name:   name,
		Email:  local + "@example.com",
		Avatar: demoAvatar,
	}
}
