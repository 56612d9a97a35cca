package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundcheck/internal/shared"
)

// State is the authentication state of the session.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Snapshot is a consistent view of the session at one generation.
//
// Token is non-empty exactly when State is [Authenticated].
type Snapshot struct {
	State      State
	Token      string
	Generation uint64
}

// Authenticated reports whether the snapshot carries a token.
func (s Snapshot) Authenticated() bool {
	return s.State == Authenticated
}

// Options configures a [Manager].
type Options struct {
	LoginURL  string           // backend endpoint that starts the authorization flow
	Navigator shared.Navigator // defaults to [shared.OpenBrowser]
	Logger    *log.Logger
}

// Manager owns the access token and the authentication state.
//
// Tokens enter only through [Manager.IngestCallback] and leave only through [Manager.Logout].
// Every transition bumps the generation so fetches started under an older credential can be recognised and dropped.
type Manager struct {
	store     TokenStore
	loginURL  string
	navigate  shared.Navigator
	logger    *log.Logger
	mu        sync.RWMutex
	snap      Snapshot
	listeners map[int]func(Snapshot)
	nextID    int
}

// NewManager creates a [Manager] and restores any token found in store.
func NewManager(ctx context.Context, store TokenStore, opts Options) (*Manager, error) {
	if opts.Navigator == nil {
		opts.Navigator = shared.OpenBrowser
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	m := &Manager{
		store:     store,
		loginURL:  opts.LoginURL,
		navigate:  opts.Navigator,
		logger:    shared.WithLogger(opts.Logger, "component", "session"),
		listeners: make(map[int]func(Snapshot)),
	}

	token, err := store.Get(ctx)
	switch {
	case errors.Is(err, shared.ErrNoToken):
		m.snap = Snapshot{State: Unauthenticated}
	case err != nil:
		return nil, fmt.Errorf("failed to restore session: %w", err)
	default:
		m.snap = Snapshot{State: Authenticated, Token: token}
	}

	m.logger.Debug("session restored", "state", m.snap.State)
	return m, nil
}

// Login hands the backend login URL to the navigator. Session state does not change.
func (m *Manager) Login(ctx context.Context) error {
	if m.loginURL == "" {
		return fmt.Errorf("%w: login URL is not configured", shared.ErrMissingConfig)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.logger.Info("starting login", "url", m.loginURL)
	if err := m.navigate(m.loginURL); err != nil {
		return fmt.Errorf("failed to start login: %w", err)
	}
	return nil
}

// IngestCallback accepts the token delivered by the authorization redirect.
//
// An empty token fails with [shared.ErrAuthFailed] and leaves both store and state untouched.
func (m *Manager) IngestCallback(ctx context.Context, token string) error {
	if token == "" {
		m.logger.Warn("callback carried no token")
		return fmt.Errorf("%w: callback did not include a token", shared.ErrAuthFailed)
	}

	if err := m.store.Set(ctx, token); err != nil {
		m.logger.Warn("failed to persist token", "error", err)
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	snap := m.transition(Authenticated, token)
	m.logger.Info("session authenticated", "generation", snap.Generation)
	m.notify(snap)
	return nil
}

// Logout forgets the token. The in-memory session is cleared even when the store fails; that error is returned.
func (m *Manager) Logout(ctx context.Context) error {
	storeErr := m.store.Clear(ctx)
	if storeErr != nil {
		m.logger.Warn("failed to clear stored token", "error", storeErr)
	}

	snap := m.transition(Unauthenticated, "")
	m.logger.Info("session cleared", "generation", snap.Generation)
	m.notify(snap)

	if storeErr != nil {
		return fmt.Errorf("failed to clear token: %w", storeErr)
	}
	return nil
}

func (m *Manager) transition(state State, token string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = Snapshot{State: state, Token: token, Generation: m.snap.Generation + 1}
	return m.snap
}

func (m *Manager) notify(snap Snapshot) {
	m.mu.RLock()
	fns := make([]func(Snapshot), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Subscribe registers fn to run after every transition. The returned func removes it.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

func (m *Manager) State() State {
	return m.Snapshot().State
}

func (m *Manager) Token() string {
	return m.Snapshot().Token
}

func (m *Manager) Generation() uint64 {
	return m.Snapshot().Generation
}

// IsCurrent reports whether gen is still the live generation.
func (m *Manager) IsCurrent(gen uint64) bool {
	return m.Generation() == gen
}
