// Package session owns the customer's authentication state on the storefront client.
//
// A Manager starts in the Resolving state and moves to Authenticated or Anonymous once Init has
// asked the backend for the current user. Login and Register run one at a time: a call made while
// another is outstanding is rejected without touching state.
package session

import (
	"context"
	"errors"
	"sync"

	"dlc_store/internal/gateway"
	"dlc_store/internal/models"
	"dlc_store/internal/pkg/logger"
)

// User-facing error messages.
const (
	MsgLoginFailed    = "login failed"
	MsgRegisterFailed = "registration failed"
	MsgNetworkError   = "network error"
	// MsgAuthInProgress describes a Login or Register rejected while another one is in flight.
	// It is never stored as Error, since a rejected call leaves state untouched.
	MsgAuthInProgress = "authentication already in progress"
)

// ErrBusy is logged when an authentication call is rejected because another is in flight.
var ErrBusy = errors.New("session: " + MsgAuthInProgress)

// State is the logical session state.
type State int

const (
	Anonymous State = iota
	Resolving
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Resolving:
		return "resolving"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Manager exposes login, registration and logout plus the resulting user, error and loading state.
type Manager struct {
	gateway gateway.Gateway
	log     *logger.Logger

	mu         sync.RWMutex
	user       *models.User
	errMessage string
	resolving  bool
	inFlight   bool
}

// NewManager creates a Manager in the Resolving state. Call Init to settle it.
func NewManager(gw gateway.Gateway, l *logger.Logger) *Manager {
	return &Manager{gateway: gw, log: l, resolving: true}
}

// Init restores the session from the ambient credential. Failures of any kind leave the manager
// anonymous without a user-visible error. A user signed in while Init was outstanding is kept.
func (m *Manager) Init(ctx context.Context) {
	defer func() {
		m.mu.Lock()
		m.resolving = false
		m.mu.Unlock()
	}()

	resp, err := m.gateway.CurrentUser(ctx)
	if err != nil {
		m.log.Sugar().Warnf("Session check failed: %s", err)
		return
	}
	if !resp.Success {
		m.log.Sugar().Debugf("No active session: %s", resp.Message)
		return
	}

	user := resp.Data
	m.mu.Lock()
	if m.user == nil {
		m.user = &user
	}
	m.mu.Unlock()
}

// Login authenticates with email and password. It reports whether the customer is now signed in;
// on failure Error holds the reason.
func (m *Manager) Login(ctx context.Context, credentials models.LoginRequest) bool {
	return m.authenticate(ctx, MsgLoginFailed, func(ctx context.Context) (models.Response[models.AuthPayload], error) {
		return m.gateway.Authenticate(ctx, credentials)
	})
}

// Register creates an account and signs the customer in.
func (m *Manager) Register(ctx context.Context, data models.RegisterRequest) bool {
	return m.authenticate(ctx, MsgRegisterFailed, func(ctx context.Context) (models.Response[models.AuthPayload], error) {
		return m.gateway.Register(ctx, data)
	})
}

// Logout ends the session. The user is cleared even when no session was active.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.gateway.EndSession(ctx); err != nil {
		m.log.Sugar().Warnf("Failed to end session: %s", err)
	}

	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()
}

func (m *Manager) authenticate(ctx context.Context, fallback string, call func(context.Context) (models.Response[models.AuthPayload], error)) bool {
	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		m.log.Sugar().Infof("Rejected authentication call: %s", ErrBusy)
		return false
	}
	m.inFlight = true
	m.errMessage = ""
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight = false
		m.mu.Unlock()
	}()

	resp, err := call(ctx)
	if err != nil {
		m.log.Sugar().Errorf("Authentication request failed: %s", err)
		m.setError(MsgNetworkError)
		return false
	}
	if !resp.Success {
		message := resp.Message
		if message == "" {
			message = fallback
		}
		m.setError(message)
		return false
	}

	user := resp.Data.User
	m.mu.Lock()
	m.user = &user
	m.resolving = false
	m.mu.Unlock()
	return true
}

func (m *Manager) setError(message string) {
	m.mu.Lock()
	m.errMessage = message
	m.mu.Unlock()
}

// User returns a copy of the signed-in customer, or nil.
func (m *Manager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.user == nil {
		return nil
	}
	user := *m.user
	return &user
}

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// Error returns the message of the last failed login or registration, or "".
func (m *Manager) Error() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errMessage
}

// Loading reports whether the initial check or an authentication call is outstanding.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolving || m.inFlight
}

// State returns the current logical state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch {
	case m.inFlight:
		return Authenticating
	case m.user != nil:
		return Authenticated
	case m.resolving:
		return Resolving
	default:
		return Anonymous
	}
}
