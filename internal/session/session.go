// Package session owns the authentication token lifecycle.
//
// A Manager starts in StateLoading, settles into StateAuthenticated or
// StateUnauthenticated after Bootstrap, and moves between those two on
// Login, Register and Logout. The token is the only state persisted; it
// lives in a store.Store under TokenKey.
//
// The token is never attached to shared request defaults. Callers ask for
// Credential() and pass it with each remote call.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"tasksync/internal/service"
	"tasksync/internal/store"
)

// TokenKey is the store key holding the persisted token.
const TokenKey = "token"

// TokenType labels persisted tokens; the API sends them in the
// x-auth-token header rather than as a bearer token.
const TokenType = "x-auth-token"

// State is the authentication status of a session.
type State int

// Session states.
const (
	StateLoading State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Listener is called after every state transition with the new state.
type Listener func(ctx context.Context, st State)

// ErrSuperseded is wrapped by an AuthError when a newer login, register
// or logout finished first and this result was discarded.
var ErrSuperseded = errors.New("superseded by a newer session change")

// AuthError is a failed login or registration. Message is suitable for
// display.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Err }

type subscription struct {
	id int
	fn Listener
}

// Manager is the session state machine.
type Manager struct {
	svc   service.Service
	store store.Store
	log   *slog.Logger

	mu           sync.Mutex
	state        State
	token        string
	user         *service.User
	bootstrapped bool
	epoch        uint64
	listeners    []subscription
	nextID       int
}

// New creates a Manager in StateLoading. Call Bootstrap once to settle it.
func New(svc service.Service, st store.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		svc:   svc,
		store: st,
		log:   logger.With("component", "session"),
		state: StateLoading,
	}
}

// Subscribe registers l to be called after each state transition.
// The returned function removes it.
func (m *Manager) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, subscription{id: id, fn: l})
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.listeners {
			if s.id == id {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Authenticated reports whether the session holds a confirmed token.
func (m *Manager) Authenticated() bool {
	return m.State() == StateAuthenticated
}

// User returns the profile of the signed-in account.
func (m *Manager) User() (service.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return service.User{}, false
	}
	return *m.user, true
}

// Token returns the current token, or "" when unauthenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated {
		return ""
	}
	return m.token
}

// Credential returns the credential to attach to remote calls, or nil
// when there is no authenticated session.
func (m *Manager) Credential() oauth2.TokenSource {
	tok := m.Token()
	if tok == "" {
		return nil
	}
	return credential(tok)
}

func credential(tok string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok, TokenType: TokenType})
}

// Bootstrap confirms a persisted token, if any. It runs once; later calls
// return immediately. Any failure is treated as "not logged in": the token
// is purged and the session becomes unauthenticated. There is no retry.
func (m *Manager) Bootstrap(ctx context.Context) {
	m.mu.Lock()
	if m.bootstrapped {
		m.mu.Unlock()
		return
	}
	m.bootstrapped = true
	m.epoch++
	epoch := m.epoch
	m.mu.Unlock()

	tok, err := m.loadToken()
	if err != nil {
		m.log.Warn("unreadable persisted token", "error", err)
		m.settle(ctx, epoch, "", nil)
		return
	}
	if tok == "" {
		m.log.Debug("no persisted token")
		m.settle(ctx, epoch, "", nil)
		return
	}

	user, err := m.svc.Me(ctx, credential(tok))
	if err != nil {
		m.log.Warn("persisted token rejected", "error", err)
		m.settle(ctx, epoch, "", nil)
		return
	}
	if err := m.settle(ctx, epoch, tok, &user); err == nil {
		m.log.Info("session restored", "user", user.Email)
	}
}

// Login exchanges credentials for a token and loads the profile.
// On failure it returns an *AuthError and leaves the session
// unauthenticated with no persisted token.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	epoch := m.begin()
	tok, err := m.svc.Login(ctx, email, password)
	return m.complete(ctx, epoch, "login", "Login failed", tok, err)
}

// Register creates an account; the returned token is used directly, no
// separate login is needed. Failure semantics match Login.
func (m *Manager) Register(ctx context.Context, name, email, password string) error {
	epoch := m.begin()
	tok, err := m.svc.Register(ctx, name, email, password)
	return m.complete(ctx, epoch, "register", "Registration failed", tok, err)
}

// Logout purges the token and ends the session. It always succeeds.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.epoch++
	m.bootstrapped = true
	if err := m.store.Delete(TokenKey); err != nil {
		m.log.Warn("failed to purge token", "error", err)
	}
	notify := m.setLocked(StateUnauthenticated, "", nil)
	m.mu.Unlock()

	notify(context.Background())
	m.log.Info("logged out")
}

func (m *Manager) begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.bootstrapped = true
	return m.epoch
}

func (m *Manager) complete(ctx context.Context, epoch uint64, op, fallback, tok string, err error) error {
	var user service.User
	if err == nil {
		user, err = m.svc.Me(ctx, credential(tok))
	}
	if err != nil {
		m.log.Warn(op+" failed", "error", err)
		if serr := m.settle(ctx, epoch, "", nil); serr != nil {
			return &AuthError{Op: op, Message: fallback, Err: serr}
		}
		return &AuthError{Op: op, Message: displayMessage(err, fallback), Err: err}
	}

	if err := m.settle(ctx, epoch, tok, &user); err != nil {
		return &AuthError{Op: op, Message: fallback, Err: err}
	}
	m.log.Info(op+" succeeded", "user", user.Email)
	return nil
}

// settle commits the outcome of the operation started at epoch. It
// returns ErrSuperseded when a newer one has begun, and the persist error
// when a token could not be saved; the session is then unauthenticated.
// A nil user purges the token.
func (m *Manager) settle(ctx context.Context, epoch uint64, tok string, user *service.User) error {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return ErrSuperseded
	}

	var notify func(context.Context)
	var err error
	switch {
	case user == nil:
		if derr := m.store.Delete(TokenKey); derr != nil {
			m.log.Warn("failed to purge token", "error", derr)
		}
		notify = m.setLocked(StateUnauthenticated, "", nil)
	default:
		if err = m.saveToken(tok); err != nil {
			m.log.Error("failed to persist token", "error", err)
			err = fmt.Errorf("persist token: %w", err)
			_ = m.store.Delete(TokenKey)
			notify = m.setLocked(StateUnauthenticated, "", nil)
		} else {
			notify = m.setLocked(StateAuthenticated, tok, user)
		}
	}
	m.mu.Unlock()

	notify(ctx)
	return err
}

// setLocked updates the state and returns a function that notifies
// listeners; call it after releasing the lock. Re-entering
// StateAuthenticated notifies again since the account may have changed.
func (m *Manager) setLocked(st State, tok string, user *service.User) func(context.Context) {
	prev := m.state
	m.state = st
	m.token = tok
	m.user = user
	if prev == st && st != StateAuthenticated {
		return func(context.Context) {}
	}

	listeners := make([]Listener, len(m.listeners))
	for i, s := range m.listeners {
		listeners[i] = s.fn
	}
	m.log.Debug("session transition", "from", prev, "to", st)
	return func(ctx context.Context) {
		for _, l := range listeners {
			l(ctx, st)
		}
	}
}

// loadToken reads the persisted token. A missing key yields "".
func (m *Manager) loadToken() (string, error) {
	raw, err := m.store.Get(TokenKey)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		_ = m.store.Delete(TokenKey)
		return "", err
	}
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		_ = m.store.Delete(TokenKey)
		return "", err
	}
	return tok.AccessToken, nil
}

func (m *Manager) saveToken(tok string) error {
	data, err := json.Marshal(&oauth2.Token{AccessToken: tok, TokenType: TokenType})
	if err != nil {
		return err
	}
	return m.store.Set(TokenKey, string(data))
}

// displayMessage returns the server's message for err, or fallback.
func displayMessage(err error, fallback string) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return gerr.Message
	}
	return fallback
}
