// Package auth derives the client's authentication state from login,
// register, logout, and session recovery, and keeps the session store in
// step with it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"todo/internal/service"
	"todo/internal/session"
	"todo/internal/transport"
)

// AccountNotFoundDetail is the detail the login endpoint sends for an email
// with no account.
const AccountNotFoundDetail = "User not found"

// Fallback messages when a failure carries no server detail.
const (
	loginFailedMessage    = "Login failed"
	registerFailedMessage = "Registration failed"
)

// ErrSuperseded is returned by an operation whose result was discarded
// because a later operation started before it finished.
var ErrSuperseded = errors.New("superseded by a later auth operation")

// IsAccountNotFound reports whether err is the login endpoint's "no such
// account" answer: status 404 with detail exactly AccountNotFoundDetail.
// Any other 404 does not qualify.
func IsAccountNotFound(err error) bool {
	var apiErr *transport.APIError
	return errors.As(err, &apiErr) &&
		apiErr.StatusCode == http.StatusNotFound &&
		apiErr.Detail == AccountNotFoundDetail
}

// OpError is returned when login or register fails. Message is what the
// user should see; Err is the underlying cause.
type OpError struct {
	Message string
	Err     error
}

func (e *OpError) Error() string { return e.Message }
func (e *OpError) Unwrap() error { return e.Err }

// Authenticator is the subset of service.Service the machine drives.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (service.AuthResult, error)
	Register(ctx context.Context, email, password string) (service.AuthResult, error)
	Session(ctx context.Context) (service.User, error)
	Logout(ctx context.Context) error
}

// Machine is the single source of truth for authentication state.
//
// Every operation takes a sequence number when it starts. When its network
// call returns, the result is applied only if no other operation has started
// since; otherwise it is dropped and the caller gets ErrSuperseded.
type Machine struct {
	api     Authenticator
	store   session.Store
	timeout time.Duration
	logger  *slog.Logger

	mu        sync.Mutex
	state     State
	seq       uint64
	subs      map[int]func(State)
	nextSubID int
}

// Option configures a Machine.
type Option func(*Machine)

// WithTimeout bounds each operation's network calls. Zero means no bound
// beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(m *Machine) { m.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// New creates a Machine in the Idle state.
func New(api Authenticator, store session.Store, opts ...Option) *Machine {
	m := &Machine{
		api:    api,
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		subs:   make(map[int]func(State)),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// State returns a snapshot of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Subscribe registers fn to be called with the new state after every
// transition. The returned function removes the subscription.
func (m *Machine) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// CheckSession recovers the session from the store. With no stored token it
// settles on Unauthenticated without any network call. Otherwise it asks the
// server who the token belongs to; any failure clears the store and settles
// on Unauthenticated.
func (m *Machine) CheckSession(ctx context.Context) (State, error) {
	token, err := m.store.Load()
	if err != nil {
		seq := m.begin(nil)
		st, serr := m.complete(seq, nil, SessionMissing{})
		if errors.Is(err, session.ErrNoSession) {
			return st, serr
		}
		return st, fmt.Errorf("load session: %w", err)
	}

	seq := m.begin(SessionCheckStarted{})
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	user, err := m.api.Session(ctx)
	if err != nil {
		m.logger.Debug("stored session rejected", "error", err)
		return m.complete(seq, m.clearStore, SessionMissing{})
	}
	return m.complete(seq, nil, SessionRestored{User: user, Token: token})
}

// Login authenticates with email and password. If the server answers that
// the account does not exist (see IsAccountNotFound), Login registers it with
// the same credentials and adopts the outcome. Other failures move to Error
// with the server's message, which is also the returned error's message.
func (m *Machine) Login(ctx context.Context, email, password string) (State, error) {
	seq := m.begin(LoginStarted{})
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	res, err := m.api.Login(ctx, email, password)
	fallback := loginFailedMessage
	if IsAccountNotFound(err) {
		m.logger.Debug("no account for email, registering", "email", email)
		res, err = m.api.Register(ctx, email, password)
		fallback = registerFailedMessage
	}
	if err != nil {
		return m.fail(seq, err, fallback)
	}
	return m.succeed(seq, res)
}

// Register creates an account and signs in to it.
func (m *Machine) Register(ctx context.Context, email, password string) (State, error) {
	seq := m.begin(LoginStarted{})
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	res, err := m.api.Register(ctx, email, password)
	if err != nil {
		return m.fail(seq, err, registerFailedMessage)
	}
	return m.succeed(seq, res)
}

// Logout clears the store and resets to Unauthenticated. It makes no network
// call and supersedes any operation in flight. The returned error reports a
// store that could not be cleared; the state is reset regardless.
func (m *Machine) Logout() error {
	m.mu.Lock()
	m.seq++
	err := m.store.Clear()
	m.state = Reduce(m.state, LoggedOut{})
	st, subs := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(st, subs)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// LogoutRemote tells the server the session is over, then logs out locally.
// The server call is best-effort: its failure is logged and otherwise
// ignored.
func (m *Machine) LogoutRemote(ctx context.Context) error {
	if _, err := m.store.Load(); err == nil {
		ctx, cancel := m.withTimeout(ctx)
		if err := m.api.Logout(ctx); err != nil {
			m.logger.Debug("server logout failed", "error", err)
		}
		cancel()
	}
	return m.Logout()
}

func (m *Machine) succeed(seq uint64, res service.AuthResult) (State, error) {
	save := func() error { return m.store.Save(res.AccessToken) }
	return m.complete(seq, save, LoginSucceeded{User: res.User, Token: res.AccessToken})
}

func (m *Machine) fail(seq uint64, cause error, fallback string) (State, error) {
	msg := transport.Detail(cause)
	if msg == "" {
		msg = fallback
	}
	m.logger.Debug("auth operation failed", "message", msg, "error", cause)

	st, err := m.complete(seq, nil, LoginFailed{Message: msg})
	if err != nil {
		return st, err
	}
	return st, &OpError{Message: msg, Err: cause}
}

func (m *Machine) clearStore() error {
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("failed to clear rejected session", "error", err)
	}
	return nil
}

// begin starts an operation, applying e if non-nil, and returns its
// sequence number.
func (m *Machine) begin(e Event) uint64 {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	if e == nil {
		m.mu.Unlock()
		return seq
	}
	m.state = Reduce(m.state, e)
	st, subs := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(st, subs)
	return seq
}

// complete applies e if seq is still the latest operation. commit, if set,
// runs first under the same lock; if it fails the operation ends in Error
// instead and the commit error is returned.
func (m *Machine) complete(seq uint64, commit func() error, e Event) (State, error) {
	m.mu.Lock()
	if seq != m.seq {
		st := m.state.clone()
		m.mu.Unlock()
		m.logger.Debug("discarding stale auth result", "event", fmt.Sprintf("%T", e))
		return st, ErrSuperseded
	}

	var commitErr error
	if commit != nil {
		if err := commit(); err != nil {
			commitErr = fmt.Errorf("save session: %w", err)
			e = LoginFailed{Message: commitErr.Error()}
		}
	}
	m.state = Reduce(m.state, e)
	st, subs := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(st, subs)
	return st.clone(), commitErr
}

func (m *Machine) snapshotLocked() (State, []func(State)) {
	subs := make([]func(State), 0, len(m.subs))
	for id := 0; id < m.nextSubID; id++ {
		if fn, ok := m.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	return m.state.clone(), subs
}

func (m *Machine) notify(st State, subs []func(State)) {
	for _, fn := range subs {
		fn(st.clone())
	}
}

func (m *Machine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(ctx, m.timeout)
	}
	return context.WithCancel(ctx)
}
