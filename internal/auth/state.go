package auth

import (
	"fmt"

	"todo/internal/service"
)

// Status is the coarse authentication status.
type Status int

const (
	// Idle is the initial status, before any session check.
	Idle Status = iota
	// CheckingSession covers every in-flight operation: session recovery,
	// login, and register.
	CheckingSession
	// Authenticated means a verified user and token are held.
	Authenticated
	// Unauthenticated means there is no usable session.
	Unauthenticated
	// Error means the last login or register failed. The next operation
	// moves out of it.
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case CheckingSession:
		return "checking"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	case Error:
		return "error"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// State is the derived authentication state. User and Token are set only
// when Status is Authenticated; ErrorMessage only when Status is Error.
type State struct {
	Status       Status
	User         *service.User
	Token        string
	ErrorMessage string
}

// Authenticated reports whether s holds a verified session.
func (s State) Authenticated() bool {
	return s.Status == Authenticated
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Event is a transition input. The set of events is closed: only the types
// in this package implement it.
type Event interface {
	event()
}

// SessionCheckStarted marks the start of session recovery.
type SessionCheckStarted struct{}

// SessionMissing reports that there is no stored token, or that the stored
// token was rejected.
type SessionMissing struct{}

// SessionRestored reports a stored token verified by the server.
type SessionRestored struct {
	User  service.User
	Token string
}

// LoginStarted marks the start of a login or register attempt.
type LoginStarted struct{}

// LoginSucceeded reports a token issued by login or register.
type LoginSucceeded struct {
	User  service.User
	Token string
}

// LoginFailed reports a failed login or register.
type LoginFailed struct {
	Message string
}

// LoggedOut reports a local logout.
type LoggedOut struct{}

func (SessionCheckStarted) event() {}
func (SessionMissing) event()      {}
func (SessionRestored) event()     {}
func (LoginStarted) event()        {}
func (LoginSucceeded) event()      {}
func (LoginFailed) event()         {}
func (LoggedOut) event()           {}

// Reduce returns the state that follows s after e. Every transition builds
// a fresh State, so nothing from an earlier session leaks into a later one.
func Reduce(s State, e Event) State {
	switch e := e.(type) {
	case SessionCheckStarted, LoginStarted:
		return State{Status: CheckingSession}
	case SessionMissing, LoggedOut:
		return State{Status: Unauthenticated}
	case SessionRestored:
		return authenticated(e.User, e.Token)
	case LoginSucceeded:
		return authenticated(e.User, e.Token)
	case LoginFailed:
		return State{Status: Error, ErrorMessage: e.Message}
	default:
		panic(fmt.Sprintf("auth: unhandled event %T", e))
	}
}

func authenticated(u service.User, token string) State {
	return State{Status: Authenticated, User: &u, Token: token}
}
