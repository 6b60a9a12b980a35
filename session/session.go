// Package session models an authentication session as an explicit state
// machine with pure transition functions, and provides stores that hold the
// current session. Stores are passed down to whoever needs them; there is
// no ambient, package-level session.
package session

import (
	"errors"
	"time"
)

// Status is the authentication state of a session.
type Status int

const (
	// Anonymous is the initial state: no credentials have been presented.
	Anonymous Status = iota
	// Authenticating means a login attempt is in progress.
	Authenticating
	// Authenticated means the session carries a valid token.
	Authenticated
	// Failed means the last login attempt was rejected.
	Failed
)

func (s Status) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrInvalidTransition is returned when a transition is applied to a
// session in a state it doesn't accept.
var ErrInvalidTransition = errors.New("session: invalid transition")

// Session is an immutable value; every transition returns a new one.
type Session struct {
	Status   Status    `json:"status"`
	Token    string    `json:"token,omitempty"`
	UserID   string    `json:"user_id,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	IssuedAt time.Time `json:"issued_at,omitempty"`
}

// Begin starts a login attempt. Valid from every state except an attempt
// that is already in progress.
func Begin(s Session) (Session, error) {
	if s.Status == Authenticating {
		return s, ErrInvalidTransition
	}
	return Session{Status: Authenticating}, nil
}

// Authenticate completes a login attempt with a token. Only valid while a
// login attempt is in progress.
func Authenticate(s Session, token, userID string, issuedAt time.Time) (Session, error) {
	if s.Status != Authenticating {
		return s, ErrInvalidTransition
	}
	return Session{
		Status:   Authenticated,
		Token:    token,
		UserID:   userID,
		IssuedAt: issuedAt,
	}, nil
}

// Reject fails a login attempt with a reason. Only valid while a login
// attempt is in progress.
func Reject(s Session, reason string) (Session, error) {
	if s.Status != Authenticating {
		return s, ErrInvalidTransition
	}
	return Session{Status: Failed, Reason: reason}, nil
}

// Reset drops the session back to anonymous. Valid from every state.
func Reset(Session) Session {
	return Session{Status: Anonymous}
}
