package session

import (
	"sync"
	"time"
)

// AuthState is the login progress of a session, as seen by the bridge.
type AuthState string

const (
	StateUninitialized      AuthState = "uninitialized"
	StateWaitResponse       AuthState = "wait_response"
	StateWaitToken          AuthState = "wait_token"
	StateWaitCode           AuthState = "wait_code"
	StateAuthorized         AuthState = "authorized"
	StateInvalidCredentials AuthState = "invalid_credentials"
	StateClosed             AuthState = "closed"
)

// Snapshot is the persisted and reported view of a session.
type Snapshot struct {
	Name      string    `json:"name"`
	ClientID  int       `json:"client_id"`
	State     AuthState `json:"state"`
	TDState   string    `json:"td_state,omitempty"`
	UserID    int64     `json:"user_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is one logical TDLib client.
type Session struct {
	cfg SessionConfig

	mu       sync.Mutex
	snap     Snapshot
	ready    chan struct{}
	notified bool
}

func newSession(cfg SessionConfig, clientID int) *Session {
	return &Session{
		cfg: cfg,
		snap: Snapshot{
			Name:     cfg.Name,
			ClientID: clientID,
			State:    StateUninitialized,
		},
		ready: make(chan struct{}),
	}
}

// Snapshot returns a copy of the session's current view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// update applies fn to the snapshot and returns the result. The ready
// channel is closed the first time the session leaves the login flow, as
// authorized, rejected or closed.
func (s *Session) update(now time.Time, fn func(*Snapshot)) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snap)
	s.snap.UpdatedAt = now
	if !s.notified && s.snap.State.settled() {
		s.notified = true
		close(s.ready)
	}
	return s.snap
}

// seedIdentity reports userID until getMe confirms the session's identity.
// The login state is left alone.
func (s *Session) seedIdentity(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.UserID == 0 {
		s.snap.UserID = userID
	}
}

func (a AuthState) settled() bool {
	return a == StateAuthorized || a == StateInvalidCredentials || a == StateClosed
}
