package secsim

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Defaults matching the simulated login screen's policy.
const (
	DefaultSessionTimeout = 30 * time.Minute
	DefaultMaxAttempts    = 5
	DefaultLockout        = 15 * time.Minute
)

// ErrBadCredentials is returned by Login on a username/password mismatch.
var ErrBadCredentials = errors.New("secsim: invalid credentials")

// LockedOutError is returned by Login while the attempt counter is saturated.
type LockedOutError struct {
	// Remaining is how long until the lockout lazily expires.
	Remaining time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("secsim: locked out for another %s", e.Remaining.Truncate(time.Second))
}

// Credential is one accepted username/password pair.
type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Sessions gates mutation authority behind a simulated login: a configured
// credential list, a session that expires after inactivity, and an attempt
// counter with lockout.
//
// All expirations are compared lazily against the injected clock on each
// call; there are no background timers.
type Sessions struct {
	mu sync.Mutex

	creds       []Credential
	timeout     time.Duration
	maxAttempts int
	lockout     time.Duration

	attempts    int
	lastAttempt time.Time
	activeSince time.Time
	active      bool

	// now is injected for deterministic tests. Production uses time.Now.
	now func() time.Time
}

// NewSessions builds a session gate over creds with the default policy.
func NewSessions(creds []Credential) *Sessions {
	return &Sessions{
		creds:       creds,
		timeout:     DefaultSessionTimeout,
		maxAttempts: DefaultMaxAttempts,
		lockout:     DefaultLockout,
		now:         time.Now,
	}
}

// Login validates the credentials and opens a session.
//
// Errors:
//   - *LockedOutError while the attempt counter is saturated and the lockout
//     has not yet lapsed. The failed attempt is not recorded again.
//   - ErrBadCredentials on mismatch; the attempt counter is incremented.
//
// A successful login resets the attempt counter.
func (s *Sessions) Login(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	// Lazy lockout reset: a saturated counter clears once the lockout
	// window has fully elapsed since the last failed attempt.
	if now.Sub(s.lastAttempt) > s.lockout {
		s.attempts = 0
	}
	if s.attempts >= s.maxAttempts {
		return &LockedOutError{Remaining: s.lockout - now.Sub(s.lastAttempt)}
	}

	if !s.match(username, password) {
		s.attempts++
		s.lastAttempt = now
		return ErrBadCredentials
	}

	s.attempts = 0
	s.active = true
	s.activeSince = now
	return nil
}

func (s *Sessions) match(username, password string) bool {
	ok := false
	for _, c := range s.creds {
		u := subtle.ConstantTimeCompare([]byte(c.Username), []byte(username))
		p := subtle.ConstantTimeCompare([]byte(c.Password), []byte(password))
		if u&p == 1 {
			ok = true
		}
	}
	return ok
}

// Authorized reports whether a live, unexpired session exists. This is the
// capability the editing core consumes.
func (s *Sessions) Authorized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return false
	}
	if s.now().Sub(s.activeSince) >= s.timeout {
		s.active = false
		return false
	}
	return true
}

// Extend refreshes the session's activity clock, mirroring the original's
// extend-on-activity behavior. A no-op when no session is live.
func (s *Sessions) Extend() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active && s.now().Sub(s.activeSince) < s.timeout {
		s.activeSince = s.now()
	}
}

// Logout closes the session immediately.
func (s *Sessions) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// AttemptsRemaining reports how many failed logins remain before lockout.
func (s *Sessions) AttemptsRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.now().Sub(s.lastAttempt) > s.lockout {
		return s.maxAttempts
	}
	n := s.maxAttempts - s.attempts
	if n < 0 {
		return 0
	}
	return n
}
