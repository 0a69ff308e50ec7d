// Package session implements short-lived, single-use protocol sessions
// and an in-memory store that evicts abandoned sessions on timeout.
package session

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned for an absent, unknown, closed or
	// evicted session.
	ErrNotFound = errors.New("[session] Session not found")
	// ErrNotAuthorized is returned for a session that exists but
	// has not been authorized.
	ErrNotAuthorized = errors.New("[session] Session is not authorized")
)

// A Session carries per-session parameters P between the steps of a
// protocol. It is owned by its Store while alive; handlers get it by
// reference for the duration of one request.
type Session[P any] struct {
	id string
	// Params is only touched by the handler currently holding
	// the session.
	Params P

	mu             sync.Mutex
	authorized     bool
	closed         bool
	lastAccessedAt time.Time
	cleanups       []func()
	remove         func(id string)
}

// ID returns the session's random, unguessable id.
func (s *Session[P]) ID() string {
	return s.id
}

// IsAuthorized reports whether the session has been authorized.
func (s *Session[P]) IsAuthorized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authorized
}

// Authorize promotes the session to authorized.
func (s *Session[P]) Authorize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorized = true
}

// LastAccessedAt returns the time the session was last looked up.
func (s *Session[P]) LastAccessedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessedAt
}

func (s *Session[P]) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessedAt = now
}

// AddCleanUp registers f to be called once when the session is closed
// or evicted. Cleanups wipe the session's secret material.
func (s *Session[P]) AddCleanUp(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		f()
		return
	}
	s.cleanups = append(s.cleanups, f)
}

// Close removes the session from its store and runs its cleanups.
// It is safe to call more than once.
func (s *Session[P]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.authorized = false
	cleanups := s.cleanups
	s.cleanups = nil
	remove := s.remove
	s.mu.Unlock()

	if remove != nil {
		remove(s.id)
	}
	for _, f := range cleanups {
		f()
	}
}

// IsClosed reports whether the session has been closed or evicted.
func (s *Session[P]) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
