package session

import (
	"encoding/base64"
	"sync"
	"time"

	"github.com/3nsoft/mailerid-go/crypto"
)

// idBytes random bytes give 40 base64 characters.
const idBytes = 30

// A Store holds live sessions by id.
type Store[P any] interface {
	// New creates, registers and returns a fresh session.
	New() (*Session[P], error)
	// Get returns the session with the given id and marks it as
	// accessed.
	Get(id string) (*Session[P], bool)
	// Remove drops the session without running its cleanups.
	Remove(id string)
}

// Require looks up a session for a request that needs one. An empty or
// unknown id gives ErrNotFound; with authorized set, a session that is
// not authorized gives ErrNotAuthorized.
func Require[P any](st Store[P], id string, authorized bool) (*Session[P], error) {
	if id == "" {
		return nil, ErrNotFound
	}
	s, ok := st.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if authorized && !s.IsAuthorized() {
		return nil, ErrNotAuthorized
	}
	return s, nil
}

// A MemoryStore keeps sessions in memory and evicts those not accessed
// for its timeout. Eviction runs the sessions' cleanups.
type MemoryStore[P any] struct {
	mu       sync.Mutex
	sessions map[string]*Session[P]
	timeout  time.Duration
	clock    func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	waitStop sync.WaitGroup
}

var _ Store[struct{}] = (*MemoryStore[struct{}])(nil)

// NewMemoryStore creates a store with the given session timeout.
// A nil clock means time.Now.
func NewMemoryStore[P any](timeout time.Duration, clock func() time.Time) *MemoryStore[P] {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore[P]{
		sessions: make(map[string]*Session[P]),
		timeout:  timeout,
		clock:    clock,
		stop:     make(chan struct{}),
	}
}

// New creates and registers a session with a fresh random id.
func (st *MemoryStore[P]) New() (*Session[P], error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	var id string
	for {
		r, err := crypto.MakeRand(idBytes)
		if err != nil {
			return nil, err
		}
		id = base64.StdEncoding.EncodeToString(r)
		if _, exists := st.sessions[id]; !exists {
			break
		}
	}
	s := &Session[P]{
		id:             id,
		lastAccessedAt: st.clock(),
		remove:         st.Remove,
	}
	st.sessions[id] = s
	return s, nil
}

// Get returns the session and updates its last access time.
func (st *MemoryStore[P]) Get(id string) (*Session[P], bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	s.touch(st.clock())
	return s, true
}

// Remove drops the session from the store.
func (st *MemoryStore[P]) Remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of live sessions.
func (st *MemoryStore[P]) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep evicts sessions whose last access is at least timeout ago,
// and returns how many were evicted.
func (st *MemoryStore[P]) Sweep() int {
	now := st.clock()
	var expired []*Session[P]
	st.mu.Lock()
	for id, s := range st.sessions {
		if now.Sub(s.LastAccessedAt()) >= st.timeout {
			delete(st.sessions, id)
			expired = append(expired, s)
		}
	}
	st.mu.Unlock()
	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

// Run sweeps the store every half timeout in the background, until Stop.
// onSweep, when set, is told how many sessions each sweep evicted.
func (st *MemoryStore[P]) Run(onSweep func(evicted int)) {
	st.waitStop.Add(1)
	go func() {
		defer st.waitStop.Done()
		ticker := time.NewTicker(st.timeout / 2)
		defer ticker.Stop()
		for {
			select {
			case <-st.stop:
				return
			case <-ticker.C:
				n := st.Sweep()
				if onSweep != nil {
					onSweep(n)
				}
			}
		}
	}()
}

// Stop ends background sweeping and closes all remaining sessions.
func (st *MemoryStore[P]) Stop() {
	st.stopOnce.Do(func() { close(st.stop) })
	st.waitStop.Wait()
	st.mu.Lock()
	remaining := make([]*Session[P], 0, len(st.sessions))
	for _, s := range st.sessions {
		remaining = append(remaining, s)
	}
	st.sessions = make(map[string]*Session[P])
	st.mu.Unlock()
	for _, s := range remaining {
		s.Close()
	}
}
