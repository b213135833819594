package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownSession is returned for an id the store does not hold.
var ErrUnknownSession = errors.New("unknown session")

// Store maps session ids to sessions. Only the map is guarded; each
// session value is replaced wholesale by Update.
type Store struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]Session), now: time.Now}
}

// New creates and stores a fresh unauthenticated session.
func (st *Store) New() Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := Session{ID: uuid.NewString(), LastSeen: st.now()}
	st.sessions[s.ID] = s
	return s
}

// Get returns the session for id and marks it seen.
func (st *Store) Get(id string) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return Session{}, false
	}
	s.LastSeen = st.now()
	st.sessions[id] = s
	return s, true
}

// Update applies fn to the session for id and stores the result unless fn
// fails. The session's previous value is kept on error.
func (st *Store) Update(id string, fn func(Session) (Session, error)) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return Session{}, ErrUnknownSession
	}
	next, err := fn(s)
	if err != nil {
		return s, err
	}
	next.ID = id
	next.LastSeen = st.now()
	st.sessions[id] = next
	return next, nil
}

// Rotate moves the session for id to a fresh id and returns it. The old id
// no longer resolves.
func (st *Store) Rotate(id string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return Session{}, ErrUnknownSession
	}
	delete(st.sessions, id)
	s.ID = uuid.NewString()
	s.LastSeen = st.now()
	st.sessions[s.ID] = s
	return s, nil
}

// Delete removes the session for id.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Prune removes sessions not seen within ttl and returns how many were removed.
func (st *Store) Prune(ttl time.Duration) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	cutoff := st.now().Add(-ttl)
	n := 0
	for id, s := range st.sessions {
		if s.LastSeen.Before(cutoff) {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}
