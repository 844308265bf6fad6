package session

import (
	"sync"

	"github.com/wfunc/spyserver/game"
)

// entry pairs a session with its own mutex so unrelated rooms never
// serialize against each other.
type entry struct {
	mu      sync.Mutex
	sess    *Session
	removed bool
}

// Store is the thread-safe registry of active sessions, one per room.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*entry
}

func NewStore() *Store {
	return &Store{rooms: make(map[string]*entry)}
}

// Create registers a new session with the host as its first roster member.
// Fails with ErrAlreadyActive when the room already has one.
func (st *Store) Create(roomID string, host int64, hostName string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.rooms[roomID]; exists {
		return game.ErrAlreadyActive
	}
	st.rooms[roomID] = &entry{sess: newSession(roomID, host, hostName)}
	return nil
}

// Mutate runs fn against the room's session under the room lock. Every read
// that feeds a decision and every resulting write must happen inside fn;
// a separate read-then-write pair would race with concurrent callers.
func (st *Store) Mutate(roomID string, fn func(s *Session) error) error {
	st.mu.RLock()
	e, ok := st.rooms[roomID]
	st.mu.RUnlock()
	if !ok {
		return game.ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return game.ErrSessionNotFound
	}
	return fn(e.sess)
}

// Destroy removes the session. A mutation already holding the room lock
// finishes first; later ones observe the tombstone and fail with
// ErrSessionNotFound. The caller cancels the room's timers before this.
func (st *Store) Destroy(roomID string) bool {
	st.mu.Lock()
	e, ok := st.rooms[roomID]
	if ok {
		delete(st.rooms, roomID)
	}
	st.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
	return true
}

// Len reports the number of active sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.rooms)
}
