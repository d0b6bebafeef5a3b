// Package lock provides the per-participant reader/writer lock.
package lock

import (
	"fmt"
	"sync"
)

// Mode selects shared or exclusive access.
type Mode int

const (
	Read Mode = iota
	Write
)

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Key names one participant of one user.
type Key struct {
	UserID        string
	ParticipantID string
}

type entry struct {
	mu   sync.RWMutex
	refs int
}

// Registry hands out one RWMutex per key. Entries are dropped once nobody
// holds or waits on them. Locks block until available; there is no timeout.
type Registry struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Key]*entry)}
}

// Acquire blocks until the lock for key is held in mode.
func (r *Registry) Acquire(key Key, mode Mode) {
	r.mu.Lock()
	e := r.entries[key]
	if e == nil {
		e = &entry{}
		r.entries[key] = e
	}
	e.refs++
	r.mu.Unlock()

	if mode == Write {
		e.mu.Lock()
	} else {
		e.mu.RLock()
	}
}

// Release unlocks a lock previously acquired in the same mode. Releasing a
// lock that is not held panics, like sync.RWMutex.
func (r *Registry) Release(key Key, mode Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[key]
	if e == nil {
		panic(fmt.Sprintf("lock: release of unheld %s lock for %s/%s", mode, key.UserID, key.ParticipantID))
	}
	if mode == Write {
		e.mu.Unlock()
	} else {
		e.mu.RUnlock()
	}
	e.refs--
	if e.refs == 0 {
		delete(r.entries, key)
	}
}

// Len returns the number of keys currently held or waited on.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
