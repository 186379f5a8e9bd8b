package services

import (
	"errors"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"honeypot-lab/internal/domain/models"
)

// ErrSessionNotFound is returned by read-side lookups for unknown or evicted sessions
var ErrSessionNotFound = errors.New("session not found")

// SessionStore owns all conversation state. Implementations serialize every
// mutation of a single session while letting different sessions proceed in parallel.
type SessionStore interface {
	// Mutate runs fn with exclusive access to the session for id, creating it if absent.
	// fn must not retain s after returning.
	Mutate(id string, fn func(s *models.Session))
	// Snapshot returns a deep copy of the session for id.
	Snapshot(id string) (models.Session, error)
	// EvictIdle removes sessions not updated since cutoff and returns how many were removed.
	EvictIdle(cutoff time.Time) int
	// Len returns the number of live sessions.
	Len() int
}

type sessionEntry struct {
	mu      sync.Mutex
	session *models.Session
}

type storeShard struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

// MemorySessionStore is a sharded in-memory SessionStore. Shard locks guard
// only the maps; each session has its own mutex.
type MemorySessionStore struct {
	shards []*storeShard
	now    func() time.Time
}

// NewMemorySessionStore creates a store with the given number of shards
func NewMemorySessionStore(shards int) *MemorySessionStore {
	if shards <= 0 {
		shards = 32
	}
	s := &MemorySessionStore{
		shards: make([]*storeShard, shards),
		now:    time.Now,
	}
	for i := range s.shards {
		s.shards[i] = &storeShard{entries: make(map[string]*sessionEntry)}
	}
	return s
}

func (s *MemorySessionStore) shard(id string) *storeShard {
	return s.shards[xxhash.Sum64String(id)%uint64(len(s.shards))]
}

// getOrCreate returns the entry for id, creating it under the shard write lock if needed
func (s *MemorySessionStore) getOrCreate(id string) *sessionEntry {
	sh := s.shard(id)

	sh.mu.RLock()
	e, ok := sh.entries[id]
	sh.mu.RUnlock()
	if ok {
		return e
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.entries[id]; ok {
		return e
	}
	e = &sessionEntry{session: models.NewSession(id, s.now())}
	sh.entries[id] = e
	return e
}

// Mutate implements SessionStore
func (s *MemorySessionStore) Mutate(id string, fn func(sess *models.Session)) {
	e := s.getOrCreate(id)

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.session)
	e.session.UpdatedAt = s.now()
}

// Snapshot implements SessionStore
func (s *MemorySessionStore) Snapshot(id string) (models.Session, error) {
	sh := s.shard(id)

	sh.mu.RLock()
	e, ok := sh.entries[id]
	sh.mu.RUnlock()
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// EvictIdle implements SessionStore. A session being mutated while it is
// evicted finishes on the detached entry; the next message starts a new session.
func (s *MemorySessionStore) EvictIdle(cutoff time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, e := range sh.entries {
			if !e.mu.TryLock() {
				continue
			}
			idle := e.session.UpdatedAt.Before(cutoff)
			e.mu.Unlock()
			if idle {
				delete(sh.entries, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Len implements SessionStore
func (s *MemorySessionStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}
