// internal/store/memory.go
//
// In-memory implementation of Store.
// Used for development, tests, and single-instance deployments where losing
// sessions on restart is acceptable.
//
// Characteristics:
//   - Sessions keyed by ID in a map, guarded by an RWMutex.
//   - Values are copied in and out, so callers never share a KeyStates map.
//   - Update holds the write lock across fn, which serializes commands per store.
//   - Sliding TTL like the Redis backend: Create and Update touch a session,
//     expired sessions read as missing, and Sweep drops them from the map.

package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type memEntry struct {
	sess    Session
	touched time.Time
}

// Memory is a map-based Store.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]memEntry
	ttl      time.Duration // <= 0 keeps sessions forever

	now func() time.Time
}

// NewMemory constructs an empty in-memory Store whose sessions expire ttl
// after their last write.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{sessions: make(map[string]memEntry), ttl: ttl, now: time.Now}
}

func (m *Memory) expired(e memEntry, now time.Time) bool {
	return m.ttl > 0 && now.Sub(e.touched) >= m.ttl
}

func (m *Memory) Create(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if e, ok := m.sessions[s.ID]; ok && !m.expired(e, now) {
		return fmt.Errorf("create %s: %w", s.ID, ErrConflict)
	}
	m.sessions[s.ID] = memEntry{sess: s.clone(), touched: now}
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok || m.expired(e, m.now()) {
		return Session{}, ErrNotFound
	}
	return e.sess.clone(), nil
}

func (m *Memory) Update(_ context.Context, id string, fn func(*Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	e, ok := m.sessions[id]
	if !ok || m.expired(e, now) {
		return ErrNotFound
	}
	s := e.sess.clone()
	if err := fn(&s); err != nil {
		return err
	}
	s.ID = id
	m.sessions[id] = memEntry{sess: s, touched: now}
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports how many sessions are held, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Purge drops expired sessions and returns how many were removed.
func (m *Memory) Purge() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, e := range m.sessions {
		if m.expired(e, now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Sweep purges expired sessions every interval until ctx is done.
func (m *Memory) Sweep(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Purge(); n > 0 {
				log.Debug().Int("removed", n).Int("remaining", m.Len()).Msg("expired sessions purged")
			}
		}
	}
}
