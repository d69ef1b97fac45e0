package session

import (
	"context"
	"sync"
	"time"

	"github.com/vendorlens/backend/internal/domain"
)

// entry is one session's selection, guarded by its own lock so that
// different sessions never contend. removed is set under mu once the sweep
// dropped the entry from the map.
type entry struct {
	mu      sync.Mutex
	sel     *domain.ComparisonSelection
	touched time.Time
	removed bool
}

// MemoryStore keeps comparison selections in process memory.
// Sessions idle for longer than ttl read as empty and are dropped by Run.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an in-memory comparison store; ttl <= 0 never expires sessions
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) lookup(sessionID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[sessionID]
}

// lockedEntry returns the session entry with its lock held, creating it on first
// write. It retries when the sweep removed the entry while we waited on its lock.
func (s *MemoryStore) lockedEntry(sessionID string) *entry {
	for {
		s.mu.Lock()
		e, ok := s.sessions[sessionID]
		if !ok {
			e = &entry{sel: domain.NewComparisonSelection(), touched: s.now()}
			s.sessions[sessionID] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if !e.removed {
			return e
		}
		e.mu.Unlock()
	}
}

func (s *MemoryStore) idle(e *entry) bool {
	return s.ttl > 0 && s.now().Sub(e.touched) > s.ttl
}

// current returns the entry's selection, resetting it when the session went idle.
// The caller holds e.mu.
func (s *MemoryStore) current(e *entry) *domain.ComparisonSelection {
	if s.idle(e) {
		e.sel = domain.NewComparisonSelection()
	}
	return e.sel
}

// Get returns a copy of the session's selection. Unknown sessions read as empty
// and are not stored.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*domain.ComparisonSelection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e := s.lookup(sessionID)
	if e == nil {
		return domain.NewComparisonSelection(), nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return domain.NewComparisonSelection(), nil
	}
	return s.current(e).Clone(), nil
}

// Update applies fn to a copy of the selection under the session lock and
// commits it when fn succeeds
func (s *MemoryStore) Update(ctx context.Context, sessionID string, fn func(sel *domain.ComparisonSelection) error) (*domain.ComparisonSelection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e := s.lockedEntry(sessionID)
	defer e.mu.Unlock()

	working := s.current(e).Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	e.sel = working
	e.touched = s.now()
	return working.Clone(), nil
}

// Clear drops the session's selection
func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if ok {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}
	return nil
}

// Len returns the number of sessions held
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run drops idle sessions every interval until ctx is done
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.sessions {
		e.mu.Lock()
		if s.idle(e) {
			e.removed = true
			delete(s.sessions, id)
		}
		e.mu.Unlock()
	}
}
