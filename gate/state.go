package gate

import (
	"sync"
	"time"
)

// MenuRouteState tracks the authorization-scoped route table lifecycle.
// It is mutated only by the route-loading routine and read by the gate
// and by UI code.
type MenuRouteState struct {
	mu           sync.RWMutex
	loading      bool
	loaded       bool
	errorMessage string
	lastLoadedAt time.Time
}

// Snapshot is a point-in-time copy of the state.
type Snapshot struct {
	Loading      bool
	Loaded       bool
	Error        string
	LastLoadedAt time.Time
}

// Snapshot returns the current state.
func (s *MenuRouteState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Loading:      s.loading,
		Loaded:       s.loaded,
		Error:        s.errorMessage,
		LastLoadedAt: s.lastLoadedAt,
	}
}

// Loaded reports whether routes are installed for this session.
func (s *MenuRouteState) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *MenuRouteState) beginLoad() {
	s.mu.Lock()
	s.loading = true
	s.errorMessage = ""
	s.mu.Unlock()
}

func (s *MenuRouteState) completeLoad() {
	s.mu.Lock()
	s.loading = false
	s.loaded = true
	s.errorMessage = ""
	s.lastLoadedAt = time.Now()
	s.mu.Unlock()
}

func (s *MenuRouteState) failLoad(message string) {
	s.mu.Lock()
	s.loading = false
	s.loaded = false
	s.errorMessage = message
	s.mu.Unlock()
}

// Reset forces a re-fetch on the next authenticated session.
func (s *MenuRouteState) Reset() {
	s.mu.Lock()
	s.loading = false
	s.loaded = false
	s.errorMessage = ""
	s.mu.Unlock()
}
