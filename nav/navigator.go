// Package nav abstracts the hosting shell's location so the library runs
// identically under a real UI host or in tests.
package nav

import (
	"net/url"
	"sync"
)

// Navigator exposes the current location and hard navigations. Assign and
// Replace correspond to full navigations that reload the shell; in-app
// transitions are dispatched by the route gate, not by a Navigator.
type Navigator interface {
	// Current returns the current location.
	Current() *url.URL
	// Assign performs a hard navigation, keeping history.
	Assign(target string)
	// Replace performs a hard navigation, replacing the current entry.
	Replace(target string)
}

// Memory is a Navigator backed by an in-process location, used by tests
// and headless hosts. It records every navigation.
type Memory struct {
	mu      sync.Mutex
	current *url.URL
	history []string
}

// NewMemory creates a Memory navigator positioned at the given URL.
func NewMemory(current string) *Memory {
	parsed, err := url.Parse(current)
	if err != nil {
		parsed = &url.URL{Path: "/"}
	}
	return &Memory{current: parsed}
}

func (m *Memory) Current() *url.URL {
	m.mu.Lock()
	defer m.mu.Unlock()
	cloned := *m.current
	return &cloned
}

func (m *Memory) Assign(target string) {
	m.navigate(target)
}

func (m *Memory) Replace(target string) {
	m.navigate(target)
}

func (m *Memory) navigate(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	parsed, err := m.current.Parse(target)
	if err != nil {
		return
	}
	m.current = parsed
	m.history = append(m.history, target)
}

// History returns every navigation performed so far.
func (m *Memory) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.history))
	copy(out, m.history)
	return out
}

// HasCallbackParams reports whether the URL carries OIDC callback markers
// (an authorization code or error parameter).
func HasCallbackParams(u *url.URL) bool {
	if u == nil {
		return false
	}
	query := u.Query()
	return query.Has("code") || query.Has("error")
}
