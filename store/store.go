package store

import (
	"crypto"
	"sync"
)

// Store is a pluggable persistence layer for the current credential and
// per-issuer public keys. The in-memory default is session-scoped; swap
// with the file store for persistence across restarts.
type Store interface {
	Load() (*Credential, bool)
	Save(credential *Credential) error
	Clear() error
	AddIssuerKeys(issuer string, keys map[string]crypto.PublicKey) error
	LookupIssuerKeys(issuer string) (map[string]crypto.PublicKey, bool)
}

type memoryStore struct {
	mu         sync.RWMutex
	credential *Credential
	issuerKeys map[string]map[string]crypto.PublicKey
}

// NewMemoryStore returns a session-scoped Store.
func NewMemoryStore() Store {
	return &memoryStore{issuerKeys: map[string]map[string]crypto.PublicKey{}}
}

func (m *memoryStore) Load() (*Credential, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.credential == nil {
		return nil, false
	}
	return m.credential, true
}

func (m *memoryStore) Save(credential *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credential = credential
	return nil
}

func (m *memoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credential = nil
	return nil
}

func (m *memoryStore) AddIssuerKeys(issuer string, keys map[string]crypto.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.issuerKeys == nil {
		m.issuerKeys = map[string]map[string]crypto.PublicKey{}
	}
	m.issuerKeys[issuer] = keys
	return nil
}

func (m *memoryStore) LookupIssuerKeys(issuer string) (map[string]crypto.PublicKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.issuerKeys != nil {
		if keys, ok := m.issuerKeys[issuer]; ok {
			return keys, true
		}
	}
	return nil, false
}
