package trace

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/viant/afs"
)

// Storage persists the session trace id. Implementations must tolerate a
// broken backend: Lookup falls back to the last in-memory value.
type Storage interface {
	Lookup() (string, bool)
	Store(id string)
	Remove()
}

type memoryStorage struct {
	mu sync.RWMutex
	id string
}

// NewMemoryStorage returns session-scoped storage.
func NewMemoryStorage() Storage {
	return &memoryStorage{}
}

func (m *memoryStorage) Lookup() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.id, m.id != ""
}

func (m *memoryStorage) Store(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = id
}

func (m *memoryStorage) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = ""
}

// fileStorage persists the trace id at an afs URL, keeping an in-memory
// copy so an unavailable backend degrades instead of failing.
type fileStorage struct {
	mu     sync.Mutex
	fs     afs.Service
	URL    string
	cached string
}

// NewFileStorage returns storage persisted at the given afs URL.
func NewFileStorage(URL string) Storage {
	return &fileStorage{fs: afs.New(), URL: URL}
}

func (f *fileStorage) Lookup() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.fs.DownloadWithURL(context.Background(), f.URL)
	if err != nil {
		return f.cached, f.cached != ""
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return f.cached, f.cached != ""
	}
	f.cached = id
	return id, true
}

func (f *fileStorage) Store(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cached = id
	if err := f.fs.Upload(context.Background(), f.URL, 0o600, bytes.NewReader([]byte(id))); err != nil {
		// keep the in-memory value as the fallback
		return
	}
}

func (f *fileStorage) Remove() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cached = ""
	_ = f.fs.Delete(context.Background(), f.URL)
}
