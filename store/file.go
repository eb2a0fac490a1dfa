package store

import (
	"bytes"
	"context"
	"crypto"
	"encoding/json"
	"sync"

	"github.com/viant/afs"
)

// FileStore persists the credential at an afs URL while delegating
// issuer keys to an in-memory store (keys can be rediscovered). It is a
// lightweight way to survive restarts in a persistent-storage host.
type FileStore struct {
	mu     sync.Mutex
	fs     afs.Service
	URL    string
	memory *memoryStore
}

// NewFileStore creates a Store persisted at the given afs URL, e.g.
// file:///home/user/.authgate/credential.json.
func NewFileStore(URL string) *FileStore {
	return &FileStore{fs: afs.New(), URL: URL, memory: NewMemoryStore().(*memoryStore)}
}

func (f *FileStore) Load() (*Credential, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.fs.DownloadWithURL(context.Background(), f.URL)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	credential := &Credential{}
	if err := json.Unmarshal(data, credential); err != nil {
		return nil, false
	}
	return credential, true
}

func (f *FileStore) Save(credential *Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := json.MarshalIndent(credential, "", "  ")
	if err != nil {
		return err
	}
	return f.fs.Upload(context.Background(), f.URL, 0o600, bytes.NewReader(data))
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ctx := context.Background()
	if ok, _ := f.fs.Exists(ctx, f.URL); !ok {
		return nil
	}
	return f.fs.Delete(ctx, f.URL)
}

func (f *FileStore) AddIssuerKeys(issuer string, keys map[string]crypto.PublicKey) error {
	return f.memory.AddIssuerKeys(issuer, keys)
}

func (f *FileStore) LookupIssuerKeys(issuer string) (map[string]crypto.PublicKey, bool) {
	return f.memory.LookupIssuerKeys(issuer)
}
