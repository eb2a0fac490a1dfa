package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/viant/afs"
)

// Entry is a single persisted diagnostic record.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Persistent appends JSON-line diagnostic records to a storage URL so
// they survive a full page navigation. Writes are best effort; a failing
// backend never propagates to callers.
type Persistent struct {
	mu         sync.Mutex
	fs         afs.Service
	URL        string
	SampleRate float64
	Enabled    bool
	entries    []Entry
}

// NewPersistent creates a persistent log writing to the given afs URL
// (e.g. mem://localhost/authgate/diag.log or file:///var/log/authgate.log).
func NewPersistent(URL string, sampleRate float64, enabled bool) *Persistent {
	if sampleRate <= 0 {
		sampleRate = 1
	}
	return &Persistent{fs: afs.New(), URL: URL, SampleRate: sampleRate, Enabled: enabled}
}

// Warn records a warn-level entry.
func (p *Persistent) Warn(ctx context.Context, message string, fields map[string]any) {
	p.append(ctx, "warn", message, fields)
}

// Debug records a debug-level entry.
func (p *Persistent) Debug(ctx context.Context, message string, fields map[string]any) {
	p.append(ctx, "debug", message, fields)
}

// Error records an error-level entry.
func (p *Persistent) Error(ctx context.Context, message string, fields map[string]any) {
	p.append(ctx, "error", message, fields)
}

func (p *Persistent) append(ctx context.Context, level, message string, fields map[string]any) {
	if p == nil || !p.Enabled {
		return
	}
	if p.SampleRate < 1 && rand.Float64() > p.SampleRate {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, Entry{Time: time.Now(), Level: level, Message: message, Fields: fields})
	if err := p.flush(ctx); err != nil {
		Warnf("persistent log: flush failed: %v", err)
	}
}

// Entries returns a copy of the records written so far.
func (p *Persistent) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

func (p *Persistent) flush(ctx context.Context) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for i := range p.entries {
		if err := encoder.Encode(p.entries[i]); err != nil {
			return err
		}
	}
	return p.fs.Upload(ctx, p.URL, 0o600, &buf)
}
