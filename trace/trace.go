// Package trace owns the per-session correlation identifier and the
// per-request identifier stamped on every outbound call.
package trace

import (
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	// HeaderTraceID carries the session correlation id.
	HeaderTraceID = "X-Trace-Id"
	// HeaderRequestID carries the per-call id.
	HeaderRequestID = "X-Request-Id"
)

// NewTraceID returns a 32 character hex identifier, the backend UUID
// format with hyphens removed.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// NewRequestID returns a fresh 16 character hex identifier.
func NewRequestID() string {
	return NewTraceID()[:16]
}

// Context generates and persists the session trace id. The id is created
// lazily on first use and only replaced by an explicit Rotate.
type Context struct {
	mu      sync.Mutex
	storage Storage
}

// New creates a trace context over the given storage; nil storage falls
// back to in-memory.
func New(storage Storage) *Context {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Context{storage: storage}
}

// GetOrCreate returns the session trace id, creating one if absent.
func (c *Context) GetOrCreate() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.storage.Lookup(); ok && id != "" {
		return id
	}
	id := NewTraceID()
	c.storage.Store(id)
	return id
}

// Current returns the trace id without creating one.
func (c *Context) Current() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.storage.Lookup()
	return id, ok && id != ""
}

// Rotate replaces the session trace id, e.g. on a fresh login attempt.
func (c *Context) Rotate() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := NewTraceID()
	c.storage.Store(id)
	return id
}

// Clear removes the session trace id.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storage.Remove()
}

// Stamp sets the correlation header pair on the request: the stable
// session trace id plus a fresh request id.
func (c *Context) Stamp(req *http.Request) {
	req.Header.Set(HeaderTraceID, c.GetOrCreate())
	req.Header.Set(HeaderRequestID, NewRequestID())
}
