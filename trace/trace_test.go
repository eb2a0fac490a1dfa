package trace

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var hexID = regexp.MustCompile(`^[0-9a-f]+$`)

func TestNewTraceID(t *testing.T) {
	id := NewTraceID()
	assert.Len(t, id, 32)
	assert.Regexp(t, hexID, id)
	assert.NotEqual(t, id, NewTraceID())
}

func TestNewRequestID(t *testing.T) {
	id := NewRequestID()
	assert.Len(t, id, 16)
	assert.Regexp(t, hexID, id)
}

func TestContextGetOrCreate(t *testing.T) {
	ctx := New(nil)
	_, ok := ctx.Current()
	assert.False(t, ok)

	id := ctx.GetOrCreate()
	assert.Len(t, id, 32)
	assert.Equal(t, id, ctx.GetOrCreate())

	current, ok := ctx.Current()
	assert.True(t, ok)
	assert.Equal(t, id, current)
}

func TestContextRotate(t *testing.T) {
	ctx := New(nil)
	before := ctx.GetOrCreate()
	after := ctx.Rotate()
	assert.NotEqual(t, before, after)
	assert.Equal(t, after, ctx.GetOrCreate())
}

func TestContextClear(t *testing.T) {
	ctx := New(nil)
	ctx.GetOrCreate()
	ctx.Clear()
	_, ok := ctx.Current()
	assert.False(t, ok)
}

func TestContextStamp(t *testing.T) {
	ctx := New(nil)
	req, _ := http.NewRequest(http.MethodGet, "http://localhost/api/resources", nil)
	ctx.Stamp(req)

	traceID := req.Header.Get(HeaderTraceID)
	requestID := req.Header.Get(HeaderRequestID)
	assert.Len(t, traceID, 32)
	assert.Len(t, requestID, 16)
	assert.Equal(t, ctx.GetOrCreate(), traceID)

	other, _ := http.NewRequest(http.MethodGet, "http://localhost/api/resources", nil)
	ctx.Stamp(other)
	assert.Equal(t, traceID, other.Header.Get(HeaderTraceID))
	assert.NotEqual(t, requestID, other.Header.Get(HeaderRequestID))
}

func TestFileStorage(t *testing.T) {
	storage := NewFileStorage("mem://localhost/trace_test/trace_id")
	_, ok := storage.Lookup()
	assert.False(t, ok)
	storage.Store("abc123")
	id, ok := storage.Lookup()
	assert.True(t, ok)
	assert.Equal(t, "abc123", id)
	storage.Remove()
	_, ok = storage.Lookup()
	assert.False(t, ok)
}
