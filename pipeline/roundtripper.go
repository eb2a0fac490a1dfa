package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/viant/authgate/trace"
)

// TokenProvider resolves a valid access token before dispatch. Resolution
// may suspend: it can trigger a silent renewal round trip.
type TokenProvider interface {
	GetValidToken(ctx context.Context) string
}

// RoundTripper augments every outbound request with the correlation
// header pair and, when a token resolves, a bearer authorization header.
type RoundTripper struct {
	tokens    TokenProvider
	trace     *trace.Context
	transport http.RoundTripper
}

// NewRoundTripper creates the augmenting transport; nil next falls back
// to http.DefaultTransport.
func NewRoundTripper(tokens TokenProvider, traceCtx *trace.Context, next http.RoundTripper) *RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &RoundTripper{tokens: tokens, trace: traceCtx, transport: next}
}

func (r *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	augmented, err := clone(req)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	r.trace.Stamp(augmented)
	if r.tokens != nil {
		if token := r.tokens.GetValidToken(req.Context()); token != "" {
			augmented.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return r.transport.RoundTrip(augmented)
}

func clone(r *http.Request) (*http.Request, error) {
	cloned := r.Clone(r.Context())
	// deep-copy body for idempotent replay
	if r.Body != nil {
		buf, err := io.ReadAll(r.Body)
		closeErr := r.Body.Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, closeErr
		}
		r.Body = io.NopCloser(bytes.NewReader(buf))
		cloned.Body = io.NopCloser(bytes.NewReader(buf))
	}
	return cloned, nil
}
