package pipeline

import (
	"context"
	"io"
	"net/http"
	"time"
)

// FetchRequest describes a single fetch-adapter call. Timeout zero means
// the configured default; negative disables the deadline. SkipAuthError
// suppresses the unauthorized and network navigation side effects for
// callers that handle failures themselves (e.g. probes).
type FetchRequest struct {
	Method        string
	URL           string
	Body          io.Reader
	Header        http.Header
	Timeout       time.Duration
	SkipAuthError bool
}

// Fetch is the low-level adapter: a thin wrapper over the native HTTP
// primitive with per-call timeouts via cancellation. The response is
// returned as-is; only authorization and transport failures are
// intercepted.
type Fetch struct {
	core       *Core
	httpClient *http.Client
}

// NewFetch creates the adapter over the shared pipeline core.
func NewFetch(core *Core, transport http.RoundTripper) *Fetch {
	return &Fetch{
		core: core,
		httpClient: &http.Client{
			Transport:     core.Transport(transport),
			CheckRedirect: noRedirect,
		},
	}
}

// Do dispatches the request. Timeouts surface as Timeout failures and,
// unless suppressed, also route through the network-unavailable handling
// so an unreachable backend coalesces into a single login navigation.
func (f *Fetch) Do(ctx context.Context, request *FetchRequest) (*http.Response, error) {
	timeout := request.Timeout
	if timeout == 0 {
		timeout = f.core.config.FetchTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	method := request.Method
	if method == "" {
		method = http.MethodGet
	}
	requestURL := joinURL(f.core.config.APIBaseURL, request.URL)
	req, err := http.NewRequestWithContext(ctx, method, requestURL, request.Body)
	if err != nil {
		return nil, err
	}
	for key, values := range request.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, f.core.failTransport(requestURL, err, request.SkipAuthError)
	}
	if isUnauthorized(resp, f.core.config.LoginPath) && !request.SkipAuthError {
		resp.Body.Close()
		return nil, f.core.failUnauthorized(ctx, requestURL, resp)
	}
	return resp, nil
}

// Get is a convenience for a GET call with the default timeout.
func (f *Fetch) Get(ctx context.Context, url string) (*http.Response, error) {
	return f.Do(ctx, &FetchRequest{Method: http.MethodGet, URL: url})
}
