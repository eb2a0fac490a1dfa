// Package pipeline implements the authenticated request pipeline: two
// transport adapters sharing credential injection, trace stamping and a
// single unauthorized recovery path.
package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/viant/authgate/config"
	"github.com/viant/authgate/logger"
	"github.com/viant/authgate/nav"
	"github.com/viant/authgate/trace"
)

// Core is the contract both adapters share: pre-dispatch augmentation and
// post-dispatch failure classification converging on one recovery path.
type Core struct {
	config       *config.Config
	tokens       TokenProvider
	trace        *trace.Context
	navigator    nav.Navigator
	unauthorized *UnauthorizedHandler
	networkNav   *Debouncer
}

// NewCore wires the shared pipeline state.
func NewCore(cfg *config.Config, tokens TokenProvider, traceCtx *trace.Context, navigator nav.Navigator, unauthorized *UnauthorizedHandler) *Core {
	core := &Core{
		config:       cfg,
		tokens:       tokens,
		trace:        traceCtx,
		navigator:    navigator,
		unauthorized: unauthorized,
	}
	core.networkNav = NewDebouncer(cfg.NetworkDebounce, core.navigateToLogin)
	return core
}

// Transport returns the augmenting round tripper over next.
func (c *Core) Transport(next http.RoundTripper) *RoundTripper {
	return NewRoundTripper(c.tokens, c.trace, next)
}

// isUnauthorized reports whether the response indicates an invalid
// session: a 401, or a redirect whose target is a login endpoint.
func isUnauthorized(resp *http.Response, loginPath string) bool {
	if resp.StatusCode == http.StatusUnauthorized {
		return true
	}
	if resp.StatusCode == http.StatusFound || resp.StatusCode == http.StatusSeeOther {
		location := resp.Header.Get("Location")
		return strings.Contains(location, loginPath)
	}
	return false
}

// failUnauthorized funnels the response into the shared recovery path and
// builds the dedicated unauthorized failure.
func (c *Core) failUnauthorized(ctx context.Context, requestURL string, resp *http.Response) *Failure {
	c.unauthorized.Handle(ctx, requestURL, resp.StatusCode)
	return NewFailure(Unauthorized, requestURL, resp.StatusCode, "unauthorized, please sign in again", nil)
}

// failTransport classifies an error where no response was received.
// Unless suppressed, it schedules a debounced navigation to the login
// view so simultaneous failures produce one navigation, not several.
func (c *Core) failTransport(requestURL string, err error, suppressNav bool) *Failure {
	kind := NetworkUnavailable
	if errors.Is(err, context.DeadlineExceeded) {
		kind = Timeout
	}
	if !suppressNav {
		c.scheduleNetworkNav()
	}
	return NewFailure(kind, requestURL, 0, "", err)
}

func (c *Core) scheduleNetworkNav() {
	current := c.navigator.Current().Path
	if current == c.config.LoginPath || current == c.config.CallbackPath {
		return
	}
	c.networkNav.Trigger()
}

func (c *Core) navigateToLogin() {
	logger.Warnf("[NET] backend unreachable, navigating to %v", c.config.LoginPath)
	c.navigator.Assign(c.config.LoginPath)
}

// noRedirect keeps the client from following redirects so a login
// redirect stays observable as an unauthorized signal.
func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// joinURL resolves path against the configured base URL.
func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	if strings.Contains(path, "://") {
		return path
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return path
	}
	resolved, err := parsed.Parse(path)
	if err != nil {
		return path
	}
	return resolved.String()
}

// Debouncer coalesces bursts of triggers into a single invocation after
// a quiet window.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	timer  *time.Timer
	fn     func()
}

// NewDebouncer creates a debouncer over fn.
func NewDebouncer(window time.Duration, fn func()) *Debouncer {
	return &Debouncer{window: window, fn: fn}
}

// Trigger (re)arms the debounce window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fn)
}

// Stop cancels a pending invocation.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
