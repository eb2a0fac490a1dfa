// Package gate implements the navigation interceptor: it waits for
// session initialization, redirects unauthenticated users into the login
// flow, installs authorization-scoped routes once per session and retries
// unmatched navigations after installation.
package gate

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/viant/authgate/config"
	"github.com/viant/authgate/logger"
	"github.com/viant/authgate/menu"
	"github.com/viant/authgate/nav"
	"github.com/viant/authgate/oidc"
	"github.com/viant/authgate/pipeline"
	"golang.org/x/sync/singleflight"
)

// menuLoadKey keys the non-stacking menu failure notification.
const menuLoadKey = "menu-load-error"

// Session is the slice of the session controller the gate depends on.
type Session interface {
	Initialize(ctx context.Context) error
	IsAuthenticated() bool
	Login(ctx context.Context) error
	Events() *oidc.Events
}

// MenuLoader fetches the authorization-scoped route tree.
type MenuLoader interface {
	Tree(ctx context.Context) ([]*menu.Item, error)
}

// deauthObserver is implemented by session controllers able to report
// leaving the authenticated state directly, covering transitions that
// emit no provider event, such as a failed renewal without forced
// logout.
type deauthObserver interface {
	OnDeauthenticated(func())
}

// Decision is the outcome of a guard pass.
type Decision int

const (
	// Allow dispatches the navigation to its matched route.
	Allow Decision = iota
	// Redirect sends the navigation to Resolution.Target instead.
	Redirect
	// Halt aborts dispatch; a redirect-based flow took over the shell.
	Halt
	// NotFound means no route matches the target.
	NotFound
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Halt:
		return "halt"
	case NotFound:
		return "notFound"
	}
	return "unknown"
}

// Resolution carries the guard outcome.
type Resolution struct {
	Decision Decision
	Target   string
	Route    *Route
}

// Gate is the route authorization gate.
type Gate struct {
	config    *config.Config
	session   Session
	navigator nav.Navigator
	registry  *Registry
	menus     MenuLoader
	fetch     *pipeline.Fetch
	notifier  Notifier
	state     *MenuRouteState
	loadGroup singleflight.Group
}

// Option customizes a Gate.
type Option func(*Gate)

// WithNotifier overrides the notification sink.
func WithNotifier(notifier Notifier) Option {
	return func(g *Gate) {
		g.notifier = NewThrottled(notifier, 30*time.Second)
	}
}

// WithSessionProbe sets the fetch adapter used for the backend
// session-status probe.
func WithSessionProbe(fetch *pipeline.Fetch) Option {
	return func(g *Gate) {
		g.fetch = fetch
	}
}

// New creates a Gate over the given collaborators and subscribes it to
// session transitions: leaving the authenticated state invalidates the
// installed menu routes.
func New(cfg *config.Config, session Session, navigator nav.Navigator, registry *Registry, menus MenuLoader, options ...Option) *Gate {
	g := &Gate{
		config:    cfg,
		session:   session,
		navigator: navigator,
		registry:  registry,
		menus:     menus,
		notifier:  NewThrottled(LogNotifier{}, 30*time.Second),
		state:     &MenuRouteState{},
	}
	for _, opt := range options {
		opt(g)
	}
	reset := func() {
		g.state.Reset()
		g.registry.InvalidateMenu()
	}
	events := session.Events()
	events.AddUserUnloaded(reset)
	events.AddUserSignedOut(reset)
	if observer, ok := session.(deauthObserver); ok {
		observer.OnDeauthenticated(reset)
	}
	return g
}

// MenuState exposes the route-loading state for UI consumption.
func (g *Gate) MenuState() Snapshot {
	return g.state.Snapshot()
}

// Guard resolves a navigation attempt. The terminal unauthorized view
// bypasses every other check so it stays reachable even when
// initialization itself is broken.
func (g *Gate) Guard(ctx context.Context, target string) Resolution {
	parsed, err := url.Parse(target)
	if err != nil {
		return Resolution{Decision: NotFound, Target: target}
	}
	path := parsed.Path

	if path == g.config.UnauthorizedPath {
		return Resolution{Decision: Allow, Target: target}
	}

	// navigation must not be permanently blocked by a failed restore
	if err := g.session.Initialize(ctx); err != nil {
		logger.Warnf("[gate] session initialization failed, continuing unauthenticated: %v", err)
	}
	authenticated := g.session.IsAuthenticated()

	if path == g.config.LoginPath && authenticated {
		logger.Debugf("[gate] already authenticated, redirecting %v to root", path)
		return Resolution{Decision: Redirect, Target: "/"}
	}

	route, matched := g.registry.Resolve(path)
	if matched && !route.RequiresAuth {
		return Resolution{Decision: Allow, Target: target, Route: route}
	}

	if !authenticated {
		// mid-callback navigations pass through to the callback processor
		if matched && nav.HasCallbackParams(g.navigator.Current()) {
			return Resolution{Decision: Allow, Target: target, Route: route}
		}
		// an unmatched target may resolve to an authorization-scoped
		// route once the user signs in, so it enters the login flow too
		if g.fetch != nil && !g.probeBackendSession(ctx) {
			logger.Debugf("[gate] no backend session, awaiting explicit sign-in at %v", g.config.LoginPath)
			if g.navigator.Current().Path != g.config.LoginPath {
				g.navigator.Assign(g.config.LoginPath)
			}
			return Resolution{Decision: Halt, Target: target}
		}
		if err := g.session.Login(ctx); err != nil {
			logger.Errorf("[gate] login initiation failed: %v", err)
		}
		return Resolution{Decision: Halt, Target: target}
	}

	freshlyInstalled := g.ensureMenuRoutes(ctx)

	if matched {
		return Resolution{Decision: Allow, Target: target, Route: route}
	}
	if freshlyInstalled {
		// authorization-scoped routes were just installed: retry once
		if route, ok := g.registry.Resolve(path); ok {
			return Resolution{Decision: Allow, Target: target, Route: route}
		}
	}
	return Resolution{Decision: NotFound, Target: target}
}

// probeBackendSession asks the backend whether its session is still
// valid, distinguishing an expired local credential (redirect login can
// recover silently) from a full logout (only an explicit sign-in can).
// Any failure reads as "no backend session".
func (g *Gate) probeBackendSession(ctx context.Context) bool {
	if g.fetch == nil {
		return false
	}
	resp, err := g.fetch.Do(ctx, &pipeline.FetchRequest{
		Method:        http.MethodGet,
		URL:           "/api/session/status",
		SkipAuthError: true,
	})
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// ensureMenuRoutes installs the authorization-scoped route table exactly
// once per authenticated session; concurrent triggers collapse onto one
// shared fetch. It reports whether routes were installed by this call.
func (g *Gate) ensureMenuRoutes(ctx context.Context) bool {
	if g.state.Loaded() {
		return false
	}
	result, err, _ := g.loadGroup.Do("menu-routes", func() (interface{}, error) {
		return g.loadMenuRoutes(ctx)
	})
	if err != nil {
		return false
	}
	installed, _ := result.(bool)
	return installed
}

func (g *Gate) loadMenuRoutes(ctx context.Context) (bool, error) {
	if g.state.Loaded() {
		return false, nil
	}
	g.state.beginLoad()
	items, err := g.menus.Tree(ctx)
	if err != nil {
		g.state.failLoad(err.Error())
		g.notifier.Warn(menuLoadKey, "failed to load menu navigation, menu pages are unavailable")
		logger.Errorf("[gate] menu route load failed: %v", err)
		return false, pipeline.NewFailure(pipeline.RouteDataLoadFailure, "", 0, "menu route load failed", err)
	}
	if len(items) == 0 {
		g.state.failLoad("menu tree is empty")
		g.notifier.Warn(menuLoadKey, "menu navigation is empty, menu pages are unavailable")
		return false, pipeline.NewFailure(pipeline.RouteDataLoadFailure, "", 0, "menu tree is empty", nil)
	}
	count := g.registry.InstallMenu(items)
	g.state.completeLoad()
	logger.Infof("[gate] installed %v authorization-scoped routes", count)
	return true, nil
}
