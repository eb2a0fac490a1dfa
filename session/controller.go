// Package session implements the authentication session state machine:
// initialization, login, logout, silent renewal and reactions to
// provider-pushed events.
package session

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/viant/authgate/config"
	"github.com/viant/authgate/logger"
	"github.com/viant/authgate/nav"
	"github.com/viant/authgate/oidc"
	"github.com/viant/authgate/store"
	"github.com/viant/authgate/trace"
	"golang.org/x/sync/singleflight"
)

// tokenVerifier is implemented by clients able to passively introspect
// an access token for diagnostics.
type tokenVerifier interface {
	VerifyAccessToken(ctx context.Context, accessToken string) (jwt.MapClaims, error)
}

// Controller owns the current credential and serializes the session
// transitions. Renewal calls collapse onto a single provider round trip;
// login attempts are rate limited by a cooldown window.
type Controller struct {
	config    *config.Config
	client    oidc.Client
	trace     *trace.Context
	navigator nav.Navigator

	mu               sync.Mutex
	state            State
	credential       *store.Credential
	loginInProgress  bool
	lastLoginAttempt time.Time
	deauthenticated  []func()

	initOnce sync.Once
	initDone chan struct{}
	initErr  error

	renewGroup singleflight.Group
}

// New creates a Controller and subscribes it to the client's events.
func New(cfg *config.Config, client oidc.Client, traceCtx *trace.Context, navigator nav.Navigator) *Controller {
	c := &Controller{
		config:    cfg,
		client:    client,
		trace:     traceCtx,
		navigator: navigator,
		state:     Uninitialized,
		initDone:  make(chan struct{}),
	}
	c.subscribe()
	return c
}

func (c *Controller) subscribe() {
	events := c.client.Events()
	events.AddUserLoaded(func(credential *store.Credential) {
		logger.Debugf("[OIDC] user loaded, expires in %v", credential.ExpiresIn())
		c.mu.Lock()
		c.credential = credential
		c.loginInProgress = false
		c.transitionLocked(Authenticated)
		c.mu.Unlock()
		c.introspect(credential)
	})
	events.AddUserUnloaded(func() {
		logger.Debugf("[OIDC] user unloaded")
		c.mu.Lock()
		c.credential = nil
		c.loginInProgress = false
		var fire []func()
		if signedIn(c.state) {
			fire = c.transitionLocked(Unauthenticated)
		}
		c.mu.Unlock()
		runAll(fire)
	})
	events.AddSilentRenewError(func(err error) {
		logger.Errorf("[OIDC] silent renew error: %v", err)
	})
	events.AddUserSignedOut(func() {
		logger.Debugf("[OIDC] user signed out")
		c.mu.Lock()
		c.credential = nil
		c.loginInProgress = false
		fire := c.transitionLocked(LoggedOut)
		c.mu.Unlock()
		runAll(fire)
		c.navigator.Assign(c.config.LoginPath)
	})
	events.AddAccessTokenExpiring(func(secondsLeft int) {
		logger.Debugf("[OIDC] token expiring in %vs", secondsLeft)
		if time.Duration(secondsLeft)*time.Second <= c.config.ExpiringThreshold {
			go c.Renew(context.Background())
		}
	})
}

// introspect verifies the access token signature for diagnostics only; a
// failure here never affects the session state.
func (c *Controller) introspect(credential *store.Credential) {
	verifier, ok := c.client.(tokenVerifier)
	if !ok || credential == nil || credential.AccessToken == "" {
		return
	}
	go func() {
		claims, err := verifier.VerifyAccessToken(context.Background(), credential.AccessToken)
		if err != nil {
			logger.Warnf("[OIDC] access token introspection failed: %v", err)
			return
		}
		if subject, _ := claims.GetSubject(); subject != "" {
			c.mu.Lock()
			if c.credential == credential {
				credential.Subject = subject
				credential.Claims = claims
			}
			c.mu.Unlock()
		}
	}()
}

// Initialize restores the session once; every caller observes the same
// outcome. Restoration is skipped entirely while the current URL carries
// OIDC callback parameters.
func (c *Controller) Initialize(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.initialize(ctx)
		close(c.initDone)
	})
	select {
	case <-c.initDone:
		return c.initErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Initialized exposes the shared initialization outcome for waiters.
func (c *Controller) Initialized() <-chan struct{} {
	return c.initDone
}

func (c *Controller) initialize(ctx context.Context) error {
	c.setState(Initializing)
	if nav.HasCallbackParams(c.navigator.Current()) {
		logger.Debugf("[OIDC] callback parameters detected, deferring session restore")
		c.setState(Unauthenticated)
		return nil
	}
	credential, err := c.client.User(ctx)
	if err != nil {
		logger.Errorf("[OIDC] session restore failed: %v", err)
		c.setState(Unauthenticated)
		return nil
	}
	switch {
	case credential.Valid():
		c.mu.Lock()
		c.credential = credential
		c.transitionLocked(Authenticated)
		c.mu.Unlock()
		logger.Debugf("[OIDC] session restored")
	case credential != nil && credential.AccessToken != "":
		logger.Debugf("[OIDC] restored credential expired, attempting silent renew")
		c.Renew(ctx)
	default:
		logger.Debugf("[OIDC] no persisted session")
		c.setState(Unauthenticated)
	}
	return nil
}

// Login initiates the redirect-based authorization request. Duplicate
// triggers inside the cooldown window are dropped, not queued.
func (c *Controller) Login(ctx context.Context) error {
	current := c.navigator.Current()
	if nav.HasCallbackParams(current) {
		logger.Debugf("[OIDC] callback parameters present, skipping redirect")
		return nil
	}
	if c.onAuthorityOrigin(current) {
		logger.Debugf("[OIDC] already on the identity provider origin, skipping redirect")
		return nil
	}

	now := time.Now()
	c.mu.Lock()
	if c.loginInProgress || now.Sub(c.lastLoginAttempt) < c.config.LoginCooldown {
		c.mu.Unlock()
		logger.Debugf("[OIDC] login redirect already in progress or inside cooldown, skipping")
		return nil
	}
	if c.credential.Valid() {
		c.transitionLocked(Authenticated)
		c.mu.Unlock()
		logger.Debugf("[OIDC] already authenticated, no redirect needed")
		return nil
	}
	c.loginInProgress = true
	c.lastLoginAttempt = now
	c.mu.Unlock()

	returnURL := current.Path
	if current.RawQuery != "" {
		returnURL += "?" + current.RawQuery
	}
	err := c.client.SigninRedirect(ctx, &oidc.SigninOptions{
		ReturnURL: returnURL,
		TraceID:   c.trace.Rotate(),
	})
	if err != nil {
		c.mu.Lock()
		c.loginInProgress = false
		c.mu.Unlock()
		logger.Errorf("[OIDC] login redirect failed: %v", err)
		return err
	}
	return nil
}

func (c *Controller) onAuthorityOrigin(current *url.URL) bool {
	authority, err := url.Parse(c.config.Authority)
	if err != nil {
		return false
	}
	return current.Host != "" && strings.EqualFold(current.Host, authority.Host)
}

// Logout terminates the session, preferring the provider's redirect-based
// sign-out and falling back to local cleanup plus a hard navigation to
// the login view.
func (c *Controller) Logout(ctx context.Context) error {
	traceID := c.trace.Rotate()

	c.mu.Lock()
	credential := c.credential
	c.credential = nil
	c.loginInProgress = false
	fire := c.transitionLocked(LoggedOut)
	c.mu.Unlock()
	runAll(fire)

	if credential != nil && credential.IDToken != "" {
		if err := c.client.SignoutRedirect(ctx, &oidc.SignoutOptions{TraceID: traceID}); err == nil {
			return nil
		} else {
			logger.Warnf("[OIDC] signout redirect failed, falling back to local cleanup: %v", err)
		}
	}
	if err := c.client.RemoveUser(ctx); err != nil {
		logger.Warnf("[OIDC] local credential removal failed: %v", err)
	}
	c.navigator.Assign(c.config.LoginPath + "?trace_id=" + url.QueryEscape(traceID))
	return nil
}

// Renew performs a silent renewal. Concurrent callers collapse onto one
// provider round trip and observe the same outcome; nil signals failure.
func (c *Controller) Renew(ctx context.Context) *store.Credential {
	result, _, _ := c.renewGroup.Do("renew", func() (interface{}, error) {
		return c.renew(ctx), nil
	})
	credential, _ := result.(*store.Credential)
	return credential
}

func (c *Controller) renew(ctx context.Context) *store.Credential {
	c.setState(Renewing)
	credential, err := c.client.SigninSilent(ctx)
	if err == nil && credential != nil {
		c.mu.Lock()
		c.credential = credential
		c.transitionLocked(Authenticated)
		c.mu.Unlock()
		logger.Debugf("[OIDC] silent renew succeeded")
		return credential
	}
	logger.Errorf("[OIDC] silent renew failed: %v", err)
	if c.config.ForceLogoutOnRenewFail {
		if err := c.client.RemoveUser(ctx); err != nil {
			logger.Warnf("[OIDC] credential removal failed: %v", err)
		}
		c.mu.Lock()
		c.credential = nil
		c.loginInProgress = false
		fire := c.transitionLocked(LoggedOut)
		c.mu.Unlock()
		runAll(fire)
		c.navigator.Assign(c.config.LoginPath)
		return nil
	}
	// stale credential stays in place for the caller to handle
	c.setState(Unauthenticated)
	return nil
}

// GetValidToken returns the current access token, renewing once when the
// credential is expired. It never returns an error; an empty result means
// no token is available. Without any credential there is nothing to
// renew, so no provider round trip happens.
func (c *Controller) GetValidToken(ctx context.Context) string {
	c.mu.Lock()
	credential := c.credential
	c.mu.Unlock()
	if credential.Valid() {
		return credential.AccessToken
	}
	if credential == nil || credential.AccessToken == "" {
		return ""
	}
	renewed := c.Renew(ctx)
	if renewed == nil {
		return ""
	}
	return renewed.AccessToken
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsAuthenticated reports whether a valid credential is current.
func (c *Controller) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credential.Valid()
}

// Credential returns the current credential, which may be nil.
func (c *Controller) Credential() *store.Credential {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credential
}

// ClearLocal removes local credential state without contacting the
// provider; used once unauthorized recovery has taken over the shell.
func (c *Controller) ClearLocal(ctx context.Context) {
	if err := c.client.RemoveUser(ctx); err != nil {
		logger.Warnf("[OIDC] local credential removal failed: %v", err)
	}
	c.mu.Lock()
	c.credential = nil
	c.loginInProgress = false
	fire := c.transitionLocked(LoggedOut)
	c.mu.Unlock()
	runAll(fire)
}

// OnDeauthenticated registers fn to run after the session leaves the
// signed-in states for any reason, including renewal failures that emit
// no provider event.
func (c *Controller) OnDeauthenticated(fn func()) {
	c.mu.Lock()
	c.deauthenticated = append(c.deauthenticated, fn)
	c.mu.Unlock()
}

// signedIn treats the transient renewing state as still signed in so a
// proactive renewal does not tear down session-scoped resources.
func signedIn(state State) bool {
	return state == Authenticated || state == Renewing
}

// transitionLocked records the state change and returns the listeners to
// fire once the lock is released.
func (c *Controller) transitionLocked(to State) []func() {
	from := c.state
	c.state = to
	if signedIn(from) && !signedIn(to) {
		return append([]func(){}, c.deauthenticated...)
	}
	return nil
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	fire := c.transitionLocked(state)
	c.mu.Unlock()
	runAll(fire)
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

// Events exposes the underlying provider events, letting collaborators
// (e.g. the route gate) react to session transitions.
func (c *Controller) Events() *oidc.Events {
	return c.client.Events()
}
