package oidc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/viant/authgate/config"
	"github.com/viant/authgate/logger"
	"github.com/viant/authgate/nav"
	"github.com/viant/authgate/store"
	"github.com/viant/scy/auth/flow"
	"golang.org/x/oauth2"
)

// discoveryClaims are the extra discovery document fields go-oidc does
// not surface through Endpoint().
type discoveryClaims struct {
	JWKSURI            string `json:"jwks_uri"`
	EndSessionEndpoint string `json:"end_session_endpoint"`
}

// Provider is the default Client implementation: go-oidc discovery,
// authorization-code redirect with PKCE, refresh-token silent renewal
// with an interactive flow fallback.
type Provider struct {
	config    *config.Config
	store     store.Store
	navigator nav.Navigator
	events    *Events
	transport http.RoundTripper
	authFlow  flow.AuthFlow

	mu        sync.Mutex
	discovery *gooidc.Provider
	claims    discoveryClaims
	oauth     *oauth2.Config
	verifier  string // pending PKCE code verifier
	expiring  *time.Timer
	threshold time.Duration
}

// ProviderOption customizes a Provider.
type ProviderOption func(*Provider)

// WithTransport sets the HTTP transport used for provider calls.
func WithTransport(transport http.RoundTripper) ProviderOption {
	return func(p *Provider) {
		p.transport = transport
	}
}

// WithAuthFlow sets the interactive flow used when silent renewal has no
// refresh token to work with.
func WithAuthFlow(authFlow flow.AuthFlow) ProviderOption {
	return func(p *Provider) {
		p.authFlow = authFlow
	}
}

// NewProvider creates a Provider over the given configuration, store and
// navigator.
func NewProvider(cfg *config.Config, aStore store.Store, navigator nav.Navigator, options ...ProviderOption) *Provider {
	ret := &Provider{
		config:    cfg,
		store:     aStore,
		navigator: navigator,
		events:    NewEvents(),
		transport: http.DefaultTransport,
		authFlow:  flow.NewBrowserFlow(),
		threshold: cfg.ExpiringThreshold,
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

func (p *Provider) Events() *Events {
	return p.events
}

func (p *Provider) User(_ context.Context) (*store.Credential, error) {
	credential, ok := p.store.Load()
	if !ok {
		return nil, nil
	}
	return credential, nil
}

// ensureDiscovered resolves the discovery document once.
func (p *Provider) ensureDiscovered(ctx context.Context) (*oauth2.Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.oauth != nil {
		return p.oauth, nil
	}
	ctx = gooidc.ClientContext(ctx, &http.Client{Transport: p.transport})
	discovered, err := gooidc.NewProvider(ctx, p.config.Authority)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC endpoints: %w", err)
	}
	if err := discovered.Claims(&p.claims); err != nil {
		return nil, fmt.Errorf("failed to extract provider claims: %w", err)
	}
	p.discovery = discovered
	p.oauth = &oauth2.Config{
		ClientID:    p.config.ClientID,
		RedirectURL: p.config.RedirectURI,
		Scopes:      p.config.Scopes,
		Endpoint:    discovered.Endpoint(),
	}
	return p.oauth, nil
}

type signinState struct {
	ReturnURL string `json:"returnUrl"`
	TraceID   string `json:"traceId"`
}

// EncodeState packs the return URL and trace id into the OIDC state
// parameter so they survive the round trip.
func EncodeState(options *SigninOptions) string {
	if options == nil {
		options = &SigninOptions{}
	}
	data, _ := json.Marshal(signinState{ReturnURL: options.ReturnURL, TraceID: options.TraceID})
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeState unpacks a state parameter produced by EncodeState.
func DecodeState(state string) (*SigninOptions, error) {
	data, err := base64.RawURLEncoding.DecodeString(state)
	if err != nil {
		return nil, err
	}
	decoded := &signinState{}
	if err := json.Unmarshal(data, decoded); err != nil {
		return nil, err
	}
	return &SigninOptions{ReturnURL: decoded.ReturnURL, TraceID: decoded.TraceID}, nil
}

func (p *Provider) SigninRedirect(ctx context.Context, options *SigninOptions) error {
	oauthConfig, err := p.ensureDiscovered(ctx)
	if err != nil {
		return err
	}
	verifier := oauth2.GenerateVerifier()
	p.mu.Lock()
	p.verifier = verifier
	p.mu.Unlock()
	target := oauthConfig.AuthCodeURL(EncodeState(options), oauth2.S256ChallengeOption(verifier))
	p.navigator.Assign(target)
	return nil
}

// CompleteSignin finishes the authorization-code round trip: it exchanges
// the code carried by the callback URL, persists the credential and
// returns it together with the pre-redirect return URL.
func (p *Provider) CompleteSignin(ctx context.Context, callback *url.URL) (*store.Credential, string, error) {
	oauthConfig, err := p.ensureDiscovered(ctx)
	if err != nil {
		return nil, "", err
	}
	query := callback.Query()
	if reason := query.Get("error"); reason != "" {
		return nil, "", fmt.Errorf("authorization failed: %v", reason)
	}
	code := query.Get("code")
	if code == "" {
		return nil, "", errors.New("callback URL carries no authorization code")
	}
	p.mu.Lock()
	verifier := p.verifier
	p.verifier = ""
	p.mu.Unlock()
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: p.transport})
	token, err := oauthConfig.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("code exchange failed: %w", err)
	}
	credential := store.FromToken(token, p.config.Scope())
	if err := p.store.Save(credential); err != nil {
		return nil, "", err
	}
	returnURL := "/"
	if options, err := DecodeState(query.Get("state")); err == nil && options.ReturnURL != "" {
		returnURL = options.ReturnURL
	}
	p.scheduleExpiring(credential)
	p.events.EmitUserLoaded(credential)
	return credential, returnURL, nil
}

func (p *Provider) SigninSilent(ctx context.Context) (*store.Credential, error) {
	oauthConfig, err := p.ensureDiscovered(ctx)
	if err != nil {
		p.events.EmitSilentRenewError(err)
		return nil, err
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: p.transport})
	current, _ := p.store.Load()
	token, err := p.renewToken(ctx, oauthConfig, current)
	if err != nil {
		p.events.EmitSilentRenewError(err)
		return nil, err
	}
	credential := store.FromToken(token, p.config.Scope())
	if credential.IDToken == "" && current != nil {
		credential.IDToken = current.IDToken
	}
	if current != nil {
		credential.Subject = current.Subject
	}
	if err := p.store.Save(credential); err != nil {
		return nil, err
	}
	p.scheduleExpiring(credential)
	p.events.EmitUserLoaded(credential)
	return credential, nil
}

// renewToken prefers the refresh token; without one it falls back to the
// configured interactive flow.
func (p *Provider) renewToken(ctx context.Context, oauthConfig *oauth2.Config, current *store.Credential) (*oauth2.Token, error) {
	if current != nil && current.RefreshToken != "" {
		source := oauthConfig.TokenSource(ctx, current.Token())
		refreshed, err := source.Token()
		if err == nil {
			if refreshed.RefreshToken == "" {
				refreshed.RefreshToken = current.RefreshToken
			}
			return refreshed, nil
		}
		logger.Debugf("[OIDC] refresh grant failed, falling back to auth flow: %v", err)
	}
	return p.authFlow.Token(ctx, oauthConfig, flow.WithPKCE(true))
}

func (p *Provider) SignoutRedirect(ctx context.Context, options *SignoutOptions) error {
	if _, err := p.ensureDiscovered(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	endSession := p.claims.EndSessionEndpoint
	p.mu.Unlock()
	if endSession == "" {
		return errors.New("provider exposes no end_session_endpoint")
	}
	credential, _ := p.store.Load()
	postLogout := p.config.PostLogoutRedirectURI
	if options != nil && options.TraceID != "" {
		separator := "?"
		if strings.Contains(postLogout, "?") {
			separator = "&"
		}
		postLogout += separator + "trace_id=" + url.QueryEscape(options.TraceID)
	}
	values := url.Values{}
	values.Set("post_logout_redirect_uri", postLogout)
	if credential != nil && credential.IDToken != "" {
		values.Set("id_token_hint", credential.IDToken)
	}
	target := endSession + "?" + values.Encode()
	if err := p.store.Clear(); err != nil {
		return err
	}
	p.stopExpiring()
	p.events.EmitUserUnloaded()
	p.navigator.Assign(target)
	return nil
}

func (p *Provider) RemoveUser(_ context.Context) error {
	err := p.store.Clear()
	p.stopExpiring()
	p.events.EmitUserUnloaded()
	return err
}

// scheduleExpiring arms a timer that fires the token-expiring event when
// the credential enters its expiry window.
func (p *Provider) scheduleExpiring(credential *store.Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.expiring != nil {
		p.expiring.Stop()
		p.expiring = nil
	}
	remaining := credential.ExpiresIn()
	if remaining <= 0 {
		return
	}
	delay := remaining - p.threshold
	if delay < 0 {
		delay = 0
	}
	p.expiring = time.AfterFunc(delay, func() {
		current, ok := p.store.Load()
		if !ok {
			return
		}
		p.events.EmitAccessTokenExpiring(int(current.ExpiresIn().Seconds()))
	})
}

func (p *Provider) stopExpiring() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.expiring != nil {
		p.expiring.Stop()
		p.expiring = nil
	}
}
