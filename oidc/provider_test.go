package oidc

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/authgate/config"
	"github.com/viant/authgate/mock"
	"github.com/viant/authgate/nav"
	"github.com/viant/authgate/store"
	"github.com/viant/scy/auth/flow"
	"golang.org/x/oauth2"
)

// fakeAuthFlow is a canned interactive flow for silent-renew fallbacks.
type fakeAuthFlow struct {
	calls int32
	token *oauth2.Token
	err   error
}

func (f *fakeAuthFlow) Token(context.Context, *oauth2.Config, ...flow.Option) (*oauth2.Token, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.token, f.err
}

type providerFixture struct {
	server    *mock.HTTPTestIdentityServer
	config    *config.Config
	store     store.Store
	navigator *nav.Memory
	provider  *Provider
}

func newProviderFixture(t *testing.T, options ...ProviderOption) *providerFixture {
	t.Helper()
	server, err := mock.NewHTTPTestIdentityServer()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	cfg := config.New()
	cfg.Authority = server.Issuer
	cfg.ClientID = server.ClientID
	cfg.RedirectURI = "http://localhost:5173/callback"
	cfg.PostLogoutRedirectURI = "http://localhost:5173/"

	fixture := &providerFixture{
		server:    server,
		config:    cfg,
		store:     store.NewMemoryStore(),
		navigator: nav.NewMemory("http://localhost:5173/reports?tab=monthly"),
	}
	fixture.provider = NewProvider(cfg, fixture.store, fixture.navigator, options...)
	return fixture
}

// followAuthorize dereferences the authorize URL the navigator landed on
// and returns the provider's callback redirect.
func (f *providerFixture) followAuthorize(t *testing.T) *url.URL {
	t.Helper()
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(f.navigator.Current().String())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	callback, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return callback
}

func TestEncodeDecodeState(t *testing.T) {
	state := EncodeState(&SigninOptions{ReturnURL: "/reports?tab=monthly", TraceID: "abc123"})
	decoded, err := DecodeState(state)
	assert.NoError(t, err)
	assert.Equal(t, "/reports?tab=monthly", decoded.ReturnURL)
	assert.Equal(t, "abc123", decoded.TraceID)

	_, err = DecodeState("not-base64!!!")
	assert.Error(t, err)
}

func TestSigninRedirect(t *testing.T) {
	fixture := newProviderFixture(t)
	err := fixture.provider.SigninRedirect(context.Background(), &SigninOptions{
		ReturnURL: "/reports",
		TraceID:   "trace-1",
	})
	assert.NoError(t, err)

	target := fixture.navigator.Current()
	assert.Equal(t, "/authorize", target.Path)
	query := target.Query()
	assert.Equal(t, fixture.config.ClientID, query.Get("client_id"))
	assert.Equal(t, fixture.config.RedirectURI, query.Get("redirect_uri"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
	assert.NotEmpty(t, query.Get("code_challenge"))

	decoded, err := DecodeState(query.Get("state"))
	assert.NoError(t, err)
	assert.Equal(t, "/reports", decoded.ReturnURL)
	assert.Equal(t, "trace-1", decoded.TraceID)
}

func TestCompleteSignin(t *testing.T) {
	fixture := newProviderFixture(t)
	var loaded atomic.Int32
	fixture.provider.Events().AddUserLoaded(func(*store.Credential) {
		loaded.Add(1)
	})

	ctx := context.Background()
	require.NoError(t, fixture.provider.SigninRedirect(ctx, &SigninOptions{ReturnURL: "/reports?tab=monthly"}))
	callback := fixture.followAuthorize(t)

	credential, returnURL, err := fixture.provider.CompleteSignin(ctx, callback)
	require.NoError(t, err)
	assert.Equal(t, "/reports?tab=monthly", returnURL)
	assert.True(t, credential.Valid())
	assert.NotEmpty(t, credential.RefreshToken)
	assert.NotEmpty(t, credential.IDToken)
	assert.Equal(t, int32(1), loaded.Load())

	persisted, ok := fixture.store.Load()
	assert.True(t, ok)
	assert.Equal(t, credential.AccessToken, persisted.AccessToken)

	form := fixture.server.LastTokenForm()
	assert.NotEmpty(t, form.Get("code_verifier"), "exchange carries the PKCE verifier")
}

func TestCompleteSigninProviderError(t *testing.T) {
	fixture := newProviderFixture(t)
	callback, _ := url.Parse("http://localhost:5173/callback?error=access_denied")
	_, _, err := fixture.provider.CompleteSignin(context.Background(), callback)
	assert.ErrorContains(t, err, "access_denied")

	callback, _ = url.Parse("http://localhost:5173/callback")
	_, _, err = fixture.provider.CompleteSignin(context.Background(), callback)
	assert.ErrorContains(t, err, "no authorization code")
}

func TestSigninSilentWithRefreshToken(t *testing.T) {
	fixture := newProviderFixture(t)
	require.NoError(t, fixture.store.Save(&store.Credential{
		Subject:      "test_subject",
		AccessToken:  "stale",
		RefreshToken: "seed_refresh_token",
		IDToken:      "seed_id_token",
		Expiry:       time.Now().Add(-time.Minute),
	}))

	credential, err := fixture.provider.SigninSilent(context.Background())
	require.NoError(t, err)
	assert.True(t, credential.Valid())
	assert.NotEqual(t, "stale", credential.AccessToken)
	assert.NotEmpty(t, credential.RefreshToken)
	assert.Equal(t, "test_subject", credential.Subject)

	form := fixture.server.LastTokenForm()
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
}

func TestSigninSilentFallsBackToAuthFlow(t *testing.T) {
	fallback := &fakeAuthFlow{token: &oauth2.Token{
		AccessToken:  "flow_access_token",
		RefreshToken: "flow_refresh_token",
		Expiry:       time.Now().Add(time.Hour),
	}}
	fixture := newProviderFixture(t, WithAuthFlow(fallback))
	require.NoError(t, fixture.store.Save(&store.Credential{
		AccessToken: "stale",
		Expiry:      time.Now().Add(-time.Minute),
	}))

	credential, err := fixture.provider.SigninSilent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "flow_access_token", credential.AccessToken)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fallback.calls))
}

func TestSigninSilentFailure(t *testing.T) {
	fallback := &fakeAuthFlow{err: errors.New("no interactive session")}
	fixture := newProviderFixture(t, WithAuthFlow(fallback))
	fixture.server.FailTokenStatus = http.StatusInternalServerError
	require.NoError(t, fixture.store.Save(&store.Credential{
		AccessToken:  "stale",
		RefreshToken: "seed_refresh_token",
		Expiry:       time.Now().Add(-time.Minute),
	}))
	var renewErrors atomic.Int32
	fixture.provider.Events().AddSilentRenewError(func(error) {
		renewErrors.Add(1)
	})

	credential, err := fixture.provider.SigninSilent(context.Background())
	assert.Error(t, err)
	assert.Nil(t, credential)
	assert.Equal(t, int32(1), renewErrors.Load())
}

func TestSignoutRedirect(t *testing.T) {
	fixture := newProviderFixture(t)
	require.NoError(t, fixture.store.Save(&store.Credential{
		AccessToken: "access",
		IDToken:     "identity",
		Expiry:      time.Now().Add(time.Hour),
	}))
	var unloaded atomic.Int32
	fixture.provider.Events().AddUserUnloaded(func() {
		unloaded.Add(1)
	})

	err := fixture.provider.SignoutRedirect(context.Background(), &SignoutOptions{TraceID: "trace-2"})
	require.NoError(t, err)

	target := fixture.navigator.Current()
	assert.Equal(t, "/end-session", target.Path)
	query := target.Query()
	assert.Equal(t, "identity", query.Get("id_token_hint"))
	assert.Contains(t, query.Get("post_logout_redirect_uri"), "trace_id=trace-2")

	_, ok := fixture.store.Load()
	assert.False(t, ok, "credential cleared before the redirect")
	assert.Equal(t, int32(1), unloaded.Load())
}

func TestRemoveUser(t *testing.T) {
	fixture := newProviderFixture(t)
	require.NoError(t, fixture.store.Save(&store.Credential{AccessToken: "access"}))
	var unloaded atomic.Int32
	fixture.provider.Events().AddUserUnloaded(func() {
		unloaded.Add(1)
	})
	assert.NoError(t, fixture.provider.RemoveUser(context.Background()))
	_, ok := fixture.store.Load()
	assert.False(t, ok)
	assert.Equal(t, int32(1), unloaded.Load())
}

func TestUser(t *testing.T) {
	fixture := newProviderFixture(t)
	credential, err := fixture.provider.User(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, credential)

	require.NoError(t, fixture.store.Save(&store.Credential{AccessToken: "access"}))
	credential, err = fixture.provider.User(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "access", credential.AccessToken)
}
