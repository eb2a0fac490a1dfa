package authgate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/authgate/config"
	"github.com/viant/authgate/gate"
	"github.com/viant/authgate/mock"
	"github.com/viant/authgate/nav"
	"github.com/viant/authgate/session"
)

type fixture struct {
	identity  *mock.HTTPTestIdentityServer
	backend   *mock.ResourceService
	navigator *nav.Memory
	service   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	identity, err := mock.NewHTTPTestIdentityServer()
	require.NoError(t, err)
	t.Cleanup(identity.Close)

	backend := mock.NewResourceService()
	backendServer := httptest.NewServer(backend.Handler())
	t.Cleanup(backendServer.Close)

	cfg := config.New()
	cfg.Authority = identity.Issuer
	cfg.ClientID = identity.ClientID
	cfg.APIBaseURL = backendServer.URL
	cfg.RedirectURI = "http://localhost:5173/callback"

	navigator := nav.NewMemory("http://localhost:5173/reports")
	service, err := New(cfg, WithNavigator(navigator))
	require.NoError(t, err)

	return &fixture{
		identity:  identity,
		backend:   backend,
		navigator: navigator,
		service:   service,
	}
}

// completeLogin drives the full redirect round trip against the mock
// provider: authorize, callback, code exchange.
func (f *fixture) completeLogin(t *testing.T) string {
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
	f.navigator.Assign(callback.String())

	returnURL, err := f.service.CompleteSignin(context.Background(), callback)
	require.NoError(t, err)
	return returnURL
}

func TestEndToEndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Initialize(ctx))
	assert.False(t, f.service.Session.IsAuthenticated())

	resolution := f.service.Gate.Guard(ctx, "/")
	assert.Equal(t, gate.Halt, resolution.Decision)
	assert.True(t, strings.HasSuffix(f.navigator.Current().Path, "/authorize"), "login redirect issued")

	returnURL := f.completeLogin(t)
	assert.Equal(t, "/reports", returnURL)
	assert.True(t, f.service.Session.IsAuthenticated())
	assert.Equal(t, session.Authenticated, f.service.Session.State())
}

func TestEndToEndGuardedNavigation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.service.Initialize(ctx))
	require.Equal(t, gate.Halt, f.service.Gate.Guard(ctx, "/").Decision)
	f.completeLogin(t)
	f.navigator.Assign("/reports")

	resolution := f.service.Gate.Guard(ctx, "/dashboard")
	assert.Equal(t, gate.Allow, resolution.Decision)
	require.NotNil(t, resolution.Route)
	assert.Equal(t, "Dashboard", resolution.Route.Name)
	assert.Contains(t, f.backend.LastAuthorization(), "Bearer ", "menu fetch carries the credential")

	resolution = f.service.Gate.Guard(ctx, "/login")
	assert.Equal(t, gate.Redirect, resolution.Decision)
	assert.Equal(t, "/", resolution.Target)
}

func TestEndToEndAuthenticatedRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.service.Initialize(ctx))
	require.Equal(t, gate.Halt, f.service.Gate.Guard(ctx, "/").Decision)
	f.completeLogin(t)

	out := map[string]string{}
	require.NoError(t, f.service.HTTP.Get(ctx, "/api/widgets", &out))
	assert.Equal(t, "This is a protected resource", out["message"])
	assert.True(t, strings.HasPrefix(f.backend.LastAuthorization(), "Bearer eyJ"))
}

func TestEndToEndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.service.Initialize(ctx))
	require.Equal(t, gate.Halt, f.service.Gate.Guard(ctx, "/").Decision)
	f.completeLogin(t)
	require.True(t, f.service.Session.IsAuthenticated())

	require.NoError(t, f.service.Session.Logout(ctx))
	assert.False(t, f.service.Session.IsAuthenticated())
	assert.Equal(t, session.LoggedOut, f.service.Session.State())
	assert.True(t, strings.HasSuffix(f.navigator.Current().Path, "/end-session"), "provider sign-out redirect")
	assert.False(t, f.service.Gate.MenuState().Loaded, "menu routes dropped with the session")
}

func TestNewValidatesProductionConfig(t *testing.T) {
	cfg := config.New()
	_, err := New(cfg, WithProduction(true))
	assert.Error(t, err, "defaulted critical values are a hard failure in production")
}

func TestNewWithCustomRoutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	identity, err := mock.NewHTTPTestIdentityServer()
	require.NoError(t, err)
	defer identity.Close()

	cfg := config.New()
	cfg.Authority = identity.Issuer
	cfg.ClientID = identity.ClientID
	cfg.APIBaseURL = f.service.Config.APIBaseURL
	service, err := New(cfg,
		WithNavigator(nav.NewMemory("http://localhost:5173/")),
		WithRoutes(&gate.Route{Path: "/about", Name: "About"}))
	require.NoError(t, err)

	resolution := service.Gate.Guard(ctx, "/about")
	assert.Equal(t, gate.Allow, resolution.Decision)
}
