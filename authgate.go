// Package authgate wires the authentication session manager and the
// authenticated request pipeline for a single-page-application shell
// that delegates identity to an external OpenID Connect provider.
package authgate

import (
	"context"
	"errors"
	"net/http"
	neturl "net/url"

	"github.com/viant/afs/url"
	"github.com/viant/authgate/config"
	"github.com/viant/authgate/gate"
	"github.com/viant/authgate/logger"
	"github.com/viant/authgate/menu"
	"github.com/viant/authgate/nav"
	"github.com/viant/authgate/oidc"
	"github.com/viant/authgate/pipeline"
	"github.com/viant/authgate/session"
	"github.com/viant/authgate/store"
	"github.com/viant/authgate/trace"
)

// Service aggregates the wired components. Hosts typically keep one per
// shell instance.
type Service struct {
	Config       *config.Config
	Store        store.Store
	Trace        *trace.Context
	Navigator    nav.Navigator
	Client       oidc.Client
	Session      *session.Controller
	Unauthorized *pipeline.UnauthorizedHandler
	HTTP         *pipeline.Client
	Fetch        *pipeline.Fetch
	Menus        *menu.API
	Registry     *gate.Registry
	Gate         *gate.Gate
	Diagnostic   *logger.Persistent
}

// Option represents option
type Option func(s *Service, o *serviceOptions)

type serviceOptions struct {
	transport  http.RoundTripper
	notifier   gate.Notifier
	production bool
	routes     []*gate.Route
}

// WithNavigator sets the shell navigator; the default is an in-memory
// navigator positioned at root.
func WithNavigator(navigator nav.Navigator) Option {
	return func(s *Service, _ *serviceOptions) {
		s.Navigator = navigator
	}
}

// WithStore injects a credential store, overriding the storage
// preference in the configuration.
func WithStore(aStore store.Store) Option {
	return func(s *Service, _ *serviceOptions) {
		s.Store = aStore
	}
}

// WithOIDCClient injects the OIDC client capability, replacing the
// default discovery-based provider.
func WithOIDCClient(client oidc.Client) Option {
	return func(s *Service, _ *serviceOptions) {
		s.Client = client
	}
}

// WithTransport sets the HTTP transport shared by the provider and both
// pipeline adapters.
func WithTransport(transport http.RoundTripper) Option {
	return func(_ *Service, o *serviceOptions) {
		o.transport = transport
	}
}

// WithNotifier sets the user-visible notification sink.
func WithNotifier(notifier gate.Notifier) Option {
	return func(_ *Service, o *serviceOptions) {
		o.notifier = notifier
	}
}

// WithProduction enables production validation: security-critical
// configuration left at defaults becomes a hard failure.
func WithProduction(production bool) Option {
	return func(_ *Service, o *serviceOptions) {
		o.production = production
	}
}

// WithRoutes registers additional static routes.
func WithRoutes(routes ...*gate.Route) Option {
	return func(_ *Service, o *serviceOptions) {
		o.routes = append(o.routes, routes...)
	}
}

// New wires a Service over the given configuration.
func New(cfg *config.Config, options ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.FromEnv()
	}
	s := &Service{Config: cfg}
	o := &serviceOptions{}
	for _, opt := range options {
		opt(s, o)
	}
	if err := cfg.Validate(o.production); err != nil {
		return nil, err
	}
	logger.Initialize(cfg.LogLevel)

	if s.Navigator == nil {
		s.Navigator = nav.NewMemory("/")
	}
	if s.Store == nil {
		if cfg.Storage == config.StoragePersistent {
			s.Store = store.NewFileStore(url.Join(cfg.StateURL, "credential.json"))
		} else {
			s.Store = store.NewMemoryStore()
		}
	}
	var traceStorage trace.Storage
	if cfg.Storage == config.StoragePersistent {
		traceStorage = trace.NewFileStorage(url.Join(cfg.StateURL, "trace_id"))
	} else {
		traceStorage = trace.NewMemoryStorage()
	}
	s.Trace = trace.New(traceStorage)

	if s.Client == nil {
		providerOptions := []oidc.ProviderOption{}
		if o.transport != nil {
			providerOptions = append(providerOptions, oidc.WithTransport(o.transport))
		}
		s.Client = oidc.NewProvider(cfg, s.Store, s.Navigator, providerOptions...)
	}
	s.Session = session.New(cfg, s.Client, s.Trace, s.Navigator)

	s.Diagnostic = logger.NewPersistent(cfg.PersistentLogURL, cfg.PersistentLogSample, cfg.PersistentLogEnabled)
	s.Unauthorized = pipeline.NewUnauthorizedHandler(cfg, s.Navigator, s.Diagnostic, s.Session.ClearLocal)

	core := pipeline.NewCore(cfg, s.Session, s.Trace, s.Navigator, s.Unauthorized)
	s.HTTP = pipeline.NewClient(core, o.transport)
	s.Fetch = pipeline.NewFetch(core, o.transport)
	s.Menus = menu.NewAPI(s.HTTP)

	s.Registry = gate.NewRegistry(defaultRoutes(cfg)...)
	for _, route := range o.routes {
		s.Registry.Register(route)
	}
	gateOptions := []gate.Option{gate.WithSessionProbe(s.Fetch)}
	if o.notifier != nil {
		gateOptions = append(gateOptions, gate.WithNotifier(o.notifier))
	}
	s.Gate = gate.New(cfg, s.Session, s.Navigator, s.Registry, s.Menus, gateOptions...)
	return s, nil
}

// Initialize restores the session; safe to call repeatedly.
func (s *Service) Initialize(ctx context.Context) error {
	return s.Session.Initialize(ctx)
}

// signinCompleter is implemented by clients able to finish the
// authorization-code callback.
type signinCompleter interface {
	CompleteSignin(ctx context.Context, callback *neturl.URL) (*store.Credential, string, error)
}

// CompleteSignin finishes the authorization-code round trip for the
// given callback URL and returns the pre-redirect return URL.
func (s *Service) CompleteSignin(ctx context.Context, callback *neturl.URL) (string, error) {
	completer, ok := s.Client.(signinCompleter)
	if !ok {
		return "", errors.New("client does not support callback completion")
	}
	_, returnURL, err := completer.CompleteSignin(ctx, callback)
	return returnURL, err
}

func defaultRoutes(cfg *config.Config) []*gate.Route {
	return []*gate.Route{
		{Path: cfg.LoginPath, Name: "Login", Title: "Login"},
		{Path: cfg.CallbackPath, Name: "OidcCallback"},
		{Path: cfg.UnauthorizedPath, Name: "Unauthorized", Title: "401"},
		{Path: "/", Name: "Home", Title: "Home", RequiresAuth: true},
		{Path: "/403", Name: "Error403", Title: "403"},
		{Path: "/404", Name: "Error404", Title: "404"},
		{Path: "/500", Name: "Error500", Title: "500"},
	}
}
