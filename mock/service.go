package mock

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// IdentityService is a test server that simulates an OpenID Connect
// provider: discovery, authorization code issuance, token grants signed
// with a throwaway RSA key, a key set and an end-session endpoint.
type IdentityService struct {
	PrivateKey     *rsa.PrivateKey
	KeyID          string
	Issuer         string
	ClientID       string
	Subject        string
	AccessTokenTTL time.Duration
	RefreshTTL     time.Duration

	// FailTokenStatus, when non-zero, makes the token endpoint answer
	// with that status instead of issuing tokens.
	FailTokenStatus int

	DiscoveryHandler  func(w http.ResponseWriter, r *http.Request)
	AuthorizeHandler  func(w http.ResponseWriter, r *http.Request)
	TokenHandler      func(w http.ResponseWriter, r *http.Request)
	JwksHandler       func(w http.ResponseWriter, r *http.Request)
	EndSessionHandler func(w http.ResponseWriter, r *http.Request)

	mu                 sync.Mutex
	issuedCode         string
	lastAuthorizeQuery url.Values
	lastTokenForm      url.Values
	tokenRequests      int
	endSessionRequests int
}

// Option customizes the identity service.
type Option func(*IdentityService)

// WithClientID sets the accepted client id.
func WithClientID(clientID string) Option {
	return func(m *IdentityService) {
		m.ClientID = clientID
	}
}

// WithSubject sets the subject claim stamped into issued tokens.
func WithSubject(subject string) Option {
	return func(m *IdentityService) {
		m.Subject = subject
	}
}

// WithAccessTokenTTL sets the lifetime of issued access tokens; short
// lifetimes let tests exercise expiry and renewal.
func WithAccessTokenTTL(ttl time.Duration) Option {
	return func(m *IdentityService) {
		m.AccessTokenTTL = ttl
	}
}

// NewIdentityService creates an identity service with a fresh RSA key.
func NewIdentityService(options ...Option) (*IdentityService, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %v", err)
	}
	service := &IdentityService{
		PrivateKey:     privateKey,
		KeyID:          "mock-signing-key",
		ClientID:       "test_client_id",
		Subject:        "test_subject",
		AccessTokenTTL: time.Hour,
		RefreshTTL:     24 * time.Hour,
	}
	for _, opt := range options {
		opt(service)
	}
	return service, nil
}

// Register registers HTTP handlers for all endpoints onto the given ServeMux.
func (m *IdentityService) Register(mux *http.ServeMux) {
	mux.Handle("/", &Handler{Service: m})
}

// Handler returns an http.Handler for all endpoints, suitable for any HTTP server.
func (m *IdentityService) Handler() http.Handler {
	mux := http.NewServeMux()
	m.Register(mux)
	return mux
}

// LastAuthorizeQuery returns the query of the most recent authorize request.
func (m *IdentityService) LastAuthorizeQuery() url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAuthorizeQuery
}

// LastTokenForm returns the form of the most recent token request.
func (m *IdentityService) LastTokenForm() url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastTokenForm
}

// TokenRequests returns how many times the token endpoint was hit.
func (m *IdentityService) TokenRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenRequests
}

// EndSessionRequests returns how many times the end-session endpoint was hit.
func (m *IdentityService) EndSessionRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endSessionRequests
}
