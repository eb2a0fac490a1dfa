package mock

import "net/http/httptest"

// HTTPTestIdentityServer binds an IdentityService to an httptest server
// and sets the issuer to the server's base URL.
type HTTPTestIdentityServer struct {
	*IdentityService
	Server *httptest.Server
	Issuer string
}

// NewHTTPTestIdentityServer starts an identity provider for tests.
func NewHTTPTestIdentityServer(options ...Option) (*HTTPTestIdentityServer, error) {
	service, err := NewIdentityService(options...)
	if err != nil {
		return nil, err
	}
	server := &HTTPTestIdentityServer{
		IdentityService: service,
	}
	server.Server = httptest.NewServer(service.Handler())
	service.Issuer = server.Server.URL
	server.Issuer = server.Server.URL
	return server, nil
}

// Close shuts down the underlying server.
func (s *HTTPTestIdentityServer) Close() {
	if s.Server != nil {
		s.Server.Close()
	}
	s.IdentityService = nil
	s.Server = nil
}
