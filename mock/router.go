package mock

import (
	"net/http"
)

// Handler routes HTTP requests to the appropriate identity provider endpoints.
type Handler struct {
	// Service is the mock identity provider with endpoint handlers.
	Service *IdentityService
}

// ServeHTTP dispatches incoming HTTP requests based on URL path.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/.well-known/openid-configuration":
		if h.Service.DiscoveryHandler != nil {
			h.Service.DiscoveryHandler(w, r)
		} else {
			h.Service.defaultDiscoveryHandler(w, r)
		}
	case "/authorize":
		if h.Service.AuthorizeHandler != nil {
			h.Service.AuthorizeHandler(w, r)
		} else {
			h.Service.defaultAuthorizeHandler(w, r)
		}
	case "/token":
		if h.Service.TokenHandler != nil {
			h.Service.TokenHandler(w, r)
		} else {
			h.Service.defaultTokenHandler(w, r)
		}
	case "/jwks":
		if h.Service.JwksHandler != nil {
			h.Service.JwksHandler(w, r)
		} else {
			h.Service.defaultJwksHandler(w, r)
		}
	case "/end-session":
		if h.Service.EndSessionHandler != nil {
			h.Service.EndSessionHandler(w, r)
		} else {
			h.Service.defaultEndSessionHandler(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}
