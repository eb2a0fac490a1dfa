package mock

import (
	"encoding/json"
	"net/http"

	"github.com/viant/afs/url"
)

// defaultDiscoveryHandler serves the OpenID Connect discovery document.
func (m *IdentityService) defaultDiscoveryHandler(w http.ResponseWriter, _ *http.Request) {
	document := map[string]interface{}{
		"issuer":                                m.Issuer,
		"authorization_endpoint":                url.Join(m.Issuer, "authorize"),
		"token_endpoint":                        url.Join(m.Issuer, "token"),
		"jwks_uri":                              url.Join(m.Issuer, "jwks"),
		"end_session_endpoint":                  url.Join(m.Issuer, "end-session"),
		"response_types_supported":              []string{"code"},
		"grant_types_supported":                 []string{"authorization_code", "refresh_token"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"code_challenge_methods_supported":      []string{"S256"},
		"scopes_supported":                      []string{"openid", "profile", "email"},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(document)
}
