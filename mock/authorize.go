package mock

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// defaultAuthorizeHandler handles /authorize requests: it validates the
// client and redirects back with a fresh authorization code, echoing the
// state parameter.
func (m *IdentityService) defaultAuthorizeHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if clientID := query.Get("client_id"); clientID != m.ClientID {
		http.Error(w, "Invalid client ID", http.StatusBadRequest)
		return
	}
	redirectURI := query.Get("redirect_uri")
	if redirectURI == "" {
		http.Error(w, "Missing redirect URI", http.StatusBadRequest)
		return
	}
	code := newAuthorizationCode()
	m.mu.Lock()
	m.issuedCode = code
	m.lastAuthorizeQuery = query
	m.mu.Unlock()
	separator := "?"
	if strings.Contains(redirectURI, "?") {
		separator = "&"
	}
	target := fmt.Sprintf("%s%scode=%s&state=%s", redirectURI, separator, code, query.Get("state"))
	http.Redirect(w, r, target, http.StatusFound)
}

func newAuthorizationCode() string {
	buffer := make([]byte, 16)
	_, _ = rand.Read(buffer)
	return base64.RawURLEncoding.EncodeToString(buffer)
}

// defaultEndSessionHandler records the RP-initiated logout and redirects
// to the post-logout URI when one was supplied.
func (m *IdentityService) defaultEndSessionHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.endSessionRequests++
	m.mu.Unlock()
	if target := r.URL.Query().Get("post_logout_redirect_uri"); target != "" {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}
