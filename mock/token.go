package mock

import (
	"encoding/json"
	"net/http"
)

// defaultTokenHandler handles /token requests for the authorization_code
// and refresh_token grants. The client is public, so no secret is
// required; the code grant must present the previously issued code.
func (m *IdentityService) defaultTokenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	m.mu.Lock()
	m.tokenRequests++
	m.lastTokenForm = r.Form
	issuedCode := m.issuedCode
	failStatus := m.FailTokenStatus
	m.mu.Unlock()
	if failStatus != 0 {
		http.Error(w, "Token issuance disabled", failStatus)
		return
	}
	clientID, _, ok := r.BasicAuth()
	if !ok {
		clientID = r.FormValue("client_id")
	}
	if clientID != m.ClientID {
		http.Error(w, "Invalid client credentials", http.StatusUnauthorized)
		return
	}
	switch r.FormValue("grant_type") {
	case "authorization_code":
		code := r.FormValue("code")
		if code == "" || (issuedCode != "" && code != issuedCode) {
			http.Error(w, "Invalid authorization code", http.StatusBadRequest)
			return
		}
	case "refresh_token":
		if r.FormValue("refresh_token") == "" {
			http.Error(w, "Missing refresh token", http.StatusBadRequest)
			return
		}
	default:
		http.Error(w, "Unsupported grant type", http.StatusBadRequest)
		return
	}
	accessToken, err := m.createJWT(clientID, "access_token", m.AccessTokenTTL)
	if err != nil {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	refreshToken, err := m.createJWT(clientID, "refresh_token", m.RefreshTTL)
	if err != nil {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	idToken, err := m.createJWT(clientID, "id_token", m.AccessTokenTTL)
	if err != nil {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	response := map[string]interface{}{
		"access_token":  accessToken,
		"token_type":    "Bearer",
		"refresh_token": refreshToken,
		"expires_in":    int(m.AccessTokenTTL.Seconds()),
		"id_token":      idToken,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}
