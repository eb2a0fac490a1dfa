package mock

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MintAccessToken issues a signed access token outside the token
// endpoint, for tests that need a raw credential.
func (m *IdentityService) MintAccessToken() (string, error) {
	return m.createJWT(m.ClientID, "access_token", m.AccessTokenTTL)
}

// createJWT creates a signed JWT token for clientID with the given type and expiry
func (m *IdentityService) createJWT(clientID, tokenType string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": m.Issuer,
		"sub": m.Subject,
		"aud": clientID,
		"exp": now.Add(expiry).Unix(),
		"iat": now.Unix(),
		"typ": tokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = m.KeyID
	return token.SignedString(m.PrivateKey)
}
