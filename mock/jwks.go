package mock

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
)

type jsonWebKey struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jsonWebKeySet struct {
	Keys []jsonWebKey `json:"keys"`
}

// defaultJwksHandler handles /jwks requests by exposing the server's public key
func (m *IdentityService) defaultJwksHandler(w http.ResponseWriter, _ *http.Request) {
	pubKey := m.PrivateKey.Public().(*rsa.PublicKey)
	nBytes := pubKey.N.Bytes()
	eBytes := new(big.Int).SetInt64(int64(pubKey.E)).Bytes()
	jwk := jsonWebKey{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: m.KeyID,
		N:   base64.RawURLEncoding.EncodeToString(nBytes),
		E:   base64.RawURLEncoding.EncodeToString(eBytes),
	}
	jwks := jsonWebKeySet{Keys: []jsonWebKey{jwk}}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(jwks)
}
