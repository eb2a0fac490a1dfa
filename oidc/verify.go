package oidc

import (
	"context"
	"crypto"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
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

// fetchIssuerKeys downloads and decodes the issuer's RSA signing keys.
func fetchIssuerKeys(ctx context.Context, jwksURI string, transport http.RoundTripper) (map[string]crypto.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return nil, err
	}
	resp, err := (&http.Client{Transport: transport}).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks endpoint returned %v", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	keySet := &jsonWebKeySet{}
	if err := json.Unmarshal(data, keySet); err != nil {
		return nil, err
	}
	keys := map[string]crypto.PublicKey{}
	for _, key := range keySet.Keys {
		if key.Kty != "RSA" {
			continue
		}
		modulus, err := base64.RawURLEncoding.DecodeString(key.N)
		if err != nil {
			continue
		}
		exponent, err := base64.RawURLEncoding.DecodeString(key.E)
		if err != nil {
			continue
		}
		keys[key.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(modulus),
			E: int(new(big.Int).SetBytes(exponent).Int64()),
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("jwks document carries no usable RSA keys")
	}
	return keys, nil
}

// VerifyAccessToken parses and verifies the access token signature against
// the issuer's key set, returning its claims. It is diagnostic only: the
// session state never depends on the outcome.
func (p *Provider) VerifyAccessToken(ctx context.Context, accessToken string) (jwt.MapClaims, error) {
	if _, err := p.ensureDiscovered(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	jwksURI := p.claims.JWKSURI
	p.mu.Unlock()
	if jwksURI == "" {
		return nil, errors.New("provider exposes no jwks_uri")
	}
	keys, ok := p.store.LookupIssuerKeys(p.config.Authority)
	if !ok {
		var err error
		keys, err = fetchIssuerKeys(ctx, jwksURI, p.transport)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch JSON Web Key Set: %w", err)
		}
		if err := p.store.AddIssuerKeys(p.config.Authority, keys); err != nil {
			return nil, err
		}
	}
	parsed, err := jwt.Parse(accessToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("kid header not found")
		}
		key, ok := keys[kid]
		if !ok {
			return nil, fmt.Errorf("key %v not found", kid)
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("access token is not valid")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	return claims, nil
}
