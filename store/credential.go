package store

import (
	"time"

	"golang.org/x/oauth2"
)

// Credential is the current user's credential bundle. It is owned by the
// session controller: written only in response to provider events or
// explicit renewal, read by the request pipeline on every call.
type Credential struct {
	Subject      string         `json:"subject"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	IDToken      string         `json:"id_token,omitempty"`
	Scope        string         `json:"scope,omitempty"`
	Expiry       time.Time      `json:"expiry"`
	Claims       map[string]any `json:"claims,omitempty"`
}

// FromToken builds a Credential from an oauth2 token.
func FromToken(token *oauth2.Token, scope string) *Credential {
	if token == nil {
		return nil
	}
	cred := &Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Scope:        scope,
		Expiry:       token.Expiry,
	}
	if value := token.Extra("id_token"); value != nil {
		cred.IDToken, _ = value.(string)
	}
	return cred
}

// Token converts the credential back to an oauth2 token.
func (c *Credential) Token() *oauth2.Token {
	if c == nil {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.Expiry,
	}
}

// Expired reports whether the access token expiry has passed. A zero
// expiry counts as expired: a credential without a known lifetime must
// not be handed to callers.
func (c *Credential) Expired() bool {
	if c == nil {
		return true
	}
	if c.Expiry.IsZero() {
		return true
	}
	return !time.Now().Before(c.Expiry)
}

// ExpiresIn returns the remaining lifetime, zero when expired.
func (c *Credential) ExpiresIn() time.Duration {
	if c == nil || c.Expired() {
		return 0
	}
	return time.Until(c.Expiry)
}

// Valid reports whether the credential can authenticate a request.
func (c *Credential) Valid() bool {
	return c != nil && c.AccessToken != "" && !c.Expired()
}
