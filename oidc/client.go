// Package oidc wraps the external OpenID Connect client capability:
// discovery, redirect-based signin/signout, silent renewal and the
// provider event surface. It orchestrates when those calls happen; the
// protocol itself is delegated to go-oidc and golang.org/x/oauth2.
package oidc

import (
	"context"

	"github.com/viant/authgate/store"
)

// SigninOptions carry state that must survive the authorization round
// trip: the pre-redirect return path and the session trace id.
type SigninOptions struct {
	ReturnURL string
	TraceID   string
}

// SignoutOptions carry state for the post-logout redirect.
type SignoutOptions struct {
	TraceID string
}

// Client is the external OIDC client capability consumed by the session
// controller. Implementations push state changes through Events.
type Client interface {
	// User returns the persisted credential, if any.
	User(ctx context.Context) (*store.Credential, error)
	// SigninRedirect initiates the redirect-based authorization request.
	SigninRedirect(ctx context.Context, options *SigninOptions) error
	// SigninSilent obtains a fresh credential without user interaction.
	SigninSilent(ctx context.Context) (*store.Credential, error)
	// SignoutRedirect initiates the provider's redirect-based sign-out.
	SignoutRedirect(ctx context.Context, options *SignoutOptions) error
	// RemoveUser clears the persisted credential locally.
	RemoveUser(ctx context.Context) error
	// Events exposes the provider event subscriptions.
	Events() *Events
}
