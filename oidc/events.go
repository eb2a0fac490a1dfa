package oidc

import (
	"sync"

	"github.com/viant/authgate/store"
)

// Events is the push-based subscription surface mirroring the provider's
// event model. Handlers run synchronously in registration order; firing
// order across unrelated events is not defined.
type Events struct {
	mu                  sync.RWMutex
	userLoaded          []func(credential *store.Credential)
	userUnloaded        []func()
	silentRenewError    []func(err error)
	userSignedOut       []func()
	accessTokenExpiring []func(secondsLeft int)
}

// NewEvents creates an empty subscription set.
func NewEvents() *Events {
	return &Events{}
}

// AddUserLoaded subscribes to credential-loaded events.
func (e *Events) AddUserLoaded(handler func(credential *store.Credential)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.userLoaded = append(e.userLoaded, handler)
}

// AddUserUnloaded subscribes to credential-unloaded events.
func (e *Events) AddUserUnloaded(handler func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.userUnloaded = append(e.userUnloaded, handler)
}

// AddSilentRenewError subscribes to silent-renew failures.
func (e *Events) AddSilentRenewError(handler func(err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.silentRenewError = append(e.silentRenewError, handler)
}

// AddUserSignedOut subscribes to provider-initiated sign-out.
func (e *Events) AddUserSignedOut(handler func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.userSignedOut = append(e.userSignedOut, handler)
}

// AddAccessTokenExpiring subscribes to the expiry countdown event.
func (e *Events) AddAccessTokenExpiring(handler func(secondsLeft int)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.accessTokenExpiring = append(e.accessTokenExpiring, handler)
}

// EmitUserLoaded fires the credential-loaded event.
func (e *Events) EmitUserLoaded(credential *store.Credential) {
	for _, handler := range e.snapshotUserLoaded() {
		handler(credential)
	}
}

// EmitUserUnloaded fires the credential-unloaded event.
func (e *Events) EmitUserUnloaded() {
	e.mu.RLock()
	handlers := append([]func(){}, e.userUnloaded...)
	e.mu.RUnlock()
	for _, handler := range handlers {
		handler()
	}
}

// EmitSilentRenewError fires the silent-renew failure event.
func (e *Events) EmitSilentRenewError(err error) {
	e.mu.RLock()
	handlers := append([]func(error){}, e.silentRenewError...)
	e.mu.RUnlock()
	for _, handler := range handlers {
		handler(err)
	}
}

// EmitUserSignedOut fires the signed-out event.
func (e *Events) EmitUserSignedOut() {
	e.mu.RLock()
	handlers := append([]func(){}, e.userSignedOut...)
	e.mu.RUnlock()
	for _, handler := range handlers {
		handler()
	}
}

// EmitAccessTokenExpiring fires the expiry countdown event.
func (e *Events) EmitAccessTokenExpiring(secondsLeft int) {
	e.mu.RLock()
	handlers := append([]func(int){}, e.accessTokenExpiring...)
	e.mu.RUnlock()
	for _, handler := range handlers {
		handler(secondsLeft)
	}
}

func (e *Events) snapshotUserLoaded() []func(*store.Credential) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]func(*store.Credential){}, e.userLoaded...)
}
