// Package mock provides in-memory and stub implementations that facilitate
// unit testing of the client-side authentication flow.
//
// The mocks allow tests to simulate OpenID Connect interactions and the
// protected application backend without real network dependencies.
package mock
