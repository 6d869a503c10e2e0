// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

// Package secrets resolves embedding-provider API keys without ever
// putting them in config files: explicit value, then environment
// variable, then the OS keyring.
package secrets

// Store provides secure secret storage operations. Implementations may
// use OS keyrings, encrypted files, or other backends.
type Store interface {
	// Store saves a secret value under the given service and key.
	Store(service, key, value string) error

	// Retrieve fetches the secret value for the given service and key.
	// Returns a not-found error when the key does not exist.
	Retrieve(service, key string) (string, error)

	// Delete removes the secret for the given service and key.
	Delete(service, key string) error
}
