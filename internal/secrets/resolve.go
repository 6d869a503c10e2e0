// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package secrets

import (
	"os"

	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// KeyringService is the OS-keyring service name under which Loresmith
// stores provider API keys.
const KeyringService = "loresmith"

// providerEnvVars maps an embedding provider to the environment
// variables checked, in order.
var providerEnvVars = map[string][]string{
	"openai":   {"OPENAI_API_KEY"},
	"googleai": {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// Resolver resolves provider API keys. The zero environment lookup is
// replaced in tests.
type Resolver struct {
	store  Store
	getenv func(string) string
}

// NewResolver creates a resolver over the given secret store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, getenv: os.Getenv}
}

// APIKey resolves the API key for an embedding provider: the configured
// value wins, then the provider's environment variables, then the OS
// keyring entry loresmith/<provider>_api_key. Providers with no known
// key source (like static) resolve to empty without error.
func (r *Resolver) APIKey(provider, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	envVars, known := providerEnvVars[provider]
	if !known {
		return "", nil
	}

	for _, name := range envVars {
		if val := r.getenv(name); val != "" {
			return val, nil
		}
	}

	val, err := r.store.Retrieve(KeyringService, provider+"_api_key")
	if err != nil {
		if lserr.IsNotFound(err) {
			return "", lserr.Errorf(lserr.CodeSecretResolveFailure,
				"no api key for provider %q: set %s or store it in the keyring", provider, envVars[0])
		}
		return "", err
	}
	return val, nil
}
