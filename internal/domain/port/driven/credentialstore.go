// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"
)

var (
	// ErrEncryptionKeyNotSet is returned when a stored credential is encrypted
	// but the adapter was constructed without TIMELINE_SECRET_KEY.
	ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set TIMELINE_SECRET_KEY")

	// ErrEncryptionKeyInvalid is returned when a configured key cannot be used
	// as an AES-256 key.
	ErrEncryptionKeyInvalid = errors.New("encryption key must be 32 bytes")
)

// CredentialStore defines the driven port for durable credential persistence.
// Each browser context (scope) holds at most one credential under the
// model.CredentialKey key. The adapter layer is responsible for any encryption
// at rest; this interface operates on plaintext values at the domain boundary.
type CredentialStore interface {
	// Get retrieves the credential for the given scope.
	// Returns ("", nil) if no credential exists for that scope.
	Get(ctx context.Context, scope string) (string, error)

	// Set stores or replaces the credential for the given scope.
	Set(ctx context.Context, scope, value string) error

	// Delete removes the credential for the given scope. Deleting an absent
	// credential is not an error.
	Delete(ctx context.Context, scope string) error
}
