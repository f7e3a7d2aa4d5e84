// Package redis implements the credential persistence port on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/timeline/internal/domain/model"
	"github.com/ericfisherdev/timeline/internal/domain/port/driven"
)

const keyPrefix = "timeline:credential"

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo stores one credential per browser context as a plain Redis
// string. Entries never expire; the remote service decides validity.
type CredentialRepo struct {
	client goredis.UniversalClient
}

// NewCredentialRepo creates a CredentialRepo on top of an existing client.
func NewCredentialRepo(client goredis.UniversalClient) *CredentialRepo {
	return &CredentialRepo{client: client}
}

// Get returns the credential for scope, or "" when absent.
func (r *CredentialRepo) Get(ctx context.Context, scope string) (string, error) {
	val, err := r.client.Get(ctx, keyFor(scope)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get credential for %q: %w", scope, err)
	}
	return val, nil
}

// Set overwrites the credential for scope.
func (r *CredentialRepo) Set(ctx context.Context, scope, value string) error {
	if err := r.client.Set(ctx, keyFor(scope), value, 0).Err(); err != nil {
		return fmt.Errorf("set credential for %q: %w", scope, err)
	}
	return nil
}

// Delete removes the credential for scope. DEL on a missing key is a no-op.
func (r *CredentialRepo) Delete(ctx context.Context, scope string) error {
	if err := r.client.Del(ctx, keyFor(scope)).Err(); err != nil {
		return fmt.Errorf("delete credential for %q: %w", scope, err)
	}
	return nil
}

func keyFor(scope string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, scope, model.CredentialKey)
}
