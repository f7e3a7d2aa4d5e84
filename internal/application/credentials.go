// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ericfisherdev/timeline/internal/domain/port/driven"
)

// ErrEmptyCredential is returned by Credentials.Set for an empty token.
var ErrEmptyCredential = errors.New("credential must not be empty")

// Credentials is the credential holder for a single browser context. It binds a
// CredentialStore backing to one scope and exposes the get/set/clear surface
// the session guard and the login flow work against.
type Credentials struct {
	store  driven.CredentialStore
	scope  string
	logger *slog.Logger
}

// NewCredentials binds store to the browser context identified by scope.
func NewCredentials(store driven.CredentialStore, scope string, logger *slog.Logger) *Credentials {
	return &Credentials{
		store:  store,
		scope:  scope,
		logger: logger,
	}
}

// Scope returns the browser context this holder is bound to.
func (c *Credentials) Scope() string {
	return c.scope
}

// Get returns the stored credential and whether one is present. It never
// fails: a backing error is logged and reported as absent.
func (c *Credentials) Get(ctx context.Context) (string, bool) {
	value, err := c.store.Get(ctx, c.scope)
	if err != nil {
		c.logger.Error("failed to read credential, treating as absent",
			"scope", c.scope,
			"error", err,
		)
		return "", false
	}
	return value, value != ""
}

// Set overwrites any stored credential with credential.
func (c *Credentials) Set(ctx context.Context, credential string) error {
	if credential == "" {
		return ErrEmptyCredential
	}
	return c.store.Set(ctx, c.scope, credential)
}

// Clear removes the stored credential. Clearing an absent credential is a no-op.
func (c *Credentials) Clear(ctx context.Context) error {
	return c.store.Delete(ctx, c.scope)
}
