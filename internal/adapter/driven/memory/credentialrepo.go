// Package memory implements the credential persistence port in process memory.
// Contents do not survive a restart; it backs tests and TIMELINE_STORE=memory.
package memory

import (
	"context"
	"sync"

	"github.com/ericfisherdev/timeline/internal/domain/model"
	"github.com/ericfisherdev/timeline/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is a mutex-guarded map of scope to credential.
type CredentialRepo struct {
	mu      sync.RWMutex
	entries map[string]model.Credential
}

// NewCredentialRepo creates an empty CredentialRepo.
func NewCredentialRepo() *CredentialRepo {
	return &CredentialRepo{entries: make(map[string]model.Credential)}
}

// Get returns the credential for scope, or "" when absent.
func (r *CredentialRepo) Get(_ context.Context, scope string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[scope].Value, nil
}

// Set overwrites the credential for scope.
func (r *CredentialRepo) Set(_ context.Context, scope, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[scope] = model.Credential{Scope: scope, Value: value}
	return nil
}

// Delete removes the credential for scope.
func (r *CredentialRepo) Delete(_ context.Context, scope string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, scope)
	return nil
}

// Len returns the number of stored credentials.
func (r *CredentialRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
