package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/ericfisherdev/timeline/internal/domain/model"
	"github.com/ericfisherdev/timeline/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port interface.
// When a key is configured, values are encrypted with AES-256-GCM before write
// and decrypted after read.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil stores values unencrypted.
}

// NewCredentialRepo creates a new CredentialRepo. key must be 32 bytes for
// AES-256-GCM, or nil to store credentials unencrypted.
func NewCredentialRepo(db *DB, key []byte) (*CredentialRepo, error) {
	if key != nil && len(key) != 32 {
		return nil, driven.ErrEncryptionKeyInvalid
	}
	return &CredentialRepo{db: db, key: key}, nil
}

// Set stores or replaces the credential for the given scope.
func (r *CredentialRepo) Set(ctx context.Context, scope, value string) error {
	stored, encrypted := value, false
	if r.key != nil {
		var err error
		stored, err = r.encrypt(value)
		if err != nil {
			return err
		}
		encrypted = true
	}

	const query = `INSERT OR REPLACE INTO credentials (scope, key, value, encrypted, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`
	_, err := r.db.Writer.ExecContext(ctx, query, scope, model.CredentialKey, stored, encrypted)
	if err != nil {
		return fmt.Errorf("set credential for %q: %w", scope, err)
	}
	return nil
}

// Get retrieves the plaintext credential for the given scope.
// Returns ("", nil) if no credential exists for that scope.
func (r *CredentialRepo) Get(ctx context.Context, scope string) (string, error) {
	const query = `SELECT value, encrypted FROM credentials WHERE scope = ? AND key = ?`

	var (
		stored    string
		encrypted bool
	)
	err := r.db.Reader.QueryRowContext(ctx, query, scope, model.CredentialKey).Scan(&stored, &encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get credential for %q: %w", scope, err)
	}

	if !encrypted {
		return stored, nil
	}
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}
	value, err := r.decrypt(stored)
	if err != nil {
		return "", fmt.Errorf("decrypt credential for %q: %w", scope, err)
	}
	return value, nil
}

// Delete removes the credential for the given scope. Deleting a missing row is a no-op.
func (r *CredentialRepo) Delete(ctx context.Context, scope string) error {
	const query = `DELETE FROM credentials WHERE scope = ? AND key = ?`
	_, err := r.db.Writer.ExecContext(ctx, query, scope, model.CredentialKey)
	if err != nil {
		return fmt.Errorf("delete credential for %q: %w", scope, err)
	}
	return nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded string
// containing the nonce (12 bytes) prepended to the ciphertext.
func (r *CredentialRepo) encrypt(plaintext string) (string, error) {
	gcm, err := r.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *CredentialRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := r.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}

func (r *CredentialRepo) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
