package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/timeline/internal/domain/port/driven"
)

func newEncryptedRepo(t *testing.T, db *DB) *CredentialRepo {
	t.Helper()
	repo, err := NewCredentialRepo(db, testKey())
	require.NoError(t, err)
	return repo
}

func TestCredentialRepo_SetAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := newEncryptedRepo(t, db)
	ctx := context.Background()

	err := repo.Set(ctx, "ctx-1", "tok123")
	require.NoError(t, err)

	val, err := repo.Get(ctx, "ctx-1")
	require.NoError(t, err)
	assert.Equal(t, "tok123", val)
}

func TestCredentialRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := newEncryptedRepo(t, db)

	val, err := repo.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, "", val)
}

func TestCredentialRepo_SetOverwrites(t *testing.T) {
	db := setupTestDB(t)
	repo := newEncryptedRepo(t, db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "ctx-1", "old-value"))
	require.NoError(t, repo.Set(ctx, "ctx-1", "new-value"))

	val, err := repo.Get(ctx, "ctx-1")
	require.NoError(t, err)
	assert.Equal(t, "new-value", val)
}

func TestCredentialRepo_ScopesAreIsolated(t *testing.T) {
	db := setupTestDB(t)
	repo := newEncryptedRepo(t, db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "ctx-1", "first"))
	require.NoError(t, repo.Set(ctx, "ctx-2", "second"))
	require.NoError(t, repo.Delete(ctx, "ctx-1"))

	val, err := repo.Get(ctx, "ctx-2")
	require.NoError(t, err)
	assert.Equal(t, "second", val)
}

func TestCredentialRepo_DeleteIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := newEncryptedRepo(t, db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "ctx-1", "tok123"))
	require.NoError(t, repo.Delete(ctx, "ctx-1"))
	require.NoError(t, repo.Delete(ctx, "ctx-1"))

	val, err := repo.Get(ctx, "ctx-1")
	require.NoError(t, err)
	assert.Equal(t, "", val)
}

func TestCredentialRepo_EncryptsAtRest(t *testing.T) {
	db := setupTestDB(t)
	repo := newEncryptedRepo(t, db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "ctx-1", "tok123"))

	var raw string
	err := db.Reader.QueryRowContext(ctx, `SELECT value FROM credentials WHERE scope = ?`, "ctx-1").Scan(&raw)
	require.NoError(t, err)
	assert.NotEqual(t, "tok123", raw)
	assert.NotContains(t, raw, "tok123")
}

func TestCredentialRepo_PlaintextWithoutKey(t *testing.T) {
	db := setupTestDB(t)
	repo, err := NewCredentialRepo(db, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "ctx-1", "tok123"))

	val, err := repo.Get(ctx, "ctx-1")
	require.NoError(t, err)
	assert.Equal(t, "tok123", val)
}

func TestCredentialRepo_EncryptedRowWithoutKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, newEncryptedRepo(t, db).Set(ctx, "ctx-1", "tok123"))

	keyless, err := NewCredentialRepo(db, nil)
	require.NoError(t, err)

	_, err = keyless.Get(ctx, "ctx-1")
	require.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}

func TestCredentialRepo_RejectsShortKey(t *testing.T) {
	db := setupTestDB(t)

	_, err := NewCredentialRepo(db, []byte("too-short"))
	require.ErrorIs(t, err, driven.ErrEncryptionKeyInvalid)
}

func TestCredentialRepo_SetStampsUpdatedAt(t *testing.T) {
	db := setupTestDB(t)
	repo := newEncryptedRepo(t, db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "ctx-1", "tok123"))

	var updatedAt string
	err := db.Reader.QueryRowContext(ctx, `SELECT updated_at FROM credentials WHERE scope = ?`, "ctx-1").Scan(&updatedAt)
	require.NoError(t, err)
	assert.NotEmpty(t, updatedAt)

	got, err := repo.Get(ctx, "ctx-1")
	require.NoError(t, err)
	assert.Equal(t, "tok123", got)
}
