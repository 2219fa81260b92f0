package client

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyCacheDeniesEverything(t *testing.T) {
	cache := NewPermissionCache(nil)
	assert.False(t, cache.HasPermission("user", "read"))
	assert.Nil(t, cache.Matrix())

	var nilCache *PermissionCache
	assert.False(t, nilCache.HasPermission("user", "read"))
}

func TestCacheAnswersFromMatrix(t *testing.T) {
	cache := NewPermissionCache(nil)
	require.NoError(t, cache.Set(sampleSession()))

	assert.True(t, cache.HasPermission("user", "read"))
	assert.False(t, cache.HasPermission("user", "create"))
	assert.False(t, cache.HasPermission("role", "read"))
	assert.False(t, cache.HasPermission("invoice", "read"))
	assert.False(t, cache.HasPermission("user", "export"))
}

func TestCacheCopiesSession(t *testing.T) {
	cache := NewPermissionCache(nil)
	session := sampleSession()
	require.NoError(t, cache.Set(session))

	session.Permissions["role"]["read"] = true
	assert.False(t, cache.HasPermission("role", "read"))

	m := cache.Matrix()
	m["role"]["read"] = true
	assert.False(t, cache.HasPermission("role", "read"))
}

func TestCacheLoadAndClearUseStore(t *testing.T) {
	store := newTempStore(t)
	require.NoError(t, store.Save(sampleSession()))

	cache := NewPermissionCache(store)
	require.NoError(t, cache.Load())
	assert.True(t, cache.HasPermission("user", "read"))

	require.NoError(t, cache.Clear())
	assert.False(t, cache.HasPermission("user", "read"))
	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestCacheLoadCorruptFileLeavesCacheEmpty(t *testing.T) {
	store := newTempStore(t)
	require.NoError(t, seedStore(store))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{garbage"), 0o600))

	cache := NewPermissionCache(store)
	assert.ErrorIs(t, cache.Load(), ErrNoSession)
	assert.False(t, cache.HasPermission("user", "read"))
}

func TestCacheRejectsInvalidSession(t *testing.T) {
	cache := NewPermissionCache(nil)
	bad := sampleSession()
	bad.AccessToken = ""
	assert.Error(t, cache.Set(bad))
	assert.False(t, cache.HasPermission("user", "read"))
}

func seedStore(store *FileStore) error {
	return store.Save(sampleSession())
}
