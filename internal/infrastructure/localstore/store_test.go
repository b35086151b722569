package localstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-offline/internal/domain/repository"
	"github.com/jhoicas/erp-offline/internal/infrastructure/localstore"
)

func exercise(t *testing.T, s repository.KeyValueStore) {
	t.Helper()
	_, ok, err := s.Get(repository.CacheSelectedCompany)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(repository.CacheSelectedCompany, `{"identifier":"alfalah"}`))
	v, ok, err := s.Get(repository.CacheSelectedCompany)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"identifier":"alfalah"}`, v)

	require.NoError(t, s.Remove(repository.CacheSelectedCompany))
	require.NoError(t, s.Remove("no_existe"))
	_, ok, err = s.Get(repository.CacheSelectedCompany)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	exercise(t, localstore.NewMemory())
}

func TestFile_SobreviveReapertura(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "local_storage.json")
	s, err := localstore.OpenFile(path)
	require.NoError(t, err)
	exercise(t, s)

	require.NoError(t, s.Set(repository.CacheCompanySubscription, `{"status":"active"}`))

	again, err := localstore.OpenFile(path)
	require.NoError(t, err)
	v, ok, err := again.Get(repository.CacheCompanySubscription)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"status":"active"}`, v)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no deben quedar temporales")
}

func TestFile_Corrupto(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local_storage.json")
	require.NoError(t, os.WriteFile(path, []byte("{no es json"), 0o600))
	_, err := localstore.OpenFile(path)
	assert.Error(t, err)
}
