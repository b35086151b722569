package bolt_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-offline/internal/domain/repository"
	"github.com/jhoicas/erp-offline/internal/infrastructure/bolt"
	"github.com/jhoicas/erp-offline/internal/infrastructure/substratetest"
)

func openAt(path string) substratetest.Factory {
	return func(t *testing.T) repository.Substrate {
		t.Helper()
		sub, err := bolt.Open(path)
		require.NoError(t, err)
		return sub
	}
}

func TestSubstrate_Contrato(t *testing.T) {
	substratetest.Run(t, func(t *testing.T) repository.Substrate {
		return openAt(filepath.Join(t.TempDir(), "erp.bolt"))(t)
	})
}

func TestSubstrate_PersisteEntreAperturas(t *testing.T) {
	substratetest.RunPersistent(t, openAt(filepath.Join(t.TempDir(), "erp.bolt")))
}

func TestContextoCancelado(t *testing.T) {
	sub := openAt(filepath.Join(t.TempDir(), "erp.bolt"))(t)
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sub.EnsureCollection(ctx, "accounts")
	assert.ErrorIs(t, err, context.Canceled)
}
