// Package substratetest contiene la batería de pruebas común a todas las
// implementaciones de repository.Substrate.
package substratetest

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-offline/internal/domain"
	"github.com/jhoicas/erp-offline/internal/domain/repository"
	"github.com/jhoicas/erp-offline/internal/domain/schema"
	"github.com/jhoicas/erp-offline/internal/infrastructure/storage"
)

// Factory abre (o reabre) el sustrato bajo prueba. Para sustratos en disco, llamadas
// sucesivas dentro de la misma prueba deben apuntar al mismo archivo.
type Factory func(t *testing.T) repository.Substrate

// Run ejecuta el contrato básico del sustrato.
func Run(t *testing.T, open Factory) {
	t.Run("Meta", func(t *testing.T) {
		ctx := context.Background()
		sub := open(t)
		defer sub.Close()

		_, ok, err := sub.GetMeta(ctx, "schema_version")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, sub.SetMeta(ctx, "schema_version", "2"))
		require.NoError(t, sub.SetMeta(ctx, "schema_version", "3"))
		v, ok, err := sub.GetMeta(ctx, "schema_version")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "3", v)
	})

	t.Run("PutScanDelete", func(t *testing.T) {
		ctx := context.Background()
		sub := open(t)
		defer sub.Close()

		require.NoError(t, sub.EnsureCollection(ctx, "accounts"))
		require.NoError(t, sub.EnsureCollection(ctx, "accounts"), "EnsureCollection es idempotente")
		require.NoError(t, sub.EnsureCollection(ctx, "products"))

		require.NoError(t, sub.Put(ctx, "accounts", repository.StoredRecord{Key: "s:1", Seq: 1, Data: []byte(`{"code":"1"}`)}))
		require.NoError(t, sub.Put(ctx, "accounts", repository.StoredRecord{Key: "s:2", Seq: 2, Data: []byte(`{"code":"2"}`)}))
		require.NoError(t, sub.Put(ctx, "accounts", repository.StoredRecord{Key: "s:1", Seq: 1, Data: []byte(`{"code":"1","name":"Activo"}`)}))
		require.NoError(t, sub.Put(ctx, "products", repository.StoredRecord{Key: "n:1", Seq: 3, Data: []byte(`{"id":1}`)}))

		recs, err := sub.Scan(ctx, "accounts")
		require.NoError(t, err)
		sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })
		require.Len(t, recs, 2)
		assert.Equal(t, "s:1", recs[0].Key)
		assert.JSONEq(t, `{"code":"1","name":"Activo"}`, string(recs[0].Data))
		assert.Equal(t, uint64(2), recs[1].Seq)

		require.NoError(t, sub.Delete(ctx, "accounts", "s:1"))
		require.NoError(t, sub.Delete(ctx, "accounts", "s:missing"))
		recs, err = sub.Scan(ctx, "accounts")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "s:2", recs[0].Key)

		require.NoError(t, sub.Truncate(ctx, "accounts"))
		recs, err = sub.Scan(ctx, "accounts")
		require.NoError(t, err)
		assert.Empty(t, recs)

		recs, err = sub.Scan(ctx, "products")
		require.NoError(t, err)
		assert.Len(t, recs, 1, "truncar una colección no afecta a las demás")
	})

	t.Run("Engine", func(t *testing.T) {
		ctx := context.Background()
		sub := open(t)
		e := storage.New(sub, schema.Default(), nil)
		require.NoError(t, e.Open(ctx, schema.Version))
		defer e.Close()

		_, err := e.Add(ctx, schema.Warehouses, storage.Record{"code": "BOD-01", "name": "Bodega principal"})
		require.NoError(t, err)
		_, err = e.Add(ctx, schema.Warehouses, storage.Record{"code": "BOD-01", "name": "Repetida"})
		assert.ErrorIs(t, err, domain.ErrUniqueIndexViolation)

		n, err := e.Count(ctx, schema.Warehouses)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

// RunPersistent verifica que los datos y la versión sobreviven a cerrar y reabrir.
func RunPersistent(t *testing.T, open Factory) {
	ctx := context.Background()
	reg := schema.Default()

	first := storage.New(open(t), reg, nil)
	require.NoError(t, first.Open(ctx, schema.Version))
	for _, code := range []string{"1", "11", "1105"} {
		_, err := first.Add(ctx, schema.Accounts, storage.Record{"code": code})
		require.NoError(t, err)
	}
	require.NoError(t, first.Delete(ctx, schema.Accounts, "11"))
	require.NoError(t, first.Close())

	second := storage.New(open(t), reg, nil)
	require.NoError(t, second.Open(ctx, schema.Version))
	assert.Equal(t, schema.Version, second.Version())

	all, err := second.GetAll(ctx, schema.Accounts)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "1", all[0]["code"])
	assert.Equal(t, "1105", all[1]["code"])
	require.NoError(t, second.Close())

	downgrade := storage.New(open(t), reg, nil)
	err = downgrade.Open(ctx, schema.Version-1)
	assert.ErrorIs(t, err, domain.ErrSchemaDowngrade)
	_ = downgrade.Close()
}
