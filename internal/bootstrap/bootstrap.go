// Package bootstrap arma las piezas que comparten cmd/api y cmd/erpctl: el
// sustrato según STORAGE_DRIVER, el motor abierto, la caché local y el directorio.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/erp-offline/internal/application/directory"
	"github.com/jhoicas/erp-offline/internal/application/seed"
	"github.com/jhoicas/erp-offline/internal/domain/repository"
	"github.com/jhoicas/erp-offline/internal/domain/schema"
	"github.com/jhoicas/erp-offline/internal/infrastructure/bolt"
	"github.com/jhoicas/erp-offline/internal/infrastructure/localstore"
	"github.com/jhoicas/erp-offline/internal/infrastructure/memdb"
	"github.com/jhoicas/erp-offline/internal/infrastructure/postgres"
	"github.com/jhoicas/erp-offline/internal/infrastructure/sqlite"
	"github.com/jhoicas/erp-offline/internal/infrastructure/storage"
	"github.com/jhoicas/erp-offline/pkg/config"
	"github.com/jhoicas/erp-offline/pkg/logger"
)

// OpenSubstrate abre el sustrato clave/valor configurado.
func OpenSubstrate(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.Substrate, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return memdb.New()
	case config.DriverSQLite:
		return sqlite.Open(cfg.Storage.Path, log)
	case config.DriverBolt:
		return bolt.Open(cfg.Storage.Path)
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		sub, err := postgres.NewSubstrate(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return sub, nil
	default:
		return nil, fmt.Errorf("bootstrap: driver %q no soportado", cfg.Storage.Driver)
	}
}

// SchemaVersion versión a abrir: SCHEMA_VERSION o la del esquema compilado.
func SchemaVersion(cfg *config.Config) int {
	if cfg.Storage.SchemaVersion > 0 {
		return cfg.Storage.SchemaVersion
	}
	return schema.Version
}

// OpenEngine abre el sustrato y el motor con el esquema por defecto. Si
// STORAGE_SEED está activo siembra los datos iniciales; un fallo de sembrado se
// registra y no impide arrancar.
func OpenEngine(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage.Engine, error) {
	sub, err := OpenSubstrate(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("abrir sustrato %s: %w", cfg.Storage.Driver, err)
	}
	engine := storage.New(sub, schema.Default(), log)
	if err := engine.Open(ctx, SchemaVersion(cfg)); err != nil {
		_ = engine.Close()
		return nil, err
	}
	if cfg.Storage.Seed {
		report := Seed(ctx, engine, log)
		if err := report.Err(); err != nil {
			log.Warn().Err(err).Msg("sembrado parcial")
		}
	}
	return engine, nil
}

// Seed siembra los datasets por defecto.
func Seed(ctx context.Context, store seed.Store, log *logger.Logger) seed.Report {
	return seed.New(store, log, seed.DefaultDatasets(time.Now())...).Seed(ctx)
}

// OpenCache caché local de sesión: archivo JSON o memoria si CACHE_PATH está vacío.
func OpenCache(cfg *config.Config) (repository.KeyValueStore, error) {
	if cfg.Storage.CachePath == "" {
		return localstore.NewMemory(), nil
	}
	return localstore.OpenFile(cfg.Storage.CachePath)
}

// NewDirectory directorio local sobre el motor, con los tiempos de JWT configurados.
func NewDirectory(store storage.Store, cfg *config.Config, log *logger.Logger) (*directory.Directory, error) {
	return directory.New(store, directory.Config{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  time.Duration(cfg.JWT.AccessMinutes) * time.Minute,
		RefreshTTL: time.Duration(cfg.JWT.RefreshMinutes) * time.Minute,
	}, log)
}
