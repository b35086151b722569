package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/erp-offline/internal/domain/repository"
)

// Substrate implementa repository.Substrate sobre PostgreSQL. Los documentos se guardan
// como JSONB en erp_records; la versión del esquema vive en erp_meta.
type Substrate struct {
	pool *pgxpool.Pool
}

var _ repository.Substrate = (*Substrate)(nil)

// NewSubstrate crea las tablas si no existen. El sustrato toma posesión del pool y lo
// cierra en Close.
func NewSubstrate(ctx context.Context, pool *pgxpool.Pool) (*Substrate, error) {
	const ddl = `
		CREATE TABLE IF NOT EXISTS erp_meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS erp_collections (
			name TEXT PRIMARY KEY
		);
		CREATE TABLE IF NOT EXISTS erp_records (
			collection TEXT        NOT NULL,
			key        TEXT        NOT NULL,
			seq        BIGINT      NOT NULL,
			data       JSONB       NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, key)
		);
		CREATE INDEX IF NOT EXISTS idx_erp_records_collection_seq ON erp_records (collection, seq);
	`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("postgres: crear esquema: %w", err)
	}
	return &Substrate{pool: pool}, nil
}

func (s *Substrate) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.pool.QueryRow(ctx, `SELECT value FROM erp_meta WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres: leer meta %q: %w", key, err)
	}
	return v, true, nil
}

func (s *Substrate) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO erp_meta (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("postgres: guardar meta %q: %w", key, err)
	}
	return nil
}

func (s *Substrate) EnsureCollection(ctx context.Context, collection string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO erp_collections (name) VALUES ($1) ON CONFLICT DO NOTHING`, collection)
	if err != nil {
		return fmt.Errorf("postgres: crear colección %q: %w", collection, err)
	}
	return nil
}

func (s *Substrate) Put(ctx context.Context, collection string, rec repository.StoredRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO erp_records (collection, key, seq, data) VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (collection, key) DO UPDATE
		SET seq = EXCLUDED.seq, data = EXCLUDED.data, updated_at = NOW()`,
		collection, rec.Key, int64(rec.Seq), string(rec.Data))
	if err != nil {
		return fmt.Errorf("postgres: guardar %s[%s]: %w", collection, rec.Key, err)
	}
	return nil
}

func (s *Substrate) Delete(ctx context.Context, collection, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM erp_records WHERE collection = $1 AND key = $2`, collection, key)
	if err != nil {
		return fmt.Errorf("postgres: eliminar %s[%s]: %w", collection, key, err)
	}
	return nil
}

func (s *Substrate) Scan(ctx context.Context, collection string) ([]repository.StoredRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, seq, data::text FROM erp_records WHERE collection = $1 ORDER BY seq`, collection)
	if err != nil {
		return nil, fmt.Errorf("postgres: recorrer %s: %w", collection, err)
	}
	defer rows.Close()

	var out []repository.StoredRecord
	for rows.Next() {
		var (
			key  string
			seq  int64
			data string
		)
		if err := rows.Scan(&key, &seq, &data); err != nil {
			return nil, fmt.Errorf("postgres: leer fila de %s: %w", collection, err)
		}
		out = append(out, repository.StoredRecord{Key: key, Seq: uint64(seq), Data: []byte(data)})
	}
	return out, rows.Err()
}

func (s *Substrate) Truncate(ctx context.Context, collection string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM erp_records WHERE collection = $1`, collection); err != nil {
		return fmt.Errorf("postgres: vaciar %s: %w", collection, err)
	}
	return nil
}

func (s *Substrate) Close() error {
	s.pool.Close()
	return nil
}
