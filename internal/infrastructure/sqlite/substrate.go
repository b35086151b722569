// Package sqlite implementa repository.Substrate sobre un archivo SQLite
// (modernc.org/sqlite, sin cgo). Todas las colecciones comparten la tabla records.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/jhoicas/erp-offline/internal/domain/repository"
	"github.com/jhoicas/erp-offline/pkg/logger"
)

// MemoryPath abre una base en memoria (una sola conexión).
const MemoryPath = ":memory:"

// Substrate sustrato SQLite.
type Substrate struct {
	db  *sql.DB
	log *logger.Logger
}

var _ repository.Substrate = (*Substrate)(nil)

// Open abre (o crea) la base en path. Los directorios padre se crean si hace falta.
func Open(path string, log *logger.Logger) (*Substrate, error) {
	if log == nil {
		log = logger.Nop()
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: crear directorio: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: abrir: %w", err)
	}
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	s := &Substrate{db: db, log: log.Component("sqlite")}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: crear esquema: %w", err)
	}
	s.log.Debug().Str("path", path).Msg("sustrato SQLite inicializado")
	return s, nil
}

func (s *Substrate) createSchema() error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY
		);
		CREATE TABLE IF NOT EXISTS records (
			collection TEXT    NOT NULL,
			key        TEXT    NOT NULL,
			seq        INTEGER NOT NULL,
			data       BLOB    NOT NULL,
			PRIMARY KEY (collection, key)
		);
		CREATE INDEX IF NOT EXISTS idx_records_collection_seq ON records(collection, seq);
	`
	_, err := s.db.Exec(ddl)
	return err
}

func (s *Substrate) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite: leer meta %q: %w", key, err)
	}
	return v, true, nil
}

func (s *Substrate) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("sqlite: guardar meta %q: %w", key, err)
	}
	return nil
}

func (s *Substrate) EnsureCollection(ctx context.Context, collection string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO collections (name) VALUES (?)`, collection)
	if err != nil {
		return fmt.Errorf("sqlite: crear colección %q: %w", collection, err)
	}
	return nil
}

func (s *Substrate) Put(ctx context.Context, collection string, rec repository.StoredRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (collection, key, seq, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(collection, key) DO UPDATE SET seq = excluded.seq, data = excluded.data`,
		collection, rec.Key, int64(rec.Seq), rec.Data)
	if err != nil {
		return fmt.Errorf("sqlite: guardar %s[%s]: %w", collection, rec.Key, err)
	}
	return nil
}

func (s *Substrate) Delete(ctx context.Context, collection, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND key = ?`, collection, key)
	if err != nil {
		return fmt.Errorf("sqlite: eliminar %s[%s]: %w", collection, key, err)
	}
	return nil
}

func (s *Substrate) Scan(ctx context.Context, collection string) ([]repository.StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, seq, data FROM records WHERE collection = ? ORDER BY seq`, collection)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recorrer %s: %w", collection, err)
	}
	defer rows.Close()

	var out []repository.StoredRecord
	for rows.Next() {
		var (
			rec repository.StoredRecord
			seq int64
		)
		if err := rows.Scan(&rec.Key, &seq, &rec.Data); err != nil {
			return nil, fmt.Errorf("sqlite: leer fila de %s: %w", collection, err)
		}
		rec.Seq = uint64(seq)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Substrate) Truncate(ctx context.Context, collection string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, collection)
	if err != nil {
		return fmt.Errorf("sqlite: vaciar %s: %w", collection, err)
	}
	return nil
}

func (s *Substrate) Close() error {
	return s.db.Close()
}
