// Package bolt implementa repository.Substrate sobre BoltDB: un bucket por colección
// y el bucket __meta para la versión del esquema.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"

	"github.com/jhoicas/erp-offline/internal/domain/repository"
)

var metaBucket = []byte("__meta")

// value forma serializada de cada registro dentro del bucket.
type value struct {
	Seq  uint64          `json:"seq"`
	Data json.RawMessage `json:"data"`
}

// Substrate sustrato BoltDB.
type Substrate struct {
	db *bolt.DB
}

var _ repository.Substrate = (*Substrate)(nil)

// Open abre (o crea) el archivo. Falla tras un segundo si otro proceso lo tiene bloqueado.
func Open(path string) (*Substrate, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("bolt: crear directorio: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: abrir %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt: crear bucket meta: %w", err)
	}
	return &Substrate{db: db}, nil
}

// BoltDB no admite cancelación a mitad de transacción; se verifica el contexto antes.
func checkCtx(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("bolt: contexto cancelado antes de %s: %w", op, err)
	}
	return nil
}

func (s *Substrate) GetMeta(ctx context.Context, key string) (string, bool, error) {
	if err := checkCtx(ctx, "GetMeta"); err != nil {
		return "", false, err
	}
	var (
		v  string
		ok bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(metaBucket).Get([]byte(key))
		if raw != nil {
			v, ok = string(raw), true
		}
		return nil
	})
	return v, ok, err
}

func (s *Substrate) SetMeta(ctx context.Context, key, val string) error {
	if err := checkCtx(ctx, "SetMeta"); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put([]byte(key), []byte(val))
	})
}

func (s *Substrate) EnsureCollection(ctx context.Context, collection string) error {
	if err := checkCtx(ctx, "EnsureCollection"); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(collection)); err != nil {
			return fmt.Errorf("bolt: crear bucket %q: %w", collection, err)
		}
		return nil
	})
}

func (s *Substrate) Put(ctx context.Context, collection string, rec repository.StoredRecord) error {
	if err := checkCtx(ctx, "Put"); err != nil {
		return err
	}
	data, err := json.Marshal(value{Seq: rec.Seq, Data: rec.Data})
	if err != nil {
		return fmt.Errorf("bolt: serializar %s[%s]: %w", collection, rec.Key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return fmt.Errorf("bolt: bucket %q no existe", collection)
		}
		return b.Put([]byte(rec.Key), data)
	})
}

func (s *Substrate) Delete(ctx context.Context, collection, key string) error {
	if err := checkCtx(ctx, "Delete"); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (s *Substrate) Scan(ctx context.Context, collection string) ([]repository.StoredRecord, error) {
	if err := checkCtx(ctx, "Scan"); err != nil {
		return nil, err
	}
	var out []repository.StoredRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, raw []byte) error {
			var v value
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("bolt: decodificar %s[%s]: %w", collection, k, err)
			}
			out = append(out, repository.StoredRecord{
				Key:  string(k),
				Seq:  v.Seq,
				Data: append([]byte(nil), v.Data...),
			})
			return nil
		})
	})
	return out, err
}

func (s *Substrate) Truncate(ctx context.Context, collection string) error {
	if err := checkCtx(ctx, "Truncate"); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		name := []byte(collection)
		if tx.Bucket(name) != nil {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(name)
		return err
	})
}

func (s *Substrate) Close() error {
	return s.db.Close()
}
