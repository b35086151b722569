// Package memdb implementa repository.Substrate en memoria sobre hashicorp/go-memdb.
// Es el sustrato por defecto en pruebas y en modo demostración; no persiste a disco.
package memdb

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-memdb"

	"github.com/jhoicas/erp-offline/internal/domain/repository"
)

const (
	tableRecords     = "records"
	tableCollections = "collections"
	tableMeta        = "meta"
)

type recordRow struct {
	Collection string
	Key        string
	Seq        uint64
	Data       []byte
}

type collectionRow struct {
	Name string
}

type metaRow struct {
	Key   string
	Value string
}

func dbSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableRecords: {
				Name: tableRecords,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:   "id",
						Unique: true,
						Indexer: &memdb.CompoundIndex{Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "Collection"},
							&memdb.StringFieldIndex{Field: "Key"},
						}},
					},
					"collection": {
						Name:    "collection",
						Indexer: &memdb.StringFieldIndex{Field: "Collection"},
					},
				},
			},
			tableCollections: {
				Name: tableCollections,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {Name: "id", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Name"}},
				},
			},
			tableMeta: {
				Name: tableMeta,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {Name: "id", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Key"}},
				},
			},
		},
	}
}

// Substrate sustrato transaccional en memoria.
type Substrate struct {
	db *memdb.MemDB
}

var _ repository.Substrate = (*Substrate)(nil)

// New crea un sustrato vacío.
func New() (*Substrate, error) {
	db, err := memdb.NewMemDB(dbSchema())
	if err != nil {
		return nil, fmt.Errorf("memdb: crear base: %w", err)
	}
	return &Substrate{db: db}, nil
}

func (s *Substrate) GetMeta(ctx context.Context, key string) (string, bool, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(tableMeta, "id", key)
	if err != nil {
		return "", false, fmt.Errorf("memdb: leer meta %q: %w", key, err)
	}
	if raw == nil {
		return "", false, nil
	}
	return raw.(*metaRow).Value, true, nil
}

func (s *Substrate) SetMeta(ctx context.Context, key, value string) error {
	return s.write(func(txn *memdb.Txn) error {
		return txn.Insert(tableMeta, &metaRow{Key: key, Value: value})
	})
}

func (s *Substrate) EnsureCollection(ctx context.Context, collection string) error {
	return s.write(func(txn *memdb.Txn) error {
		return txn.Insert(tableCollections, &collectionRow{Name: collection})
	})
}

func (s *Substrate) Put(ctx context.Context, collection string, rec repository.StoredRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := &recordRow{
		Collection: collection,
		Key:        rec.Key,
		Seq:        rec.Seq,
		Data:       append([]byte(nil), rec.Data...),
	}
	return s.write(func(txn *memdb.Txn) error {
		if err := s.requireCollection(txn, collection); err != nil {
			return err
		}
		return txn.Insert(tableRecords, row)
	})
}

func (s *Substrate) Delete(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(func(txn *memdb.Txn) error {
		_, err := txn.DeleteAll(tableRecords, "id", collection, key)
		return err
	})
}

func (s *Substrate) Scan(ctx context.Context, collection string) ([]repository.StoredRecord, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get(tableRecords, "collection", collection)
	if err != nil {
		return nil, fmt.Errorf("memdb: recorrer %s: %w", collection, err)
	}
	var out []repository.StoredRecord
	for obj := it.Next(); obj != nil; obj = it.Next() {
		row := obj.(*recordRow)
		out = append(out, repository.StoredRecord{
			Key:  row.Key,
			Seq:  row.Seq,
			Data: append([]byte(nil), row.Data...),
		})
	}
	return out, nil
}

func (s *Substrate) Truncate(ctx context.Context, collection string) error {
	return s.write(func(txn *memdb.Txn) error {
		_, err := txn.DeleteAll(tableRecords, "collection", collection)
		return err
	})
}

// Close no libera nada; los datos se descartan con el proceso.
func (s *Substrate) Close() error { return nil }

func (s *Substrate) requireCollection(txn *memdb.Txn, collection string) error {
	raw, err := txn.First(tableCollections, "id", collection)
	if err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("memdb: colección %q no creada", collection)
	}
	return nil
}

func (s *Substrate) write(fn func(txn *memdb.Txn) error) error {
	txn := s.db.Txn(true)
	if err := fn(txn); err != nil {
		txn.Abort()
		return fmt.Errorf("memdb: %w", err)
	}
	txn.Commit()
	return nil
}
