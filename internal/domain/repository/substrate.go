package repository

import "context"

// StoredRecord registro tal como lo guarda el sustrato: clave primaria codificada,
// secuencia de inserción y el documento JSON.
type StoredRecord struct {
	Key  string
	Seq  uint64
	Data []byte
}

// Substrate define el puerto de persistencia local mínimo sobre el que trabaja el motor
// de almacenamiento (DIP). Cada Put/Delete debe ser atómico para una sola clave.
// Los índices secundarios los mantiene el motor, no el sustrato.
type Substrate interface {
	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error
	EnsureCollection(ctx context.Context, collection string) error
	Put(ctx context.Context, collection string, rec StoredRecord) error
	Delete(ctx context.Context, collection, key string) error
	// Scan devuelve todos los registros de la colección en cualquier orden.
	Scan(ctx context.Context, collection string) ([]StoredRecord, error)
	// Truncate elimina todos los registros de la colección sin eliminar la colección.
	Truncate(ctx context.Context, collection string) error
	Close() error
}
