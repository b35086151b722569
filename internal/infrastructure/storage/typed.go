package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jhoicas/erp-offline/internal/domain"
)

// Collection vista tipada de una colección: convierte entre T y Record vía JSON, por lo
// que las etiquetas json de T deben coincidir con los campos del esquema.
type Collection[T any] struct {
	store Store
	name  string
}

// For devuelve la vista tipada de la colección name.
func For[T any](s Store, name string) *Collection[T] {
	return &Collection[T]{store: s, name: name}
}

// Name nombre de la colección.
func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) Add(ctx context.Context, v *T) (*T, error) {
	rec, err := toRecord(v)
	if err != nil {
		return nil, &Error{Op: "add", Collection: c.name, Err: err}
	}
	out, err := c.store.Add(ctx, c.name, rec)
	if err != nil {
		return nil, err
	}
	return fromRecord[T](out)
}

func (c *Collection[T]) Put(ctx context.Context, v *T) (*T, error) {
	rec, err := toRecord(v)
	if err != nil {
		return nil, &Error{Op: "put", Collection: c.name, Err: err}
	}
	out, err := c.store.Put(ctx, c.name, rec)
	if err != nil {
		return nil, err
	}
	return fromRecord[T](out)
}

func (c *Collection[T]) Get(ctx context.Context, key any) (*T, error) {
	rec, err := c.store.Get(ctx, c.name, key)
	if err != nil {
		return nil, err
	}
	return fromRecord[T](rec)
}

func (c *Collection[T]) GetAll(ctx context.Context) ([]T, error) {
	recs, err := c.store.GetAll(ctx, c.name)
	if err != nil {
		return nil, err
	}
	return fromRecords[T](recs)
}

// Update aplica un parche parcial; patch puede ser un Record o cualquier valor que
// serialice a objeto JSON (struct con omitempty, map).
func (c *Collection[T]) Update(ctx context.Context, key any, patch any) (*T, error) {
	rec, err := toRecord(patch)
	if err != nil {
		return nil, &Error{Op: "update", Collection: c.name, Err: err}
	}
	out, err := c.store.Update(ctx, c.name, key, rec)
	if err != nil {
		return nil, err
	}
	return fromRecord[T](out)
}

func (c *Collection[T]) Delete(ctx context.Context, key any) error {
	return c.store.Delete(ctx, c.name, key)
}

func (c *Collection[T]) QueryByIndex(ctx context.Context, index string, value any) ([]T, error) {
	recs, err := c.store.QueryByIndex(ctx, c.name, index, value)
	if err != nil {
		return nil, err
	}
	return fromRecords[T](recs)
}

func (c *Collection[T]) Count(ctx context.Context) (int, error) {
	return c.store.Count(ctx, c.name)
}

func toRecord(v any) (Record, error) {
	if r, ok := v.(Record); ok {
		return r, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("%w: se esperaba un objeto: %v", domain.ErrInvalidRecord, err)
	}
	return rec, nil
}

func fromRecord[T any](rec Record) (*T, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("storage: serializar registro: %w", err)
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("storage: decodificar %T: %w", v, err)
	}
	return &v, nil
}

func fromRecords[T any](recs []Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		v, err := fromRecord[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}
