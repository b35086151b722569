// Package schema declara las colecciones de la base local: clave primaria, índices
// secundarios y versión global del esquema. Es inmutable una vez construido.
package schema

import (
	"fmt"

	"github.com/jhoicas/erp-offline/internal/domain"
)

// Index índice secundario sobre un campo del registro.
type Index struct {
	Name   string
	Field  string
	Unique bool
}

// CollectionSchema contrato estructural de una colección.
type CollectionSchema struct {
	Name          string
	PrimaryKey    string
	AutoIncrement bool
	Indices       []Index
	// Feature de suscripción requerido para operar la colección vía HTTP (vacío = libre).
	Feature string
	// LimitKind límite de suscripción que se verifica antes de agregar registros (vacío = ninguno).
	LimitKind string
}

// Index busca un índice por nombre.
func (s CollectionSchema) Index(name string) (Index, bool) {
	for _, idx := range s.Indices {
		if idx.Name == name {
			return idx, true
		}
	}
	return Index{}, false
}

func (s CollectionSchema) clone() CollectionSchema {
	c := s
	c.Indices = append([]Index(nil), s.Indices...)
	return c
}

// Registry mapa inmutable nombre → CollectionSchema con la versión del esquema.
type Registry struct {
	version int
	names   []string
	byName  map[string]CollectionSchema
}

// New valida y construye un registro. Falla si hay nombres de colección o de índice
// repetidos, o una colección sin clave primaria.
func New(version int, schemas ...CollectionSchema) (*Registry, error) {
	if version < 1 {
		return nil, fmt.Errorf("schema: %w: %d", domain.ErrSchemaVersion, version)
	}
	r := &Registry{version: version, byName: make(map[string]CollectionSchema, len(schemas))}
	for _, s := range schemas {
		if s.Name == "" {
			return nil, fmt.Errorf("schema: colección sin nombre")
		}
		if _, dup := r.byName[s.Name]; dup {
			return nil, fmt.Errorf("schema: colección %q declarada dos veces", s.Name)
		}
		if s.PrimaryKey == "" {
			return nil, fmt.Errorf("schema: colección %q sin clave primaria", s.Name)
		}
		seen := make(map[string]bool, len(s.Indices))
		for _, idx := range s.Indices {
			if idx.Name == "" || idx.Field == "" {
				return nil, fmt.Errorf("schema: índice incompleto en %q", s.Name)
			}
			if seen[idx.Name] {
				return nil, fmt.Errorf("schema: índice %q repetido en %q", idx.Name, s.Name)
			}
			seen[idx.Name] = true
		}
		r.names = append(r.names, s.Name)
		r.byName[s.Name] = s.clone()
	}
	return r, nil
}

// MustNew igual que New pero entra en pánico; para declaraciones estáticas.
func MustNew(version int, schemas ...CollectionSchema) *Registry {
	r, err := New(version, schemas...)
	if err != nil {
		panic(err)
	}
	return r
}

// Version versión global del esquema.
func (r *Registry) Version() int { return r.version }

// ListCollectionNames nombres en orden de declaración.
func (r *Registry) ListCollectionNames() []string {
	return append([]string(nil), r.names...)
}

// HasCollection informa si la colección está declarada.
func (r *Registry) HasCollection(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// GetSchema devuelve una copia del esquema o ErrUnknownCollection.
func (r *Registry) GetSchema(name string) (CollectionSchema, error) {
	s, ok := r.byName[name]
	if !ok {
		return CollectionSchema{}, fmt.Errorf("%w: %s", domain.ErrUnknownCollection, name)
	}
	return s.clone(), nil
}
