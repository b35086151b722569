// Package storage implementa el motor de base de datos local: CRUD por colección,
// índices secundarios mantenidos en memoria y versionado de esquema sobre un
// sustrato clave/valor (repository.Substrate).
//
// Cada escritura valida primero todas las restricciones, luego persiste en el
// sustrato y solo si éste confirma actualiza el mapa primario y los índices, de
// modo que un fallo nunca deja índices y datos divergentes.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/jhoicas/erp-offline/internal/domain"
	"github.com/jhoicas/erp-offline/internal/domain/repository"
	"github.com/jhoicas/erp-offline/internal/domain/schema"
	"github.com/jhoicas/erp-offline/pkg/logger"
)

// MetaSchemaVersion clave de metadatos donde el sustrato guarda la versión del esquema.
const MetaSchemaVersion = "schema_version"

// Store operaciones CRUD que consumen el sembrador, el directorio y la capa HTTP.
// La implementa *Engine.
type Store interface {
	Add(ctx context.Context, collection string, rec Record) (Record, error)
	AddWithin(ctx context.Context, collection string, rec Record, allow func(count int) bool) (Record, error)
	Put(ctx context.Context, collection string, rec Record) (Record, error)
	Update(ctx context.Context, collection string, key any, patch Record) (Record, error)
	Delete(ctx context.Context, collection string, key any) error
	Get(ctx context.Context, collection string, key any) (Record, error)
	GetAll(ctx context.Context, collection string) ([]Record, error)
	QueryByIndex(ctx context.Context, collection, index string, value any) ([]Record, error)
	Count(ctx context.Context, collection string) (int, error)
}

var _ Store = (*Engine)(nil)

// Engine motor de almacenamiento. Es seguro para uso concurrente: las escrituras de
// una misma colección se serializan; colecciones distintas no se bloquean entre sí.
type Engine struct {
	sub repository.Substrate
	reg *schema.Registry
	log *logger.Logger

	mu      sync.RWMutex
	version int
	cols    map[string]*collection
	seq     atomic.Uint64
}

type collection struct {
	mu      sync.RWMutex
	schema  schema.CollectionSchema
	records map[string]*entry
	indexes map[string]*index
	nextID  int64
}

type entry struct {
	seq uint64
	rec Record
}

// New construye el motor. Hay que llamar a Open antes de operar.
func New(sub repository.Substrate, reg *schema.Registry, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{sub: sub, reg: reg, log: log.Component("storage")}
}

// Registry devuelve el registro de esquema con el que trabaja el motor.
func (e *Engine) Registry() *schema.Registry { return e.reg }

// Version versión de esquema abierta (0 si no está abierta).
func (e *Engine) Version() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// Open abre la base con la versión de esquema pedida. Es idempotente. Si la versión
// en disco es menor migra (crea colecciones faltantes, nunca borra datos); si es
// mayor falla con ErrSchemaDowngrade.
func (e *Engine) Open(ctx context.Context, version int) error {
	if version < 1 {
		return &Error{Op: "open", Err: fmt.Errorf("%w: %d", domain.ErrSchemaVersion, version)}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cols != nil && e.version == version {
		return nil
	}

	onDisk, err := e.diskVersion(ctx)
	if err != nil {
		return &Error{Op: "open", Err: err}
	}
	if onDisk > version {
		return &Error{Op: "open", Err: fmt.Errorf("%w: disco=%d solicitada=%d", domain.ErrSchemaDowngrade, onDisk, version)}
	}

	for _, name := range e.reg.ListCollectionNames() {
		if err := e.sub.EnsureCollection(ctx, name); err != nil {
			return &Error{Op: "open", Collection: name, Err: fmt.Errorf("crear colección: %w", err)}
		}
	}

	cols, maxSeq, err := e.load(ctx)
	if err != nil {
		return err
	}

	if onDisk < version {
		if err := e.sub.SetMeta(ctx, MetaSchemaVersion, strconv.Itoa(version)); err != nil {
			return &Error{Op: "open", Err: fmt.Errorf("guardar versión: %w", err)}
		}
		e.log.Info().Int("from", onDisk).Int("to", version).Msg("esquema migrado")
	}

	e.cols = cols
	e.version = version
	e.seq.Store(maxSeq)
	e.log.Debug().Int("version", version).Int("collections", len(cols)).Msg("base local abierta")
	return nil
}

func (e *Engine) diskVersion(ctx context.Context) (int, error) {
	raw, ok, err := e.sub.GetMeta(ctx, MetaSchemaVersion)
	if err != nil {
		return 0, fmt.Errorf("leer versión: %w", err)
	}
	if !ok {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("versión en disco ilegible %q: %w", raw, err)
	}
	return v, nil
}

// load lee todas las colecciones del registro y reconstruye las proyecciones de índices.
func (e *Engine) load(ctx context.Context) (map[string]*collection, uint64, error) {
	cols := make(map[string]*collection)
	var maxSeq uint64
	for _, name := range e.reg.ListCollectionNames() {
		sc, _ := e.reg.GetSchema(name)
		c := newCollection(sc)
		stored, err := e.sub.Scan(ctx, name)
		if err != nil {
			return nil, 0, &Error{Op: "open", Collection: name, Err: fmt.Errorf("leer registros: %w", err)}
		}
		sort.Slice(stored, func(i, j int) bool { return stored[i].Seq < stored[j].Seq })
		for _, s := range stored {
			var rec Record
			if err := json.Unmarshal(s.Data, &rec); err != nil {
				return nil, 0, &Error{Op: "open", Collection: name, Key: s.Key, Err: fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)}
			}
			for _, ix := range c.indexes {
				if ix.conflicts(rec, s.Key) {
					return nil, 0, &Error{Op: "open", Collection: name, Key: s.Key, Index: ix.def.Name, Err: domain.ErrUniqueIndexViolation}
				}
			}
			c.commit(s.Key, s.Seq, rec, nil)
			if s.Seq > maxSeq {
				maxSeq = s.Seq
			}
		}
		cols[name] = c
	}
	return cols, maxSeq, nil
}

func newCollection(sc schema.CollectionSchema) *collection {
	c := &collection{
		schema:  sc,
		records: make(map[string]*entry),
		indexes: make(map[string]*index, len(sc.Indices)),
		nextID:  1,
	}
	for _, def := range sc.Indices {
		c.indexes[def.Name] = newIndex(def)
	}
	return c
}

// commit aplica un registro ya persistido: mueve índices y avanza el autoincremental.
func (c *collection) commit(pk string, seq uint64, rec Record, prev Record) {
	for _, ix := range c.indexes {
		if prev != nil {
			ix.remove(pk, prev)
		}
		ix.add(pk, rec)
	}
	c.records[pk] = &entry{seq: seq, rec: rec}
	if f, ok := rec[c.schema.PrimaryKey].(float64); ok && f == math.Trunc(f) && int64(f) >= c.nextID {
		c.nextID = int64(f) + 1
	}
}

func (c *collection) uniqueConflict(rec Record, self string) *index {
	for _, ix := range c.indexes {
		if ix.conflicts(rec, self) {
			return ix
		}
	}
	return nil
}

func (c *collection) ordered(keys map[string]struct{}) []Record {
	list := make([]*entry, 0, len(c.records))
	if keys == nil {
		for _, en := range c.records {
			list = append(list, en)
		}
	} else {
		for k := range keys {
			if en, ok := c.records[k]; ok {
				list = append(list, en)
			}
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
	out := make([]Record, len(list))
	for i, en := range list {
		out[i] = en.rec.clone()
	}
	return out
}

// acquire valida la colección contra el registro. Devuelve la colección con el
// candado de lectura del motor tomado; el llamador debe liberar con release.
func (e *Engine) acquire(op, name string) (*collection, error) {
	if !e.reg.HasCollection(name) {
		return nil, &Error{Op: op, Collection: name, Err: domain.ErrUnknownCollection}
	}
	e.mu.RLock()
	if e.cols == nil {
		e.mu.RUnlock()
		return nil, &Error{Op: op, Collection: name, Err: domain.ErrNotOpen}
	}
	c, ok := e.cols[name]
	if !ok {
		e.mu.RUnlock()
		return nil, &Error{Op: op, Collection: name, Err: domain.ErrUnknownCollection}
	}
	return c, nil
}

func (e *Engine) release() { e.mu.RUnlock() }

// Add inserta un registro nuevo. Falla con ErrDuplicateKey si la clave ya existe o con
// ErrUniqueIndexViolation si algún índice único choca; en ambos casos no se escribe nada.
// Devuelve el registro almacenado (con la clave asignada si la colección es autoincremental).
func (e *Engine) Add(ctx context.Context, name string, rec Record) (Record, error) {
	c, err := e.acquire("add", name)
	if err != nil {
		return nil, err
	}
	defer e.release()
	c.mu.Lock()
	defer c.mu.Unlock()
	return e.write(ctx, "add", c, rec, false)
}

// AddWithin inserta como Add solo si allow acepta la cantidad actual de registros. El
// conteo y la escritura ocurren bajo el mismo candado de la colección; si allow
// rechaza falla con ErrLimitReached.
func (e *Engine) AddWithin(ctx context.Context, name string, rec Record, allow func(count int) bool) (Record, error) {
	c, err := e.acquire("add", name)
	if err != nil {
		return nil, err
	}
	defer e.release()
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.records); !allow(n) {
		return nil, &Error{Op: "add", Collection: name, Err: fmt.Errorf("%w: %d registros", domain.ErrLimitReached, n)}
	}
	return e.write(ctx, "add", c, rec, false)
}

// Put inserta o reemplaza el registro completo. Un reemplazo conserva la posición de inserción.
func (e *Engine) Put(ctx context.Context, name string, rec Record) (Record, error) {
	c, err := e.acquire("put", name)
	if err != nil {
		return nil, err
	}
	defer e.release()
	c.mu.Lock()
	defer c.mu.Unlock()
	return e.write(ctx, "put", c, rec, true)
}

func (e *Engine) write(ctx context.Context, op string, c *collection, input Record, replace bool) (Record, error) {
	name := c.schema.Name
	rec, err := normalize(input)
	if err != nil {
		return nil, &Error{Op: op, Collection: name, Err: fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)}
	}
	pkField := c.schema.PrimaryKey
	raw, present := rec[pkField]
	if !present || raw == nil {
		if !c.schema.AutoIncrement {
			return nil, &Error{Op: op, Collection: name, Err: fmt.Errorf("%w: falta la clave primaria %q", domain.ErrInvalidRecord, pkField)}
		}
		raw = float64(c.nextID)
		rec[pkField] = raw
	}
	pk, err := encodeKey(raw)
	if err != nil {
		return nil, &Error{Op: op, Collection: name, Err: fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)}
	}

	prev, exists := c.records[pk]
	if exists && !replace {
		return nil, &Error{Op: op, Collection: name, Key: displayKey(raw), Err: domain.ErrDuplicateKey}
	}
	self := ""
	if exists {
		self = pk
	}
	if ix := c.uniqueConflict(rec, self); ix != nil {
		return nil, &Error{Op: op, Collection: name, Key: displayKey(raw), Index: ix.def.Name, Err: domain.ErrUniqueIndexViolation}
	}

	var seq uint64
	var prevRec Record
	if exists {
		seq, prevRec = prev.seq, prev.rec
	} else {
		seq = e.seq.Add(1)
	}
	if err := e.persist(ctx, op, c, pk, seq, rec); err != nil {
		return nil, err
	}
	c.commit(pk, seq, rec, prevRec)
	return rec.clone(), nil
}

func (e *Engine) persist(ctx context.Context, op string, c *collection, pk string, seq uint64, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return &Error{Op: op, Collection: c.schema.Name, Err: fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)}
	}
	if err := e.sub.Put(ctx, c.schema.Name, repository.StoredRecord{Key: pk, Seq: seq, Data: data}); err != nil {
		return &Error{Op: op, Collection: c.schema.Name, Key: pk, Err: fmt.Errorf("sustrato: %w", err)}
	}
	return nil
}

// Update fusiona patch (superficialmente) sobre el registro existente. Cambiar la clave
// primaria no está permitido. Los índices únicos se validan excluyendo los valores
// previos del propio registro.
func (e *Engine) Update(ctx context.Context, name string, key any, patch Record) (Record, error) {
	c, err := e.acquire("update", name)
	if err != nil {
		return nil, err
	}
	defer e.release()

	pk, err := encodeKey(key)
	if err != nil {
		return nil, &Error{Op: "update", Collection: name, Err: fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)}
	}
	p, err := normalize(patch)
	if err != nil {
		return nil, &Error{Op: "update", Collection: name, Err: fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.records[pk]
	if !ok {
		return nil, &Error{Op: "update", Collection: name, Key: displayKey(key), Err: domain.ErrNotFound}
	}
	if v, has := p[c.schema.PrimaryKey]; has {
		if other, err := encodeKey(v); err != nil || other != pk {
			return nil, &Error{Op: "update", Collection: name, Key: displayKey(key), Err: fmt.Errorf("%w: no se puede cambiar la clave primaria", domain.ErrInvalidRecord)}
		}
	}

	merged := prev.rec.clone()
	for f, v := range p {
		merged[f] = v
	}
	if ix := c.uniqueConflict(merged, pk); ix != nil {
		return nil, &Error{Op: "update", Collection: name, Key: displayKey(key), Index: ix.def.Name, Err: domain.ErrUniqueIndexViolation}
	}
	if err := e.persist(ctx, "update", c, pk, prev.seq, merged); err != nil {
		return nil, err
	}
	c.commit(pk, prev.seq, merged, prev.rec)
	return merged.clone(), nil
}

// Delete elimina el registro y sus entradas de índice. Una clave inexistente es ErrNotFound.
func (e *Engine) Delete(ctx context.Context, name string, key any) error {
	c, err := e.acquire("delete", name)
	if err != nil {
		return err
	}
	defer e.release()

	pk, err := encodeKey(key)
	if err != nil {
		return &Error{Op: "delete", Collection: name, Err: fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.records[pk]
	if !ok {
		return &Error{Op: "delete", Collection: name, Key: displayKey(key), Err: domain.ErrNotFound}
	}
	if err := e.sub.Delete(ctx, name, pk); err != nil {
		return &Error{Op: "delete", Collection: name, Key: displayKey(key), Err: fmt.Errorf("sustrato: %w", err)}
	}
	for _, ix := range c.indexes {
		ix.remove(pk, prev.rec)
	}
	delete(c.records, pk)
	return nil
}

// Get devuelve una copia del registro o ErrNotFound.
func (e *Engine) Get(ctx context.Context, name string, key any) (Record, error) {
	c, err := e.acquire("get", name)
	if err != nil {
		return nil, err
	}
	defer e.release()

	pk, err := encodeKey(key)
	if err != nil {
		return nil, &Error{Op: "get", Collection: name, Err: fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	en, ok := c.records[pk]
	if !ok {
		return nil, &Error{Op: "get", Collection: name, Key: displayKey(key), Err: domain.ErrNotFound}
	}
	return en.rec.clone(), nil
}

// GetAll devuelve todos los registros en orden de inserción.
func (e *Engine) GetAll(ctx context.Context, name string) ([]Record, error) {
	c, err := e.acquire("getAll", name)
	if err != nil {
		return nil, err
	}
	defer e.release()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ordered(nil), nil
}

// QueryByIndex devuelve los registros cuyo campo indexado es igual a value, en orden de
// inserción. En un índice único el resultado tiene a lo sumo un elemento.
func (e *Engine) QueryByIndex(ctx context.Context, name, indexName string, value any) ([]Record, error) {
	c, err := e.acquire("queryByIndex", name)
	if err != nil {
		return nil, err
	}
	defer e.release()
	c.mu.RLock()
	defer c.mu.RUnlock()

	ix, ok := c.indexes[indexName]
	if !ok {
		return nil, &Error{Op: "queryByIndex", Collection: name, Index: indexName, Err: domain.ErrUnknownIndex}
	}
	keys := ix.lookup(value)
	if len(keys) == 0 {
		return []Record{}, nil
	}
	return c.ordered(keys), nil
}

// Count número de registros de la colección.
func (e *Engine) Count(ctx context.Context, name string) (int, error) {
	c, err := e.acquire("count", name)
	if err != nil {
		return 0, err
	}
	defer e.release()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records), nil
}

// Clear vacía la colección. El contador autoincremental no se reinicia.
func (e *Engine) Clear(ctx context.Context, name string) error {
	c, err := e.acquire("clear", name)
	if err != nil {
		return err
	}
	defer e.release()
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := e.sub.Truncate(ctx, name); err != nil {
		return &Error{Op: "clear", Collection: name, Err: fmt.Errorf("sustrato: %w", err)}
	}
	c.records = make(map[string]*entry)
	for n, ix := range c.indexes {
		c.indexes[n] = newIndex(ix.def)
	}
	return nil
}

// Close cierra el sustrato. Las operaciones posteriores fallan con ErrNotOpen.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cols = nil
	e.version = 0
	if err := e.sub.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("storage: cerrar sustrato: %w", err)
	}
	return nil
}
