package storage

import "github.com/jhoicas/erp-offline/internal/domain/schema"

// index proyección derivada valor → conjunto de claves primarias.
type index struct {
	def    schema.Index
	values map[string]map[string]struct{}
}

func newIndex(def schema.Index) *index {
	return &index{def: def, values: make(map[string]map[string]struct{})}
}

func (ix *index) add(pk string, rec Record) {
	v, ok := encodeIndexValue(rec[ix.def.Field])
	if !ok {
		return
	}
	set := ix.values[v]
	if set == nil {
		set = make(map[string]struct{})
		ix.values[v] = set
	}
	set[pk] = struct{}{}
}

func (ix *index) remove(pk string, rec Record) {
	v, ok := encodeIndexValue(rec[ix.def.Field])
	if !ok {
		return
	}
	set := ix.values[v]
	delete(set, pk)
	if len(set) == 0 {
		delete(ix.values, v)
	}
}

// conflicts informa si rec choca con otro registro (distinto de self) en un índice único.
func (ix *index) conflicts(rec Record, self string) bool {
	if !ix.def.Unique {
		return false
	}
	v, ok := encodeIndexValue(rec[ix.def.Field])
	if !ok {
		return false
	}
	for pk := range ix.values[v] {
		if pk != self {
			return true
		}
	}
	return false
}

func (ix *index) lookup(value any) map[string]struct{} {
	v, ok := encodeIndexValue(value)
	if !ok {
		return nil
	}
	return ix.values[v]
}
