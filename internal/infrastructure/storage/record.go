package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Record documento sin tipo con forma JSON. Los valores se normalizan vía JSON al
// escribir: los números quedan como float64, los objetos como map[string]any.
type Record map[string]any

// normalize copia el registro pasándolo por JSON.
func normalize(r Record) (Record, error) {
	if r == nil {
		return Record{}, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var out Record
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = Record{}
	}
	return out, nil
}

// clone copia profunda de un registro ya normalizado (solo formas JSON).
func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = cloneValue(x)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = cloneValue(x)
		}
		return s
	default:
		return v
	}
}

// scalar lleva enteros, flotantes de 32 bits y json.Number a float64 para que una
// clave pasada como int coincida con la almacenada tras la normalización.
func scalar(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	default:
		return v
	}
}

// encodeKey codifica una clave primaria. Solo se aceptan cadenas no vacías y números finitos.
func encodeKey(v any) (string, error) {
	switch t := scalar(v).(type) {
	case string:
		if t == "" {
			return "", fmt.Errorf("clave vacía")
		}
		return "s:" + t, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", fmt.Errorf("clave numérica no finita")
		}
		return "n:" + strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("tipo de clave no soportado %T", v)
	}
}

// encodeIndexValue codifica el valor de un campo indexado. Los valores nulos o
// compuestos no se indexan.
func encodeIndexValue(v any) (string, bool) {
	switch t := scalar(v).(type) {
	case string:
		return "s:" + t, true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", false
		}
		return "n:" + strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return "b:" + strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// displayKey representación legible de una clave para mensajes de error.
func displayKey(v any) string {
	return fmt.Sprint(scalar(v))
}
