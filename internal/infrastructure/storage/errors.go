package storage

import (
	"fmt"
	"strings"
)

// Error falla tipada del motor. Err siempre envuelve un error de dominio
// (domain.ErrDuplicateKey, domain.ErrNotFound, ...) o el error del sustrato.
type Error struct {
	Op         string
	Collection string
	Key        string
	Index      string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("storage: ")
	b.WriteString(e.Op)
	if e.Collection != "" {
		b.WriteString(" ")
		b.WriteString(e.Collection)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, "[%s]", e.Key)
	}
	if e.Index != "" {
		fmt.Fprintf(&b, " (índice %s)", e.Index)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }
