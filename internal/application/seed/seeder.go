// Package seed carga los datos iniciales de la base local. Es idempotente: una
// colección que ya tiene registros no se toca.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/erp-offline/internal/infrastructure/storage"
	"github.com/jhoicas/erp-offline/pkg/logger"
)

// Store subconjunto del motor que usa el sembrador.
type Store interface {
	GetAll(ctx context.Context, collection string) ([]storage.Record, error)
	Add(ctx context.Context, collection string, rec storage.Record) (storage.Record, error)
}

// Dataset registros iniciales de una colección.
type Dataset struct {
	Collection string
	Records    []storage.Record
}

// Result resultado del sembrado de una colección.
type Result struct {
	Collection string
	Inserted   int
	Skipped    bool // la colección ya tenía datos
	Err        error
}

// Report resultado de una corrida completa.
type Report struct {
	Results []Result
}

// Err une los errores de todas las colecciones que fallaron (nil si ninguna).
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Collection, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Inserted total de registros insertados.
func (r Report) Inserted() int {
	n := 0
	for _, res := range r.Results {
		n += res.Inserted
	}
	return n
}

// Seeder siembra los datasets en orden.
type Seeder struct {
	store    Store
	log      *logger.Logger
	datasets []Dataset
}

// New crea el sembrador con los datasets a cargar (ver DefaultDatasets).
func New(store Store, log *logger.Logger, datasets ...Dataset) *Seeder {
	if log == nil {
		log = logger.Nop()
	}
	return &Seeder{store: store, log: log.Component("seed"), datasets: datasets}
}

// Seed recorre los datasets. Un fallo en una colección se registra y no detiene las demás;
// una inserción fallida tampoco detiene el resto de registros de la misma colección.
func (s *Seeder) Seed(ctx context.Context) Report {
	var report Report
	for _, ds := range s.datasets {
		res := s.seedOne(ctx, ds)
		ev := s.log.Info()
		if res.Err != nil {
			ev = s.log.Error().Err(res.Err)
		}
		ev.Str("collection", ds.Collection).
			Int("inserted", res.Inserted).
			Bool("skipped", res.Skipped).
			Msg("sembrado de colección")
		report.Results = append(report.Results, res)
	}
	return report
}

func (s *Seeder) seedOne(ctx context.Context, ds Dataset) Result {
	res := Result{Collection: ds.Collection}
	existing, err := s.store.GetAll(ctx, ds.Collection)
	if err != nil {
		res.Err = err
		return res
	}
	if len(existing) > 0 {
		res.Skipped = true
		return res
	}
	var errs []error
	for _, rec := range ds.Records {
		if _, err := s.store.Add(ctx, ds.Collection, rec); err != nil {
			errs = append(errs, err)
			continue
		}
		res.Inserted++
	}
	res.Err = errors.Join(errs...)
	return res
}
