// Package connectivity mantiene la señal Online/Offline que consulta el contexto de empresa.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jhoicas/erp-offline/internal/domain/repository"
	"github.com/jhoicas/erp-offline/pkg/logger"
)

// ProbeFunc comprueba si el directorio remoto responde.
type ProbeFunc func(ctx context.Context) error

// Monitor señal de conectividad. Arranca en línea.
type Monitor struct {
	online atomic.Bool
	log    *logger.Logger

	mu        sync.Mutex
	listeners []func(online bool)
}

var _ repository.Connectivity = (*Monitor)(nil)

// NewMonitor crea el monitor en estado online.
func NewMonitor(log *logger.Logger) *Monitor {
	if log == nil {
		log = logger.Nop()
	}
	m := &Monitor{log: log.Component("connectivity")}
	m.online.Store(true)
	return m
}

func (m *Monitor) IsOnline() bool { return m.online.Load() }

// Set fija el estado. Los listeners se notifican solo en los cambios.
func (m *Monitor) Set(online bool) {
	if m.online.Swap(online) == online {
		return
	}
	if online {
		m.log.Info().Msg("conexión restablecida")
	} else {
		m.log.Warn().Msg("sin conexión")
	}
	m.mu.Lock()
	ls := append([]func(bool){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range ls {
		fn(online)
	}
}

// OnChange registra un listener de cambios de estado.
func (m *Monitor) OnChange(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Run sondea con probe cada interval hasta que ctx se cancele. Cada sondeo tiene como
// tope el propio intervalo.
func (m *Monitor) Run(ctx context.Context, interval time.Duration, probe ProbeFunc) {
	if interval <= 0 || probe == nil {
		return
	}
	check := func() {
		pctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		err := probe(pctx)
		if err != nil && ctx.Err() != nil {
			return
		}
		if err != nil {
			m.log.Debug().Err(err).Msg("sondeo de conectividad fallido")
		}
		m.Set(err == nil)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
