package connectivity_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-offline/internal/infrastructure/connectivity"
)

func TestMonitor_SetNotificaSoloCambios(t *testing.T) {
	m := connectivity.NewMonitor(nil)
	assert.True(t, m.IsOnline())

	var changes atomic.Int32
	m.OnChange(func(bool) { changes.Add(1) })

	m.Set(true)
	m.Set(false)
	m.Set(false)
	m.Set(true)

	assert.True(t, m.IsOnline())
	assert.Equal(t, int32(2), changes.Load())
}

func TestMonitor_RunSigueAlSondeo(t *testing.T) {
	m := connectivity.NewMonitor(nil)
	var fail atomic.Bool
	fail.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx, 10*time.Millisecond, func(context.Context) error {
			if fail.Load() {
				return errors.New("connection refused")
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool { return !m.IsOnline() }, time.Second, 5*time.Millisecond)
	fail.Store(false)
	require.Eventually(t, m.IsOnline, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run no terminó al cancelar el contexto")
	}
}
