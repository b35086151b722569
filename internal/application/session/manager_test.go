package session_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-offline/internal/application/session"
	"github.com/jhoicas/erp-offline/internal/infrastructure/localstore"
)

// fakeClock reloj simulado.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func TestManager_CicloDeVida(t *testing.T) {
	clock := newClock()
	m, err := session.New(localstore.NewMemory(), session.WithClock(clock.Now))
	require.NoError(t, err)
	assert.Equal(t, session.StateAbsent, m.State())
	assert.False(t, m.IsValid())
	assert.False(t, m.NeedsRefresh())

	require.NoError(t, m.Save("a", "r", 3600))
	assert.True(t, m.IsValid())
	assert.False(t, m.NeedsRefresh())
	assert.Equal(t, session.StateValid, m.State())

	clock.Advance(3600*time.Second - session.DefaultLead + time.Second)
	assert.True(t, m.IsValid(), "dentro de la ventana el token sigue siendo válido")
	assert.True(t, m.NeedsRefresh())
	assert.Equal(t, session.StateNeedsRefresh, m.State())

	clock.Advance(session.DefaultLead)
	assert.False(t, m.IsValid())
	assert.True(t, m.NeedsRefresh(), "vencido aún se puede intentar renovar")
	assert.Equal(t, session.StateExpired, m.State())

	require.NoError(t, m.Clear())
	assert.Equal(t, session.StateAbsent, m.State())
	_, ok := m.Token()
	assert.False(t, ok)
}

func TestManager_ValidoASinSesionSinPasarPorRenovacion(t *testing.T) {
	m, err := session.New(localstore.NewMemory(), session.WithClock(newClock().Now))
	require.NoError(t, err)
	require.NoError(t, m.Save("a", "r", 3600))
	require.NoError(t, m.Clear())
	assert.False(t, m.IsValid())
	assert.False(t, m.NeedsRefresh())
}

func TestManager_PersisteYRecarga(t *testing.T) {
	clock := newClock()
	store := localstore.NewMemory()
	m, err := session.New(store, session.WithClock(clock.Now))
	require.NoError(t, err)
	require.NoError(t, m.Save("acc", "ref", 600))

	v, ok, err := store.Get(session.KeyExpiresAt)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1772352600000", v, "vencimiento absoluto en epoch ms")

	reloaded, err := session.New(store, session.WithClock(clock.Now))
	require.NoError(t, err)
	tok, ok := reloaded.Token()
	require.True(t, ok)
	assert.Equal(t, "acc", tok.AccessToken)
	assert.Equal(t, "ref", tok.RefreshToken)
	assert.True(t, reloaded.IsValid())

	require.NoError(t, reloaded.Clear())
	for _, k := range []string{session.KeyAccessToken, session.KeyRefreshToken, session.KeyExpiresAt} {
		_, ok, err := store.Get(k)
		require.NoError(t, err)
		assert.False(t, ok, k)
	}
}

func TestManager_DescartaSesionIncompleta(t *testing.T) {
	store := localstore.NewMemory()
	require.NoError(t, store.Set(session.KeyAccessToken, "acc"))
	require.NoError(t, store.Set(session.KeyExpiresAt, "no-es-numero"))

	m, err := session.New(store)
	require.NoError(t, err)
	assert.Equal(t, session.StateAbsent, m.State())
	_, ok, err := store.Get(session.KeyAccessToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_VentanaConfigurable(t *testing.T) {
	clock := newClock()
	m, err := session.New(localstore.NewMemory(), session.WithClock(clock.Now), session.WithLead(time.Minute))
	require.NoError(t, err)
	require.NoError(t, m.Save("a", "r", 300))

	clock.Advance(3 * time.Minute)
	assert.False(t, m.NeedsRefresh())
	clock.Advance(time.Minute)
	assert.True(t, m.NeedsRefresh())

	assert.Error(t, m.Save("", "r", 300))
}
