package company_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/erp-offline/internal/application/company"
	"github.com/jhoicas/erp-offline/internal/application/directory"
	"github.com/jhoicas/erp-offline/internal/application/session"
	"github.com/jhoicas/erp-offline/internal/domain"
	"github.com/jhoicas/erp-offline/internal/domain/entity"
	"github.com/jhoicas/erp-offline/internal/domain/repository"
	"github.com/jhoicas/erp-offline/internal/domain/schema"
	"github.com/jhoicas/erp-offline/internal/infrastructure/connectivity"
	"github.com/jhoicas/erp-offline/internal/infrastructure/localstore"
	"github.com/jhoicas/erp-offline/internal/infrastructure/memdb"
	"github.com/jhoicas/erp-offline/internal/infrastructure/storage"
)

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

// flakyAPI directorio real con fallos y contadores inyectables.
type flakyAPI struct {
	repository.CompanyAPI
	loginCalls   atomic.Int32
	refreshCalls atomic.Int32
	refreshGate  chan struct{}
	refreshErr   error
	detailsErr   error
	hangLogout   bool
	logoutErr    chan error
}

func (f *flakyAPI) Login(ctx context.Context, identifier, password string) (*entity.LoginResult, error) {
	f.loginCalls.Add(1)
	return f.CompanyAPI.Login(ctx, identifier, password)
}

func (f *flakyAPI) RefreshToken(ctx context.Context, refreshToken string) (*entity.TokenPair, error) {
	f.refreshCalls.Add(1)
	if f.refreshGate != nil {
		<-f.refreshGate
	}
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.CompanyAPI.RefreshToken(ctx, refreshToken)
}

func (f *flakyAPI) GetCompanyDetails(ctx context.Context, accessToken string) (*entity.Company, error) {
	if f.detailsErr != nil {
		return nil, f.detailsErr
	}
	return f.CompanyAPI.GetCompanyDetails(ctx, accessToken)
}

func (f *flakyAPI) Logout(ctx context.Context, accessToken string) error {
	if f.hangLogout {
		<-ctx.Done()
		f.logoutErr <- ctx.Err()
		return ctx.Err()
	}
	return f.CompanyAPI.Logout(ctx, accessToken)
}

type harness struct {
	clock *fakeClock
	api   *flakyAPI
	store *localstore.Memory
	conn  *connectivity.Monitor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}

	sub, err := memdb.New()
	require.NoError(t, err)
	e := storage.New(sub, schema.Default(), nil)
	require.NoError(t, e.Open(context.Background(), schema.Version))
	t.Cleanup(func() { _ = e.Close() })
	dir, err := directory.New(e, directory.Config{
		Secret:     "secreto-de-pruebas",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, nil)
	require.NoError(t, err)
	_, err = dir.EnsureDemo(context.Background(), clock.Now())
	require.NoError(t, err)

	return &harness{
		clock: clock,
		api:   &flakyAPI{CompanyAPI: dir, logoutErr: make(chan error, 1)},
		store: localstore.NewMemory(),
		conn:  connectivity.NewMonitor(nil),
	}
}

func (h *harness) newContext(t *testing.T, opts ...company.Option) *company.Context {
	t.Helper()
	sess, err := session.New(h.store, session.WithClock(h.clock.Now))
	require.NoError(t, err)
	opts = append([]company.Option{company.WithClock(h.clock.Now)}, opts...)
	c := company.NewContext(h.api, sess, h.store, h.conn, nil, opts...)
	t.Cleanup(c.Close)
	return c
}

func (h *harness) login(t *testing.T, c *company.Context) {
	t.Helper()
	res := c.LoginCompany(context.Background(), directory.DemoIdentifier, directory.DemoPassword)
	require.True(t, res.Success, res.Message)
}

func TestContext_LoginAlfalah(t *testing.T) {
	h := newHarness(t)
	c := h.newContext(t)
	ctx := context.Background()

	var mu sync.Mutex
	var states []company.State
	c.OnStateChange(func(s company.State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})

	verified := c.VerifyCompanyIdentifier(ctx, "alfalah")
	require.True(t, verified.Success, verified.Message)
	require.NotNil(t, verified.Company)
	assert.Equal(t, "Al Falah Trading", verified.Company.Name)
	assert.Equal(t, company.StateAwaitingPassword, c.State())

	res := c.LoginCompany(ctx, "alfalah", "123456")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, company.StateAuthenticated, c.State())
	assert.True(t, c.IsSubscriptionValid())
	assert.Equal(t, 365, c.GetDaysRemaining())
	assert.True(t, c.HasFeature(entity.FeatureHR))
	assert.False(t, c.HasFeature("crm"))
	assert.True(t, c.CheckLimit(entity.LimitWarehouses, 9))
	assert.False(t, c.CheckLimit(entity.LimitWarehouses, 10))
	assert.True(t, c.CheckLimit(entity.LimitProducts, 1_000_000), "sin límite configurado es ilimitado")

	raw, ok, err := h.store.Get(repository.CacheSelectedCompany)
	require.NoError(t, err)
	require.True(t, ok)
	var cached entity.Company
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, "alfalah", cached.Identifier)

	_, state := c.Session()
	assert.Equal(t, session.StateValid, state)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []company.State{
		company.StateVerifying, company.StateAwaitingPassword,
		company.StateAuthenticating, company.StateAuthenticated,
	}, states)
}

func TestContext_ErroresDeUsuarioSonMensajes(t *testing.T) {
	h := newHarness(t)
	c := h.newContext(t)
	ctx := context.Background()

	res := c.VerifyCompanyIdentifier(ctx, "nadie")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, domain.ErrInvalidIdentifier)
	assert.NotEmpty(t, res.Message)
	assert.Equal(t, company.StateUnauthenticated, c.State())

	res = c.LoginCompany(ctx, "alfalah", "mala")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, domain.ErrInvalidCredentials)
	assert.Equal(t, company.Message(domain.ErrInvalidCredentials), res.Message)
	assert.Equal(t, company.StateUnauthenticated, c.State())
	_, ok, err := h.store.Get(repository.CacheSelectedCompany)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestContext_LoginSinConexion(t *testing.T) {
	h := newHarness(t)
	c := h.newContext(t)
	h.conn.Set(false)

	res := c.LoginCompany(context.Background(), "alfalah", "123456")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, domain.ErrOffline)
	assert.Equal(t, int32(0), h.api.loginCalls.Load(), "sin conexión no se llama al directorio")
	assert.Equal(t, company.StateUnauthenticated, c.State())

	res = c.VerifyCompanyIdentifier(context.Background(), "alfalah")
	assert.ErrorIs(t, res.Err, domain.ErrOffline)
}

func TestContext_SinSuscripcion(t *testing.T) {
	c := newHarness(t).newContext(t)
	assert.False(t, c.IsSubscriptionValid())
	assert.Zero(t, c.GetDaysRemaining())
	assert.False(t, c.HasFeature(entity.FeatureAccounting))
	assert.False(t, c.CheckLimit(entity.LimitUsers, 0))
	assert.Nil(t, c.Company())
}

func TestContext_RenovacionFallidaCierraSesion(t *testing.T) {
	h := newHarness(t)
	h.api.refreshErr = domain.ErrRefreshFailed
	c := h.newContext(t, company.WithRefreshInterval(10*time.Millisecond))
	h.login(t, c)

	h.clock.Advance(time.Hour)
	require.Eventually(t, func() bool {
		return c.State() == company.StateUnauthenticated
	}, 2*time.Second, 10*time.Millisecond)

	_, state := c.Session()
	assert.Equal(t, session.StateAbsent, state)
	_, ok, err := h.store.Get(repository.CacheCompanySubscription)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, c.Subscription())
}

func TestContext_RenovacionConErrorDeRedCierraSesion(t *testing.T) {
	h := newHarness(t)
	h.api.refreshErr = errors.New("connection refused")
	c := h.newContext(t, company.WithRefreshInterval(10*time.Millisecond))
	h.login(t, c)

	h.clock.Advance(2 * time.Hour)
	require.Eventually(t, func() bool {
		return c.State() == company.StateUnauthenticated
	}, 2*time.Second, 10*time.Millisecond)

	_, state := c.Session()
	assert.Equal(t, session.StateAbsent, state)
	assert.Nil(t, c.Company())
	assert.LessOrEqual(t, h.api.refreshCalls.Load(), int32(2), "no debe reintentar con la sesión vencida")
}

func TestContext_RenovacionManualConErrorDevuelveRefreshFailed(t *testing.T) {
	h := newHarness(t)
	h.api.refreshErr = errors.New("HTTP 502")
	c := h.newContext(t)
	h.login(t, c)

	h.clock.Advance(time.Hour)
	err := c.RefreshSession(context.Background())
	assert.ErrorIs(t, err, domain.ErrRefreshFailed)
	assert.Equal(t, company.StateUnauthenticated, c.State())
}

func TestContext_RenovacionCanceladaNoCierraSesion(t *testing.T) {
	h := newHarness(t)
	h.api.refreshErr = context.Canceled
	c := h.newContext(t)
	h.login(t, c)

	h.clock.Advance(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.RefreshSession(ctx), context.Canceled)
	assert.Equal(t, company.StateAuthenticated, c.State())
}

func TestContext_SuscripcionDevueltaEsCopiaProfunda(t *testing.T) {
	h := newHarness(t)
	c := h.newContext(t)
	h.login(t, c)

	sub := c.Subscription()
	require.NotNil(t, sub)
	require.NotEmpty(t, sub.Features)
	feature := sub.Features[0]
	sub.Features[0] = "otro"
	for k := range sub.Limits {
		sub.Limits[k] = 0
	}

	assert.True(t, c.HasFeature(feature))
	assert.True(t, c.CheckLimit(entity.LimitWarehouses, 1))
}

func TestContext_RenovacionesSimultaneasSeCoalescen(t *testing.T) {
	h := newHarness(t)
	h.api.refreshGate = make(chan struct{})
	c := h.newContext(t)
	h.login(t, c)
	h.clock.Advance(56 * time.Minute)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.RefreshSession(context.Background())
		}(i)
	}
	require.Eventually(t, func() bool { return h.api.refreshCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(h.api.refreshGate)
	wg.Wait()

	assert.Equal(t, int32(1), h.api.refreshCalls.Load())
	for _, err := range errs {
		assert.NoError(t, err)
	}
	_, state := c.Session()
	assert.Equal(t, session.StateValid, state)
	assert.Equal(t, company.StateAuthenticated, c.State())
}

func TestContext_LogoutNoEsperaAlRemoto(t *testing.T) {
	h := newHarness(t)
	h.api.hangLogout = true
	c := h.newContext(t, company.WithLogoutTimeout(50*time.Millisecond))
	h.login(t, c)

	c.LogoutCompany()
	assert.Equal(t, company.StateUnauthenticated, c.State())
	assert.Nil(t, c.Company())
	_, state := c.Session()
	assert.Equal(t, session.StateAbsent, state)
	_, ok, err := h.store.Get(repository.CacheSelectedCompany)
	require.NoError(t, err)
	assert.False(t, ok)

	c.Close()
	select {
	case err := <-h.api.logoutErr:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	default:
		t.Fatal("el logout remoto debía terminar por timeout antes de Close")
	}
}

func TestContext_InitRestauraDesdeCache(t *testing.T) {
	h := newHarness(t)
	first := h.newContext(t)
	h.login(t, first)
	first.Close()

	h.api.detailsErr = errors.New("gateway timeout")
	second := h.newContext(t)
	require.NoError(t, second.Init(context.Background()))
	assert.Equal(t, company.StateAuthenticated, second.State())
	require.NotNil(t, second.Company())
	assert.Equal(t, "Al Falah Trading", second.Company().Name)
	assert.True(t, second.IsSubscriptionValid())
}

func TestContext_InitSinConexionUsaCache(t *testing.T) {
	h := newHarness(t)
	first := h.newContext(t)
	h.login(t, first)
	first.Close()

	h.conn.Set(false)
	second := h.newContext(t)
	require.NoError(t, second.Init(context.Background()))
	assert.Equal(t, company.StateAuthenticated, second.State())
	assert.True(t, second.HasFeature(entity.FeatureSales))
}

func TestContext_InitSinCacheDescartaSesion(t *testing.T) {
	h := newHarness(t)
	sess, err := session.New(h.store, session.WithClock(h.clock.Now))
	require.NoError(t, err)
	require.NoError(t, sess.Save("acc-viejo", "ref-viejo", 3600))

	h.api.detailsErr = domain.ErrUnauthorized
	c := h.newContext(t)
	require.NoError(t, c.Init(context.Background()))
	assert.Equal(t, company.StateUnauthenticated, c.State())
	_, state := c.Session()
	assert.Equal(t, session.StateAbsent, state)
}

func TestContext_InitSinSesion(t *testing.T) {
	c := newHarness(t).newContext(t)
	require.NoError(t, c.Init(context.Background()))
	assert.Equal(t, company.StateUnauthenticated, c.State())
}
