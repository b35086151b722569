// Package company orquesta la sesión de empresa: verificación del identificador, login,
// renovación periódica del token, logout y consultas sobre la suscripción en caché.
package company

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/erp-offline/internal/application/session"
	"github.com/jhoicas/erp-offline/internal/domain"
	"github.com/jhoicas/erp-offline/internal/domain/entity"
	"github.com/jhoicas/erp-offline/internal/domain/repository"
	"github.com/jhoicas/erp-offline/pkg/logger"
)

// State estado de autenticación de la empresa.
type State string

const (
	StateUnauthenticated  State = "unauthenticated"
	StateVerifying        State = "verifying"
	StateAwaitingPassword State = "awaiting_password"
	StateAuthenticating   State = "authenticating"
	StateAuthenticated    State = "authenticated"
)

// Valores por defecto.
const (
	DefaultRefreshInterval = 60 * time.Second
	DefaultLogoutTimeout   = 5 * time.Second
)

// Result resultado de una acción iniciada por el usuario. Nunca se propaga como error:
// Message es el texto a mostrar y Err el error de dominio para quien lo necesite.
type Result struct {
	Success bool
	Message string
	Company *entity.Company
	Err     error
}

// Option configura el Context.
type Option func(*Context)

// WithClock reemplaza el reloj usado en las consultas de suscripción.
func WithClock(now func() time.Time) Option {
	return func(c *Context) { c.now = now }
}

// WithRefreshInterval periodo del bucle de renovación.
func WithRefreshInterval(d time.Duration) Option {
	return func(c *Context) {
		if d > 0 {
			c.refreshInterval = d
		}
	}
}

// WithLogoutTimeout límite de la invalidación remota al cerrar sesión.
func WithLogoutTimeout(d time.Duration) Option {
	return func(c *Context) {
		if d > 0 {
			c.logoutTimeout = d
		}
	}
}

// Context estado de empresa compartido por la aplicación.
type Context struct {
	api   repository.CompanyAPI
	sess  *session.Manager
	cache repository.KeyValueStore
	conn  repository.Connectivity
	log   *logger.Logger

	now             func() time.Time
	refreshInterval time.Duration
	logoutTimeout   time.Duration

	// authMu serializa login y renovación; refreshes coalesce llamadas simultáneas.
	authMu    sync.Mutex
	refreshes singleflight.Group

	mu           sync.RWMutex
	state        State
	gen          uint64 // cambia con cada login/logout; invalida resultados en vuelo
	company      *entity.Company
	subscription *entity.Subscription
	stopLoop     context.CancelFunc
	listeners    []func(State)

	loops   sync.WaitGroup
	logouts sync.WaitGroup
}

// NewContext crea el contexto en estado Unauthenticated. Llamar a Init para restaurar una
// sesión persistida.
func NewContext(api repository.CompanyAPI, sess *session.Manager, cache repository.KeyValueStore, conn repository.Connectivity, log *logger.Logger, opts ...Option) *Context {
	if log == nil {
		log = logger.Nop()
	}
	c := &Context{
		api:             api,
		sess:            sess,
		cache:           cache,
		conn:            conn,
		log:             log.Component("company"),
		now:             time.Now,
		refreshInterval: DefaultRefreshInterval,
		logoutTimeout:   DefaultLogoutTimeout,
		state:           StateUnauthenticated,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Init restaura la sesión persistida. Con token guardado intenta traer perfil y suscripción
// del directorio; si falla por cualquier motivo usa la caché local, y sin caché borra la
// sesión. Solo devuelve errores del almacén local.
func (c *Context) Init(ctx context.Context) error {
	tok, ok := c.sess.Token()
	if !ok {
		c.setState(StateUnauthenticated)
		return nil
	}

	var (
		company *entity.Company
		sub     *entity.Subscription
		err     = domain.ErrOffline
	)
	if c.conn.IsOnline() {
		company, sub, err = c.fetch(ctx, tok.AccessToken)
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("no se pudo consultar el directorio; se usa la caché local")
		company, sub, err = c.readCache()
		if err != nil {
			return err
		}
		if company == nil {
			c.log.Info().Msg("sin caché de empresa; se descarta la sesión guardada")
			if err := c.sess.Clear(); err != nil {
				return err
			}
			c.setState(StateUnauthenticated)
			return nil
		}
	} else if err := c.writeCache(company, sub); err != nil {
		return err
	}

	c.mu.Lock()
	c.gen++
	c.company, c.subscription = company, sub
	c.startLoopLocked()
	c.mu.Unlock()
	c.setState(StateAuthenticated)
	return nil
}

// VerifyCompanyIdentifier primer paso del login. No crea sesión.
func (c *Context) VerifyCompanyIdentifier(ctx context.Context, identifier string) Result {
	if !c.conn.IsOnline() {
		return failure(domain.ErrOffline)
	}
	prev := c.State()
	track := prev != StateAuthenticated
	if track {
		c.setState(StateVerifying)
	}
	company, err := c.api.VerifyIdentifier(ctx, identifier)
	if err != nil {
		if track {
			c.setState(StateUnauthenticated)
		}
		c.log.Debug().Err(err).Str("identifier", identifier).Msg("verificación de identificador fallida")
		return failure(err)
	}
	if track {
		c.setState(StateAwaitingPassword)
	}
	return Result{Success: true, Message: msgVerified, Company: company}
}

// LoginCompany intercambia credenciales por sesión, perfil y suscripción y los persiste.
func (c *Context) LoginCompany(ctx context.Context, identifier, password string) Result {
	if !c.conn.IsOnline() {
		return failure(domain.ErrOffline)
	}
	c.authMu.Lock()
	defer c.authMu.Unlock()

	prev := c.State()
	c.setState(StateAuthenticating)
	res, err := c.api.Login(ctx, identifier, password)
	if err != nil {
		c.setState(prev)
		c.log.Debug().Err(err).Str("identifier", identifier).Msg("login fallido")
		return failure(err)
	}

	company := res.Company
	c.mu.Lock()
	err = c.sess.Save(res.Tokens.AccessToken, res.Tokens.RefreshToken, res.Tokens.ExpiresIn)
	if err == nil {
		err = c.writeCache(&company, res.Subscription)
	}
	if err != nil {
		c.mu.Unlock()
		c.setState(prev)
		c.log.Error().Err(err).Msg("no se pudo guardar la sesión")
		return failure(err)
	}
	c.gen++
	c.company, c.subscription = &company, res.Subscription
	c.startLoopLocked()
	c.mu.Unlock()

	c.setState(StateAuthenticated)
	c.log.Info().Str("company_id", company.ID).Msg("sesión de empresa iniciada")
	return Result{Success: true, Message: msgLoggedIn, Company: &company}
}

// LogoutCompany borra de inmediato la sesión, la caché y el estado, detiene la renovación
// y lanza la invalidación remota en segundo plano con LogoutTimeout. Nunca bloquea.
func (c *Context) LogoutCompany() {
	tok, hadToken := c.sess.Token()

	c.mu.Lock()
	c.gen++
	c.company, c.subscription = nil, nil
	stop := c.stopLoop
	c.stopLoop = nil
	if err := c.sess.Clear(); err != nil {
		c.log.Error().Err(err).Msg("no se pudo borrar la sesión local")
	}
	for _, k := range []string{repository.CacheSelectedCompany, repository.CacheCompanySubscription} {
		if err := c.cache.Remove(k); err != nil {
			c.log.Error().Err(err).Str("key", k).Msg("no se pudo borrar la caché")
		}
	}
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
	c.setState(StateUnauthenticated)

	if !hadToken || !c.conn.IsOnline() {
		return
	}
	c.logouts.Add(1)
	go func() {
		defer c.logouts.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.logoutTimeout)
		defer cancel()
		if err := c.api.Logout(ctx, tok.AccessToken); err != nil {
			c.log.Warn().Err(err).Msg("logout remoto fallido")
		}
	}()
}

// RefreshCompanyData vuelve a traer perfil y suscripción y sobrescribe la caché. Sin
// conexión o sin sesión válida no hace nada; los errores solo se registran.
func (c *Context) RefreshCompanyData(ctx context.Context) {
	if !c.conn.IsOnline() || !c.sess.IsValid() {
		return
	}
	tok, ok := c.sess.Token()
	if !ok {
		return
	}
	gen := c.generation()
	company, sub, err := c.fetch(ctx, tok.AccessToken)
	if err != nil {
		c.log.Warn().Err(err).Msg("no se pudieron actualizar los datos de la empresa")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	if err := c.writeCache(company, sub); err != nil {
		c.log.Error().Err(err).Msg("no se pudo actualizar la caché de empresa")
		return
	}
	c.company, c.subscription = company, sub
}

// RefreshSession renueva el par de tokens si está por vencer. Las llamadas simultáneas
// comparten un único intento. Si el directorio falla se cierra la sesión y se
// devuelve ErrRefreshFailed.
func (c *Context) RefreshSession(ctx context.Context) error {
	_, err, _ := c.refreshes.Do("refresh", func() (any, error) {
		return nil, c.refresh(ctx)
	})
	return err
}

func (c *Context) refresh(ctx context.Context) error {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	tok, ok := c.sess.Token()
	if !ok {
		return domain.ErrUnauthorized
	}
	if !c.sess.NeedsRefresh() {
		return nil
	}
	if !c.conn.IsOnline() {
		return domain.ErrOffline
	}
	gen := c.generation()
	pair, err := c.api.RefreshToken(ctx, tok.RefreshToken)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Cualquier fallo de renovación deja la sesión irrecuperable.
		if !errors.Is(err, domain.ErrRefreshFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrRefreshFailed, err)
		}
		c.log.Warn().Err(err).Msg("renovación fallida; se cierra la sesión")
		if c.generation() == gen {
			c.LogoutCompany()
		}
		return err
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	err = c.sess.Save(pair.AccessToken, pair.RefreshToken, pair.ExpiresIn)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.log.Debug().Msg("token de empresa renovado")
	c.RefreshCompanyData(ctx)
	return nil
}

// startLoopLocked arranca (o reinicia) el bucle de renovación. Requiere c.mu.
func (c *Context) startLoopLocked() {
	if c.stopLoop != nil {
		c.stopLoop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.stopLoop = cancel
	c.loops.Add(1)
	go c.refreshLoop(ctx)
}

func (c *Context) refreshLoop(ctx context.Context) {
	defer c.loops.Done()
	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.sess.NeedsRefresh() || !c.conn.IsOnline() {
				continue
			}
			if err := c.RefreshSession(ctx); err != nil && ctx.Err() == nil {
				c.log.Warn().Err(err).Msg("renovación automática fallida")
			}
		}
	}
}

// Close detiene el bucle de renovación y espera los logouts remotos pendientes.
// No cierra la sesión.
func (c *Context) Close() {
	c.mu.Lock()
	stop := c.stopLoop
	c.stopLoop = nil
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
	c.loops.Wait()
	c.logouts.Wait()
}

func (c *Context) fetch(ctx context.Context, accessToken string) (*entity.Company, *entity.Subscription, error) {
	company, err := c.api.GetCompanyDetails(ctx, accessToken)
	if err != nil {
		return nil, nil, err
	}
	sub, err := c.api.GetSubscription(ctx, accessToken)
	if errors.Is(err, domain.ErrNotFound) {
		return company, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return company, sub, nil
}

func (c *Context) writeCache(company *entity.Company, sub *entity.Subscription) error {
	b, err := json.Marshal(company)
	if err != nil {
		return err
	}
	if err := c.cache.Set(repository.CacheSelectedCompany, string(b)); err != nil {
		return err
	}
	if sub == nil {
		return c.cache.Remove(repository.CacheCompanySubscription)
	}
	b, err = json.Marshal(sub)
	if err != nil {
		return err
	}
	return c.cache.Set(repository.CacheCompanySubscription, string(b))
}

// readCache devuelve nil sin error si no hay empresa en caché o no se puede decodificar.
func (c *Context) readCache() (*entity.Company, *entity.Subscription, error) {
	raw, ok, err := c.cache.Get(repository.CacheSelectedCompany)
	if err != nil || !ok {
		return nil, nil, err
	}
	var company entity.Company
	if err := json.Unmarshal([]byte(raw), &company); err != nil {
		c.log.Warn().Err(err).Msg("caché de empresa ilegible")
		return nil, nil, nil
	}
	raw, ok, err = c.cache.Get(repository.CacheCompanySubscription)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return &company, nil, nil
	}
	var sub entity.Subscription
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		c.log.Warn().Err(err).Msg("caché de suscripción ilegible")
		return &company, nil, nil
	}
	return &company, &sub, nil
}

func (c *Context) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

func (c *Context) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	ls := append([]func(State){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range ls {
		fn(s)
	}
}

// OnStateChange registra un listener; se invoca en cada transición. El paso a
// Unauthenticated equivale a volver a la pantalla de identificador.
func (c *Context) OnStateChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Context) IsOnline() bool { return c.conn.IsOnline() }

// Session token actual y su estado.
func (c *Context) Session() (entity.SessionToken, session.State) {
	tok, _ := c.sess.Token()
	return tok, c.sess.State()
}

// Company copia del perfil en memoria, nil sin sesión.
func (c *Context) Company() *entity.Company {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.company == nil {
		return nil
	}
	cp := *c.company
	return &cp
}

// Subscription copia de la suscripción en memoria, nil si no hay.
func (c *Context) Subscription() *entity.Subscription {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.subscription == nil {
		return nil
	}
	cp := *c.subscription
	cp.Features = slices.Clone(cp.Features)
	cp.Limits = maps.Clone(cp.Limits)
	return &cp
}

func (c *Context) IsSubscriptionValid() bool {
	sub := c.Subscription()
	return sub != nil && sub.IsValid(c.now())
}

func (c *Context) GetDaysRemaining() int {
	sub := c.Subscription()
	if sub == nil {
		return 0
	}
	return sub.DaysRemaining(c.now())
}

func (c *Context) HasFeature(name string) bool {
	sub := c.Subscription()
	return sub != nil && sub.HasFeature(name)
}

// CheckLimit false sin suscripción; sin límite configurado para kind, true.
func (c *Context) CheckLimit(kind string, current int) bool {
	sub := c.Subscription()
	return sub != nil && sub.CheckLimit(kind, current)
}
