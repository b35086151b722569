// Package session gestiona el par de tokens de la sesión de empresa y su vencimiento,
// persistido en el almacén local clave/valor.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jhoicas/erp-offline/internal/domain/entity"
	"github.com/jhoicas/erp-offline/internal/domain/repository"
)

// Claves persistidas en el almacén local.
const (
	KeyAccessToken  = "company_access_token"
	KeyRefreshToken = "company_refresh_token"
	KeyExpiresAt    = "company_token_expires_at"
)

// DefaultLead ventana previa al vencimiento en la que conviene renovar.
const DefaultLead = 5 * time.Minute

// State estado observable del token.
type State string

const (
	StateAbsent       State = "absent"
	StateValid        State = "valid"
	StateNeedsRefresh State = "needs_refresh"
	StateExpired      State = "expired"
)

// Option configura el Manager.
type Option func(*Manager)

// WithClock reemplaza el reloj (pruebas).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLead cambia la ventana de renovación anticipada.
func WithLead(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.lead = d
		}
	}
}

// Manager token de sesión en memoria respaldado por el almacén local.
type Manager struct {
	store repository.KeyValueStore
	now   func() time.Time
	lead  time.Duration

	mu    sync.RWMutex
	token *entity.SessionToken
}

// New crea el manager y carga la sesión persistida, si la hay. Una sesión persistida
// incompleta o ilegible se descarta.
func New(store repository.KeyValueStore, opts ...Option) (*Manager, error) {
	m := &Manager{store: store, now: time.Now, lead: DefaultLead}
	for _, o := range opts {
		o(m)
	}
	tok, err := m.load()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		if err := m.erase(); err != nil {
			return nil, err
		}
	}
	m.token = tok
	return m, nil
}

func (m *Manager) load() (*entity.SessionToken, error) {
	access, okA, err := m.store.Get(KeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("session: leer access token: %w", err)
	}
	refresh, okR, err := m.store.Get(KeyRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("session: leer refresh token: %w", err)
	}
	rawExp, okE, err := m.store.Get(KeyExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("session: leer vencimiento: %w", err)
	}
	if !okA || !okR || !okE || access == "" {
		return nil, nil
	}
	exp, err := strconv.ParseInt(rawExp, 10, 64)
	if err != nil {
		return nil, nil
	}
	return &entity.SessionToken{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

// Save guarda un par nuevo con vencimiento now + expiresInSeconds.
func (m *Manager) Save(access, refresh string, expiresInSeconds int64) error {
	if access == "" {
		return errors.New("session: access token vacío")
	}
	tok := &entity.SessionToken{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    m.now().Add(time.Duration(expiresInSeconds) * time.Second).UnixMilli(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, kv := range [][2]string{
		{KeyAccessToken, tok.AccessToken},
		{KeyRefreshToken, tok.RefreshToken},
		{KeyExpiresAt, strconv.FormatInt(tok.ExpiresAt, 10)},
	} {
		if err := m.store.Set(kv[0], kv[1]); err != nil {
			return fmt.Errorf("session: guardar %s: %w", kv[0], err)
		}
	}
	m.token = tok
	return nil
}

// IsValid hay token y now < expiresAt.
func (m *Manager) IsValid() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != nil && m.now().Before(m.token.ExpiresAtTime())
}

// NeedsRefresh hay token y now ≥ expiresAt − lead. Sigue siendo true después del
// vencimiento: el refresh token puede seguir sirviendo.
func (m *Manager) NeedsRefresh() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != nil && !m.now().Before(m.token.ExpiresAtTime().Add(-m.lead))
}

// State resume IsValid/NeedsRefresh.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return StateAbsent
	}
	now, exp := m.now(), m.token.ExpiresAtTime()
	switch {
	case !now.Before(exp):
		return StateExpired
	case !now.Before(exp.Add(-m.lead)):
		return StateNeedsRefresh
	default:
		return StateValid
	}
}

// Token copia del token actual.
func (m *Manager) Token() (entity.SessionToken, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return entity.SessionToken{}, false
	}
	return *m.token, true
}

// Clear borra la sesión en memoria y en el almacén.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
	return m.erase()
}

func (m *Manager) erase() error {
	var errs []error
	for _, k := range []string{KeyAccessToken, KeyRefreshToken, KeyExpiresAt} {
		if err := m.store.Remove(k); err != nil {
			errs = append(errs, fmt.Errorf("session: borrar %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}
