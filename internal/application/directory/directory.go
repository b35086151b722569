// Package directory implementa en proceso el directorio de empresas (repository.CompanyAPI)
// sobre el motor de almacenamiento local: empresas con contraseña bcrypt, suscripciones
// y tokens JWT de acceso/renovación con revocación por jti.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"

	"github.com/jhoicas/erp-offline/internal/domain"
	"github.com/jhoicas/erp-offline/internal/domain/entity"
	"github.com/jhoicas/erp-offline/internal/domain/repository"
	"github.com/jhoicas/erp-offline/internal/domain/schema"
	"github.com/jhoicas/erp-offline/internal/infrastructure/storage"
	"github.com/jhoicas/erp-offline/pkg/jwt"
	"github.com/jhoicas/erp-offline/pkg/logger"
)

// Config parámetros de emisión de tokens.
type Config struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int // 0 = bcrypt.DefaultCost
}

// companyRecord forma persistida de una empresa del directorio.
type companyRecord struct {
	entity.Company
	PasswordHash string `json:"passwordHash"`
}

type revokedToken struct {
	JTI       string    `json:"jti"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Directory directorio local de empresas.
type Directory struct {
	cfg           Config
	log           *logger.Logger
	companies     *storage.Collection[companyRecord]
	subscriptions *storage.Collection[entity.Subscription]
	revoked       *storage.Collection[revokedToken]
}

var _ repository.CompanyAPI = (*Directory)(nil)

// New crea el directorio sobre store (las colecciones directory_* deben existir en el esquema).
func New(store storage.Store, cfg Config, log *logger.Logger) (*Directory, error) {
	if cfg.Secret == "" {
		return nil, errors.New("directory: secret JWT vacío")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Directory{
		cfg:           cfg,
		log:           log.Component("directory"),
		companies:     storage.For[companyRecord](store, schema.DirectoryCompanies),
		subscriptions: storage.For[entity.Subscription](store, schema.DirectorySubscriptions),
		revoked:       storage.For[revokedToken](store, schema.DirectoryRevokedTokens),
	}, nil
}

// NormalizeIdentifier forma canónica del identificador: sin espacios y con plegado de
// mayúsculas Unicode ("AlFalah" y "alfalah" son la misma empresa).
func NormalizeIdentifier(id string) string {
	return cases.Fold().String(strings.TrimSpace(id))
}

// RegisterCompany da de alta una empresa con su contraseña y suscripción.
func (d *Directory) RegisterCompany(ctx context.Context, company entity.Company, password string, sub entity.Subscription) (*entity.Company, error) {
	company.Identifier = NormalizeIdentifier(company.Identifier)
	if company.Identifier == "" {
		return nil, fmt.Errorf("directory: %w: identificador vacío", domain.ErrInvalidRecord)
	}
	if password == "" {
		return nil, fmt.Errorf("directory: %w: contraseña vacía", domain.ErrInvalidRecord)
	}
	if company.ID == "" {
		company.ID = uuid.NewString()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("directory: hash de contraseña: %w", err)
	}

	if _, err := d.companies.Add(ctx, &companyRecord{Company: company, PasswordHash: string(hash)}); err != nil {
		return nil, fmt.Errorf("directory: registrar %q: %w", company.Identifier, err)
	}
	sub.CompanyID = company.ID
	if _, err := d.subscriptions.Put(ctx, &sub); err != nil {
		if delErr := d.companies.Delete(ctx, company.ID); delErr != nil {
			d.log.Error().Err(delErr).Str("company_id", company.ID).Msg("no se pudo deshacer el alta de la empresa")
		}
		return nil, fmt.Errorf("directory: guardar suscripción de %q: %w", company.Identifier, err)
	}
	d.log.Info().Str("company_id", company.ID).Str("identifier", company.Identifier).Msg("empresa registrada")
	return &company, nil
}

// SetSubscription reemplaza la suscripción de una empresa existente.
func (d *Directory) SetSubscription(ctx context.Context, companyID string, sub entity.Subscription) error {
	if _, err := d.companies.Get(ctx, companyID); err != nil {
		return err
	}
	sub.CompanyID = companyID
	_, err := d.subscriptions.Put(ctx, &sub)
	return err
}

// SetActive activa o desactiva una empresa.
func (d *Directory) SetActive(ctx context.Context, companyID string, active bool) error {
	_, err := d.companies.Update(ctx, companyID, storage.Record{"isActive": active})
	return err
}

func (d *Directory) findByIdentifier(ctx context.Context, identifier string) (*companyRecord, error) {
	norm := NormalizeIdentifier(identifier)
	if norm == "" {
		return nil, domain.ErrInvalidIdentifier
	}
	found, err := d.companies.QueryByIndex(ctx, "identifier", norm)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.ErrInvalidIdentifier
	}
	return &found[0], nil
}

func (d *Directory) VerifyIdentifier(ctx context.Context, identifier string) (*entity.Company, error) {
	rec, err := d.findByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !rec.IsActive {
		return nil, domain.ErrCompanyInactive
	}
	company := rec.Company
	return &company, nil
}

func (d *Directory) Login(ctx context.Context, identifier, password string) (*entity.LoginResult, error) {
	rec, err := d.findByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !rec.IsActive {
		return nil, domain.ErrCompanyInactive
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	pair, err := d.issue(rec.ID)
	if err != nil {
		return nil, err
	}
	sub, err := d.subscription(ctx, rec.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	d.log.Info().Str("company_id", rec.ID).Msg("login de empresa")
	return &entity.LoginResult{Company: rec.Company, Subscription: sub, Tokens: *pair}, nil
}

func (d *Directory) Logout(ctx context.Context, accessToken string) error {
	claims, err := d.authenticate(ctx, accessToken, jwt.TypeAccess)
	if err != nil {
		return err
	}
	return d.revoke(ctx, claims)
}

func (d *Directory) GetCompanyDetails(ctx context.Context, accessToken string) (*entity.Company, error) {
	claims, err := d.authenticate(ctx, accessToken, jwt.TypeAccess)
	if err != nil {
		return nil, err
	}
	rec, err := d.companies.Get(ctx, claims.CompanyID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !rec.IsActive {
		return nil, domain.ErrCompanyInactive
	}
	company := rec.Company
	return &company, nil
}

func (d *Directory) GetSubscription(ctx context.Context, accessToken string) (*entity.Subscription, error) {
	claims, err := d.authenticate(ctx, accessToken, jwt.TypeAccess)
	if err != nil {
		return nil, err
	}
	return d.subscription(ctx, claims.CompanyID)
}

// RefreshToken rota el par: el refresh token usado queda revocado.
func (d *Directory) RefreshToken(ctx context.Context, refreshToken string) (*entity.TokenPair, error) {
	claims, err := d.authenticate(ctx, refreshToken, jwt.TypeRefresh)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return nil, fmt.Errorf("%w: %v", domain.ErrRefreshFailed, err)
		}
		return nil, err
	}
	rec, err := d.companies.Get(ctx, claims.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("%w: empresa no encontrada", domain.ErrRefreshFailed)
	}
	if !rec.IsActive {
		return nil, fmt.Errorf("%w: %v", domain.ErrRefreshFailed, domain.ErrCompanyInactive)
	}
	if err := d.revoke(ctx, claims); err != nil {
		return nil, err
	}
	return d.issue(claims.CompanyID)
}

func (d *Directory) subscription(ctx context.Context, companyID string) (*entity.Subscription, error) {
	sub, err := d.subscriptions.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (d *Directory) issue(companyID string) (*entity.TokenPair, error) {
	access, err := jwt.Generate(d.cfg.Secret, companyID, jwt.TypeAccess, d.cfg.Issuer, d.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("directory: emitir access token: %w", err)
	}
	refresh, err := jwt.Generate(d.cfg.Secret, companyID, jwt.TypeRefresh, d.cfg.Issuer, d.cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("directory: emitir refresh token: %w", err)
	}
	return &entity.TokenPair{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		ExpiresIn:    int64(d.cfg.AccessTTL / time.Second),
	}, nil
}

// authenticate valida el token y que no haya sido revocado. Cualquier token inválido es
// ErrUnauthorized; los errores de almacenamiento se devuelven tal cual.
func (d *Directory) authenticate(ctx context.Context, token, tokenType string) (*jwt.Claims, error) {
	claims, err := jwt.Parse(d.cfg.Secret, token, tokenType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	_, err = d.revoked.Get(ctx, claims.ID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: token revocado", domain.ErrUnauthorized)
	case errors.Is(err, domain.ErrNotFound):
		return claims, nil
	default:
		return nil, err
	}
}

func (d *Directory) revoke(ctx context.Context, claims *jwt.Claims) error {
	rt := &revokedToken{JTI: claims.ID}
	if claims.ExpiresAt != nil {
		rt.ExpiresAt = claims.ExpiresAt.Time
	}
	if _, err := d.revoked.Put(ctx, rt); err != nil {
		return fmt.Errorf("directory: revocar token: %w", err)
	}
	return nil
}
