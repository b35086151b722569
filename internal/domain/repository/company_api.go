package repository

import (
	"context"

	"github.com/jhoicas/erp-offline/internal/domain/entity"
)

// CompanyAPI directorio de empresas (remoto vía HTTP o local en proceso).
// Las implementaciones devuelven los errores de dominio ErrInvalidIdentifier,
// ErrCompanyInactive, ErrInvalidCredentials, ErrRefreshFailed y ErrUnauthorized.
type CompanyAPI interface {
	VerifyIdentifier(ctx context.Context, identifier string) (*entity.Company, error)
	Login(ctx context.Context, identifier, password string) (*entity.LoginResult, error)
	Logout(ctx context.Context, accessToken string) error
	GetCompanyDetails(ctx context.Context, accessToken string) (*entity.Company, error)
	GetSubscription(ctx context.Context, accessToken string) (*entity.Subscription, error)
	RefreshToken(ctx context.Context, refreshToken string) (*entity.TokenPair, error)
}

// Connectivity señal de conectividad (online/offline).
type Connectivity interface {
	IsOnline() bool
}
