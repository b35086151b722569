package dto

import "github.com/jhoicas/erp-offline/internal/domain/entity"

// Códigos de error del directorio de empresas (campo code de ErrorResponse).
const (
	CodeInvalidIdentifier  = "INVALID_IDENTIFIER"
	CodeCompanyInactive    = "COMPANY_INACTIVE"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeRefreshFailed      = "REFRESH_FAILED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidBody        = "INVALID_BODY"
	CodeInternal           = "INTERNAL"
)

// CompanyLoginRequest body para POST /api/companies/login.
type CompanyLoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// CompanyLoginResponse respuesta de login: perfil, suscripción y par de tokens.
type CompanyLoginResponse struct {
	Company      entity.Company       `json:"company"`
	Subscription *entity.Subscription `json:"subscription,omitempty"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	ExpiresIn    int64                `json:"expires_in"` // segundos
}

// RefreshTokenRequest body para POST /api/companies/refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RegisterCompanyRequest alta de una empresa en el directorio local.
type RegisterCompanyRequest struct {
	Company      entity.Company      `json:"company"`
	Password     string              `json:"password"`
	Subscription entity.Subscription `json:"subscription"`
}
