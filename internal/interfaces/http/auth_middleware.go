package http

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/erp-offline/internal/application/company"
	"github.com/jhoicas/erp-offline/internal/application/dto"
	"github.com/jhoicas/erp-offline/internal/application/session"
	"github.com/jhoicas/erp-offline/internal/domain/entity"
)

// Locals keys en Fiber.
const (
	LocalCompanyID   = "company_id"
	LocalAccessToken = "access_token"
)

// sessionSource es lo mínimo que necesita el middleware; lo implementa *company.Context.
type sessionSource interface {
	State() company.State
	Session() (entity.SessionToken, session.State)
	Company() *entity.Company
}

// bearerToken extrae el token del header Authorization.
func bearerToken(c *fiber.Ctx) (string, *dto.ErrorResponse) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", &dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"}
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", &dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"}
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", &dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"}
	}
	return tokenString, nil
}

// RequireSession exige una sesión de empresa autenticada y que el Bearer coincida con el
// access token vigente (no vencido) de esa sesión. Carga company_id y el token en c.Locals.
func RequireSession(src sessionSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, failure := bearerToken(c)
		if failure != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(failure)
		}
		tok, state := src.Session()
		profile := src.Company()
		if src.State() != company.StateAuthenticated || profile == nil || state == session.StateAbsent || tok.AccessToken == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: dto.CodeUnauthorized, Message: "no hay sesión de empresa activa"})
		}
		if state == session.StateExpired || subtle.ConstantTimeCompare([]byte(tokenString), []byte(tok.AccessToken)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalCompanyID, profile.ID)
		c.Locals(LocalAccessToken, tokenString)
		return c.Next()
	}
}

// GetCompanyID devuelve el CompanyID del contexto (después de RequireSession).
func GetCompanyID(c *fiber.Ctx) string {
	v := c.Locals(LocalCompanyID)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
