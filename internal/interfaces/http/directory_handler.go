package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/erp-offline/internal/application/dto"
	"github.com/jhoicas/erp-offline/internal/domain/repository"
)

// DirectoryHandler expone un directorio de empresas con el formato que consume
// companyapi.Client, de modo que una instancia puede servir de directorio a otras.
type DirectoryHandler struct {
	api repository.CompanyAPI
}

// NewDirectoryHandler construye el handler.
func NewDirectoryHandler(api repository.CompanyAPI) *DirectoryHandler {
	return &DirectoryHandler{api: api}
}

// Verify GET /api/companies/verify/:identifier
func (h *DirectoryHandler) Verify(c *fiber.Ctx) error {
	company, err := h.api.VerifyIdentifier(c.UserContext(), c.Params("identifier"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(company)
}

// Login POST /api/companies/login
func (h *DirectoryHandler) Login(c *fiber.Ctx) error {
	var in dto.CompanyLoginRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeInvalidBody, Message: "cuerpo inválido"})
	}
	res, err := h.api.Login(c.UserContext(), in.Identifier, in.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.CompanyLoginResponse{
		Company:      res.Company,
		Subscription: res.Subscription,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		ExpiresIn:    res.Tokens.ExpiresIn,
	})
}

// Logout POST /api/companies/logout (Bearer)
func (h *DirectoryHandler) Logout(c *fiber.Ctx) error {
	token, failure := bearerToken(c)
	if failure != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(failure)
	}
	if err := h.api.Logout(c.UserContext(), token); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Me GET /api/companies/me (Bearer)
func (h *DirectoryHandler) Me(c *fiber.Ctx) error {
	token, failure := bearerToken(c)
	if failure != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(failure)
	}
	company, err := h.api.GetCompanyDetails(c.UserContext(), token)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(company)
}

// Subscription GET /api/companies/me/subscription (Bearer)
func (h *DirectoryHandler) Subscription(c *fiber.Ctx) error {
	token, failure := bearerToken(c)
	if failure != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(failure)
	}
	sub, err := h.api.GetSubscription(c.UserContext(), token)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(sub)
}

// Refresh POST /api/companies/refresh
func (h *DirectoryHandler) Refresh(c *fiber.Ctx) error {
	var in dto.RefreshTokenRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeInvalidBody, Message: "cuerpo inválido"})
	}
	pair, err := h.api.RefreshToken(c.UserContext(), in.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(pair)
}
