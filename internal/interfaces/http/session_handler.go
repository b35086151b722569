package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/erp-offline/internal/application/company"
	"github.com/jhoicas/erp-offline/internal/application/dto"
	"github.com/jhoicas/erp-offline/internal/application/session"
)

// SessionHandler flujo de login de empresa de esta instancia (identificador, contraseña,
// logout, renovación y estado).
type SessionHandler struct {
	company *company.Context
}

// NewSessionHandler construye el handler.
func NewSessionHandler(cc *company.Context) *SessionHandler {
	return &SessionHandler{company: cc}
}

func respondResult(c *fiber.Ctx, res company.Result) error {
	status := fiber.StatusOK
	if !res.Success {
		status, _ = statusFor(res.Err)
	}
	return c.Status(status).JSON(dto.ResultResponse{Success: res.Success, Message: res.Message, Company: res.Company})
}

// Verify POST /api/session/verify
func (h *SessionHandler) Verify(c *fiber.Ctx) error {
	var in dto.VerifyIdentifierRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeInvalidBody, Message: "cuerpo inválido"})
	}
	if in.Identifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "identifier es requerido"})
	}
	return respondResult(c, h.company.VerifyCompanyIdentifier(c.UserContext(), in.Identifier))
}

// Login POST /api/session/login
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var in dto.SessionLoginRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeInvalidBody, Message: "cuerpo inválido"})
	}
	if in.Identifier == "" || in.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "identifier y password son requeridos"})
	}
	res := h.company.LoginCompany(c.UserContext(), in.Identifier, in.Password)
	if !res.Success {
		return respondResult(c, res)
	}
	tok, _ := h.company.Session()
	return c.JSON(dto.ResultResponse{Success: true, Message: res.Message, Company: res.Company, AccessToken: tok.AccessToken})
}

// Logout POST /api/session/logout. Siempre termina localmente.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	h.company.LogoutCompany()
	return c.SendStatus(fiber.StatusNoContent)
}

// Refresh POST /api/session/refresh
func (h *SessionHandler) Refresh(c *fiber.Ctx) error {
	if err := h.company.RefreshSession(c.UserContext()); err != nil {
		return writeError(c, err)
	}
	return h.Status(c)
}

// Status GET /api/session/status
func (h *SessionHandler) Status(c *fiber.Ctx) error {
	tok, state := h.company.Session()
	out := dto.SessionStatusResponse{
		State:             string(h.company.State()),
		Token:             string(state),
		AccessToken:       tok.AccessToken,
		Online:            h.company.IsOnline(),
		Company:           h.company.Company(),
		Subscription:      h.company.Subscription(),
		SubscriptionValid: h.company.IsSubscriptionValid(),
		DaysRemaining:     h.company.GetDaysRemaining(),
	}
	if state != session.StateAbsent {
		exp := tok.ExpiresAtTime().UTC()
		out.ExpiresAt = &exp
	}
	return c.JSON(out)
}
