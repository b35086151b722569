package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/erp-offline/internal/application/dto"
	"github.com/jhoicas/erp-offline/internal/domain"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings orden de evaluación de errors.Is; el primero que coincide gana.
var errorMappings = []errorMapping{
	{domain.ErrUnknownCollection, fiber.StatusNotFound, dto.CodeUnknownCollection},
	{domain.ErrUnknownIndex, fiber.StatusNotFound, dto.CodeUnknownIndex},
	{domain.ErrNotFound, fiber.StatusNotFound, dto.CodeNotFound},
	{domain.ErrDuplicateKey, fiber.StatusConflict, dto.CodeDuplicateKey},
	{domain.ErrUniqueIndexViolation, fiber.StatusConflict, dto.CodeUniqueViolation},
	{domain.ErrInvalidRecord, fiber.StatusBadRequest, dto.CodeInvalidRecord},
	{domain.ErrLimitReached, fiber.StatusForbidden, dto.CodeLimitReached},
	{domain.ErrNotOpen, fiber.StatusServiceUnavailable, dto.CodeUnavailable},
	{domain.ErrOffline, fiber.StatusServiceUnavailable, dto.CodeOffline},
	{domain.ErrInvalidIdentifier, fiber.StatusNotFound, dto.CodeInvalidIdentifier},
	{domain.ErrCompanyInactive, fiber.StatusForbidden, dto.CodeCompanyInactive},
	{domain.ErrInvalidCredentials, fiber.StatusUnauthorized, dto.CodeInvalidCredentials},
	{domain.ErrRefreshFailed, fiber.StatusUnauthorized, dto.CodeRefreshFailed},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, dto.CodeUnauthorized},
}

// statusFor traduce un error de dominio a código HTTP y código de error.
func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return fiber.StatusInternalServerError, dto.CodeInternal
}

// writeError responde con dto.ErrorResponse según el error de dominio.
func writeError(c *fiber.Ctx, err error) error {
	status, code := statusFor(err)
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}
