package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/erp-offline/internal/application/dto"
	"github.com/jhoicas/erp-offline/internal/domain/schema"
)

// featureChecker es el contrato mínimo que necesita el middleware para verificar módulos.
// Lo implementa *company.Context.
type featureChecker interface {
	IsSubscriptionValid() bool
	HasFeature(name string) bool
}

// RequireFeature verifica que la suscripción en caché habilite el módulo que protege la
// colección de la ruta (schema Feature). Debe usarse DESPUÉS de RequireSession.
//
// Comportamiento:
//   - 404 → colección desconocida o interna.
//   - 403 SUBSCRIPTION_INVALID → suscripción vencida o inexistente.
//   - 403 FEATURE_DISABLED → módulo no contratado.
//   - Colecciones sin Feature pasan siempre.
func RequireFeature(reg *schema.Registry, checker featureChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cs, ok := publicSchema(reg, c.Params("collection"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Code:    dto.CodeUnknownCollection,
				Message: "colección desconocida: " + c.Params("collection"),
			})
		}
		if cs.Feature == "" {
			return c.Next()
		}
		if !checker.IsSubscriptionValid() {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "SUBSCRIPTION_INVALID",
				Message: "la suscripción de la empresa no está vigente",
			})
		}
		if !checker.HasFeature(cs.Feature) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    dto.CodeFeatureDisabled,
				Message: "el módulo '" + cs.Feature + "' no está activo para esta empresa",
			})
		}
		return c.Next()
	}
}
