package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/erp-offline/internal/application/company"
	"github.com/jhoicas/erp-offline/internal/domain/repository"
	"github.com/jhoicas/erp-offline/internal/domain/schema"
	"github.com/jhoicas/erp-offline/internal/infrastructure/storage"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Store    storage.Store
	Registry *schema.Registry
	Company  *company.Context
	// Directory si no es nil se sirve en /api/companies para otras instancias.
	Directory repository.CompanyAPI
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Directorio de empresas (público, formato de companyapi.Client)
	if deps.Directory != nil {
		companies := api.Group("/companies")
		directoryHandler := NewDirectoryHandler(deps.Directory)
		companies.Get("/verify/:identifier", directoryHandler.Verify)
		companies.Post("/login", directoryHandler.Login)
		companies.Post("/logout", directoryHandler.Logout)
		companies.Get("/me", directoryHandler.Me)
		companies.Get("/me/subscription", directoryHandler.Subscription)
		companies.Post("/refresh", directoryHandler.Refresh)
	}

	// Sesión de empresa de esta instancia (público)
	sessionGroup := api.Group("/session")
	sessionHandler := NewSessionHandler(deps.Company)
	sessionGroup.Post("/verify", sessionHandler.Verify)
	sessionGroup.Post("/login", sessionHandler.Login)
	sessionGroup.Post("/logout", sessionHandler.Logout)
	sessionGroup.Post("/refresh", sessionHandler.Refresh)
	sessionGroup.Get("/status", sessionHandler.Status)

	// Colecciones (requieren sesión; cada colección exige su módulo)
	collectionHandler := NewCollectionHandler(deps.Store, deps.Registry, deps.Company)
	collections := api.Group("/collections", RequireSession(deps.Company))
	collections.Get("/", collectionHandler.Collections)

	feature := RequireFeature(deps.Registry, deps.Company)
	collections.Get("/:collection", feature, collectionHandler.List)
	collections.Post("/:collection", feature, collectionHandler.Create)
	collections.Get("/:collection/index/:index", feature, collectionHandler.QueryByIndex)
	collections.Get("/:collection/:key", feature, collectionHandler.Get)
	collections.Patch("/:collection/:key", feature, collectionHandler.Update)
	collections.Put("/:collection/:key", feature, collectionHandler.Replace)
	collections.Delete("/:collection/:key", feature, collectionHandler.Delete)
}
