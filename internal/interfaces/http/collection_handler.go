package http

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/jhoicas/erp-offline/internal/application/dto"
	"github.com/jhoicas/erp-offline/internal/domain"
	"github.com/jhoicas/erp-offline/internal/domain/schema"
	"github.com/jhoicas/erp-offline/internal/infrastructure/storage"
)

// internalPrefix colecciones que no se exponen por la API genérica (directorio local).
const internalPrefix = "directory_"

// limitChecker lo implementa *company.Context.
type limitChecker interface {
	CheckLimit(kind string, current int) bool
}

// CollectionHandler CRUD genérico sobre las colecciones del esquema (protegido).
type CollectionHandler struct {
	store  storage.Store
	reg    *schema.Registry
	limits limitChecker
}

// NewCollectionHandler construye el handler.
func NewCollectionHandler(store storage.Store, reg *schema.Registry, limits limitChecker) *CollectionHandler {
	return &CollectionHandler{store: store, reg: reg, limits: limits}
}

func publicSchema(reg *schema.Registry, name string) (schema.CollectionSchema, bool) {
	if strings.HasPrefix(name, internalPrefix) {
		return schema.CollectionSchema{}, false
	}
	cs, err := reg.GetSchema(name)
	if err != nil {
		return schema.CollectionSchema{}, false
	}
	return cs, true
}

func unknownCollection(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: dto.CodeUnknownCollection, Message: "colección desconocida: " + c.Params("collection")})
}

// parseKey las claves numéricas de colecciones autoincrementales viajan como número.
// raw se copia: los parámetros de Fiber solo son válidos durante el handler.
func parseKey(cs schema.CollectionSchema, raw string) any {
	raw = utils.CopyString(raw)
	if cs.AutoIncrement {
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	}
	return raw
}

// scalarValue interpreta raw como número o booleano JSON.
func scalarValue(raw string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case float64, bool:
		return v, true
	}
	return nil, false
}

// Collections lista las colecciones con su conteo.
// GET /api/collections
func (h *CollectionHandler) Collections(c *fiber.Ctx) error {
	out := make([]dto.CollectionInfo, 0, len(h.reg.ListCollectionNames()))
	for _, name := range h.reg.ListCollectionNames() {
		cs, ok := publicSchema(h.reg, name)
		if !ok {
			continue
		}
		n, err := h.store.Count(c.UserContext(), name)
		if err != nil {
			return writeError(c, err)
		}
		indices := make([]string, 0, len(cs.Indices))
		for _, ix := range cs.Indices {
			indices = append(indices, ix.Name)
		}
		out = append(out, dto.CollectionInfo{
			Name:          cs.Name,
			PrimaryKey:    cs.PrimaryKey,
			AutoIncrement: cs.AutoIncrement,
			Indices:       indices,
			Feature:       cs.Feature,
			Count:         n,
		})
	}
	return c.JSON(out)
}

// List registros en orden de inserción, paginados con limit/offset.
// GET /api/collections/:collection
func (h *CollectionHandler) List(c *fiber.Ctx) error {
	cs, ok := publicSchema(h.reg, c.Params("collection"))
	if !ok {
		return unknownCollection(c)
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "limit/offset inválidos"})
	}
	page.DefaultPage()
	all, err := h.store.GetAll(c.UserContext(), cs.Name)
	if err != nil {
		return writeError(c, err)
	}
	from, to := page.Bounds(len(all))
	items := make([]map[string]any, 0, to-from)
	for _, rec := range all[from:to] {
		items = append(items, rec)
	}
	return c.JSON(dto.RecordListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(all)},
	})
}

// Create inserta un registro. Si la colección tiene LimitKind se valida contra la suscripción.
// POST /api/collections/:collection
func (h *CollectionHandler) Create(c *fiber.Ctx) error {
	cs, ok := publicSchema(h.reg, c.Params("collection"))
	if !ok {
		return unknownCollection(c)
	}
	var in storage.Record
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeInvalidBody, Message: "cuerpo inválido"})
	}
	var (
		out storage.Record
		err error
	)
	if cs.LimitKind != "" {
		out, err = h.store.AddWithin(c.UserContext(), cs.Name, in, func(n int) bool {
			return h.limits.CheckLimit(cs.LimitKind, n)
		})
		if errors.Is(err, domain.ErrLimitReached) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    dto.CodeLimitReached,
				Message: "se alcanzó el límite de '" + cs.LimitKind + "' de la suscripción",
			})
		}
	} else {
		out, err = h.store.Add(c.UserContext(), cs.Name, in)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Get GET /api/collections/:collection/:key
func (h *CollectionHandler) Get(c *fiber.Ctx) error {
	cs, ok := publicSchema(h.reg, c.Params("collection"))
	if !ok {
		return unknownCollection(c)
	}
	out, err := h.store.Get(c.UserContext(), cs.Name, parseKey(cs, c.Params("key")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Update parche parcial. PATCH /api/collections/:collection/:key
func (h *CollectionHandler) Update(c *fiber.Ctx) error {
	cs, ok := publicSchema(h.reg, c.Params("collection"))
	if !ok {
		return unknownCollection(c)
	}
	var patch storage.Record
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeInvalidBody, Message: "cuerpo inválido"})
	}
	out, err := h.store.Update(c.UserContext(), cs.Name, parseKey(cs, c.Params("key")), patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Replace inserta o reemplaza el registro completo con la clave de la ruta.
// PUT /api/collections/:collection/:key
func (h *CollectionHandler) Replace(c *fiber.Ctx) error {
	cs, ok := publicSchema(h.reg, c.Params("collection"))
	if !ok {
		return unknownCollection(c)
	}
	var in storage.Record
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeInvalidBody, Message: "cuerpo inválido"})
	}
	if in == nil {
		in = storage.Record{}
	}
	in[cs.PrimaryKey] = parseKey(cs, c.Params("key"))
	out, err := h.store.Put(c.UserContext(), cs.Name, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete DELETE /api/collections/:collection/:key
func (h *CollectionHandler) Delete(c *fiber.Ctx) error {
	cs, ok := publicSchema(h.reg, c.Params("collection"))
	if !ok {
		return unknownCollection(c)
	}
	if err := h.store.Delete(c.UserContext(), cs.Name, parseKey(cs, c.Params("key"))); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// QueryByIndex GET /api/collections/:collection/index/:index?value=
func (h *CollectionHandler) QueryByIndex(c *fiber.Ctx) error {
	cs, ok := publicSchema(h.reg, c.Params("collection"))
	if !ok {
		return unknownCollection(c)
	}
	raw := utils.CopyString(c.Query("value"))
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_VALUE", Message: "value es requerido"})
	}
	// El valor llega como texto: primero se busca literal y, sin coincidencias, como
	// número o booleano.
	recs, err := h.store.QueryByIndex(c.UserContext(), cs.Name, c.Params("index"), raw)
	if err != nil {
		return writeError(c, err)
	}
	if v, ok := scalarValue(raw); ok && len(recs) == 0 {
		if recs, err = h.store.QueryByIndex(c.UserContext(), cs.Name, c.Params("index"), v); err != nil {
			return writeError(c, err)
		}
	}
	items := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		items = append(items, rec)
	}
	return c.JSON(dto.RecordListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: len(items), Total: len(items)},
	})
}
