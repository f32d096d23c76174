package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/suministros-api/internal/application/dto"
	"github.com/jhoicas/suministros-api/internal/application/inventory"
	"github.com/jhoicas/suministros-api/internal/application/usecase"
	"github.com/jhoicas/suministros-api/internal/domain"
)

// ItemHandler maneja las peticiones HTTP del catálogo de artículos (protegido).
type ItemHandler struct {
	uc         *usecase.ItemUseCase
	projection *inventory.ProjectionUseCase
}

// NewItemHandler construye el handler.
func NewItemHandler(uc *usecase.ItemUseCase, projection *inventory.ProjectionUseCase) *ItemHandler {
	return &ItemHandler{uc: uc, projection: projection}
}

// Create godoc
// @Summary      Crear artículo
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateItemRequest  true  "Datos del artículo"
// @Success      201   {object}  dto.ItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/items [post]
func (h *ItemHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateItemRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Create(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener artículo por ID
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del artículo"
// @Success      200  {object}  dto.ItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id} [get]
func (h *ItemHandler) GetByID(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.GetByID(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar artículos
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        search    query  string  false  "Busca en SKU y nombre"
// @Param        category  query  string  false  "Categoría exacta"
// @Param        limit     query  int     false  "Límite"  default(20)
// @Param        offset    query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.ItemListResponse
// @Router       /api/items [get]
func (h *ItemHandler) List(c *fiber.Ctx) error {
	var in dto.ItemListRequest
	if err := parseQuery(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.List(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar artículo
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del artículo"
// @Param        body  body  dto.UpdateItemRequest  true  "Campos a actualizar"
// @Success      200   {object}  dto.ItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/items/{id} [put]
func (h *ItemHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateItemRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Update(c.UserContext(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Inventory godoc
// @Summary      Stock del artículo por ubicación
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del artículo"
// @Success      200  {object}  dto.ItemInventoryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id}/inventory [get]
func (h *ItemHandler) Inventory(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.projection.ItemInventory(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// History godoc
// @Summary      Serie diaria de stock del artículo
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id           path   string  true   "ID del artículo"
// @Param        location_id  query  string  false  "Restringir a una ubicación"
// @Param        days         query  int     false  "Días hacia atrás (0 = solo hoy)"  default(30)
// @Success      200  {object}  dto.HistoryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id}/history [get]
func (h *ItemHandler) History(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	loc, err := queryID(c, "location_id")
	if err != nil {
		return writeError(c, err)
	}
	var locationID *string
	if loc != "" {
		locationID = &loc
	}
	days := inventory.DefaultHistoryDays
	if raw := c.Query("days"); raw != "" {
		if days, err = strconv.Atoi(raw); err != nil {
			return writeError(c, domain.Validation("rango inválido", map[string]string{"days": "debe ser un entero"}))
		}
	}
	out, err := h.projection.History(c.UserContext(), id, locationID, days)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
