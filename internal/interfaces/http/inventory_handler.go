package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/suministros-api/internal/application/dto"
	"github.com/jhoicas/suministros-api/internal/application/inventory"
	"github.com/jhoicas/suministros-api/internal/domain"
	"github.com/shopspring/decimal"
)

// InventoryHandler maneja las consultas de stock derivado (protegido, solo lectura).
type InventoryHandler struct {
	projection *inventory.ProjectionUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(projection *inventory.ProjectionUseCase) *InventoryHandler {
	return &InventoryHandler{projection: projection}
}

// Status godoc
// @Summary      Estado de inventario por (artículo, ubicación)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        search       query  string  false  "Busca en SKU y nombre"
// @Param        category     query  string  false  "Categoría"
// @Param        location_id  query  string  false  "Ubicación"
// @Param        low_stock    query  bool    false  "Solo en o bajo el umbral"
// @Param        has_stock    query  bool    false  "Solo con stock positivo"
// @Param        min_stock    query  number  false  "Stock mínimo"
// @Param        max_stock    query  number  false  "Stock máximo"
// @Param        sort_by      query  string  false  "item_name | location_code | current_stock | last_transaction_date"
// @Param        sort_order   query  string  false  "asc | desc"
// @Param        limit        query  int     false  "Límite"  default(20)
// @Param        offset       query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.InventoryStatusResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory [get]
func (h *InventoryHandler) Status(c *fiber.Ctx) error {
	var in dto.InventoryStatusRequest
	if err := parseQuery(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.projection.InventoryStatus(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// CurrentStock godoc
// @Summary      Stock actual de un par (artículo, ubicación)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id      query  string  true  "Artículo"
// @Param        location_id  query  string  true  "Ubicación"
// @Success      200  {object}  dto.CurrentStockResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock [get]
func (h *InventoryHandler) CurrentStock(c *fiber.Ctx) error {
	fields := map[string]string{}
	itemID := requiredQueryID(c, "item_id", fields)
	locationID := requiredQueryID(c, "location_id", fields)
	if len(fields) > 0 {
		return writeError(c, domain.Validation("datos inválidos", fields))
	}
	out, err := h.projection.CurrentStock(c.UserContext(), itemID, locationID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// LowStock godoc
// @Summary      Alertas de stock bajo
// @Description  Sin threshold se usa el umbral de cada artículo. Ordenadas por déficit descendente.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        threshold  query  number  false  "Umbral global"
// @Success      200  {array}  dto.LowStockAlertDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	var threshold *decimal.Decimal
	if raw := c.Query("threshold"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return writeError(c, domain.Validation("umbral inválido", map[string]string{"threshold": "debe ser numérico"}))
		}
		threshold = &v
	}
	out, err := h.projection.LowStockAlerts(c.UserContext(), threshold)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Statistics godoc
// @Summary      Estadísticas globales de inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.StatisticsResponse
// @Router       /api/inventory/statistics [get]
func (h *InventoryHandler) Statistics(c *fiber.Ctx) error {
	out, err := h.projection.Statistics(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// requiredQueryID lee un UUID obligatorio de la query; las fallas se acumulan en fields.
func requiredQueryID(c *fiber.Ctx, name string, fields map[string]string) string {
	if c.Query(name) == "" {
		fields[name] = "es requerido"
		return ""
	}
	id, err := queryID(c, name)
	if err != nil {
		fields[name] = "debe ser un UUID"
		return ""
	}
	return id
}
