package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/suministros-api/internal/application/dto"
	"github.com/jhoicas/suministros-api/internal/application/inventory"
)

// MovementHandler maneja las peticiones HTTP del libro mayor de movimientos (protegido).
type MovementHandler struct {
	ledger *inventory.LedgerUseCase
}

// NewMovementHandler construye el handler.
func NewMovementHandler(ledger *inventory.LedgerUseCase) *MovementHandler {
	return &MovementHandler{ledger: ledger}
}

// Create godoc
// @Summary      Registrar movimiento
// @Description  Si operator viene vacío se usa el usuario del token.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateMovementRequest  true  "item_id, location_id, type, quantity"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/movements [post]
func (h *MovementHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateMovementRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	in.Operator = operatorFor(c, in.Operator)
	out, err := h.ledger.CreateMovement(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// CreateBatch godoc
// @Summary      Registrar lote de movimientos
// @Description  Todas las filas se confirman juntas o ninguna. Las fallas se reportan por fila.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateBatchRequest  true  "batch_id opcional y filas"
// @Success      201   {object}  dto.BatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/movements/batch [post]
func (h *MovementHandler) CreateBatch(c *fiber.Ctx) error {
	var in dto.CreateBatchRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	for i := range in.Movements {
		in.Movements[i].Operator = operatorFor(c, in.Movements[i].Operator)
	}
	out, err := h.ledger.CreateBatch(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetBatch godoc
// @Summary      Movimientos de un lote
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        batchId  path  string  true  "ID del lote"
// @Success      200  {object}  dto.BatchResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/movements/batch/{batchId} [get]
func (h *MovementHandler) GetBatch(c *fiber.Ctx) error {
	out, err := h.ledger.GetBatch(c.UserContext(), c.Params("batchId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener movimiento
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/movements/{id} [get]
func (h *MovementHandler) GetByID(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.ledger.GetMovement(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar movimientos
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        item_id      query  string  false  "Artículo"
// @Param        location_id  query  string  false  "Ubicación"
// @Param        type         query  string  false  "inbound | outbound"
// @Param        operator     query  string  false  "Operador (contiene)"
// @Param        supplier     query  string  false  "Proveedor (contiene)"
// @Param        recipient    query  string  false  "Destinatario (contiene)"
// @Param        batch_id     query  string  false  "Lote"
// @Param        from         query  string  false  "Desde (RFC3339 o YYYY-MM-DD)"
// @Param        to           query  string  false  "Hasta (RFC3339 o YYYY-MM-DD)"
// @Param        sort_by      query  string  false  "date | quantity | operator | created_at"
// @Param        sort_order   query  string  false  "asc | desc"
// @Param        limit        query  int     false  "Límite"  default(20)
// @Param        offset       query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/movements [get]
func (h *MovementHandler) List(c *fiber.Ctx) error {
	var in dto.MovementListRequest
	if err := parseQuery(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.ledger.ListMovements(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar datos descriptivos de un movimiento
// @Description  Solo operator, supplier, recipient, purpose y notes son modificables.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del movimiento"
// @Param        body  body  dto.UpdateMovementRequest  true  "Campos a actualizar"
// @Success      200   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/movements/{id} [put]
func (h *MovementHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateMovementRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.ledger.UpdateMovement(c.UserContext(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar movimiento reciente
// @Tags         movements
// @Security     Bearer
// @Param        id   path  string  true  "ID del movimiento"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/movements/{id} [delete]
func (h *MovementHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.ledger.DeleteMovement(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Reverse godoc
// @Summary      Revertir movimiento
// @Description  Registra el movimiento opuesto; el original no se modifica.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del movimiento"
// @Param        body  body  dto.ReverseMovementRequest  false  "Operador opcional"
// @Success      201   {object}  dto.MovementResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/movements/{id}/reverse [post]
func (h *MovementHandler) Reverse(c *fiber.Ctx) error {
	var in dto.ReverseMovementRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &in); err != nil {
			return writeError(c, err)
		}
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.ledger.Reverse(c.UserContext(), id, operatorFor(c, in.Operator))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}
