package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/suministros-api/internal/application/dto"
	"github.com/jhoicas/suministros-api/internal/domain"
)

// statusByKind código HTTP por tipo de error de dominio.
var statusByKind = map[domain.Kind]int{
	domain.KindValidation:        fiber.StatusBadRequest,
	domain.KindNotFound:          fiber.StatusNotFound,
	domain.KindConflict:          fiber.StatusConflict,
	domain.KindInvalidHierarchy:  fiber.StatusUnprocessableEntity,
	domain.KindInsufficientStock: fiber.StatusConflict,
	domain.KindRetentionExpired:  fiber.StatusConflict,
	domain.KindPartOfBatch:       fiber.StatusConflict,
	domain.KindDependencyExists:  fiber.StatusConflict,
	domain.KindBatchRejected:     fiber.StatusUnprocessableEntity,
	domain.KindUnauthorized:      fiber.StatusUnauthorized,
	domain.KindForbidden:         fiber.StatusForbidden,
}

// writeError traduce un error de caso de uso a la respuesta HTTP. Los errores no tipados salen como 500
// sin exponer el mensaje interno.
func writeError(c *fiber.Ctx, err error) error {
	kind := domain.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: string(domain.KindInternal), Message: "error interno"})
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: string(kind), Message: err.Error(), Details: errorDetails(err)})
}

func errorDetails(err error) any {
	var batch *domain.BatchError
	if errors.As(err, &batch) {
		failures := make([]dto.BatchFailureDTO, 0, len(batch.Failures))
		for _, f := range batch.Failures {
			failures = append(failures, dto.BatchFailureDTO{Row: f.Row, Code: string(domain.KindOf(f.Err)), Message: f.Err.Error()})
		}
		return fiber.Map{"batch_id": batch.BatchID, "failures": failures}
	}
	var ins *domain.InsufficientStockError
	if errors.As(err, &ins) {
		return fiber.Map{
			"item_id":     ins.ItemID,
			"location_id": ins.LocationID,
			"current":     ins.Current,
			"requested":   ins.Requested,
		}
	}
	var dep *domain.DependencyError
	if errors.As(err, &dep) {
		details := fiber.Map{"reason": dep.Reason}
		if dep.ItemID != "" {
			details["item_id"] = dep.ItemID
		}
		return details
	}
	var de *domain.Error
	if errors.As(err, &de) && len(de.Fields) > 0 {
		return de.Fields
	}
	return nil
}

// badRequest cuerpo o query que no se pudo interpretar.
func badRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: message})
}
