package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind clasifica los errores de dominio para que los llamadores ramifiquen sin comparar strings.
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindInvalidHierarchy  Kind = "INVALID_HIERARCHY"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindRetentionExpired  Kind = "RETENTION_EXPIRED"
	KindPartOfBatch       Kind = "PART_OF_BATCH"
	KindDependencyExists  Kind = "DEPENDENCY_EXISTS"
	KindBatchRejected     Kind = "BATCH_REJECTED"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindForbidden         Kind = "FORBIDDEN"
	KindInternal          Kind = "INTERNAL"
)

// Error es el error tipado del dominio. Fields lleva detalle por campo en errores de validación.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// Is compara por Kind, de modo que errors.Is(err, ErrNotFound) es cierto para cualquier NOT_FOUND.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Errores de dominio centinela (comparar con errors.Is).
var (
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "recurso no encontrado"}
	ErrInvalidInput      = &Error{Kind: KindValidation, Message: "entrada inválida"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflicto con el estado actual"}
	ErrInvalidHierarchy  = &Error{Kind: KindInvalidHierarchy, Message: "jerarquía de ubicaciones inválida"}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock, Message: "stock insuficiente"}
	ErrRetentionExpired  = &Error{Kind: KindRetentionExpired, Message: "el movimiento está fuera de la ventana permitida"}
	ErrPartOfBatch       = &Error{Kind: KindPartOfBatch, Message: "el movimiento pertenece a un lote de varias filas"}
	ErrDependencyExists  = &Error{Kind: KindDependencyExists, Message: "existen registros dependientes"}
	ErrBatchRejected     = &Error{Kind: KindBatchRejected, Message: "lote rechazado"}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Message: "no autorizado"}
	ErrForbidden         = &Error{Kind: KindForbidden, Message: "acceso denegado"}
)

// NotFound construye un NOT_FOUND con el nombre del recurso.
func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s no encontrado", resource), Fields: map[string]string{"id": id}}
}

// Validation construye un error de validación con detalle por campo.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Conflict construye un CONFLICT.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// InvalidHierarchy construye un INVALID_HIERARCHY.
func InvalidHierarchy(message string) *Error {
	return &Error{Kind: KindInvalidHierarchy, Message: message}
}

// RetentionExpired construye un RETENTION_EXPIRED.
func RetentionExpired(message string) *Error {
	return &Error{Kind: KindRetentionExpired, Message: message}
}

// Razones de DependencyError.
const (
	ReasonHasChildren          = "HAS_CHILDREN"
	ReasonHasInventoryRecords  = "HAS_INVENTORY_RECORDS"
	ReasonIsDefaultLocationFor = "IS_DEFAULT_LOCATION_FOR"
)

// DependencyError bloquea un borrado o desactivación por relaciones existentes.
type DependencyError struct {
	Reason string
	ItemID string // solo para IS_DEFAULT_LOCATION_FOR
}

func (e *DependencyError) Error() string {
	switch e.Reason {
	case ReasonHasChildren:
		return "la ubicación tiene ubicaciones hijas"
	case ReasonHasInventoryRecords:
		return "la ubicación tiene movimientos de inventario"
	case ReasonIsDefaultLocationFor:
		return fmt.Sprintf("la ubicación es la ubicación por defecto del artículo %s", e.ItemID)
	}
	return "existen registros dependientes"
}

func (e *DependencyError) Is(target error) bool {
	return target == ErrDependencyExists
}

// InsufficientStockError se devuelve cuando una salida supera el stock visible.
type InsufficientStockError struct {
	ItemID     string
	LocationID string
	Current    decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para artículo %s en ubicación %s: actual %s, solicitado %s",
		e.ItemID, e.LocationID, e.Current.String(), e.Requested.String())
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// RowFailure describe por qué falló una fila de un lote. Row es -1 cuando la falla es de un grupo (item, ubicación).
type RowFailure struct {
	Row int
	Err error
}

// BatchError agrupa todas las fallas de un lote rechazado; ninguna fila fue persistida.
type BatchError struct {
	BatchID  string
	Failures []RowFailure
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Row >= 0 {
			parts = append(parts, fmt.Sprintf("fila %d: %v", f.Row, f.Err))
		} else {
			parts = append(parts, f.Err.Error())
		}
	}
	return fmt.Sprintf("lote %s rechazado: %s", e.BatchID, strings.Join(parts, "; "))
}

func (e *BatchError) Is(target error) bool {
	return target == ErrBatchRejected
}

// KindOf devuelve el Kind de err, o KindInternal si no es un error de dominio.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ins *InsufficientStockError
	if errors.As(err, &ins) {
		return KindInsufficientStock
	}
	var dep *DependencyError
	if errors.As(err, &dep) {
		return KindDependencyExists
	}
	var batch *BatchError
	if errors.As(err, &batch) {
		return KindBatchRejected
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
