package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateMovementRequest body para POST /api/movements y cada fila de un lote.
type CreateMovementRequest struct {
	ItemID     string          `json:"item_id" validate:"required,uuid"`
	LocationID string          `json:"location_id" validate:"required,uuid"`
	Type       string          `json:"type" validate:"required,oneof=inbound outbound"`
	Quantity   decimal.Decimal `json:"quantity"`
	Date       *time.Time      `json:"date"` // nil = ahora
	Operator   string          `json:"operator" validate:"max=100"`
	Supplier   string          `json:"supplier" validate:"max=200"`
	Recipient  string          `json:"recipient" validate:"max=200"`
	Purpose    string          `json:"purpose" validate:"max=500"`
	Notes      string          `json:"notes" validate:"max=1000"`
}

// CreateBatchRequest body para POST /api/movements/batch. BatchID se genera si viene vacío.
type CreateBatchRequest struct {
	BatchID   string                  `json:"batch_id" validate:"omitempty,max=100"`
	Movements []CreateMovementRequest `json:"movements" validate:"required,min=1,max=1000,dive"`
}

// UpdateMovementRequest patch de un movimiento. Solo operator/supplier/recipient/purpose/notes son mutables;
// los demás campos se aceptan en el JSON únicamente para rechazarlos de forma explícita.
type UpdateMovementRequest struct {
	Operator  *string `json:"operator" validate:"omitempty,max=100"`
	Supplier  *string `json:"supplier" validate:"omitempty,max=200"`
	Recipient *string `json:"recipient" validate:"omitempty,max=200"`
	Purpose   *string `json:"purpose" validate:"omitempty,max=500"`
	Notes     *string `json:"notes" validate:"omitempty,max=1000"`

	ItemID     *string          `json:"item_id"`
	LocationID *string          `json:"location_id"`
	Type       *string          `json:"type"`
	Quantity   *decimal.Decimal `json:"quantity"`
	Date       *time.Time       `json:"date"`
}

// ReverseMovementRequest body opcional para POST /api/movements/:id/reverse.
type ReverseMovementRequest struct {
	Operator string `json:"operator" validate:"max=100"`
}

// MovementListRequest filtros, orden y paginación del libro mayor.
type MovementListRequest struct {
	PageRequest
	ItemID     string `query:"item_id" validate:"omitempty,uuid"`
	LocationID string `query:"location_id" validate:"omitempty,uuid"`
	Type       string `query:"type" validate:"omitempty,oneof=inbound outbound"`
	Operator   string `query:"operator" validate:"max=100"`
	Supplier   string `query:"supplier" validate:"max=200"`
	Recipient  string `query:"recipient" validate:"max=200"`
	BatchID    string `query:"batch_id" validate:"max=100"`
	From       string `query:"from"` // RFC3339 o YYYY-MM-DD
	To         string `query:"to"`
	SortBy     string `query:"sort_by" validate:"omitempty,oneof=date quantity operator created_at"`
	SortOrder  string `query:"sort_order" validate:"omitempty,oneof=asc desc"`
}

// MovementResponse salida de un movimiento.
type MovementResponse struct {
	ID         string          `json:"id"`
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	Type       string          `json:"type"`
	Quantity   decimal.Decimal `json:"quantity"`
	Date       time.Time       `json:"date"`
	Operator   string          `json:"operator"`
	Supplier   string          `json:"supplier,omitempty"`
	Recipient  string          `json:"recipient,omitempty"`
	Purpose    string          `json:"purpose,omitempty"`
	BatchID    string          `json:"batch_id,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// MovementListResponse lista paginada de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// BatchResponse resultado de un lote confirmado.
type BatchResponse struct {
	BatchID   string             `json:"batch_id"`
	Count     int                `json:"count"`
	Movements []MovementResponse `json:"movements"`
}

// BatchFailureDTO detalle de una fila (o grupo, row = -1) rechazada.
type BatchFailureDTO struct {
	Row     int    `json:"row"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
