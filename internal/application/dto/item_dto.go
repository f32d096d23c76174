package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateItemRequest entrada para crear un artículo del catálogo.
type CreateItemRequest struct {
	SKU               string          `json:"sku" validate:"required,min=1,max=50"`
	Name              string          `json:"name" validate:"required,min=1,max=200"`
	Category          string          `json:"category" validate:"max=100"`
	Unit              string          `json:"unit" validate:"required,min=1,max=30"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	DefaultLocationID *string         `json:"default_location_id" validate:"omitempty,uuid"`
}

// UpdateItemRequest patch de un artículo (el SKU no cambia).
type UpdateItemRequest struct {
	Name              *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Category          *string          `json:"category" validate:"omitempty,max=100"`
	Unit              *string          `json:"unit" validate:"omitempty,min=1,max=30"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold"`
	DefaultLocationID *string          `json:"default_location_id" validate:"omitempty,uuid"`
	ClearDefault      bool             `json:"clear_default_location"`
}

// ItemListRequest filtros del catálogo.
type ItemListRequest struct {
	PageRequest
	Search   string `query:"search" validate:"max=100"`
	Category string `query:"category" validate:"max=100"`
}

// ItemResponse salida de un artículo.
type ItemResponse struct {
	ID                string          `json:"id"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	Unit              string          `json:"unit"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	DefaultLocationID *string         `json:"default_location_id"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ItemListResponse lista paginada de artículos.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}
