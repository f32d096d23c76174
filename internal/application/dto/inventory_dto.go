package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryStatusRequest filtros de GET /api/inventory.
type InventoryStatusRequest struct {
	PageRequest
	Search     string `query:"search" validate:"max=100"`
	Category   string `query:"category" validate:"max=100"`
	LocationID string `query:"location_id" validate:"omitempty,uuid"`
	LowStock   *bool  `query:"low_stock"`
	HasStock   *bool  `query:"has_stock"`
	MinStock   string `query:"min_stock" validate:"omitempty,numeric"`
	MaxStock   string `query:"max_stock" validate:"omitempty,numeric"`
	SortBy     string `query:"sort_by" validate:"omitempty,oneof=item_name location_code current_stock last_transaction_date"`
	SortOrder  string `query:"sort_order" validate:"omitempty,oneof=asc desc"`
}

// InventoryRowDTO stock de un par (artículo, ubicación).
type InventoryRowDTO struct {
	ItemID              string          `json:"item_id"`
	SKU                 string          `json:"sku"`
	ItemName            string          `json:"item_name"`
	Category            string          `json:"category"`
	Unit                string          `json:"unit"`
	LocationID          string          `json:"location_id"`
	LocationCode        string          `json:"location_code"`
	LocationName        string          `json:"location_name"`
	CurrentStock        decimal.Decimal `json:"current_stock"`
	LowStockThreshold   decimal.Decimal `json:"low_stock_threshold"`
	IsLowStock          bool            `json:"is_low_stock"`
	LastTransactionDate *time.Time      `json:"last_transaction_date"`
}

// InventoryStatusResponse lista paginada del estado de inventario.
type InventoryStatusResponse struct {
	Items []InventoryRowDTO `json:"items"`
	Page  PageResponse      `json:"page"`
}

// CurrentStockResponse salida de GET /api/inventory/stock.
type CurrentStockResponse struct {
	ItemID       string          `json:"item_id"`
	LocationID   string          `json:"location_id"`
	CurrentStock decimal.Decimal `json:"current_stock"`
}

// ItemInventoryResponse desglose de un artículo por ubicación + movimientos recientes.
type ItemInventoryResponse struct {
	Item            ItemResponse       `json:"item"`
	TotalStock      decimal.Decimal    `json:"total_stock"`
	Locations       []InventoryRowDTO  `json:"locations"`
	RecentMovements []MovementResponse `json:"recent_movements"`
}

// LowStockAlertDTO alerta de stock bajo.
type LowStockAlertDTO struct {
	InventoryRowDTO
	Threshold    decimal.Decimal `json:"threshold"`
	StockDeficit decimal.Decimal `json:"stock_deficit"`
}

// LocationSummaryResponse artículos con stock positivo en una ubicación.
type LocationSummaryResponse struct {
	Location      LocationResponse  `json:"location"`
	Items         []InventoryRowDTO `json:"items"`
	ItemCount     int               `json:"item_count"`
	TotalStock    decimal.Decimal   `json:"total_stock"`
	LowStockCount int               `json:"low_stock_count"`
}

// CategoryStockDTO stock agregado por categoría.
type CategoryStockDTO struct {
	Category   string          `json:"category"`
	ItemCount  int             `json:"item_count"`
	TotalStock decimal.Decimal `json:"total_stock"`
}

// LocationStockDTO stock agregado por ubicación.
type LocationStockDTO struct {
	LocationID string          `json:"location_id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	ItemCount  int             `json:"item_count"`
	TotalStock decimal.Decimal `json:"total_stock"`
}

// StatisticsResponse totales globales.
type StatisticsResponse struct {
	TotalItems     int                `json:"total_items"`
	TotalLocations int                `json:"total_locations"`
	TotalStock     decimal.Decimal    `json:"total_stock"`
	LowStockCount  int                `json:"low_stock_count"`
	ZeroStockCount int                `json:"zero_stock_count"`
	TopCategories  []CategoryStockDTO `json:"top_categories"`
	TopLocations   []LocationStockDTO `json:"top_locations"`
}

// HistoryPointDTO fila de la serie diaria.
type HistoryPointDTO struct {
	Date         string          `json:"date"` // YYYY-MM-DD (UTC)
	Inbound      decimal.Decimal `json:"inbound"`
	Outbound     decimal.Decimal `json:"outbound"`
	NetChange    decimal.Decimal `json:"net_change"`
	RunningStock decimal.Decimal `json:"running_stock"`
}

// HistoryResponse serie diaria de un artículo (opcionalmente en una ubicación).
type HistoryResponse struct {
	ItemID       string            `json:"item_id"`
	LocationID   *string           `json:"location_id"`
	Days         int               `json:"days"`
	InitialStock decimal.Decimal   `json:"initial_stock"`
	Series       []HistoryPointDTO `json:"series"`
}
