package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryRow fila de la proyección de inventario: stock derivado de un par (artículo, ubicación) con metadatos.
type InventoryRow struct {
	ItemID              string
	SKU                 string
	ItemName            string
	Category            string
	Unit                string
	LocationID          string
	LocationCode        string
	LocationName        string
	CurrentStock        decimal.Decimal
	LowStockThreshold   decimal.Decimal
	LastTransactionDate *time.Time
}

// IsLowStock currentStock <= umbral del artículo. Con umbral 0 un par sin stock también lo es.
func (r *InventoryRow) IsLowStock() bool {
	return r.CurrentStock.LessThanOrEqual(r.LowStockThreshold)
}

// RaisesAlert par en stock bajo cuyo artículo tiene umbral configurado (> 0).
func (r *InventoryRow) RaisesAlert() bool {
	return r.LowStockThreshold.IsPositive() && r.IsLowStock()
}

// LowStockAlert par (artículo, ubicación) en o bajo su umbral.
type LowStockAlert struct {
	InventoryRow
	Threshold    decimal.Decimal // umbral efectivo usado en la comparación
	StockDeficit decimal.Decimal // max(0, Threshold - CurrentStock)
}

// CategoryStock stock agregado por categoría.
type CategoryStock struct {
	Category   string
	ItemCount  int
	TotalStock decimal.Decimal
}

// LocationStock stock agregado por ubicación.
type LocationStock struct {
	LocationID string
	Code       string
	Name       string
	ItemCount  int
	TotalStock decimal.Decimal
}

// InventoryStatistics totales globales del inventario.
type InventoryStatistics struct {
	TotalItems     int
	TotalLocations int
	TotalStock     decimal.Decimal
	LowStockCount  int // pares (artículo, ubicación) que generan alerta
	ZeroStockCount int // artículos sin stock en ninguna ubicación
	TopCategories  []CategoryStock
	TopLocations   []LocationStock
}
