package repository

import (
	"context"
	"time"

	"github.com/jhoicas/suministros-api/internal/domain/entity"
	"github.com/jhoicas/suministros-api/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// Columnas de ordenamiento del estado de inventario.
const (
	InventorySortItemName  = "item_name"
	InventorySortLocation  = "location_code"
	InventorySortStock     = "current_stock"
	InventorySortLastMoved = "last_transaction_date"
)

// InventoryFilter filtros de la proyección de inventario.
type InventoryFilter struct {
	Search     string // nombre de artículo, categoría o ubicación
	Category   string
	LocationID string
	LowStock   *bool
	HasStock   *bool
	MinStock   *decimal.Decimal
	MaxStock   *decimal.Decimal
	SortBy     string
	SortDesc   bool
	Limit      int
	Offset     int
}

// StockRepository define el puerto de lectura del stock derivado (Σ entradas - Σ salidas).
// LockPairs se usa dentro de transacciones para garantizar consistencia del chequeo de stock.
type StockRepository interface {
	// LockPairs bloquea los pares (artículo, ubicación) hasta el fin de la transacción. pairs debe venir ordenado.
	LockPairs(ctx context.Context, pairs []entity.PairKey) error
	CurrentStock(ctx context.Context, itemID, locationID string) (decimal.Decimal, error)
	// MinBalanceFrom saldo acumulado mínimo del par de m, en orden (date, created_at, id), desde m inclusive.
	MinBalanceFrom(ctx context.Context, m *entity.Movement) (decimal.Decimal, error)

	InventoryStatus(ctx context.Context, filter InventoryFilter) ([]entity.InventoryRow, int, error)
	// ItemStock desglose por ubicación de un artículo (solo pares con movimientos).
	ItemStock(ctx context.Context, itemID string) ([]entity.InventoryRow, error)
	// LowStock pares con umbral > 0 y stock <= (threshold ?? umbral del artículo).
	LowStock(ctx context.Context, threshold *decimal.Decimal) ([]entity.InventoryRow, error)
	// LocationStock artículos con stock positivo en la ubicación.
	LocationStock(ctx context.Context, locationID string) ([]entity.InventoryRow, error)
	Statistics(ctx context.Context, top int) (*entity.InventoryStatistics, error)

	// NetBefore neto de todos los movimientos con fecha < before. locationID nil = todas las ubicaciones.
	NetBefore(ctx context.Context, itemID string, locationID *string, before time.Time) (decimal.Decimal, error)
	// DailyTotals entradas/salidas por día calendario UTC desde from (inclusive).
	DailyTotals(ctx context.Context, itemID string, locationID *string, from time.Time) ([]inventory.DailyTotal, error)
}
