package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLevel es el stock derivado (no almacenado) de un artículo en una ubicación:
// Σ entradas - Σ salidas sobre todos sus movimientos.
type StockLevel struct {
	ItemID              string
	LocationID          string
	CurrentStock        decimal.Decimal
	LastTransactionDate *time.Time
}
