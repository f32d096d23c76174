package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item representa un artículo de suministros de oficina del catálogo.
// El motor de inventario solo lo lee: LowStockThreshold alimenta las alertas y DefaultLocationID bloquea borrados de ubicaciones.
type Item struct {
	ID                string
	SKU               string // código único
	Name              string
	Category          string
	Unit              string // unidad de medida: caja, resma, unidad...
	LowStockThreshold decimal.Decimal
	DefaultLocationID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
