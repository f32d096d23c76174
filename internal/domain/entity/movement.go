package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType dirección de un movimiento del libro mayor.
type MovementType string

// Tipos de movimiento de inventario.
const (
	MovementInbound  MovementType = "inbound"  // entrada
	MovementOutbound MovementType = "outbound" // salida
)

// Valid indica si el tipo es uno de los soportados.
func (t MovementType) Valid() bool {
	return t == MovementInbound || t == MovementOutbound
}

// Opposite devuelve la dirección contraria (usado por las reversiones).
func (t MovementType) Opposite() MovementType {
	if t == MovementInbound {
		return MovementOutbound
	}
	return MovementInbound
}

// Movement es una entrada del libro mayor. ItemID, LocationID, Type, Quantity y Date son inmutables una vez creada.
// Supplier solo aplica a entradas; Recipient y Purpose solo a salidas. Cadena vacía = ausente.
type Movement struct {
	ID         string
	ItemID     string
	LocationID string
	Type       MovementType
	Quantity   decimal.Decimal // siempre positivo; la dirección la da Type
	Date       time.Time
	Operator   string
	Supplier   string
	Recipient  string
	Purpose    string
	BatchID    string
	Notes      string
	CreatedAt  time.Time
}

// SignedQuantity devuelve la cantidad con signo según la dirección (+entrada, -salida).
func (m *Movement) SignedQuantity() decimal.Decimal {
	if m.Type == MovementOutbound {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// PairKey identifica el par (artículo, ubicación) sobre el que se calcula el stock.
type PairKey struct {
	ItemID     string
	LocationID string
}

// Key devuelve el par del movimiento.
func (m *Movement) Key() PairKey {
	return PairKey{ItemID: m.ItemID, LocationID: m.LocationID}
}
