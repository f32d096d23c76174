package entity

import "time"

// Límites de la jerarquía de ubicaciones.
const (
	RootLevel = 0
	MaxLevel  = 10
)

// Location representa una ubicación de almacenamiento (bodega, estante, cajón...) dentro del árbol.
// Una raíz tiene Level 0; un hijo tiene Level = padre.Level + 1.
type Location struct {
	ID          string
	Code        string // único global, en mayúsculas
	Name        string
	Description string
	ParentID    *string
	Level       int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsRoot indica si la ubicación no tiene padre.
func (l *Location) IsRoot() bool {
	return l.ParentID == nil
}

// LocationNode es la vista de árbol (no persistida) construida a partir de la lista plana.
type LocationNode struct {
	Location
	Children []*LocationNode
}
