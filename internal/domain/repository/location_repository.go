package repository

import (
	"context"

	"github.com/jhoicas/suministros-api/internal/domain/entity"
)

// LocationFilter filtros del listado de ubicaciones.
type LocationFilter struct {
	Active    *bool
	ParentID  *string
	RootsOnly bool
	Search    string // código o nombre
	Limit     int
	Offset    int
}

// LocationRepository define el puerto de persistencia para Location (DIP).
// Las consultas de descendientes/ancestros se resuelven en la base (CTE recursiva), no en memoria.
type LocationRepository interface {
	Create(ctx context.Context, loc *entity.Location) error
	GetByID(ctx context.Context, id string) (*entity.Location, error)
	GetByCode(ctx context.Context, code string) (*entity.Location, error)
	Update(ctx context.Context, loc *entity.Location) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter LocationFilter) ([]*entity.Location, int, error)
	ListAll(ctx context.Context, activeOnly bool) ([]*entity.Location, error)

	// DescendantIDs todos los descendientes de id (sin incluirlo).
	DescendantIDs(ctx context.Context, id string) ([]string, error)
	// Ancestors camino desde la raíz hasta el padre de id, ordenado por profundidad.
	Ancestors(ctx context.Context, id string) ([]*entity.Location, error)
	// MaxDescendantLevel nivel más profundo del subárbol de id (el propio nivel si no tiene hijos).
	MaxDescendantLevel(ctx context.Context, id string) (int, error)
	// ShiftDescendantLevels suma delta al nivel de todos los descendientes de id.
	ShiftDescendantLevels(ctx context.Context, id string, delta int) error

	CountChildren(ctx context.Context, id string, activeOnly bool) (int, error)
	HasMovements(ctx context.Context, id string) (bool, error)
	// DefaultLocationOf devuelve el id de un artículo que usa la ubicación como predeterminada, o "".
	DefaultLocationOf(ctx context.Context, id string) (string, error)

	// LockHierarchy serializa las escrituras sobre el árbol dentro de la transacción actual.
	LockHierarchy(ctx context.Context) error
}
