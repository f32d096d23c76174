package repository

import (
	"context"

	"github.com/jhoicas/suministros-api/internal/domain/entity"
)

// ItemFilter filtros del listado del catálogo.
type ItemFilter struct {
	Search   string // sku, nombre o categoría
	Category string
	Limit    int
	Offset   int
}

// ItemRepository define el puerto de persistencia para Item (DIP).
// GetByID y GetBySKU devuelven (nil, nil) si no existe.
type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) error
	GetByID(ctx context.Context, id string) (*entity.Item, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Item, error)
	Update(ctx context.Context, item *entity.Item) error
	List(ctx context.Context, filter ItemFilter) ([]*entity.Item, int, error)
}
