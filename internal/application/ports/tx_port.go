package ports

import (
	"context"

	"github.com/jhoicas/suministros-api/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Items     repository.ItemRepository
	Locations repository.LocationRepository
	Movements repository.MovementRepository
	Stock     repository.StockRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Commit si fn devuelve nil; Rollback en cualquier otro caso.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepos) error) error
}
