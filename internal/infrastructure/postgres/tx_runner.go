package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/suministros-api/internal/application/ports"
)

var _ ports.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	db TxBeginner
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(db TxBeginner) *TxRunner {
	return &TxRunner{db: db}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los advisory locks tomados dentro de fn se liberan al terminar la transacción.
func (r *TxRunner) Run(ctx context.Context, fn func(repos ports.TxRepos) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(Repos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Repos construye el juego de repositorios sobre q (pool o tx).
func Repos(q Querier) ports.TxRepos {
	return ports.TxRepos{
		Items:     NewItemRepository(q),
		Locations: NewLocationRepository(q),
		Movements: NewMovementRepository(q),
		Stock:     NewStockRepository(q),
	}
}
