package repository

import (
	"context"
	"time"

	"github.com/jhoicas/suministros-api/internal/domain/entity"
)

// Columnas de ordenamiento admitidas en el listado de movimientos.
const (
	MovementSortDate      = "date"
	MovementSortQuantity  = "quantity"
	MovementSortOperator  = "operator"
	MovementSortCreatedAt = "created_at"
)

// MovementFilter filtros, orden y paginación del libro mayor.
// Operator, Supplier y Recipient son búsquedas por subcadena (sin distinguir mayúsculas).
type MovementFilter struct {
	ItemID     string
	LocationID string
	Type       entity.MovementType
	Operator   string
	Supplier   string
	Recipient  string
	BatchID    string
	From       *time.Time
	To         *time.Time
	SortBy     string
	SortDesc   bool
	Limit      int
	Offset     int
}

// MovementRepository define el puerto de persistencia del libro mayor (tabla transactions).
type MovementRepository interface {
	Create(ctx context.Context, m *entity.Movement) error
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	// Update solo persiste los campos mutables (operator, supplier, recipient, purpose, notes).
	Update(ctx context.Context, m *entity.Movement) error
	Delete(ctx context.Context, id string) error
	// LockBatch serializa hasta el fin de la transacción las escrituras que usan el mismo batch_id.
	LockBatch(ctx context.Context, batchID string) error
	CountByBatch(ctx context.Context, batchID string) (int, error)
	ListByBatch(ctx context.Context, batchID string) ([]*entity.Movement, error)
	List(ctx context.Context, filter MovementFilter) ([]*entity.Movement, int, error)
	ListRecentByItem(ctx context.Context, itemID string, limit int) ([]*entity.Movement, error)
}
