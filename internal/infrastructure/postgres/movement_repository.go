package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/suministros-api/internal/domain"
	"github.com/jhoicas/suministros-api/internal/domain/entity"
	"github.com/jhoicas/suministros-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, item_id, location_id, type, quantity, date, operator, supplier, recipient, purpose, batch_id, notes, created_at`

// movementSortColumns lista blanca de columnas ordenables (nunca se interpola entrada del usuario).
var movementSortColumns = map[string]string{
	repository.MovementSortDate:      "date",
	repository.MovementSortQuantity:  "quantity",
	repository.MovementSortOperator:  "operator",
	repository.MovementSortCreatedAt: "created_at",
}

// MovementRepo implementación del libro mayor (tabla transactions) sobre PostgreSQL.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create persiste un movimiento.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO transactions (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ItemID, m.LocationID, string(m.Type), m.Quantity, m.Date, m.Operator,
		nullString(m.Supplier), nullString(m.Recipient), nullString(m.Purpose),
		nullString(m.BatchID), nullString(m.Notes), m.CreatedAt,
	)
	if err != nil {
		return translate("insert movement", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translate("get movement", err)
	}
	return m, nil
}

// Update persiste solo los campos mutables.
func (r *MovementRepo) Update(ctx context.Context, m *entity.Movement) error {
	query := `
		UPDATE transactions SET operator = $2, supplier = $3, recipient = $4, purpose = $5, notes = $6
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query, m.ID, m.Operator,
		nullString(m.Supplier), nullString(m.Recipient), nullString(m.Purpose), nullString(m.Notes))
	if err != nil {
		return translate("update movement", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("movimiento", m.ID)
	}
	return nil
}

// Delete elimina un movimiento.
func (r *MovementRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return translate("delete movement", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("movimiento", id)
	}
	return nil
}

// LockBatch toma un pg_advisory_xact_lock sobre el batch_id.
func (r *MovementRepo) LockBatch(ctx context.Context, batchID string) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "batch:"+batchID); err != nil {
		return fmt.Errorf("lock batch %s: %w", batchID, err)
	}
	return nil
}

// CountByBatch cuenta las filas de un lote.
func (r *MovementRepo) CountByBatch(ctx context.Context, batchID string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE batch_id = $1`, batchID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count batch: %w", err)
	}
	return n, nil
}

// ListByBatch filas de un lote en orden de inserción.
func (r *MovementRepo) ListByBatch(ctx context.Context, batchID string) ([]*entity.Movement, error) {
	return r.query(ctx, `SELECT `+movementColumns+` FROM transactions WHERE batch_id = $1 ORDER BY created_at, id`, batchID)
}

// List filtra, ordena y pagina el libro mayor.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, int, error) {
	var w whereBuilder
	if f.ItemID != "" {
		w.add(`item_id = ?`, f.ItemID)
	}
	if f.LocationID != "" {
		w.add(`location_id = ?`, f.LocationID)
	}
	if f.Type != "" {
		w.add(`type = ?`, string(f.Type))
	}
	if f.Operator != "" {
		w.add(`operator ILIKE ?`, likePattern(f.Operator))
	}
	if f.Supplier != "" {
		w.add(`supplier ILIKE ?`, likePattern(f.Supplier))
	}
	if f.Recipient != "" {
		w.add(`recipient ILIKE ?`, likePattern(f.Recipient))
	}
	if f.BatchID != "" {
		w.add(`batch_id = ?`, f.BatchID)
	}
	if f.From != nil {
		w.add(`date >= ?`, *f.From)
	}
	if f.To != nil {
		w.add(`date <= ?`, *f.To)
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	col, ok := movementSortColumns[f.SortBy]
	if !ok {
		col = "date"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	query, args := w.page(
		fmt.Sprintf(`SELECT %s FROM transactions%s ORDER BY %s %s, id %s`, movementColumns, w.sql(), col, dir, dir),
		f.Limit, f.Offset)
	list, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ListRecentByItem últimos movimientos de un artículo (fecha descendente).
func (r *MovementRepo) ListRecentByItem(ctx context.Context, itemID string, limit int) ([]*entity.Movement, error) {
	return r.query(ctx,
		`SELECT `+movementColumns+` FROM transactions WHERE item_id = $1 ORDER BY date DESC, created_at DESC LIMIT $2`,
		itemID, limit)
}

func (r *MovementRepo) query(ctx context.Context, query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var (
		m                                          entity.Movement
		typ                                        string
		supplier, recipient, purpose, batch, notes *string
	)
	err := row.Scan(&m.ID, &m.ItemID, &m.LocationID, &typ, &m.Quantity, &m.Date, &m.Operator,
		&supplier, &recipient, &purpose, &batch, &notes, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Type = entity.MovementType(typ)
	m.Supplier = derefString(supplier)
	m.Recipient = derefString(recipient)
	m.Purpose = derefString(purpose)
	m.BatchID = derefString(batch)
	m.Notes = derefString(notes)
	return &m, nil
}
