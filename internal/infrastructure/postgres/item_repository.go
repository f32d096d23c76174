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

var _ repository.ItemRepository = (*ItemRepo)(nil)

const itemColumns = `id, sku, name, category, unit, low_stock_threshold, default_location_id, created_at, updated_at`

// ItemRepo implementación del puerto ItemRepository sobre PostgreSQL (usable con pool o tx).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador de persistencia para artículos.
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

// Create persiste un nuevo artículo. SKU duplicado -> Conflict.
func (r *ItemRepo) Create(ctx context.Context, item *entity.Item) error {
	query := `
		INSERT INTO items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.SKU, item.Name, item.Category, item.Unit,
		item.LowStockThreshold, item.DefaultLocationID, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict("ya existe un artículo con el SKU " + item.SKU)
		}
		return translate("insert item", err)
	}
	return nil
}

// GetByID obtiene un artículo por ID.
func (r *ItemRepo) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	return r.getOne(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
}

// GetBySKU obtiene un artículo por SKU.
func (r *ItemRepo) GetBySKU(ctx context.Context, sku string) (*entity.Item, error) {
	return r.getOne(ctx, `SELECT `+itemColumns+` FROM items WHERE sku = $1`, sku)
}

func (r *ItemRepo) getOne(ctx context.Context, query string, arg string) (*entity.Item, error) {
	item, err := scanItem(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translate("get item", err)
	}
	return item, nil
}

// Update actualiza los campos editables de un artículo.
func (r *ItemRepo) Update(ctx context.Context, item *entity.Item) error {
	query := `
		UPDATE items SET name = $2, category = $3, unit = $4, low_stock_threshold = $5,
			default_location_id = $6, updated_at = $7
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		item.ID, item.Name, item.Category, item.Unit, item.LowStockThreshold,
		item.DefaultLocationID, item.UpdatedAt,
	)
	if err != nil {
		return translate("update item", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("artículo", item.ID)
	}
	return nil
}

// List lista artículos con búsqueda y paginación, ordenados por nombre.
func (r *ItemRepo) List(ctx context.Context, f repository.ItemFilter) ([]*entity.Item, int, error) {
	var w whereBuilder
	if f.Search != "" {
		w.add(`(sku ILIKE ? OR name ILIKE ? OR category ILIKE ?)`, likePattern(f.Search))
	}
	if f.Category != "" {
		w.add(`LOWER(category) = LOWER(?)`, f.Category)
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM items`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	query, args := w.page(`SELECT `+itemColumns+` FROM items`+w.sql()+` ORDER BY name, sku`, f.Limit, f.Offset)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	var list []*entity.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan item: %w", err)
		}
		list = append(list, item)
	}
	return list, total, rows.Err()
}

func scanItem(row pgx.Row) (*entity.Item, error) {
	var i entity.Item
	err := row.Scan(&i.ID, &i.SKU, &i.Name, &i.Category, &i.Unit,
		&i.LowStockThreshold, &i.DefaultLocationID, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}
