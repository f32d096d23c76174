package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/suministros-api/internal/domain/entity"
	"github.com/jhoicas/suministros-api/internal/domain/inventory"
	"github.com/jhoicas/suministros-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// signedQuantity expresión del aporte con signo de un movimiento al stock.
const signedQuantity = `CASE WHEN type = 'inbound' THEN quantity ELSE -quantity END`

// inventoryRowSelect proyección de current_inventory con los metadatos de artículo y ubicación.
const inventoryRowSelect = `
	SELECT ci.item_id, i.sku, i.name, i.category, i.unit,
		ci.location_id, l.code, l.name,
		ci.current_stock, i.low_stock_threshold, ci.last_transaction_date
	FROM current_inventory ci
	JOIN items i ON i.id = ci.item_id
	JOIN locations l ON l.id = ci.location_id`

const lowStockCond = `(ci.current_stock <= i.low_stock_threshold)`

// alertCond pares que entran en las alertas: solo artículos con umbral configurado.
const alertCond = `(i.low_stock_threshold > 0 AND ` + lowStockCond + `)`

var inventorySortColumns = map[string]string{
	repository.InventorySortItemName:  "i.name",
	repository.InventorySortLocation:  "l.code",
	repository.InventorySortStock:     "ci.current_stock",
	repository.InventorySortLastMoved: "ci.last_transaction_date",
}

// StockRepo lectura del stock derivado sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// LockPairs toma un pg_advisory_xact_lock por par, en el orden recibido.
// Dos escritores sobre el mismo par se serializan hasta el commit del primero.
func (r *StockRepo) LockPairs(ctx context.Context, pairs []entity.PairKey) error {
	for _, p := range pairs {
		if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, pairLockKey(p)); err != nil {
			return fmt.Errorf("lock pair %s/%s: %w", p.ItemID, p.LocationID, err)
		}
	}
	return nil
}

func pairLockKey(p entity.PairKey) string {
	return "stock:" + p.ItemID + ":" + p.LocationID
}

// CurrentStock suma directa sobre transactions (se lee dentro de la tx, después del lock).
func (r *StockRepo) CurrentStock(ctx context.Context, itemID, locationID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(` + signedQuantity + `), 0)
		FROM transactions WHERE item_id = $1 AND location_id = $2`
	var stock decimal.Decimal
	if err := r.q.QueryRow(ctx, query, itemID, locationID).Scan(&stock); err != nil {
		return decimal.Zero, fmt.Errorf("current stock: %w", err)
	}
	return stock, nil
}

// MinBalanceFrom saldo corrido mínimo desde m (inclusive) en el orden del libro mayor.
func (r *StockRepo) MinBalanceFrom(ctx context.Context, m *entity.Movement) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(MIN(running), 0) FROM (
			SELECT date, created_at, id,
				SUM(` + signedQuantity + `) OVER (ORDER BY date, created_at, id) AS running
			FROM transactions WHERE item_id = $1 AND location_id = $2
		) t
		WHERE (date, created_at, id) >= ($3::timestamptz, $4::timestamptz, $5::uuid)`
	var low decimal.Decimal
	if err := r.q.QueryRow(ctx, query, m.ItemID, m.LocationID, m.Date, m.CreatedAt, m.ID).Scan(&low); err != nil {
		return decimal.Zero, fmt.Errorf("min balance: %w", err)
	}
	return low, nil
}

// InventoryStatus proyección filtrada, ordenada y paginada.
func (r *StockRepo) InventoryStatus(ctx context.Context, f repository.InventoryFilter) ([]entity.InventoryRow, int, error) {
	var w whereBuilder
	if f.Search != "" {
		w.add(`(i.name ILIKE ? OR i.sku ILIKE ? OR i.category ILIKE ? OR l.name ILIKE ? OR l.code ILIKE ?)`, likePattern(f.Search))
	}
	if f.Category != "" {
		w.add(`LOWER(i.category) = LOWER(?)`, f.Category)
	}
	if f.LocationID != "" {
		w.add(`ci.location_id = ?`, f.LocationID)
	}
	if f.LowStock != nil {
		if *f.LowStock {
			w.raw(lowStockCond)
		} else {
			w.raw(`NOT ` + lowStockCond)
		}
	}
	if f.HasStock != nil {
		if *f.HasStock {
			w.raw(`ci.current_stock > 0`)
		} else {
			w.raw(`ci.current_stock <= 0`)
		}
	}
	if f.MinStock != nil {
		w.add(`ci.current_stock >= ?`, *f.MinStock)
	}
	if f.MaxStock != nil {
		w.add(`ci.current_stock <= ?`, *f.MaxStock)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM current_inventory ci
		JOIN items i ON i.id = ci.item_id
		JOIN locations l ON l.id = ci.location_id` + w.sql()
	if err := r.q.QueryRow(ctx, countQuery, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count inventory: %w", err)
	}

	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	order := fmt.Sprintf(" ORDER BY i.name %s, l.code %s", dir, dir)
	if col, ok := inventorySortColumns[f.SortBy]; ok && f.SortBy != repository.InventorySortItemName {
		order = fmt.Sprintf(" ORDER BY %s %s, i.name, l.code", col, dir)
	}
	query, args := w.page(inventoryRowSelect+w.sql()+order, f.Limit, f.Offset)
	rows, err := r.rows(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ItemStock desglose por ubicación de un artículo.
func (r *StockRepo) ItemStock(ctx context.Context, itemID string) ([]entity.InventoryRow, error) {
	return r.rows(ctx, inventoryRowSelect+` WHERE ci.item_id = $1 ORDER BY l.code`, itemID)
}

// LowStock pares con umbral configurado y stock <= COALESCE(threshold, umbral del artículo).
func (r *StockRepo) LowStock(ctx context.Context, threshold *decimal.Decimal) ([]entity.InventoryRow, error) {
	query := inventoryRowSelect + `
		WHERE i.low_stock_threshold > 0
		AND ci.current_stock <= COALESCE($1::numeric, i.low_stock_threshold)`
	return r.rows(ctx, query, threshold)
}

// LocationStock artículos con stock positivo en la ubicación.
func (r *StockRepo) LocationStock(ctx context.Context, locationID string) ([]entity.InventoryRow, error) {
	return r.rows(ctx, inventoryRowSelect+` WHERE ci.location_id = $1 AND ci.current_stock > 0 ORDER BY i.name`, locationID)
}

// Statistics totales globales y rankings de categorías/ubicaciones por stock.
func (r *StockRepo) Statistics(ctx context.Context, top int) (*entity.InventoryStatistics, error) {
	stats := &entity.InventoryStatistics{}
	totals := `
		SELECT
			(SELECT COUNT(*) FROM items),
			(SELECT COUNT(*) FROM locations WHERE is_active),
			(SELECT COALESCE(SUM(current_stock), 0) FROM current_inventory),
			(SELECT COUNT(*) FROM current_inventory ci JOIN items i ON i.id = ci.item_id WHERE ` + alertCond + `),
			(SELECT COUNT(*) FROM items i
				LEFT JOIN (SELECT item_id, SUM(current_stock) AS s FROM current_inventory GROUP BY item_id) t
				ON t.item_id = i.id
				WHERE COALESCE(t.s, 0) <= 0)`
	err := r.q.QueryRow(ctx, totals).Scan(
		&stats.TotalItems, &stats.TotalLocations, &stats.TotalStock, &stats.LowStockCount, &stats.ZeroStockCount)
	if err != nil {
		return nil, fmt.Errorf("inventory totals: %w", err)
	}

	categories := `
		SELECT i.category,
			COUNT(DISTINCT ci.item_id) FILTER (WHERE ci.current_stock > 0),
			SUM(ci.current_stock)
		FROM current_inventory ci JOIN items i ON i.id = ci.item_id
		GROUP BY i.category
		ORDER BY 3 DESC, 1
		LIMIT $1`
	rows, err := r.q.Query(ctx, categories, top)
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}
	stats.TopCategories, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.CategoryStock, error) {
		var c entity.CategoryStock
		err := row.Scan(&c.Category, &c.ItemCount, &c.TotalStock)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan top categories: %w", err)
	}

	locations := `
		SELECT l.id, l.code, l.name,
			COUNT(*) FILTER (WHERE ci.current_stock > 0),
			SUM(ci.current_stock)
		FROM current_inventory ci JOIN locations l ON l.id = ci.location_id
		GROUP BY l.id, l.code, l.name
		ORDER BY 5 DESC, 2
		LIMIT $1`
	rows, err = r.q.Query(ctx, locations, top)
	if err != nil {
		return nil, fmt.Errorf("top locations: %w", err)
	}
	stats.TopLocations, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.LocationStock, error) {
		var l entity.LocationStock
		err := row.Scan(&l.LocationID, &l.Code, &l.Name, &l.ItemCount, &l.TotalStock)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan top locations: %w", err)
	}
	return stats, nil
}

// NetBefore neto de los movimientos con fecha < before. locationID nil = todas las ubicaciones.
func (r *StockRepo) NetBefore(ctx context.Context, itemID string, locationID *string, before time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(` + signedQuantity + `), 0)
		FROM transactions
		WHERE item_id = $1 AND ($2::uuid IS NULL OR location_id = $2::uuid) AND date < $3`
	var net decimal.Decimal
	if err := r.q.QueryRow(ctx, query, itemID, locationID, before).Scan(&net); err != nil {
		return decimal.Zero, fmt.Errorf("net before: %w", err)
	}
	return net, nil
}

// DailyTotals entradas/salidas por día calendario UTC desde from.
func (r *StockRepo) DailyTotals(ctx context.Context, itemID string, locationID *string, from time.Time) ([]inventory.DailyTotal, error) {
	query := `
		SELECT date_trunc('day', date AT TIME ZONE 'UTC') AS day,
			COALESCE(SUM(quantity) FILTER (WHERE type = 'inbound'), 0),
			COALESCE(SUM(quantity) FILTER (WHERE type = 'outbound'), 0)
		FROM transactions
		WHERE item_id = $1 AND ($2::uuid IS NULL OR location_id = $2::uuid) AND date >= $3
		GROUP BY 1
		ORDER BY 1`
	rows, err := r.q.Query(ctx, query, itemID, locationID, from)
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventory.DailyTotal, error) {
		var d inventory.DailyTotal
		err := row.Scan(&d.Day, &d.Inbound, &d.Outbound)
		d.Day = d.Day.UTC()
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan daily totals: %w", err)
	}
	return out, nil
}

func (r *StockRepo) rows(ctx context.Context, query string, args ...any) ([]entity.InventoryRow, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inventory rows: %w", err)
	}
	defer rows.Close()
	var out []entity.InventoryRow
	for rows.Next() {
		var row entity.InventoryRow
		if err := rows.Scan(&row.ItemID, &row.SKU, &row.ItemName, &row.Category, &row.Unit,
			&row.LocationID, &row.LocationCode, &row.LocationName,
			&row.CurrentStock, &row.LowStockThreshold, &row.LastTransactionDate); err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
