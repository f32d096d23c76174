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

var _ repository.LocationRepository = (*LocationRepo)(nil)

const locationColumns = `id, code, name, description, parent_id, level, is_active, created_at, updated_at`

// hierarchyLockKey clave del advisory lock que serializa las escrituras sobre el árbol.
const hierarchyLockKey int64 = 0x4c4f4341 // "LOCA"

// descendantsCTE subárbol estricto de $1. UNION descarta repetidos y corta ciclos de datos corruptos.
const descendantsCTE = `
	WITH RECURSIVE tree AS (
		SELECT id, level FROM locations WHERE parent_id = $1
		UNION
		SELECT l.id, l.level FROM locations l JOIN tree t ON l.parent_id = t.id
	)`

// LocationRepo implementación del puerto LocationRepository sobre PostgreSQL (usable con pool o tx).
type LocationRepo struct {
	q Querier
}

// NewLocationRepository construye el adaptador de persistencia para ubicaciones.
func NewLocationRepository(q Querier) *LocationRepo {
	return &LocationRepo{q: q}
}

// Create persiste una nueva ubicación.
func (r *LocationRepo) Create(ctx context.Context, loc *entity.Location) error {
	query := `
		INSERT INTO locations (` + locationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		loc.ID, loc.Code, loc.Name, loc.Description, loc.ParentID, loc.Level, loc.IsActive,
		loc.CreatedAt, loc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict("ya existe una ubicación con el código " + loc.Code)
		}
		return translate("insert location", err)
	}
	return nil
}

// GetByID obtiene una ubicación por ID.
func (r *LocationRepo) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	return r.getOne(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id)
}

// GetByCode obtiene una ubicación por código.
func (r *LocationRepo) GetByCode(ctx context.Context, code string) (*entity.Location, error) {
	return r.getOne(ctx, `SELECT `+locationColumns+` FROM locations WHERE code = $1`, code)
}

func (r *LocationRepo) getOne(ctx context.Context, query, arg string) (*entity.Location, error) {
	loc, err := scanLocation(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translate("get location", err)
	}
	return loc, nil
}

// Update actualiza una ubicación existente.
func (r *LocationRepo) Update(ctx context.Context, loc *entity.Location) error {
	query := `
		UPDATE locations SET code = $2, name = $3, description = $4, parent_id = $5, level = $6,
			is_active = $7, updated_at = $8
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		loc.ID, loc.Code, loc.Name, loc.Description, loc.ParentID, loc.Level, loc.IsActive, loc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict("ya existe una ubicación con el código " + loc.Code)
		}
		return translate("update location", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("ubicación", loc.ID)
	}
	return nil
}

// Delete elimina una ubicación por ID.
func (r *LocationRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return translate("delete location", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("ubicación", id)
	}
	return nil
}

// List lista ubicaciones filtradas, ordenadas por código.
func (r *LocationRepo) List(ctx context.Context, f repository.LocationFilter) ([]*entity.Location, int, error) {
	var w whereBuilder
	if f.Active != nil {
		w.add(`is_active = ?`, *f.Active)
	}
	if f.RootsOnly {
		w.raw(`parent_id IS NULL`)
	}
	if f.ParentID != nil {
		w.add(`parent_id = ?`, *f.ParentID)
	}
	if f.Search != "" {
		w.add(`(code ILIKE ? OR name ILIKE ?)`, likePattern(f.Search))
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM locations`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count locations: %w", err)
	}
	query, args := w.page(`SELECT `+locationColumns+` FROM locations`+w.sql()+` ORDER BY code`, f.Limit, f.Offset)
	list, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ListAll devuelve la lista plana completa (para armar el árbol).
func (r *LocationRepo) ListAll(ctx context.Context, activeOnly bool) ([]*entity.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations`
	if activeOnly {
		query += ` WHERE is_active`
	}
	return r.query(ctx, query+` ORDER BY code`)
}

// DescendantIDs ids de todo el subárbol de id, sin incluirlo.
func (r *LocationRepo) DescendantIDs(ctx context.Context, id string) ([]string, error) {
	rows, err := r.q.Query(ctx, descendantsCTE+` SELECT id FROM tree`, id)
	if err != nil {
		return nil, fmt.Errorf("descendant ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan descendant id: %w", err)
		}
		ids = append(ids, d)
	}
	return ids, rows.Err()
}

// Ancestors camino desde la raíz hasta el padre de id.
func (r *LocationRepo) Ancestors(ctx context.Context, id string) ([]*entity.Location, error) {
	query := `
		WITH RECURSIVE chain AS (
			SELECT p.*, 1 AS depth
			FROM locations p JOIN locations c ON c.parent_id = p.id
			WHERE c.id = $1
			UNION ALL
			SELECT p.*, ch.depth + 1
			FROM locations p JOIN chain ch ON p.id = ch.parent_id
			WHERE ch.depth <= $2
		)
		SELECT ` + locationColumns + ` FROM chain ORDER BY depth DESC`
	return r.query(ctx, query, id, entity.MaxLevel)
}

// MaxDescendantLevel nivel más profundo del subárbol (el propio si no tiene hijos).
func (r *LocationRepo) MaxDescendantLevel(ctx context.Context, id string) (int, error) {
	query := descendantsCTE + `
		SELECT GREATEST(
			(SELECT level FROM locations WHERE id = $1),
			(SELECT MAX(level) FROM tree)
		)`
	var level *int
	if err := r.q.QueryRow(ctx, query, id).Scan(&level); err != nil {
		return 0, fmt.Errorf("max descendant level: %w", err)
	}
	if level == nil {
		return 0, domain.NotFound("ubicación", id)
	}
	return *level, nil
}

// ShiftDescendantLevels suma delta al nivel de todo el subárbol de id.
func (r *LocationRepo) ShiftDescendantLevels(ctx context.Context, id string, delta int) error {
	if delta == 0 {
		return nil
	}
	query := descendantsCTE + `
		UPDATE locations SET level = level + $2, updated_at = now()
		WHERE id IN (SELECT id FROM tree)`
	if _, err := r.q.Exec(ctx, query, id, delta); err != nil {
		return translate("shift descendant levels", err)
	}
	return nil
}

// CountChildren cuenta hijos directos (opcionalmente solo activos).
func (r *LocationRepo) CountChildren(ctx context.Context, id string, activeOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM locations WHERE parent_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	var n int
	if err := r.q.QueryRow(ctx, query, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	return n, nil
}

// HasMovements indica si la ubicación tiene registros en el libro mayor.
func (r *LocationRepo) HasMovements(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE location_id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("location has movements: %w", err)
	}
	return ok, nil
}

// DefaultLocationOf primer artículo (por SKU) que usa la ubicación como predeterminada.
func (r *LocationRepo) DefaultLocationOf(ctx context.Context, id string) (string, error) {
	var itemID string
	err := r.q.QueryRow(ctx,
		`SELECT id FROM items WHERE default_location_id = $1 ORDER BY sku LIMIT 1`, id).Scan(&itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("default location of: %w", err)
	}
	return itemID, nil
}

// LockHierarchy toma el advisory lock de transacción del árbol.
func (r *LocationRepo) LockHierarchy(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, hierarchyLockKey); err != nil {
		return fmt.Errorf("lock hierarchy: %w", err)
	}
	return nil
}

func (r *LocationRepo) query(ctx context.Context, query string, args ...any) ([]*entity.Location, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()
	var list []*entity.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		list = append(list, loc)
	}
	return list, rows.Err()
}

func scanLocation(row pgx.Row) (*entity.Location, error) {
	var l entity.Location
	err := row.Scan(&l.ID, &l.Code, &l.Name, &l.Description, &l.ParentID, &l.Level, &l.IsActive,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
