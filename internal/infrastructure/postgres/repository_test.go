package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/jhoicas/suministros-api/internal/application/ports"
	"github.com/jhoicas/suministros-api/internal/domain"
	"github.com/jhoicas/suministros-api/internal/domain/entity"
	"github.com/jhoicas/suministros-api/internal/domain/repository"
	"github.com/jhoicas/suministros-api/internal/infrastructure/postgres"
)

const (
	itemID = "0b5f3c1e-6a3b-4d2e-9a51-1f0e2c3d4a01"
	locID  = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
)

var movementCols = []string{"id", "item_id", "location_id", "type", "quantity", "date", "operator",
	"supplier", "recipient", "purpose", "batch_id", "notes", "created_at"}

func q(s string) string { return regexp.QuoteMeta(s) }

func strPtr(s string) *string { return &s }

type RepoSuite struct {
	suite.Suite
	mock pgxmock.PgxPoolIface
	ctx  context.Context
}

func (s *RepoSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	s.Require().NoError(err)
	s.mock = mock
	s.ctx = context.Background()
}

func (s *RepoSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.mock.Close()
}

func TestRepoSuite(t *testing.T) {
	suite.Run(t, new(RepoSuite))
}

// ── Items ────────────────────────────────────────────────────────────────────

func (s *RepoSuite) TestItemCreate_SKUDuplicadoEsConflict() {
	repo := postgres.NewItemRepository(s.mock)
	s.mock.ExpectExec(q("INSERT INTO items")).
		WithArgs(itemID, "PAP-001", "Papel", "Papelería", "resma",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(s.ctx, &entity.Item{ID: itemID, SKU: "PAP-001", Name: "Papel", Category: "Papelería", Unit: "resma"})
	s.True(errors.Is(err, domain.ErrConflict))
}

func (s *RepoSuite) TestItemGetByID_NoExisteDevuelveNil() {
	repo := postgres.NewItemRepository(s.mock)
	s.mock.ExpectQuery(q("FROM items WHERE id = $1")).WithArgs(itemID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	item, err := repo.GetByID(s.ctx, itemID)
	s.NoError(err)
	s.Nil(item)
}

func (s *RepoSuite) TestItemList_FiltrosYPaginacion() {
	repo := postgres.NewItemRepository(s.mock)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.mock.ExpectQuery(q("SELECT COUNT(*) FROM items WHERE (sku ILIKE $1 OR name ILIKE $1 OR category ILIKE $1) AND LOWER(category) = LOWER($2)")).
		WithArgs("%pap\\_el%", "Papelería").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	s.mock.ExpectQuery(q("ORDER BY name, sku LIMIT $3 OFFSET $4")).
		WithArgs("%pap\\_el%", "Papelería", 2, 1).
		WillReturnRows(pgxmock.NewRows([]string{"id", "sku", "name", "category", "unit", "low_stock_threshold",
			"default_location_id", "created_at", "updated_at"}).
			AddRow(itemID, "PAP-001", "Papel", "Papelería", "resma", decimal.NewFromInt(20), strPtr(locID), now, now))

	list, total, err := repo.List(s.ctx, repository.ItemFilter{Search: "pap_el", Category: "Papelería", Limit: 2, Offset: 1})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(list, 1)
	s.Equal("PAP-001", list[0].SKU)
	s.True(list[0].LowStockThreshold.Equal(decimal.NewFromInt(20)))
	s.Equal(locID, *list[0].DefaultLocationID)
}

func (s *RepoSuite) TestItemUpdate_SinFilasEsNotFound() {
	repo := postgres.NewItemRepository(s.mock)
	s.mock.ExpectExec(q("UPDATE items SET")).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(s.ctx, &entity.Item{ID: itemID})
	s.True(errors.Is(err, domain.ErrNotFound))
}

// ── Locations ────────────────────────────────────────────────────────────────

func (s *RepoSuite) TestLocationDescendantIDs_UsaCTERecursiva() {
	repo := postgres.NewLocationRepository(s.mock)
	s.mock.ExpectQuery(q("WITH RECURSIVE tree AS")).WithArgs(locID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))

	ids, err := repo.DescendantIDs(s.ctx, locID)
	s.NoError(err)
	s.Equal([]string{"a", "b"}, ids)
}

func (s *RepoSuite) TestLocationDelete_FKEsDependencyExists() {
	repo := postgres.NewLocationRepository(s.mock)
	s.mock.ExpectExec(q("DELETE FROM locations WHERE id = $1")).WithArgs(locID).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := repo.Delete(s.ctx, locID)
	s.True(errors.Is(err, domain.ErrDependencyExists))
}

func (s *RepoSuite) TestLocationDefaultLocationOf_SinArticulo() {
	repo := postgres.NewLocationRepository(s.mock)
	s.mock.ExpectQuery(q("FROM items WHERE default_location_id = $1")).WithArgs(locID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	id, err := repo.DefaultLocationOf(s.ctx, locID)
	s.NoError(err)
	s.Empty(id)
}

func (s *RepoSuite) TestLocationShiftDescendantLevels_DeltaCeroNoConsulta() {
	repo := postgres.NewLocationRepository(s.mock)
	s.NoError(repo.ShiftDescendantLevels(s.ctx, locID, 0))

	s.mock.ExpectExec(q("UPDATE locations SET level = level + $2")).WithArgs(locID, 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	s.NoError(repo.ShiftDescendantLevels(s.ctx, locID, 2))
}

func (s *RepoSuite) TestLocationList_SoloRaicesActivas() {
	repo := postgres.NewLocationRepository(s.mock)
	active := true
	now := time.Now()
	s.mock.ExpectQuery(q("SELECT COUNT(*) FROM locations WHERE is_active = $1 AND parent_id IS NULL")).
		WithArgs(true).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	s.mock.ExpectQuery(q("ORDER BY code LIMIT $2")).WithArgs(true, 20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "code", "name", "description", "parent_id", "level",
			"is_active", "created_at", "updated_at"}).
			AddRow(locID, "A", "Bodega A", "", (*string)(nil), 0, true, now, now))

	list, total, err := repo.List(s.ctx, repository.LocationFilter{Active: &active, RootsOnly: true, Limit: 20})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(list, 1)
	s.Nil(list[0].ParentID)
	s.True(list[0].IsRoot())
}

// ── Movements ────────────────────────────────────────────────────────────────

func (s *RepoSuite) TestMovementCreate_CamposVaciosComoNULL() {
	repo := postgres.NewMovementRepository(s.mock)
	date := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	m := &entity.Movement{
		ID: "m-1", ItemID: itemID, LocationID: locID, Type: entity.MovementInbound,
		Quantity: decimal.NewFromInt(5), Date: date, Operator: "ana", Supplier: "Acme", CreatedAt: date,
	}
	s.mock.ExpectExec(q("INSERT INTO transactions")).
		WithArgs("m-1", itemID, locID, "inbound", pgxmock.AnyArg(), date, "ana",
			strPtr("Acme"), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), date).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s.NoError(repo.Create(s.ctx, m))
}

func (s *RepoSuite) TestMovementGetByID_MapeaNulos() {
	repo := postgres.NewMovementRepository(s.mock)
	date := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.mock.ExpectQuery(q("FROM transactions WHERE id = $1")).WithArgs("m-1").
		WillReturnRows(pgxmock.NewRows(movementCols).
			AddRow("m-1", itemID, locID, "outbound", decimal.NewFromInt(3), date, "ana",
				(*string)(nil), strPtr("Contabilidad"), strPtr("uso diario"), strPtr("lote-1"), (*string)(nil), date))

	m, err := repo.GetByID(s.ctx, "m-1")
	s.Require().NoError(err)
	s.Equal(entity.MovementOutbound, m.Type)
	s.Empty(m.Supplier)
	s.Equal("Contabilidad", m.Recipient)
	s.Equal("lote-1", m.BatchID)
	s.Empty(m.Notes)
}

func (s *RepoSuite) TestMovementGetByID_IDMalFormadoEsValidation() {
	repo := postgres.NewMovementRepository(s.mock)
	s.mock.ExpectQuery(q("FROM transactions WHERE id = $1")).WithArgs("abc").
		WillReturnError(&pgconn.PgError{Code: "22P02"})

	m, err := repo.GetByID(s.ctx, "abc")
	s.Nil(m)
	s.Equal(domain.KindValidation, domain.KindOf(err), "no sale como error interno")
}

func (s *RepoSuite) TestMovementList_OrdenEnListaBlanca() {
	repo := postgres.NewMovementRepository(s.mock)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.mock.ExpectQuery(q("SELECT COUNT(*) FROM transactions WHERE item_id = $1 AND type = $2 AND operator ILIKE $3 AND date >= $4")).
		WithArgs(itemID, "outbound", "%ana%", from).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	s.mock.ExpectQuery(q("ORDER BY quantity DESC, id DESC LIMIT $5")).
		WithArgs(itemID, "outbound", "%ana%", from, 10).
		WillReturnRows(pgxmock.NewRows(movementCols))

	list, total, err := repo.List(s.ctx, repository.MovementFilter{
		ItemID: itemID, Type: entity.MovementOutbound, Operator: "ana", From: &from,
		SortBy: repository.MovementSortQuantity, SortDesc: true, Limit: 10,
	})
	s.NoError(err)
	s.Zero(total)
	s.Empty(list)
}

func (s *RepoSuite) TestMovementList_OrdenDesconocidoUsaFecha() {
	repo := postgres.NewMovementRepository(s.mock)
	s.mock.ExpectQuery(q("SELECT COUNT(*) FROM transactions")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	s.mock.ExpectQuery(q("ORDER BY date ASC, id ASC")).
		WillReturnRows(pgxmock.NewRows(movementCols))

	_, _, err := repo.List(s.ctx, repository.MovementFilter{SortBy: "quantity; DROP TABLE items"})
	s.NoError(err)
}

func (s *RepoSuite) TestMovementDelete_SinFilasEsNotFound() {
	repo := postgres.NewMovementRepository(s.mock)
	s.mock.ExpectExec(q("DELETE FROM transactions WHERE id = $1")).WithArgs("m-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(s.ctx, "m-1")
	s.True(errors.Is(err, domain.ErrNotFound))
}

func (s *RepoSuite) TestMovementLockBatch() {
	repo := postgres.NewMovementRepository(s.mock)
	s.mock.ExpectExec(q("pg_advisory_xact_lock(hashtextextended($1, 0))")).WithArgs("batch:IMP-7").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	s.NoError(repo.LockBatch(s.ctx, "IMP-7"))
}

// ── Stock ────────────────────────────────────────────────────────────────────

func (s *RepoSuite) TestStockLockPairs_UnLockPorParEnOrden() {
	repo := postgres.NewStockRepository(s.mock)
	s.mock.ExpectExec(q("pg_advisory_xact_lock(hashtextextended($1, 0))")).WithArgs("stock:a:1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	s.mock.ExpectExec(q("pg_advisory_xact_lock(hashtextextended($1, 0))")).WithArgs("stock:b:1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	err := repo.LockPairs(s.ctx, []entity.PairKey{{ItemID: "a", LocationID: "1"}, {ItemID: "b", LocationID: "1"}})
	s.NoError(err)
}

func (s *RepoSuite) TestStockCurrentStock() {
	repo := postgres.NewStockRepository(s.mock)
	s.mock.ExpectQuery(q("FROM transactions WHERE item_id = $1 AND location_id = $2")).WithArgs(itemID, locID).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(decimal.NewFromInt(42)))

	stock, err := repo.CurrentStock(s.ctx, itemID, locID)
	s.NoError(err)
	s.True(stock.Equal(decimal.NewFromInt(42)))
}

func (s *RepoSuite) TestStockMinBalanceFrom_VentanaDesdeElMovimiento() {
	repo := postgres.NewStockRepository(s.mock)
	date := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	m := &entity.Movement{ID: "0b5f3c1e-6a3b-4d2e-9a51-1f0e2c3d4aff", ItemID: itemID, LocationID: locID, Date: date, CreatedAt: date}
	s.mock.ExpectQuery(q("OVER (ORDER BY date, created_at, id)")).
		WithArgs(itemID, locID, date, date, m.ID).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(decimal.NewFromInt(20)))

	low, err := repo.MinBalanceFrom(s.ctx, m)
	s.NoError(err)
	s.True(low.Equal(decimal.NewFromInt(20)))
}

func (s *RepoSuite) TestStockInventoryStatus_StockBajoSinExigirUmbral() {
	repo := postgres.NewStockRepository(s.mock)
	low := true
	s.mock.ExpectQuery(q("SELECT COUNT(*) FROM current_inventory ci")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	s.mock.ExpectQuery(q("WHERE (ci.current_stock <= i.low_stock_threshold) ORDER BY i.name ASC, l.code ASC LIMIT $1")).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"item_id", "sku", "name", "category", "unit", "location_id", "code", "name",
			"current_stock", "low_stock_threshold", "last_transaction_date"}))

	rows, total, err := repo.InventoryStatus(s.ctx, repository.InventoryFilter{LowStock: &low, Limit: 10})
	s.NoError(err)
	s.Zero(total)
	s.Empty(rows)
}

func (s *RepoSuite) TestStockDailyTotals_UbicacionOpcional() {
	repo := postgres.NewStockRepository(s.mock)
	from := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)
	day := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	s.mock.ExpectQuery(q("date_trunc('day', date AT TIME ZONE 'UTC')")).
		WithArgs(itemID, (*string)(nil), from).
		WillReturnRows(pgxmock.NewRows([]string{"day", "inbound", "outbound"}).
			AddRow(day, decimal.NewFromInt(10), decimal.NewFromInt(4)))

	out, err := repo.DailyTotals(s.ctx, itemID, nil, from)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Equal(day, out[0].Day)
	s.True(out[0].Outbound.Equal(decimal.NewFromInt(4)))
}

// ── TxRunner ─────────────────────────────────────────────────────────────────

func TestTxRunner_CommitYRollback(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	runner := postgres.NewTxRunner(mock)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(q("pg_advisory_xact_lock")).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectCommit()
	err = runner.Run(ctx, func(repos ports.TxRepos) error {
		return repos.Locations.LockHierarchy(ctx)
	})
	assert.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = runner.Run(ctx, func(ports.TxRepos) error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}
