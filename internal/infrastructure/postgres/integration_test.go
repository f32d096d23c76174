//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/jhoicas/suministros-api/internal/application/dto"
	"github.com/jhoicas/suministros-api/internal/application/inventory"
	"github.com/jhoicas/suministros-api/internal/application/usecase"
	"github.com/jhoicas/suministros-api/internal/domain"
	"github.com/jhoicas/suministros-api/internal/domain/entity"
	"github.com/jhoicas/suministros-api/internal/infrastructure/postgres"
	"github.com/jhoicas/suministros-api/pkg/config"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool

	ledger     *inventory.LedgerUseCase
	projection *inventory.ProjectionUseCase
	locations  *usecase.LocationUseCase
	items      *usecase.ItemUseCase
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	container, err := tcpostgres.Run(s.ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("suministros_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)
	pool, err := postgres.NewPool(s.ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 8})
	s.Require().NoError(err)
	s.pool = pool

	// Dos veces: el esquema es idempotente.
	s.Require().NoError(postgres.Migrate(s.ctx, pool))
	s.Require().NoError(postgres.Migrate(s.ctx, pool))

	repos := postgres.Repos(pool)
	tx := postgres.NewTxRunner(pool)
	log := zerolog.Nop()
	s.ledger = inventory.NewLedgerUseCase(tx, repos.Movements, nil, nil, nil, log, inventory.DefaultLedgerConfig())
	s.projection = inventory.NewProjectionUseCase(repos.Items, repos.Locations, repos.Movements, repos.Stock, nil, log,
		inventory.ProjectionConfig{})
	s.locations = usecase.NewLocationUseCase(tx, repos.Locations)
	s.items = usecase.NewItemUseCase(repos.Items, repos.Locations)
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, `TRUNCATE transactions, items, locations`)
	s.Require().NoError(err)
}

func (s *PostgresIntegrationSuite) location(code string, parent *string) *dto.LocationResponse {
	loc, err := s.locations.Create(s.ctx, dto.CreateLocationRequest{Code: code, Name: "Ubicación " + code, ParentID: parent})
	s.Require().NoError(err)
	return loc
}

func (s *PostgresIntegrationSuite) item(sku string, threshold int64) *dto.ItemResponse {
	it, err := s.items.Create(s.ctx, dto.CreateItemRequest{
		SKU: sku, Name: "Artículo " + sku, Category: "Papelería", Unit: "unidad",
		LowStockThreshold: decimal.NewFromInt(threshold),
	})
	s.Require().NoError(err)
	return it
}

func (s *PostgresIntegrationSuite) move(itemID, locID, typ string, qty int64, at time.Time) error {
	in := dto.CreateMovementRequest{
		ItemID: itemID, LocationID: locID, Type: typ, Quantity: decimal.NewFromInt(qty), Date: &at, Operator: "ana",
	}
	if typ == string(entity.MovementInbound) {
		in.Supplier = "Acme"
	} else {
		in.Recipient = "Contabilidad"
		in.Purpose = "uso diario"
	}
	_, err := s.ledger.CreateMovement(s.ctx, in)
	return err
}

func (s *PostgresIntegrationSuite) TestJerarquia_DescendientesYAncestros() {
	a := s.location("A", nil)
	a1 := s.location("A-01", &a.ID)
	a1x := s.location("A-01-X", &a1.ID)
	b := s.location("B", nil)

	ids, err := postgres.NewLocationRepository(s.pool).DescendantIDs(s.ctx, a.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]string{a1.ID, a1x.ID}, ids)

	anc, err := s.locations.Ancestors(s.ctx, a1x.ID)
	s.Require().NoError(err)
	s.Require().Len(anc, 2)
	s.Equal("A", anc[0].Code)
	s.Equal("A-01", anc[1].Code)

	_, err = s.locations.Update(s.ctx, a1.ID, dto.UpdateLocationRequest{ParentID: &a1x.ID})
	s.Equal(domain.KindInvalidHierarchy, domain.KindOf(err))

	// Convertir A-01 en raíz desplaza todo su subárbol un nivel.
	moved, err := s.locations.Update(s.ctx, a1.ID, dto.UpdateLocationRequest{ClearParent: true})
	s.Require().NoError(err)
	s.Equal(0, moved.Level)
	x, err := s.locations.GetByID(s.ctx, a1x.ID)
	s.Require().NoError(err)
	s.Equal(1, x.Level)

	err = s.locations.Delete(s.ctx, b.ID)
	s.NoError(err)
}

func (s *PostgresIntegrationSuite) TestConcurrencia_DosSalidasSobreElMismoPar() {
	loc := s.location("CONC", nil)
	it := s.item("CONC-1", 0)
	now := time.Now().UTC().Add(-time.Minute)
	s.Require().NoError(s.move(it.ID, loc.ID, "inbound", 100, now))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.move(it.ID, loc.ID, "outbound", 80, now)
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			s.True(errors.Is(err, domain.ErrInsufficientStock), err.Error())
			failures++
		}
	}
	s.Equal(1, failures)
	stock, err := s.projection.CurrentStock(s.ctx, it.ID, loc.ID)
	s.Require().NoError(err)
	s.True(stock.CurrentStock.Equal(decimal.NewFromInt(20)), stock.CurrentStock.String())
}

func (s *PostgresIntegrationSuite) TestLote_AtomicoAnteFallo() {
	loc := s.location("LOTE", nil)
	it := s.item("LOTE-1", 0)
	at := time.Now().UTC().Add(-time.Hour)
	row := func(typ string, qty int64) dto.CreateMovementRequest {
		r := dto.CreateMovementRequest{ItemID: it.ID, LocationID: loc.ID, Type: typ,
			Quantity: decimal.NewFromInt(qty), Date: &at, Operator: "ana"}
		if typ == "inbound" {
			r.Supplier = "Acme"
		} else {
			r.Recipient, r.Purpose = "Gerencia", "reunión"
		}
		return r
	}

	_, err := s.ledger.CreateBatch(s.ctx, dto.CreateBatchRequest{BatchID: "b-fail", Movements: []dto.CreateMovementRequest{
		row("inbound", 10), row("outbound", 50),
	}})
	s.True(errors.Is(err, domain.ErrBatchRejected))

	list, err := s.ledger.ListMovements(s.ctx, dto.MovementListRequest{ItemID: it.ID})
	s.Require().NoError(err)
	s.Zero(list.Page.Total)

	res, err := s.ledger.CreateBatch(s.ctx, dto.CreateBatchRequest{BatchID: "b-ok", Movements: []dto.CreateMovementRequest{
		row("inbound", 10), row("inbound", 5),
	}})
	s.Require().NoError(err)
	s.Equal(2, res.Count)

	batch, err := s.ledger.GetBatch(s.ctx, "b-ok")
	s.Require().NoError(err)
	s.Len(batch.Movements, 2)
	s.Equal(domain.KindPartOfBatch, domain.KindOf(s.ledger.DeleteMovement(s.ctx, batch.Movements[0].ID)))
}

func (s *PostgresIntegrationSuite) TestHistorial_UltimoPuntoIgualAlStockActual() {
	loc := s.location("HIST", nil)
	other := s.location("HIST-2", nil)
	it := s.item("HIST-1", 20)
	now := time.Now().UTC()
	s.Require().NoError(s.move(it.ID, loc.ID, "inbound", 50, now.AddDate(0, 0, -45)))
	s.Require().NoError(s.move(it.ID, loc.ID, "outbound", 15, now.AddDate(0, 0, -10)))
	s.Require().NoError(s.move(it.ID, other.ID, "inbound", 7, now.AddDate(0, 0, -3)))
	s.Require().NoError(s.move(it.ID, loc.ID, "inbound", 2, now.Add(-time.Minute)))

	for _, days := range []int{1, 7, 30, 90} {
		h, err := s.projection.History(s.ctx, it.ID, &loc.ID, days)
		s.Require().NoError(err)
		s.Len(h.Series, days+1)
		s.True(h.Series[days].RunningStock.Equal(decimal.NewFromInt(37)), "days=%d", days)
	}

	all, err := s.projection.History(s.ctx, it.ID, nil, 30)
	s.Require().NoError(err)
	s.True(all.Series[30].RunningStock.Equal(decimal.NewFromInt(44)))

	alerts, err := s.projection.LowStockAlerts(s.ctx, nil)
	s.Require().NoError(err)
	s.Require().Len(alerts, 1)
	s.Equal("HIST-2", alerts[0].LocationCode)

	stats, err := s.projection.Statistics(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.TotalItems)
	s.Equal(2, stats.TotalLocations)
	s.True(stats.TotalStock.Equal(decimal.NewFromInt(44)))
	s.Equal(1, stats.LowStockCount)
}
