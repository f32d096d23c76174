package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/suministros-api/internal/application/dto"
	"github.com/jhoicas/suministros-api/internal/domain"
	"github.com/jhoicas/suministros-api/internal/domain/entity"
	"github.com/jhoicas/suministros-api/internal/domain/inventory"
	"github.com/jhoicas/suministros-api/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Valores por defecto de la proyección.
const (
	DefaultHistoryDays    = 30
	DefaultHistoryMaxDays = 365
	RecentMovementsLimit  = 10
	TopStatistics         = 10
)

// ProjectionConfig parámetros de lectura de la proyección.
type ProjectionConfig struct {
	CacheTTL       time.Duration
	HistoryMaxDays int
}

// ProjectionUseCase lecturas agregadas sobre el libro mayor: stock actual, estado, alertas, resúmenes e historial.
// Nunca modifica movimientos.
type ProjectionUseCase struct {
	items     repository.ItemRepository
	locations repository.LocationRepository
	movements repository.MovementRepository
	stock     repository.StockRepository
	cache     Cache
	log       zerolog.Logger
	cfg       ProjectionConfig
	now       func() time.Time
}

// NewProjectionUseCase construye el caso de uso. cache puede ser nil.
func NewProjectionUseCase(
	items repository.ItemRepository,
	locations repository.LocationRepository,
	movements repository.MovementRepository,
	stock repository.StockRepository,
	cache Cache,
	log zerolog.Logger,
	cfg ProjectionConfig,
) *ProjectionUseCase {
	if cache == nil {
		cache = NopCache{}
	}
	if cfg.HistoryMaxDays <= 0 {
		cfg.HistoryMaxDays = DefaultHistoryMaxDays
	}
	return &ProjectionUseCase{
		items:     items,
		locations: locations,
		movements: movements,
		stock:     stock,
		cache:     cache,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *ProjectionUseCase) WithClock(now func() time.Time) *ProjectionUseCase {
	uc.now = now
	return uc
}

// CurrentStock Σ entradas - Σ salidas del par (artículo, ubicación).
func (uc *ProjectionUseCase) CurrentStock(ctx context.Context, itemID, locationID string) (*dto.CurrentStockResponse, error) {
	if err := uc.requireItem(ctx, itemID); err != nil {
		return nil, err
	}
	if _, err := uc.requireLocation(ctx, locationID); err != nil {
		return nil, err
	}
	current, err := uc.stock.CurrentStock(ctx, itemID, locationID)
	if err != nil {
		return nil, err
	}
	return &dto.CurrentStockResponse{ItemID: itemID, LocationID: locationID, CurrentStock: current}, nil
}

// InventoryStatus estado de inventario filtrado y paginado.
func (uc *ProjectionUseCase) InventoryStatus(ctx context.Context, in dto.InventoryStatusRequest) (*dto.InventoryStatusResponse, error) {
	in.DefaultPage()
	filter := repository.InventoryFilter{
		Search:     strings.TrimSpace(in.Search),
		Category:   strings.TrimSpace(in.Category),
		LocationID: in.LocationID,
		LowStock:   in.LowStock,
		HasStock:   in.HasStock,
		SortBy:     in.SortBy,
		SortDesc:   in.SortOrder == "desc",
		Limit:      in.Limit,
		Offset:     in.Offset,
	}
	if filter.SortBy == "" {
		filter.SortBy = repository.InventorySortItemName
	}
	fields := map[string]string{}
	if in.MinStock != "" {
		v, err := decimal.NewFromString(in.MinStock)
		if err != nil {
			fields["min_stock"] = "debe ser numérico"
		} else {
			filter.MinStock = &v
		}
	}
	if in.MaxStock != "" {
		v, err := decimal.NewFromString(in.MaxStock)
		if err != nil {
			fields["max_stock"] = "debe ser numérico"
		} else {
			filter.MaxStock = &v
		}
	}
	if filter.MinStock != nil && filter.MaxStock != nil && filter.MinStock.GreaterThan(*filter.MaxStock) {
		fields["min_stock"] = "no puede ser mayor que max_stock"
	}
	if len(fields) > 0 {
		return nil, domain.Validation("filtros inválidos", fields)
	}

	rows, total, err := uc.stock.InventoryStatus(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.InventoryStatusResponse{
		Items: dto.NewInventoryRows(rows),
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	}, nil
}

// ItemInventory desglose por ubicación de un artículo, stock total y sus últimos movimientos.
func (uc *ProjectionUseCase) ItemInventory(ctx context.Context, itemID string) (*dto.ItemInventoryResponse, error) {
	item, err := uc.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.NotFound("artículo", itemID)
	}
	rows, err := uc.stock.ItemStock(ctx, itemID)
	if err != nil {
		return nil, err
	}
	recent, err := uc.movements.ListRecentByItem(ctx, itemID, RecentMovementsLimit)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.CurrentStock)
	}
	return &dto.ItemInventoryResponse{
		Item:            dto.NewItemResponse(item),
		TotalStock:      total,
		Locations:       dto.NewInventoryRows(rows),
		RecentMovements: dto.NewMovementResponses(recent),
	}, nil
}

// LowStockAlerts pares en o bajo el umbral (threshold o el del artículo), por déficit descendente.
// La variante sin threshold se guarda en caché hasta la próxima escritura del libro mayor.
func (uc *ProjectionUseCase) LowStockAlerts(ctx context.Context, threshold *decimal.Decimal) ([]dto.LowStockAlertDTO, error) {
	if threshold != nil && threshold.IsNegative() {
		return nil, domain.Validation("umbral inválido", map[string]string{"threshold": "debe ser >= 0"})
	}
	if threshold == nil {
		var cached []dto.LowStockAlertDTO
		if ok := uc.cacheGet(ctx, CacheKeyLowStock, &cached); ok {
			return cached, nil
		}
	}

	rows, err := uc.stock.LowStock(ctx, threshold)
	if err != nil {
		return nil, err
	}
	alerts := inventory.RankLowStock(rows, threshold)
	out := make([]dto.LowStockAlertDTO, 0, len(alerts))
	for i := range alerts {
		out = append(out, dto.NewLowStockAlert(&alerts[i]))
	}
	if threshold == nil {
		uc.cacheSet(ctx, CacheKeyLowStock, out)
	}
	return out, nil
}

// LocationSummary artículos con stock positivo en la ubicación y cuántos están en stock bajo.
func (uc *ProjectionUseCase) LocationSummary(ctx context.Context, locationID string) (*dto.LocationSummaryResponse, error) {
	loc, err := uc.requireLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	rows, err := uc.stock.LocationStock(ctx, locationID)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	low := 0
	for i := range rows {
		total = total.Add(rows[i].CurrentStock)
		if rows[i].RaisesAlert() {
			low++
		}
	}
	return &dto.LocationSummaryResponse{
		Location:      dto.NewLocationResponse(loc),
		Items:         dto.NewInventoryRows(rows),
		ItemCount:     len(rows),
		TotalStock:    total,
		LowStockCount: low,
	}, nil
}

// Statistics totales globales + top 10 categorías y ubicaciones por stock.
func (uc *ProjectionUseCase) Statistics(ctx context.Context) (*dto.StatisticsResponse, error) {
	var cached dto.StatisticsResponse
	if ok := uc.cacheGet(ctx, CacheKeyStatistics, &cached); ok {
		return &cached, nil
	}
	stats, err := uc.stock.Statistics(ctx, TopStatistics)
	if err != nil {
		return nil, err
	}
	out := dto.NewStatistics(stats)
	uc.cacheSet(ctx, CacheKeyStatistics, out)
	return &out, nil
}

// History serie diaria contigua para [hoy - days, hoy] (días UTC), days+1 filas; days = 0 es solo hoy.
// locationID nil = todas las ubicaciones. El running_stock del último día coincide con el stock actual.
func (uc *ProjectionUseCase) History(ctx context.Context, itemID string, locationID *string, days int) (*dto.HistoryResponse, error) {
	if days < 0 || days > uc.cfg.HistoryMaxDays {
		return nil, domain.Validation("rango inválido", map[string]string{"days": fmt.Sprintf("debe estar entre 0 y %d", uc.cfg.HistoryMaxDays)})
	}
	if err := uc.requireItem(ctx, itemID); err != nil {
		return nil, err
	}
	if locationID != nil {
		if _, err := uc.requireLocation(ctx, *locationID); err != nil {
			return nil, err
		}
	}

	start, end := inventory.HistoryRange(uc.now(), days)
	initial, err := uc.stock.NetBefore(ctx, itemID, locationID, start)
	if err != nil {
		return nil, err
	}
	totals, err := uc.stock.DailyTotals(ctx, itemID, locationID, start)
	if err != nil {
		return nil, err
	}
	series := inventory.BuildDailySeries(initial, totals, start, end)
	return &dto.HistoryResponse{
		ItemID:       itemID,
		LocationID:   locationID,
		Days:         days,
		InitialStock: initial,
		Series:       dto.NewHistoryPoints(series),
	}, nil
}

func (uc *ProjectionUseCase) requireItem(ctx context.Context, id string) error {
	item, err := uc.items.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.NotFound("artículo", id)
	}
	return nil
}

func (uc *ProjectionUseCase) requireLocation(ctx context.Context, id string) (*entity.Location, error) {
	loc, err := uc.locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, domain.NotFound("ubicación", id)
	}
	return loc, nil
}

func (uc *ProjectionUseCase) cacheGet(ctx context.Context, key string, dest any) bool {
	ok, err := uc.cache.Get(ctx, key, dest)
	if err != nil {
		uc.log.Warn().Err(err).Str("key", key).Msg("lectura de caché fallida")
		return false
	}
	return ok
}

func (uc *ProjectionUseCase) cacheSet(ctx context.Context, key string, value any) {
	if uc.cfg.CacheTTL <= 0 {
		return
	}
	if err := uc.cache.Set(ctx, key, value, uc.cfg.CacheTTL); err != nil {
		uc.log.Warn().Err(err).Str("key", key).Msg("escritura de caché fallida")
	}
}
