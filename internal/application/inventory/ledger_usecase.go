package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/suministros-api/internal/application/dto"
	"github.com/jhoicas/suministros-api/internal/application/ports"
	"github.com/jhoicas/suministros-api/internal/domain"
	"github.com/jhoicas/suministros-api/internal/domain/entity"
	"github.com/jhoicas/suministros-api/internal/domain/inventory"
	"github.com/jhoicas/suministros-api/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerConfig ventanas de retención del libro mayor.
type LedgerConfig struct {
	DeleteWindow  time.Duration
	ReverseWindow time.Duration
}

// DefaultLedgerConfig 7 días para borrar, 30 para revertir.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		DeleteWindow:  inventory.DefaultDeleteDays * 24 * time.Hour,
		ReverseWindow: inventory.DefaultReverseDays * 24 * time.Hour,
	}
}

// LedgerUseCase registra movimientos de inventario (entradas/salidas) de forma transaccional.
// Cada escritura bloquea los pares (artículo, ubicación) afectados antes de leer el stock,
// de modo que dos salidas concurrentes sobre el mismo par nunca ven el mismo saldo.
type LedgerUseCase struct {
	tx        ports.TxRunner
	movements repository.MovementRepository
	cache     Cache
	events    EventPublisher
	metrics   Recorder
	log       zerolog.Logger
	cfg       LedgerConfig
	now       func() time.Time
}

// NewLedgerUseCase construye el caso de uso. cache, events y metrics pueden ser nil.
func NewLedgerUseCase(
	tx ports.TxRunner,
	movements repository.MovementRepository,
	cache Cache,
	events EventPublisher,
	metrics Recorder,
	log zerolog.Logger,
	cfg LedgerConfig,
) *LedgerUseCase {
	if cache == nil {
		cache = NopCache{}
	}
	if events == nil {
		events = NopPublisher{}
	}
	if metrics == nil {
		metrics = NopRecorder{}
	}
	return &LedgerUseCase{
		tx:        tx,
		movements: movements,
		cache:     cache,
		events:    events,
		metrics:   metrics,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *LedgerUseCase) WithClock(now func() time.Time) *LedgerUseCase {
	uc.now = now
	return uc
}

// CreateMovement valida y registra un movimiento. Una salida que supera el stock visible
// devuelve *domain.InsufficientStockError y no deja ningún registro.
func (uc *LedgerUseCase) CreateMovement(ctx context.Context, in dto.CreateMovementRequest) (*dto.MovementResponse, error) {
	now := uc.now()
	m := newMovement(in, now)
	if err := validateNew(m, now); err != nil {
		uc.metrics.MovementRejected(string(domain.KindValidation))
		return nil, err
	}

	err := uc.tx.Run(ctx, func(repos ports.TxRepos) error {
		if err := resolveRefs(ctx, repos, m.ItemID, m.LocationID); err != nil {
			return err
		}
		if err := repos.Stock.LockPairs(ctx, []entity.PairKey{m.Key()}); err != nil {
			return err
		}
		if m.Type == entity.MovementOutbound {
			if err := checkStock(ctx, repos.Stock, m.Key(), m.Quantity); err != nil {
				return err
			}
		}
		return repos.Movements.Create(ctx, m)
	})
	if err != nil {
		uc.rejected(err, m)
		return nil, err
	}

	uc.metrics.MovementRecorded(string(m.Type), 1)
	uc.afterCommit(ctx, EventMovementRecorded, m)
	out := dto.NewMovementResponse(m)
	return &out, nil
}

// CreateBatch registra un lote todo-o-nada: todas las filas comparten batch_id (generado si falta).
// Un batch_id ya usado se rechaza con CONFLICT; un lote nunca recibe filas de otra importación.
// El stock se valida una sola vez por par (artículo, ubicación) con la suma de sus salidas;
// cualquier falla de fila o de grupo rechaza el lote completo con *domain.BatchError.
func (uc *LedgerUseCase) CreateBatch(ctx context.Context, in dto.CreateBatchRequest) (*dto.BatchResponse, error) {
	if len(in.Movements) == 0 {
		return nil, domain.Validation("el lote está vacío", map[string]string{"movements": "al menos un movimiento"})
	}
	now := uc.now()
	batchID := strings.TrimSpace(in.BatchID)
	if batchID == "" {
		batchID = uuid.New().String()
	}

	movs := make([]*entity.Movement, 0, len(in.Movements))
	var failures []domain.RowFailure
	for i, row := range in.Movements {
		m := newMovement(row, now)
		m.BatchID = batchID
		if err := validateNew(m, now); err != nil {
			failures = append(failures, domain.RowFailure{Row: i, Err: err})
		}
		movs = append(movs, m)
	}
	if len(failures) > 0 {
		uc.metrics.MovementRejected(string(domain.KindBatchRejected))
		return nil, &domain.BatchError{BatchID: batchID, Failures: failures}
	}

	err := uc.tx.Run(ctx, func(repos ports.TxRepos) error {
		if err := repos.Movements.LockBatch(ctx, batchID); err != nil {
			return err
		}
		existing, err := repos.Movements.CountByBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if existing > 0 {
			return domain.Conflict("ya existe un lote con batch_id " + batchID)
		}
		fails := uc.resolveBatchRefs(ctx, repos, movs)
		if len(fails) > 0 {
			return &domain.BatchError{BatchID: batchID, Failures: fails}
		}

		pairs := inventory.SortedPairs(movs)
		if err := repos.Stock.LockPairs(ctx, pairs); err != nil {
			return err
		}
		totals := inventory.OutboundByPair(movs)
		for _, p := range pairs {
			requested, ok := totals[p]
			if !ok {
				continue
			}
			if err := checkStock(ctx, repos.Stock, p, requested); err != nil {
				if domain.KindOf(err) != domain.KindInsufficientStock {
					return err
				}
				fails = append(fails, domain.RowFailure{Row: -1, Err: err})
			}
		}
		if len(fails) > 0 {
			return &domain.BatchError{BatchID: batchID, Failures: fails}
		}

		for _, m := range movs {
			if err := repos.Movements.Create(ctx, m); err != nil {
				return fmt.Errorf("batch %s: %w", batchID, err)
			}
		}
		return nil
	})
	if err != nil {
		uc.metrics.MovementRejected(string(domain.KindOf(err)))
		uc.log.Warn().Err(err).Str("batch_id", batchID).Int("rows", len(movs)).Msg("lote rechazado")
		return nil, err
	}

	for _, m := range movs {
		uc.metrics.MovementRecorded(string(m.Type), 1)
	}
	uc.metrics.BatchCommitted(len(movs))
	uc.log.Info().Str("batch_id", batchID).Int("rows", len(movs)).Msg("lote registrado")
	uc.afterCommit(ctx, EventMovementRecorded, movs...)

	return &dto.BatchResponse{
		BatchID:   batchID,
		Count:     len(movs),
		Movements: dto.NewMovementResponses(movs),
	}, nil
}

// resolveBatchRefs verifica artículo y ubicación de cada fila, consultando cada id una sola vez.
func (uc *LedgerUseCase) resolveBatchRefs(ctx context.Context, repos ports.TxRepos, movs []*entity.Movement) []domain.RowFailure {
	checked := make(map[string]error)
	var failures []domain.RowFailure
	for i, m := range movs {
		for _, key := range []string{"item:" + m.ItemID, "location:" + m.LocationID} {
			err, seen := checked[key]
			if !seen {
				if strings.HasPrefix(key, "item:") {
					err = resolveItem(ctx, repos.Items, m.ItemID)
				} else {
					err = resolveLocation(ctx, repos.Locations, m.LocationID)
				}
				checked[key] = err
			}
			if err != nil {
				failures = append(failures, domain.RowFailure{Row: i, Err: err})
				break
			}
		}
	}
	return failures
}

// UpdateMovement modifica solo operator/supplier/recipient/purpose/notes.
// Un patch que incluya campos inmutables se rechaza completo con VALIDATION.
func (uc *LedgerUseCase) UpdateMovement(ctx context.Context, id string, in dto.UpdateMovementRequest) (*dto.MovementResponse, error) {
	if err := rejectImmutable(in); err != nil {
		return nil, err
	}
	var m *entity.Movement
	err := uc.tx.Run(ctx, func(repos ports.TxRepos) error {
		var err error
		m, err = repos.Movements.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.NotFound("movimiento", id)
		}
		applyPatch(m, in)
		if err := inventory.ValidateMovement(m, uc.now()); err != nil {
			return err
		}
		return repos.Movements.Update(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	uc.afterCommit(ctx, EventMovementUpdated, m)
	out := dto.NewMovementResponse(m)
	return &out, nil
}

// DeleteMovement borra un movimiento dentro de la ventana de retención que no pertenezca a un lote de varias filas.
// Borrar una entrada no puede dejar el par en negativo en ningún punto posterior del libro mayor.
func (uc *LedgerUseCase) DeleteMovement(ctx context.Context, id string) error {
	var m *entity.Movement
	err := uc.tx.Run(ctx, func(repos ports.TxRepos) error {
		var err error
		m, err = repos.Movements.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.NotFound("movimiento", id)
		}
		batchSize := 0
		if m.BatchID != "" {
			if batchSize, err = repos.Movements.CountByBatch(ctx, m.BatchID); err != nil {
				return err
			}
		}
		if err := inventory.CheckDeletable(m, batchSize, uc.now(), uc.cfg.DeleteWindow); err != nil {
			return err
		}
		if err := repos.Stock.LockPairs(ctx, []entity.PairKey{m.Key()}); err != nil {
			return err
		}
		if m.Type == entity.MovementInbound {
			if err := checkRemovable(ctx, repos.Stock, m); err != nil {
				return err
			}
		}
		return repos.Movements.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	uc.afterCommit(ctx, EventMovementDeleted, m)
	return nil
}

// Reverse registra el movimiento opuesto a id (misma cantidad, artículo y ubicación) sin tocar el original.
func (uc *LedgerUseCase) Reverse(ctx context.Context, id, operator string) (*dto.MovementResponse, error) {
	now := uc.now()
	var rev *entity.Movement
	err := uc.tx.Run(ctx, func(repos ports.TxRepos) error {
		orig, err := repos.Movements.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if orig == nil {
			return domain.NotFound("movimiento", id)
		}
		if err := inventory.CheckReversible(orig, now, uc.cfg.ReverseWindow); err != nil {
			return err
		}
		rev = inventory.NewReversal(orig, strings.TrimSpace(operator), now)
		rev.ID = uuid.New().String()
		rev.CreatedAt = now
		if err := inventory.ValidateMovement(rev, now); err != nil {
			return err
		}
		if err := repos.Stock.LockPairs(ctx, []entity.PairKey{rev.Key()}); err != nil {
			return err
		}
		if rev.Type == entity.MovementOutbound {
			if err := checkStock(ctx, repos.Stock, rev.Key(), rev.Quantity); err != nil {
				return err
			}
		}
		return repos.Movements.Create(ctx, rev)
	})
	if err != nil {
		uc.rejected(err, rev)
		return nil, err
	}
	uc.metrics.MovementRecorded(string(rev.Type), 1)
	uc.afterCommit(ctx, EventMovementRecorded, rev)
	out := dto.NewMovementResponse(rev)
	return &out, nil
}

// GetMovement obtiene un movimiento por ID.
func (uc *LedgerUseCase) GetMovement(ctx context.Context, id string) (*dto.MovementResponse, error) {
	m, err := uc.movements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.NotFound("movimiento", id)
	}
	out := dto.NewMovementResponse(m)
	return &out, nil
}

// GetBatch devuelve todas las filas de un lote.
func (uc *LedgerUseCase) GetBatch(ctx context.Context, batchID string) (*dto.BatchResponse, error) {
	list, err := uc.movements.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, domain.NotFound("lote", batchID)
	}
	return &dto.BatchResponse{BatchID: batchID, Count: len(list), Movements: dto.NewMovementResponses(list)}, nil
}

// ListMovements lectura filtrada, ordenada y paginada del libro mayor.
func (uc *LedgerUseCase) ListMovements(ctx context.Context, in dto.MovementListRequest) (*dto.MovementListResponse, error) {
	in.DefaultPage()
	filter := repository.MovementFilter{
		ItemID:     in.ItemID,
		LocationID: in.LocationID,
		Type:       entity.MovementType(in.Type),
		Operator:   strings.TrimSpace(in.Operator),
		Supplier:   strings.TrimSpace(in.Supplier),
		Recipient:  strings.TrimSpace(in.Recipient),
		BatchID:    strings.TrimSpace(in.BatchID),
		SortBy:     in.SortBy,
		SortDesc:   in.SortOrder != "asc",
		Limit:      in.Limit,
		Offset:     in.Offset,
	}
	if filter.SortBy == "" {
		filter.SortBy = repository.MovementSortDate
	}
	fields := map[string]string{}
	var err error
	if filter.From, err = parseDateParam(in.From, false); err != nil {
		fields["from"] = err.Error()
	}
	if filter.To, err = parseDateParam(in.To, true); err != nil {
		fields["to"] = err.Error()
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		fields["from"] = "debe ser anterior a to"
	}
	if len(fields) > 0 {
		return nil, domain.Validation("filtros inválidos", fields)
	}

	list, total, err := uc.movements.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.MovementListResponse{
		Items: dto.NewMovementResponses(list),
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	}, nil
}

func (uc *LedgerUseCase) rejected(err error, m *entity.Movement) {
	kind := domain.KindOf(err)
	uc.metrics.MovementRejected(string(kind))
	if kind == domain.KindInsufficientStock && m != nil {
		uc.log.Warn().Err(err).Str("item_id", m.ItemID).Str("location_id", m.LocationID).
			Str("quantity", m.Quantity.String()).Msg("salida rechazada por stock insuficiente")
	}
}

// afterCommit invalida la caché de la proyección y publica eventos. Las fallas solo se registran.
func (uc *LedgerUseCase) afterCommit(ctx context.Context, eventType string, movs ...*entity.Movement) {
	if err := InvalidateAggregates(ctx, uc.cache); err != nil {
		uc.log.Warn().Err(err).Msg("no se pudo invalidar la caché de inventario")
	}
	at := uc.now()
	events := make([]MovementEvent, 0, len(movs))
	for _, m := range movs {
		events = append(events, NewMovementEvent(eventType, m, at))
	}
	if err := uc.events.Publish(ctx, events...); err != nil {
		uc.log.Warn().Err(err).Str("event", eventType).Int("count", len(events)).Msg("no se pudieron publicar eventos")
	}
}

func newMovement(in dto.CreateMovementRequest, now time.Time) *entity.Movement {
	date := now
	if in.Date != nil {
		date = *in.Date
	}
	return &entity.Movement{
		ID:         uuid.New().String(),
		ItemID:     strings.TrimSpace(in.ItemID),
		LocationID: strings.TrimSpace(in.LocationID),
		Type:       entity.MovementType(strings.ToLower(strings.TrimSpace(in.Type))),
		Quantity:   in.Quantity,
		Date:       date,
		Operator:   strings.TrimSpace(in.Operator),
		Supplier:   strings.TrimSpace(in.Supplier),
		Recipient:  strings.TrimSpace(in.Recipient),
		Purpose:    strings.TrimSpace(in.Purpose),
		Notes:      strings.TrimSpace(in.Notes),
		CreatedAt:  now,
	}
}

// validateNew lleva artículo y ubicación a su UUID canónico y valida el movimiento.
// Los bloqueos por par y las comparaciones en memoria dependen de esa forma única.
func validateNew(m *entity.Movement, now time.Time) error {
	fields := map[string]string{}
	for _, ref := range []struct {
		field string
		id    *string
	}{{"item_id", &m.ItemID}, {"location_id", &m.LocationID}} {
		if *ref.id == "" {
			continue
		}
		id, err := uuid.Parse(*ref.id)
		if err != nil {
			fields[ref.field] = "debe ser un UUID"
			continue
		}
		*ref.id = id.String()
	}
	err := inventory.ValidateMovement(m, now)
	if len(fields) == 0 {
		return err
	}
	var verr *domain.Error
	if errors.As(err, &verr) {
		for k, v := range verr.Fields {
			if _, ok := fields[k]; !ok {
				fields[k] = v
			}
		}
	}
	return domain.Validation("movimiento inválido", fields)
}

func rejectImmutable(in dto.UpdateMovementRequest) error {
	fields := map[string]string{}
	if in.ItemID != nil {
		fields["item_id"] = "campo inmutable"
	}
	if in.LocationID != nil {
		fields["location_id"] = "campo inmutable"
	}
	if in.Type != nil {
		fields["type"] = "campo inmutable"
	}
	if in.Quantity != nil {
		fields["quantity"] = "campo inmutable; registre una reversión"
	}
	if in.Date != nil {
		fields["date"] = "campo inmutable"
	}
	if len(fields) > 0 {
		return domain.Validation("el patch incluye campos inmutables", fields)
	}
	return nil
}

func applyPatch(m *entity.Movement, in dto.UpdateMovementRequest) {
	if in.Operator != nil {
		m.Operator = strings.TrimSpace(*in.Operator)
	}
	if in.Supplier != nil {
		m.Supplier = strings.TrimSpace(*in.Supplier)
	}
	if in.Recipient != nil {
		m.Recipient = strings.TrimSpace(*in.Recipient)
	}
	if in.Purpose != nil {
		m.Purpose = strings.TrimSpace(*in.Purpose)
	}
	if in.Notes != nil {
		m.Notes = strings.TrimSpace(*in.Notes)
	}
}

func resolveRefs(ctx context.Context, repos ports.TxRepos, itemID, locationID string) error {
	if err := resolveItem(ctx, repos.Items, itemID); err != nil {
		return err
	}
	return resolveLocation(ctx, repos.Locations, locationID)
}

func resolveItem(ctx context.Context, items repository.ItemRepository, id string) error {
	item, err := items.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.NotFound("artículo", id)
	}
	return nil
}

func resolveLocation(ctx context.Context, locations repository.LocationRepository, id string) error {
	loc, err := locations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if loc == nil {
		return domain.NotFound("ubicación", id)
	}
	if !loc.IsActive {
		return domain.Validation("ubicación inactiva", map[string]string{"location_id": "la ubicación está inactiva"})
	}
	return nil
}

// checkStock lee el stock del par (ya bloqueado) y falla si requested lo supera.
func checkStock(ctx context.Context, stock repository.StockRepository, p entity.PairKey, requested decimal.Decimal) error {
	current, err := stock.CurrentStock(ctx, p.ItemID, p.LocationID)
	if err != nil {
		return err
	}
	if requested.GreaterThan(current) {
		return &domain.InsufficientStockError{ItemID: p.ItemID, LocationID: p.LocationID, Current: current, Requested: requested}
	}
	return nil
}

// checkRemovable quitar la entrada m resta su cantidad a cada saldo desde m; el mínimo debe seguir >= 0.
func checkRemovable(ctx context.Context, stock repository.StockRepository, m *entity.Movement) error {
	low, err := stock.MinBalanceFrom(ctx, m)
	if err != nil {
		return err
	}
	if m.Quantity.GreaterThan(low) {
		return &domain.InsufficientStockError{ItemID: m.ItemID, LocationID: m.LocationID, Current: low, Requested: m.Quantity}
	}
	return nil
}

// parseDateParam acepta RFC3339 o YYYY-MM-DD; endOfDay extiende una fecha sin hora hasta el final del día.
func parseDateParam(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("formato esperado RFC3339 o YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
