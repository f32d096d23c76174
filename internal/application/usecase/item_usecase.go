package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/suministros-api/internal/application/dto"
	"github.com/jhoicas/suministros-api/internal/application/inventory"
	"github.com/jhoicas/suministros-api/internal/domain"
	"github.com/jhoicas/suministros-api/internal/domain/entity"
	"github.com/jhoicas/suministros-api/internal/domain/repository"
)

// ItemUseCase casos de uso CRUD del catálogo de artículos. El stock se maneja vía movimientos.
type ItemUseCase struct {
	repo      repository.ItemRepository
	locations repository.LocationRepository
	cache     inventory.Cache
}

// NewItemUseCase construye el caso de uso.
func NewItemUseCase(repo repository.ItemRepository, locations repository.LocationRepository) *ItemUseCase {
	return &ItemUseCase{repo: repo, locations: locations, cache: inventory.NopCache{}}
}

// WithCache caché de agregados a invalidar cuando cambia el catálogo (umbrales, altas).
func (uc *ItemUseCase) WithCache(c inventory.Cache) *ItemUseCase {
	if c != nil {
		uc.cache = c
	}
	return uc
}

// Create crea un artículo. El SKU se normaliza a mayúsculas y debe ser único.
func (uc *ItemUseCase) Create(ctx context.Context, in dto.CreateItemRequest) (*dto.ItemResponse, error) {
	sku := strings.ToUpper(strings.TrimSpace(in.SKU))
	existing, err := uc.repo.GetBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.Conflict("ya existe un artículo con el SKU " + sku)
	}
	if in.LowStockThreshold.IsNegative() {
		return nil, domain.Validation("artículo inválido", map[string]string{"low_stock_threshold": "debe ser >= 0"})
	}
	defaultLoc, err := domain.CanonicalIDPtr("default_location_id", in.DefaultLocationID)
	if err != nil {
		return nil, err
	}
	if err := uc.checkDefaultLocation(ctx, defaultLoc); err != nil {
		return nil, err
	}
	now := time.Now()
	item := &entity.Item{
		ID:                uuid.New().String(),
		SKU:               sku,
		Name:              strings.TrimSpace(in.Name),
		Category:          strings.TrimSpace(in.Category),
		Unit:              strings.TrimSpace(in.Unit),
		LowStockThreshold: in.LowStockThreshold,
		DefaultLocationID: defaultLoc,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := uc.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	_ = inventory.InvalidateAggregates(ctx, uc.cache)
	out := dto.NewItemResponse(item)
	return &out, nil
}

// GetByID obtiene un artículo por ID.
func (uc *ItemUseCase) GetByID(ctx context.Context, id string) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.NotFound("artículo", id)
	}
	out := dto.NewItemResponse(item)
	return &out, nil
}

// Update actualiza un artículo. No permite modificar el SKU ni el stock.
func (uc *ItemUseCase) Update(ctx context.Context, id string, in dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.NotFound("artículo", id)
	}
	if in.Name != nil {
		item.Name = strings.TrimSpace(*in.Name)
	}
	if in.Category != nil {
		item.Category = strings.TrimSpace(*in.Category)
	}
	if in.Unit != nil {
		item.Unit = strings.TrimSpace(*in.Unit)
	}
	if in.LowStockThreshold != nil {
		if in.LowStockThreshold.IsNegative() {
			return nil, domain.Validation("artículo inválido", map[string]string{"low_stock_threshold": "debe ser >= 0"})
		}
		item.LowStockThreshold = *in.LowStockThreshold
	}
	switch {
	case in.ClearDefault:
		item.DefaultLocationID = nil
	case in.DefaultLocationID != nil:
		defaultLoc, err := domain.CanonicalIDPtr("default_location_id", in.DefaultLocationID)
		if err != nil {
			return nil, err
		}
		if err := uc.checkDefaultLocation(ctx, defaultLoc); err != nil {
			return nil, err
		}
		item.DefaultLocationID = defaultLoc
	}
	item.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	_ = inventory.InvalidateAggregates(ctx, uc.cache)
	out := dto.NewItemResponse(item)
	return &out, nil
}

// List lista artículos con búsqueda y paginación.
func (uc *ItemUseCase) List(ctx context.Context, in dto.ItemListRequest) (*dto.ItemListResponse, error) {
	in.DefaultPage()
	list, total, err := uc.repo.List(ctx, repository.ItemFilter{
		Search:   strings.TrimSpace(in.Search),
		Category: strings.TrimSpace(in.Category),
		Limit:    in.Limit,
		Offset:   in.Offset,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.ItemResponse, 0, len(list))
	for _, i := range list {
		items = append(items, dto.NewItemResponse(i))
	}
	return &dto.ItemListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	}, nil
}

func (uc *ItemUseCase) checkDefaultLocation(ctx context.Context, id *string) error {
	if id == nil {
		return nil
	}
	loc, err := uc.locations.GetByID(ctx, *id)
	if err != nil {
		return err
	}
	if loc == nil {
		return domain.NotFound("ubicación", *id)
	}
	return nil
}
