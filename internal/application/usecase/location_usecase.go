package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/suministros-api/internal/application/dto"
	"github.com/jhoicas/suministros-api/internal/application/inventory"
	"github.com/jhoicas/suministros-api/internal/application/ports"
	"github.com/jhoicas/suministros-api/internal/domain"
	"github.com/jhoicas/suministros-api/internal/domain/entity"
	"github.com/jhoicas/suministros-api/internal/domain/location"
	"github.com/jhoicas/suministros-api/internal/domain/repository"
)

// LocationUseCase casos de uso de la jerarquía de ubicaciones.
// Las escrituras corren en transacción y toman el bloqueo del árbol, así dos movimientos
// de subárbol concurrentes no pueden cerrar un ciclo entre ambos.
type LocationUseCase struct {
	tx    ports.TxRunner
	repo  repository.LocationRepository
	cache inventory.Cache
}

// NewLocationUseCase construye el caso de uso.
func NewLocationUseCase(tx ports.TxRunner, repo repository.LocationRepository) *LocationUseCase {
	return &LocationUseCase{tx: tx, repo: repo, cache: inventory.NopCache{}}
}

// WithCache caché de agregados a invalidar tras cada escritura del árbol.
func (uc *LocationUseCase) WithCache(c inventory.Cache) *LocationUseCase {
	if c != nil {
		uc.cache = c
	}
	return uc
}

// Create crea una ubicación validada contra su padre.
func (uc *LocationUseCase) Create(ctx context.Context, in dto.CreateLocationRequest) (*dto.LocationResponse, error) {
	code := location.NormalizeCode(in.Code)
	name := strings.TrimSpace(in.Name)
	desc := strings.TrimSpace(in.Description)
	if err := location.ValidateFields(code, name, desc); err != nil {
		return nil, err
	}
	parentID, err := domain.CanonicalIDPtr("parent_id", in.ParentID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	loc := &entity.Location{
		ID:          uuid.New().String(),
		Code:        code,
		Name:        name,
		Description: desc,
		ParentID:    parentID,
		IsActive:    in.IsActive == nil || *in.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = uc.tx.Run(ctx, func(repos ports.TxRepos) error {
		if err := repos.Locations.LockHierarchy(ctx); err != nil {
			return err
		}
		var parent *entity.Location
		if loc.ParentID != nil {
			var err error
			if parent, err = repos.Locations.GetByID(ctx, *loc.ParentID); err != nil {
				return err
			}
			if parent == nil {
				return domain.NotFound("ubicación padre", *loc.ParentID)
			}
		}
		loc.Level = entity.RootLevel
		if parent != nil {
			loc.Level = parent.Level + 1
		}
		if in.Level != nil {
			loc.Level = *in.Level
		}
		if err := location.ValidatePlacement(loc.Level, parent); err != nil {
			return err
		}
		existing, err := repos.Locations.GetByCode(ctx, code)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.Conflict("ya existe una ubicación con el código " + code)
		}
		return repos.Locations.Create(ctx, loc)
	})
	if err != nil {
		return nil, err
	}
	_ = inventory.InvalidateAggregates(ctx, uc.cache)
	out := dto.NewLocationResponse(loc)
	return &out, nil
}

// GetByID obtiene una ubicación por ID.
func (uc *LocationUseCase) GetByID(ctx context.Context, id string) (*dto.LocationResponse, error) {
	loc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, domain.NotFound("ubicación", id)
	}
	out := dto.NewLocationResponse(loc)
	return &out, nil
}

// GetByCode obtiene una ubicación por código (sin distinguir mayúsculas).
func (uc *LocationUseCase) GetByCode(ctx context.Context, code string) (*dto.LocationResponse, error) {
	code = location.NormalizeCode(code)
	loc, err := uc.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, domain.NotFound("ubicación", code)
	}
	out := dto.NewLocationResponse(loc)
	return &out, nil
}

// Update aplica el patch. Si cambia el padre o el nivel se revalida la jerarquía completa:
// sin ciclos, padre activo, nivel = padre + 1, y los descendientes se desplazan el mismo delta.
func (uc *LocationUseCase) Update(ctx context.Context, id string, in dto.UpdateLocationRequest) (*dto.LocationResponse, error) {
	id, err := domain.CanonicalID("id", id)
	if err != nil {
		return nil, err
	}
	if in.ParentID, err = domain.CanonicalIDPtr("parent_id", in.ParentID); err != nil {
		return nil, err
	}
	var loc *entity.Location
	err = uc.tx.Run(ctx, func(repos ports.TxRepos) error {
		if err := repos.Locations.LockHierarchy(ctx); err != nil {
			return err
		}
		var err error
		if loc, err = repos.Locations.GetByID(ctx, id); err != nil {
			return err
		}
		if loc == nil {
			return domain.NotFound("ubicación", id)
		}
		if err := uc.applyFields(ctx, repos.Locations, loc, in); err != nil {
			return err
		}

		delta, err := uc.applyPlacement(ctx, repos.Locations, loc, in)
		if err != nil {
			return err
		}
		if err := uc.applyActive(ctx, repos.Locations, loc, in); err != nil {
			return err
		}

		loc.UpdatedAt = time.Now()
		if err := repos.Locations.Update(ctx, loc); err != nil {
			return err
		}
		if delta != 0 {
			return repos.Locations.ShiftDescendantLevels(ctx, loc.ID, delta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	_ = inventory.InvalidateAggregates(ctx, uc.cache)
	out := dto.NewLocationResponse(loc)
	return &out, nil
}

func (uc *LocationUseCase) applyFields(ctx context.Context, repo repository.LocationRepository, loc *entity.Location, in dto.UpdateLocationRequest) error {
	if in.Code != nil {
		loc.Code = location.NormalizeCode(*in.Code)
	}
	if in.Name != nil {
		loc.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		loc.Description = strings.TrimSpace(*in.Description)
	}
	if err := location.ValidateFields(loc.Code, loc.Name, loc.Description); err != nil {
		return err
	}
	if in.Code == nil {
		return nil
	}
	other, err := repo.GetByCode(ctx, loc.Code)
	if err != nil {
		return err
	}
	if other != nil && other.ID != loc.ID {
		return domain.Conflict("ya existe una ubicación con el código " + loc.Code)
	}
	return nil
}

// applyPlacement resuelve padre y nivel nuevos y devuelve el delta de nivel a propagar al subárbol.
func (uc *LocationUseCase) applyPlacement(ctx context.Context, repo repository.LocationRepository, loc *entity.Location, in dto.UpdateLocationRequest) (int, error) {
	if in.ClearParent && in.ParentID != nil {
		return 0, domain.Validation("patch inválido", map[string]string{"parent_id": "no se puede combinar con clear_parent"})
	}
	newParentID := loc.ParentID
	switch {
	case in.ClearParent:
		newParentID = nil
	case in.ParentID != nil:
		newParentID = in.ParentID
	}
	parentChanged := !sameParent(loc.ParentID, newParentID)
	if !parentChanged && in.Level == nil {
		return 0, nil
	}

	var parent *entity.Location
	if newParentID != nil {
		descendants, err := repo.DescendantIDs(ctx, loc.ID)
		if err != nil {
			return 0, err
		}
		if err := location.CheckNoCycle(loc.ID, *newParentID, descendants); err != nil {
			return 0, err
		}
		if parent, err = repo.GetByID(ctx, *newParentID); err != nil {
			return 0, err
		}
		if parent == nil {
			return 0, domain.NotFound("ubicación padre", *newParentID)
		}
	}

	newLevel := loc.Level
	switch {
	case in.Level != nil:
		newLevel = *in.Level
	case parent != nil:
		newLevel = parent.Level + 1
	default:
		newLevel = entity.RootLevel
	}
	if err := location.ValidatePlacement(newLevel, parent); err != nil {
		return 0, err
	}

	delta := newLevel - loc.Level
	if delta > 0 {
		deepest, err := repo.MaxDescendantLevel(ctx, loc.ID)
		if err != nil {
			return 0, err
		}
		if deepest+delta > entity.MaxLevel {
			return 0, domain.InvalidHierarchy("mover el subárbol excede la profundidad máxima")
		}
	}
	loc.ParentID = newParentID
	loc.Level = newLevel
	return delta, nil
}

// applyActive desactivar exige cero movimientos y ningún hijo activo; reactivar exige padre activo.
func (uc *LocationUseCase) applyActive(ctx context.Context, repo repository.LocationRepository, loc *entity.Location, in dto.UpdateLocationRequest) error {
	if in.IsActive == nil || *in.IsActive == loc.IsActive {
		return nil
	}
	if !*in.IsActive {
		has, err := repo.HasMovements(ctx, loc.ID)
		if err != nil {
			return err
		}
		if has {
			return &domain.DependencyError{Reason: domain.ReasonHasInventoryRecords}
		}
		active, err := repo.CountChildren(ctx, loc.ID, true)
		if err != nil {
			return err
		}
		if active > 0 {
			return domain.InvalidHierarchy("la ubicación tiene hijas activas")
		}
	} else if loc.ParentID != nil {
		parent, err := repo.GetByID(ctx, *loc.ParentID)
		if err != nil {
			return err
		}
		if parent == nil || !parent.IsActive {
			return domain.InvalidHierarchy("la ubicación padre está inactiva")
		}
	}
	loc.IsActive = *in.IsActive
	return nil
}

// Delete elimina una ubicación sin hijas, sin movimientos y que no sea la predeterminada de ningún artículo.
func (uc *LocationUseCase) Delete(ctx context.Context, id string) error {
	id, err := domain.CanonicalID("id", id)
	if err != nil {
		return err
	}
	err = uc.tx.Run(ctx, func(repos ports.TxRepos) error {
		if err := repos.Locations.LockHierarchy(ctx); err != nil {
			return err
		}
		loc, err := repos.Locations.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if loc == nil {
			return domain.NotFound("ubicación", id)
		}
		children, err := repos.Locations.CountChildren(ctx, id, false)
		if err != nil {
			return err
		}
		if children > 0 {
			return &domain.DependencyError{Reason: domain.ReasonHasChildren}
		}
		has, err := repos.Locations.HasMovements(ctx, id)
		if err != nil {
			return err
		}
		if has {
			return &domain.DependencyError{Reason: domain.ReasonHasInventoryRecords}
		}
		itemID, err := repos.Locations.DefaultLocationOf(ctx, id)
		if err != nil {
			return err
		}
		if itemID != "" {
			return &domain.DependencyError{Reason: domain.ReasonIsDefaultLocationFor, ItemID: itemID}
		}
		return repos.Locations.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	_ = inventory.InvalidateAggregates(ctx, uc.cache)
	return nil
}

// List lista ubicaciones con filtros y paginación.
func (uc *LocationUseCase) List(ctx context.Context, in dto.LocationListRequest) (*dto.LocationListResponse, error) {
	in.DefaultPage()
	filter := repository.LocationFilter{
		Active:    in.Active,
		RootsOnly: in.RootsOnly,
		Search:    strings.TrimSpace(in.Search),
		Limit:     in.Limit,
		Offset:    in.Offset,
	}
	if in.ParentID != "" {
		filter.ParentID = &in.ParentID
	}
	list, total, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.LocationResponse, 0, len(list))
	for _, l := range list {
		items = append(items, dto.NewLocationResponse(l))
	}
	return &dto.LocationListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	}, nil
}

// Tree devuelve el bosque de ubicaciones ordenado por código.
func (uc *LocationUseCase) Tree(ctx context.Context, activeOnly bool) ([]dto.LocationTreeNode, error) {
	flat, err := uc.repo.ListAll(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	return dto.NewLocationTree(location.BuildHierarchy(flat)), nil
}

// Ancestors camino desde la raíz hasta el padre de id.
func (uc *LocationUseCase) Ancestors(ctx context.Context, id string) ([]dto.LocationResponse, error) {
	loc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, domain.NotFound("ubicación", id)
	}
	path, err := uc.repo.Ancestors(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LocationResponse, 0, len(path))
	for _, l := range path {
		out = append(out, dto.NewLocationResponse(l))
	}
	return out, nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
