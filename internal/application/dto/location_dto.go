package dto

import "time"

// CreateLocationRequest entrada para crear una ubicación. Sin parent_id es raíz (level 0).
type CreateLocationRequest struct {
	Code        string  `json:"code" validate:"required,min=1,max=50"`
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Description string  `json:"description" validate:"max=500"`
	ParentID    *string `json:"parent_id" validate:"omitempty,uuid"`
	Level       *int    `json:"level" validate:"omitempty,min=0,max=10"` // nil = padre.Level + 1 (o 0 sin padre)
	IsActive    *bool   `json:"is_active"`
}

// UpdateLocationRequest patch de una ubicación. ClearParent convierte la ubicación en raíz.
type UpdateLocationRequest struct {
	Code        *string `json:"code" validate:"omitempty,min=1,max=50"`
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	ParentID    *string `json:"parent_id" validate:"omitempty,uuid"`
	ClearParent bool    `json:"clear_parent"`
	Level       *int    `json:"level" validate:"omitempty,min=0,max=10"`
	IsActive    *bool   `json:"is_active"`
}

// LocationListRequest filtros del listado (query string).
type LocationListRequest struct {
	PageRequest
	Active    *bool  `query:"active"`
	ParentID  string `query:"parent_id" validate:"omitempty,uuid"`
	RootsOnly bool   `query:"roots_only"`
	Search    string `query:"search" validate:"max=100"`
}

// LocationResponse salida de una ubicación.
type LocationResponse struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ParentID    *string   `json:"parent_id"`
	Level       int       `json:"level"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LocationListResponse lista paginada de ubicaciones.
type LocationListResponse struct {
	Items []LocationResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// LocationTreeNode nodo del árbol de ubicaciones.
type LocationTreeNode struct {
	LocationResponse
	Children []LocationTreeNode `json:"children"`
}
