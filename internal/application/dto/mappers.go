package dto

import (
	"github.com/jhoicas/suministros-api/internal/domain/entity"
	"github.com/jhoicas/suministros-api/internal/domain/inventory"
)

// NewItemResponse mapea una entidad Item a su salida.
func NewItemResponse(i *entity.Item) ItemResponse {
	return ItemResponse{
		ID:                i.ID,
		SKU:               i.SKU,
		Name:              i.Name,
		Category:          i.Category,
		Unit:              i.Unit,
		LowStockThreshold: i.LowStockThreshold,
		DefaultLocationID: i.DefaultLocationID,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
	}
}

// NewLocationResponse mapea una entidad Location a su salida.
func NewLocationResponse(l *entity.Location) LocationResponse {
	return LocationResponse{
		ID:          l.ID,
		Code:        l.Code,
		Name:        l.Name,
		Description: l.Description,
		ParentID:    l.ParentID,
		Level:       l.Level,
		IsActive:    l.IsActive,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

// NewLocationTree mapea el bosque de ubicaciones.
func NewLocationTree(nodes []*entity.LocationNode) []LocationTreeNode {
	out := make([]LocationTreeNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, LocationTreeNode{
			LocationResponse: NewLocationResponse(&n.Location),
			Children:         NewLocationTree(n.Children),
		})
	}
	return out
}

// NewMovementResponse mapea un movimiento del libro mayor.
func NewMovementResponse(m *entity.Movement) MovementResponse {
	return MovementResponse{
		ID:         m.ID,
		ItemID:     m.ItemID,
		LocationID: m.LocationID,
		Type:       string(m.Type),
		Quantity:   m.Quantity,
		Date:       m.Date,
		Operator:   m.Operator,
		Supplier:   m.Supplier,
		Recipient:  m.Recipient,
		Purpose:    m.Purpose,
		BatchID:    m.BatchID,
		Notes:      m.Notes,
		CreatedAt:  m.CreatedAt,
	}
}

// NewMovementResponses mapea una lista de movimientos.
func NewMovementResponses(list []*entity.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, NewMovementResponse(m))
	}
	return out
}

// NewInventoryRow mapea una fila de la proyección.
func NewInventoryRow(r *entity.InventoryRow) InventoryRowDTO {
	return InventoryRowDTO{
		ItemID:              r.ItemID,
		SKU:                 r.SKU,
		ItemName:            r.ItemName,
		Category:            r.Category,
		Unit:                r.Unit,
		LocationID:          r.LocationID,
		LocationCode:        r.LocationCode,
		LocationName:        r.LocationName,
		CurrentStock:        r.CurrentStock,
		LowStockThreshold:   r.LowStockThreshold,
		IsLowStock:          r.IsLowStock(),
		LastTransactionDate: r.LastTransactionDate,
	}
}

// NewInventoryRows mapea varias filas.
func NewInventoryRows(rows []entity.InventoryRow) []InventoryRowDTO {
	out := make([]InventoryRowDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewInventoryRow(&rows[i]))
	}
	return out
}

// NewLowStockAlert mapea una alerta.
func NewLowStockAlert(a *entity.LowStockAlert) LowStockAlertDTO {
	return LowStockAlertDTO{
		InventoryRowDTO: NewInventoryRow(&a.InventoryRow),
		Threshold:       a.Threshold,
		StockDeficit:    a.StockDeficit,
	}
}

// NewStatistics mapea los totales globales.
func NewStatistics(s *entity.InventoryStatistics) StatisticsResponse {
	out := StatisticsResponse{
		TotalItems:     s.TotalItems,
		TotalLocations: s.TotalLocations,
		TotalStock:     s.TotalStock,
		LowStockCount:  s.LowStockCount,
		ZeroStockCount: s.ZeroStockCount,
		TopCategories:  make([]CategoryStockDTO, 0, len(s.TopCategories)),
		TopLocations:   make([]LocationStockDTO, 0, len(s.TopLocations)),
	}
	for _, c := range s.TopCategories {
		out.TopCategories = append(out.TopCategories, CategoryStockDTO(c))
	}
	for _, l := range s.TopLocations {
		out.TopLocations = append(out.TopLocations, LocationStockDTO(l))
	}
	return out
}

// NewHistoryPoints mapea la serie diaria (fechas en YYYY-MM-DD UTC).
func NewHistoryPoints(series []inventory.HistoryPoint) []HistoryPointDTO {
	out := make([]HistoryPointDTO, 0, len(series))
	for _, p := range series {
		out = append(out, HistoryPointDTO{
			Date:         p.Date.UTC().Format("2006-01-02"),
			Inbound:      p.Inbound,
			Outbound:     p.Outbound,
			NetChange:    p.NetChange,
			RunningStock: p.RunningStock,
		})
	}
	return out
}
