package inventory

import (
	"sort"

	"github.com/jhoicas/suministros-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// RankLowStock filtra los pares en o bajo el umbral efectivo (threshold si viene, si no el del artículo),
// ignorando artículos sin umbral configurado, y los ordena por déficit descendente.
func RankLowStock(rows []entity.InventoryRow, threshold *decimal.Decimal) []entity.LowStockAlert {
	alerts := make([]entity.LowStockAlert, 0, len(rows))
	for _, r := range rows {
		if !r.LowStockThreshold.IsPositive() {
			continue
		}
		limit := r.LowStockThreshold
		if threshold != nil {
			limit = *threshold
		}
		if r.CurrentStock.GreaterThan(limit) {
			continue
		}
		deficit := limit.Sub(r.CurrentStock)
		if deficit.IsNegative() {
			deficit = decimal.Zero
		}
		alerts = append(alerts, entity.LowStockAlert{InventoryRow: r, Threshold: limit, StockDeficit: deficit})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		if c := alerts[i].StockDeficit.Cmp(alerts[j].StockDeficit); c != 0 {
			return c > 0
		}
		if alerts[i].SKU != alerts[j].SKU {
			return alerts[i].SKU < alerts[j].SKU
		}
		return alerts[i].LocationCode < alerts[j].LocationCode
	})
	return alerts
}
