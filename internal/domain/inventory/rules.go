// Package inventory contiene las reglas puras del libro mayor de movimientos:
// validación de negocio, ventanas de borrado/reversión, agregación de lotes y reconstrucción de series diarias.
package inventory

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jhoicas/suministros-api/internal/domain"
	"github.com/jhoicas/suministros-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Límites de negocio del libro mayor.
const (
	MaxOperatorLength  = 100
	MaxPartyLength     = 200 // supplier / recipient
	MaxPurposeLength   = 500
	MaxNotesLength     = 1000
	DefaultDeleteDays  = 7
	DefaultReverseDays = 30
)

// MaxQuantity cantidad máxima por movimiento.
var MaxQuantity = decimal.NewFromInt(1_000_000)

// ValidateMovement aplica las reglas de negocio a un movimiento antes de persistirlo:
// entrada exige proveedor y prohíbe destinatario/propósito; salida exige destinatario y propósito y prohíbe proveedor;
// 0 < cantidad <= 1.000.000; fecha no futura.
func ValidateMovement(m *entity.Movement, now time.Time) error {
	fields := map[string]string{}
	if strings.TrimSpace(m.ItemID) == "" {
		fields["item_id"] = "es requerido"
	}
	if strings.TrimSpace(m.LocationID) == "" {
		fields["location_id"] = "es requerido"
	}
	if !m.Type.Valid() {
		fields["type"] = "debe ser inbound u outbound"
	}
	if !m.Quantity.IsPositive() {
		fields["quantity"] = "debe ser mayor que 0"
	} else if m.Quantity.GreaterThan(MaxQuantity) {
		fields["quantity"] = "no puede superar 1000000"
	}
	if m.Date.IsZero() {
		fields["date"] = "es requerida"
	} else if m.Date.After(now) {
		fields["date"] = "no puede estar en el futuro"
	}
	validateMutable(m, fields)
	if len(fields) > 0 {
		return domain.Validation("movimiento inválido", fields)
	}
	return nil
}

func validateMutable(m *entity.Movement, fields map[string]string) {
	if strings.TrimSpace(m.Operator) == "" {
		fields["operator"] = "es requerido"
	}
	checkLen(fields, "operator", m.Operator, MaxOperatorLength)
	checkLen(fields, "supplier", m.Supplier, MaxPartyLength)
	checkLen(fields, "recipient", m.Recipient, MaxPartyLength)
	checkLen(fields, "purpose", m.Purpose, MaxPurposeLength)
	checkLen(fields, "notes", m.Notes, MaxNotesLength)

	switch m.Type {
	case entity.MovementInbound:
		if strings.TrimSpace(m.Supplier) == "" {
			fields["supplier"] = "es requerido en entradas"
		}
		if m.Recipient != "" {
			fields["recipient"] = "no aplica en entradas"
		}
		if m.Purpose != "" {
			fields["purpose"] = "no aplica en entradas"
		}
	case entity.MovementOutbound:
		if m.Supplier != "" {
			fields["supplier"] = "no aplica en salidas"
		}
		if strings.TrimSpace(m.Recipient) == "" {
			fields["recipient"] = "es requerido en salidas"
		}
		if strings.TrimSpace(m.Purpose) == "" {
			fields["purpose"] = "es requerido en salidas"
		}
	}
}

func checkLen(fields map[string]string, name, v string, max int) {
	if _, set := fields[name]; set {
		return
	}
	if utf8.RuneCountInString(v) > max {
		fields[name] = fmt.Sprintf("máximo %d caracteres", max)
	}
}

// CheckDeletable aplica la ventana de retención y la regla de lotes: solo se borra un movimiento
// con antigüedad <= window y que no comparta batch_id con otras filas.
func CheckDeletable(m *entity.Movement, batchSize int, now time.Time, window time.Duration) error {
	if now.Sub(m.Date) > window {
		return domain.RetentionExpired(fmt.Sprintf("solo se pueden eliminar movimientos de los últimos %d días", int(window.Hours()/24)))
	}
	if m.BatchID != "" && batchSize >= 2 {
		return domain.ErrPartOfBatch
	}
	return nil
}

// CheckReversible rechaza reversiones de movimientos más antiguos que window.
func CheckReversible(m *entity.Movement, now time.Time, window time.Duration) error {
	if now.Sub(m.Date) > window {
		return domain.RetentionExpired(fmt.Sprintf("solo se pueden revertir movimientos de los últimos %d días", int(window.Hours()/24)))
	}
	return nil
}

// NewReversal construye el movimiento opuesto a orig con la misma cantidad, artículo y ubicación.
// El original no se modifica; la referencia queda en notas y en proveedor/propósito.
func NewReversal(orig *entity.Movement, operator string, now time.Time) *entity.Movement {
	ref := "reversión " + orig.ID
	rev := &entity.Movement{
		ItemID:     orig.ItemID,
		LocationID: orig.LocationID,
		Type:       orig.Type.Opposite(),
		Quantity:   orig.Quantity,
		Date:       now,
		Operator:   operator,
		Notes:      "Reversión de movimiento " + orig.ID,
	}
	if rev.Type == entity.MovementInbound {
		rev.Supplier = ref
	} else {
		rev.Recipient = orig.Supplier
		if rev.Recipient == "" {
			rev.Recipient = ref
		}
		rev.Purpose = ref
	}
	return rev
}

// OutboundByPair suma las cantidades de salida por par (artículo, ubicación).
func OutboundByPair(movs []*entity.Movement) map[entity.PairKey]decimal.Decimal {
	out := make(map[entity.PairKey]decimal.Decimal)
	for _, m := range movs {
		if m.Type != entity.MovementOutbound {
			continue
		}
		out[m.Key()] = out[m.Key()].Add(m.Quantity)
	}
	return out
}

// SortedPairs devuelve los pares distintos de movs en orden estable (item, ubicación).
// Bloquear siempre en este orden evita interbloqueos entre lotes concurrentes.
func SortedPairs(movs []*entity.Movement) []entity.PairKey {
	seen := make(map[entity.PairKey]bool, len(movs))
	pairs := make([]entity.PairKey, 0, len(movs))
	for _, m := range movs {
		k := m.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		pairs = append(pairs, k)
	}
	SortPairs(pairs)
	return pairs
}

// SortPairs ordena pares por ItemID y luego LocationID.
func SortPairs(pairs []entity.PairKey) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].ItemID != pairs[j].ItemID {
			return pairs[i].ItemID < pairs[j].ItemID
		}
		return pairs[i].LocationID < pairs[j].LocationID
	})
}
