package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/suministros-api/internal/domain/entity"
)

// Claves de la caché de lectura de la proyección.
const (
	CacheKeyStatistics = "inventory:statistics"
	CacheKeyLowStock   = "inventory:low-stock"
)

// Cache almacén clave/valor para agregados costosos de la proyección.
// Get devuelve (false, nil) si la clave no existe.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// InvalidateAggregates borra los agregados cacheados que dependen del catálogo, las ubicaciones o el libro mayor.
func InvalidateAggregates(ctx context.Context, c Cache) error {
	return c.Delete(ctx, CacheKeyStatistics, CacheKeyLowStock)
}

// Tipos de evento del libro mayor.
const (
	EventMovementRecorded = "movement.recorded"
	EventMovementUpdated  = "movement.updated"
	EventMovementDeleted  = "movement.deleted"
)

// MovementEvent notificación publicada tras confirmar una escritura en el libro mayor.
type MovementEvent struct {
	Type       string    `json:"type"`
	MovementID string    `json:"movement_id"`
	ItemID     string    `json:"item_id"`
	LocationID string    `json:"location_id"`
	Direction  string    `json:"direction"`
	Quantity   string    `json:"quantity"`
	BatchID    string    `json:"batch_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewMovementEvent arma el evento a partir del movimiento.
func NewMovementEvent(eventType string, m *entity.Movement, at time.Time) MovementEvent {
	return MovementEvent{
		Type:       eventType,
		MovementID: m.ID,
		ItemID:     m.ItemID,
		LocationID: m.LocationID,
		Direction:  string(m.Type),
		Quantity:   m.Quantity.String(),
		BatchID:    m.BatchID,
		OccurredAt: at,
	}
}

// EventPublisher publica eventos del libro mayor (best-effort, después del commit).
type EventPublisher interface {
	Publish(ctx context.Context, events ...MovementEvent) error
}

// Recorder métricas del libro mayor.
type Recorder interface {
	MovementRecorded(direction string, count int)
	MovementRejected(reason string)
	BatchCommitted(rows int)
}
