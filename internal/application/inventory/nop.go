package inventory

import (
	"context"
	"time"
)

// NopCache caché deshabilitada: nunca encuentra nada.
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (NopCache) Set(context.Context, string, any, time.Duration) error { return nil }
func (NopCache) Delete(context.Context, ...string) error               { return nil }

// NopPublisher descarta los eventos.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...MovementEvent) error { return nil }

// NopRecorder descarta las métricas.
type NopRecorder struct{}

func (NopRecorder) MovementRecorded(string, int) {}
func (NopRecorder) MovementRejected(string)      {}
func (NopRecorder) BatchCommitted(int)           {}
