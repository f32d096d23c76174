package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/suministros-api/internal/application/dto"
)

// AlertSource origen de las alertas de stock bajo (ProjectionUseCase).
type AlertSource interface {
	LowStockAlerts(ctx context.Context, threshold *decimal.Decimal) ([]dto.LowStockAlertDTO, error)
}

// AlertGauge recibe el número de alertas del último escaneo (métricas). Opcional.
type AlertGauge interface {
	SetLowStockAlerts(n int)
}

// LowStockJob escanea periódicamente las alertas de stock bajo y las registra en el log.
type LowStockJob struct {
	scheduler gocron.Scheduler
	source    AlertSource
	gauge     AlertGauge
	log       zerolog.Logger
	timeout   time.Duration
}

// NewLowStockJob registra el escaneo cada interval en modo singleton (una ejecución a la vez).
func NewLowStockJob(source AlertSource, gauge AlertGauge, log zerolog.Logger, interval time.Duration) (*LowStockJob, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("intervalo de escaneo inválido: %s", interval)
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("crear scheduler: %w", err)
	}
	j := &LowStockJob{
		scheduler: scheduler,
		source:    source,
		gauge:     gauge,
		log:       log.With().Str("job", "low-stock-scan").Logger(),
		timeout:   interval,
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { j.Scan(context.Background()) }),
		gocron.WithName("low-stock-scan"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("registrar job de stock bajo: %w", err)
	}
	return j, nil
}

// Start arranca el scheduler.
func (j *LowStockJob) Start() {
	j.log.Info().Msg("iniciando escaneo periódico de stock bajo")
	j.scheduler.Start()
}

// Stop detiene el scheduler y espera a la ejecución en curso.
func (j *LowStockJob) Stop() error {
	return j.scheduler.Shutdown()
}

// Scan ejecuta un escaneo y devuelve la cantidad de alertas encontradas.
func (j *LowStockJob) Scan(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	alerts, err := j.source.LowStockAlerts(ctx, nil)
	if err != nil {
		j.log.Error().Err(err).Msg("escaneo de stock bajo falló")
		return 0
	}
	for _, a := range alerts {
		j.log.Warn().
			Str("item_id", a.ItemID).
			Str("sku", a.SKU).
			Str("location_code", a.LocationCode).
			Str("current_stock", a.CurrentStock.String()).
			Str("threshold", a.Threshold.String()).
			Str("deficit", a.StockDeficit.String()).
			Msg("stock bajo")
	}
	if j.gauge != nil {
		j.gauge.SetLowStockAlerts(len(alerts))
	}
	j.log.Info().Int("alerts", len(alerts)).Msg("escaneo de stock bajo completado")
	return len(alerts)
}
