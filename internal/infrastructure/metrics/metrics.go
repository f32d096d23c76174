package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/suministros-api/internal/application/inventory"
)

var _ inventory.Recorder = (*Metrics)(nil)

const namespace = "suministros"

// Metrics contadores del libro mayor, del job de stock bajo y de la API HTTP, sobre un registry propio.
type Metrics struct {
	registry *prometheus.Registry

	MovementsRecorded   *prometheus.CounterVec
	MovementsRejected   *prometheus.CounterVec
	BatchRows           prometheus.Histogram
	LowStockAlerts      prometheus.Gauge
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New crea el registry con los colectores estándar de Go y de proceso.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.MovementsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movements_recorded_total",
			Help:      "Movimientos confirmados en el libro mayor",
		},
		[]string{"direction"},
	)
	m.MovementsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movements_rejected_total",
			Help:      "Escrituras rechazadas por el libro mayor, por motivo",
		},
		[]string{"reason"},
	)
	m.BatchRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_rows",
			Help:      "Filas por lote confirmado",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000},
		},
	)
	m.LowStockAlerts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "low_stock_alerts",
			Help:      "Pares (artículo, ubicación) en o bajo su umbral en el último escaneo",
		},
	)
	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total de peticiones HTTP",
		},
		[]string{"method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duración de las peticiones HTTP en segundos",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(
		m.MovementsRecorded, m.MovementsRejected, m.BatchRows, m.LowStockAlerts,
		m.HTTPRequestsTotal, m.HTTPRequestDuration,
	)
	return m
}

// Handler endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry devuelve el registry de prometheus.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MovementRecorded suma count movimientos confirmados en la dirección dada.
func (m *Metrics) MovementRecorded(direction string, count int) {
	m.MovementsRecorded.WithLabelValues(direction).Add(float64(count))
}

// MovementRejected cuenta una escritura rechazada.
func (m *Metrics) MovementRejected(reason string) {
	m.MovementsRejected.WithLabelValues(reason).Inc()
}

// BatchCommitted observa el tamaño de un lote confirmado.
func (m *Metrics) BatchCommitted(rows int) {
	m.BatchRows.Observe(float64(rows))
}

// SetLowStockAlerts publica el resultado del último escaneo de stock bajo.
func (m *Metrics) SetLowStockAlerts(n int) {
	m.LowStockAlerts.Set(float64(n))
}

// RecordHTTPRequest registra una petición atendida. path debe ser la ruta registrada, no la URL cruda.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
