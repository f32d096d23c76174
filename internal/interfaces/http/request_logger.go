package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// HTTPRecorder registra métricas por petición. Lo implementa *metrics.Metrics.
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

// RequestLogger registra cada petición (método, ruta, estado, latencia) y alimenta las métricas HTTP.
// La ruta registrada en métricas es la plantilla ("/api/items/:id") para acotar la cardinalidad.
func RequestLogger(log zerolog.Logger, rec HTTPRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		chainErr := c.Next()
		if chainErr != nil {
			// deja que el ErrorHandler escriba el estado antes de leerlo
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		status := c.Response().StatusCode()
		latency := time.Since(start)

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error().Err(chainErr)
		case status >= 400:
			ev = log.Warn()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", latency).
			Str("user_id", GetUserID(c)).
			Msg("petición HTTP")

		if rec != nil {
			rec.RecordHTTPRequest(c.Method(), c.Route().Path, status, latency)
		}
		return nil
	}
}
