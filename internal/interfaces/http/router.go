package http

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jhoicas/suministros-api/internal/application/inventory"
	"github.com/jhoicas/suministros-api/internal/application/usecase"
	"github.com/jhoicas/suministros-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	LocationUC   *usecase.LocationUseCase
	ItemUC       *usecase.ItemUseCase
	Ledger       *inventory.LedgerUseCase
	Projection   *inventory.ProjectionUseCase
	JWTSecret    string
	ServiceName  string
	Ping         func(ctx context.Context) error // nil = sin chequeo de base de datos
	MetricsRoute http.Handler                    // nil = sin /metrics
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	// Salud y métricas (públicos)
	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.Ping != nil {
			if err := deps.Ping(c.UserContext()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": deps.ServiceName})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.MetricsRoute != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.MetricsRoute))
	}

	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	write := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)

	// Locations
	locations := api.Group("/locations")
	locationHandler := NewLocationHandler(deps.LocationUC, deps.Projection)
	locations.Get("/", locationHandler.List)
	locations.Post("/", write, locationHandler.Create)
	locations.Get("/tree", locationHandler.Tree)
	locations.Get("/code/:code", locationHandler.GetByCode)
	locations.Get("/:id", locationHandler.GetByID)
	locations.Put("/:id", write, locationHandler.Update)
	locations.Delete("/:id", write, locationHandler.Delete)
	locations.Get("/:id/ancestors", locationHandler.Ancestors)
	locations.Get("/:id/summary", locationHandler.Summary)

	// Items
	items := api.Group("/items")
	itemHandler := NewItemHandler(deps.ItemUC, deps.Projection)
	items.Get("/", itemHandler.List)
	items.Post("/", write, itemHandler.Create)
	items.Get("/:id", itemHandler.GetByID)
	items.Put("/:id", write, itemHandler.Update)
	items.Get("/:id/inventory", itemHandler.Inventory)
	items.Get("/:id/history", itemHandler.History)

	// Movements
	movements := api.Group("/movements")
	movementHandler := NewMovementHandler(deps.Ledger)
	movements.Get("/", movementHandler.List)
	movements.Post("/", write, movementHandler.Create)
	movements.Post("/batch", write, movementHandler.CreateBatch)
	movements.Get("/batch/:batchId", movementHandler.GetBatch)
	movements.Get("/:id", movementHandler.GetByID)
	movements.Put("/:id", write, movementHandler.Update)
	movements.Delete("/:id", write, movementHandler.Delete)
	movements.Post("/:id/reverse", write, movementHandler.Reverse)

	// Inventory (solo lectura)
	inv := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Projection)
	inv.Get("/", inventoryHandler.Status)
	inv.Get("/stock", inventoryHandler.CurrentStock)
	inv.Get("/low-stock", inventoryHandler.LowStock)
	inv.Get("/statistics", inventoryHandler.Statistics)
}
