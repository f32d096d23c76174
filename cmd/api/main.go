package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/suministros-api/internal/application/inventory"
	"github.com/jhoicas/suministros-api/internal/application/usecase"
	"github.com/jhoicas/suministros-api/internal/infrastructure/cache"
	"github.com/jhoicas/suministros-api/internal/infrastructure/events"
	"github.com/jhoicas/suministros-api/internal/infrastructure/jobs"
	"github.com/jhoicas/suministros-api/internal/infrastructure/metrics"
	"github.com/jhoicas/suministros-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/suministros-api/internal/interfaces/http"
	"github.com/jhoicas/suministros-api/pkg/config"
	"github.com/jhoicas/suministros-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("aplicar esquema")
	}

	itemRepo := postgres.NewItemRepository(pool)
	locationRepo := postgres.NewLocationRepository(pool)
	movementRepo := postgres.NewMovementRepository(pool)
	stockRepo := postgres.NewStockRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Caché de lectura: sin REDIS_ADDR se usa la caché nula.
	var readCache inventory.Cache = inventory.NopCache{}
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible, se continúa sin caché")
		} else {
			readCache = rc
			defer rc.Close()
		}
	}

	var publisher inventory.EventPublisher = inventory.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.MovementsTopic, cfg.App.Name)
		publisher = kp
		defer kp.Close()
	}

	m := metrics.New()
	zl := log.Zerolog()

	ledger := inventory.NewLedgerUseCase(txRunner, movementRepo, readCache, publisher, m, zl, inventory.LedgerConfig{
		DeleteWindow:  time.Duration(cfg.Inventory.DeleteWindowDays) * 24 * time.Hour,
		ReverseWindow: time.Duration(cfg.Inventory.ReversalWindowDays) * 24 * time.Hour,
	})
	projection := inventory.NewProjectionUseCase(itemRepo, locationRepo, movementRepo, stockRepo, readCache, zl, inventory.ProjectionConfig{
		CacheTTL:       cfg.Redis.TTL,
		HistoryMaxDays: cfg.Inventory.HistoryMaxDays,
	})
	locationUC := usecase.NewLocationUseCase(txRunner, locationRepo).WithCache(readCache)
	itemUC := usecase.NewItemUseCase(itemRepo, locationRepo).WithCache(readCache)

	if cfg.Inventory.LowStockScanEvery > 0 {
		job, err := jobs.NewLowStockJob(projection, m, zl, cfg.Inventory.LowStockScanEvery)
		if err != nil {
			log.Fatal().Err(err).Msg("programar revisión de stock bajo")
		}
		job.Start()
		defer func() {
			if err := job.Stop(); err != nil {
				log.Error().Err(err).Msg("detener revisión de stock bajo")
			}
		}()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(zl, m))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Suministros API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		LocationUC:   locationUC,
		ItemUC:       itemUC,
		Ledger:       ledger,
		Projection:   projection,
		JWTSecret:    cfg.JWT.Secret,
		ServiceName:  cfg.App.Name,
		Ping:         pool.Ping,
		MetricsRoute: m.Handler(),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
