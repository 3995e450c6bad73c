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

	"github.com/jhoicas/pos-ledger/internal/application/ledger"
	"github.com/jhoicas/pos-ledger/internal/application/settlement"
	"github.com/jhoicas/pos-ledger/internal/application/transfer"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/messaging"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/observability"
	infrapdf "github.com/jhoicas/pos-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/pos-ledger/internal/interfaces/http"
	"github.com/jhoicas/pos-ledger/pkg/config"
	"github.com/jhoicas/pos-ledger/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Ledger.StoreDriver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Telemetry.ExporterEndpoint,
		Insecure:    cfg.App.Env != "production",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}

	// Almacén del libro: PostgreSQL en producción, memoria para desarrollo local.
	var (
		txRunner repository.TxRunner
		repos    repository.Repos
	)
	switch cfg.Ledger.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore(cfg.Ledger.TxMaxAttempts)
		txRunner, repos = store, store.Repos()
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		txRunner, repos = postgres.NewTxRunner(pool, cfg.Ledger.TxMaxAttempts), postgres.NewRepos(pool)
	}

	// Eventos de dominio: Kafka si hay brokers; si no, se descartan.
	publisher, closePublisher := messaging.NewPublisher(cfg.Kafka)
	defer func() {
		if err := closePublisher(); err != nil {
			log.Error().Err(err).Msg("cerrar productor Kafka")
		}
	}()

	// Caché de stock en Redis (opcional).
	var stockCache ledger.StockCache
	if cfg.Cache.RedisURL != "" {
		rdb, err := cache.NewRedis(ctx, cfg.Cache.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		stockCache = cache.NewRedisStockCache(rdb)
	}

	engine := ledger.NewVoucherEngine(txRunner, publisher, log)
	queries := ledger.NewQueryService(txRunner, repos, stockCache, time.Duration(cfg.Cache.StockTTLSeconds)*time.Second, log)
	orchestrator := transfer.NewOrchestrator(txRunner, repos, engine, publisher, infrapdf.NewMarotoDeliveryNoteGenerator(), log)
	settlementSvc := settlement.NewService(txRunner, repos, engine, nil, nil, int64(cfg.Loyalty.AmountPerPoint), publisher, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "POS Ledger API",
		}))
	} else {
		log.Warn().Str("file", swaggerFile).Msg("swagger deshabilitado: archivo no encontrado")
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Engine:     engine,
		Queries:    queries,
		Transfers:  orchestrator,
		Settlement: settlementSvc,
		JWTSecret:  cfg.JWT.Secret,
		JWTIssuer:  cfg.JWT.Issuer,
		Log:        log,
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
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cerrar exportador de trazas")
	}

	log.Info().Msg("aplicación detenida")
}
