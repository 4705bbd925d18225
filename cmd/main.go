package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/namoruso/inventory/internal/auth"
	"github.com/namoruso/inventory/internal/metrics"
	"github.com/namoruso/inventory/internal/repository"
	"github.com/namoruso/inventory/internal/service"
	"github.com/namoruso/inventory/internal/transport/http"
	"github.com/namoruso/inventory/internal/transport/http/handler"
	inventoryKafka "github.com/namoruso/inventory/internal/transport/kafka"
	"github.com/namoruso/inventory/internal/validator"
	"github.com/namoruso/inventory/migrations"
	"github.com/namoruso/inventory/pkg/config"
	"github.com/namoruso/inventory/pkg/db"
	kafka2 "github.com/namoruso/inventory/pkg/kafka"
	"github.com/namoruso/inventory/pkg/mylogger"
	outbox "github.com/namoruso/inventory/pkg/outbox/repository"
	"github.com/namoruso/inventory/pkg/outbox/worker"
	"github.com/namoruso/inventory/pkg/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.LoggerConfig())
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	tp, err := utils.InitTracer(ctx, utils.TracerConfig{
		ServiceName: cfg.Services.Name,
		Endpoint:    cfg.Tracing.Endpoint,
		Env:         cfg.Env,
		Enabled:     cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal("Error init tracer", zap.Error(err))
	}

	authenticator, err := auth.NewAuthenticator(cfg.Auth.JWTSecret)
	if err != nil {
		logger.Fatal("Error creating authenticator", zap.Error(err))
	}

	if cfg.Postgres.MigrateOnStart {
		if err := db.Migrate(cfg.Postgres.URL, migrations.FS); err != nil {
			logger.Fatal("Error applying migrations", zap.Error(err))
		}
	}

	pool, err := db.NewPostgresDB(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal("Error creating postgres pool", zap.Error(err))
	}

	m := metrics.New()

	outboxRepository := outbox.NewOutboxRepository(logger)
	productRepository := repository.NewBreakerRepository(
		repository.NewProductRepository(pool, outboxRepository, cfg.Kafka.EventsTopic, logger),
		cfg.Breaker,
		logger,
	)

	inventoryService := service.NewInventoryService(productRepository, validator.New(), m, logger)

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, cache reads will fall through", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}

		inventoryService = service.NewCachedInventoryService(inventoryService, rdb, cfg.Redis.CacheTTL, logger)
	}

	var producer kafka2.Producer
	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled {
		producer, err = kafka2.NewProducer(cfg.Kafka.Brokers, logger)
		if err != nil {
			logger.Fatal("Error creating kafka producer", zap.Error(err))
		}

		outboxProcessor := worker.NewOutboxProcessor(pool, outboxRepository, producer, logger, worker.DefaultConfig())
		go outboxProcessor.Start(ctx)

		consumer := inventoryKafka.NewConsumer(inventoryService, pool, logger)
		go func() {
			defer close(consumerDone)

			if err := consumer.Start(
				ctx,
				cfg.Kafka.Brokers,
				cfg.Kafka.GroupID,
				cfg.Kafka.CommandsTopic,
				kafka2.WithClientID(cfg.Services.Name),
			); err != nil {
				logger.Error("Kafka consumer stopped", zap.Error(err))
			}
		}()
	} else {
		close(consumerDone)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.Services.Name,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		BodyLimit:    cfg.HTTP.BodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "internal error"

			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
				message = fiberErr.Message
			}

			mylogger.Warn(c.UserContext(), logger, "Unhandled request error", zap.Int("http_status", code), zap.Error(err))

			return c.Status(code).JSON(fiber.Map{"error": message})
		},
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(otelfiber.Middleware())
	app.Use(m.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS.AllowOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization,Accept",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Limiter.Max,
		Expiration: cfg.Limiter.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Try again later.",
			})
		},
	}))

	handlers := &http.Handlers{
		Inventory: handler.NewInventoryHandler(inventoryService, cfg.HTTP.Timeout, logger),
	}

	http.RegisterRoutes(app, handlers, authenticator, m, logger)

	go func() {
		logger.Info("HTTP inventory service listening", zap.String("port", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			logger.Fatal("Error listening HTTP", zap.String("port", cfg.HTTP.Port), zap.Error(err))
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("Error shutting down HTTP server", zap.Error(err))
	} else {
		logger.Info("Stopped HTTP server successfully")
	}

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		logger.Warn("Kafka consumer did not stop in time")
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Warn("Error closing kafka producer", zap.Error(err))
		}
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Warn("Error closing redis client", zap.Error(err))
		}
	}

	pool.Close()
	logger.Info("Closed db pool successfully")

	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Error stopping telemetry", zap.Error(err))
	} else {
		logger.Info("Telemetry closed correctly")
	}
}
