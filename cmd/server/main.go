package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	financeapp "github.com/erp/backoffice/internal/application/finance"
	"github.com/erp/backoffice/internal/application/workflow"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/numbering"
	"github.com/erp/backoffice/internal/infrastructure/audit"
	"github.com/erp/backoffice/internal/infrastructure/cache"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/event"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/erp/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting back office server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	docRepo := persistence.NewGormDocumentRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	consumptionRepo := persistence.NewGormConsumptionRepository(db.DB)
	balanceRepo := persistence.NewGormPartyBalanceRepository(db.DB)
	sequenceRepo := persistence.NewGormSequenceRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Initialize event serializer and register all event types
	eventSerializer := event.NewEventSerializer()
	event.RegisterDomainEvents(eventSerializer)

	// Create outbox publisher for transactional event saving
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)

	// Unit of work shared by the workflow services
	txRunner := persistence.NewGormTxRunner(db.DB)

	// Idempotency store for payment retries; falls back to in-memory when
	// Redis is unreachable
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	)
	idempotencyStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Initialize application services
	numbers := numbering.NewGenerator(sequenceRepo)
	quantities := ledger.NewService(consumptionRepo)

	documentService := workflow.NewDocumentService(docRepo, balanceRepo, numbers, quantities, txRunner)
	documentService.SetProductCatalog(productRepo)
	conversionService := workflow.NewConversionService(docRepo, balanceRepo, numbers, quantities, txRunner)
	paymentService := workflow.NewPaymentService(docRepo, balanceRepo, idempotencyStore, txRunner)
	balanceService := financeapp.NewBalanceService(balanceRepo)
	reconciliationService := financeapp.NewReconciliationService(docRepo, balanceRepo, quantities)

	// Initialize event bus and handlers. Cross-context side effects run
	// inside the originating transaction, so the bus only carries the
	// audit trail.
	eventBus := event.NewInMemoryEventBus(log)
	activityLogger := audit.NewActivityLogger(log)
	eventBus.Subscribe(activityLogger.Handle, activityLogger.EventTypes()...)

	// Events reach the bus through exactly one path. With the processor,
	// they are written to the outbox inside the business transaction and
	// replayed from there; without it, services publish straight to the bus
	// after commit. Enabling both would log every activity twice.
	if cfg.Event.ProcessorEnabled {
		docRepo.SetOutboxEventSaver(outboxPublisher)
		balanceRepo.SetOutboxEventSaver(outboxPublisher)

		processorConfig := event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			CleanupInterval:  event.DefaultOutboxProcessorConfig().CleanupInterval,
		}
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, processorConfig, log)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorConfig.BatchSize),
			zap.Duration("poll_interval", processorConfig.PollInterval),
		)
	} else {
		documentService.SetEventPublisher(eventBus)
		conversionService.SetEventPublisher(eventBus)
		paymentService.SetEventPublisher(eventBus)
	}

	// Business metrics via the global meter provider; a no-op provider is
	// used unless the deployment installs a real one
	if cfg.Telemetry.Enabled {
		meter := otel.Meter(cfg.Telemetry.ServiceName)
		metrics, err := telemetry.NewBusinessMetrics(meter, log)
		if err != nil {
			log.Fatal("Failed to initialize business metrics", zap.Error(err))
		}
		documentService.SetBusinessMetrics(metrics)
		conversionService.SetBusinessMetrics(metrics)
		paymentService.SetBusinessMetrics(metrics)
		log.Info("Business metrics enabled", zap.String("service", cfg.Telemetry.ServiceName))
	}

	// Initialize HTTP handlers
	documentHandler := handler.NewDocumentHandler(documentService)
	conversionHandler := handler.NewConversionHandler(conversionService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	balanceHandler := handler.NewBalanceHandler(balanceService, reconciliationService)
	systemHandler := handler.NewSystemHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Actor())

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(documentHandler).
		Register(conversionHandler).
		Register(paymentHandler).
		Register(balanceHandler).
		Register(systemHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
