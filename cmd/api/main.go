package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/rouge-eval/backend/internal/api/handlers"
	"github.com/rouge-eval/backend/internal/cache/redis"
	"github.com/rouge-eval/backend/internal/evaluation"
	"github.com/rouge-eval/backend/internal/metrics"
	"github.com/rouge-eval/backend/internal/middleware/ratelimit"
	"github.com/rouge-eval/backend/internal/middleware/security"
	"github.com/rouge-eval/backend/internal/middleware/validation"
	"github.com/rouge-eval/backend/internal/rouge"
	"github.com/rouge-eval/backend/internal/storage/sqlite"
	"github.com/rouge-eval/backend/pkg/circuitbreaker"
	"github.com/rouge-eval/backend/pkg/config"
	appLogger "github.com/rouge-eval/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting ROUGE evaluation API server")

	if err := cfg.Scoring.ValidateScorable(); err != nil {
		appLogger.Fatal("Invalid default scoring options", zap.Error(err))
	}

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	checks := map[string]handlers.Check{
		"sqlite": sqliteClient.Ping,
		"rouge_script": func(ctx context.Context) error {
			_, err := os.Stat(cfg.Rouge.ScriptPath)
			return err
		},
	}

	opts := evaluation.Options{
		Store:    sqliteClient,
		CacheTTL: time.Duration(cfg.Redis.TTLSec) * time.Second,
		WorkDir:  cfg.Rouge.WorkDir,
	}

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, result cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			opts.Cache = redisClient
			checks["redis"] = redisClient.Ping
		}
	}

	breaker := circuitbreaker.NewCircuitBreaker("rouge", circuitbreaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Timeout:          time.Duration(cfg.Breaker.TimeoutSec) * time.Second,
		Logger:           appLogger.GetLogger(),
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			metrics.BreakerTransitions.WithLabelValues(name, to.String()).Inc()
		},
	})

	provider := rouge.NewBreakerProvider(
		rouge.NewScriptProvider(cfg.Rouge.Interpreter, cfg.Rouge.ScriptPath),
		breaker,
	)
	evaluator := evaluation.NewEvaluator(rouge.NewEvaluator(provider, cfg.Rouge.DataPath), opts)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: handlers.ErrorHandler,
	})

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.Server.AllowedOrigins, ", "),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + ratelimit.ClientHeader,
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IsDevelopment:  cfg.Server.Development,
	}))

	app.Get("/metrics", metrics.MetricsHandler())

	evaluationHandler := handlers.NewEvaluationHandler(evaluator, cfg.Scoring)
	reportHandler := handlers.NewReportHandler(cfg.Scoring)
	healthHandler := handlers.NewHealthHandler(checks)
	limits := validation.Limits{
		MaxSummaries:    cfg.Server.Limits.MaxSummaries,
		MaxSummaryBytes: cfg.Server.Limits.MaxSummaryBytes,
		MaxReportBytes:  cfg.Server.Limits.MaxReportBytes,
	}
	wsHandler := handlers.NewWebSocketHandler(evaluator, cfg.Scoring, handlers.WebSocketConfig{
		Limits:    limits,
		ReadLimit: int64(cfg.Server.BodyLimit),
		Timeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
	})

	api := app.Group("/api/v1")

	api.Get("/health", healthHandler.Health)
	api.Get("/ready", healthHandler.Ready)

	guarded := api.Group("",
		limiter.Middleware(),
		validation.Middleware(validation.Config{
			Limits: limits,
			Logger: appLogger.GetLogger(),
		}),
	)

	guarded.Post("/evaluations", evaluationHandler.CreateEvaluation)
	guarded.Get("/evaluations", evaluationHandler.ListEvaluations)
	guarded.Get("/evaluations/:id", evaluationHandler.GetEvaluation)
	guarded.Post("/reports/parse", reportHandler.ParseReport)
	guarded.Get("/ws", wsHandler.Upgrade, websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting",
		zap.String("address", addr),
		zap.String("script", cfg.Rouge.ScriptPath),
		zap.String("data", cfg.Rouge.DataPath),
		zap.Bool("cache", opts.Cache != nil),
	)

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		appLogger.Error("Shutdown did not complete", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
