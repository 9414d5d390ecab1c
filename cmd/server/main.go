package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ridebook/internal/app"
	"ridebook/internal/auth"
	"ridebook/internal/config"
	"ridebook/internal/handler"
	internalRedis "ridebook/internal/redis"
	"ridebook/internal/repository/postgres"
	"ridebook/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", "error", err)
		} else {
			logger.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		fatal(logger, "failed to connect to database", err)
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL", "db", cfg.Database.DBName)

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		fatal(logger, "failed to connect to redis", err)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis", "addr", cfg.Redis.Addr)

	// A nil *mq.Publisher must not reach the service as a non-nil interface.
	var publisher service.Publisher
	pub, err := app.NewPublisher(cfg.AMQP, logger)
	if err != nil {
		fatal(logger, "failed to set up event publishing", err)
	}
	if pub != nil {
		defer pub.Close()
		publisher = pub
	}

	server := wireServer(db, redisClient, publisher, nrApp, cfg, logger)

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "server error", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if nrApp != nil {
		nrApp.Shutdown(cfg.Server.ShutdownTimeout)
	}

	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	publisher service.Publisher,
	nrApp *newrelic.Application,
	cfg *config.Config,
	logger *slog.Logger,
) *http.Server {
	store := postgres.NewStore(db)
	statusCache := internalRedis.NewStatusCache(redisClient, cfg.Booking.StatusCacheTTL)
	tokens := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)

	// Initialize services.
	notifier := service.NewNotificationService(publisher, logger)
	ledger := service.NewLedgerService(store, logger)
	users := service.NewUserService(store, ledger, logger)
	rides := service.NewRideService(store, statusCache, cfg.Booking.FareFloor, logger)
	lifecycle := service.NewLifecycleService(store, notifier, statusCache, nrApp, cfg.Booking.FareFloor, logger)

	router := app.NewRouter(app.RouterDeps{
		RideHandler: handler.NewRideHandler(rides, lifecycle),
		UserHandler: handler.NewUserHandler(users),
		TokenParser: tokens,
		RedisClient: redisClient,
		NewRelicApp: nrApp,
		Logger:      logger,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
