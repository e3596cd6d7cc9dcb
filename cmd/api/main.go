package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lendit/internal/api"
	"lendit/internal/config"
	"lendit/internal/database"
	"lendit/internal/domain"
	"lendit/internal/events"
	"lendit/internal/export"
	"lendit/internal/logging"
	"lendit/internal/metrics"
	"lendit/internal/models"
	"lendit/internal/notify"
	"lendit/internal/repository"
	"lendit/internal/service"
	"lendit/internal/sheets"
	"lendit/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if err := seedDatabase(db, &logger); err != nil {
		return err
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	cache := buildEligibilityCache(redisClient, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := initSheetsWorker(ctx, cfg, db, redisClient, &logger)

	eventBus := events.NewEventBus()
	initTelegram(cfg, eventBus, &logger)

	userSvc := service.NewUserService(db, &logger)
	itemSvc := service.NewItemService(db, &logger)
	bookingSvc := service.NewBookingService(db, userSvc, itemSvc, eventBus, syncWorker, cfg.Booking.MaxAdvanceDays, &logger)
	commentSvc := service.NewCommentService(db, bookingSvc, cache, eventBus, &logger)
	requestSvc := service.NewRequestService(db, &logger)

	exporter := export.NewExporter(db)

	httpServer := api.NewHTTPServer(cfg, bookingSvc, itemSvc, userSvc, commentSvc, requestSvc, cache, exporter, &logger)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(&cfg.API, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// seedDatabase loads users and items from the seed file on first start. An
// absent file or a non-empty database both skip seeding.
func seedDatabase(db *database.DB, logger *zerolog.Logger) error {
	seedPath := os.Getenv("SEED_PATH")
	if seedPath == "" {
		seedPath = "configs/seed.yaml"
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("read seed file")
		return err
	}

	var seed struct {
		Users []models.User `yaml:"users"`
		Items []models.Item `yaml:"items"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("parse seed file")
		return err
	}

	ctx := context.Background()
	existing, err := db.GetAllUsers(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for i := range seed.Users {
		if err := db.CreateUser(ctx, &seed.Users[i]); err != nil {
			return fmt.Errorf("seed user %q: %w", seed.Users[i].Email, err)
		}
	}
	for i := range seed.Items {
		if err := db.CreateItem(ctx, &seed.Items[i]); err != nil {
			return fmt.Errorf("seed item %q: %w", seed.Items[i].Name, err)
		}
	}

	logger.Info().Int("users", len(seed.Users)).Int("items", len(seed.Items)).Msg("database seeded")
	return nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func buildEligibilityCache(redisClient *redis.Client, logger *zerolog.Logger) domain.EligibilityCache {
	memory := repository.NewMemoryEligibilityCache()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverEligibilityCache(
		repository.NewRedisEligibilityCache(redisClient),
		memory,
		logger,
	)
}

func initSheetsWorker(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) domain.SyncWorker {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingsSpreadsheetID == "" {
		return nil
	}

	sheetsSvc, err := sheets.NewService(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingsSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}

	if err := sheetsSvc.TestConnection(ctx); err != nil {
		if email, emailErr := sheets.ServiceAccountEmail(cfg.Google.CredentialsFile); emailErr == nil {
			logger.Warn().Err(err).Str("service_account", email).
				Msg("google sheets connection test failed, check spreadsheet sharing")
		} else {
			logger.Warn().Err(err).Msg("google sheets connection test failed")
		}
		return nil
	}

	logger.Info().Msg("google sheets connected")
	sheetsWorker := worker.NewSheetsWorker(db, sheetsSvc, redisClient, worker.RetryPolicy{}, logger)
	go sheetsWorker.Run(ctx)
	return sheetsWorker
}

func initTelegram(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Telegram.BotToken == "" {
		return
	}

	notifier, err := notify.NewTelegramNotifier(cfg.Telegram, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return
	}
	notifier.SubscribeAll(bus)
	logger.Info().Msg("telegram notifications enabled")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
