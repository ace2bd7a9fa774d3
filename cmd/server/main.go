package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/afflux/partner-service/config"
	"github.com/afflux/partner-service/internal/database"
	"github.com/afflux/partner-service/internal/handlers"
	"github.com/afflux/partner-service/internal/middleware"
	"github.com/afflux/partner-service/internal/partners"
	"github.com/afflux/partner-service/internal/pipeline"
	"github.com/afflux/partner-service/internal/storage"
	"github.com/afflux/partner-service/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting partner service")

	if cfg.Database.URL == "" {
		logger.Fatal().Msg("DATABASE_URL not set")
	}

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.GetConfigFromEnv())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}

	db, err := database.Connect(
		ctx,
		cfg.Database.URL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	logger.Info().Msg("Database connected")

	store := database.NewStore(db)

	if err := failInterruptedRuns(ctx, store, logger); err != nil {
		logger.Warn().Err(err).Msg("Failed to handle interrupted runs")
	}

	loader := partners.NewLoader(store)
	pipe := pipeline.New(loader, store, store, *logger)
	h := handlers.New(db, store, pipe, cfg.Ingestion.MaxConcurrentImports, cfg.Ingestion.MaxUploadBytes)

	if cfg.Storage.Enabled {
		archive, err := storage.NewLocalStorage(cfg.Storage.BasePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize upload archive")
		}
		h.WithArchive(archive)
		logger.Info().Str("path", cfg.Storage.BasePath).Msg("Upload archiving enabled")
	}

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	setupRequestLogging(router, logger)

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	internal := router.Group("/internal")
	internal.Use(middleware.InternalAuth(cfg.Auth.InternalAPIKey))
	internal.Use(middleware.ServiceRateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize))
	{
		internal.GET("/health", h.Health)
		internal.GET("/partners", h.ListPartners)
		internal.GET("/partners/:partnerId", h.GetPartner)
		internal.POST("/partners/:partnerId/import/:type", h.ImportRecords)
		internal.POST("/validate/:type", h.ValidateCSV)

		imports := internal.Group("/imports")
		{
			imports.GET("/runs", h.ListRuns)
			imports.GET("/runs/:runId", h.GetRun)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to shutdown telemetry")
	}

	logger.Info().Msg("Server exited")
}

// failInterruptedRuns marks runs left in the running state by a previous
// process as failed, so poll URLs do not hang forever after a restart
func failInterruptedRuns(ctx context.Context, store *database.Store, logger *zerolog.Logger) error {
	count, err := store.FailRunningImportRuns(ctx, "Service restarted during processing")
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Info().Int64("count", count).Msg("Marked interrupted runs as failed")
	}
	return nil
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "partner-service").Logger()
	return &logger
}

func setupRequestLogging(router *gin.Engine, logger *zerolog.Logger) {
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("HTTP request")
	})
}
