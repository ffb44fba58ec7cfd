package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/helicon-hq/helicon/internal/api/handlers"
	"github.com/helicon-hq/helicon/internal/config"
	"github.com/helicon-hq/helicon/internal/extract"
	"github.com/helicon-hq/helicon/internal/jobs"
	"github.com/helicon-hq/helicon/internal/metrics"
	"github.com/helicon-hq/helicon/internal/openai"
	"github.com/helicon-hq/helicon/internal/repository"
	"github.com/helicon-hq/helicon/internal/server"
	"github.com/helicon-hq/helicon/internal/service"
	"github.com/helicon-hq/helicon/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the helicon knowledge API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("HELICON_OPENAI_API_KEY is required for serve")
	}

	if cfg.HasSentry() {
		// Default to 10% sampling outside development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	sourceRepo := repository.NewSourceRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	memoryRepo := repository.NewMemoryRepository(pool)
	pageRepo := repository.NewPageRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	graphRepo := repository.NewGraphRepository(pool)

	// Sources left processing by a dead process would block refreshes forever.
	reset, err := sourceRepo.ResetStuckProcessing(ctx, "interrupted by restart")
	if err != nil {
		return fmt.Errorf("failed to reset stuck sources: %w", err)
	}
	if reset > 0 {
		log.Printf("reset %d sources stuck in processing", reset)
	}

	m := metrics.New()

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})

	fetcher := extract.NewFetcher(cfg.FetchTimeout, cfg.FetchMaxBytes)

	processor := service.NewProcessorService(sourceRepo, chunkRepo, pageRepo, embeddingClient, fetcher, m)

	queue := jobs.NewIngestQueue(processor, cfg.IngestWorkers, cfg.IngestQueueSize)
	queue.Start(ctx)

	scheduler := jobs.NewRefreshScheduler(sourceRepo, queue, cfg.RefreshSchedule)
	if err := scheduler.Start(ctx); err != nil {
		queue.Stop()
		return err
	}

	sourceSvc := service.NewSourceService(sourceRepo, chunkRepo, queue)
	searchSvc := service.NewVectorSearchService(chunkRepo, memoryRepo, embeddingClient, m)
	contextSvc := service.NewContextService(pageRepo, taskRepo, graphRepo, searchSvc, m)

	routerCfg := server.RouterConfig{
		SourcesHandler: handlers.NewSourcesHandler(sourceSvc),
		SearchHandler:  handlers.NewSearchHandler(searchSvc),
		MemoryHandler:  handlers.NewMemoryHandler(searchSvc),
		ContextHandler: handlers.NewContextHandler(contextSvc),
		Pinger:         pool,
		MetricsHandler: m.Handler(),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// No new submissions can arrive once the listener is closed; drain what
	// is already queued.
	scheduler.Stop()
	queue.Stop()

	log.Println("server exited")
	return nil
}
