package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drumscribe/drumscribe-api/api"
	"github.com/drumscribe/drumscribe-api/api/types"
	"github.com/drumscribe/drumscribe-api/internal/database"
	jobsService "github.com/drumscribe/drumscribe-api/internal/services/jobs"
	"github.com/drumscribe/drumscribe-api/internal/services/transcriptions"
	"github.com/drumscribe/drumscribe-api/internal/services/workers"
	"github.com/drumscribe/drumscribe-api/pkg/config"
	"github.com/spf13/cobra"
)

var (
	serverHost string
	serverPort int
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the Drumscribe API server with the configured settings.

The server accepts transcription jobs over HTTP and processes them with
a background worker pool.

Example:
  drumscribe-api serve
  drumscribe-api serve --port 9090
  drumscribe-api serve --host 0.0.0.0 --port 8080`,
		RunE: runServer,
	}

	cmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	cmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
	return cmd
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if serverHost == "" {
		serverHost = cfg.Server.Host
	}
	if serverPort == 0 {
		serverPort = cfg.Server.Port
	}

	// Database with migrations
	db, err := database.InitializeWithMigrations()
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	// Services
	jobSvc := jobsService.NewService(jobsService.NewRepository(db.DB))
	transcriptionSvc := transcriptions.NewService(transcriptions.NewRepository(db.DB))

	// Worker pool with the transcription processor
	workerCount := cfg.Processing.Workers
	if workerCount <= 0 {
		workerCount = 2
	}
	pool := workers.NewWorkerPool(jobSvc, workerCount, 2*time.Second)
	pool.RegisterProcessor(workers.NewTranscriptionProcessor(jobSvc, transcriptionSvc))

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if err := pool.Start(workerCtx); err != nil {
		return fmt.Errorf("starting worker pool: %w", err)
	}
	defer pool.Stop()

	go runJobCleanup(workerCtx, jobSvc, cfg.Storage.MaxJobAge, cfg.Storage.CleanupInterval)

	// HTTP server
	address := fmt.Sprintf("%s:%d", serverHost, serverPort)
	server := api.NewServer(address, cfg.Server.MaxUploadBytes)
	server.SetDependencies(&types.Dependencies{
		DB:                   db,
		JobService:           jobSvc,
		TranscriptionService: transcriptionSvc,
		WorkerPool:           pool,
		DataDir:              cfg.Storage.DataDir,
		MaxUploadBytes:       cfg.Server.MaxUploadBytes,
	})

	if err := server.Initialize(); err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}

	fmt.Printf("Starting Drumscribe API server on %s\n", address)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	fmt.Printf("Server is ready to handle requests at %s\n", address)

	select {
	case <-stop:
		fmt.Println("\nShutting down server...")
	case err := <-serverErr:
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
		fmt.Println("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Server forced to shutdown: %v\n", err)
		return err
	}

	fmt.Println("Server gracefully stopped")
	return nil
}

// runJobCleanup periodically removes terminal jobs older than maxAge.
func runJobCleanup(ctx context.Context, jobSvc jobsService.Service, maxAge, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	retentionDays := int(maxAge / (24 * time.Hour))
	if retentionDays < 1 {
		retentionDays = 1
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := jobSvc.CleanupOldJobs(ctx, retentionDays)
			if err != nil {
				log.Printf("[ERROR] Job cleanup failed: %v", err)
				continue
			}
			if deleted > 0 {
				log.Printf("Job cleanup removed %d old jobs", deleted)
			}
		}
	}
}
