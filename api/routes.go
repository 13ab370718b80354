package api

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/drumscribe/drumscribe-api/api/health"
	"github.com/drumscribe/drumscribe-api/api/jobs"
	"github.com/drumscribe/drumscribe-api/api/types"
	"github.com/drumscribe/drumscribe-api/api/version"
	jobsService "github.com/drumscribe/drumscribe-api/internal/services/jobs"
	"github.com/drumscribe/drumscribe-api/internal/services/transcriptions"
	"github.com/drumscribe/drumscribe-api/pkg/config"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) error {
	// Public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	engine.NoRoute(NotFoundHandler())

	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if deps == nil {
		deps = &types.Dependencies{}
	}
	if deps.DataDir == "" {
		deps.DataDir = cfg.Storage.DataDir
	}
	if deps.MaxUploadBytes == 0 {
		deps.MaxUploadBytes = cfg.Server.MaxUploadBytes
	}

	// Wire services from the database if the caller did not inject them
	if deps.DB != nil && deps.DB.DB != nil {
		if deps.JobService == nil {
			deps.JobService = jobsService.NewService(jobsService.NewRepository(deps.DB.DB))
		}
		if deps.TranscriptionService == nil {
			deps.TranscriptionService = transcriptions.NewService(transcriptions.NewRepository(deps.DB.DB))
		}
	}

	if deps.JobService == nil || deps.TranscriptionService == nil {
		return fmt.Errorf("job and transcription services are required")
	}

	v1 := engine.Group("/api/v1")

	jobsRPS := endpointRate(cfg, "jobs", 10)
	midiRPS := endpointRate(cfg, "midi", 60)

	// Job creation and status with strict rate limiting
	jobGroup := v1.Group("/jobs")
	jobGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, jobsRPS, jobsRPS*2))
	jobs.RegisterRoutes(jobGroup, deps)

	// MIDI downloads tolerate more traffic than job creation
	midiGroup := v1.Group("/midi")
	midiGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, midiRPS, midiRPS*2))
	midiGroup.GET("/:id", jobs.GetMIDI(deps))

	return nil
}

// endpointRate reads a per-endpoint request rate from config with a default
func endpointRate(cfg *config.Config, endpoint string, fallback int) int {
	if !cfg.RateLimiting.Enabled {
		return 1000
	}
	if rps, ok := cfg.RateLimiting.Endpoints[endpoint]; ok && rps > 0 {
		return rps
	}
	if rps, ok := cfg.RateLimiting.Endpoints["default"]; ok && rps > 0 {
		return rps
	}
	return fallback
}
