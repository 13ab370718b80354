package types

import (
	"github.com/drumscribe/drumscribe-api/internal/database"
	"github.com/drumscribe/drumscribe-api/internal/services/jobs"
	"github.com/drumscribe/drumscribe-api/internal/services/transcriptions"
	"github.com/drumscribe/drumscribe-api/internal/services/workers"
)

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB                   *database.DB
	JobService           jobs.Service
	TranscriptionService transcriptions.TranscriptionService
	WorkerPool           *workers.WorkerPool

	// DataDir is the root of per-job storage (uploads, stems, MIDI)
	DataDir string

	// MaxUploadBytes bounds multipart audio uploads
	MaxUploadBytes int64
}
