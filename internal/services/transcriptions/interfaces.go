package transcriptions

import (
	"context"

	"github.com/drumscribe/drumscribe-api/internal/models"
	"github.com/drumscribe/drumscribe-api/internal/transcribe"
)

// TranscriptionService defines the interface for transcription operations
type TranscriptionService interface {
	// GetByJobID retrieves the transcription produced by a job
	GetByJobID(ctx context.Context, jobID uint) (*models.Transcription, error)

	// GetBySourceHash retrieves a transcription by the SHA-256 of its source audio
	GetBySourceHash(ctx context.Context, hash string) (*models.Transcription, error)

	// SaveTranscription stores transcription results for a job
	SaveTranscription(ctx context.Context, transcription *models.Transcription) error

	// RelabelClusters applies user cluster labels, propagates them to events,
	// and persists the regenerated transcription
	RelabelClusters(ctx context.Context, jobID uint, labels map[int]string) (*models.Transcription, error)

	// DeleteByJobID removes the transcription for a job
	DeleteByJobID(ctx context.Context, jobID uint) error
}

// TranscriptionRepository defines the interface for transcription data access
type TranscriptionRepository interface {
	// GetByJobID retrieves a transcription by job ID
	GetByJobID(ctx context.Context, jobID uint) (*models.Transcription, error)

	// GetBySourceHash retrieves the most recent transcription for a source hash
	GetBySourceHash(ctx context.Context, hash string) (*models.Transcription, error)

	// Create saves a new transcription
	Create(ctx context.Context, transcription *models.Transcription) error

	// Update modifies an existing transcription
	Update(ctx context.Context, transcription *models.Transcription) error

	// Delete removes a transcription by job ID
	Delete(ctx context.Context, jobID uint) error
}

// Relabeler propagates cluster label changes through a transcription's events.
// The transcribe package provides the production implementation.
type Relabeler func(events []transcribe.DrumEvent, clusters []transcribe.ClusterInfo, labels map[int]string, bpm float64) ([]transcribe.DrumEvent, []transcribe.ClusterInfo)
