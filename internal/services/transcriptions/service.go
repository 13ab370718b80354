package transcriptions

import (
	"context"
	"log"
	"strings"

	"github.com/drumscribe/drumscribe-api/internal/models"
	"github.com/drumscribe/drumscribe-api/internal/transcribe"
	"github.com/drumscribe/drumscribe-api/pkg/midi"
)

// service implements TranscriptionService
type service struct {
	repo     TranscriptionRepository
	relabel  Relabeler
	renderer func(path string, events []transcribe.DrumEvent, bpm float64) error
}

// NewService creates a new transcription service
func NewService(repo TranscriptionRepository) TranscriptionService {
	return &service{
		repo:     repo,
		relabel:  transcribe.Relabel,
		renderer: midi.RenderFile,
	}
}

// GetByJobID retrieves the transcription produced by a job
func (s *service) GetByJobID(ctx context.Context, jobID uint) (*models.Transcription, error) {
	if jobID == 0 {
		return nil, ErrInvalidJobID
	}

	transcription, err := s.repo.GetByJobID(ctx, jobID)
	if err != nil {
		log.Printf("[DEBUG] Failed to get transcription for job %d: %v", jobID, err)
		return nil, err
	}

	return transcription, nil
}

// GetBySourceHash retrieves a transcription by the SHA-256 of its source audio
func (s *service) GetBySourceHash(ctx context.Context, hash string) (*models.Transcription, error) {
	if hash == "" {
		return nil, ErrTranscriptionNotFound
	}
	return s.repo.GetBySourceHash(ctx, hash)
}

// SaveTranscription stores transcription results for a job
func (s *service) SaveTranscription(ctx context.Context, transcription *models.Transcription) error {
	if transcription.JobID == 0 {
		return ErrInvalidJobID
	}

	// Check if a transcription already exists for this job
	existing, err := s.repo.GetByJobID(ctx, transcription.JobID)
	if err == nil && existing != nil {
		transcription.ID = existing.ID
		log.Printf("[DEBUG] Updating existing transcription for job %d", transcription.JobID)
		return s.repo.Update(ctx, transcription)
	}

	log.Printf("[DEBUG] Creating transcription for job %d: %d events, %d clusters",
		transcription.JobID, len(transcription.Events), len(transcription.Clusters))
	err = s.repo.Create(ctx, transcription)
	if err != nil {
		// UNIQUE constraint violation means another worker beat us to it
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			log.Printf("[DEBUG] Transcription for job %d already exists, updating instead", transcription.JobID)
			current, getErr := s.repo.GetByJobID(ctx, transcription.JobID)
			if getErr != nil {
				return getErr
			}
			transcription.ID = current.ID
			return s.repo.Update(ctx, transcription)
		}
		return err
	}
	return nil
}

// RelabelClusters applies user cluster labels, propagates them to events,
// re-deduplicates under the new per-drum gaps, and persists the result.
// The MIDI file is regenerated in place so downloads reflect the new labels.
func (s *service) RelabelClusters(ctx context.Context, jobID uint, labels map[int]string) (*models.Transcription, error) {
	transcription, err := s.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if len(transcription.Events) == 0 {
		return nil, ErrNoEvents
	}

	events, clusters := s.relabel(transcription.Events, transcription.Clusters, labels, transcription.BPM)
	transcription.Events = events
	transcription.Clusters = clusters

	if err := s.repo.Update(ctx, transcription); err != nil {
		return nil, err
	}

	if transcription.MIDIPath != "" {
		if err := s.renderer(transcription.MIDIPath, events, transcription.BPM); err != nil {
			log.Printf("[ERROR] Failed to regenerate MIDI for job %d: %v", jobID, err)
			return nil, err
		}
		log.Printf("[DEBUG] Regenerated MIDI for job %d at %s", jobID, transcription.MIDIPath)
	}

	return transcription, nil
}

// DeleteByJobID removes the transcription for a job
func (s *service) DeleteByJobID(ctx context.Context, jobID uint) error {
	if jobID == 0 {
		return ErrInvalidJobID
	}
	return s.repo.Delete(ctx, jobID)
}
