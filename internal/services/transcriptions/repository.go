package transcriptions

import (
	"context"
	"errors"

	"github.com/drumscribe/drumscribe-api/internal/models"
	"gorm.io/gorm"
)

// repository implements TranscriptionRepository
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new transcription repository
func NewRepository(db *gorm.DB) TranscriptionRepository {
	return &repository{db: db}
}

// GetByJobID retrieves a transcription by job ID
func (r *repository) GetByJobID(ctx context.Context, jobID uint) (*models.Transcription, error) {
	var transcription models.Transcription
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		First(&transcription).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTranscriptionNotFound
		}
		return nil, err
	}

	return &transcription, nil
}

// GetBySourceHash retrieves the most recent transcription for a source hash
func (r *repository) GetBySourceHash(ctx context.Context, hash string) (*models.Transcription, error) {
	var transcription models.Transcription
	err := r.db.WithContext(ctx).
		Where("source_hash = ?", hash).
		Order("created_at DESC").
		First(&transcription).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTranscriptionNotFound
		}
		return nil, err
	}

	return &transcription, nil
}

// Create saves a new transcription
func (r *repository) Create(ctx context.Context, transcription *models.Transcription) error {
	return r.db.WithContext(ctx).Create(transcription).Error
}

// Update modifies an existing transcription
func (r *repository) Update(ctx context.Context, transcription *models.Transcription) error {
	return r.db.WithContext(ctx).Save(transcription).Error
}

// Delete removes a transcription by job ID
func (r *repository) Delete(ctx context.Context, jobID uint) error {
	result := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Delete(&models.Transcription{})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrTranscriptionNotFound
	}

	return nil
}
