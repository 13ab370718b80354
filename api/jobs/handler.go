package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/drumscribe/drumscribe-api/api/types"
	"github.com/drumscribe/drumscribe-api/internal/models"
	jobsService "github.com/drumscribe/drumscribe-api/internal/services/jobs"
	"github.com/drumscribe/drumscribe-api/internal/services/transcriptions"
	"github.com/gin-gonic/gin"
)

const (
	defaultBPM = 120.0
	minBPM     = 20.0
	maxBPM     = 400.0

	requestTimeout = 10 * time.Second
)

var allowedUploadExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
	".opus": true,
	".webm": true,
	".mp4":  true,
}

// JobResponse is the status view of a job returned by GET /jobs/:id
type JobResponse struct {
	ID        uint    `json:"id"`
	Status    string  `json:"status"`
	Stage     string  `json:"stage"`
	Progress  int     `json:"progress"`
	Error     string  `json:"error,omitempty"`
	ErrorType string  `json:"error_type,omitempty"`
	ErrorCode string  `json:"error_code,omitempty"`
	CreatedAt string  `json:"created_at"`
	StartedAt *string `json:"started_at,omitempty"`
	DoneAt    *string `json:"completed_at,omitempty"`
}

// youtubeRequest is the body of POST /jobs/youtube
type youtubeRequest struct {
	URL      string  `json:"url" binding:"required"`
	BPM      float64 `json:"bpm"`
	UseStems bool    `json:"use_stems"`
}

// relabelRequest is the body of PUT /jobs/:id/clusters. Keys are cluster
// IDs as decimal strings (JSON objects cannot have integer keys).
type relabelRequest struct {
	ClusterLabels map[string]string `json:"cluster_labels" binding:"required"`
}

// CreateUploadJob handles POST /jobs: a multipart audio upload plus
// optional bpm and use_stems form fields. Returns 202 with the job ID.
func CreateUploadJob(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing audio file (multipart field 'file')"})
			return
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !allowedUploadExtensions[ext] {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unsupported file extension %q", ext)})
			return
		}

		if deps.MaxUploadBytes > 0 && file.Size > deps.MaxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Uploaded file exceeds size limit"})
			return
		}

		bpm, err := parseBPM(c.PostForm("bpm"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		useStems := c.PostForm("use_stems") == "true"

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		payload := models.JobPayload{
			models.PayloadSourceType: models.SourceTypeUpload,
			models.PayloadSource:     "original" + ext,
			models.PayloadBPM:        bpm,
			models.PayloadUseStems:   useStems,
		}

		job, err := deps.JobService.EnqueueJob(ctx, models.JobTypeTranscription, payload)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue job"})
			return
		}

		// The worker resolves uploads from <data dir>/<job id>/original.<ext>
		jobDir := filepath.Join(deps.DataDir, fmt.Sprintf("%d", job.ID))
		if err := saveUpload(c, file, filepath.Join(jobDir, "original"+ext)); err != nil {
			log.Printf("[ERROR] Failed to store upload for job %d: %v", job.ID, err)
			if cancelErr := deps.JobService.CancelJob(ctx, job.ID); cancelErr != nil {
				log.Printf("[ERROR] Failed to cancel job %d after upload failure: %v", job.ID, cancelErr)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store uploaded audio"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"job_id": job.ID,
			"status": job.Status,
		})
	}
}

// CreateYouTubeJob handles POST /jobs/youtube with a JSON body naming the
// video URL. Returns 202 with the job ID.
func CreateYouTubeJob(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req youtubeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid url"})
			return
		}

		if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "URL must be http or https"})
			return
		}

		bpm := req.BPM
		if bpm == 0 {
			bpm = defaultBPM
		}
		if bpm < minBPM || bpm > maxBPM {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("bpm must be between %g and %g", minBPM, maxBPM)})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		payload := models.JobPayload{
			models.PayloadSourceType: models.SourceTypeYouTube,
			models.PayloadSource:     req.URL,
			models.PayloadBPM:        bpm,
			models.PayloadUseStems:   req.UseStems,
		}

		// The same URL enqueued twice reuses the live job instead of
		// downloading and separating the audio again.
		job, err := deps.JobService.EnqueueUniqueJob(ctx, models.JobTypeTranscription, payload, models.PayloadSource)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue job"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"job_id": job.ID,
			"status": job.Status,
		})
	}
}

// GetJob handles GET /jobs/:id
func GetJob(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID, ok := parseJobID(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		job, err := deps.JobService.GetJob(ctx, jobID)
		if err != nil {
			if errors.Is(err, jobsService.ErrJobNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Job not found", "job_id": jobID})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve job"})
			return
		}

		c.JSON(http.StatusOK, jobResponse(job))
	}
}

// GetEvents handles GET /jobs/:id/events
func GetEvents(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		transcription, ok := lookupTranscription(c, deps)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"job_id": transcription.JobID,
			"bpm":    transcription.BPM,
			"events": transcription.Events,
		})
	}
}

// GetClusters handles GET /jobs/:id/clusters
func GetClusters(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		transcription, ok := lookupTranscription(c, deps)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"job_id":   transcription.JobID,
			"bpm":      transcription.BPM,
			"clusters": transcription.Clusters,
			"events":   transcription.Events,
		})
	}
}

// RelabelClusters handles PUT /jobs/:id/clusters: user cluster labels are
// propagated to events, the transcription is re-deduplicated, and the MIDI
// file regenerated. Returns the updated clusters and events.
func RelabelClusters(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID, ok := parseJobID(c)
		if !ok {
			return
		}

		var req relabelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid cluster_labels"})
			return
		}

		labels := make(map[int]string, len(req.ClusterLabels))
		for key, label := range req.ClusterLabels {
			id, err := strconv.Atoi(key)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid cluster id %q", key)})
				return
			}
			labels[id] = label
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		transcription, err := deps.TranscriptionService.RelabelClusters(ctx, jobID, labels)
		if err != nil {
			if errors.Is(err, transcriptions.ErrTranscriptionNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Transcription not found", "job_id": jobID})
				return
			}
			if errors.Is(err, transcriptions.ErrNoEvents) {
				c.JSON(http.StatusConflict, gin.H{"error": "Transcription has no events to relabel", "job_id": jobID})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to relabel clusters"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"job_id":   transcription.JobID,
			"bpm":      transcription.BPM,
			"clusters": transcription.Clusters,
			"events":   transcription.Events,
		})
	}
}

// GetMIDI handles GET /jobs/:id/midi, serving the rendered SMF
func GetMIDI(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		transcription, ok := lookupTranscription(c, deps)
		if !ok {
			return
		}

		if transcription.MIDIPath == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "MIDI not rendered", "job_id": transcription.JobID})
			return
		}
		if _, err := os.Stat(transcription.MIDIPath); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "MIDI file missing from storage", "job_id": transcription.JobID})
			return
		}

		c.Header("Content-Type", "audio/midi")
		c.FileAttachment(transcription.MIDIPath, fmt.Sprintf("transcription-%d.mid", transcription.JobID))
	}
}

// RetryJob handles POST /jobs/:id/retry for failed jobs
func RetryJob(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID, ok := parseJobID(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		job, err := deps.JobService.RetryFailedJob(ctx, jobID)
		if err != nil {
			if errors.Is(err, jobsService.ErrJobNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Job not found", "job_id": jobID})
				return
			}
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "job_id": jobID})
			return
		}

		c.JSON(http.StatusAccepted, jobResponse(job))
	}
}

// CancelJob handles DELETE /jobs/:id for jobs that have not finished
func CancelJob(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID, ok := parseJobID(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := deps.JobService.CancelJob(ctx, jobID); err != nil {
			if errors.Is(err, jobsService.ErrJobNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Job not found", "job_id": jobID})
				return
			}
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "job_id": jobID})
			return
		}

		c.JSON(http.StatusOK, gin.H{"job_id": jobID, "status": models.JobStatusCancelled})
	}
}

// lookupTranscription resolves :id to a stored transcription, writing the
// error response itself when the job is unknown or still running.
func lookupTranscription(c *gin.Context, deps *types.Dependencies) (*models.Transcription, bool) {
	jobID, ok := parseJobID(c)
	if !ok {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	transcription, err := deps.TranscriptionService.GetByJobID(ctx, jobID)
	if err == nil {
		return transcription, true
	}

	if !errors.Is(err, transcriptions.ErrTranscriptionNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve transcription"})
		return nil, false
	}

	// Distinguish an unknown job from one still in flight
	job, jobErr := deps.JobService.GetJob(ctx, jobID)
	if jobErr != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found", "job_id": jobID})
		return nil, false
	}

	c.JSON(http.StatusConflict, gin.H{
		"error":    "Transcription not ready",
		"job_id":   jobID,
		"status":   job.Status,
		"stage":    job.Stage,
		"progress": job.Progress,
	})
	return nil, false
}

func parseJobID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID"})
		return 0, false
	}
	return uint(id), true
}

func parseBPM(raw string) (float64, error) {
	if raw == "" {
		return defaultBPM, nil
	}
	bpm, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("bpm must be a number")
	}
	if bpm < minBPM || bpm > maxBPM {
		return 0, fmt.Errorf("bpm must be between %g and %g", minBPM, maxBPM)
	}
	return bpm, nil
}

func saveUpload(c *gin.Context, file *multipart.FileHeader, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return c.SaveUploadedFile(file, dest)
}

func jobResponse(job *models.Job) JobResponse {
	resp := JobResponse{
		ID:        job.ID,
		Status:    string(job.Status),
		Stage:     string(job.Stage),
		Progress:  job.Progress,
		Error:     job.Error,
		ErrorType: job.ErrorType,
		ErrorCode: job.ErrorCode,
		CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339),
	}
	if job.StartedAt != nil {
		started := job.StartedAt.UTC().Format(time.RFC3339)
		resp.StartedAt = &started
	}
	if job.CompletedAt != nil {
		done := job.CompletedAt.UTC().Format(time.RFC3339)
		resp.DoneAt = &done
	}
	return resp
}
