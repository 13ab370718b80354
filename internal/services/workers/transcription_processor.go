package workers

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/drumscribe/drumscribe-api/internal/dsp"
	"github.com/drumscribe/drumscribe-api/internal/models"
	"github.com/drumscribe/drumscribe-api/internal/services/jobs"
	"github.com/drumscribe/drumscribe-api/internal/services/separation"
	"github.com/drumscribe/drumscribe-api/internal/services/transcriptions"
	"github.com/drumscribe/drumscribe-api/internal/transcribe"
	"github.com/drumscribe/drumscribe-api/pkg/download"
	"github.com/drumscribe/drumscribe-api/pkg/ffmpeg"
	"github.com/drumscribe/drumscribe-api/pkg/midi"
	"github.com/spf13/viper"
)

const defaultBPM = 120.0

// TranscriptionProcessor executes one transcription job end to end:
// resolve the source audio, decode it, optionally separate stems, run the
// transcription engine, persist events and clusters, and render the MIDI.
type TranscriptionProcessor struct {
	jobService           jobs.Service
	transcriptionService transcriptions.TranscriptionService
	downloader           *download.Downloader
	decoder              *ffmpeg.FFmpeg
	separator            *separation.Separator
	engine               *transcribe.Engine
	dataDir              string
	mixSampleRate        int
	stemSampleRate       int
	useStemsDefault      bool
}

// NewTranscriptionProcessor creates a transcription processor wired from
// the processing, transcription, and storage config sections.
func NewTranscriptionProcessor(
	jobService jobs.Service,
	transcriptionService transcriptions.TranscriptionService,
) *TranscriptionProcessor {
	downloadOpts := download.DefaultOptions()
	if path := viper.GetString("processing.ytdlp_path"); path != "" {
		downloadOpts.YtDlpPath = path
	}
	if timeout := viper.GetDuration("processing.ytdlp_timeout"); timeout > 0 {
		downloadOpts.YtDlpTimeout = timeout
	}
	if maxSize := viper.GetInt64("server.max_upload_bytes"); maxSize > 0 {
		downloadOpts.MaxSize = maxSize
	}

	decoder := ffmpeg.New(
		viper.GetString("processing.ffmpeg_path"),
		viper.GetString("processing.ffprobe_path"),
		viper.GetDuration("processing.ffmpeg_timeout"),
	)

	separator := separation.New(
		viper.GetString("processing.demucs_path"),
		viper.GetString("processing.demucs_model"),
		viper.GetString("processing.drumsep_model"),
		viper.GetDuration("processing.demucs_timeout"),
	)

	dataDir := viper.GetString("storage.data_dir")
	if dataDir == "" {
		dataDir = "./data/jobs"
	}

	mixRate := viper.GetInt("processing.mix_sample_rate")
	if mixRate <= 0 {
		mixRate = 22050
	}
	stemRate := viper.GetInt("processing.stem_sample_rate")
	if stemRate <= 0 {
		stemRate = 44100
	}

	engine := transcribe.NewEngine()
	if seed := viper.GetInt64("transcription.cluster_seed"); seed != 0 {
		engine.Seed = seed
	}

	return &TranscriptionProcessor{
		jobService:           jobService,
		transcriptionService: transcriptionService,
		downloader:           download.NewDownloader(downloadOpts),
		decoder:              decoder,
		separator:            separator,
		engine:               engine,
		dataDir:              dataDir,
		mixSampleRate:        mixRate,
		stemSampleRate:       stemRate,
		useStemsDefault:      viper.GetBool("transcription.use_stems"),
	}
}

// CanProcess returns true if this processor can handle the job type
func (p *TranscriptionProcessor) CanProcess(jobType models.JobType) bool {
	return jobType == models.JobTypeTranscription
}

// ProcessJob processes a transcription job
func (p *TranscriptionProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	if !p.CanProcess(job.Type) {
		return fmt.Errorf("unsupported job type: %s", job.Type)
	}

	log.Printf("[DEBUG] Processing transcription job %d", job.ID)

	bpm := defaultBPM
	if v, ok := job.GetPayloadFloat(models.PayloadBPM); ok && v > 0 {
		bpm = v
	}

	useStems := p.useStemsDefault
	if v, ok := job.GetPayloadBool(models.PayloadUseStems); ok {
		useStems = v
	}

	jobDir := filepath.Join(p.dataDir, fmt.Sprintf("%d", job.ID))
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return models.NewSystemError("storage_unavailable",
			"failed to create job directory", err.Error(), err)
	}

	// Stage: downloading
	audioPath, sourceHash, err := p.resolveSource(ctx, job, jobDir)
	if err != nil {
		return err
	}

	var (
		events   []transcribe.DrumEvent
		clusters []transcribe.ClusterInfo
		duration float64
		rate     int
	)

	// Identical audio already transcribed under the same settings skips
	// the pipeline entirely and reuses the stored result.
	if prior := p.priorResult(ctx, sourceHash, bpm, useStems, job.ID); prior != nil {
		log.Printf("[DEBUG] Job %d reuses transcription of job %d (hash %.12s)",
			job.ID, prior.JobID, sourceHash)
		events, clusters = prior.Events, prior.Clusters
		duration, rate = prior.Duration, prior.SampleRate
	} else if useStems {
		events, clusters, duration, rate, err = p.transcribeStems(ctx, job, audioPath, jobDir, bpm)
	} else {
		events, clusters, duration, rate, err = p.transcribeMix(ctx, job, audioPath, bpm)
	}
	if err != nil {
		return err
	}

	// Stage: generating MIDI
	if err := p.updateStage(ctx, job.ID, models.StageGeneratingMIDI); err != nil {
		return err
	}

	midiPath := filepath.Join(jobDir, "output.mid")
	if err := midi.RenderFile(midiPath, events, bpm); err != nil {
		return models.NewProcessingError("midi_render_failed",
			"failed to render MIDI output", err.Error(), err)
	}

	transcription := &models.Transcription{
		JobID:      job.ID,
		SourceHash: sourceHash,
		BPM:        bpm,
		Duration:   duration,
		SampleRate: rate,
		StemMode:   useStems,
		Events:     events,
		Clusters:   clusters,
		MIDIPath:   midiPath,
	}

	if err := p.transcriptionService.SaveTranscription(ctx, transcription); err != nil {
		return models.NewSystemError("persist_failed",
			"failed to save transcription", err.Error(), err)
	}

	result := models.JobResult{
		"events":      len(events),
		"clusters":    len(clusters),
		"duration":    duration,
		"bpm":         bpm,
		"stem_mode":   useStems,
		"source_hash": sourceHash,
		"midi_path":   midiPath,
	}

	if err := p.jobService.CompleteJob(ctx, job.ID, result); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	log.Printf("[DEBUG] Job %d transcribed: %d events in %d clusters over %.2fs",
		job.ID, len(events), len(clusters), duration)

	return nil
}

// priorResult returns an earlier transcription of the same audio content
// under the same bpm and stem settings, or nil.
func (p *TranscriptionProcessor) priorResult(ctx context.Context, sourceHash string, bpm float64, useStems bool, jobID uint) *models.Transcription {
	if sourceHash == "" {
		return nil
	}
	prior, err := p.transcriptionService.GetBySourceHash(ctx, sourceHash)
	if err != nil || prior == nil || prior.JobID == jobID {
		return nil
	}
	if prior.BPM != bpm || prior.StemMode != useStems {
		return nil
	}
	return prior
}

// resolveSource places the original audio under the job directory and
// returns its path together with the SHA-256 of its content.
func (p *TranscriptionProcessor) resolveSource(ctx context.Context, job *models.Job, jobDir string) (string, string, error) {
	if err := p.updateStage(ctx, job.ID, models.StageDownloading); err != nil {
		return "", "", err
	}

	sourceType, _ := job.GetPayloadString(models.PayloadSourceType)
	source, ok := job.GetPayloadString(models.PayloadSource)
	if !ok || source == "" {
		return "", "", models.NewNotFoundError("missing_source",
			"job payload has no source", "", nil)
	}

	switch sourceType {
	case models.SourceTypeYouTube:
		result, err := p.downloader.FetchYouTube(ctx, source, jobDir)
		if err != nil {
			return "", "", models.NewDownloadError("youtube_fetch_failed",
				"failed to fetch YouTube audio", err.Error(), err)
		}
		return result.FilePath, result.SHA256, nil

	case models.SourceTypeURL:
		result, err := p.downloader.FetchURL(ctx, source, jobDir)
		if err != nil {
			return "", "", models.NewDownloadError("url_fetch_failed",
				"failed to download source audio", err.Error(), err)
		}
		return result.FilePath, result.SHA256, nil

	case models.SourceTypeUpload:
		// The API handler saved the upload as <job dir>/original.<ext>
		matches, err := filepath.Glob(filepath.Join(jobDir, "original.*"))
		if err != nil || len(matches) == 0 {
			return "", "", models.NewNotFoundError("upload_missing",
				"uploaded audio not found in job directory", jobDir, err)
		}
		hash, err := download.HashFile(matches[0])
		if err != nil {
			return "", "", models.NewSystemError("hash_failed",
				"failed to hash uploaded audio", err.Error(), err)
		}
		return matches[0], hash, nil

	default:
		return "", "", models.NewProcessingError("unknown_source_type",
			fmt.Sprintf("unknown source type %q", sourceType), "", nil)
	}
}

// transcribeMix runs the single-track path: decode the full mix at the
// clustering rate and let the engine detect, cluster, and label onsets.
func (p *TranscriptionProcessor) transcribeMix(ctx context.Context, job *models.Job, audioPath string, bpm float64) ([]transcribe.DrumEvent, []transcribe.ClusterInfo, float64, int, error) {
	if err := p.updateStage(ctx, job.ID, models.StageDetectingOnsets); err != nil {
		return nil, nil, 0, 0, err
	}

	buf, err := p.decoder.Decode(ctx, audioPath, p.mixSampleRate)
	if err != nil {
		return nil, nil, 0, 0, models.NewProcessingError("decode_failed",
			"failed to decode source audio", err.Error(), err)
	}

	if err := p.updateStage(ctx, job.ID, models.StageClassifying); err != nil {
		return nil, nil, 0, 0, err
	}

	events, clusters := p.engine.TranscribeMix(buf, bpm)
	return events, clusters, buf.Duration(), buf.Rate, nil
}

// transcribeStems runs the separated path: demucs isolates the drum track,
// drumsep splits it five ways, and each stem is transcribed with a profile
// tuned for its instrument.
func (p *TranscriptionProcessor) transcribeStems(ctx context.Context, job *models.Job, audioPath, jobDir string, bpm float64) ([]transcribe.DrumEvent, []transcribe.ClusterInfo, float64, int, error) {
	if err := p.updateStage(ctx, job.ID, models.StageSeparatingStems); err != nil {
		return nil, nil, 0, 0, err
	}

	drumsPath, _, err := p.separator.SeparateDrums(ctx, audioPath, jobDir)
	if err != nil {
		return nil, nil, 0, 0, models.NewProcessingError("separation_failed",
			"failed to isolate drum track", err.Error(), err)
	}

	stemPaths, err := p.separator.SeparateStems(ctx, drumsPath, jobDir)
	if err != nil {
		return nil, nil, 0, 0, models.NewProcessingError("stem_split_failed",
			"failed to split drum stems", err.Error(), err)
	}

	if err := p.updateStage(ctx, job.ID, models.StageDetectingOnsets); err != nil {
		return nil, nil, 0, 0, err
	}

	stems := make(map[string]dsp.Buffer, len(stemPaths))
	var duration float64
	for name, path := range stemPaths {
		buf, err := p.decoder.Decode(ctx, path, p.stemSampleRate)
		if err != nil {
			return nil, nil, 0, 0, models.NewProcessingError("stem_decode_failed",
				fmt.Sprintf("failed to decode %s stem", name), err.Error(), err)
		}
		stems[name] = buf
		if d := buf.Duration(); d > duration {
			duration = d
		}
	}

	if err := p.updateStage(ctx, job.ID, models.StageClassifying); err != nil {
		return nil, nil, 0, 0, err
	}

	events, clusters := p.engine.TranscribeStems(stems, bpm)
	return events, clusters, duration, p.stemSampleRate, nil
}

// updateStage records the stage transition; a vanished job aborts the run.
func (p *TranscriptionProcessor) updateStage(ctx context.Context, jobID uint, stage models.JobStage) error {
	if err := p.jobService.UpdateStage(ctx, jobID, stage); err != nil {
		log.Printf("[ERROR] Failed to update job %d stage to %s: %v", jobID, stage, err)
		return models.NewSystemError("stage_update_failed",
			fmt.Sprintf("failed to enter stage %s", stage), err.Error(), err)
	}
	return nil
}
