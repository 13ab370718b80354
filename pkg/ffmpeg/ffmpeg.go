package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"time"

	"github.com/drumscribe/drumscribe-api/internal/dsp"
)

// FFmpeg wraps ffmpeg and ffprobe functionality
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
}

// New creates a new FFmpeg instance
func New(ffmpegPath, ffprobePath string, timeout time.Duration) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		timeout:     timeout,
	}
}

// ValidateBinaries checks if ffmpeg and ffprobe are available
func (f *FFmpeg) ValidateBinaries() error {
	// Check ffmpeg
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, f.ffmpegPath)
	}

	// Check ffprobe
	if _, err := exec.LookPath(f.ffprobePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFprobeNotFound, f.ffprobePath)
	}

	return nil
}

// Decode converts any supported container to mono f32le PCM at the given
// sample rate and returns the samples as an analysis buffer.
func (f *FFmpeg) Decode(ctx context.Context, inputFile string, sampleRate int) (dsp.Buffer, error) {
	if err := f.ValidateAudioFile(ctx, inputFile); err != nil {
		return dsp.Buffer{}, err
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	args := []string{
		"-i", inputFile,
		"-f", "f32le", // 32-bit float little-endian
		"-ac", "1", // Mix down to mono
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-v", "error",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return dsp.Buffer{}, NewProcessingError("pcm_decode", inputFile, err, "")
	}
	if err := cmd.Start(); err != nil {
		return dsp.Buffer{}, NewProcessingError("pcm_decode", inputFile, err, stderr.String())
	}

	samples, readErr := readFloat32Samples(stdout)

	if err := cmd.Wait(); err != nil {
		return dsp.Buffer{}, NewProcessingError("pcm_decode", inputFile, err, stderr.String())
	}
	if readErr != nil {
		return dsp.Buffer{}, NewProcessingError("pcm_read", inputFile, readErr, "")
	}
	if len(samples) == 0 {
		return dsp.Buffer{}, NewProcessingError("pcm_decode", inputFile, ErrInvalidAudioFile, stderr.String())
	}

	return dsp.Buffer{Samples: samples, Rate: sampleRate}, nil
}

// DecodeFile reads an already-decoded raw f32le PCM file, the format the
// separation tools are asked to emit.
func (f *FFmpeg) DecodeFile(path string, sampleRate int) (dsp.Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return dsp.Buffer{}, err
	}
	defer file.Close()

	samples, err := readFloat32Samples(file)
	if err != nil {
		return dsp.Buffer{}, NewProcessingError("pcm_read", path, err, "")
	}
	return dsp.Buffer{Samples: samples, Rate: sampleRate}, nil
}

// readFloat32Samples reads a stream of little-endian float32 samples into
// a float64 slice. A trailing partial sample is discarded.
func readFloat32Samples(r io.Reader) ([]float64, error) {
	br := bufio.NewReaderSize(r, 1<<16)
	var samples []float64
	var raw [4]byte

	for {
		_, err := io.ReadFull(br, raw[:])
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return samples, nil
		}
		if err != nil {
			return nil, err
		}
		bits := binary.LittleEndian.Uint32(raw[:])
		samples = append(samples, float64(math.Float32frombits(bits)))
	}
}
