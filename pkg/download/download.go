package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Options configures source fetching.
type Options struct {
	MaxSize      int64         // Maximum file size in bytes (0 = no limit)
	Timeout      time.Duration // HTTP download timeout
	UserAgent    string        // User agent string
	YtDlpPath    string        // yt-dlp binary for YouTube sources
	YtDlpTimeout time.Duration // yt-dlp timeout
}

// DefaultOptions returns default download options
func DefaultOptions() Options {
	return Options{
		MaxSize:      500 * 1024 * 1024, // 500MB default max
		Timeout:      5 * time.Minute,
		UserAgent:    "DrumscribeAPI/1.0",
		YtDlpPath:    "yt-dlp",
		YtDlpTimeout: 10 * time.Minute,
	}
}

// Result contains information about a fetched source file.
type Result struct {
	FilePath      string // Path to the fetched file
	ContentType   string // Content-Type from response, if HTTP
	ContentLength int64  // Size in bytes
	SHA256        string // Hex digest of the file contents
}

// Downloader fetches source audio: direct HTTP URLs and YouTube links
// via yt-dlp. Fetched files land in the caller-supplied directory so the
// per-job layout stays in one place.
type Downloader struct {
	client  *http.Client
	options Options
}

// NewDownloader creates a new downloader with the given options
func NewDownloader(options Options) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: options.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				DisableCompression:  true, // Don't compress audio
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		options: options,
	}
}

// FetchURL downloads a direct audio URL into destDir as
// original.<ext>.
func (d *Downloader) FetchURL(ctx context.Context, url, destDir string) (*Result, error) {
	log.Printf("[DEBUG] Starting download from %s", url)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", d.options.UserAgent)
	req.Header.Set("Accept", "audio/*,*/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isAudioContentType(contentType) {
		return nil, fmt.Errorf("invalid content type: %s", contentType)
	}

	if d.options.MaxSize > 0 && resp.ContentLength > d.options.MaxSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", resp.ContentLength, d.options.MaxSize)
	}

	destPath := destFileName(destDir, url)
	file, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	written, sum, err := d.copyHashed(resp.Body, file)
	file.Close()
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("failed to download: %w", err)
	}

	log.Printf("[DEBUG] Downloaded %d bytes to %s", written, destPath)

	return &Result{
		FilePath:      destPath,
		ContentType:   contentType,
		ContentLength: written,
		SHA256:        sum,
	}, nil
}

// copyHashed copies src to dst while computing the SHA-256 digest,
// honoring the configured size limit.
func (d *Downloader) copyHashed(src io.Reader, dst io.Writer) (int64, string, error) {
	if d.options.MaxSize > 0 {
		src = &io.LimitedReader{R: src, N: d.options.MaxSize}
	}

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(dst, hasher), src)
	if err != nil {
		return written, "", err
	}
	return written, hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashFile returns the hex SHA-256 digest of a file on disk. Used for
// uploads, which skip the network path.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// destFileName builds the destination path, keeping a recognizable audio
// extension from the URL when there is one.
func destFileName(destDir, url string) string {
	ext := "mp3" // default
	if parts := strings.Split(url, "."); len(parts) > 1 {
		lastPart := parts[len(parts)-1]
		// Remove query params if present
		if idx := strings.Index(lastPart, "?"); idx > 0 {
			lastPart = lastPart[:idx]
		}
		if isValidAudioExtension(lastPart) {
			ext = strings.ToLower(lastPart)
		}
	}
	return fmt.Sprintf("%s/original.%s", destDir, ext)
}

// isAudioContentType checks if content type is audio
func isAudioContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.HasPrefix(contentType, "audio/") ||
		strings.HasPrefix(contentType, "video/") || // YouTube-style containers carry audio
		contentType == "application/octet-stream" // Some servers use this for audio
}

// isValidAudioExtension checks if extension is valid for audio files
func isValidAudioExtension(ext string) bool {
	ext = strings.ToLower(ext)
	validExts := []string{"mp3", "m4a", "aac", "ogg", "wav", "flac", "opus", "webm"}
	for _, valid := range validExts {
		if ext == valid {
			return true
		}
	}
	return false
}
