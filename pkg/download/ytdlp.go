package download

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// FetchYouTube downloads the best audio track of a YouTube video into
// destDir as original.<ext> using yt-dlp. The container is whatever
// YouTube serves (usually webm or m4a); decoding normalizes it later.
func (d *Downloader) FetchYouTube(ctx context.Context, url, destDir string) (*Result, error) {
	log.Printf("[DEBUG] Starting yt-dlp fetch from %s", url)

	if d.options.YtDlpTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.options.YtDlpTimeout)
		defer cancel()
	}

	args := []string{
		"-f", "bestaudio/best",
		"--no-playlist",
		"--no-progress",
		"-o", filepath.Join(destDir, "original.%(ext)s"),
		url,
	}

	cmd := exec.CommandContext(ctx, d.options.YtDlpPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("yt-dlp failed: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(destDir, "original.*"))
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("yt-dlp produced no output file in %s", destDir)
	}
	path := matches[0]

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat downloaded file: %w", err)
	}

	sum, err := HashFile(path)
	if err != nil {
		return nil, fmt.Errorf("hash downloaded file: %w", err)
	}

	log.Printf("[DEBUG] yt-dlp fetched %d bytes to %s", info.Size(), path)

	return &Result{
		FilePath:      path,
		ContentLength: info.Size(),
		SHA256:        sum,
	}, nil
}
