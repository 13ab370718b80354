package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewDownloader(t *testing.T) {
	options := DefaultOptions()
	downloader := NewDownloader(options)

	if downloader == nil {
		t.Fatal("NewDownloader returned nil")
	}

	if downloader.client == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if downloader.options.Timeout != options.Timeout {
		t.Errorf("Expected timeout %v, got %v", options.Timeout, downloader.options.Timeout)
	}
}

func TestDefaultOptions(t *testing.T) {
	options := DefaultOptions()

	if options.MaxSize != int64(500*1024*1024) {
		t.Errorf("Expected MaxSize 500MB, got %v", options.MaxSize)
	}
	if options.Timeout != 5*time.Minute {
		t.Errorf("Expected Timeout 5m, got %v", options.Timeout)
	}
	if options.YtDlpPath != "yt-dlp" {
		t.Errorf("Expected yt-dlp default path, got %v", options.YtDlpPath)
	}
}

func TestFetchURL_Success(t *testing.T) {
	audioData := strings.Repeat("audio-data", 128) // 1280 bytes
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(audioData))
	}))
	defer server.Close()

	downloader := NewDownloader(DefaultOptions())
	destDir := t.TempDir()

	result, err := downloader.FetchURL(context.Background(), server.URL+"/track.mp3", destDir)
	if err != nil {
		t.Fatalf("Expected successful download, got error: %v", err)
	}

	if result.ContentType != "audio/mpeg" {
		t.Errorf("Expected content type 'audio/mpeg', got %v", result.ContentType)
	}
	if result.ContentLength != 1280 {
		t.Errorf("Expected content length 1280, got %v", result.ContentLength)
	}
	if filepath.Base(result.FilePath) != "original.mp3" {
		t.Errorf("Expected original.mp3, got %v", filepath.Base(result.FilePath))
	}

	sum := sha256.Sum256([]byte(audioData))
	if result.SHA256 != hex.EncodeToString(sum[:]) {
		t.Errorf("SHA-256 mismatch: got %v", result.SHA256)
	}

	if _, err := os.Stat(result.FilePath); os.IsNotExist(err) {
		t.Error("Downloaded file does not exist")
	}
}

func TestFetchURL_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Forbidden"))
	}))
	defer server.Close()

	downloader := NewDownloader(DefaultOptions())

	_, err := downloader.FetchURL(context.Background(), server.URL, t.TempDir())
	if err == nil {
		t.Fatal("Expected error for 403 response, got nil")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("Expected status code in error, got: %v", err)
	}
}

func TestFetchURL_InvalidContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>not audio</html>"))
	}))
	defer server.Close()

	downloader := NewDownloader(DefaultOptions())

	_, err := downloader.FetchURL(context.Background(), server.URL, t.TempDir())
	if err == nil {
		t.Fatal("Expected error for non-audio content type, got nil")
	}
}

func TestFetchURL_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("Content-Length", "2048")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	options := DefaultOptions()
	options.MaxSize = 1024
	downloader := NewDownloader(options)

	_, err := downloader.FetchURL(context.Background(), server.URL, t.TempDir())
	if err == nil {
		t.Fatal("Expected error for oversized file, got nil")
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.bin")
	content := []byte("drum loop bytes")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}

	sum := sha256.Sum256(content)
	if got != hex.EncodeToString(sum[:]) {
		t.Errorf("HashFile() = %v, expected digest of content", got)
	}
}

func TestDestFileName(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://example.com/track.wav", "original.wav"},
		{"https://example.com/track.WAV?token=abc", "original.wav"},
		{"https://example.com/track", "original.mp3"},
		{"https://example.com/track.exe", "original.mp3"},
	}

	for _, tt := range tests {
		got := filepath.Base(destFileName("/data/1", tt.url))
		if got != tt.expected {
			t.Errorf("destFileName(%q) = %q, expected %q", tt.url, got, tt.expected)
		}
	}
}

func TestIsAudioContentType(t *testing.T) {
	tests := []struct {
		contentType string
		expected    bool
	}{
		{"audio/mpeg", true},
		{"audio/wav", true},
		{"video/webm", true},
		{"application/octet-stream", true},
		{"text/html", false},
		{"application/json", false},
	}

	for _, tt := range tests {
		if got := isAudioContentType(tt.contentType); got != tt.expected {
			t.Errorf("isAudioContentType(%q) = %v, expected %v", tt.contentType, got, tt.expected)
		}
	}
}
