package separation

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	s := New("", "", "", 0)

	if s.demucsPath != "demucs" {
		t.Errorf("demucsPath = %q, want demucs", s.demucsPath)
	}
	if s.demucsModel != "htdemucs" {
		t.Errorf("demucsModel = %q, want htdemucs", s.demucsModel)
	}
	if s.drumsepModel != "drumsep" {
		t.Errorf("drumsepModel = %q, want drumsep", s.drumsepModel)
	}
	if s.timeout != 20*time.Minute {
		t.Errorf("timeout = %v, want 20m", s.timeout)
	}
}

func TestValidateBinaryMissing(t *testing.T) {
	s := New("definitely-not-a-real-binary-xyz", "", "", time.Minute)

	if err := s.ValidateBinary(); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestCanonicalStem(t *testing.T) {
	tests := []struct {
		file string
		want string
		ok   bool
	}{
		{"kick.wav", "kick", true},
		{"bombo.wav", "kick", true},
		{"snare.wav", "snare", true},
		{"redoblante.wav", "snare", true},
		{"toms.wav", "toms", true},
		{"HiHat.wav", "hh", true},
		{"platillos.wav", "cymbals", true},
		{"crash.wav", "cymbals", true},
		{"vocals.wav", "", false},
		{"drums.wav", "", false},
	}

	for _, tt := range tests {
		got, ok := CanonicalStem(tt.file)
		if ok != tt.ok || got != tt.want {
			t.Errorf("CanonicalStem(%q) = (%q, %t), want (%q, %t)", tt.file, got, ok, tt.want, tt.ok)
		}
	}
}

func TestOutputDirFallback(t *testing.T) {
	workDir := t.TempDir()
	trackDir := filepath.Join(workDir, "htdemucs", "renamed-track")
	if err := os.MkdirAll(trackDir, 0o755); err != nil {
		t.Fatal(err)
	}

	s := New("", "", "", 0)
	got, err := s.outputDir(workDir, "htdemucs", "/audio/original.mp3")
	if err != nil {
		t.Fatalf("outputDir: %v", err)
	}
	if got != trackDir {
		t.Errorf("outputDir = %q, want %q", got, trackDir)
	}
}

func TestOutputDirExactMatch(t *testing.T) {
	workDir := t.TempDir()
	trackDir := filepath.Join(workDir, "drumsep", "drums")
	if err := os.MkdirAll(trackDir, 0o755); err != nil {
		t.Fatal(err)
	}

	s := New("", "", "", 0)
	got, err := s.outputDir(workDir, "drumsep", "/jobs/1/drums.wav")
	if err != nil {
		t.Fatalf("outputDir: %v", err)
	}
	if got != trackDir {
		t.Errorf("outputDir = %q, want %q", got, trackDir)
	}
}

func TestOutputDirMissing(t *testing.T) {
	s := New("", "", "", 0)
	if _, err := s.outputDir(t.TempDir(), "htdemucs", "/audio/a.mp3"); err == nil {
		t.Fatal("expected error for missing output")
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.wav")
	dest := filepath.Join(dir, "dest.wav")

	if err := os.WriteFile(src, []byte("pcm"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := moveFile(src, dest); err != nil {
		t.Fatalf("moveFile: %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source still exists after move")
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading dest: %v", err)
	}
	if string(data) != "pcm" {
		t.Errorf("dest content = %q", data)
	}
}
