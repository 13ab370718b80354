package separation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Separation errors
var (
	ErrSeparatorNotFound = errors.New("demucs binary not found")
	ErrStemMissing       = errors.New("expected stem missing from separator output")
)

// StemNames are the canonical drum stems produced by the five-way split,
// in the order the downstream engine consumes them.
var StemNames = []string{"kick", "snare", "toms", "hh", "cymbals"}

// stemAliases maps separator output base names to canonical stem names.
// Drum separation models ship with inconsistent naming, so each canonical
// stem accepts the spellings seen in the wild.
var stemAliases = map[string]string{
	"kick":       "kick",
	"bombo":      "kick",
	"snare":      "snare",
	"redoblante": "snare",
	"toms":       "toms",
	"tom":        "toms",
	"hh":         "hh",
	"hihat":      "hh",
	"hats":       "hh",
	"cymbals":    "cymbals",
	"platillos":  "cymbals",
	"ride":       "cymbals",
	"crash":      "cymbals",
}

// Separator shells out to demucs for source separation. Two passes are
// supported: a two-stem split of the full mix into drums/other, and a
// five-stem split of the isolated drum track.
type Separator struct {
	demucsPath   string
	demucsModel  string
	drumsepModel string
	timeout      time.Duration
}

// New creates a separator with explicit binary and model names.
func New(demucsPath, demucsModel, drumsepModel string, timeout time.Duration) *Separator {
	if demucsPath == "" {
		demucsPath = "demucs"
	}
	if demucsModel == "" {
		demucsModel = "htdemucs"
	}
	if drumsepModel == "" {
		drumsepModel = "drumsep"
	}
	if timeout == 0 {
		timeout = 20 * time.Minute
	}
	return &Separator{
		demucsPath:   demucsPath,
		demucsModel:  demucsModel,
		drumsepModel: drumsepModel,
		timeout:      timeout,
	}
}

// ValidateBinary checks that the demucs executable is on PATH.
func (s *Separator) ValidateBinary() error {
	if _, err := exec.LookPath(s.demucsPath); err != nil {
		return fmt.Errorf("%w: %s", ErrSeparatorNotFound, s.demucsPath)
	}
	return nil
}

// SeparateDrums splits the full mix into an isolated drum track and the
// residual. The results are written to destDir as drums.wav and other.wav.
func (s *Separator) SeparateDrums(ctx context.Context, inputFile, destDir string) (drumsPath, otherPath string, err error) {
	workDir, err := os.MkdirTemp("", "demucs-*")
	if err != nil {
		return "", "", fmt.Errorf("creating separation work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	args := []string{
		"--two-stems", "drums",
		"-n", s.demucsModel,
		"-o", workDir,
		inputFile,
	}

	if err := s.run(ctx, args, inputFile); err != nil {
		return "", "", err
	}

	outDir, err := s.outputDir(workDir, s.demucsModel, inputFile)
	if err != nil {
		return "", "", err
	}

	drumsPath = filepath.Join(destDir, "drums.wav")
	if err := moveFile(filepath.Join(outDir, "drums.wav"), drumsPath); err != nil {
		return "", "", fmt.Errorf("%w: drums", ErrStemMissing)
	}

	otherPath = filepath.Join(destDir, "other.wav")
	if err := moveFile(filepath.Join(outDir, "no_drums.wav"), otherPath); err != nil {
		return "", "", fmt.Errorf("%w: other", ErrStemMissing)
	}

	log.Printf("[DEBUG] Separated drums from %s into %s", filepath.Base(inputFile), destDir)

	return drumsPath, otherPath, nil
}

// SeparateStems splits an isolated drum track into the five canonical drum
// stems. Results land in destDir/stems/<name>.wav keyed by canonical name.
// Stems the model does not emit are simply absent from the returned map.
func (s *Separator) SeparateStems(ctx context.Context, drumsFile, destDir string) (map[string]string, error) {
	workDir, err := os.MkdirTemp("", "drumsep-*")
	if err != nil {
		return nil, fmt.Errorf("creating separation work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	args := []string{
		"-n", s.drumsepModel,
		"-o", workDir,
		drumsFile,
	}

	if err := s.run(ctx, args, drumsFile); err != nil {
		return nil, err
	}

	outDir, err := s.outputDir(workDir, s.drumsepModel, drumsFile)
	if err != nil {
		return nil, err
	}

	stemsDir := filepath.Join(destDir, "stems")
	if err := os.MkdirAll(stemsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating stems dir: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("reading separator output: %w", err)
	}

	stems := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		canonical, ok := CanonicalStem(entry.Name())
		if !ok {
			log.Printf("[DEBUG] Ignoring unrecognized separator output %s", entry.Name())
			continue
		}
		dest := filepath.Join(stemsDir, canonical+".wav")
		if err := moveFile(filepath.Join(outDir, entry.Name()), dest); err != nil {
			return nil, fmt.Errorf("collecting stem %s: %w", canonical, err)
		}
		stems[canonical] = dest
	}

	if len(stems) == 0 {
		return nil, fmt.Errorf("%w: no recognizable stems in %s", ErrStemMissing, outDir)
	}

	log.Printf("[DEBUG] Split %s into %d drum stems", filepath.Base(drumsFile), len(stems))

	return stems, nil
}

// CanonicalStem resolves a separator output file name to one of StemNames.
func CanonicalStem(fileName string) (string, bool) {
	base := strings.ToLower(strings.TrimSuffix(fileName, filepath.Ext(fileName)))
	canonical, ok := stemAliases[base]
	return canonical, ok
}

func (s *Separator) run(ctx context.Context, args []string, inputFile string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.demucsPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	log.Printf("[DEBUG] Running %s %s", s.demucsPath, strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("separating %s: timed out after %s", filepath.Base(inputFile), s.timeout)
		}
		return fmt.Errorf("separating %s: %w (stderr: %s)", filepath.Base(inputFile), err, strings.TrimSpace(stderr.String()))
	}

	return nil
}

// outputDir resolves demucs's <out>/<model>/<track> output directory.
func (s *Separator) outputDir(workDir, model, inputFile string) (string, error) {
	track := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
	dir := filepath.Join(workDir, model, track)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, nil
	}

	// Some model checkpoints report a different directory name; fall back
	// to the only track directory under the model output.
	modelDir := filepath.Join(workDir, model)
	entries, err := os.ReadDir(modelDir)
	if err != nil {
		return "", fmt.Errorf("separator produced no output under %s: %w", modelDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			return filepath.Join(modelDir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("separator produced no track directory under %s", modelDir)
}

// moveFile renames src to dest, copying across filesystems when rename fails.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dest)
		return err
	}

	return os.Remove(src)
}
