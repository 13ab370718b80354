package cmd

import (
	"fmt"
	"os"

	"github.com/drumscribe/drumscribe-api/pkg/config"
	"github.com/spf13/cobra"
)

// rootCmd is the process-wide command tree used by Execute.
var rootCmd = NewRootCmd()

// Execute runs the root command. This is called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds a complete command tree. Each call constructs fresh
// commands so flag state never leaks between uses.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drumscribe-api",
		Short: "Drumscribe API server",
		Long: `Drumscribe API - drum transcription as a service

Upload a drum recording (or point at a YouTube video) and get back a
General MIDI drum track: onsets are detected, clustered by timbre,
auto-labeled, pattern-corrected, and rendered to an SMF file.

Features:
  • Multipart upload and YouTube ingestion
  • Optional demucs/drumsep stem separation
  • Timbre clustering with reviewable cluster labels
  • MIDI export on channel 10`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd(), newMigrateCmd(), newVersionCmd())
	return cmd
}

func init() {
	cobra.OnInitialize(loadConfig)
}

// loadConfig loads the configuration when a command needs it.
// Version and help never touch config, so they skip it.
func loadConfig() {
	cmd, _, _ := rootCmd.Find(os.Args[1:])
	if cmd != nil && (cmd.Name() == "version" || cmd.Name() == "help") {
		return
	}

	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}
