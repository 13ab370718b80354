package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Processing    ProcessingConfig    `mapstructure:"processing"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Storage       StorageConfig       `mapstructure:"storage"`
	RateLimiting  RateLimitConfig     `mapstructure:"rate_limiting"`
	Security      SecurityConfig      `mapstructure:"security"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path                  string        `mapstructure:"path"`
	MaxConnections        int           `mapstructure:"max_connections"`
	MaxIdleConnections    int           `mapstructure:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `mapstructure:"connection_max_lifetime"`
	Verbose               bool          `mapstructure:"verbose"`
}

// ProcessingConfig contains the audio pipeline settings: external tool
// paths, timeouts, sample rates, and the worker pool size.
type ProcessingConfig struct {
	Workers        int           `mapstructure:"workers"`
	JobTimeout     time.Duration `mapstructure:"job_timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	FFmpegPath     string        `mapstructure:"ffmpeg_path"`
	FFprobePath    string        `mapstructure:"ffprobe_path"`
	FFmpegTimeout  time.Duration `mapstructure:"ffmpeg_timeout"`
	YtDlpPath      string        `mapstructure:"ytdlp_path"`
	YtDlpTimeout   time.Duration `mapstructure:"ytdlp_timeout"`
	DemucsPath     string        `mapstructure:"demucs_path"`
	DemucsModel    string        `mapstructure:"demucs_model"`
	DrumsepModel   string        `mapstructure:"drumsep_model"`
	DemucsTimeout  time.Duration `mapstructure:"demucs_timeout"`
	MixSampleRate  int           `mapstructure:"mix_sample_rate"`
	StemSampleRate int           `mapstructure:"stem_sample_rate"`
}

// TranscriptionConfig contains core engine settings.
type TranscriptionConfig struct {
	ClusterSeed   int64   `mapstructure:"cluster_seed"`
	SnapTolerance float64 `mapstructure:"snap_tolerance"`
	UseStems      bool    `mapstructure:"use_stems"`
}

// StorageConfig contains storage settings
type StorageConfig struct {
	DataDir         string        `mapstructure:"data_dir"`
	MaxJobAge       time.Duration `mapstructure:"max_job_age"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig contains rate limiting settings
type RateLimitConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	Endpoints map[string]int `mapstructure:"endpoints"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	EnableCORS     bool     `mapstructure:"enable_cors"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	CORSMethods    []string `mapstructure:"cors_methods"`
	CORSHeaders    []string `mapstructure:"cors_headers"`
	EnableRecovery bool     `mapstructure:"enable_recovery"`
}
