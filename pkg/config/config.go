package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		// Set default values
		setDefaults()

		// Set up environment variable reading for overrides
		viper.SetEnvPrefix("DRUMSCRIBE")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		// Load config from fixed location (cleaned for safety)
		configPath := filepath.Clean("./config/settings.yaml")
		viper.SetConfigFile(configPath)

		// Try to read the config file
		if err := viper.ReadInConfig(); err != nil {
			// If the config file doesn't exist, just use defaults and env vars
			if !os.IsNotExist(err) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
			// Config file doesn't exist, which is fine - we'll use defaults
		}

		// Validate the configuration
		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// Get returns a config value by key using Viper directly
func Get(key string) any {
	return viper.Get(key)
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		fmt.Println("Warning: No database path configured")
	}

	// Auto-correct invalid worker count
	if viper.GetInt("processing.workers") <= 0 {
		viper.Set("processing.workers", 2)
	}

	// Sample rates outside sane bounds are a config mistake, not a knob
	if viper.GetInt("processing.mix_sample_rate") <= 0 {
		viper.Set("processing.mix_sample_rate", 22050)
	}
	if viper.GetInt("processing.stem_sample_rate") <= 0 {
		viper.Set("processing.stem_sample_rate", 44100)
	}

	tolerance := viper.GetFloat64("transcription.snap_tolerance")
	if tolerance < 0 || tolerance > 1 {
		return fmt.Errorf("invalid snap tolerance: %v (must be within [0, 1])", tolerance)
	}

	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Processing.Workers <= 0 {
		c.Processing.Workers = 2
	}

	if c.Transcription.SnapTolerance < 0 || c.Transcription.SnapTolerance > 1 {
		return fmt.Errorf("invalid snap tolerance: %v (must be within [0, 1])", c.Transcription.SnapTolerance)
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Environment defaults
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)
	viper.SetDefault("server.max_upload_bytes", int64(104857600)) // 100 MB uploads

	// Database defaults
	viper.SetDefault("database.path", "./data/drumscribe.db")
	viper.SetDefault("database.max_connections", 10)
	viper.SetDefault("database.max_idle_connections", 5)
	viper.SetDefault("database.connection_max_lifetime", 30*time.Minute)
	viper.SetDefault("database.verbose", false)

	// Processing defaults
	viper.SetDefault("processing.workers", 2)
	viper.SetDefault("processing.job_timeout", 30*time.Minute)
	viper.SetDefault("processing.retry_attempts", 3)
	viper.SetDefault("processing.retry_delay", 5*time.Second)
	viper.SetDefault("processing.ffmpeg_path", "ffmpeg")
	viper.SetDefault("processing.ffprobe_path", "ffprobe")
	viper.SetDefault("processing.ffmpeg_timeout", 5*time.Minute)
	viper.SetDefault("processing.ytdlp_path", "yt-dlp")
	viper.SetDefault("processing.ytdlp_timeout", 10*time.Minute)
	viper.SetDefault("processing.demucs_path", "demucs")
	viper.SetDefault("processing.demucs_model", "htdemucs")
	viper.SetDefault("processing.drumsep_model", "drumsep")
	viper.SetDefault("processing.demucs_timeout", 20*time.Minute)
	viper.SetDefault("processing.mix_sample_rate", 22050)
	viper.SetDefault("processing.stem_sample_rate", 44100)

	// Transcription defaults
	viper.SetDefault("transcription.cluster_seed", int64(42))
	viper.SetDefault("transcription.snap_tolerance", 0.15)
	viper.SetDefault("transcription.use_stems", false)

	// Storage defaults
	viper.SetDefault("storage.data_dir", "./data/jobs")
	viper.SetDefault("storage.max_job_age", 7*24*time.Hour)
	viper.SetDefault("storage.cleanup_interval", 1*time.Hour)

	// Rate limiting defaults
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.endpoints", map[string]int{
		"jobs":    10,
		"midi":    60,
		"default": 120,
	})

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.cors_origins", []string{"*"})
	viper.SetDefault("security.cors_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors_headers", []string{"Content-Type", "Authorization"})
	viper.SetDefault("security.enable_recovery", true)
}
