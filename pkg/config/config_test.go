package config

import (
	"os"
	"testing"
)

func TestInitDefaults(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if GetInt("server.port") != 8080 {
		t.Errorf("Expected default server.port to be 8080, got %d", GetInt("server.port"))
	}
	if GetInt("processing.mix_sample_rate") != 22050 {
		t.Errorf("Expected default mix sample rate 22050, got %d", GetInt("processing.mix_sample_rate"))
	}
	if GetString("processing.ffmpeg_path") != "ffmpeg" {
		t.Errorf("Expected default ffmpeg path, got %q", GetString("processing.ffmpeg_path"))
	}
	if !GetBool("rate_limiting.enabled") {
		t.Error("Expected rate limiting enabled by default")
	}
}

func TestEnvironmentVariableOverride(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	// AutomaticEnv resolves at read time, so overrides apply after Init.
	os.Setenv("DRUMSCRIBE_SERVER_PORT", "9090")
	defer os.Unsetenv("DRUMSCRIBE_SERVER_PORT")

	if GetInt("server.port") != 9090 {
		t.Errorf("Expected server.port to be overridden to 9090, got %d", GetInt("server.port"))
	}
}

func TestGetConfig(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	cfg, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}

	if cfg.Processing.Workers <= 0 {
		t.Errorf("Expected positive worker count, got %d", cfg.Processing.Workers)
	}
	if cfg.Transcription.ClusterSeed != 42 {
		t.Errorf("Expected default cluster seed 42, got %d", cfg.Transcription.ClusterSeed)
	}
	if cfg.Transcription.SnapTolerance != 0.15 {
		t.Errorf("Expected default snap tolerance 0.15, got %v", cfg.Transcription.SnapTolerance)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				Server: ServerConfig{
					Host: "localhost",
					Port: 8080,
				},
				Database: DatabaseConfig{
					Path: "./data/drumscribe.db",
				},
			},
			wantErr: false,
		},
		{
			name: "invalid port",
			config: &Config{
				Server: ServerConfig{
					Host: "localhost",
					Port: 0,
				},
			},
			wantErr: true,
		},
		{
			name: "empty database path (allowed)",
			config: &Config{
				Server: ServerConfig{
					Host: "localhost",
					Port: 8080,
				},
				Database: DatabaseConfig{
					Path: "",
				},
			},
			wantErr: false,
		},
		{
			name: "snap tolerance out of range",
			config: &Config{
				Server: ServerConfig{
					Host: "localhost",
					Port: 8080,
				},
				Transcription: TranscriptionConfig{
					SnapTolerance: 1.5,
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_AutoCorrectsWorkers(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Host: "localhost", Port: 8080},
		Processing: ProcessingConfig{
			Workers: 0,
		},
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Processing.Workers != 2 {
		t.Errorf("Expected worker count corrected to 2, got %d", cfg.Processing.Workers)
	}
}
