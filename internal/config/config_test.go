package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"quill/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("QUILL_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWorkspace := filepath.Join(tempHome, ".local", "share", "quill", "workspace")
	if cfg.Paths.WorkspaceDir != wantWorkspace {
		t.Fatalf("unexpected workspace dir: got %q want %q", cfg.Paths.WorkspaceDir, wantWorkspace)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "captions") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Transcription.APIKey != "test-key" {
		t.Fatalf("expected API key from env, got %q", cfg.Transcription.APIKey)
	}
	if cfg.Transcription.BaseURL != config.Default().Transcription.BaseURL {
		t.Fatalf("unexpected base url: %q", cfg.Transcription.BaseURL)
	}
	if cfg.Transcription.Model != "whisper-1" {
		t.Fatalf("unexpected default model: %q", cfg.Transcription.Model)
	}
	if !cfg.Scrub.Enabled {
		t.Fatal("expected scrub enabled by default")
	}
	if cfg.Captioner.DebugArtifacts {
		t.Fatal("expected debug artifacts disabled by default")
	}
	if cfg.Captioner.MinGapForRepairSeconds != 5.0 {
		t.Fatalf("unexpected repair gap default: %v", cfg.Captioner.MinGapForRepairSeconds)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.WorkspaceDir, cfg.Paths.LogDir, cfg.Paths.OutputDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "quill.toml")

	type payload struct {
		Transcription struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
			Model   string `toml:"model"`
		} `toml:"transcription"`
		Captioner struct {
			ChunkSeconds float64 `toml:"chunk_seconds"`
		} `toml:"captioner"`
	}
	custom := payload{}
	custom.Transcription.APIKey = "abc123"
	custom.Transcription.BaseURL = "https://example.com/v1/"
	custom.Transcription.Model = "voxtral-mini-latest"
	custom.Captioner.ChunkSeconds = 120
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Transcription.APIKey != "abc123" {
		t.Fatalf("expected API key from file, got %q", cfg.Transcription.APIKey)
	}
	if cfg.Transcription.BaseURL != "https://example.com/v1" {
		t.Fatalf("expected trailing slash trimmed from base url, got %q", cfg.Transcription.BaseURL)
	}
	if cfg.Transcription.Model != "voxtral-mini-latest" {
		t.Fatalf("expected model override, got %q", cfg.Transcription.Model)
	}
	if cfg.Captioner.ChunkSeconds != 120 {
		t.Fatalf("expected chunk seconds 120, got %v", cfg.Captioner.ChunkSeconds)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your-api-key-here") {
		t.Fatalf("sample config missing placeholder API key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Transcription.APIKey != "your-api-key-here" {
		t.Fatalf("expected placeholder key to decode, got %q", cfg.Transcription.APIKey)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "missing api key",
			mutate: func(c *config.Config) { c.Transcription.APIKey = "" },
			want:   "transcription.api_key",
		},
		{
			name:   "zero chunk seconds",
			mutate: func(c *config.Config) { c.Captioner.ChunkSeconds = 0 },
			want:   "captioner.chunk_seconds",
		},
		{
			name:   "repair bounds inverted",
			mutate: func(c *config.Config) { c.Captioner.MaxRepairChunkSeconds = 1 },
			want:   "max_repair_chunk_seconds",
		},
		{
			name:   "no speech prob out of range",
			mutate: func(c *config.Config) { c.Captioner.MaxNoSpeechProb = 1.5 },
			want:   "max_no_speech_prob",
		},
		{
			name:   "positive log prob gate",
			mutate: func(c *config.Config) { c.Captioner.MinAvgLogProb = 0.5 },
			want:   "min_avg_log_prob",
		},
		{
			name:   "positive noise floor",
			mutate: func(c *config.Config) { c.VAD.NoiseDB = 3 },
			want:   "vad.noise_db",
		},
		{
			name:   "bad log format",
			mutate: func(c *config.Config) { c.Logging.Format = "yaml" },
			want:   "logging.format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Transcription.APIKey = "key"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error to mention %q, got %v", tc.want, err)
			}
		})
	}
}
