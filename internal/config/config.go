package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths groups the directories quill reads and writes.
type Paths struct {
	// WorkspaceDir holds extracted audio, chunk files, and the run lock.
	// Contents are transient and drained after each run.
	WorkspaceDir string `toml:"workspace_dir"`
	// OutputDir receives exported subtitle files.
	OutputDir string `toml:"output_dir"`
	// LogDir receives quill.log and the run database.
	LogDir string `toml:"log_dir"`
	// ArtifactDir receives per-run copies of extracted audio when
	// captioner.debug_artifacts is enabled.
	ArtifactDir string `toml:"artifact_dir"`
}

// Transcription configures the speech-to-text API connection.
type Transcription struct {
	// APIKey authenticates against the transcription endpoint. Falls back to
	// the QUILL_API_KEY environment variable when unset.
	APIKey string `toml:"api_key"`
	// BaseURL is the API root of an OpenAI-compatible transcription service.
	BaseURL string `toml:"base_url"`
	// Model is the transcription model identifier. Default: whisper-1
	Model string `toml:"model"`
	// Language is the spoken-language hint passed to the model. Accepts
	// ISO 639-1/639-2 codes or full names ("en", "eng", "english").
	Language string `toml:"language"`
	// TimeoutSeconds bounds a single transcription request. Default: 300
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Captioner tunes chunking, gap detection, and the repair quality gate.
type Captioner struct {
	// ChunkSeconds is the planned duration of each transcription chunk.
	ChunkSeconds float64 `toml:"chunk_seconds"`
	// MinGapSeconds is the smallest uncovered speech range reported by VAD
	// comparison. Default: 1.5
	MinGapSeconds float64 `toml:"min_gap_seconds"`
	// MinGapForRepairSeconds is the smallest silence between adjacent captions
	// that triggers repair. Default: 5
	MinGapForRepairSeconds float64 `toml:"min_gap_for_repair_seconds"`
	// MaxRepairChunkSeconds bounds a single repair extraction. Larger holes
	// are chopped into consecutive sub-gaps. Default: 15
	MaxRepairChunkSeconds float64 `toml:"max_repair_chunk_seconds"`
	// MinRepairChunkSeconds drops leftover sub-gaps too short to transcribe
	// usefully. Default: 2
	MinRepairChunkSeconds float64 `toml:"min_repair_chunk_seconds"`
	// MaxNoSpeechProb is the highest no_speech_prob a segment may carry and
	// still be accepted. Default: 0.50
	MaxNoSpeechProb float64 `toml:"max_no_speech_prob"`
	// MinAvgLogProb is the lowest avg_logprob a segment may carry and still
	// be accepted. Default: -1.0
	MinAvgLogProb float64 `toml:"min_avg_log_prob"`
	// DebugArtifacts copies every extracted chunk/gap audio file into a
	// per-run folder under paths.artifact_dir for manual inspection.
	DebugArtifacts bool `toml:"debug_artifacts"`
}

// VAD configures silence-based speech interval detection.
type VAD struct {
	// NoiseDB is the silencedetect noise floor in dBFS. Default: -30
	NoiseDB float64 `toml:"noise_db"`
	// MinSilenceSeconds is the shortest quiet stretch treated as silence.
	// Default: 0.6
	MinSilenceSeconds float64 `toml:"min_silence_seconds"`
}

// Scrub configures hallucination filtering of transcribed captions.
type Scrub struct {
	// Enabled toggles the hallucination filter. Default: true
	Enabled bool `toml:"enabled"`
	// ExtraPhrases adds caption texts (case/punctuation insensitive) to the
	// built-in hallucination phrase list.
	ExtraPhrases []string `toml:"extra_phrases"`
}

// Logging controls log output format, level, and retention.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for quill.
//
// Configuration sections by subsystem:
//   - Paths: workspace, output, log, and artifact directories
//   - Transcription: speech-to-text API connection
//   - Captioner: chunk planning, gap detection, repair thresholds
//   - VAD: silence-based speech detection
//   - Scrub: hallucination filtering
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcription Transcription `toml:"transcription"`
	Captioner     Captioner     `toml:"captioner"`
	VAD           VAD           `toml:"vad"`
	Scrub         Scrub         `toml:"scrub"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/quill/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/quill/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("quill.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
// OutputDir is created on a best-effort basis so config load keeps working
// when external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkspaceDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for audio extraction
// and speech detection.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
