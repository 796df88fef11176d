package config

const (
	defaultWorkspaceDir       = "~/.local/share/quill/workspace"
	defaultOutputDir          = "~/captions"
	defaultLogDir             = "~/.local/share/quill/logs"
	defaultArtifactDir        = "~/.local/share/quill/artifacts"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 60
	defaultTranscriptionURL   = "https://api.openai.com/v1"
	defaultTranscriptionModel = "whisper-1"
	defaultTranscriptionLang  = "en"
	defaultRequestTimeout     = 300
	defaultChunkSeconds       = 300.0
	defaultMinGapSeconds      = 1.5
	defaultMinGapForRepair    = 5.0
	defaultMaxRepairChunk     = 15.0
	defaultMinRepairChunk     = 2.0
	defaultMaxNoSpeechProb    = 0.50
	defaultMinAvgLogProb      = -1.0
	defaultVADNoiseDB         = -30.0
	defaultVADMinSilence      = 0.6
	defaultScrubEnabled       = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			OutputDir:    defaultOutputDir,
			LogDir:       defaultLogDir,
			ArtifactDir:  defaultArtifactDir,
		},
		Transcription: Transcription{
			BaseURL:        defaultTranscriptionURL,
			Model:          defaultTranscriptionModel,
			Language:       defaultTranscriptionLang,
			TimeoutSeconds: defaultRequestTimeout,
		},
		Captioner: Captioner{
			ChunkSeconds:           defaultChunkSeconds,
			MinGapSeconds:          defaultMinGapSeconds,
			MinGapForRepairSeconds: defaultMinGapForRepair,
			MaxRepairChunkSeconds:  defaultMaxRepairChunk,
			MinRepairChunkSeconds:  defaultMinRepairChunk,
			MaxNoSpeechProb:        defaultMaxNoSpeechProb,
			MinAvgLogProb:          defaultMinAvgLogProb,
		},
		VAD: VAD{
			NoiseDB:           defaultVADNoiseDB,
			MinSilenceSeconds: defaultVADMinSilence,
		},
		Scrub: Scrub{
			Enabled: defaultScrubEnabled,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
