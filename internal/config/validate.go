package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateCaptioner(); err != nil {
		return err
	}
	if err := c.validateVAD(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/quill/config.toml"
		}
		return fmt.Errorf("transcription.api_key is required. Set QUILL_API_KEY env var or edit %s (create with 'quill config init')", defaultPath)
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		return errors.New("transcription.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateCaptioner() error {
	cfg := c.Captioner
	if cfg.ChunkSeconds <= 0 {
		return errors.New("captioner.chunk_seconds must be positive")
	}
	if cfg.MinGapSeconds <= 0 {
		return errors.New("captioner.min_gap_seconds must be positive")
	}
	if cfg.MinGapForRepairSeconds <= 0 {
		return errors.New("captioner.min_gap_for_repair_seconds must be positive")
	}
	if cfg.MinRepairChunkSeconds <= 0 {
		return errors.New("captioner.min_repair_chunk_seconds must be positive")
	}
	if cfg.MaxRepairChunkSeconds <= cfg.MinRepairChunkSeconds {
		return errors.New("captioner.max_repair_chunk_seconds must be greater than captioner.min_repair_chunk_seconds")
	}
	if cfg.MaxRepairChunkSeconds > cfg.ChunkSeconds {
		return errors.New("captioner.max_repair_chunk_seconds must not exceed captioner.chunk_seconds")
	}
	if cfg.MaxNoSpeechProb <= 0 || cfg.MaxNoSpeechProb > 1 {
		return errors.New("captioner.max_no_speech_prob must be between 0 and 1")
	}
	if cfg.MinAvgLogProb >= 0 {
		return errors.New("captioner.min_avg_log_prob must be negative (log probability)")
	}
	return nil
}

func (c *Config) validateVAD() error {
	if c.VAD.NoiseDB >= 0 {
		return errors.New("vad.noise_db must be negative (dBFS noise floor)")
	}
	if c.VAD.MinSilenceSeconds <= 0 {
		return errors.New("vad.min_silence_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
