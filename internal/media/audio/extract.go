package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Extractor cuts audio ranges with ffmpeg. Window extraction operates on an
// already-extracted track file, so no stream mapping is involved there.
type Extractor struct {
	binary string
	run    commandRunner
}

// NewExtractor constructs an extractor using the given ffmpeg binary.
func NewExtractor(ffmpegBinary string) *Extractor {
	binary := strings.TrimSpace(ffmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Extractor{binary: binary, run: defaultCommandRunner}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (e *Extractor) WithCommandRunner(r commandRunner) {
	if e != nil && r != nil {
		e.run = r
	}
}

// ExtractTrack extracts one full audio stream from a container into a mono
// 16kHz WAV file.
func (e *Extractor) ExtractTrack(ctx context.Context, source string, audioIndex int, dest string) error {
	if audioIndex < 0 {
		return fmt.Errorf("extract track: invalid audio track index %d", audioIndex)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", fmt.Sprintf("0:%d", audioIndex),
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := e.run(ctx, e.binary, args...); err != nil {
		return fmt.Errorf("ffmpeg extract track: %w", err)
	}
	return nil
}

// Extract cuts a time window out of an audio file into a mono 16kHz WAV
// file. Start and duration are in seconds and may be fractional.
func (e *Extractor) Extract(ctx context.Context, source, dest string, start, duration float64) error {
	if start < 0 {
		return fmt.Errorf("extract window: negative start %v", start)
	}
	if duration <= 0 {
		return fmt.Errorf("extract window: invalid duration %v", duration)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := e.run(ctx, e.binary, args...); err != nil {
		return fmt.Errorf("ffmpeg extract window: %w", err)
	}
	return nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}
