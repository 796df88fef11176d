// Package vad locates speech in an audio file with ffmpeg's silencedetect
// filter. Detected silences are inverted into speech intervals, which the
// captioner compares against caption coverage to find unrepaired ranges.
package vad

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"quill/internal/captioner"
	"quill/internal/config"
	"quill/internal/logging"
)

// outputRunner executes a command and returns its combined output. The
// output is returned even when the command exits non-zero, because ffmpeg
// reports filter results on stderr before some failures.
type outputRunner func(ctx context.Context, name string, args ...string) (string, error)

func defaultOutputRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// Detector runs silencedetect over a file and reports the speech ranges
// between silences.
type Detector struct {
	binary     string
	noiseDB    float64
	minSilence float64
	run        outputRunner
	logger     *slog.Logger
}

// NewDetector builds a detector using the given ffmpeg binary and tuning.
func NewDetector(ffmpegBinary string, settings config.VAD, logger *slog.Logger) *Detector {
	binary := strings.TrimSpace(ffmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Detector{
		binary:     binary,
		noiseDB:    settings.NoiseDB,
		minSilence: settings.MinSilenceSeconds,
		run:        defaultOutputRunner,
		logger:     logging.NewComponentLogger(logger, "vad"),
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (d *Detector) WithCommandRunner(r outputRunner) {
	if d != nil && r != nil {
		d.run = r
	}
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?\d+(?:\.\d+)?)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?\d+(?:\.\d+)?)`)
	durationRe     = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
	progressTimeRe = regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)
)

// Detect analyzes one audio file and returns its speech intervals sorted by
// start time. An empty result means the file is silent end to end.
func (d *Detector) Detect(ctx context.Context, path string) ([]captioner.SpeechInterval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filter := fmt.Sprintf("silencedetect=noise=%gdB:d=%g", d.noiseDB, d.minSilence)
	args := []string{
		"-hide_banner",
		"-i", path,
		"-af", filter,
		"-f", "null",
		"-",
	}
	output, runErr := d.run(ctx, d.binary, args...)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	duration, ok := parseDuration(output)
	if !ok {
		if runErr != nil {
			return nil, fmt.Errorf("ffmpeg silencedetect: %w", runErr)
		}
		return nil, fmt.Errorf("ffmpeg silencedetect: no duration in output for %s", path)
	}
	if runErr != nil {
		// The filter ran far enough to report; the exit status alone is not
		// a reason to discard usable intervals.
		d.logger.Debug("silencedetect exited non-zero with usable output", logging.Error(runErr))
	}

	silences := parseSilences(output, duration)
	speech := invertSilences(silences, duration)
	d.logger.Debug("speech detection finished",
		logging.String("path", path),
		logging.Float64("media_seconds", duration),
		logging.Int("silences", len(silences)),
		logging.Int("speech_intervals", len(speech)),
	)
	return speech, nil
}

type silenceSpan struct {
	start float64
	end   float64
}

// parseSilences pairs silence_start/silence_end lines in output order. A
// trailing silence_start without a matching end runs to the end of the
// media.
func parseSilences(output string, duration float64) []silenceSpan {
	var silences []silenceSpan
	pending := 0.0
	havePending := false
	for _, line := range strings.Split(output, "\n") {
		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			value, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			if value < 0 {
				value = 0
			}
			pending = value
			havePending = true
			continue
		}
		if m := silenceEndRe.FindStringSubmatch(line); m != nil && havePending {
			value, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			silences = append(silences, silenceSpan{start: pending, end: value})
			havePending = false
		}
	}
	if havePending {
		silences = append(silences, silenceSpan{start: pending, end: duration})
	}
	return silences
}

// invertSilences returns the complement of the silences within the media.
func invertSilences(silences []silenceSpan, duration float64) []captioner.SpeechInterval {
	speech := make([]captioner.SpeechInterval, 0, len(silences)+1)
	cursor := 0.0
	for _, s := range silences {
		if s.start > cursor {
			speech = append(speech, captioner.SpeechInterval{Start: cursor, End: s.start})
		}
		if s.end > cursor {
			cursor = s.end
		}
	}
	if duration > cursor {
		speech = append(speech, captioner.SpeechInterval{Start: cursor, End: duration})
	}
	return speech
}

// parseDuration reads the container duration from ffmpeg's banner, falling
// back to the last progress timestamp when the banner is missing.
func parseDuration(output string) (float64, bool) {
	if m := durationRe.FindStringSubmatch(output); m != nil {
		return hmsToSeconds(m), true
	}
	matches := progressTimeRe.FindAllStringSubmatch(output, -1)
	if len(matches) > 0 {
		return hmsToSeconds(matches[len(matches)-1]), true
	}
	return 0, false
}

func hmsToSeconds(m []string) float64 {
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	frac, _ := strconv.ParseFloat("0."+m[4], 64)
	return float64(hours*3600+minutes*60+seconds) + frac
}
