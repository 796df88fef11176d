package captioner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"quill/internal/logging"
	"quill/internal/services"
)

// RepairRequest describes one gap handed to the repair engine.
type RepairRequest struct {
	// Gap is the absolute range to recover.
	Gap Gap
	// Source is the audio file gap ranges are cut from.
	Source string
	// WorkDir receives the temporary gap audio files.
	WorkDir string
	// Language is the spoken-language hint forwarded to the API.
	Language string
	// MediaDuration is the full source duration.
	MediaDuration float64
	// Neighbors are the captions accepted so far; the nearest ones on each
	// side of the gap become the transcription prompt.
	Neighbors []CaptionSegment
}

// repairSpan is one pending worklist entry: an audio range to transcribe and
// whether a failed attempt may still narrow it into sub-ranges.
type repairSpan struct {
	start    float64
	end      float64
	canSplit bool
}

func (r repairSpan) duration() float64 {
	return r.end - r.start
}

// GapRepairEngine retries uncovered speech ranges with narrowing scope until
// captions are recovered or the range is exhausted. A gap that cannot be
// transcribed produces no captions; text is never fabricated.
type GapRepairEngine struct {
	transcriber Transcriber
	extractor   AudioSegmentExtractor
	detector    SpeechIntervalDetector
	gate        QualityThresholds
	logger      *slog.Logger

	// tempFiles records every extraction. The list only grows; the caller
	// drains it after the whole run so retries never race cleanup.
	tempFiles []string
	attempts  int
}

// NewGapRepairEngine wires the collaborators a repair pass needs.
func NewGapRepairEngine(transcriber Transcriber, extractor AudioSegmentExtractor, detector SpeechIntervalDetector, gate QualityThresholds, logger *slog.Logger) *GapRepairEngine {
	return &GapRepairEngine{
		transcriber: transcriber,
		extractor:   extractor,
		detector:    detector,
		gate:        gate,
		logger:      logging.NewComponentLogger(logger, "gap-repair"),
	}
}

// TempFiles returns every audio file the engine has extracted so far.
func (e *GapRepairEngine) TempFiles() []string {
	out := make([]string, len(e.tempFiles))
	copy(out, e.tempFiles)
	return out
}

// Repair works one gap to completion. The returned captions all pass the
// quality gate and may cover only part of the gap; an empty result means the
// gap is exhausted. Only cancellation and extraction failures return errors.
func (e *GapRepairEngine) Repair(ctx context.Context, req RepairRequest) ([]CaptionSegment, error) {
	prompt := gapContext(req.Neighbors, req.Gap)
	worklist := []repairSpan{{start: req.Gap.Start, end: req.Gap.End, canSplit: true}}

	var accepted []CaptionSegment
	for len(worklist) > 0 {
		span := worklist[0]
		worklist = worklist[1:]

		good, audioPath, err := e.attempt(ctx, span, prompt, req)
		if err != nil {
			return nil, err
		}
		if len(good) > 0 {
			accepted = append(accepted, good...)
			e.logger.Info("gap range recovered",
				logging.Args(append(spanAttrs(span),
					logging.DecisionAttrs("gap_repair", "accept", fmt.Sprintf("%d usable segments", len(good)))...)...)...,
			)
			continue
		}
		if !span.canSplit || span.duration() < retrySplitThresholdSeconds {
			e.logger.Info("gap range exhausted",
				logging.Args(append(spanAttrs(span),
					logging.DecisionAttrs("gap_repair", "exhaust", exhaustReason(span))...)...)...,
			)
			continue
		}
		subs, err := e.subdivide(ctx, span, audioPath)
		if err != nil {
			return nil, err
		}
		worklist = append(worklist, subs...)
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Start < accepted[j].Start })
	return accepted, nil
}

// attempt extracts one span, transcribes it, and filters the result through
// the quality gate. The extracted file path is returned so a failed span can
// be re-analyzed without cutting the audio again.
func (e *GapRepairEngine) attempt(ctx context.Context, span repairSpan, prompt string, req RepairRequest) ([]CaptionSegment, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	e.attempts++
	dest := filepath.Join(req.WorkDir, fmt.Sprintf("repair_%03d_%.3f-%.3f.wav", e.attempts, span.start, span.end))
	if err := e.extractor.Extract(ctx, req.Source, dest, span.start, span.duration()); err != nil {
		return nil, "", services.Wrap(services.ErrExternalTool, "repair", "extract gap audio",
			fmt.Sprintf("Failed to cut %.3f-%.3fs from audio track", span.start, span.end), err)
	}
	e.tempFiles = append(e.tempFiles, dest)

	captions, err := e.transcriber.Transcribe(ctx, AudioChunk{
		Index:       e.attempts,
		Path:        dest,
		StartOffset: span.start,
		Duration:    span.duration(),
	}, ChunkOptions{
		Prompt:        prompt,
		Language:      req.Language,
		MediaDuration: req.MediaDuration,
	})
	if err != nil {
		return nil, "", err
	}

	var good []CaptionSegment
	for _, seg := range captions {
		if e.gate.isGood(seg) {
			good = append(good, seg)
		}
	}
	return good, dest, nil
}

// subdivide narrows a failed span: speech sub-intervals when the detector
// finds any, midpoint bisection otherwise. Sub-ranges shorter than the retry
// floor are discarded, and split products never split again.
func (e *GapRepairEngine) subdivide(ctx context.Context, span repairSpan, audioPath string) ([]repairSpan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	floor := minChunkDurationSeconds * minHalfDurationFactor

	intervals, err := e.detector.Detect(ctx, audioPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.WarnWithContext(e.logger, "speech detection failed during gap split", "vad_split_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ffmpeg availability"),
			logging.String(logging.FieldImpact, "falling back to midpoint bisection"),
		)
		intervals = nil
	}

	if len(intervals) > 0 {
		var subs []repairSpan
		for _, iv := range mergeIntervals(intervals, vadMergeToleranceSeconds) {
			if iv.End-iv.Start < floor {
				continue
			}
			subs = append(subs, repairSpan{start: span.start + iv.Start, end: span.start + iv.End})
		}
		if len(subs) > 0 {
			e.logger.Info("gap split along detected speech",
				logging.Args(append(spanAttrs(span),
					logging.DecisionAttrs("gap_repair", "split", fmt.Sprintf("%d speech sub-ranges", len(subs)))...)...)...,
			)
			return subs, nil
		}
	}

	mid := span.start + span.duration()/2
	var subs []repairSpan
	for _, half := range []repairSpan{{start: span.start, end: mid}, {start: mid, end: span.end}} {
		if half.duration() < floor {
			continue
		}
		subs = append(subs, half)
	}
	e.logger.Info("gap split at midpoint",
		logging.Args(append(spanAttrs(span),
			logging.DecisionAttrs("gap_repair", "split", fmt.Sprintf("%d halves above retry floor", len(subs)))...)...)...,
	)
	return subs, nil
}

// mergeIntervals coalesces speech intervals separated by less than the
// tolerance.
func mergeIntervals(intervals []SpeechInterval, tolerance float64) []SpeechInterval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]SpeechInterval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []SpeechInterval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.Start-last.End <= tolerance {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

func spanAttrs(span repairSpan) []logging.Attr {
	return []logging.Attr{
		logging.Float64("span_start", span.start),
		logging.Float64("span_end", span.end),
		logging.Float64("span_seconds", span.duration()),
	}
}

func exhaustReason(span repairSpan) string {
	if !span.canSplit {
		return "split product yielded nothing"
	}
	return fmt.Sprintf("%.1fs below %.1fs split threshold", span.duration(), retrySplitThresholdSeconds)
}
