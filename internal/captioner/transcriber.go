package captioner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"quill/internal/logging"
)

// ChunkOptions carries the per-call inputs that are not part of the chunk
// itself.
type ChunkOptions struct {
	// Prompt is rolling text context from earlier captions. The silence
	// sentinel is appended automatically.
	Prompt string
	// Language is the spoken-language hint forwarded to the API.
	Language string
	// MediaDuration is the full source duration, used by the scrubber to
	// drop captions stamped past the end of the media.
	MediaDuration float64
}

// Transcriber converts one extracted audio range into caption segments.
// *ChunkTranscriber is the production implementation.
type Transcriber interface {
	Transcribe(ctx context.Context, chunk AudioChunk, opts ChunkOptions) ([]CaptionSegment, error)
}

// ChunkTranscriber turns one transcription call into finished captions. It
// trusts per-word timestamps only inside confident model-segment windows,
// regroups words into display-sized captions, and scrubs hallucinations.
type ChunkTranscriber struct {
	client   TranscriptionClient
	scrubber HallucinationScrubber
	gate     QualityThresholds
	logger   *slog.Logger
}

// NewChunkTranscriber wires a transcription client and scrubber behind the
// given confidence gate. A nil scrubber disables scrubbing.
func NewChunkTranscriber(client TranscriptionClient, scrubber HallucinationScrubber, gate QualityThresholds, logger *slog.Logger) *ChunkTranscriber {
	if scrubber == nil {
		scrubber = NopScrubber{}
	}
	return &ChunkTranscriber{
		client:   client,
		scrubber: scrubber,
		gate:     gate,
		logger:   logging.NewComponentLogger(logger, "transcriber"),
	}
}

// Transcribe uploads one audio chunk and returns captions on the absolute
// media timeline. Unusable responses and API failures yield an empty slice
// with a nil error so a bad chunk never aborts the run; only cancellation
// propagates.
func (t *ChunkTranscriber) Transcribe(ctx context.Context, chunk AudioChunk, opts ChunkOptions) ([]CaptionSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := t.client.Transcribe(ctx, TranscriptionRequest{
		Path:     chunk.Path,
		Language: opts.Language,
		Prompt:   primingPrompt(opts.Prompt),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("transcribe chunk %d: %w", chunk.Index, ctx.Err())
		}
		logging.WarnWithContext(t.logger, "transcription failed; range yields no captions", "transcription_failed",
			logging.Error(err),
			logging.Int(logging.FieldChunkIndex, chunk.Index),
			logging.Float64("start_sec", chunk.StartOffset),
			logging.Float64("duration_sec", chunk.Duration),
			logging.String(logging.FieldErrorHint, "check API key, network, and transcription service status"),
			logging.String(logging.FieldImpact, "captions missing for this range; gap repair may recover them"),
		)
		return []CaptionSegment{}, nil
	}
	if len(result.Words) == 0 {
		t.logger.Debug("transcription returned no word timestamps",
			logging.Int(logging.FieldChunkIndex, chunk.Index),
			logging.Int("segment_count", len(result.Segments)),
		)
		return []CaptionSegment{}, nil
	}

	words := shiftWords(result.Words, chunk.StartOffset)
	segments := shiftSegments(result.Segments, chunk.StartOffset)
	kept := filterTrustedWords(words, trustedWindows(segments, t.gate))
	groups := groupWords(kept, segmentEnds(segments))

	captions := make([]CaptionSegment, 0, len(groups))
	for i, group := range groups {
		captions = append(captions, buildCaption(group, segments, i))
	}

	scrubbed := t.scrubber.Scrub(captions, opts.MediaDuration)
	t.noteTailDivergence(result.Words, scrubbed, chunk.Index)
	return scrubbed, nil
}

// shiftWords moves word times onto the absolute timeline, trimming token
// whitespace and dropping empty tokens along the way.
func shiftWords(words []Word, offset float64) []Word {
	out := make([]Word, 0, len(words))
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		out = append(out, Word{Text: text, Start: w.Start + offset, End: w.End + offset})
	}
	return out
}

func shiftSegments(segments []ModelSegment, offset float64) []ModelSegment {
	out := make([]ModelSegment, len(segments))
	for i, seg := range segments {
		out[i] = seg
		out[i].Start += offset
		out[i].End += offset
	}
	return out
}

// trustedWindow is a time range inside which word timestamps are believed.
type trustedWindow struct {
	start float64
	end   float64
}

// trustedWindows widens every confident model segment by the margin. An
// empty result means no segment passed the gate; the caller fails open and
// keeps every word rather than discarding the whole chunk.
func trustedWindows(segments []ModelSegment, gate QualityThresholds) []trustedWindow {
	var windows []trustedWindow
	for _, seg := range segments {
		if !gate.confident(seg.NoSpeechProb, seg.AvgLogProb) {
			continue
		}
		windows = append(windows, trustedWindow{
			start: seg.Start - trustedWindowMarginSeconds,
			end:   seg.End + trustedWindowMarginSeconds,
		})
	}
	return windows
}

// filterTrustedWords keeps words fully contained in at least one window.
func filterTrustedWords(words []Word, windows []trustedWindow) []Word {
	if len(windows) == 0 {
		return words
	}
	kept := make([]Word, 0, len(words))
	for _, w := range words {
		for _, win := range windows {
			if w.Start >= win.start && w.End <= win.end {
				kept = append(kept, w)
				break
			}
		}
	}
	return kept
}

// segmentEnds lists the model's own segment end times, which act as hard
// caption boundaries during grouping.
func segmentEnds(segments []ModelSegment) []float64 {
	ends := make([]float64, 0, len(segments))
	for _, seg := range segments {
		ends = append(ends, seg.End)
	}
	return ends
}

func nearBoundary(t float64, ends []float64) bool {
	for _, end := range ends {
		if math.Abs(t-end) < boundaryToleranceSeconds {
			return true
		}
	}
	return false
}

// groupWords folds words into caption-sized groups. A model segment end
// coinciding with a word end always closes the group, as does the final
// word; the word-count and duration limits close it only once it holds
// minWordsPerCaption words.
func groupWords(words []Word, boundaryEnds []float64) [][]Word {
	var groups [][]Word
	var current []Word
	for i, w := range words {
		current = append(current, w)
		hard := i == len(words)-1 || nearBoundary(w.End, boundaryEnds)
		soft := len(current) >= maxWordsPerCaption || w.End-current[0].Start >= maxCaptionSeconds
		if hard || (soft && len(current) >= minWordsPerCaption) {
			groups = append(groups, current)
			current = nil
		}
	}
	return groups
}

// joinWords concatenates word texts with single spaces, omitting the space
// before tokens that begin with punctuation so "world" + "." renders as
// "world.".
func joinWords(words []Word) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 && !startsWithPunct(w.Text) {
			b.WriteByte(' ')
		}
		b.WriteString(w.Text)
	}
	return b.String()
}

func startsWithPunct(text string) bool {
	r, _ := utf8.DecodeRuneInString(text)
	return unicode.IsPunct(r)
}

// buildCaption finalizes one word group: absolute span, joined text,
// confidence attributed from the nearest model segment, and words rebased to
// offsets inside the caption.
func buildCaption(group []Word, segments []ModelSegment, index int) CaptionSegment {
	start := group[0].Start
	end := group[len(group)-1].End
	avgLogProb, noSpeechProb := attributeConfidence(end, segments)

	words := make([]Word, len(group))
	for i, w := range group {
		words[i] = Word{Text: w.Text, Start: w.Start - start, End: w.End - start}
	}

	return CaptionSegment{
		ID:           uuid.NewString(),
		Index:        index,
		Start:        start,
		End:          end,
		Text:         joinWords(group),
		AvgLogProb:   avgLogProb,
		NoSpeechProb: noSpeechProb,
		Words:        words,
	}
}

// attributeConfidence copies confidence from the model segment whose end
// lies nearest the group end, when that end is within the attribution
// tolerance. Otherwise both values stay zero.
func attributeConfidence(end float64, segments []ModelSegment) (avgLogProb, noSpeechProb float64) {
	best := -1
	bestDistance := math.MaxFloat64
	for i, seg := range segments {
		if distance := math.Abs(seg.End - end); distance < bestDistance {
			best = i
			bestDistance = distance
		}
	}
	if best >= 0 && bestDistance <= attributionToleranceSeconds {
		return segments[best].AvgLogProb, segments[best].NoSpeechProb
	}
	return 0, 0
}

// noteTailDivergence flags when filtering or scrubbing dropped trailing
// words: the last raw transcription word no longer matches the last caption
// word. Diagnostic only.
func (t *ChunkTranscriber) noteTailDivergence(raw []Word, captions []CaptionSegment, chunkIndex int) {
	if len(raw) == 0 || len(captions) == 0 {
		return
	}
	rawTail := strings.TrimSpace(raw[len(raw)-1].Text)
	last := captions[len(captions)-1]
	if rawTail == "" || len(last.Words) == 0 {
		return
	}
	captionTail := last.Words[len(last.Words)-1].Text
	if rawTail == captionTail {
		return
	}
	t.logger.Debug("tail word diverges after filtering",
		logging.Int(logging.FieldChunkIndex, chunkIndex),
		logging.String("raw_tail", rawTail),
		logging.String("caption_tail", captionTail),
	)
}
