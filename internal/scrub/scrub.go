// Package scrub removes transcription hallucinations from finished
// captions: stock filler phrases the model emits over silence, music-symbol
// cues, and captions stamped past the end of the media. Real dialogue that
// happens to match a phrase is protected by isolation checks; a phrase
// surrounded by other speech is left alone.
package scrub

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"quill/internal/captioner"
	"quill/internal/config"
	"quill/internal/logging"
)

const (
	// isolationGapSeconds is the silence required on both sides before a
	// known phrase is treated as a hallucination rather than dialogue.
	isolationGapSeconds = 30.0
	// repeatRunMinLength is the shortest run of identical captions removed
	// as a repetition loop.
	repeatRunMinLength = 3
	// repeatGapSeconds is the minimum spacing between run members; tightly
	// packed repeats are usually real (chanting, echoed lines).
	repeatGapSeconds = 10.0
	// trailingWindowSeconds is the end-of-media span swept without
	// isolation checks. Credits music makes artifacts near-certain there.
	trailingWindowSeconds = 300.0
)

// Phrases the transcription model is known to produce over non-speech audio
// (normalized form).
var knownHallucinationPhrases = map[string]bool{
	"thank you":              true,
	"thank you for watching": true,
	"thanks for watching":    true,
	"please subscribe":       true,
	"like and subscribe":     true,
	"well be right back":     true,
	"bye":                    true,
	"bye bye":                true,
	"see you next time":      true,
	"see you later":          true,
}

var normalizeRe = regexp.MustCompile(`[^a-z0-9\s]`)

// normalizeText lowercases, strips punctuation, and collapses whitespace so
// phrase matching ignores formatting differences.
func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = normalizeRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// removal records one scrubbed caption for diagnostics.
type removal struct {
	segment captioner.CaptionSegment
	reason  string
}

// Scrubber implements captioner.HallucinationScrubber.
type Scrubber struct {
	phrases map[string]bool
	logger  *slog.Logger
}

// NewScrubber builds a scrubber with the built-in phrase list plus any
// configured extras.
func NewScrubber(settings config.Scrub, logger *slog.Logger) *Scrubber {
	phrases := make(map[string]bool, len(knownHallucinationPhrases)+len(settings.ExtraPhrases))
	for phrase := range knownHallucinationPhrases {
		phrases[phrase] = true
	}
	for _, phrase := range settings.ExtraPhrases {
		if norm := normalizeText(phrase); norm != "" {
			phrases[norm] = true
		}
	}
	return &Scrubber{
		phrases: phrases,
		logger:  logging.NewComponentLogger(logger, "scrub"),
	}
}

// Scrub filters the captions and renumbers the survivors. Removal decisions
// are re-evaluated until none fire, so scrubbing an already-scrubbed list
// changes nothing.
func (s *Scrubber) Scrub(captions []captioner.CaptionSegment, mediaDuration float64) []captioner.CaptionSegment {
	if len(captions) == 0 {
		return captions
	}

	current := captions
	var total []removal
	for {
		kept, removals := s.scrubOnce(current, mediaDuration)
		current = kept
		if len(removals) == 0 {
			break
		}
		total = append(total, removals...)
	}

	for i := range current {
		current[i].Index = i
	}
	if len(total) > 0 {
		s.logSummary(total, len(current))
	}
	return current
}

func (s *Scrubber) scrubOnce(captions []captioner.CaptionSegment, mediaDuration float64) ([]captioner.CaptionSegment, []removal) {
	remove := make([]bool, len(captions))
	var removals []removal

	markRepeatedRuns(captions, remove, &removals)

	for i := range captions {
		if remove[i] {
			continue
		}
		if mediaDuration > 0 && captions[i].Start >= mediaDuration {
			remove[i] = true
			removals = append(removals, removal{segment: captions[i], reason: "past_media_end"})
			continue
		}
		isolated := leadGap(captions, i) >= isolationGapSeconds && trailGap(captions, i) >= isolationGapSeconds
		if !isolated {
			continue
		}
		if s.phrases[normalizeText(captions[i].Text)] {
			remove[i] = true
			removals = append(removals, removal{segment: captions[i], reason: "isolated_hallucination"})
			continue
		}
		if musicSymbolsOnly(captions[i].Text) {
			remove[i] = true
			removals = append(removals, removal{segment: captions[i], reason: "music_symbols"})
		}
	}

	s.markTrailingArtifacts(captions, mediaDuration, remove, &removals)

	kept := make([]captioner.CaptionSegment, 0, len(captions))
	for i, seg := range captions {
		if !remove[i] {
			kept = append(kept, seg)
		}
	}
	return kept, removals
}

// markRepeatedRuns flags runs of repeatRunMinLength or more captions with
// identical normalized text where every inter-caption gap exceeds
// repeatGapSeconds.
func markRepeatedRuns(captions []captioner.CaptionSegment, remove []bool, removals *[]removal) {
	i := 0
	for i < len(captions) {
		norm := normalizeText(captions[i].Text)
		if norm == "" {
			i++
			continue
		}
		runEnd := i + 1
		for runEnd < len(captions) {
			if normalizeText(captions[runEnd].Text) != norm {
				break
			}
			if captions[runEnd].Start-captions[runEnd-1].End <= repeatGapSeconds {
				break
			}
			runEnd++
		}
		if runEnd-i >= repeatRunMinLength {
			for j := i; j < runEnd; j++ {
				remove[j] = true
				*removals = append(*removals, removal{segment: captions[j], reason: "repeated_hallucination"})
			}
		}
		i = runEnd
	}
}

// markTrailingArtifacts sweeps the final minutes of long media for known
// phrases and music cues without requiring isolation.
func (s *Scrubber) markTrailingArtifacts(captions []captioner.CaptionSegment, mediaDuration float64, remove []bool, removals *[]removal) {
	if mediaDuration < 2*trailingWindowSeconds {
		return
	}
	threshold := mediaDuration - trailingWindowSeconds
	for i := range captions {
		if remove[i] || captions[i].Start < threshold {
			continue
		}
		if s.phrases[normalizeText(captions[i].Text)] {
			remove[i] = true
			*removals = append(*removals, removal{segment: captions[i], reason: "trailing_hallucination"})
			continue
		}
		if musicSymbolsOnly(captions[i].Text) {
			remove[i] = true
			*removals = append(*removals, removal{segment: captions[i], reason: "trailing_music"})
		}
	}
}

// leadGap returns the silence before caption i; the first caption measures
// from time zero.
func leadGap(captions []captioner.CaptionSegment, i int) float64 {
	if i == 0 {
		return captions[i].Start
	}
	return captions[i].Start - captions[i-1].End
}

// trailGap returns the silence after caption i; the last caption is treated
// as isolated on its trailing side.
func trailGap(captions []captioner.CaptionSegment, i int) float64 {
	if i >= len(captions)-1 {
		return 1e9
	}
	return captions[i+1].Start - captions[i].End
}

// musicSymbolsOnly reports whether the text is nothing but music notation
// (¶, ♪, ♫, *) and whitespace.
func musicSymbolsOnly(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, r := range text {
		switch {
		case r == '¶':
		case r == '♪':
		case r == '♫':
		case r == '*':
		case unicode.IsSpace(r):
		default:
			return false
		}
	}
	return true
}

func (s *Scrubber) logSummary(removals []removal, remaining int) {
	reasons := make(map[string]int)
	for _, r := range removals {
		reasons[r.reason]++
	}
	attrs := []logging.Attr{
		logging.Int("captions_removed", len(removals)),
		logging.Int("captions_remaining", remaining),
	}
	for reason, count := range reasons {
		attrs = append(attrs, logging.Int("removed_"+reason, count))
	}
	s.logger.Info("hallucination scrub applied", logging.Args(attrs...)...)

	for _, r := range removals {
		s.logger.Debug("scrubbed caption",
			logging.String("reason", r.reason),
			logging.Float64("start", r.segment.Start),
			logging.Float64("end", r.segment.End),
			logging.String("text", r.segment.Text),
		)
	}
}
