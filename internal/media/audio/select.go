package audio

import (
	"strconv"
	"strings"

	"quill/internal/language"
	"quill/internal/media/ffprobe"
)

// Selection describes the audio track chosen for transcription.
type Selection struct {
	Primary      ffprobe.Stream
	PrimaryIndex int
	Language     string
}

// PrimaryLabel returns a human-readable summary of the selected stream.
func (s Selection) PrimaryLabel() string {
	if s.PrimaryIndex < 0 {
		return ""
	}
	parts := make([]string, 0, 4)
	if s.Language != "" {
		parts = append(parts, s.Language)
	}
	codec := s.Primary.CodecLong
	if codec == "" {
		codec = s.Primary.CodecName
	}
	if codec != "" {
		parts = append(parts, codec)
	}
	if s.Primary.Channels > 0 {
		parts = append(parts, strconv.Itoa(s.Primary.Channels)+"ch")
	}
	if title := streamTitle(s.Primary); title != "" {
		parts = append(parts, title)
	}
	if len(parts) == 0 {
		return "audio"
	}
	return strings.Join(parts, " | ")
}

// Select picks the dialogue track to transcribe. Tracks matching the
// preferred language rank first; commentary and descriptive-audio tracks are
// avoided since transcribing them produces captions for the wrong speech.
// Channel count breaks ties because main mixes carry more channels than
// bonus tracks.
func Select(streams []ffprobe.Stream, preferredLanguage string) Selection {
	candidates := buildCandidates(streams)
	if len(candidates) == 0 {
		return Selection{PrimaryIndex: -1}
	}

	best := candidates[0]
	bestScore := scoreCandidate(best, preferredLanguage)
	for i := 1; i < len(candidates); i++ {
		if score := scoreCandidate(candidates[i], preferredLanguage); score > bestScore {
			best = candidates[i]
			bestScore = score
		}
	}

	return Selection{
		Primary:      best.stream,
		PrimaryIndex: best.stream.Index,
		Language:     best.language,
	}
}

// candidate captures the derived metadata used for track ranking.
type candidate struct {
	stream         ffprobe.Stream
	order          int
	language       string
	title          string
	isCommentary   bool
	defaultFlagged bool
}

func scoreCandidate(cand candidate, preferredLanguage string) float64 {
	score := 0.0

	if preferredLanguage != "" && language.Matches(cand.language, preferredLanguage) {
		score += 1000
	}

	// Commentary and narration tracks are real speech, but not the speech
	// the captions should describe.
	if cand.isCommentary {
		score -= 800
	}

	if cand.defaultFlagged {
		score += 50
	}

	channels := cand.stream.Channels
	if channels > 8 {
		channels = 8
	}
	score += float64(channels) * 10

	// Prefer earlier tracks when scores tie.
	score -= float64(cand.order) * 0.1

	return score
}

func buildCandidates(streams []ffprobe.Stream) []candidate {
	result := make([]candidate, 0)
	order := 0
	for _, stream := range streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		cand := candidate{
			stream:         stream,
			order:          order,
			language:       language.ExtractFromTags(stream.Tags),
			title:          streamTitle(stream),
			defaultFlagged: stream.Disposition != nil && stream.Disposition["default"] == 1,
		}
		cand.isCommentary = detectCommentary(stream, cand.title)
		result = append(result, cand)
		order++
	}
	return result
}

func streamTitle(stream ffprobe.Stream) string {
	if len(stream.Tags) == 0 {
		return ""
	}
	for _, key := range []string{"title", "TITLE", "handler_name", "HANDLER_NAME"} {
		if value, ok := stream.Tags[key]; ok {
			return strings.ToLower(strings.TrimSpace(value))
		}
	}
	return ""
}

func detectCommentary(stream ffprobe.Stream, normalizedTitle string) bool {
	if stream.Disposition != nil {
		if stream.Disposition["comment"] == 1 || stream.Disposition["visual_impaired"] == 1 {
			return true
		}
	}
	keywords := []string{
		"commentary",
		"director",
		"descriptive",
		"description",
		"narration",
		"isolated score",
	}
	for _, keyword := range keywords {
		if strings.Contains(normalizedTitle, keyword) {
			return true
		}
	}
	return false
}
