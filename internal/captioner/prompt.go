package captioner

import (
	"sort"
	"strings"
)

// primingPrompt appends the silence sentinel to any accumulated context so
// the model can emit it over non-speech audio instead of inventing text.
func primingPrompt(context string) string {
	context = strings.TrimSpace(context)
	if context == "" {
		return silenceSentinel
	}
	return context + " " + silenceSentinel
}

// tailContext returns the text of up to maxCaptions trailing captions,
// capped at the last maxWords words. This is the rolling prompt fed to the
// next chunk.
func tailContext(captions []CaptionSegment, maxCaptions, maxWords int) string {
	if len(captions) == 0 || maxCaptions <= 0 || maxWords <= 0 {
		return ""
	}
	start := len(captions) - maxCaptions
	if start < 0 {
		start = 0
	}
	words := collectWords(captions[start:])
	if len(words) > maxWords {
		words = words[len(words)-maxWords:]
	}
	return strings.Join(words, " ")
}

// headContext mirrors tailContext for captions after a gap: up to
// maxCaptions leading captions capped at the first maxWords words.
func headContext(captions []CaptionSegment, maxCaptions, maxWords int) string {
	if len(captions) == 0 || maxCaptions <= 0 || maxWords <= 0 {
		return ""
	}
	if len(captions) > maxCaptions {
		captions = captions[:maxCaptions]
	}
	words := collectWords(captions)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}

// gapContext builds the repair prompt for a gap from the nearest accepted
// captions on each side. Neighbors may arrive unsorted; captions straddling
// the gap edge contribute to neither side.
func gapContext(neighbors []CaptionSegment, gap Gap) string {
	var before, after []CaptionSegment
	for _, seg := range neighbors {
		switch {
		case seg.End <= gap.Start:
			before = append(before, seg)
		case seg.Start >= gap.End:
			after = append(after, seg)
		}
	}
	sort.Slice(before, func(i, j int) bool { return before[i].Start < before[j].Start })
	sort.Slice(after, func(i, j int) bool { return after[i].Start < after[j].Start })

	lead := tailContext(before, promptCaptionsPerSide, promptWordsPerSide)
	trail := headContext(after, promptCaptionsPerSide, promptWordsPerSide)
	switch {
	case lead == "":
		return trail
	case trail == "":
		return lead
	default:
		return lead + " " + trail
	}
}

func collectWords(captions []CaptionSegment) []string {
	var words []string
	for _, seg := range captions {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		words = append(words, strings.Fields(text)...)
	}
	return words
}
