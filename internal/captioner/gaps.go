package captioner

import "sort"

// FindGaps subtracts caption coverage from detected speech intervals and
// returns uncovered ranges at least minGapSec long. Uncovered leading and
// trailing portions of each interval count, so speech before the first
// caption and after the last is reported too.
func FindGaps(speech []SpeechInterval, captions []CaptionSegment, minGapSec float64) []Gap {
	if len(speech) == 0 {
		return nil
	}
	sorted := sortedByStart(captions)

	var gaps []Gap
	for _, interval := range speech {
		if interval.End <= interval.Start {
			continue
		}
		cursor := interval.Start
		for _, seg := range sorted {
			if seg.End <= cursor || seg.Start >= interval.End {
				continue
			}
			if seg.Start > cursor && seg.Start-cursor >= minGapSec {
				gaps = append(gaps, Gap{Start: cursor, End: seg.Start})
			}
			if seg.End > cursor {
				cursor = seg.End
			}
		}
		if interval.End > cursor && interval.End-cursor >= minGapSec {
			gaps = append(gaps, Gap{Start: cursor, End: interval.End})
		}
	}
	return gaps
}

// FindGapsBetweenCaptions reports the silences between adjacent captions
// that exceed minGapSec, chopped into consecutive sub-gaps no longer than
// maxChunkDur. A leftover shorter than minChunkDur is dropped rather than
// sent to repair.
func FindGapsBetweenCaptions(captions []CaptionSegment, minGapSec, maxChunkDur, minChunkDur float64) []Gap {
	if len(captions) < 2 {
		return nil
	}
	sorted := sortedByStart(captions)

	var gaps []Gap
	for i := 1; i < len(sorted); i++ {
		holeStart := sorted[i-1].End
		holeEnd := sorted[i].Start
		if holeEnd-holeStart <= minGapSec {
			continue
		}
		gaps = append(gaps, chopRange(holeStart, holeEnd, maxChunkDur, minChunkDur)...)
	}
	return gaps
}

// chopRange splits [start, end) into consecutive sub-ranges of at most
// maxDur seconds, dropping a final remainder shorter than minDur.
func chopRange(start, end, maxDur, minDur float64) []Gap {
	if end <= start || maxDur <= 0 {
		return nil
	}
	var out []Gap
	for cursor := start; cursor < end; {
		stop := cursor + maxDur
		if stop > end {
			stop = end
		}
		if stop-cursor < minDur {
			break
		}
		out = append(out, Gap{Start: cursor, End: stop})
		cursor = stop
	}
	return out
}

func sortedByStart(captions []CaptionSegment) []CaptionSegment {
	sorted := make([]CaptionSegment, len(captions))
	copy(sorted, captions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return sorted
}
