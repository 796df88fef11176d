package captioner

// QualityThresholds are the model-confidence gates shared by trusted-window
// construction and repair acceptance.
type QualityThresholds struct {
	// MaxNoSpeechProb rejects segments the model suspects are non-speech.
	MaxNoSpeechProb float64
	// MinAvgLogProb rejects segments decoded with low overall confidence.
	MinAvgLogProb float64
}

// DefaultQualityThresholds mirrors the configuration defaults.
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{MaxNoSpeechProb: 0.50, MinAvgLogProb: -1.0}
}

// confident reports whether segment-level confidence passes the gate.
func (q QualityThresholds) confident(noSpeechProb, avgLogProb float64) bool {
	return noSpeechProb < q.MaxNoSpeechProb && avgLogProb > q.MinAvgLogProb
}

// isGood reports whether a transcribed caption is acceptable as repair
// output: confident, at least two words, and longer than the minimum usable
// duration. Captions carrying zero confidence values (no attributable model
// segment) pass the confidence half and are judged on shape alone.
func (q QualityThresholds) isGood(seg CaptionSegment) bool {
	if !q.confident(seg.NoSpeechProb, seg.AvgLogProb) {
		return false
	}
	if len(seg.Words) < minUsableWords {
		return false
	}
	return seg.End-seg.Start > minUsableDurationSeconds
}
