package captioner

// Trusted-window construction. A model segment passing the confidence gate
// contributes a window widened by this margin on both sides; words outside
// every window are discarded before grouping.
const trustedWindowMarginSeconds = 0.25

// Word grouping bounds. A model segment end always closes a caption; the
// soft limits close one only once it holds minWordsPerCaption words.
const (
	minWordsPerCaption = 3
	maxWordsPerCaption = 14
	maxCaptionSeconds  = 6.0

	// A word end counts as a segment boundary when strictly closer than
	// this to a model segment end.
	boundaryToleranceSeconds = 0.05

	// Confidence is copied from the model segment with the nearest end; past
	// this distance the caption keeps zero confidence values.
	attributionToleranceSeconds = 0.50
)

// Quality floors below which a transcribed segment is unusable as repair
// output regardless of confidence.
const (
	minUsableWords           = 2
	minUsableDurationSeconds = 0.35
)

// Repair retry policy. A failed range at or above the split threshold is
// narrowed once more; sub-ranges shorter than
// minChunkDurationSeconds*minHalfDurationFactor are never retried.
const (
	retrySplitThresholdSeconds = 6.0
	minChunkDurationSeconds    = 2.0
	minHalfDurationFactor      = 0.5
	vadMergeToleranceSeconds   = 0.3
)

// Context prompt bounds shared by the rolling chunk prompt and gap repair.
const (
	promptCaptionsPerSide = 2
	promptWordsPerSide    = 24
)

// silenceSentinel ends every priming prompt so the model has a safe token to
// emit over non-speech audio instead of inventing text.
const silenceSentinel = "[BLANK_AUDIO]"

// A trailing chunk shorter than this is folded into the previous chunk
// rather than uploaded on its own.
const minTailChunkSeconds = 0.25
