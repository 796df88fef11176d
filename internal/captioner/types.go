package captioner

// AudioChunk is one extracted slice of the source audio track queued for
// transcription. StartOffset places the chunk on the absolute media
// timeline. Chunk files are transient and removed once the run finishes.
type AudioChunk struct {
	Index       int
	Path        string
	StartOffset float64
	Duration    float64
}

// Word is a single transcribed word with timing. Word times arrive relative
// to the transcribed file and are rebased to caption-relative offsets once
// grouped.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ModelSegment is the transcription model's own segmentation of one audio
// file, with confidence metadata, relative to the file start.
type ModelSegment struct {
	Start        float64
	End          float64
	AvgLogProb   float64
	NoSpeechProb float64
}

// CaptionSegment is one finished caption on the absolute media timeline.
// Words carry offsets relative to Start. A segment is immutable once
// produced; later passes filter or renumber but never edit text or timing.
type CaptionSegment struct {
	ID           string
	Index        int
	Start        float64
	End          float64
	Text         string
	AvgLogProb   float64
	NoSpeechProb float64
	Words        []Word
}

// Duration returns the caption length in seconds.
func (c CaptionSegment) Duration() float64 {
	return c.End - c.Start
}

// SpeechInterval is a detected range of probable speech, relative to the
// start of the analyzed file.
type SpeechInterval struct {
	Start float64
	End   float64
}

// Gap is an absolute time range that should carry captions but does not.
type Gap struct {
	Start float64
	End   float64
}

// Duration returns the gap length in seconds.
func (g Gap) Duration() float64 {
	return g.End - g.Start
}
