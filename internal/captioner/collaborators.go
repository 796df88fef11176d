package captioner

import "context"

// TranscriptionRequest describes one audio file upload.
type TranscriptionRequest struct {
	Path     string
	Language string
	Prompt   string
}

// TranscriptionResult carries the model segmentation and word timestamps for
// one transcribed file, both relative to the file start.
type TranscriptionResult struct {
	Segments []ModelSegment
	Words    []Word
}

// TranscriptionClient transcribes a single audio file.
type TranscriptionClient interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (TranscriptionResult, error)
}

// SpeechIntervalDetector reports ranges of probable speech in an audio file.
type SpeechIntervalDetector interface {
	Detect(ctx context.Context, path string) ([]SpeechInterval, error)
}

// AudioSegmentExtractor cuts a time window out of a source file into a
// transcription-ready audio file.
type AudioSegmentExtractor interface {
	Extract(ctx context.Context, source, dest string, start, duration float64) error
}

// MediaExtractor extracts whole audio tracks as well as time windows.
// *audio.Extractor is the production implementation.
type MediaExtractor interface {
	AudioSegmentExtractor
	ExtractTrack(ctx context.Context, source string, audioIndex int, dest string) error
}

// HallucinationScrubber removes caption segments that look like model
// hallucinations. Implementations must be idempotent: scrubbing already
// scrubbed captions changes nothing.
type HallucinationScrubber interface {
	Scrub(captions []CaptionSegment, mediaDuration float64) []CaptionSegment
}

// NopScrubber passes captions through unchanged. Wired in when scrubbing is
// disabled in configuration.
type NopScrubber struct{}

// Scrub returns captions as-is.
func (NopScrubber) Scrub(captions []CaptionSegment, _ float64) []CaptionSegment {
	return captions
}
