package captioner

import (
	"context"
	"math"
	"os"
	"strings"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6
}

func makeWord(text string, start, end float64) Word {
	return Word{Text: text, Start: start, End: end}
}

func confidentSegment(start, end float64) ModelSegment {
	return ModelSegment{Start: start, End: end, AvgLogProb: -0.2, NoSpeechProb: 0.1}
}

// makeCaption builds a caption whose word list matches its text so the
// quality gate sees a plausible shape.
func makeCaption(start, end float64, text string) CaptionSegment {
	fields := strings.Fields(text)
	duration := end - start
	words := make([]Word, len(fields))
	for i, field := range fields {
		slot := duration / float64(len(fields))
		words[i] = Word{Text: field, Start: float64(i) * slot, End: float64(i)*slot + slot*0.8}
	}
	return CaptionSegment{
		ID:           "test-" + text,
		Start:        start,
		End:          end,
		Text:         text,
		AvgLogProb:   -0.2,
		NoSpeechProb: 0.1,
		Words:        words,
	}
}

type fakeClient struct {
	result   TranscriptionResult
	err      error
	respond  func(req TranscriptionRequest) (TranscriptionResult, error)
	requests []TranscriptionRequest
}

func (f *fakeClient) Transcribe(_ context.Context, req TranscriptionRequest) (TranscriptionResult, error) {
	f.requests = append(f.requests, req)
	if f.respond != nil {
		return f.respond(req)
	}
	if f.err != nil {
		return TranscriptionResult{}, f.err
	}
	return f.result, nil
}

type fakeTranscriber struct {
	respond func(chunk AudioChunk, opts ChunkOptions) ([]CaptionSegment, error)
	chunks  []AudioChunk
	opts    []ChunkOptions
}

func (f *fakeTranscriber) Transcribe(_ context.Context, chunk AudioChunk, opts ChunkOptions) ([]CaptionSegment, error) {
	f.chunks = append(f.chunks, chunk)
	f.opts = append(f.opts, opts)
	if f.respond != nil {
		return f.respond(chunk, opts)
	}
	return []CaptionSegment{}, nil
}

type extractCall struct {
	source   string
	dest     string
	start    float64
	duration float64
}

// fakeExtractor records calls and writes a small placeholder file so run
// directories contain real entries for cleanup to drain.
type fakeExtractor struct {
	calls      []extractCall
	err        error
	trackCalls int
	trackErr   error
}

func (f *fakeExtractor) Extract(_ context.Context, source, dest string, start, duration float64) error {
	f.calls = append(f.calls, extractCall{source: source, dest: dest, start: start, duration: duration})
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, []byte("RIFF"), 0o644)
}

func (f *fakeExtractor) ExtractTrack(_ context.Context, source string, audioIndex int, dest string) error {
	f.trackCalls++
	if f.trackErr != nil {
		return f.trackErr
	}
	return os.WriteFile(dest, []byte("RIFF"), 0o644)
}

type fakeDetector struct {
	intervals []SpeechInterval
	err       error
	paths     []string
}

func (f *fakeDetector) Detect(_ context.Context, path string) ([]SpeechInterval, error) {
	f.paths = append(f.paths, path)
	if f.err != nil {
		return nil, f.err
	}
	return f.intervals, nil
}

type fakeScrubber struct {
	fn    func(captions []CaptionSegment, mediaDuration float64) []CaptionSegment
	calls int
}

func (f *fakeScrubber) Scrub(captions []CaptionSegment, mediaDuration float64) []CaptionSegment {
	f.calls++
	if f.fn != nil {
		return f.fn(captions, mediaDuration)
	}
	return captions
}
