package audio

import (
	"testing"

	"quill/internal/media/ffprobe"
)

func TestSelectPrefersLanguageMatch(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "video"},
		{
			Index:       1,
			CodecType:   "audio",
			CodecName:   "truehd",
			Channels:    8,
			Tags:        map[string]string{"language": "jpn", "title": "Original 7.1"},
			Disposition: map[string]int{"default": 1},
		},
		{
			Index:     2,
			CodecType: "audio",
			CodecName: "ac3",
			Channels:  6,
			Tags:      map[string]string{"language": "eng", "title": "English 5.1"},
		},
	}

	sel := Select(streams, "en")
	if sel.PrimaryIndex != 2 {
		t.Fatalf("expected English track (index 2), got %d", sel.PrimaryIndex)
	}
	if sel.Language != "eng" {
		t.Fatalf("expected stream language eng, got %q", sel.Language)
	}
}

func TestSelectAvoidsCommentaryTracks(t *testing.T) {
	streams := []ffprobe.Stream{
		{
			Index:     1,
			CodecType: "audio",
			CodecName: "ac3",
			Channels:  6,
			Tags:      map[string]string{"language": "eng", "title": "Director's Commentary"},
		},
		{
			Index:     2,
			CodecType: "audio",
			CodecName: "ac3",
			Channels:  2,
			Tags:      map[string]string{"language": "eng", "title": "Stereo"},
		},
	}

	sel := Select(streams, "en")
	if sel.PrimaryIndex != 2 {
		t.Fatalf("expected non-commentary track (index 2), got %d", sel.PrimaryIndex)
	}
}

func TestSelectAvoidsCommentDisposition(t *testing.T) {
	streams := []ffprobe.Stream{
		{
			Index:       1,
			CodecType:   "audio",
			CodecName:   "ac3",
			Channels:    2,
			Tags:        map[string]string{"language": "eng"},
			Disposition: map[string]int{"comment": 1},
		},
		{
			Index:     2,
			CodecType: "audio",
			CodecName: "ac3",
			Channels:  2,
			Tags:      map[string]string{"language": "eng"},
		},
	}

	sel := Select(streams, "en")
	if sel.PrimaryIndex != 2 {
		t.Fatalf("expected track without comment disposition, got %d", sel.PrimaryIndex)
	}
}

func TestSelectFallsBackWhenNoLanguageMatch(t *testing.T) {
	streams := []ffprobe.Stream{
		{
			Index:     0,
			CodecType: "audio",
			CodecName: "dts",
			Channels:  6,
			Tags:      map[string]string{"language": "jpn"},
		},
		{
			Index:     1,
			CodecType: "audio",
			CodecName: "ac3",
			Channels:  2,
			Tags:      map[string]string{"language": "fra"},
		},
	}

	sel := Select(streams, "en")
	if sel.PrimaryIndex != 0 {
		t.Fatalf("expected first audio stream as fallback, got %d", sel.PrimaryIndex)
	}
}

func TestSelectNoAudio(t *testing.T) {
	streams := []ffprobe.Stream{{Index: 0, CodecType: "video"}}
	sel := Select(streams, "en")
	if sel.PrimaryIndex != -1 {
		t.Fatalf("expected -1 for no audio, got %d", sel.PrimaryIndex)
	}
	if sel.PrimaryLabel() != "" {
		t.Fatalf("expected empty label, got %q", sel.PrimaryLabel())
	}
}

func TestPrimaryLabel(t *testing.T) {
	sel := Selection{
		Primary: ffprobe.Stream{
			Index:     1,
			CodecName: "dts",
			CodecLong: "DTS-HD Master Audio",
			Channels:  6,
			Tags:      map[string]string{"title": "Surround"},
		},
		PrimaryIndex: 1,
		Language:     "eng",
	}
	want := "eng | DTS-HD Master Audio | 6ch | surround"
	if got := sel.PrimaryLabel(); got != want {
		t.Fatalf("unexpected label: got %q want %q", got, want)
	}
}
