package ffprobe

import (
	"encoding/json"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{Index: 0, CodecType: "video"},
			{Index: 1, CodecType: "audio"},
			{Index: 2, CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
		},
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	audio := result.AudioStreams()
	if len(audio) != 2 || audio[0].Index != 1 || audio[1].Index != 2 {
		t.Fatalf("unexpected audio streams: %#v", audio)
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
		},
	}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected duration 0, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}

func TestStreamDecodesTagsAndDisposition(t *testing.T) {
	payload := `{
        "streams": [
            {
                "index": 1,
                "codec_name": "dts",
                "codec_long_name": "DCA (DTS Coherent Acoustics)",
                "codec_type": "audio",
                "channels": 6,
                "channel_layout": "5.1(side)",
                "disposition": {"default": 1, "comment": 0},
                "tags": {"language": "eng", "title": "Surround 5.1"}
            }
        ],
        "format": {"duration": "5400.021000"}
    }`
	var result Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		t.Fatalf("unmarshal ffprobe payload: %v", err)
	}
	if len(result.Streams) != 1 {
		t.Fatalf("expected one stream, got %d", len(result.Streams))
	}
	stream := result.Streams[0]
	if stream.Tags["language"] != "eng" {
		t.Fatalf("expected language tag, got %#v", stream.Tags)
	}
	if stream.Disposition["default"] != 1 {
		t.Fatalf("expected default disposition, got %#v", stream.Disposition)
	}
	if stream.Channels != 6 || stream.ChannelLayout != "5.1(side)" {
		t.Fatalf("unexpected channel data: %#v", stream)
	}
	if result.DurationSeconds() != 5400.021 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
}
