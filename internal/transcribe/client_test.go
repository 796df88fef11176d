package transcribe

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quill/internal/captioner"
	"quill/internal/config"
)

const verbosePayload = `{
	"text": "Hello world.",
	"language": "en",
	"duration": 1.05,
	"words": [
		{"word": "Hello", "start": 0.0, "end": 0.4},
		{"word": "world", "start": 0.5, "end": 1.0},
		{"word": ".", "start": 1.0, "end": 1.05}
	],
	"segments": [
		{"id": 0, "start": 0.0, "end": 1.05, "text": "Hello world.", "avg_logprob": -0.2, "no_speech_prob": 0.1}
	]
}`

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk.wav")
	if err := os.WriteFile(path, []byte("RIFFdata"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func testSettings(baseURL string) config.Transcription {
	return config.Transcription{
		APIKey:         "secret",
		BaseURL:        baseURL,
		Model:          "whisper-1",
		TimeoutSeconds: 30,
	}
}

func TestTranscribeUploadsMultipartAndParsesResponse(t *testing.T) {
	var captured *http.Request
	var form map[string][]string
	var fileName, fileContent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		form = r.MultipartForm.Value
		headers := r.MultipartForm.File["file"]
		if len(headers) == 1 {
			fileName = headers[0].Filename
			f, err := headers[0].Open()
			if err == nil {
				data, _ := io.ReadAll(f)
				fileContent = string(data)
				f.Close()
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(verbosePayload))
	}))
	defer server.Close()

	client := NewClient(testSettings(server.URL))
	result, err := client.Transcribe(context.Background(), captioner.TranscriptionRequest{
		Path:     writeAudio(t),
		Language: "en",
		Prompt:   "previous words [BLANK_AUDIO]",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if len(result.Words) != 3 {
		t.Fatalf("got %d words, want 3", len(result.Words))
	}
	if result.Words[0].Text != "Hello" || math.Abs(result.Words[0].End-0.4) > 1e-9 {
		t.Fatalf("first word = %+v", result.Words[0])
	}
	if len(result.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(result.Segments))
	}
	seg := result.Segments[0]
	if math.Abs(seg.AvgLogProb-(-0.2)) > 1e-9 || math.Abs(seg.NoSpeechProb-0.1) > 1e-9 {
		t.Fatalf("segment confidence = %+v", seg)
	}

	if captured.URL.Path != "/audio/transcriptions" {
		t.Fatalf("path = %q, want /audio/transcriptions", captured.URL.Path)
	}
	if got := captured.Header.Get("Authorization"); got != "Bearer secret" {
		t.Fatalf("authorization = %q, want bearer token", got)
	}

	expectValues := map[string]string{
		"model":           "whisper-1",
		"language":        "en",
		"prompt":          "previous words [BLANK_AUDIO]",
		"response_format": "verbose_json",
	}
	for field, want := range expectValues {
		if got := form[field]; len(got) != 1 || got[0] != want {
			t.Fatalf("form field %q = %v, want %q", field, got, want)
		}
	}
	granularities := form["timestamp_granularities[]"]
	if len(granularities) != 2 || granularities[0] != "word" || granularities[1] != "segment" {
		t.Fatalf("granularities = %v, want [word segment]", granularities)
	}
	if fileName != "chunk.wav" || fileContent != "RIFFdata" {
		t.Fatalf("uploaded file = %q (%d bytes)", fileName, len(fileContent))
	}
}

func TestTranscribeOmitsEmptyOptionalFields(t *testing.T) {
	var form map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err == nil {
			form = r.MultipartForm.Value
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": ""}`))
	}))
	defer server.Close()

	client := NewClient(testSettings(server.URL))
	if _, err := client.Transcribe(context.Background(), captioner.TranscriptionRequest{Path: writeAudio(t)}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if _, ok := form["language"]; ok {
		t.Fatalf("language field sent despite empty hint: %v", form["language"])
	}
	if _, ok := form["prompt"]; ok {
		t.Fatalf("prompt field sent despite empty prompt: %v", form["prompt"])
	}
}

func TestTranscribeEmptyWordsPassThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "mumble", "segments": [{"id": 0, "start": 0, "end": 2, "text": "mumble"}]}`))
	}))
	defer server.Close()

	client := NewClient(testSettings(server.URL))
	result, err := client.Transcribe(context.Background(), captioner.TranscriptionRequest{Path: writeAudio(t)})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(result.Words) != 0 {
		t.Fatalf("words = %v, want none", result.Words)
	}
	if len(result.Segments) != 1 {
		t.Fatalf("segments = %v, want the one returned", result.Segments)
	}
}

func TestTranscribeErrorStatusIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	settings := testSettings("https://api.example.com/v1")
	client := NewClient(settings, WithBaseURL(server.URL))
	_, err := client.Transcribe(context.Background(), captioner.TranscriptionRequest{Path: writeAudio(t)})
	if err == nil {
		t.Fatal("expected an error for a 503 response")
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "upstream exploded") {
		t.Fatalf("err = %v, want status and body included", err)
	}
}

func TestTranscribeDecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := NewClient(testSettings(server.URL))
	if _, err := client.Transcribe(context.Background(), captioner.TranscriptionRequest{Path: writeAudio(t)}); err == nil {
		t.Fatal("expected a decode error for non-JSON body")
	}
}

func TestTranscribeValidation(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		settings := testSettings("http://localhost:1")
		settings.APIKey = ""
		client := NewClient(settings)
		if _, err := client.Transcribe(context.Background(), captioner.TranscriptionRequest{Path: writeAudio(t)}); err == nil {
			t.Fatal("expected an error without an api key")
		}
	})

	t.Run("empty path", func(t *testing.T) {
		client := NewClient(testSettings("http://localhost:1"))
		if _, err := client.Transcribe(context.Background(), captioner.TranscriptionRequest{}); err == nil {
			t.Fatal("expected an error for an empty path")
		}
	})

	t.Run("missing audio file", func(t *testing.T) {
		client := NewClient(testSettings("http://localhost:1"))
		if _, err := client.Transcribe(context.Background(), captioner.TranscriptionRequest{Path: "/nonexistent/audio.wav"}); err == nil {
			t.Fatal("expected an error for a missing file")
		}
	})
}

func TestTranscribeCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(verbosePayload))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(testSettings(server.URL), WithHTTPClient(server.Client()))
	_, err := client.Transcribe(ctx, captioner.TranscriptionRequest{Path: writeAudio(t)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
