// Package transcribe calls an OpenAI-compatible speech-to-text endpoint and
// adapts its verbose response into the captioner's word and segment types.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quill/internal/captioner"
	"quill/internal/config"
)

const (
	transcribePath   = "/audio/transcriptions"
	responseFormat   = "verbose_json"
	granularityField = "timestamp_granularities[]"
	defaultTimeout   = 5 * time.Minute
)

// Client uploads audio files for transcription. It implements
// captioner.TranscriptionClient.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// Option customizes a client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithBaseURL overrides the configured base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// NewClient constructs a transcription client from the configured endpoint.
func NewClient(settings config.Transcription, opts ...Option) *Client {
	timeout := defaultTimeout
	if settings.TimeoutSeconds > 0 {
		timeout = time.Duration(settings.TimeoutSeconds) * time.Second
	}
	client := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(settings.BaseURL), "/"),
		apiKey:  strings.TrimSpace(settings.APIKey),
		model:   strings.TrimSpace(settings.Model),
		http: &http.Client{
			Timeout: timeout,
		},
	}

	for _, opt := range opts {
		opt(client)
	}
	return client
}

// verboseResponse mirrors the subset of the verbose_json payload the
// captioner consumes.
type verboseResponse struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Words    []verboseWord    `json:"words"`
	Segments []verboseSegment `json:"segments"`
}

type verboseWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type verboseSegment struct {
	ID           int     `json:"id"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	AvgLogProb   float64 `json:"avg_logprob"`
	NoSpeechProb float64 `json:"no_speech_prob"`
}

// Transcribe uploads one audio file and returns per-word and per-segment
// timing. A response without word timestamps comes back with empty Words;
// the caller decides what that means.
func (c *Client) Transcribe(ctx context.Context, req captioner.TranscriptionRequest) (captioner.TranscriptionResult, error) {
	if c == nil {
		return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: nil client")
	}
	audioPath := strings.TrimSpace(req.Path)
	if audioPath == "" {
		return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: empty audio path")
	}
	if c.apiKey == "" {
		return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: missing api key")
	}
	if c.baseURL == "" {
		return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: missing base url")
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: open audio: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", c.model); err != nil {
		return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: write model field: %w", err)
	}
	if req.Language != "" {
		if err := writer.WriteField("language", req.Language); err != nil {
			return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: write language field: %w", err)
		}
	}
	if req.Prompt != "" {
		if err := writer.WriteField("prompt", req.Prompt); err != nil {
			return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: write prompt field: %w", err)
		}
	}
	if err := writer.WriteField("response_format", responseFormat); err != nil {
		return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: write format field: %w", err)
	}
	for _, granularity := range []string{"word", "segment"} {
		if err := writer.WriteField(granularityField, granularity); err != nil {
			return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: write granularity field: %w", err)
		}
	}

	field, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: create file field: %w", err)
	}
	if _, err := io.Copy(field, file); err != nil {
		return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: copy audio: %w", err)
	}

	if err := writer.Close(); err != nil {
		return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: close multipart writer: %w", err)
	}

	endpoint := c.baseURL + transcribePath
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: build request: %w", err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())
	request.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(request)
	if err != nil {
		return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: http request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed verboseResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return captioner.TranscriptionResult{}, fmt.Errorf("transcription client: decode response: %w", err)
	}
	return adaptResponse(parsed), nil
}

func adaptResponse(parsed verboseResponse) captioner.TranscriptionResult {
	result := captioner.TranscriptionResult{}
	if len(parsed.Words) > 0 {
		result.Words = make([]captioner.Word, 0, len(parsed.Words))
		for _, w := range parsed.Words {
			result.Words = append(result.Words, captioner.Word{
				Text:  w.Word,
				Start: w.Start,
				End:   w.End,
			})
		}
	}
	if len(parsed.Segments) > 0 {
		result.Segments = make([]captioner.ModelSegment, 0, len(parsed.Segments))
		for _, s := range parsed.Segments {
			result.Segments = append(result.Segments, captioner.ModelSegment{
				Start:        s.Start,
				End:          s.End,
				AvgLogProb:   s.AvgLogProb,
				NoSpeechProb: s.NoSpeechProb,
			})
		}
	}
	return result
}
