package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"quill/internal/store"
)

// runJSONView is the stable JSON shape for a run in CLI output.
type runJSONView struct {
	ID            string  `json:"id"`
	SourcePath    string  `json:"source_path"`
	Title         string  `json:"title"`
	Status        string  `json:"status"`
	MediaDuration float64 `json:"media_duration_seconds"`
	Model         string  `json:"model,omitempty"`
	Language      string  `json:"language,omitempty"`
	ChunkCount    int     `json:"chunk_count"`
	GapCount      int     `json:"gap_count"`
	RepairedCount int     `json:"repaired_count"`
	CaptionCount  int     `json:"caption_count"`
	SRTPath       string  `json:"srt_path,omitempty"`
	ErrorMessage  string  `json:"error_message,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func newRunJSONView(run store.Run) runJSONView {
	return runJSONView{
		ID:            run.ID,
		SourcePath:    run.SourcePath,
		Title:         run.Title,
		Status:        string(run.Status),
		MediaDuration: run.MediaDuration,
		Model:         run.Model,
		Language:      run.Language,
		ChunkCount:    run.ChunkCount,
		GapCount:      run.GapCount,
		RepairedCount: run.RepairedCount,
		CaptionCount:  run.CaptionCount,
		SRTPath:       run.SRTPath,
		ErrorMessage:  run.ErrorMessage,
		CreatedAt:     run.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     run.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func buildRunListRows(runs []*store.Run) [][]string {
	if len(runs) == 0 {
		return nil
	}
	sorted := make([]*store.Run, len(runs))
	copy(sorted, runs)

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	rows := make([][]string, 0, len(sorted))
	for _, run := range sorted {
		rows = append(rows, []string{
			shortRunID(run.ID),
			formatStatusLabel(string(run.Status)),
			runDisplayTitle(*run),
			formatMediaClock(run.MediaDuration),
			fmt.Sprintf("%d", run.CaptionCount),
			fmt.Sprintf("%d", run.GapCount),
			formatDisplayTime(run.CreatedAt),
		})
	}
	return rows
}

func runDisplayTitle(run store.Run) string {
	title := strings.TrimSpace(run.Title)
	if title != "" {
		return title
	}
	source := strings.TrimSpace(run.SourcePath)
	if source != "" {
		return filepath.Base(source)
	}
	return "Unknown"
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func shortRunID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatMediaClock renders a duration in seconds as H:MM:SS (or M:SS below an
// hour). Unknown durations render as a dash.
func formatMediaClock(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	total := int(seconds + 0.5)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func formatDisplayTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

// formatSpan renders a gap or caption range as start-end seconds with
// millisecond precision.
func formatSpan(start, end float64) string {
	return fmt.Sprintf("%.3f-%.3f", start, end)
}
