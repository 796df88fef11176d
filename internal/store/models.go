package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a captioning run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusReview    Status = "review"
)

var allStatuses = []Status{
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus normalizes a user-supplied status string.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// Run represents one captioning invocation persisted in SQLite.
type Run struct {
	ID            string
	SourcePath    string
	Title         string
	Status        Status
	MediaDuration float64
	Model         string
	Language      string
	ChunkCount    int
	GapCount      int
	RepairedCount int
	CaptionCount  int
	SRTPath       string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Caption is a persisted caption segment belonging to a run. Words carry
// segment-relative offsets and are stored as JSON.
type Caption struct {
	RunID        string
	Position     int
	SegmentID    string
	Start        float64
	End          float64
	Text         string
	AvgLogProb   float64
	NoSpeechProb float64
	Origin       string
	WordsJSON    string
}

// Caption origin values.
const (
	OriginChunk  = "chunk"
	OriginRepair = "repair"
)

// Gap records one suspected-speech range examined during gap repair and how
// it was resolved.
type Gap struct {
	RunID    string
	Position int
	Start    float64
	End      float64
	Outcome  string
}

// Gap outcome values.
const (
	GapRepaired  = "repaired"
	GapExhausted = "exhausted"
)
