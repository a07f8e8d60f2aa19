package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending     Status = "pending"
	StatusAnalyzing   Status = "analyzing"
	StatusAnalyzed    Status = "analyzed"
	StatusIdentifying Status = "identifying"
	StatusIdentified  Status = "identified"
	StatusOrganizing  Status = "organizing"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusReview      Status = "review"
)

var allStatuses = []Status{
	StatusPending,
	StatusAnalyzing,
	StatusAnalyzed,
	StatusIdentifying,
	StatusIdentified,
	StatusOrganizing,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var processingStatuses = map[Status]struct{}{
	StatusAnalyzing:   {},
	StatusIdentifying: {},
	StatusOrganizing:  {},
}

// Item represents one video file tracked through the pipeline.
type Item struct {
	ID              int64
	SourcePath      string
	SourceSize      int64
	Status          Status
	Quality         string
	DurationSeconds float64
	FragmentsJSON   string
	SignalsJSON     string
	SubtitlesJSON   string
	DecisionJSON    string
	FinalPath       string
	ErrorMessage    string
	RunID           string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	NeedsReview     bool
	ReviewReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// InitProgress resets the progress fields at the start of a stage.
func (i *Item) InitProgress(stage, message string) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = 0
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsProcessing reports whether the status marks an item claimed by a worker.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// IsTerminal reports whether the status ends the pipeline for an item.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusReview
}

// Summary describes aggregated queue counts per lifecycle state.
type Summary struct {
	Total     int
	Pending   int
	Working   int
	Completed int
	Failed    int
	Review    int
}
