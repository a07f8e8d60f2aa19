package identification

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MediaType classifies a decision outcome.
type MediaType string

const (
	MediaTypeMovie   MediaType = "movie"
	MediaTypeShow    MediaType = "show"
	MediaTypeUnknown MediaType = "unknown"
)

// Candidate is one possible title for a video, with the confidence of the
// source it came from.
type Candidate struct {
	Title      string  `json:"title"`
	Year       int     `json:"year,omitempty"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// Candidate sources.
const (
	SourceFilename = "filename"
	SourceOCR      = "ocr"
	SourceSubtitle = "subtitle"
)

// MetadataMatch is one provider search result tied back to the candidate
// that produced it.
type MetadataMatch struct {
	ProviderID          int64     `json:"provider_id"`
	MediaType           MediaType `json:"media_type"`
	Title               string    `json:"title"`
	Year                int       `json:"year,omitempty"`
	Popularity          float64   `json:"popularity"`
	CandidateConfidence float64   `json:"candidate_confidence"`
}

// ActorContribution records one actor signal that corroborated the
// accepted decision, for the audit log.
type ActorContribution struct {
	ActorID    string  `json:"actor_id"`
	Confidence float64 `json:"confidence"`
}

// Decision is the final identification outcome for a video.
type Decision struct {
	MediaType    MediaType           `json:"media_type"`
	Title        string              `json:"title,omitempty"`
	Year         int                 `json:"year,omitempty"`
	Season       int                 `json:"season,omitempty"`
	Episode      int                 `json:"episode,omitempty"`
	Confidence   float64             `json:"confidence"`
	Studio       string              `json:"studio,omitempty"`
	Actors       []ActorContribution `json:"actors,omitempty"`
	NeedsReview  bool                `json:"needs_review,omitempty"`
	ReviewReason string              `json:"review_reason,omitempty"`
}

// Unknown reports whether the decision declined to identify the video.
func (d Decision) Unknown() bool {
	return d.MediaType == MediaTypeUnknown || d.MediaType == ""
}

// Describe renders a short operator-facing summary of the decision.
func (d Decision) Describe() string {
	switch d.MediaType {
	case MediaTypeMovie:
		if d.Year > 0 {
			return fmt.Sprintf("%s (%d)", d.Title, d.Year)
		}
		return d.Title
	case MediaTypeShow:
		return fmt.Sprintf("%s S%02dE%02d", d.Title, d.Season, d.Episode)
	default:
		return "unknown"
	}
}

// EncodeDecision serializes a decision for queue persistence.
func EncodeDecision(d Decision) (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode decision: %w", err)
	}
	return string(raw), nil
}

// DecodeDecision deserializes a persisted decision. An empty payload
// decodes as UNKNOWN so older rows remain readable.
func DecodeDecision(payload string) (Decision, error) {
	if strings.TrimSpace(payload) == "" {
		return Decision{MediaType: MediaTypeUnknown}, nil
	}
	var d Decision
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return Decision{}, fmt.Errorf("decode decision: %w", err)
	}
	if d.MediaType == "" {
		d.MediaType = MediaTypeUnknown
	}
	return d, nil
}
