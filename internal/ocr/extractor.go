package ocr

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/otiai10/gosseract/v2"

	"videosort/internal/media/frames"
)

// Fragment is one filtered line of on-screen text with its OCR confidence.
type Fragment struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	FrameIndex int     `json:"frame_index"`
}

// Engine recognizes text in a single image file.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) ([]Fragment, error)
}

// Extractor runs Tesseract over sampled frames via gosseract.
type Extractor struct {
	language string
}

// NewExtractor constructs an Extractor for the given Tesseract language.
func NewExtractor(language string) *Extractor {
	language = strings.TrimSpace(language)
	if language == "" {
		language = "eng"
	}
	return &Extractor{language: language}
}

// Recognize extracts text lines from one image. Fragments that fail the
// filter rules are dropped before they reach candidate generation.
func (e *Extractor) Recognize(ctx context.Context, imagePath string) ([]Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.language); err != nil {
		return nil, fmt.Errorf("set ocr language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return nil, fmt.Errorf("set page seg mode: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("set ocr image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("ocr bounding boxes: %w", err)
	}

	fragments := make([]Fragment, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if !KeepText(text) {
			continue
		}
		fragments = append(fragments, Fragment{
			Text:       text,
			Confidence: clamp01(box.Confidence / 100),
		})
	}
	return fragments, nil
}

// ExtractFrames runs the engine across every sampled frame, tagging fragments
// with their source frame index. Per-frame OCR failures are skipped; the
// remaining frames still contribute text.
func ExtractFrames(ctx context.Context, engine Engine, sampled []frames.Frame) ([]Fragment, error) {
	var all []Fragment
	for _, frame := range sampled {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fragments, err := engine.Recognize(ctx, frame.Path)
		if err != nil {
			continue
		}
		for _, fragment := range fragments {
			fragment.FrameIndex = frame.Index
			all = append(all, fragment)
		}
	}
	return all, nil
}

const minFragmentLength = 3

var stopPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`),            // timestamps
	regexp.MustCompile(`(?i)^(480p|720p|1080p|2160p|4k|8k)$`), // resolution tags
	regexp.MustCompile(`^\d+$`),                               // frame counters
}

// KeepText reports whether a recognized line is worth forwarding as a
// fragment: long enough, mostly textual, and not a known overlay artifact.
func KeepText(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) < minFragmentLength {
		return false
	}
	alnum := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	if alnum < 3 {
		return false
	}
	for _, pattern := range stopPatterns {
		if pattern.MatchString(text) {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
