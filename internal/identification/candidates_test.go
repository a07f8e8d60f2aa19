package identification

import (
	"testing"

	"videosort/internal/ocr"
)

func TestCleanFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Inception.2010.1080p.BluRay.x264.mkv", "Inception"},
		{"The.Matrix.1999.REMUX.mkv", "The Matrix"},
		{"some_movie_[release-group].mp4", "some movie"},
		{"Breaking.Bad.S01E02.720p.HDTV.mkv", "Breaking Bad"},
		{"plain title.avi", "plain title"},
	}
	for _, tc := range cases {
		if got := CleanFilename(tc.in); got != tc.want {
			t.Errorf("CleanFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractYear(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"Inception.2010.1080p.mkv", 2010},
		{"Casablanca (1942).mkv", 1942},
		{"No Year Here.mkv", 0},
		{"12345 not a year", 0},
	}
	for _, tc := range cases {
		if got := ExtractYear(tc.in); got != tc.want {
			t.Errorf("ExtractYear(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestGenerateCandidatesNeverEmpty(t *testing.T) {
	got := GenerateCandidates("...mkv", nil, nil)
	if len(got) == 0 {
		t.Fatal("candidate list must never be empty")
	}
	if got[len(got)-1].Source != SourceFilename {
		t.Fatalf("last candidate should be filename, got %+v", got[len(got)-1])
	}
}

func TestGenerateCandidatesPromotesOCRTitles(t *testing.T) {
	fragments := []ocr.Fragment{
		{Text: "INCEPTION", Confidence: 0.95},
		{Text: "12:34", Confidence: 0.99},
		{Text: "Some Studio Presents", Confidence: 0.7},
	}
	got := GenerateCandidates("scan0001.mkv", fragments, nil)
	if len(got) < 3 {
		t.Fatalf("candidates = %+v", got)
	}
	if got[0].Title != "INCEPTION" || got[0].Source != SourceOCR {
		t.Fatalf("first candidate = %+v", got[0])
	}
	if got[len(got)-1].Source != SourceFilename {
		t.Fatalf("filename candidate must be last, got %+v", got[len(got)-1])
	}
	for _, candidate := range got {
		if candidate.Title == "12:34" {
			t.Fatal("timestamp fragment should have been filtered")
		}
	}
}

func TestGenerateCandidatesDedupesCaseInsensitively(t *testing.T) {
	fragments := []ocr.Fragment{
		{Text: "Inception", Confidence: 0.6},
		{Text: "INCEPTION", Confidence: 0.9},
	}
	got := GenerateCandidates("inception.mkv", fragments, nil)
	var count int
	for _, candidate := range got {
		if NormalizeTitle(candidate.Title) == "inception" {
			count++
			if candidate.Confidence < 0.9 {
				t.Fatalf("dedupe should keep max confidence, got %+v", candidate)
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected one inception candidate, got %d", count)
	}
}

func TestGenerateCandidatesCarriesYearFromFragment(t *testing.T) {
	got := GenerateCandidates("scan.mkv", []ocr.Fragment{{Text: "Inception 2010", Confidence: 0.8}}, nil)
	if got[0].Title != "Inception" || got[0].Year != 2010 {
		t.Fatalf("candidate = %+v", got[0])
	}
}

func TestGenerateCandidatesAppendsSubtitleDialogLast(t *testing.T) {
	dialog := []string{
		"My name is Walter Hartwell White.",
		"ok", // too short
		"12:34",
		"Say my name.",
	}
	got := GenerateCandidates("homemovie.mkv", nil, dialog)
	if len(got) != 3 {
		t.Fatalf("candidates = %+v", got)
	}
	if got[0].Source != SourceFilename {
		t.Fatalf("filename must outrank subtitles, got %+v", got[0])
	}
	if got[1].Source != SourceSubtitle || got[1].Title != "My name is Walter Hartwell White." {
		t.Fatalf("candidate = %+v", got[1])
	}
	if got[1].Confidence >= got[0].Confidence {
		t.Fatalf("subtitle confidence %f must stay below filename %f", got[1].Confidence, got[0].Confidence)
	}
	if got[2].Title != "Say my name." {
		t.Fatalf("candidate = %+v", got[2])
	}
}

func TestGenerateCandidatesCapsSubtitleLines(t *testing.T) {
	var dialog []string
	for i := 0; i < 20; i++ {
		dialog = append(dialog, "Unique dialog line number "+string(rune('A'+i)))
	}
	got := GenerateCandidates("homemovie.mkv", nil, dialog)
	var subtitleCount int
	for _, candidate := range got {
		if candidate.Source == SourceSubtitle {
			subtitleCount++
		}
	}
	if subtitleCount != maxSubtitleCandidates {
		t.Fatalf("subtitle candidates = %d", subtitleCount)
	}
}

func TestNormalizeTitle(t *testing.T) {
	if got := NormalizeTitle("  The  MATRIX: Reloaded! "); got != "the matrix reloaded" {
		t.Fatalf("NormalizeTitle = %q", got)
	}
}
