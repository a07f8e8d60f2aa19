package identification

import (
	"testing"

	"videosort/internal/ocr"
)

func TestExtractEpisode(t *testing.T) {
	cases := []struct {
		in      string
		season  int
		episode int
		ok      bool
	}{
		{"Breaking.Bad.S01E02.mkv", 1, 2, true},
		{"show 3x11 finale.mkv", 3, 11, true},
		{"Show Season 2 Episode 5.mkv", 2, 5, true},
		{"serie_T1C02.avi", 1, 2, true},
		{"s10e100.mkv", 10, 100, true},
		{"Inception.2010.mkv", 0, 0, false},
		{"episode 101.mkv", 0, 0, false},
		{"S00E01.mkv", 0, 0, false},
	}
	for _, tc := range cases {
		ref, ok := ExtractEpisode(tc.in)
		if ok != tc.ok || ref.Season != tc.season || ref.Episode != tc.episode {
			t.Errorf("ExtractEpisode(%q) = %+v %v, want S%dE%d %v", tc.in, ref, ok, tc.season, tc.episode, tc.ok)
		}
	}
}

func TestExtractEpisodeFallsBackToOCR(t *testing.T) {
	fragments := []ocr.Fragment{
		{Text: "Previously on"},
		{Text: "Season 4 Episode 8"},
	}
	ref, ok := ExtractEpisodeFromSources("unlabeled.mkv", fragments)
	if !ok || ref.Season != 4 || ref.Episode != 8 {
		t.Fatalf("ref = %+v ok = %v", ref, ok)
	}
}

func TestExtractEpisodePrefersFilename(t *testing.T) {
	fragments := []ocr.Fragment{{Text: "Season 9 Episode 9"}}
	ref, ok := ExtractEpisodeFromSources("show.S02E03.mkv", fragments)
	if !ok || ref.Season != 2 || ref.Episode != 3 {
		t.Fatalf("ref = %+v ok = %v", ref, ok)
	}
}
