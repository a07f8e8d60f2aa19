package identification

import (
	"regexp"
	"strconv"

	"videosort/internal/ocr"
)

// EpisodeRef is a season/episode pair extracted from a filename or OCR text.
type EpisodeRef struct {
	Season  int
	Episode int
}

// Filename patterns tried in order. A bare trailing "101" is deliberately
// not matched; it is ambiguous with movie titles and years.
var episodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bS(\d{1,2})[\s._-]?E(\d{1,3})\b`),
	regexp.MustCompile(`(?i)\b(\d{1,2})x(\d{1,3})\b`),
	regexp.MustCompile(`(?i)\bSeason[\s._-]*(\d{1,2})[\s._-]*Episode[\s._-]*(\d{1,3})\b`),
	regexp.MustCompile(`(?i)\bT(\d{1,2})C(\d{1,3})\b`),
}

// ExtractEpisode finds a season/episode reference in text.
func ExtractEpisode(text string) (EpisodeRef, bool) {
	for _, pattern := range episodePatterns {
		groups := pattern.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		season, err := strconv.Atoi(groups[1])
		if err != nil || season < 1 {
			continue
		}
		episode, err := strconv.Atoi(groups[2])
		if err != nil || episode < 1 {
			continue
		}
		return EpisodeRef{Season: season, Episode: episode}, true
	}
	return EpisodeRef{}, false
}

// ExtractEpisodeFromSources tries the filename first, then OCR fragments.
func ExtractEpisodeFromSources(fileName string, fragments []ocr.Fragment) (EpisodeRef, bool) {
	if ref, ok := ExtractEpisode(fileName); ok {
		return ref, true
	}
	for _, fragment := range fragments {
		if ref, ok := ExtractEpisode(fragment.Text); ok {
			return ref, true
		}
	}
	return EpisodeRef{}, false
}
