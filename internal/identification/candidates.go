package identification

import (
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"videosort/internal/ocr"
	"videosort/internal/textutil"
)

const (
	filenameConfidence = 0.5
	minCandidateLength = 3
	maxCandidateLength = 80

	// Subtitle dialog is the weakest identity source: it ranks below the
	// filename and only a handful of lines are worth querying.
	subtitleConfidence    = 0.3
	maxSubtitleCandidates = 5
)

var (
	bracketPattern   = regexp.MustCompile(`[\[({][^\])}]*[\])}]`)
	yearPattern      = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	separatorPattern = regexp.MustCompile(`[._\-]+`)
	multiSpace       = regexp.MustCompile(`\s{2,}`)
)

// releaseTerms are rip/encode vocabulary stripped from filenames before the
// remainder is treated as a title.
var releaseTerms = map[string]struct{}{
	"2160p": {}, "1080p": {}, "720p": {}, "480p": {}, "4k": {}, "uhd": {},
	"bluray": {}, "blu-ray": {}, "bdrip": {}, "brrip": {}, "dvdrip": {},
	"webrip": {}, "webdl": {}, "web-dl": {}, "web": {}, "hdtv": {}, "hdrip": {},
	"x264": {}, "x265": {}, "h264": {}, "h265": {}, "hevc": {}, "avc": {}, "xvid": {},
	"aac": {}, "ac3": {}, "dts": {}, "ddp5": {}, "dd5": {}, "atmos": {}, "truehd": {},
	"remux": {}, "proper": {}, "repack": {}, "extended": {}, "unrated": {},
	"internal": {}, "limited": {}, "multi": {}, "subbed": {}, "dubbed": {},
	"10bit": {}, "8bit": {}, "hdr": {}, "hdr10": {}, "dv": {}, "sdr": {},
}

// CleanFilename strips the extension, bracketed release tags, release
// vocabulary, and separators from a filename, returning a title guess.
func CleanFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = bracketPattern.ReplaceAllString(base, " ")
	base = separatorPattern.ReplaceAllString(base, " ")
	for _, pattern := range episodePatterns {
		base = pattern.ReplaceAllString(base, " ")
	}

	words := strings.Fields(base)
	var kept []string
	for _, word := range words {
		if _, release := releaseTerms[strings.ToLower(word)]; release {
			// Everything after the first release term is tagging, not title.
			break
		}
		kept = append(kept, word)
	}
	cleaned := strings.Join(kept, " ")
	cleaned = yearPattern.ReplaceAllString(cleaned, " ")
	cleaned = multiSpace.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// ExtractYear finds a plausible release year in the text, or 0.
func ExtractYear(text string) int {
	match := yearPattern.FindString(text)
	if match == "" {
		return 0
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return year
}

// looksLikeTitle filters OCR fragments down to plausible on-screen titles.
func looksLikeTitle(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minCandidateLength || len(trimmed) > maxCandidateLength {
		return false
	}
	if !ocr.KeepText(trimmed) {
		return false
	}
	if len(yearPattern.FindAllString(trimmed, -1)) > 1 {
		return false
	}
	var letters, uppers int
	for _, r := range trimmed {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	if letters == 0 {
		return false
	}
	// Titles are usually capitalized or all-caps on screen.
	return uppers > 0
}

// GenerateCandidates produces title candidates from OCR fragments, the
// filename, and embedded subtitle dialog. OCR candidates come first ordered
// by descending confidence, then the filename candidate, then subtitle
// lines as the last resort. Duplicate titles keep the highest confidence.
// The result is never empty.
func GenerateCandidates(fileName string, fragments []ocr.Fragment, dialog []string) []Candidate {
	var ocrCandidates []Candidate
	for _, fragment := range fragments {
		if !looksLikeTitle(fragment.Text) {
			continue
		}
		text := strings.TrimSpace(fragment.Text)
		year := ExtractYear(text)
		title := strings.TrimSpace(multiSpace.ReplaceAllString(yearPattern.ReplaceAllString(text, " "), " "))
		if len(title) < minCandidateLength {
			continue
		}
		ocrCandidates = append(ocrCandidates, Candidate{
			Title:      title,
			Year:       year,
			Confidence: fragment.Confidence,
			Source:     SourceOCR,
		})
	}
	sort.SliceStable(ocrCandidates, func(i, j int) bool {
		return ocrCandidates[i].Confidence > ocrCandidates[j].Confidence
	})

	cleaned := CleanFilename(fileName)
	filenameCandidate := Candidate{
		Title:      textutil.TitleCase(cleaned),
		Year:       ExtractYear(fileName),
		Confidence: filenameConfidence,
		Source:     SourceFilename,
	}
	if filenameCandidate.Title == "" {
		filenameCandidate.Title = strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	}

	candidates := append(ocrCandidates, filenameCandidate)
	candidates = append(candidates, subtitleCandidates(dialog)...)
	return dedupeCandidates(candidates)
}

// subtitleCandidates turns embedded dialog lines into last-resort search
// queries, capped so subtitle text cannot crowd out stronger sources.
func subtitleCandidates(dialog []string) []Candidate {
	var out []Candidate
	for _, line := range dialog {
		if len(out) == maxSubtitleCandidates {
			break
		}
		line = strings.TrimSpace(line)
		if len(line) < minCandidateLength || len(line) > maxCandidateLength {
			continue
		}
		if !ocr.KeepText(line) {
			continue
		}
		out = append(out, Candidate{
			Title:      line,
			Confidence: subtitleConfidence,
			Source:     SourceSubtitle,
		})
	}
	return out
}

// dedupeCandidates removes case-insensitive duplicates, keeping the first
// occurrence's position and the maximum confidence seen for the title.
func dedupeCandidates(candidates []Candidate) []Candidate {
	seen := make(map[string]int)
	var out []Candidate
	for _, candidate := range candidates {
		key := strings.ToLower(candidate.Title)
		if idx, ok := seen[key]; ok {
			if candidate.Confidence > out[idx].Confidence {
				out[idx].Confidence = candidate.Confidence
			}
			if out[idx].Year == 0 && candidate.Year > 0 {
				out[idx].Year = candidate.Year
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, candidate)
	}
	return out
}

// NormalizeTitle produces the canonical comparison form of a title:
// lowercase, punctuation stripped, whitespace collapsed.
func NormalizeTitle(title string) string {
	var builder strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			builder.WriteRune(r)
		case unicode.IsSpace(r):
			builder.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}
