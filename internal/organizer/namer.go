package organizer

import (
	"fmt"
	"path/filepath"

	"videosort/internal/config"
	"videosort/internal/identification"
	"videosort/internal/textutil"
)

// DestinationPath computes the library path for a decision. Layouts:
//
//	Movies/{Title} ({Year})/{Title} ({Year}) [{Quality}].{ext}
//	Shows/{Title} ({Year})/Season {NN}/{Title} S{NN}E{NN} [{Quality}].{ext}
//	Unknown/{original filename}
//	ByStudio/{Studio}/{original filename}
//
// The quality bracket is omitted when no quality label is known. Unknown
// decisions with a studio signal route to ByStudio only when studio
// detection is enabled.
func DestinationPath(cfg *config.Config, decision identification.Decision, sourcePath, quality string) string {
	ext := filepath.Ext(sourcePath)
	original := filepath.Base(sourcePath)

	switch decision.MediaType {
	case identification.MediaTypeMovie:
		title := textutil.SanitizeFileName(decision.Title)
		dirName := title
		fileName := title
		if decision.Year > 0 {
			dirName = fmt.Sprintf("%s (%d)", title, decision.Year)
			fileName = dirName
		}
		if quality != "" {
			fileName = fmt.Sprintf("%s [%s]", fileName, quality)
		}
		return filepath.Join(cfg.MoviesPath(), dirName, fileName+ext)

	case identification.MediaTypeShow:
		title := textutil.SanitizeFileName(decision.Title)
		dirName := title
		if decision.Year > 0 {
			dirName = fmt.Sprintf("%s (%d)", title, decision.Year)
		}
		season := fmt.Sprintf("Season %02d", decision.Season)
		fileName := fmt.Sprintf("%s S%02dE%02d", title, decision.Season, decision.Episode)
		if quality != "" {
			fileName = fmt.Sprintf("%s [%s]", fileName, quality)
		}
		return filepath.Join(cfg.ShowsPath(), dirName, season, fileName+ext)

	default:
		if decision.Studio != "" && cfg.Analysis.DetectStudios {
			studio := textutil.SanitizeFileName(decision.Studio)
			return filepath.Join(cfg.ByStudioPath(), studio, original)
		}
		return filepath.Join(cfg.UnknownPath(), original)
	}
}
