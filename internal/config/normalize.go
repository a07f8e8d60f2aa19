package config

import "strings"

// normalize expands user paths and canonicalizes list values after decode.
func (c *Config) normalize() error {
	var err error
	if c.Library.Root, err = expandPath(c.Library.Root); err != nil {
		return err
	}
	if c.Ingest.StateDir, err = expandPath(c.Ingest.StateDir); err != nil {
		return err
	}
	if c.Analysis.ReferenceDB, err = expandPath(c.Analysis.ReferenceDB); err != nil {
		return err
	}
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return err
	}

	exts := make([]string, 0, len(c.Ingest.VideoExtensions))
	for _, ext := range c.Ingest.VideoExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	c.Ingest.VideoExtensions = exts

	c.Identity.TMDBBaseURL = strings.TrimRight(strings.TrimSpace(c.Identity.TMDBBaseURL), "/")
	c.Analysis.OCRLanguage = strings.TrimSpace(c.Analysis.OCRLanguage)
	return nil
}
