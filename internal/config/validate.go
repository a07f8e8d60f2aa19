package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration invariants before any item is processed.
func (c *Config) Validate() error {
	if err := c.Library.validate(); err != nil {
		return err
	}
	if err := c.Ingest.validate(); err != nil {
		return err
	}
	if err := c.Analysis.validate(); err != nil {
		return err
	}
	if err := c.Identity.validate(); err != nil {
		return err
	}
	return c.Logging.validate()
}

func (l Library) validate() error {
	if strings.TrimSpace(l.Root) == "" {
		return fmt.Errorf("library.root must be set")
	}
	for key, value := range map[string]string{
		"library.movies_dir":    l.MoviesDir,
		"library.shows_dir":     l.ShowsDir,
		"library.unknown_dir":   l.UnknownDir,
		"library.by_studio_dir": l.ByStudioDir,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if strings.TrimSpace(l.AuditLog) == "" {
		return fmt.Errorf("library.audit_log must be set")
	}
	return nil
}

func (i Ingest) validate() error {
	if len(i.VideoExtensions) == 0 {
		return fmt.Errorf("ingest.video_extensions must list at least one extension")
	}
	if i.MaxWorkers < 1 {
		return fmt.Errorf("ingest.max_workers must be at least 1, got %d", i.MaxWorkers)
	}
	if i.ItemTimeoutSeconds < 1 {
		return fmt.Errorf("ingest.item_timeout_seconds must be positive, got %d", i.ItemTimeoutSeconds)
	}
	if strings.TrimSpace(i.StateDir) == "" {
		return fmt.Errorf("ingest.state_dir must be set")
	}
	return nil
}

func (a Analysis) validate() error {
	if a.CaptureFrames < 1 {
		return fmt.Errorf("analysis.capture_frames must be at least 1, got %d", a.CaptureFrames)
	}
	if a.SignalFloor < 0 || a.SignalFloor > 1 {
		return fmt.Errorf("analysis.signal_floor must be within [0, 1], got %g", a.SignalFloor)
	}
	if (a.DetectActors || a.DetectStudios) && strings.TrimSpace(a.ReferenceDB) == "" {
		return fmt.Errorf("analysis.reference_db must be set when actor or studio detection is enabled")
	}
	if strings.TrimSpace(a.OCRLanguage) == "" {
		return fmt.Errorf("analysis.ocr_language must be set")
	}
	return nil
}

func (i Identity) validate() error {
	if strings.TrimSpace(i.TMDBBaseURL) == "" {
		return fmt.Errorf("identity.tmdb_base_url must be set")
	}
	if i.MinConfidence <= 0 || i.MinConfidence > 1 {
		return fmt.Errorf("identity.min_confidence must be within (0, 1], got %g", i.MinConfidence)
	}
	if i.AmbiguityMargin < 0 || i.AmbiguityMargin >= i.MinConfidence {
		return fmt.Errorf("identity.ambiguity_margin must be within [0, min_confidence), got %g", i.AmbiguityMargin)
	}
	if i.CorroborationBonus < 0 {
		return fmt.Errorf("identity.corroboration_bonus must not be negative, got %g", i.CorroborationBonus)
	}
	if i.CorroborationCap < i.CorroborationBonus {
		return fmt.Errorf("identity.corroboration_cap must be at least the bonus, got %g < %g", i.CorroborationCap, i.CorroborationBonus)
	}
	if i.CandidateCap < 1 {
		return fmt.Errorf("identity.candidate_cap must be at least 1, got %d", i.CandidateCap)
	}
	if i.MatchesPerCandidate < 1 {
		return fmt.Errorf("identity.matches_per_candidate must be at least 1, got %d", i.MatchesPerCandidate)
	}
	if i.ProviderRetries < 0 {
		return fmt.Errorf("identity.provider_retries must not be negative, got %d", i.ProviderRetries)
	}
	return nil
}

func (l Logging) validate() error {
	switch strings.ToLower(strings.TrimSpace(l.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", l.Format)
	}
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", l.Level)
	}
	return nil
}
