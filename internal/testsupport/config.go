package testsupport

import (
	"path/filepath"
	"testing"

	"videosort/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Library.Root = filepath.Join(base, "library")
	cfg.Ingest.StateDir = filepath.Join(base, "state")
	cfg.Logging.Dir = filepath.Join(base, "logs")
	cfg.Identity.TMDBAPIKey = "test"
	cfg.Analysis.DetectActors = false
	cfg.Analysis.DetectStudios = false

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithTMDBKey sets the TMDB API key on the test config.
func WithTMDBKey(key string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Identity.TMDBAPIKey = key
	}
}

// WithDetection enables signal detection against the given reference db.
func WithDetection(referenceDB string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Analysis.DetectActors = true
		cfg.Analysis.DetectStudios = true
		cfg.Analysis.ReferenceDB = referenceDB
	}
}
