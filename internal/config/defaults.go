package config

// Default returns the built-in configuration values applied before a config
// file is decoded on top of them.
func Default() Config {
	return Config{
		Library: Library{
			Root:        "~/videos/library",
			MoviesDir:   "Movies",
			ShowsDir:    "Shows",
			UnknownDir:  "Unknown",
			ByStudioDir: "ByStudio",
			AuditLog:    "actors_detected.csv",
		},
		Ingest: Ingest{
			VideoExtensions:    []string{".mp4", ".mkv", ".avi", ".mov", ".wmv", ".m4v", ".mpg", ".mpeg", ".ts"},
			MaxWorkers:         4,
			ItemTimeoutSeconds: 600,
			StateDir:           "~/.local/share/videosort",
		},
		Analysis: Analysis{
			CaptureFrames: 5,
			DetectActors:  false,
			DetectStudios: false,
			ReferenceDB:   "~/.local/share/videosort/reference.db",
			OCRLanguage:   "eng",
			SignalFloor:   0.82,
		},
		Identity: Identity{
			TMDBBaseURL:         "https://api.themoviedb.org/3",
			TMDBLanguage:        "en-US",
			MinConfidence:       0.6,
			AmbiguityMargin:     0.05,
			CorroborationBonus:  0.05,
			CorroborationCap:    0.15,
			CandidateCap:        5,
			MatchesPerCandidate: 3,
			ProviderRetries:     3,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
			Dir:    "~/.local/share/videosort/logs",
		},
	}
}
