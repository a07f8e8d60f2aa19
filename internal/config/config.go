package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Library contains the output directory layout for placed files.
type Library struct {
	Root        string `toml:"root"`
	MoviesDir   string `toml:"movies_dir"`
	ShowsDir    string `toml:"shows_dir"`
	UnknownDir  string `toml:"unknown_dir"`
	ByStudioDir string `toml:"by_studio_dir"`
	AuditLog    string `toml:"audit_log"`
}

// Ingest contains input enumeration and batch execution settings.
type Ingest struct {
	VideoExtensions    []string `toml:"video_extensions"`
	MaxWorkers         int      `toml:"max_workers"`
	ItemTimeoutSeconds int      `toml:"item_timeout_seconds"`
	StateDir           string   `toml:"state_dir"`
}

// Analysis contains frame sampling and signal detection settings.
type Analysis struct {
	CaptureFrames int     `toml:"capture_frames"`
	DetectActors  bool    `toml:"detect_actors"`
	DetectStudios bool    `toml:"detect_studios"`
	ReferenceDB   string  `toml:"reference_db"`
	OCRLanguage   string  `toml:"ocr_language"`
	SignalFloor   float64 `toml:"signal_floor"`
}

// Identity contains metadata provider and decision scoring settings.
type Identity struct {
	TMDBAPIKey          string  `toml:"tmdb_api_key"`
	TMDBBaseURL         string  `toml:"tmdb_base_url"`
	TMDBLanguage        string  `toml:"tmdb_language"`
	MinConfidence       float64 `toml:"min_confidence"`
	AmbiguityMargin     float64 `toml:"ambiguity_margin"`
	CorroborationBonus  float64 `toml:"corroboration_bonus"`
	CorroborationCap    float64 `toml:"corroboration_cap"`
	CandidateCap        int     `toml:"candidate_cap"`
	MatchesPerCandidate int     `toml:"matches_per_candidate"`
	ProviderRetries     int     `toml:"provider_retries"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for a batch run.
//
// Configuration sections by subsystem:
//   - Library: destination directory layout and audit log location
//   - Ingest: accepted extensions, worker pool size, per-item timeout
//   - Analysis: frame capture count, OCR language, actor/studio detection
//   - Identity: TMDB access and fusion scoring thresholds
//   - Logging: log format, level, and directory
type Config struct {
	Library  Library  `toml:"library"`
	Ingest   Ingest   `toml:"ingest"`
	Analysis Analysis `toml:"analysis"`
	Identity Identity `toml:"identity"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/videosort/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/videosort/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("videosort.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates directories required before a batch run starts.
// Library directories are created on a best-effort basis so a run can be
// prepared while external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Ingest.StateDir, c.Logging.Dir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, dir := range []string{c.MoviesPath(), c.ShowsPath(), c.UnknownPath(), c.ByStudioPath()} {
		// Best-effort to avoid failing config load when storage is offline.
		_ = os.MkdirAll(dir, 0o755)
	}
	return nil
}

// MoviesPath returns the absolute movies destination directory.
func (c *Config) MoviesPath() string { return c.libraryPath(c.Library.MoviesDir) }

// ShowsPath returns the absolute shows destination directory.
func (c *Config) ShowsPath() string { return c.libraryPath(c.Library.ShowsDir) }

// UnknownPath returns the absolute destination for unidentified files.
func (c *Config) UnknownPath() string { return c.libraryPath(c.Library.UnknownDir) }

// ByStudioPath returns the absolute destination for studio-grouped files.
func (c *Config) ByStudioPath() string { return c.libraryPath(c.Library.ByStudioDir) }

// AuditLogPath returns the absolute path of the actor-detection audit CSV.
func (c *Config) AuditLogPath() string {
	if filepath.IsAbs(c.Library.AuditLog) {
		return c.Library.AuditLog
	}
	return filepath.Join(c.Library.Root, c.Library.AuditLog)
}

// QueueDatabasePath returns the SQLite path backing the batch queue.
func (c *Config) QueueDatabasePath() string {
	return filepath.Join(c.Ingest.StateDir, "queue.db")
}

// RunLockPath returns the lock file guarding against concurrent batch runs.
func (c *Config) RunLockPath() string {
	return filepath.Join(c.Ingest.StateDir, "videosort.lock")
}

func (c *Config) libraryPath(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.Library.Root, dir)
}

// FFprobeBinary returns the ffprobe executable name used for media probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// FFmpegBinary returns the ffmpeg executable name used for frame extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// AcceptsExtension reports whether the path carries a configured video extension.
func (c *Config) AcceptsExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, allowed := range c.Ingest.VideoExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
