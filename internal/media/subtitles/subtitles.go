// Package subtitles pulls embedded subtitle text out of video files so the
// dialog can serve as a last-resort identification source.
package subtitles

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

type runnerFunc func(ctx context.Context, name string, args ...string) error

// Extractor dumps the first embedded subtitle stream via ffmpeg.
type Extractor struct {
	binary string
	runner runnerFunc
}

// NewExtractor constructs an Extractor invoking the given ffmpeg binary.
func NewExtractor(binary string) *Extractor {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Extractor{binary: binary, runner: runCommand}
}

// SetRunnerForTests replaces command execution during tests.
func (e *Extractor) SetRunnerForTests(runner func(ctx context.Context, name string, args ...string) error) {
	if runner != nil {
		e.runner = runner
	}
}

// Extract dumps the first subtitle stream of videoPath into dir and returns
// its dialog lines. A video without an embedded subtitle stream yields nil;
// ffmpeg exits nonzero in that case, so extraction failures are not errors.
func (e *Extractor) Extract(ctx context.Context, videoPath, dir string) ([]string, error) {
	outPath := filepath.Join(dir, "subtitles.srt")
	args := []string{
		"-v", "error",
		"-i", videoPath,
		"-map", "0:s:0",
		"-y",
		outPath,
	}
	if err := e.runner(ctx, e.binary, args...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, nil
	}
	return ParseSRT(string(data)), nil
}

var (
	indexLinePattern = regexp.MustCompile(`^\d+$`)
	markupPattern    = regexp.MustCompile(`<[^>]*>|\{[^}]*\}`)
)

// ParseSRT reduces SubRip text to its unique dialog lines, dropping cue
// indices, timing lines, and markup.
func ParseSRT(data string) []string {
	var lines []string
	seen := make(map[string]struct{})
	for _, raw := range strings.Split(data, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || indexLinePattern.MatchString(line) || strings.Contains(line, "-->") {
			continue
		}
		line = strings.TrimSpace(markupPattern.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		key := strings.ToLower(line)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		lines = append(lines, line)
	}
	return lines
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
