package frames

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Frame points at one extracted still image.
type Frame struct {
	Index  int     `json:"index"`
	Offset float64 `json:"offset"`
	Path   string  `json:"path"`
}

// edgeSkipFraction trims the head and tail of the runtime so sampling avoids
// studio cards, black lead-in, and credits-only frames.
const edgeSkipFraction = 0.02

type runnerFunc func(ctx context.Context, name string, args ...string) error

// Sampler extracts representative still frames from a video via ffmpeg.
type Sampler struct {
	binary string
	runner runnerFunc
}

// NewSampler constructs a Sampler invoking the given ffmpeg binary.
func NewSampler(binary string) *Sampler {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Sampler{binary: binary, runner: runCommand}
}

// SetRunnerForTests replaces command execution during tests.
func (s *Sampler) SetRunnerForTests(runner func(ctx context.Context, name string, args ...string) error) {
	if runner != nil {
		s.runner = runner
	}
}

// Offsets computes count evenly spaced timestamps across the usable window of
// the runtime. Returns nil when duration or count make sampling meaningless.
func Offsets(duration float64, count int) []float64 {
	if duration <= 0 || count < 1 {
		return nil
	}
	start := duration * edgeSkipFraction
	window := duration - 2*start
	if window <= 0 {
		start = 0
		window = duration
	}
	offsets := make([]float64, 0, count)
	step := window / float64(count)
	for i := 0; i < count; i++ {
		offsets = append(offsets, start+step*(float64(i)+0.5))
	}
	return offsets
}

// Extract decodes one frame per offset into dir as PNG files. Offsets that
// fail to decode are skipped; an error is returned only when every offset
// fails, since a video that yields no frames cannot be analyzed.
func (s *Sampler) Extract(ctx context.Context, videoPath, dir string, offsets []float64) ([]Frame, error) {
	if len(offsets) == 0 {
		return nil, fmt.Errorf("no sample offsets for %s", videoPath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame directory: %w", err)
	}

	var (
		extracted []Frame
		lastErr   error
	)
	for i, offset := range offsets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outPath := filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i))
		args := []string{
			"-v", "error",
			"-ss", fmt.Sprintf("%.3f", offset),
			"-i", videoPath,
			"-frames:v", "1",
			"-q:v", "2",
			"-y",
			outPath,
		}
		if err := s.runner(ctx, s.binary, args...); err != nil {
			lastErr = err
			continue
		}
		if info, err := os.Stat(outPath); err != nil || info.Size() == 0 {
			lastErr = fmt.Errorf("empty frame at offset %.1fs", offset)
			continue
		}
		extracted = append(extracted, Frame{Index: i, Offset: offset, Path: outPath})
	}

	if len(extracted) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("no frames produced")
		}
		return nil, fmt.Errorf("extract frames from %s: %w", videoPath, lastErr)
	}
	return extracted, nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
