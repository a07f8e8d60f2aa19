package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"videosort/internal/config"
	"videosort/internal/logging"
	"videosort/internal/media/ffprobe"
	"videosort/internal/media/frames"
	"videosort/internal/media/subtitles"
	"videosort/internal/ocr"
	"videosort/internal/queue"
	"videosort/internal/services"
	"videosort/internal/signals"
	"videosort/internal/stage"
)

// Analyzer is the pipeline stage that probes a video, samples frames, and
// extracts OCR fragments, embedded subtitle text, and actor and studio
// signals from it.
type Analyzer struct {
	cfg       *config.Config
	sampler   *frames.Sampler
	subtitler *subtitles.Extractor
	engine    ocr.Engine
	detector  *signals.Detector
	logger    *slog.Logger

	prober func(ctx context.Context, binary, path string) (ffprobe.Result, error)
}

// New constructs the analysis stage. engine may be nil to skip OCR;
// detector may be nil to skip signal detection.
func New(cfg *config.Config, engine ocr.Engine, detector *signals.Detector, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Analyzer{
		cfg:       cfg,
		sampler:   frames.NewSampler(cfg.FFmpegBinary()),
		subtitler: subtitles.NewExtractor(cfg.FFmpegBinary()),
		engine:    engine,
		detector:  detector,
		logger:    logging.NewComponentLogger(logger, "analyzer"),
		prober:    ffprobe.Inspect,
	}
}

// SetProberForTests replaces the ffprobe call during tests.
func (a *Analyzer) SetProberForTests(fn func(ctx context.Context, binary, path string) (ffprobe.Result, error)) {
	if fn != nil {
		a.prober = fn
	}
}

// Sampler exposes the frame sampler for test runner injection.
func (a *Analyzer) Sampler() *frames.Sampler {
	return a.sampler
}

// Subtitler exposes the subtitle extractor for test runner injection.
func (a *Analyzer) Subtitler() *subtitles.Extractor {
	return a.subtitler
}

// Prepare verifies the source file still exists.
func (a *Analyzer) Prepare(ctx context.Context, item *queue.Item) error {
	item.InitProgress("analyzing", "Analyzing video")
	if _, err := os.Stat(item.SourcePath); err != nil {
		return services.Wrap(services.ErrNotFound, "analyzing", "stat-source", "source file disappeared", err)
	}
	return nil
}

// Execute probes the video and harvests evidence from sampled frames.
// Unopenable or zero-duration files fail with ErrDecode; the orchestrator
// routes those to an UNKNOWN placement instead of retrying.
func (a *Analyzer) Execute(ctx context.Context, item *queue.Item) error {
	probe, err := a.prober(ctx, a.cfg.FFprobeBinary(), item.SourcePath)
	if err != nil {
		return services.Wrap(services.ErrDecode, "analyzing", "probe", "video could not be opened", err)
	}
	duration := probe.DurationSeconds()
	if duration <= 0 {
		return services.Wrap(services.ErrDecode, "analyzing", "probe", "video reports zero duration", nil)
	}
	item.DurationSeconds = duration
	item.Quality = probe.QualityLabel()

	frameDir, err := os.MkdirTemp("", "videosort-frames-*")
	if err != nil {
		return services.Wrap(nil, "analyzing", "temp-dir", "frame directory could not be created", err)
	}
	defer os.RemoveAll(frameDir)

	offsets := frames.Offsets(duration, a.cfg.Analysis.CaptureFrames)
	sampled, err := a.sampler.Extract(ctx, item.SourcePath, frameDir, offsets)
	if err != nil {
		return services.Wrap(services.ErrDecode, "analyzing", "extract-frames", "no frames could be extracted", err)
	}

	fragments, detected := a.harvest(ctx, sampled)

	dialog, err := a.subtitler.Extract(ctx, item.SourcePath, frameDir)
	if err != nil {
		return err
	}

	if item.FragmentsJSON, err = encodeJSON(fragments); err != nil {
		return services.Wrap(nil, "analyzing", "encode-fragments", "fragments could not be stored", err)
	}
	if item.SignalsJSON, err = encodeJSON(detected); err != nil {
		return services.Wrap(nil, "analyzing", "encode-signals", "signals could not be stored", err)
	}
	if item.SubtitlesJSON, err = encodeJSON(dialog); err != nil {
		return services.Wrap(nil, "analyzing", "encode-subtitles", "subtitle lines could not be stored", err)
	}

	a.logger.Info("analysis complete",
		logging.String(logging.FieldItemID, fmt.Sprintf("%d", item.ID)),
		logging.Int("frames", len(sampled)),
		logging.Int("fragments", len(fragments)),
		logging.Int("subtitle_lines", len(dialog)),
		logging.Int("signals", len(detected)),
		logging.String("quality", item.Quality))
	return nil
}

// HealthCheck verifies the external tools are resolvable.
func (a *Analyzer) HealthCheck(ctx context.Context) stage.Health {
	for _, binary := range []string{a.cfg.FFprobeBinary(), a.cfg.FFmpegBinary()} {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy("analyzer", fmt.Sprintf("%s not found in PATH", binary))
		}
	}
	return stage.Healthy("analyzer")
}

// harvest runs OCR and signal detection over the sampled frames
// concurrently. Both branches tolerate partial failure.
func (a *Analyzer) harvest(ctx context.Context, sampled []frames.Frame) ([]ocr.Fragment, []signals.Signal) {
	var (
		wg        sync.WaitGroup
		fragments []ocr.Fragment
		detected  []signals.Signal
	)

	if a.engine != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			extracted, err := ocr.ExtractFrames(ctx, a.engine, sampled)
			if err != nil {
				a.logger.Warn("ocr pass failed", logging.Error(err))
				return
			}
			fragments = extracted
		}()
	}

	if a.detector != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a.cfg.Analysis.DetectActors {
				detected = append(detected, a.detector.DetectActors(ctx, sampled)...)
			}
			if a.cfg.Analysis.DetectStudios {
				detected = append(detected, a.detector.DetectStudios(ctx, sampled)...)
			}
		}()
	}

	wg.Wait()
	return fragments, detected
}

func encodeJSON(value any) (string, error) {
	if value == nil {
		return "", nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
