package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"videosort/internal/media/ffprobe"
	"videosort/internal/ocr"
	"videosort/internal/queue"
	"videosort/internal/refdb"
	"videosort/internal/services"
	"videosort/internal/signals"
	"videosort/internal/testsupport"
)

type stubEngine struct {
	fragments []ocr.Fragment
	err       error
}

func (s *stubEngine) Recognize(ctx context.Context, imagePath string) ([]ocr.Fragment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.fragments, nil
}

func probeResult(duration string, height int) ffprobe.Result {
	return ffprobe.Result{
		Format:  ffprobe.Format{Duration: duration},
		Streams: []ffprobe.Stream{{CodecType: "video", Width: height * 16 / 9, Height: height}},
	}
}

// fakeRunner writes a non-empty file at the output path, which the sampler
// takes as the last argument.
func fakeRunner(ctx context.Context, name string, args ...string) error {
	return os.WriteFile(args[len(args)-1], []byte("png"), 0o644)
}

// noSubtitleRunner mimics ffmpeg failing because the input carries no
// subtitle stream.
func noSubtitleRunner(ctx context.Context, name string, args ...string) error {
	return errors.New("Stream map '0:s:0' matches no streams")
}

func sourceFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mkv")
	testsupport.WriteFile(t, path, 128)
	return path
}

func TestAnalyzerExtractsFragmentsAndQuality(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	engine := &stubEngine{fragments: []ocr.Fragment{{Text: "INCEPTION", Confidence: 0.92}}}
	analyzer := New(cfg, engine, nil, nil)
	analyzer.SetProberForTests(func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		return probeResult("7200.0", 1080), nil
	})
	analyzer.Sampler().SetRunnerForTests(fakeRunner)
	analyzer.Subtitler().SetRunnerForTests(noSubtitleRunner)

	item := &queue.Item{ID: 1, SourcePath: sourceFile(t)}
	if err := analyzer.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.Quality != "1080p" {
		t.Fatalf("quality = %q", item.Quality)
	}
	if item.DurationSeconds != 7200 {
		t.Fatalf("duration = %f", item.DurationSeconds)
	}

	var fragments []ocr.Fragment
	if err := json.Unmarshal([]byte(item.FragmentsJSON), &fragments); err != nil {
		t.Fatalf("fragments json: %v", err)
	}
	// One fragment per sampled frame from the stub engine.
	if len(fragments) != cfg.Analysis.CaptureFrames {
		t.Fatalf("fragments = %d", len(fragments))
	}
}

func TestAnalyzerUnopenableFileIsDecodeError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	analyzer := New(cfg, nil, nil, nil)
	analyzer.SetProberForTests(func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		return ffprobe.Result{}, errors.New("moov atom not found")
	})

	err := analyzer.Execute(context.Background(), &queue.Item{ID: 2, SourcePath: sourceFile(t)})
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestAnalyzerZeroDurationIsDecodeError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	analyzer := New(cfg, nil, nil, nil)
	analyzer.SetProberForTests(func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		return probeResult("0", 1080), nil
	})

	err := analyzer.Execute(context.Background(), &queue.Item{ID: 3, SourcePath: sourceFile(t)})
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestAnalyzerAllFramesFailedIsDecodeError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	analyzer := New(cfg, nil, nil, nil)
	analyzer.SetProberForTests(func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		return probeResult("100", 720), nil
	})
	analyzer.Sampler().SetRunnerForTests(func(ctx context.Context, name string, args ...string) error {
		return errors.New("decode failed")
	})

	err := analyzer.Execute(context.Background(), &queue.Item{ID: 4, SourcePath: sourceFile(t)})
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestAnalyzerDetectsSignalsWhenEnabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Analysis.DetectActors = true
	snapshot := refdb.NewSnapshot([]refdb.Reference{{ID: "nm1", Name: "Lead", Vector: []float64{1, 0}}}, nil)
	detector := signals.NewDetector(snapshot, 0.8)
	detector.SetFingerprintForTests(func(path string) ([]float64, error) {
		return []float64{1, 0}, nil
	})

	analyzer := New(cfg, nil, detector, nil)
	analyzer.SetProberForTests(func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		return probeResult("3600", 2160), nil
	})
	analyzer.Sampler().SetRunnerForTests(fakeRunner)
	analyzer.Subtitler().SetRunnerForTests(noSubtitleRunner)

	item := &queue.Item{ID: 5, SourcePath: sourceFile(t)}
	if err := analyzer.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var detected []signals.Signal
	if err := json.Unmarshal([]byte(item.SignalsJSON), &detected); err != nil {
		t.Fatalf("signals json: %v", err)
	}
	if len(detected) != cfg.Analysis.CaptureFrames {
		t.Fatalf("signals = %d", len(detected))
	}
	if detected[0].ID != "nm1" || detected[0].Kind != signals.KindActor {
		t.Fatalf("signal = %+v", detected[0])
	}
	if item.Quality != "2160p" {
		t.Fatalf("quality = %q", item.Quality)
	}
}

func TestAnalyzerToleratesOCRFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	analyzer := New(cfg, &stubEngine{err: errors.New("tesseract crashed")}, nil, nil)
	analyzer.SetProberForTests(func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		return probeResult("1800", 480), nil
	})
	analyzer.Sampler().SetRunnerForTests(fakeRunner)
	analyzer.Subtitler().SetRunnerForTests(noSubtitleRunner)

	item := &queue.Item{ID: 6, SourcePath: sourceFile(t)}
	if err := analyzer.Execute(context.Background(), item); err != nil {
		t.Fatalf("ocr failure must not fail analysis: %v", err)
	}
	if item.FragmentsJSON != "" && item.FragmentsJSON != "null" {
		var fragments []ocr.Fragment
		if err := json.Unmarshal([]byte(item.FragmentsJSON), &fragments); err != nil || len(fragments) != 0 {
			t.Fatalf("fragments = %q", item.FragmentsJSON)
		}
	}
}

func TestAnalyzerStoresSubtitleDialog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	analyzer := New(cfg, nil, nil, nil)
	analyzer.SetProberForTests(func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		return probeResult("5400", 1080), nil
	})
	analyzer.Sampler().SetRunnerForTests(fakeRunner)
	analyzer.Subtitler().SetRunnerForTests(func(ctx context.Context, name string, args ...string) error {
		srt := "1\n00:00:01,000 --> 00:00:03,000\nMy name is Walter Hartwell White.\n"
		return os.WriteFile(args[len(args)-1], []byte(srt), 0o644)
	})

	item := &queue.Item{ID: 8, SourcePath: sourceFile(t)}
	if err := analyzer.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var dialog []string
	if err := json.Unmarshal([]byte(item.SubtitlesJSON), &dialog); err != nil {
		t.Fatalf("subtitles json: %v", err)
	}
	if len(dialog) != 1 || dialog[0] != "My name is Walter Hartwell White." {
		t.Fatalf("dialog = %v", dialog)
	}
}

func TestAnalyzerMissingSubtitleStreamLeavesNoDialog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	analyzer := New(cfg, nil, nil, nil)
	analyzer.SetProberForTests(func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		return probeResult("5400", 1080), nil
	})
	analyzer.Sampler().SetRunnerForTests(fakeRunner)
	analyzer.Subtitler().SetRunnerForTests(noSubtitleRunner)

	item := &queue.Item{ID: 9, SourcePath: sourceFile(t)}
	if err := analyzer.Execute(context.Background(), item); err != nil {
		t.Fatalf("missing subtitle stream must not fail analysis: %v", err)
	}
	if item.SubtitlesJSON != "" && item.SubtitlesJSON != "null" {
		t.Fatalf("subtitles = %q", item.SubtitlesJSON)
	}
}

func TestAnalyzerPrepareMissingSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	analyzer := New(cfg, nil, nil, nil)
	err := analyzer.Prepare(context.Background(), &queue.Item{ID: 7, SourcePath: "/nope/missing.mkv"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
