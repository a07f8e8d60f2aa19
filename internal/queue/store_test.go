package queue_test

import (
	"context"
	"path/filepath"
	"testing"

	"videosort/internal/queue"
)

func openStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewFileIsIdempotent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, err := store.NewFile(ctx, "/in/a.mkv", 100)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	second, err := store.NewFile(ctx, "/in/a.mkv", 100)
	if err != nil {
		t.Fatalf("NewFile repeat: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same item, got %d and %d", first.ID, second.ID)
	}
	if first.Status != queue.StatusPending {
		t.Fatalf("status = %s", first.Status)
	}
}

func TestClaimTransitionsOldestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	a, _ := store.NewFile(ctx, "/in/a.mkv", 1)
	if _, err := store.NewFile(ctx, "/in/b.mkv", 2); err != nil {
		t.Fatal(err)
	}

	claimed, err := store.Claim(ctx, queue.StatusPending, queue.StatusAnalyzing, "run-1")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed == nil || claimed.ID != a.ID {
		t.Fatalf("expected oldest item %d, got %+v", a.ID, claimed)
	}
	if claimed.Status != queue.StatusAnalyzing || claimed.RunID != "run-1" {
		t.Fatalf("claimed = %+v", claimed)
	}

	// Second claim picks the other item; third finds nothing.
	second, err := store.Claim(ctx, queue.StatusPending, queue.StatusAnalyzing, "run-1")
	if err != nil || second == nil {
		t.Fatalf("second claim = %+v, %v", second, err)
	}
	third, err := store.Claim(ctx, queue.StatusPending, queue.StatusAnalyzing, "run-1")
	if err != nil {
		t.Fatalf("third claim: %v", err)
	}
	if third != nil {
		t.Fatalf("expected empty claim, got %+v", third)
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	item, _ := store.NewFile(ctx, "/in/c.mkv", 3)
	item.Status = queue.StatusAnalyzed
	item.Quality = "1080p"
	item.DurationSeconds = 5400
	item.FragmentsJSON = `[{"text":"INCEPTION"}]`
	item.SubtitlesJSON = `["My name is Walter Hartwell White."]`
	item.NeedsReview = true
	item.ReviewReason = "no episode pattern"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Quality != "1080p" || got.Status != queue.StatusAnalyzed {
		t.Fatalf("round trip = %+v", got)
	}
	if !got.NeedsReview || got.ReviewReason != "no episode pattern" {
		t.Fatalf("review fields = %+v", got)
	}
	if got.DurationSeconds != 5400 {
		t.Fatalf("duration = %g", got.DurationSeconds)
	}
	if got.SubtitlesJSON != item.SubtitlesJSON {
		t.Fatalf("subtitles = %q", got.SubtitlesJSON)
	}
}

func TestSummarize(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	a, _ := store.NewFile(ctx, "/in/a.mkv", 1)
	b, _ := store.NewFile(ctx, "/in/b.mkv", 1)
	if _, err := store.NewFile(ctx, "/in/c.mkv", 1); err != nil {
		t.Fatal(err)
	}

	a.Status = queue.StatusCompleted
	if err := store.Update(ctx, a); err != nil {
		t.Fatal(err)
	}
	b.Status = queue.StatusFailed
	if err := store.Update(ctx, b); err != nil {
		t.Fatal(err)
	}

	summary, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Total != 3 || summary.Completed != 1 || summary.Failed != 1 || summary.Pending != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestClearFailed(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	item, _ := store.NewFile(ctx, "/in/a.mkv", 1)
	item.Status = queue.StatusFailed
	if err := store.Update(ctx, item); err != nil {
		t.Fatal(err)
	}

	removed, err := store.ClearFailed(ctx)
	if err != nil {
		t.Fatalf("ClearFailed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d", removed)
	}
}
