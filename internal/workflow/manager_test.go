package workflow

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"videosort/internal/identification"
	"videosort/internal/queue"
	"videosort/internal/services"
	"videosort/internal/stage"
	"videosort/internal/testsupport"
)

type stubHandler struct {
	name      string
	execErr   error
	onExecute func(item *queue.Item) error
	calls     atomic.Int32

	disabled atomic.Bool
}

func (s *stubHandler) Prepare(ctx context.Context, item *queue.Item) error { return nil }

func (s *stubHandler) Execute(ctx context.Context, item *queue.Item) error {
	s.calls.Add(1)
	if s.execErr != nil {
		return s.execErr
	}
	if s.onExecute != nil {
		return s.onExecute(item)
	}
	return nil
}

func (s *stubHandler) HealthCheck(ctx context.Context) stage.Health { return stage.Healthy(s.name) }

func (s *stubHandler) DisableMetadata() { s.disabled.Store(true) }

func movieIdentify(title string) *stubHandler {
	return &stubHandler{
		name: "identify",
		onExecute: func(item *queue.Item) error {
			payload, err := identification.EncodeDecision(identification.Decision{
				MediaType:  identification.MediaTypeMovie,
				Title:      title,
				Year:       2010,
				Confidence: 0.9,
			})
			if err != nil {
				return err
			}
			item.DecisionJSON = payload
			return nil
		},
	}
}

func placingOrganizer() *stubHandler {
	return &stubHandler{
		name: "organize",
		onExecute: func(item *queue.Item) error {
			item.FinalPath = filepath.Join("/library", filepath.Base(item.SourcePath))
			return nil
		},
	}
}

func enqueue(t *testing.T, store *queue.Store, names ...string) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		path := filepath.Join(dir, name)
		testsupport.WriteFile(t, path, 64)
		testsupport.NewFile(t, store, path, 64)
	}
}

func TestManagerProcessesQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	enqueue(t, store, "a.mkv", "b.mkv", "c.mkv")

	analyzer := &stubHandler{name: "analyze"}
	identify := movieIdentify("Inception")
	organizer := placingOrganizer()
	manager := NewManager(cfg, store, analyzer, identify, organizer, nil)

	summary, err := manager.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 3 || summary.Movies != 3 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if analyzer.calls.Load() != 3 || organizer.calls.Load() != 3 {
		t.Fatalf("stage calls = %d/%d", analyzer.calls.Load(), organizer.calls.Load())
	}

	items, err := store.ItemsByStatus(context.Background(), queue.StatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("completed items = %d", len(items))
	}
	for _, item := range items {
		if item.FinalPath == "" {
			t.Fatalf("item %d has no final path", item.ID)
		}
	}
}

func TestManagerDecodeFailureDemotesToUnknown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	enqueue(t, store, "corrupt.mkv")

	analyzer := &stubHandler{
		name:    "analyze",
		execErr: services.Wrap(services.ErrDecode, "analyzing", "probe", "unreadable", nil),
	}
	organizer := placingOrganizer()
	manager := NewManager(cfg, store, analyzer, movieIdentify("X"), organizer, nil)

	summary, err := manager.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Unknown != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if organizer.calls.Load() != 1 {
		t.Fatal("unknown demotion must still place the file")
	}

	items, err := store.ItemsByStatus(context.Background(), queue.StatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("completed items = %d", len(items))
	}
	decision, err := identification.DecodeDecision(items[0].DecisionJSON)
	if err != nil || !decision.Unknown() {
		t.Fatalf("decision = %+v err = %v", decision, err)
	}
}

func TestManagerAuthFailureDisablesMetadataAndCompletes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	enqueue(t, store, "a.mkv")

	identify := &stubHandler{
		name:    "identify",
		execErr: services.Wrap(services.ErrProviderAuth, "identifying", "search", "rejected", nil),
	}
	organizer := placingOrganizer()
	manager := NewManager(cfg, store, &stubHandler{name: "analyze"}, identify, organizer, nil)

	summary, err := manager.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !identify.disabled.Load() {
		t.Fatal("auth failure must disable metadata")
	}
	if summary.Unknown != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if organizer.calls.Load() != 1 {
		t.Fatal("item must still be placed after auth failure")
	}
}

func TestManagerValidationFailureParksForReview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	enqueue(t, store, "a.mkv")

	identify := &stubHandler{
		name:    "identify",
		execErr: services.Wrap(services.ErrValidation, "identifying", "decode-fragments", "corrupt", nil),
	}
	manager := NewManager(cfg, store, &stubHandler{name: "analyze"}, identify, placingOrganizer(), nil)

	summary, err := manager.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Review != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	items, err := store.ItemsByStatus(context.Background(), queue.StatusReview)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || !items[0].NeedsReview {
		t.Fatalf("review items = %+v", items)
	}
}

func TestManagerPlacementFailureFailsItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	enqueue(t, store, "a.mkv")

	organizer := &stubHandler{
		name:    "organize",
		execErr: services.Wrap(services.ErrPlacement, "organizing", "rename", "disk full", nil),
	}
	manager := NewManager(cfg, store, &stubHandler{name: "analyze"}, movieIdentify("X"), organizer, nil)

	summary, err := manager.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	items, err := store.ItemsByStatus(context.Background(), queue.StatusFailed)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ErrorMessage == "" {
		t.Fatalf("failed items = %+v", items)
	}
}

func TestManagerRefusesConcurrentRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := NewManager(cfg, store, &stubHandler{name: "analyze"}, movieIdentify("X"), placingOrganizer(), nil)
	locked, err := first.runLock.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock: %v %v", locked, err)
	}
	defer first.runLock.Unlock()

	second := NewManager(cfg, store, &stubHandler{name: "analyze"}, movieIdentify("X"), placingOrganizer(), nil)
	if _, err := second.Run(context.Background()); err == nil {
		t.Fatal("second concurrent run must be refused")
	}
}
