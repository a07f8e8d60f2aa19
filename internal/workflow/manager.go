package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"videosort/internal/config"
	"videosort/internal/identification"
	"videosort/internal/logging"
	"videosort/internal/queue"
	"videosort/internal/services"
	"videosort/internal/stage"
)

// metadataDisabler is implemented by the identification stage so the
// manager can stop provider traffic after an authentication rejection.
type metadataDisabler interface {
	DisableMetadata()
}

// Manager drives queued items through the analyze, identify, and organize
// stages with a fixed worker pool. One manager run is one batch.
type Manager struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	analyzer  stage.Handler
	identify  stage.Handler
	organizer stage.Handler

	runLock *flock.Flock

	mu      sync.Mutex
	summary RunSummary
}

// RunSummary aggregates batch outcomes for the final report.
type RunSummary struct {
	RunID     string
	Processed int
	Movies    int
	Shows     int
	Unknown   int
	Failed    int
	Review    int
	Elapsed   time.Duration
}

// NewManager constructs a workflow manager over the given stage handlers.
func NewManager(cfg *config.Config, store *queue.Store, analyzer, identify, organizer stage.Handler, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:       cfg,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "workflow"),
		analyzer:  analyzer,
		identify:  identify,
		organizer: organizer,
		runLock:   flock.New(cfg.RunLockPath()),
	}
}

// Run processes every pending item and returns the batch summary. A second
// concurrent run against the same state directory is refused.
func (m *Manager) Run(ctx context.Context) (RunSummary, error) {
	if err := os.MkdirAll(filepath.Dir(m.cfg.RunLockPath()), 0o755); err != nil {
		return RunSummary{}, fmt.Errorf("create state directory: %w", err)
	}
	locked, err := m.runLock.TryLock()
	if err != nil {
		return RunSummary{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return RunSummary{}, services.Wrap(services.ErrConfiguration, "workflow", "run-lock", "another batch is already running", nil)
	}
	defer m.runLock.Unlock()

	runID := uuid.NewString()
	start := time.Now()
	m.mu.Lock()
	m.summary = RunSummary{RunID: runID}
	m.mu.Unlock()

	m.reportHealth(ctx)

	workers := m.cfg.Ingest.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	m.logger.Info("batch started",
		logging.String(logging.FieldRunID, runID),
		logging.Int("workers", workers))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.workLoop(ctx, runID)
		}()
	}
	wg.Wait()

	m.mu.Lock()
	summary := m.summary
	m.mu.Unlock()
	summary.Elapsed = time.Since(start)

	m.logger.Info("batch finished",
		logging.String(logging.FieldRunID, runID),
		logging.Int("processed", summary.Processed),
		logging.Int("unknown", summary.Unknown),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", summary.Elapsed))
	return summary, ctx.Err()
}

// workLoop claims pending items until the queue is drained or the run is
// cancelled.
func (m *Manager) workLoop(ctx context.Context, runID string) {
	for {
		if ctx.Err() != nil {
			return
		}
		item, err := m.store.Claim(ctx, queue.StatusPending, queue.StatusAnalyzing, runID)
		if err != nil {
			if ctx.Err() == nil {
				m.logger.Error("claim failed", logging.Error(err))
			}
			return
		}
		if item == nil {
			return
		}
		m.processItem(ctx, runID, item)
	}
}

// processItem runs one item through the remaining stages under the
// per-item timeout.
func (m *Manager) processItem(ctx context.Context, runID string, item *queue.Item) {
	itemCtx := services.WithRunID(ctx, runID)
	itemCtx = services.WithItemID(itemCtx, item.ID)
	if timeout := m.cfg.Ingest.ItemTimeoutSeconds; timeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(itemCtx, time.Duration(timeout)*time.Second)
		defer cancel()
	}
	itemLogger := logging.WithContext(itemCtx, m.logger)

	steps := []struct {
		handler stage.Handler
		name    string
		working queue.Status
		done    queue.Status
	}{
		{m.analyzer, "analyzing", queue.StatusAnalyzing, queue.StatusAnalyzed},
		{m.identify, "identifying", queue.StatusIdentifying, queue.StatusIdentified},
		{m.organizer, "organizing", queue.StatusOrganizing, queue.StatusCompleted},
	}

	for _, step := range steps {
		if item.Status != step.working {
			item.Status = step.working
			item.ErrorMessage = ""
			if err := m.store.Update(ctx, item); err != nil {
				itemLogger.Error("persist transition failed", logging.Error(err))
				return
			}
		}
		if err := m.runStage(itemCtx, step.handler, item); err != nil {
			m.handleStageFailure(ctx, itemLogger, item, step.name, err)
			return
		}
		item.Status = step.done
		if err := m.store.Update(ctx, item); err != nil {
			itemLogger.Error("persist stage result failed", logging.Error(err))
			return
		}
	}

	m.recordOutcome(item)
	itemLogger.Info("item completed",
		logging.String("final_path", item.FinalPath),
		logging.Bool("needs_review", item.NeedsReview))
}

func (m *Manager) runStage(ctx context.Context, handler stage.Handler, item *queue.Item) error {
	if handler == nil {
		return errors.New("stage handler unavailable")
	}
	if err := handler.Prepare(ctx, item); err != nil {
		return err
	}
	if err := m.store.UpdateProgress(ctx, item); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}
	return handler.Execute(ctx, item)
}

// handleStageFailure classifies a stage error. Decode failures, per-item
// timeouts, and provider auth rejections demote the item to an UNKNOWN
// decision that still gets placed; everything else fails or parks the item.
func (m *Manager) handleStageFailure(ctx context.Context, itemLogger *slog.Logger, item *queue.Item, stageName string, err error) {
	if ctx.Err() != nil {
		return
	}

	switch {
	case errors.Is(err, services.ErrDecode):
		m.demoteToUnknown(ctx, itemLogger, item, "video could not be decoded")
		return
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, services.ErrTimeout):
		m.demoteToUnknown(ctx, itemLogger, item, "processing timed out")
		return
	case errors.Is(err, services.ErrProviderAuth):
		if disabler, ok := m.identify.(metadataDisabler); ok {
			disabler.DisableMetadata()
		}
		itemLogger.Error("metadata provider disabled for the rest of the run", logging.Error(err))
		m.demoteToUnknown(ctx, itemLogger, item, "metadata provider unavailable")
		return
	}

	status := services.FailureStatus(err)
	item.Status = status
	item.ErrorMessage = err.Error()
	if status == queue.StatusReview {
		item.NeedsReview = true
		if item.ReviewReason == "" {
			item.ReviewReason = err.Error()
		}
	}
	if updateErr := m.store.Update(ctx, item); updateErr != nil {
		itemLogger.Error("persist failure status failed", logging.Error(updateErr))
	}
	itemLogger.Error("stage failed",
		logging.String(logging.FieldStage, stageName),
		logging.String("status", string(status)),
		logging.Error(err))

	m.mu.Lock()
	m.summary.Processed++
	if status == queue.StatusReview {
		m.summary.Review++
	} else {
		m.summary.Failed++
	}
	m.mu.Unlock()
}

// demoteToUnknown stores an UNKNOWN decision for the item and places it
// anyway, so nothing is left stranded in the input directory.
func (m *Manager) demoteToUnknown(ctx context.Context, itemLogger *slog.Logger, item *queue.Item, reason string) {
	decision := identification.Decision{
		MediaType:    identification.MediaTypeUnknown,
		ReviewReason: reason,
	}
	payload, err := identification.EncodeDecision(decision)
	if err != nil {
		itemLogger.Error("encode unknown decision failed", logging.Error(err))
		return
	}
	item.DecisionJSON = payload
	item.ReviewReason = reason
	item.Status = queue.StatusOrganizing
	if err := m.store.Update(ctx, item); err != nil {
		itemLogger.Error("persist unknown demotion failed", logging.Error(err))
		return
	}

	if err := m.runStage(ctx, m.organizer, item); err != nil {
		item.Status = queue.StatusFailed
		item.ErrorMessage = err.Error()
		if updateErr := m.store.Update(ctx, item); updateErr != nil {
			itemLogger.Error("persist placement failure failed", logging.Error(updateErr))
		}
		m.mu.Lock()
		m.summary.Processed++
		m.summary.Failed++
		m.mu.Unlock()
		return
	}

	item.Status = queue.StatusCompleted
	if err := m.store.Update(ctx, item); err != nil {
		itemLogger.Error("persist completion failed", logging.Error(err))
		return
	}
	itemLogger.Warn("item demoted to unknown", logging.String("reason", reason))
	m.recordOutcome(item)
}

// recordOutcome tallies a completed item into the batch summary.
func (m *Manager) recordOutcome(item *queue.Item) {
	decision, err := identification.DecodeDecision(item.DecisionJSON)
	if err != nil {
		decision = identification.Decision{MediaType: identification.MediaTypeUnknown}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary.Processed++
	switch decision.MediaType {
	case identification.MediaTypeMovie:
		m.summary.Movies++
	case identification.MediaTypeShow:
		m.summary.Shows++
	default:
		m.summary.Unknown++
	}
	if item.NeedsReview {
		m.summary.Review++
	}
}

// reportHealth logs any stage that declares itself not ready. Health
// problems are surfaced, not fatal; stages fail per item with context.
func (m *Manager) reportHealth(ctx context.Context) {
	for _, handler := range []stage.Handler{m.analyzer, m.identify, m.organizer} {
		if handler == nil {
			continue
		}
		health := handler.HealthCheck(ctx)
		if !health.Ready {
			m.logger.Warn("stage reports unhealthy",
				logging.String("stage", health.Name),
				logging.String("detail", health.Detail))
		}
	}
}
