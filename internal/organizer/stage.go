package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"videosort/internal/config"
	"videosort/internal/identification"
	"videosort/internal/logging"
	"videosort/internal/queue"
	"videosort/internal/services"
	"videosort/internal/stage"
)

// Organizer is the pipeline stage that relocates an identified video into
// the library layout.
type Organizer struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs the organizing stage.
func New(cfg *config.Config, logger *slog.Logger) *Organizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Organizer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "organizer"),
	}
}

// Prepare decodes the stored decision and verifies the source still exists.
func (o *Organizer) Prepare(ctx context.Context, item *queue.Item) error {
	item.InitProgress("organizing", "Placing file")
	if _, err := identification.DecodeDecision(item.DecisionJSON); err != nil {
		return services.Wrap(services.ErrValidation, "organizing", "decode-decision", "stored decision is unreadable", err)
	}
	if _, err := os.Stat(item.SourcePath); err != nil {
		return services.Wrap(services.ErrNotFound, "organizing", "stat-source", "source file disappeared", err)
	}
	return nil
}

// Execute places the file at its decided destination and records the
// final path on the item.
func (o *Organizer) Execute(ctx context.Context, item *queue.Item) error {
	decision, err := identification.DecodeDecision(item.DecisionJSON)
	if err != nil {
		return services.Wrap(services.ErrValidation, "organizing", "decode-decision", "stored decision is unreadable", err)
	}

	destination := DestinationPath(o.cfg, decision, item.SourcePath, item.Quality)
	placement, err := Place(item.SourcePath, destination)
	if err != nil {
		return err
	}
	item.FinalPath = placement.FinalPath

	o.logger.Info("placed file",
		logging.String(logging.FieldItemID, fmt.Sprintf("%d", item.ID)),
		logging.String("outcome", string(placement.Outcome)),
		logging.String("final_path", placement.FinalPath),
		logging.String("media_type", string(decision.MediaType)))
	return nil
}

// HealthCheck verifies the library root is writable.
func (o *Organizer) HealthCheck(ctx context.Context) stage.Health {
	if err := o.cfg.EnsureDirectories(); err != nil {
		return stage.Unhealthy("organizer", err.Error())
	}
	return stage.Healthy("organizer")
}
