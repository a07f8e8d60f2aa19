package identification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"videosort/internal/auditlog"
	"videosort/internal/logging"
	"videosort/internal/ocr"
	"videosort/internal/queue"
	"videosort/internal/refdb"
	"videosort/internal/services"
	"videosort/internal/signals"
	"videosort/internal/stage"
)

// Identifier is the pipeline stage that turns analysis output into a
// Decision. It generates candidates, resolves them against the metadata
// provider, fuses the evidence, and persists the decision on the item.
type Identifier struct {
	resolver *Resolver
	engine   *Engine
	snapshot *refdb.Snapshot
	audit    *auditlog.Writer
	logger   *slog.Logger

	metadataDisabled atomic.Bool
}

// NewIdentifier constructs the identification stage. resolver may be nil
// when no provider is configured; audit may be nil to skip audit logging.
func NewIdentifier(resolver *Resolver, engine *Engine, snapshot *refdb.Snapshot, audit *auditlog.Writer, logger *slog.Logger) *Identifier {
	if snapshot == nil {
		snapshot = refdb.NewSnapshot(nil, nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Identifier{
		resolver: resolver,
		engine:   engine,
		snapshot: snapshot,
		audit:    audit,
		logger:   logging.NewComponentLogger(logger, "identifier"),
	}
}

// DisableMetadata stops all further provider queries for the run.
// Remaining items still complete, as UNKNOWN unless signals suffice.
func (i *Identifier) DisableMetadata() {
	i.metadataDisabled.Store(true)
}

// MetadataDisabled reports whether provider queries have been stopped.
func (i *Identifier) MetadataDisabled() bool {
	return i.metadataDisabled.Load()
}

// Prepare validates that analysis output is present on the item.
func (i *Identifier) Prepare(ctx context.Context, item *queue.Item) error {
	item.InitProgress("identifying", "Identifying media")
	return nil
}

// Execute runs candidate generation, resolution, and fusion for one item.
func (i *Identifier) Execute(ctx context.Context, item *queue.Item) error {
	fragments, err := decodeFragments(item.FragmentsJSON)
	if err != nil {
		return services.Wrap(services.ErrValidation, "identifying", "decode-fragments", "stored fragments are unreadable", err)
	}
	allSignals, err := decodeSignals(item.SignalsJSON)
	if err != nil {
		return services.Wrap(services.ErrValidation, "identifying", "decode-signals", "stored signals are unreadable", err)
	}
	dialog, err := decodeDialog(item.SubtitlesJSON)
	if err != nil {
		return services.Wrap(services.ErrValidation, "identifying", "decode-subtitles", "stored subtitle lines are unreadable", err)
	}

	fileName := filepath.Base(item.SourcePath)
	candidates := GenerateCandidates(fileName, fragments, dialog)

	evidence := Evidence{
		Actors:       signals.Filter(allSignals, signals.KindActor),
		Studios:      signals.Filter(allSignals, signals.KindStudio),
		ActorTitles:  i.referenceTitles(i.snapshot.Actors()),
		StudioTitles: i.referenceTitles(i.snapshot.Logos()),
	}

	var matches []MetadataMatch
	if i.resolver != nil && !i.metadataDisabled.Load() {
		matches, err = i.resolver.Resolve(ctx, candidates)
		if err != nil {
			if errors.Is(err, services.ErrProviderAuth) {
				i.metadataDisabled.Store(true)
				return err
			}
			return err
		}
		i.mergeProviderTitles(ctx, evidence)
	}

	decision := i.engine.Fuse(matches, evidence)
	i.applyEpisode(&decision, fileName, fragments)

	payload, err := EncodeDecision(decision)
	if err != nil {
		return services.Wrap(services.ErrValidation, "identifying", "encode-decision", "decision could not be stored", err)
	}
	item.DecisionJSON = payload
	item.NeedsReview = decision.NeedsReview
	item.ReviewReason = decision.ReviewReason

	i.writeAudit(item, decision)

	attrs := append([]logging.Attr{
		logging.String(logging.FieldItemID, fmt.Sprintf("%d", item.ID)),
		logging.Float64("confidence", decision.Confidence),
	}, logging.DecisionAttrs(string(decision.MediaType), decision.Describe(), decision.ReviewReason)...)
	i.logger.Info("identification decision", logging.Args(attrs...)...)
	return nil
}

// HealthCheck reports the provider state.
func (i *Identifier) HealthCheck(ctx context.Context) stage.Health {
	if i.resolver == nil {
		return stage.Healthy("identifier")
	}
	if i.metadataDisabled.Load() {
		return stage.Unhealthy("identifier", "metadata provider disabled after authentication failure")
	}
	return stage.Healthy("identifier")
}

// mergeProviderTitles augments reference-db actor titles with provider
// person credits. Failures other than auth rejection only reduce evidence.
func (i *Identifier) mergeProviderTitles(ctx context.Context, evidence Evidence) {
	credits, err := i.resolver.ActorTitles(ctx, evidence.Actors)
	if err != nil {
		if errors.Is(err, services.ErrProviderAuth) {
			i.metadataDisabled.Store(true)
		}
		return
	}
	for id, titles := range credits {
		evidence.ActorTitles[id] = append(evidence.ActorTitles[id], titles...)
	}
}

// applyEpisode fills season/episode on show decisions. When no pattern
// matches anywhere, the decision defaults to S01E01 and is flagged for
// review rather than guessed silently.
func (i *Identifier) applyEpisode(decision *Decision, fileName string, fragments []ocr.Fragment) {
	if decision.MediaType != MediaTypeShow {
		return
	}
	if ref, ok := ExtractEpisodeFromSources(fileName, fragments); ok {
		decision.Season = ref.Season
		decision.Episode = ref.Episode
		return
	}
	decision.Season = 1
	decision.Episode = 1
	decision.NeedsReview = true
	decision.ReviewReason = "no season/episode pattern found; defaulted to S01E01"
}

// writeAudit appends one row per actor signal that corroborated the
// accepted decision. Audit failures are logged, never fatal.
func (i *Identifier) writeAudit(item *queue.Item, decision Decision) {
	if i.audit == nil || decision.Unknown() {
		return
	}
	for _, actor := range decision.Actors {
		if err := i.audit.Append(auditlog.Row{
			VideoPath:     item.SourcePath,
			ActorID:       actor.ActorID,
			Confidence:    actor.Confidence,
			DecisionTitle: decision.Title,
		}); err != nil {
			i.logger.Warn("audit append failed", logging.Error(err))
			return
		}
	}
}

func (i *Identifier) referenceTitles(refs []refdb.Reference) map[string][]string {
	titles := make(map[string][]string, len(refs))
	for _, ref := range refs {
		if len(ref.Titles) > 0 {
			titles[ref.ID] = ref.Titles
		}
	}
	return titles
}

func decodeFragments(payload string) ([]ocr.Fragment, error) {
	if payload == "" {
		return nil, nil
	}
	var fragments []ocr.Fragment
	if err := json.Unmarshal([]byte(payload), &fragments); err != nil {
		return nil, err
	}
	return fragments, nil
}

func decodeSignals(payload string) ([]signals.Signal, error) {
	if payload == "" {
		return nil, nil
	}
	var all []signals.Signal
	if err := json.Unmarshal([]byte(payload), &all); err != nil {
		return nil, err
	}
	return all, nil
}

func decodeDialog(payload string) ([]string, error) {
	if payload == "" {
		return nil, nil
	}
	var dialog []string
	if err := json.Unmarshal([]byte(payload), &dialog); err != nil {
		return nil, err
	}
	return dialog, nil
}
