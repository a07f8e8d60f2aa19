package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"videosort/internal/analysis"
	"videosort/internal/auditlog"
	"videosort/internal/config"
	"videosort/internal/identification"
	"videosort/internal/identification/tmdb"
	"videosort/internal/ocr"
	"videosort/internal/organizer"
	"videosort/internal/queue"
	"videosort/internal/refdb"
	"videosort/internal/signals"
	"videosort/internal/textutil"
	"videosort/internal/workflow"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <path>...",
		Short: "Enqueue video files and run a batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			enqueued, skipped, err := enqueuePaths(cmd, store, cfg, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %d file%s (%d skipped)\n",
				enqueued, textutil.Ternary(enqueued == 1, "", "s"), skipped)

			manager, err := buildManager(cmd.Context(), cfg, store, logger)
			if err != nil {
				return err
			}
			summary, err := manager.Run(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Processed", strconv.Itoa(summary.Processed)},
				{"Movies", strconv.Itoa(summary.Movies)},
				{"Shows", strconv.Itoa(summary.Shows)},
				{"Unknown", strconv.Itoa(summary.Unknown)},
				{"Failed", strconv.Itoa(summary.Failed)},
				{"Needs review", strconv.Itoa(summary.Review)},
				{"Elapsed", summary.Elapsed.Round(time.Millisecond).String()},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Result", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

// enqueuePaths walks the given files and directories and enqueues every
// path with an accepted video extension.
func enqueuePaths(cmd *cobra.Command, store *queue.Store, cfg *config.Config, paths []string) (int, int, error) {
	var enqueued, skipped int
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return enqueued, skipped, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			added, err := enqueueFile(cmd, store, cfg, root, info.Size())
			if err != nil {
				return enqueued, skipped, err
			}
			if added {
				enqueued++
			} else {
				skipped++
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				return nil
			}
			fileInfo, err := entry.Info()
			if err != nil {
				return err
			}
			added, err := enqueueFile(cmd, store, cfg, path, fileInfo.Size())
			if err != nil {
				return err
			}
			if added {
				enqueued++
			} else {
				skipped++
			}
			return nil
		})
		if err != nil {
			return enqueued, skipped, err
		}
	}
	return enqueued, skipped, nil
}

func enqueueFile(cmd *cobra.Command, store *queue.Store, cfg *config.Config, path string, size int64) (bool, error) {
	if !cfg.AcceptsExtension(path) {
		return false, nil
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	item, err := store.NewFile(cmd.Context(), absolute, size)
	if err != nil {
		return false, err
	}
	if item.Status != queue.StatusPending {
		// Already processed in an earlier run.
		return false, nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  + %s (%s)\n", filepath.Base(absolute), humanize.Bytes(uint64(size)))
	return true, nil
}

// buildManager wires the three pipeline stages from configuration.
func buildManager(ctx context.Context, cfg *config.Config, store *queue.Store, logger *slog.Logger) (*workflow.Manager, error) {
	var (
		snapshot *refdb.Snapshot
		detector *signals.Detector
		err      error
	)
	if cfg.Analysis.DetectActors || cfg.Analysis.DetectStudios {
		snapshot, err = refdb.Load(ctx, cfg.Analysis.ReferenceDB)
		if err != nil {
			return nil, fmt.Errorf("load reference database: %w", err)
		}
		detector = signals.NewDetector(snapshot, cfg.Analysis.SignalFloor)
	}
	analyzer := analysis.New(cfg, ocr.NewExtractor(cfg.Analysis.OCRLanguage), detector, logger)

	var resolver *identification.Resolver
	if cfg.Identity.TMDBAPIKey != "" {
		client, err := tmdb.New(cfg.Identity.TMDBAPIKey, cfg.Identity.TMDBBaseURL, cfg.Identity.TMDBLanguage,
			tmdb.WithRetries(cfg.Identity.ProviderRetries))
		if err != nil {
			return nil, err
		}
		resolver = identification.NewResolver(client, identification.ResolverOptions{
			CandidateCap:        cfg.Identity.CandidateCap,
			MatchesPerCandidate: cfg.Identity.MatchesPerCandidate,
		}, logger)
	}

	engine := identification.NewEngine(identification.FusionOptions{
		MinConfidence:      cfg.Identity.MinConfidence,
		AmbiguityMargin:    cfg.Identity.AmbiguityMargin,
		CorroborationBonus: cfg.Identity.CorroborationBonus,
		CorroborationCap:   cfg.Identity.CorroborationCap,
	})
	identifier := identification.NewIdentifier(resolver, engine, snapshot, auditlog.New(cfg.AuditLogPath()), logger)

	placer := organizer.New(cfg, logger)
	return workflow.NewManager(cfg, store, analyzer, identifier, placer, logger), nil
}
