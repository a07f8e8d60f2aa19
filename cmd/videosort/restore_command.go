package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"videosort/internal/organizer"
	"videosort/internal/queue"
	"videosort/internal/textutil"
)

// newRestoreCommand undoes completed placements: each organized file moves
// back to the path it was ingested from and its queue item returns to
// pending, ready for another run.
func newRestoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Move completed items back to their original locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cmd *cobra.Command, store *queue.Store) error {
				items, err := store.ItemsByStatus(cmd.Context(), queue.StatusCompleted)
				if err != nil {
					return err
				}

				var rows [][]string
				restored := 0
				for _, item := range items {
					if item.FinalPath == "" || item.FinalPath == item.SourcePath {
						continue
					}
					placement, err := organizer.Place(item.FinalPath, item.SourcePath)
					if err != nil {
						rows = append(rows, []string{item.SourcePath, "failed: " + err.Error()})
						continue
					}

					item.Status = queue.StatusPending
					item.FinalPath = ""
					item.DecisionJSON = ""
					item.ErrorMessage = ""
					item.NeedsReview = false
					item.ReviewReason = ""
					item.InitProgress("", "")
					if err := store.Update(cmd.Context(), item); err != nil {
						return err
					}
					restored++
					rows = append(rows, []string{placement.FinalPath, string(placement.Outcome)})
				}

				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to restore")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Restored to", "Outcome"}, rows, []columnAlignment{alignLeft, alignLeft}))
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %d item%s\n", restored, textutil.Ternary(restored == 1, "", "s"))
				return nil
			}, cmd)
		},
	}
}
