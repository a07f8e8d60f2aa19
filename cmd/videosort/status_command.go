package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"videosort/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cmd *cobra.Command, store *queue.Store) error {
				summary, err := store.Summarize(cmd.Context())
				if err != nil {
					return err
				}
				if summary.Total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := [][]string{
					{"Pending", strconv.Itoa(summary.Pending)},
					{"Working", strconv.Itoa(summary.Working)},
					{"Completed", strconv.Itoa(summary.Completed)},
					{"Failed", strconv.Itoa(summary.Failed)},
					{"Needs review", strconv.Itoa(summary.Review)},
					{"Total", strconv.Itoa(summary.Total)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			}, cmd)
		},
	}
}
