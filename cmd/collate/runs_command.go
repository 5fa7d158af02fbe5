package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"collate/internal/catalog"
	"collate/internal/config"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show enrichment run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					duration := ""
					if run.FinishedAt != nil {
						duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
					}
					rows = append(rows, []string{
						run.Token,
						run.State,
						run.StartedAt.Format("2006-01-02 15:04:05"),
						duration,
						strconv.Itoa(run.Processed),
						strconv.Itoa(run.Updated),
						strconv.Itoa(run.Failed),
					})
				}

				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Token", "State", "Started", "Duration", "Processed", "Updated", "Failed"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to show")
	return cmd
}
