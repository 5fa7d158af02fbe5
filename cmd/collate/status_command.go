package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"collate/internal/catalog"
	"collate/internal/config"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				summary, err := store.Summarize(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Entities", "Enriched", "Pending updates", "Provider ids"},
					[][]string{{
						strconv.Itoa(summary.Total),
						strconv.Itoa(summary.Enriched),
						strconv.Itoa(summary.UpdateAvailable),
						strconv.Itoa(summary.ExternalIDs),
					}},
					[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}
