package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"collate/internal/catalog"
	"collate/internal/config"
	"collate/internal/enrich"
	"collate/internal/providers"
)

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var (
		force     bool
		snapshots []string
	)

	cmd := &cobra.Command{
		Use:   "enrich --snapshot <file> [--snapshot <file>...]",
		Short: "Run the enrichment job over the catalog",
		Long: `Enrich walks every catalog entity that carries a provider id and has not
been enriched yet (all entities with --force), re-fetches its records
from the configured providers, and merges the results. Provider calls
are paced per provider and retried on rate limits.

Provider data is served from snapshot files; pass one --snapshot per
provider export.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				lock, err := enrich.AcquireLock(cfg)
				if err != nil {
					return err
				}
				defer lock.Unlock()

				registry := providers.NewRegistry(cfg)
				for _, path := range snapshots {
					adapter, err := providers.OpenSnapshotAdapter(path)
					if err != nil {
						return err
					}
					registry.Register(adapter)
				}
				if len(registry.Ordered()) == 0 {
					return fmt.Errorf("no enabled providers; pass at least one --snapshot")
				}

				controller := enrich.New(cfg, store, registry, logger)
				errOut := cmd.ErrOrStderr()
				result, err := controller.Run(cmd.Context(), enrich.StartOptions{
					Force: force,
					Progress: func(p enrich.Progress) {
						fmt.Fprintf(errOut, "[%d/%d] %s (elapsed %s, eta %s)\n",
							p.Current, p.Total, p.Label,
							p.Elapsed.Round(time.Second), p.ETA.Round(time.Second))
					},
				})
				if err != nil {
					return err
				}
				if result.AlreadyRunning {
					fmt.Fprintln(cmd.OutOrStdout(), "An enrichment run is already active.")
					return nil
				}

				last := controller.LastRun()
				if last == nil {
					return fmt.Errorf("run finished without a record")
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"State", "Processed", "Updated", "Unchanged", "Failed", "Report"},
					[][]string{{
						last.State,
						strconv.Itoa(last.Processed),
						strconv.Itoa(last.Updated),
						strconv.Itoa(last.Skipped),
						strconv.Itoa(last.Failed),
						last.ReportPath,
					}},
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
				))
				if last.State == string(enrich.StateFailed) {
					return fmt.Errorf("enrichment run failed")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-enrich every entity, bypassing field protection")
	cmd.Flags().StringArrayVar(&snapshots, "snapshot", nil, "Provider snapshot file (repeatable)")
	return cmd
}
