package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"collate/internal/catalog"
	"collate/internal/config"
	"collate/internal/providers"
	"collate/internal/reconcile"
	"collate/internal/report"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import <snapshot.json> [more snapshots...]",
		Short: "Reconcile provider snapshot files into the catalog",
		Long: `Import reads provider export files (one provider per file, JSON) and
folds every record into the catalog: matching against existing entries,
merging fields through the protection ledger, and back-filling inverse
relation pointers. A final propagation pass closes relation loops between
entities that arrived out of order.

Each import writes a report artifact listing created and updated entities
with per-field diffs, like an enrichment run does.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				reconciler := reconcile.New(store, cfg, logger)
				emitter := report.NewEmitter(cfg.ReportsDir(), "import-"+uuid.NewString(), time.Now())

				for _, path := range args {
					provider, records, err := providers.LoadSnapshot(path)
					if err != nil {
						return err
					}
					if !cfg.ProviderEnabled(provider) {
						fmt.Fprintf(cmd.OutOrStdout(), "Skipping %s: provider %s is disabled\n", path, provider)
						continue
					}
					for _, record := range records {
						outcome, err := reconciler.Reconcile(cmd.Context(), record, force)
						if err != nil {
							return fmt.Errorf("reconcile %s:%s: %w", record.Provider, record.ID, err)
						}
						item := report.Item{
							EntityID: outcome.Entity.ID,
							Label:    outcome.Entity.Title,
							Provider: record.Provider,
							Changes:  outcome.Changes,
						}
						switch {
						case outcome.Created:
							emitter.RecordCreated(item)
						case len(outcome.Changes) > 0:
							emitter.RecordUpdated(item)
						default:
							emitter.RecordSkipped()
						}
					}
				}

				propagated, err := reconciler.PropagateAll(cmd.Context())
				if err != nil {
					return fmt.Errorf("propagate relations: %w", err)
				}

				reportPath, err := emitter.Flush("completed", time.Now())
				if err != nil {
					return fmt.Errorf("write import report: %w", err)
				}

				snapshot := emitter.Snapshot()
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"Created", "Updated", "Unchanged", "Relations back-filled"},
					[][]string{{
						strconv.Itoa(snapshot.Summary.Created),
						strconv.Itoa(snapshot.Summary.Updated),
						strconv.Itoa(snapshot.Summary.Skipped),
						strconv.Itoa(propagated),
					}},
					[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
				))
				for _, item := range snapshot.Created {
					fmt.Fprintf(out, "  new: %s (%d)\n", item.Label, item.EntityID)
				}
				fmt.Fprintf(out, "Report: %s\n", reportPath)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Bypass field protection (operator reset)")
	return cmd
}
