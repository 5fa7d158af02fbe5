package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"collate/internal/catalog"
	"collate/internal/config"
	"collate/internal/matching"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var mediaType string

	cmd := &cobra.Command{
		Use:   "match <title>",
		Short: "Resolve a title against the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mt catalog.MediaType
			if mediaType != "" {
				parsed, ok := catalog.ParseMediaType(mediaType)
				if !ok {
					return fmt.Errorf("unknown media type %q", mediaType)
				}
				mt = parsed
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				entries, err := store.TitleEntries(cmd.Context())
				if err != nil {
					return err
				}
				counts, err := store.ExternalIDCounts(cmd.Context())
				if err != nil {
					return err
				}

				matcher := matching.New(cfg.Matching.FuzzyThreshold, entries, counts)
				candidate, ok := matcher.Match(args[0], mt)
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "No match.")
					return nil
				}

				entity, err := store.GetByID(cmd.Context(), candidate.EntityID)
				if err != nil {
					return err
				}
				kind := "fuzzy"
				if candidate.Exact {
					kind = "exact"
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Matched on", "Kind", "Score"},
					[][]string{{
						strconv.FormatInt(entity.ID, 10),
						entity.Title,
						candidate.MatchedTitle,
						kind,
						strconv.Itoa(candidate.Score),
					}},
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mediaType, "type", "", "Expected media type (guards cross-type matches)")
	return cmd
}
