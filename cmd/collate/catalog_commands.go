package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"collate/internal/catalog"
	"collate/internal/config"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and curate catalog entities",
	}

	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogShowCommand(ctx))
	catalogCmd.AddCommand(newCatalogProtectCommand(ctx, true))
	catalogCmd.AddCommand(newCatalogProtectCommand(ctx, false))
	catalogCmd.AddCommand(newCatalogAckCommand(ctx))

	return catalogCmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var updatesOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				entities, err := store.List(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(entities))
				for _, entity := range entities {
					if updatesOnly && !entity.UpdateAvailable {
						continue
					}
					flags := make([]string, 0, 2)
					if entity.UpdateAvailable {
						flags = append(flags, "update")
					}
					if len(entity.Protected) > 0 {
						flags = append(flags, "protected")
					}
					rows = append(rows, []string{
						strconv.FormatInt(entity.ID, 10),
						entity.Title,
						string(entity.MediaType),
						formatExternalIDs(entity),
						strings.Join(flags, ","),
					})
				}

				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Type", "Providers", "Flags"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&updatesOnly, "updates", false, "Show only entities with pending updates")
	return cmd
}

func newCatalogShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one entity in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entity id %q", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				entity, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if entity == nil {
					return fmt.Errorf("entity %d not found", id)
				}

				rows := make([][]string, 0, 16)
				for _, field := range catalog.WritableFields() {
					value := catalog.FormatValue(field, entity.Value(field))
					if value == "" {
						continue
					}
					marker := ""
					if entity.Protected.Has(field) {
						marker = "protected"
					}
					rows = append(rows, []string{string(field), value, marker})
				}
				for _, kind := range relationKinds(entity) {
					rows = append(rows, []string{"relation:" + string(kind), entity.Relations[kind].String(), ""})
				}
				rows = append(rows, []string{"providers", formatExternalIDs(entity), ""})
				if entity.EnrichedAt != nil {
					rows = append(rows, []string{"enriched_at", entity.EnrichedAt.Format("2006-01-02 15:04:05"), ""})
				}
				if entity.UpdateAvailable {
					rows = append(rows, []string{"update_available", "yes", ""})
				}

				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Field", "Value", ""},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

// newCatalogProtectCommand covers both protect and unprotect: the same
// command shape flips a field's protection entry. Protecting is the edit
// path's contract — fields an operator pins stay pinned until released
// or force-reset.
func newCatalogProtectCommand(ctx *commandContext, protect bool) *cobra.Command {
	use, short := "protect <id> <field>...", "Shield fields from automatic overwrite"
	if !protect {
		use, short = "unprotect <id> <field>...", "Release protected fields"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entity id %q", args[0])
			}
			fields := make([]catalog.Field, 0, len(args)-1)
			for _, name := range args[1:] {
				field, ok := catalog.ParseField(name)
				if !ok {
					return fmt.Errorf("unknown field %q (known: %s)", name, knownFieldNames())
				}
				fields = append(fields, field)
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				entity, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if entity == nil {
					return fmt.Errorf("entity %d not found", id)
				}
				for _, field := range fields {
					if protect {
						entity.Protected.Add(field)
					} else {
						entity.Protected.Remove(field)
					}
				}
				if err := store.Save(cmd.Context(), entity); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Entity %d protected fields: %s\n",
					id, formatProtected(entity))
				return nil
			})
		},
	}
}

func newCatalogAckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ack <id>",
		Short: "Acknowledge a pending update, clearing the flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entity id %q", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				entity, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if entity == nil {
					return fmt.Errorf("entity %d not found", id)
				}
				if err := store.ClearUpdateFlag(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared update flag on %q (%d)\n", entity.Title, id)
				return nil
			})
		},
	}
}

func formatExternalIDs(entity *catalog.Entity) string {
	providers := make([]string, 0, len(entity.ExternalIDs))
	for provider := range entity.ExternalIDs {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	pairs := make([]string, 0, len(providers))
	for _, provider := range providers {
		pairs = append(pairs, provider+":"+entity.ExternalIDs[provider])
	}
	return strings.Join(pairs, " ")
}

func formatProtected(entity *catalog.Entity) string {
	fields := entity.Protected.Fields()
	if len(fields) == 0 {
		return "(none)"
	}
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = string(field)
	}
	return strings.Join(names, ", ")
}

func relationKinds(entity *catalog.Entity) []catalog.Relation {
	kinds := make([]catalog.Relation, 0, len(entity.Relations))
	for kind := range entity.Relations {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func knownFieldNames() string {
	fields := catalog.WritableFields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = string(field)
	}
	return strings.Join(names, ", ")
}
