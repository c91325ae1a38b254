package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/conceptdb/internal/app"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

func newAggregatesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregates",
		Short: "Build, delete and assemble aggregates",
	}
	cmd.AddCommand(
		newAggregatesMappingCmd(opts),
		newAggregatesNamesCmd(opts),
		newAggregatesDeleteCmd(opts),
		newAggregatesAssembleCmd(opts),
	)
	return cmd
}

func newAggregatesMappingCmd(opts *rootOptions) *cobra.Command {
	var build domain.MappingBuildOptions
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Aggregate concepts connected by allowed mapping types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Services.Aggregates.BuildByMapping(ctx, build)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	cmd.Flags().StringSliceVar(&build.AllowedMappingTypes, "types", nil, "Allowed mapping types (comma separated)")
	cmd.Flags().StringVar(&build.ConceptLabel, "concept-label", "", "Only aggregate nodes with this label (default CONCEPT)")
	cmd.Flags().StringVar(&build.ResultLabel, "result-label", "", "Label tagging the built aggregates and singletons")
	_ = cmd.MarkFlagRequired("types")
	_ = cmd.MarkFlagRequired("result-label")
	return cmd
}

func newAggregatesNamesCmd(opts *rootOptions) *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "names",
		Short: "Aggregate concepts with equal preferred names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Services.Aggregates.BuildByName(ctx, label)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&label, "label", domain.LabelConcept, "Label of the nodes to group")
	return cmd
}

func newAggregatesDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <label>",
		Short: "Delete aggregates carrying label and untag its singletons",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				deleted, err := a.Services.Aggregates.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"deleted": deleted})
			})
		},
	}
}

func newAggregatesAssembleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "assemble",
		Short: "Recompute aggregate properties from their elements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.Services.Aggregates.Assemble(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"assembled": n})
			})
		},
	}
}
