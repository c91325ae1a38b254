package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/conceptdb/internal/app"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var merge bool
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Insert concept batches from JSON or YAML files",
		Long:  "Each file is one batch: {facet, concepts, importOptions}. Use - to read a batch from stdin.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batches := make([]domain.ImportConcepts, 0, len(args))
			for _, path := range args {
				raw, err := readInput(path, cmd.InOrStdin())
				if err != nil {
					return err
				}
				var batch domain.ImportConcepts
				if err := decodeDocument(path, raw, &batch); err != nil {
					return err
				}
				if merge {
					if batch.ImportOptions == nil {
						batch.ImportOptions = &domain.ImportOptions{}
					}
					batch.ImportOptions.Merge = true
				}
				batches = append(batches, batch)
			}
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				results := make([]domain.InsertionResult, 0, len(batches))
				for _, batch := range batches {
					res, err := a.Services.Concepts.ImportConcepts(ctx, batch)
					if err != nil {
						return err
					}
					results = append(results, res)
				}
				return printJSON(cmd, map[string]any{"results": results})
			})
		},
	}
	cmd.Flags().BoolVar(&merge, "merge", false, "Only merge into existing concepts; never create new ones")
	return cmd
}

func newMappingsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mappings <file>",
		Short: "Insert concept mappings from a JSON/YAML document or a TSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			mappings, err := parseMappings(args[0], raw)
			if err != nil {
				return err
			}
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				created, err := a.Services.Concepts.InsertMappings(ctx, mappings)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"requested": len(mappings), "created": created})
			})
		},
	}
}

func newVariantsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "variants <file>",
		Short: "Add writing variant and acronym counts from a JSON/YAML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			var doc struct {
				Variants []domain.ConceptVariants `json:"variants"`
			}
			if err := decodeDocument(args[0], raw, &doc); err != nil {
				return err
			}
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				updated, err := a.Services.Concepts.AddVariants(ctx, doc.Variants)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"updated": updated})
			})
		},
	}
}

func newLookupCmd(opts *rootOptions) *cobra.Command {
	var coords domain.Coordinates
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Resolve coordinates to a concept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				view, err := a.Services.Concepts.Lookup(ctx, coords)
				if err != nil {
					return err
				}
				return printJSON(cmd, view)
			})
		},
	}
	cmd.Flags().StringVar(&coords.SourceID, "source-id", "", "Source id")
	cmd.Flags().StringVar(&coords.Source, "source", "", "Source name")
	cmd.Flags().StringVar(&coords.OriginalID, "original-id", "", "Original id")
	cmd.Flags().StringVar(&coords.OriginalSource, "original-source", "", "Original source name")
	cmd.Flags().BoolVar(&coords.UniqueSourceID, "unique", false, "The source id is globally unique")
	return cmd
}
