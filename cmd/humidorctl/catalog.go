package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/humidor/backend/internal/infrastructure/catalog"
	"github.com/spf13/cobra"
)

func newCatalogCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List or import inventory",
	}
	cmd.AddCommand(newCatalogListCmd(opts))
	cmd.AddCommand(newCatalogImportCmd(opts))
	return cmd
}

func newCatalogListCmd(opts *options) *cobra.Command {
	var inStockOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every catalog entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(context.Background())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			headColor.Fprintln(tw, "ID\tBRAND\tNAME\tSTOCK")
			shown := 0
			for _, e := range entries {
				if inStockOnly && !e.InStock() {
					continue
				}
				stock := fmt.Sprintf("%d", e.InventoryCount)
				if !e.InStock() {
					stock = failColor.Sprint("out")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Brand, e.Name, stock)
				shown++
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d of %d entries\n", shown, len(entries))
			return nil
		},
	}

	cmd.Flags().BoolVar(&inStockOnly, "in-stock", false, "only show cigars with inventory")
	return cmd
}

func newCatalogImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Upsert entries from a JSON or YAML file into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := catalog.LoadEntries(args[0])
			if err != nil {
				return err
			}

			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := context.Background()
			for _, e := range entries {
				if e.ID == "" {
					return fmt.Errorf("entry %s %s has no id", e.Brand, e.Name)
				}
				if err := store.Upsert(ctx, e); err != nil {
					return fmt.Errorf("import %s: %w", e.ID, err)
				}
			}

			success(cmd.OutOrStdout(), "imported %d entries into %s", len(entries), opts.catalogPath)
			return nil
		},
	}
}
