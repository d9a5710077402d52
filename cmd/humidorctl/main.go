// Command humidorctl is the operator CLI for the humidor catalog and matcher.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/humidor/backend/internal/infrastructure/catalog"
	"github.com/spf13/cobra"
)

type options struct {
	catalogType string
	catalogPath string
	noColor     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "humidorctl",
		Short: "Inspect and maintain the humidor inventory",
		Long: `humidorctl manages the cigar catalog behind the in-store assistant and lets
operators check how customer wording or model output resolves against inventory.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.catalogType, "catalog-type", envOr("HUMIDOR_CATALOG_TYPE", catalog.TypeFile), "catalog store: file or sqlite")
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", envOr("HUMIDOR_CATALOG_PATH", "data/catalog.yaml"), "catalog file or database path")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newMatchCmd(opts))
	root.AddCommand(newParseCmd(opts))
	root.AddCommand(newCatalogCmd(opts))
	return root
}

func (o *options) openStore() (catalog.Store, error) {
	store, err := catalog.Open(o.catalogType, o.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", o.catalogPath, err)
	}
	return store, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
	warnColor = color.New(color.FgYellow)
	headColor = color.New(color.FgCyan, color.Bold)
)

func success(w io.Writer, format string, args ...interface{}) {
	okColor.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, args...))
}

func failure(w io.Writer, format string, args ...interface{}) {
	failColor.Fprintf(w, "✗ %s\n", fmt.Sprintf(format, args...))
}
