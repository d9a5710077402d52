package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/humidor/backend/internal/domain"
	"github.com/humidor/backend/internal/usecase"
	"github.com/spf13/cobra"
)

type parseOutput struct {
	Mode       string                `json:"mode"`
	Message    string                `json:"message"`
	Confidence *int                  `json:"confidence,omitempty"`
	Candidates []domain.Candidate    `json:"candidates"`
	Cigars     []domain.DisplayCigar `json:"cigars,omitempty"`
}

func newParseCmd(opts *options) *cobra.Command {
	var (
		enrich         bool
		productURLBase string
	)

	cmd := &cobra.Command{
		Use:   "parse [FILE|-]",
		Short: "Parse a raw model reply the way the assistant does",
		Long: `parse reads a model reply from FILE, or stdin when FILE is omitted or "-",
and prints the recovered message, confidence and cigar candidates as JSON.
With --enrich the candidates are also resolved against the catalog.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			parsed := usecase.ParseModelResponse(string(raw))
			output := parseOutput{
				Mode:       parsed.Mode,
				Message:    parsed.Message,
				Confidence: parsed.Confidence,
				Candidates: parsed.Cigars,
			}
			if output.Candidates == nil {
				output.Candidates = []domain.Candidate{}
			}

			if enrich {
				store, err := opts.openStore()
				if err != nil {
					return err
				}
				defer store.Close()

				entries, err := store.List(context.Background())
				if err != nil {
					return err
				}
				matcher := usecase.NewMatchingService(usecase.MatchConfig{})
				output.Cigars = usecase.NewEnricher(matcher, productURLBase).Enrich(parsed.Cigars, entries)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(output)
		},
	}

	cmd.Flags().BoolVar(&enrich, "enrich", false, "resolve candidates against the catalog")
	cmd.Flags().StringVar(&productURLBase, "product-url-base", os.Getenv("HUMIDOR_CATALOG_PRODUCT_URL_BASE"), "base URL for product links")
	return cmd
}

func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return data, nil
}
