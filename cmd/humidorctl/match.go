package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/humidor/backend/internal/usecase"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var errNoMatch = errors.New("no inventory match")

func newMatchCmd(opts *options) *cobra.Command {
	var (
		brand string
		floor int
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "match NAME",
		Short: "Resolve a cigar name against the catalog",
		Example: `  humidorctl match "1964 Anniversary" --brand Padron
  humidorctl match "opus x"`,
		Args: cobra.MinimumNArgs(1),
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

			logger := zerolog.Nop()
			if debug {
				logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})
			}
			matcher := usecase.NewMatchingService(usecase.MatchConfig{
				AcceptanceFloor:    floor,
				EnableDebugLogging: debug,
				Logger:             logger,
			})

			name := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			result, ok := matcher.FindMatch(name, brand, entries)
			if !ok {
				failure(out, "no match for %q (floor %d)", name, matcher.AcceptanceFloor())
				return errNoMatch
			}

			kind := "fuzzy"
			if result.Exact {
				kind = "exact"
			}
			success(out, "%s %s [%s]", result.Entry.Brand, result.Entry.Name, result.Entry.ID)
			fmt.Fprintf(out, "  score:     %d (%s)\n", result.Score, kind)
			if len(result.MatchedTokens) > 0 {
				fmt.Fprintf(out, "  tokens:    %s\n", strings.Join(result.MatchedTokens, ", "))
			}
			if result.Entry.InStock() {
				fmt.Fprintf(out, "  in stock:  %d\n", result.Entry.InventoryCount)
			} else {
				warnColor.Fprintln(out, "  out of stock")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&brand, "brand", "", "brand to match alongside the name")
	cmd.Flags().IntVar(&floor, "floor", usecase.DefaultAcceptanceFloor, "minimum score to accept")
	cmd.Flags().BoolVar(&debug, "debug", false, "log scoring details to stderr")
	return cmd
}
