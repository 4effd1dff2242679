package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/logging"
	"github.com/Sternrassler/rickmorty-client/pkg/pagination"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newExportCmd(a *app) *cobra.Command {
	var (
		output      string
		concurrency int
		maxPages    int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every matching character as JSON lines",
		Long: `Fetches all pages for the filter in parallel and writes one JSON
object per character, in API order. Any failed page aborts the export.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := pagination.DefaultConfig()
			if concurrency > 0 {
				cfg.MaxConcurrency = concurrency
			}
			cfg.MaxPages = maxPages
			cfg.Timeout = a.cfg.Timeout

			logger := logging.NewLogger(logging.ComponentExport)
			start := time.Now()

			records, err := pagination.NewBatchFetcher(a.client, cfg).FetchAll(cmd.Context(), a.filter)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			var w io.Writer = a.out
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}

			bw := bufio.NewWriter(w)
			enc := json.NewEncoder(bw)
			for _, r := range records {
				if err := enc.Encode(r); err != nil {
					return fmt.Errorf("encode record %s: %w", r.ID, err)
				}
			}
			if err := bw.Flush(); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			logger.Info().
				Int("records", len(records)).
				Stringer("filter", a.filter).
				Dur("duration", time.Since(start)).
				Msg("Export complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel page requests (default 4)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages, 0 for all")
	return cmd
}
