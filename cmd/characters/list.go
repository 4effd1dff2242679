package main

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/rickmorty-client/internal/tui"
	"github.com/Sternrassler/rickmorty-client/pkg/accumulator"
	"github.com/Sternrassler/rickmorty-client/pkg/logging"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print characters as a table",
		Long: `Loads characters page by page, as the browser does when scrolling,
and prints them as a table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 1 {
				return fmt.Errorf("--pages must be >= 1 (got %d)", pages)
			}

			acc := accumulator.New(a.client, a.filter, logging.NewLogger(logging.ComponentAccumulator))
			for i := 0; i < pages && acc.State().HasNext; i++ {
				if err := acc.LoadMore(cmd.Context()); err != nil {
					var ferr *accumulator.FetchError
					if errors.As(err, &ferr) {
						return fmt.Errorf("load page %d: %w", ferr.Page, ferr.Err)
					}
					return err
				}
			}

			state := acc.State()
			tr := a.translator()

			fmt.Fprintln(a.out, tr.T("title"))
			if len(state.Records) == 0 {
				fmt.Fprintln(a.out, tr.T("noResults"))
				return nil
			}
			fmt.Fprintln(a.out, tui.RenderTable(tr, tui.DefaultStyles(), state.Records))

			footer := tr.Sprintf("shown", len(state.Records), state.Total)
			if !state.HasNext {
				footer += " • " + tr.T("noMore")
			}
			fmt.Fprintln(a.out, footer)
			return nil
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}
