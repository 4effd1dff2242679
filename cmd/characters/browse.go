package main

import (
	"fmt"

	"github.com/Sternrassler/rickmorty-client/internal/tui"
	"github.com/Sternrassler/rickmorty-client/pkg/accumulator"
	"github.com/Sternrassler/rickmorty-client/pkg/logging"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse characters interactively",
		Long: `Opens a scrolling character table. Press s to cycle the status filter,
/ to edit the species filter (Enter applies it), l to switch language and q
to quit. Scrolling past the last row loads the next page.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			acc := accumulator.New(a.client, a.filter, logging.NewLogger(logging.ComponentAccumulator))
			model := tui.NewBrowseModel(cmd.Context(), acc, a.bundle, a.locale)

			p := tea.NewProgram(model,
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
				tea.WithOutput(a.out),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run browser: %w", err)
			}
			return nil
		},
	}
}
