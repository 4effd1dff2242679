package tui

import (
	"github.com/Sternrassler/rickmorty-client/pkg/character"
	"github.com/Sternrassler/rickmorty-client/pkg/i18n"
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
)

// columnKeys are the translation keys of the character columns, in order.
var columnKeys = []string{"name", "status", "species", "gender", "origin"}

// Headers returns the translated column titles.
func Headers(tr *i18n.Translator) []string {
	out := make([]string, len(columnKeys))
	for i, key := range columnKeys {
		out[i] = tr.T(key)
	}
	return out
}

// Row returns the display cells of one record.
func Row(tr *i18n.Translator, r character.Record) []string {
	return []string{r.Name, tr.Status(r.Status), r.Species, r.Gender, r.OriginName}
}

// RenderTable renders records as a bordered table for non-interactive output.
func RenderTable(tr *i18n.Translator, styles Styles, records []character.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, Row(tr, r))
	}

	return ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Border)).
		Headers(Headers(tr)...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return styles.Header
			}
			return styles.Cell
		}).
		String()
}
