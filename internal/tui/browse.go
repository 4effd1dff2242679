package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/Sternrassler/rickmorty-client/pkg/accumulator"
	"github.com/Sternrassler/rickmorty-client/pkg/character"
	"github.com/Sternrassler/rickmorty-client/pkg/i18n"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// loadedMsg reports that an accumulator operation returned.
type loadedMsg struct {
	err error
}

// BrowseModel is the interactive character browser. The filter bar offers a
// status selector that applies immediately and a species field that applies
// on Enter. Moving past the last row loads the next page.
type BrowseModel struct {
	ctx    context.Context
	acc    *accumulator.Accumulator
	bundle *i18n.Bundle
	tr     *i18n.Translator
	styles Styles

	table          table.Model
	species        textinput.Model
	speciesFocused bool

	// filter is the most recently requested filter; state.Filter catches up
	// once the accumulator reports back.
	filter   character.Filter
	state    accumulator.State
	inFlight int

	width  int
	height int
}

// NewBrowseModel creates a browser over acc. ctx bounds every fetch the
// browser starts.
func NewBrowseModel(ctx context.Context, acc *accumulator.Accumulator, bundle *i18n.Bundle, locale string) BrowseModel {
	tr := bundle.Translator(locale)
	state := acc.State()

	t := table.New(
		table.WithColumns(columns(tr, 100)),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	t.SetStyles(tableStyles())

	si := textinput.New()
	si.Placeholder = tr.T("species")
	si.CharLimit = 50
	si.Width = 24
	si.SetValue(state.Filter.Species)

	m := BrowseModel{
		ctx:     ctx,
		acc:     acc,
		bundle:  bundle,
		tr:      tr,
		styles:  DefaultStyles(),
		table:   t,
		species: si,
		filter:  state.Filter,
		state:   state,
	}
	if state.CurrentPage == 0 {
		// Init issues the first load.
		m.inFlight = 1
	}
	m.updateTableRows()
	return m
}

// Init loads the first page unless the accumulator already holds records.
func (m BrowseModel) Init() tea.Cmd {
	if m.state.CurrentPage > 0 {
		return nil
	}
	return m.run(m.acc.LoadMore)
}

// Update handles messages.
func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case loadedMsg:
		m.inFlight = max(m.inFlight-1, 0)
		m.state = m.acc.State()
		m.updateTableRows()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.speciesFocused {
			switch msg.String() {
			case "enter":
				// Commit the pending species
				m.blurSpecies()
				return m, m.applyFilter(character.Filter{
					Status:  m.filter.Status,
					Species: m.species.Value(),
				})
			case "esc":
				// Discard the pending species
				m.blurSpecies()
				m.species.SetValue(m.filter.Species)
				return m, nil
			}
			m.species, cmd = m.species.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "/":
			m.speciesFocused = true
			return m, m.species.Focus()
		case "s", "tab":
			return m, m.applyFilter(character.Filter{
				Status:  m.filter.Status.Next(),
				Species: m.filter.Species,
			})
		case "m":
			return m, m.loadMore()
		case "r":
			m.inFlight++
			return m, m.run(m.acc.Refresh)
		case "l":
			m.setLocale(m.bundle.Next(m.tr.Locale()))
			return m, nil
		case "down", "j", "end", "pgdown":
			if m.table.Cursor() >= len(m.table.Rows())-1 {
				loadCmd := m.loadMore()
				m.table, cmd = m.table.Update(msg)
				return m, tea.Batch(cmd, loadCmd)
			}
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// applyFilter requests filter unless it is already the requested one.
func (m *BrowseModel) applyFilter(filter character.Filter) tea.Cmd {
	filter = filter.Normalize()
	if filter == m.filter {
		return nil
	}
	m.filter = filter
	m.inFlight++
	acc := m.acc
	return m.run(func(ctx context.Context) error {
		return acc.SetFilter(ctx, filter)
	})
}

// loadMore requests the next page when one exists and nothing is loading.
func (m *BrowseModel) loadMore() tea.Cmd {
	if !m.state.HasNext || m.loading() {
		return nil
	}
	m.inFlight++
	return m.run(m.acc.LoadMore)
}

func (m BrowseModel) run(op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return loadedMsg{err: op(ctx)}
	}
}

func (m BrowseModel) loading() bool {
	return m.inFlight > 0 || m.state.Status == accumulator.StatusLoading
}

func (m *BrowseModel) blurSpecies() {
	m.speciesFocused = false
	m.species.Blur()
}

// setLocale switches the display language.
func (m *BrowseModel) setLocale(locale string) {
	m.tr = m.bundle.Translator(locale)
	m.species.Placeholder = m.tr.T("species")
	m.table.SetColumns(columns(m.tr, m.width))
	m.updateTableRows()
}

// updateTableRows rebuilds the table from the last snapshot.
func (m *BrowseModel) updateTableRows() {
	rows := make([]table.Row, 0, len(m.state.Records))
	for _, r := range m.state.Records {
		rows = append(rows, table.Row(Row(m.tr, r)))
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(len(rows) - 1)
	}
}

// SetSize updates the size.
func (m *BrowseModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.table.SetColumns(columns(m.tr, w))
	m.table.SetWidth(w - 2)
	m.table.SetHeight(max(h-10, 3))
}

// State returns the snapshot the browser currently shows.
func (m BrowseModel) State() accumulator.State {
	return m.state
}

// View renders the browser.
func (m BrowseModel) View() string {
	var sb strings.Builder

	sb.WriteString(m.styles.Title.Render(m.tr.T("title")))
	sb.WriteString("\n")
	sb.WriteString(m.renderFilterBar())
	sb.WriteString("\n\n")
	sb.WriteString(m.table.View())
	sb.WriteString("\n")
	sb.WriteString(m.renderStatusLine())
	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render(m.tr.T("help")))

	return sb.String()
}

// renderFilterBar renders the status selector and species input.
func (m BrowseModel) renderFilterBar() string {
	var sb strings.Builder

	sb.WriteString(m.tr.T("status") + ": ")
	for _, s := range character.Statuses {
		style := m.styles.Muted
		if s == m.filter.Status {
			style = m.styles.Active
		}
		sb.WriteString(style.Render(m.tr.Status(s)))
		sb.WriteString("  ")
	}

	box := m.styles.InputBox
	if m.speciesFocused {
		box = m.styles.Focused
	}
	sb.WriteString("  " + m.tr.T("species") + ": ")
	sb.WriteString(box.Render(m.species.View()))

	sb.WriteString("  " + m.styles.Muted.Render(m.tr.T("language")+": "+m.tr.Locale()))

	return sb.String()
}

// renderStatusLine renders loading, error and end-of-list feedback.
func (m BrowseModel) renderStatusLine() string {
	switch {
	case m.loading():
		return m.styles.Muted.Render(m.tr.T("loading"))
	case m.state.Status == accumulator.StatusError:
		msg := m.tr.T("loadError")
		if m.state.Err != nil {
			msg += ": " + rootCause(m.state.Err).Error()
		}
		return m.styles.Error.Render(msg)
	case len(m.state.Records) == 0 && !m.state.HasNext:
		return m.styles.Muted.Render(m.tr.T("noResults"))
	case !m.state.HasNext:
		return m.styles.Muted.Render(m.tr.T("noMore"))
	default:
		return m.styles.Muted.Render(
			m.tr.Sprintf("shown", len(m.state.Records), m.state.Total) + " • [m] " + m.tr.T("loadMore"))
	}
}

// rootCause strips the accumulator's page context for a one-line message.
func rootCause(err error) error {
	var ferr *accumulator.FetchError
	if errors.As(err, &ferr) && ferr.Err != nil {
		return ferr.Err
	}
	return err
}

// columns sizes the character columns for a terminal width.
func columns(tr *i18n.Translator, width int) []table.Column {
	if width <= 0 {
		width = 100
	}
	// name, status, species, gender, origin
	weights := []int{28, 12, 16, 12, 32}
	usable := max(width-12, 50)

	titles := Headers(tr)
	cols := make([]table.Column, len(titles))
	for i, title := range titles {
		cols[i] = table.Column{Title: title, Width: usable * weights[i] / 100}
	}
	return cols
}
