package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// ErrNoItems is returned when the browser has nothing to show.
var ErrNoItems = errors.New("no items to display")

// BrowserAction represents an action requested from the browser.
type BrowserAction string

const (
	ActionNone           BrowserAction = ""
	ActionShowDetails    BrowserAction = "details"
	ActionToggleFeatured BrowserAction = "feature"
	ActionReplaceImage   BrowserAction = "image"
	ActionRefresh        BrowserAction = "refresh"
)

// BrowserResult holds the result of a browser session.
type BrowserResult struct {
	Action BrowserAction
	Row    *Row
}

// BrowserOptions configures RunBrowser.
type BrowserOptions struct {
	Title string
	Rows  []Row
	// Updates, when set, replaces the list contents whenever a new
	// snapshot arrives. The browser stops reading when it exits.
	Updates <-chan []Row
}

// RowsMsg carries a fresh snapshot into the browser.
type RowsMsg []Row

// BrowserModel is the bubbletea model of the catalog browser.
type BrowserModel struct {
	list      list.Model
	keys      BrowserKeys
	updates   <-chan []Row
	width     int
	height    int
	activeCmd string
	quitting  bool
	action    BrowserAction
	selected  *Row
}

// NewBrowserModel builds the browser model for opts.
func NewBrowserModel(opts BrowserOptions) BrowserModel {
	keys := NewBrowserKeys()
	l := list.New(toListItems(opts.Rows), rowDelegate{}, 0, 0)
	l.Title = opts.Title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = StyleHeader
	l.Styles.PaginationStyle = StyleHelp
	l.Styles.HelpStyle = StyleHelp
	l.AdditionalShortHelpKeys = keys.ShortHelp
	l.AdditionalFullHelpKeys = keys.FullHelp
	return BrowserModel{list: l, keys: keys, updates: opts.Updates}
}

func toListItems(rows []Row) []list.Item {
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = r
	}
	return items
}

func waitForRows(ch <-chan []Row) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		rows, ok := <-ch
		if !ok {
			return nil
		}
		return RowsMsg(rows)
	}
}

func (m BrowserModel) Init() tea.Cmd {
	return waitForRows(m.updates)
}

// Result returns the action chosen when the browser exited.
func (m BrowserModel) Result() BrowserResult {
	return BrowserResult{Action: m.action, Row: m.selected}
}

func (m BrowserModel) choose(action BrowserAction) (tea.Model, tea.Cmd) {
	row, ok := m.list.SelectedItem().(Row)
	if !ok {
		return m, nil
	}
	m.action = action
	m.selected = &row
	m.quitting = true
	return m, tea.Quit
}

func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RowsMsg:
		cmd := m.list.SetItems(toListItems(msg))
		return m, tea.Batch(cmd, waitForRows(m.updates))

	case ClearActiveCmdMsg:
		m.activeCmd = ""
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Details):
			return m.choose(ActionShowDetails)
		case key.Matches(msg, m.keys.Feature):
			return m.choose(ActionToggleFeatured)
		case key.Matches(msg, m.keys.Image):
			return m.choose(ActionReplaceImage)
		case key.Matches(msg, m.keys.Refresh):
			m.action = ActionRefresh
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h, v := StyleBorder.GetFrameSize()
		listW := msg.Width - h
		if m.showDetails() {
			listW = (msg.Width-h)*6/10 - 1
		}
		m.list.SetSize(listW, msg.Height-v-1)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m BrowserModel) showDetails() bool {
	return m.width >= 100
}

func (m BrowserModel) View() string {
	if m.quitting {
		return ""
	}
	body := m.list.View()
	if m.showDetails() {
		divider := StyleHelp.Render(strings.Repeat("│\n", max(m.list.Height()-1, 0)) + "│")
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, divider, m.renderDetails())
	}
	footer := RenderFooterBar([]ShortcutEntry{
		{Key: "enter", Label: "enter details"},
		{Key: "f", Label: "f featured"},
		{Key: "i", Label: "i image"},
		{Key: "r", Label: "r refresh"},
		{Label: "q quit"},
	}, m.activeCmd)
	return StyleBorder.Render(body + "\n" + footer)
}

func (m BrowserModel) renderDetails() string {
	row, ok := m.list.SelectedItem().(Row)
	if !ok {
		return ""
	}
	width := max((m.width-2)*4/10, 30)
	text := max(width-2-len("Updated: "), 10)

	var s strings.Builder
	s.WriteString(StyleHeader.Render(row.Item.DisplayName))
	s.WriteString("\n\n")
	field := func(label, value string) {
		if value == "" {
			return
		}
		s.WriteString(StyleHighlight.Render(label + ": "))
		s.WriteString(ansi.Truncate(value, text, "…"))
		s.WriteString("\n")
	}
	field("ID", row.Item.ID)
	field("Slug", row.Item.Slug)
	field("Category", row.groupLabel())
	if row.Item.Featured {
		field("Featured", "yes")
	}
	field("Image", row.Item.ImageURL)
	if !row.Item.UpdatedAt.IsZero() {
		field("Updated", row.Item.UpdatedAt.Format("2006-01-02 15:04"))
	}
	field("By", row.Item.UpdatedBy)
	if row.Item.Description != "" {
		s.WriteString("\n")
		s.WriteString(lipgloss.NewStyle().Width(width - 2).Render(row.Item.Description))
	}
	return lipgloss.NewStyle().Width(width).Padding(0, 1).Render(s.String())
}

// RunBrowser launches the interactive catalog browser and returns the
// action the user picked.
func RunBrowser(opts BrowserOptions) (*BrowserResult, error) {
	if len(opts.Rows) == 0 {
		return nil, ErrNoItems
	}
	p := tea.NewProgram(NewBrowserModel(opts), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("running TUI: %w", err)
	}
	if fm, ok := final.(BrowserModel); ok {
		res := fm.Result()
		return &res, nil
	}
	return &BrowserResult{Action: ActionNone}, nil
}
