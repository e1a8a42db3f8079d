package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/kanban/internal/keys"
	"github.com/nhle/kanban/internal/theme"
)

// Section is a titled group of bindings in the help overlay.
type Section struct {
	Title    string
	Bindings []key.Binding
}

// Model is the help overlay. It lists the bindings of the view it was
// opened from ahead of the global ones.
type Model struct {
	keys    *keys.KeyMap
	help    help.Model
	context string
	width   int
	height  int
}

// New creates a help overlay for k.
func New(k *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   k,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// SetContext names the view the help was opened from.
func (m *Model) SetContext(view string) {
	m.context = view
}

// Sections returns the bindings shown for the current context.
func (m Model) Sections() []Section {
	k := m.keys
	var sections []Section
	switch m.context {
	case "Board":
		sections = append(sections, Section{
			Title:    "Board",
			Bindings: []key.Binding{k.Left, k.Right, k.Pick, k.Select, k.ToggleSubtask, k.New, k.Edit, k.Delete},
		})
	case "Contacts":
		sections = append(sections, Section{
			Title:    "Contacts",
			Bindings: []key.Binding{k.Select, k.New, k.Edit, k.Delete, k.Menu},
		})
	}
	return append(sections,
		Section{Title: "Navigation", Bindings: []key.Binding{k.Up, k.Down, k.Back, k.ShowBoard, k.ShowContacts}},
		Section{Title: "General", Bindings: []key.Binding{k.Search, k.Command, k.Refresh, k.Help, k.Quit}},
	)
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := "Keyboard Shortcuts"
	if m.context != "" {
		title += " · " + m.context
	}

	m.help.Width = m.width - 4
	blocks := []string{titleStyle.Render(title)}
	for _, s := range m.Sections() {
		blocks = append(blocks,
			theme.HelpStyle.Render(s.Title),
			m.help.FullHelpView([][]key.Binding{s.Bindings}),
			"",
		)
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, blocks...))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
