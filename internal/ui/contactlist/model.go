package contactlist

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/kanban/internal/cache"
	"github.com/nhle/kanban/internal/keys"
	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/selection"
	"github.com/nhle/kanban/internal/theme"
)

// ContactsChangedMsg carries a new contact snapshot from the cache.
type ContactsChangedMsg struct {
	Contacts []model.Contact
}

// SelectionChangedMsg carries a coordinator state change.
type SelectionChangedMsg struct {
	State selection.State
}

// LayoutChangedMsg carries the narrow and detail-open flags.
type LayoutChangedMsg struct {
	Narrow     bool
	DetailOpen bool
}

// MenuChangedMsg carries the mobile menu visibility.
type MenuChangedMsg struct {
	Visible bool
}

// RouteMsg asks the app to record a navigation.
type RouteMsg struct {
	Route string
}

// NewContactMsg asks the app to open the create form.
type NewContactMsg struct{}

// Model is the grouped contact list with its detail panel.
type Model struct {
	keys  *keys.KeyMap
	coord *selection.Coordinator
	menu  *selection.MobileMenu

	groups  []cache.Group
	flat    []model.Contact
	cursor  int
	current string

	state       selection.State
	narrow      bool
	detailOpen  bool
	menuVisible bool

	width  int
	height int
}

// New creates the contacts view over a coordinator and its menu.
func New(k *keys.KeyMap, c *selection.Coordinator, menu *selection.MobileMenu, width, height int) Model {
	return Model{
		keys:   k,
		coord:  c,
		menu:   menu,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetIdentity marks the signed-in contact in the list.
func (m *Model) SetIdentity(id string) {
	m.current = id
}

// Selected returns the contact the coordinator has open, if any.
func (m Model) Selected() (model.Contact, bool) {
	if m.state.ID == "" {
		return model.Contact{}, false
	}
	return m.find(m.state.ID)
}

// Cursor returns the contact under the cursor.
func (m Model) Cursor() (model.Contact, bool) {
	if m.cursor < 0 || m.cursor >= len(m.flat) {
		return model.Contact{}, false
	}
	return m.flat[m.cursor], true
}

// Update handles messages for the contacts view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ContactsChangedMsg:
		m.groups = cache.GroupByLetter(msg.Contacts)
		m.flat = nil
		for _, g := range m.groups {
			m.flat = append(m.flat, g.Contacts...)
		}
		m.cursor = min(m.cursor, max(len(m.flat)-1, 0))
		return m, nil

	case SelectionChangedMsg:
		m.state = msg.State
		return m, nil

	case LayoutChangedMsg:
		m.narrow = msg.Narrow
		m.detailOpen = msg.DetailOpen
		return m, nil

	case MenuChangedMsg:
		m.menuVisible = msg.Visible
		return m, nil

	case tea.KeyMsg:
		if m.menuVisible {
			return m.handleMenuKeys(msg)
		}
		if m.narrow && m.detailOpen {
			return m.handleDetailKeys(msg)
		}
		return m.handleListKeys(msg)
	}
	return m, nil
}

func (m Model) handleListKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.cursor = max(m.cursor-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.cursor = min(m.cursor+1, max(len(m.flat)-1, 0))
	case key.Matches(msg, m.keys.Select):
		if c, ok := m.Cursor(); ok {
			m.coord.Select(c.ID)
			return m, routeCmd("/contacts/" + c.ID)
		}
	case key.Matches(msg, m.keys.New):
		return m, func() tea.Msg { return NewContactMsg{} }
	case key.Matches(msg, m.keys.Back):
		if m.state.ID != "" {
			m.coord.Back()
			return m, routeCmd("/contacts")
		}
	default:
		if m.state.ID != "" {
			return m.handleDetailKeys(msg)
		}
	}
	return m, nil
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.coord.Back()
		return m, routeCmd("/contacts")
	case key.Matches(msg, m.keys.Menu):
		m.menu.Toggle()
	case key.Matches(msg, m.keys.Edit):
		m.coord.RequestEdit()
	case key.Matches(msg, m.keys.Delete):
		m.coord.RequestDelete()
	}
	return m, nil
}

// handleMenuKeys routes keys while the options menu is shown. Edit and
// delete are interactions inside the menu; anything else lands outside
// it and dismisses it.
func (m Model) handleMenuKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Edit):
		m.coord.Interact(selection.MobileMenuRegion)
		m.menu.Edit()
	case key.Matches(msg, m.keys.Delete):
		m.coord.Interact(selection.MobileMenuRegion)
		m.menu.Delete()
	default:
		m.coord.Interact("")
	}
	return m, nil
}

func routeCmd(route string) tea.Cmd {
	return func() tea.Msg { return RouteMsg{Route: route} }
}

func (m Model) find(id string) (model.Contact, bool) {
	for _, c := range m.flat {
		if c.ID == id {
			return c, true
		}
	}
	return model.Contact{}, false
}

// View renders the list and, depending on the viewport, the detail panel.
func (m Model) View() string {
	listW, detailW := m.width*2/5, m.width-m.width*2/5
	if m.narrow {
		if m.detailOpen {
			return m.renderDetail(m.width)
		}
		return m.renderList(m.width)
	}

	if m.state.Phase == selection.PhaseClosed {
		return m.renderList(m.width)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderList(listW), m.renderDetail(detailW))
}

func (m Model) renderList(width int) string {
	if len(m.flat) == 0 {
		return theme.DimmedStyle.Render("No contacts yet. Press n to add one.")
	}

	var b strings.Builder
	i := 0
	for _, g := range m.groups {
		b.WriteString(theme.GroupHeaderStyle.Width(max(width-2, 4)).Render(g.Letter) + "\n")
		for _, c := range g.Contacts {
			b.WriteString(m.renderRow(c, i == m.cursor) + "\n")
			i++
		}
	}
	return lipgloss.NewStyle().Width(width).MaxHeight(max(m.height, 1)).Render(b.String())
}

func (m Model) renderRow(c model.Contact, focused bool) string {
	name := c.Name
	if c.ID == m.current {
		name += " (You)"
	}
	text := theme.BadgeStyle(c.IconColor).Render(c.Initials()) + " " + name
	if c.Email != "" {
		text += "  " + theme.DimmedStyle.Render(c.Email)
	}
	switch {
	case m.state.Visible(c.ID):
		return theme.SelectedItemStyle.Render(text)
	case focused:
		return theme.SelectedItemStyle.Foreground(theme.ColorWhite).Render(text)
	default:
		return theme.ListItemStyle.Render(text)
	}
}

// renderDetail draws the open contact. The entering frame draws nothing
// so the panel appears once its transition starts; the closing phase
// dims it.
func (m Model) renderDetail(width int) string {
	c, ok := m.Selected()
	if !ok {
		return ""
	}
	if m.state.Phase == selection.PhaseOpening && !m.state.Animating {
		return ""
	}

	var b strings.Builder
	b.WriteString(theme.BadgeStyle(c.IconColor).Render(c.Initials()) + " ")
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(c.Name) + "\n\n")
	b.WriteString("Email: " + c.Email + "\n")
	if c.Phone != "" {
		b.WriteString("Phone: " + c.Phone + "\n")
	}
	if c.IsGuest {
		b.WriteString(theme.DimmedStyle.Render("Guest account") + "\n")
	}

	hint := "e edit · d delete · esc back"
	if m.narrow {
		hint = "m options · esc back"
	}
	b.WriteString("\n" + theme.HelpStyle.Render(hint))
	if m.menuVisible {
		b.WriteString("\n\n" + theme.BorderStyle.Render("e Edit\nd Delete"))
	}

	style := theme.DetailPanelStyle.Width(max(width-4, 10))
	if m.state.Phase == selection.PhaseClosing || m.state.Phase == selection.PhaseOpening {
		style = style.Foreground(theme.ColorGray)
	}
	return style.Render(b.String())
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
