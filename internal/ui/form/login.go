package form

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/theme"
)

// guestChoice is the select value for guest login.
const guestChoice = ""

// LoginMsg is dispatched when the user picks an identity. An empty
// ContactID means guest login.
type LoginMsg struct {
	ContactID string
}

type loginBindings struct {
	choice string
}

// LoginModel lets the user sign in as an existing contact or as a guest.
type LoginModel struct {
	form   *huh.Form
	fb     *loginBindings
	width  int
	height int
}

// NewLogin creates the login picker.
func NewLogin(width, height int) LoginModel {
	return LoginModel{fb: &loginBindings{}, width: width, height: height}
}

// Active reports whether the picker is shown.
func (m LoginModel) Active() bool {
	return m.form != nil
}

// Start opens the picker over contacts. Guest contacts are not offered.
func (m *LoginModel) Start(contacts []model.Contact) tea.Cmd {
	opts := loginOptions(contacts)
	m.fb.choice = guestChoice
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Sign in").
				Options(opts...).
				Value(&m.fb.choice),
		),
	).WithWidth(formWidth(m.width)).WithHeight(formHeight(m.height))
	return m.form.Init()
}

func loginOptions(contacts []model.Contact) []huh.Option[string] {
	opts := []huh.Option[string]{huh.NewOption("Continue as guest", guestChoice)}
	for _, c := range contacts {
		if c.IsGuest {
			continue
		}
		opts = append(opts, huh.NewOption(c.Name+" <"+c.Email+">", c.ID))
	}
	return opts
}

// Update handles messages for the picker.
func (m LoginModel) Update(msg tea.Msg) (LoginModel, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		id := m.fb.choice
		m.form = nil
		return m, func() tea.Msg { return LoginMsg{ContactID: id} }
	case huh.StateAborted:
		// The board is unusable without an identity.
		m.form = nil
		return m, tea.Quit
	}
	return m, cmd
}

// View renders the picker.
func (m LoginModel) View() string {
	if m.form == nil {
		return ""
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Welcome to Kanban")
	return lipgloss.NewStyle().Padding(1, 2).Render(title + "\n" + m.form.View())
}

// SetSize updates the picker dimensions.
func (m *LoginModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// ConfirmModel is a yes/no dialog whose answer is delivered to a waiting
// caller through Reply.
type ConfirmModel struct {
	form     *huh.Form
	answer   *bool
	question string
	reply    chan<- bool
	width    int
}

// ConfirmDoneMsg is dispatched when a confirm dialog closes.
type ConfirmDoneMsg struct{}

// NewConfirm builds a dialog for question that reports to reply.
func NewConfirm(question string, reply chan<- bool, width int) ConfirmModel {
	answer := false
	m := ConfirmModel{answer: &answer, question: question, reply: reply, width: width}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Delete").
				Negative("Cancel").
				Value(m.answer),
		),
	).WithWidth(formWidth(width))
	return m
}

// Init starts the dialog.
func (m ConfirmModel) Init() tea.Cmd {
	if m.form == nil {
		return nil
	}
	return m.form.Init()
}

// Active reports whether the dialog is open.
func (m ConfirmModel) Active() bool {
	return m.form != nil
}

// Update handles messages for the dialog. An aborted dialog answers no.
func (m ConfirmModel) Update(msg tea.Msg) (ConfirmModel, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.finish(*m.answer)
		return m, func() tea.Msg { return ConfirmDoneMsg{} }
	case huh.StateAborted:
		m.finish(false)
		return m, func() tea.Msg { return ConfirmDoneMsg{} }
	}
	return m, cmd
}

// Cancel answers no without waiting for the user.
func (m *ConfirmModel) Cancel() {
	if m.form != nil {
		m.finish(false)
	}
}

func (m *ConfirmModel) finish(ok bool) {
	m.form = nil
	if m.reply != nil {
		m.reply <- ok
		m.reply = nil
	}
}

// View renders the dialog.
func (m ConfirmModel) View() string {
	if m.form == nil {
		return ""
	}
	return theme.DetailPanelStyle.Render(m.form.View())
}
