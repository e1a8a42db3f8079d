package form

import (
	"fmt"
	"net/mail"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/theme"
)

// ContactSubmittedMsg is dispatched when the contact form is completed.
// Contact.ID is empty for a new contact.
type ContactSubmittedMsg struct {
	Contact model.Contact
}

type contactBindings struct {
	name  string
	email string
	phone string
}

// ContactModel is the create/edit form for contacts.
type ContactModel struct {
	form    *huh.Form
	fb      *contactBindings
	editing model.Contact
	width   int
	height  int
}

// NewContact creates a new contact form model.
func NewContact(width, height int) ContactModel {
	return ContactModel{fb: &contactBindings{}, width: width, height: height}
}

// Active reports whether a form is being edited.
func (m ContactModel) Active() bool {
	return m.form != nil
}

// StartCreate opens an empty form.
func (m *ContactModel) StartCreate() tea.Cmd {
	m.editing = model.Contact{}
	*m.fb = contactBindings{}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit opens the form prefilled with c.
func (m *ContactModel) StartEdit(c model.Contact) tea.Cmd {
	m.editing = c
	*m.fb = contactBindings{name: c.Name, email: c.Email, phone: c.Phone}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the contact form.
func (m ContactModel) Update(msg tea.Msg) (ContactModel, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		c := m.editing
		c.Name = strings.TrimSpace(m.fb.name)
		c.Email = strings.TrimSpace(m.fb.email)
		c.Phone = strings.TrimSpace(m.fb.phone)
		m.form = nil
		return m, func() tea.Msg { return ContactSubmittedMsg{Contact: c} }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the contact form.
func (m ContactModel) View() string {
	if m.form == nil {
		return ""
	}
	titleText := "Add contact"
	if m.editing.ID != "" {
		titleText = "Edit contact"
	}
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(titleStyle.Render(titleText) + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *ContactModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *ContactModel) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&m.fb.name).
				Validate(validateRequired("Name")),
			huh.NewInput().
				Title("Email").
				Value(&m.fb.email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Phone").
				Placeholder("optional").
				Value(&m.fb.phone),
		),
	).WithWidth(formWidth(m.width)).WithHeight(formHeight(m.height))
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return fmt.Errorf("invalid email address")
	}
	return nil
}
