package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/ui/command"
	"github.com/nhle/kanban/internal/ui/form"
)

// loadLoginOptions lists the contacts offered by the login picker.
func (m Model) loadLoginOptions() tea.Cmd {
	dir := m.deps.Directory
	n := m.deps.Notifier
	return func() tea.Msg {
		contacts, err := dir.ListContacts(context.Background())
		if err != nil {
			n.Error("Contacts could not be loaded.")
		}
		return loginOptionsMsg{contacts: contacts}
	}
}

// loginCmd signs in as contactID, or as a new guest when it is empty.
func (m Model) loginCmd(contactID string) tea.Cmd {
	s := m.deps.Session
	return func() tea.Msg {
		ctx := context.Background()
		if contactID == "" {
			_, err := s.GuestLogin(ctx)
			return loginDoneMsg{err: err}
		}
		return loginDoneMsg{err: s.Login(ctx, contactID)}
	}
}

func (m *Model) openConfirm(req confirmRequestMsg) tea.Cmd {
	m.confirm = form.NewConfirm(req.question, req.reply, m.layout.ContentWidth())
	return m.confirm.Init()
}

// openTaskForm opens the create form, or the edit form when t is set.
func (m *Model) openTaskForm(t *model.Task, status model.Status, title string) tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewTaskForm
	m.taskForm.SetContacts(m.deps.Contacts.Snapshot())
	if t != nil {
		return m.taskForm.StartEdit(*t)
	}
	return m.taskForm.StartCreate(status, title)
}

// openContactForm opens the create form, or the edit form when c has an id.
func (m *Model) openContactForm(c model.Contact) tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewContactForm
	if c.ID != "" {
		return m.contactForm.StartEdit(c)
	}
	return m.contactForm.StartCreate()
}

// saveTaskCmd creates or updates t. Failures are reported by the cache.
func (m Model) saveTaskCmd(t model.Task) tea.Cmd {
	tasks := m.deps.Tasks
	return func() tea.Msg {
		ctx := context.Background()
		if t.IsPersisted() {
			return actionDoneMsg{err: tasks.Update(ctx, t)}
		}
		_, err := tasks.Create(ctx, t)
		return actionDoneMsg{err: err}
	}
}

// saveContactCmd creates or updates c. Failures are reported by the cache.
func (m Model) saveContactCmd(c model.Contact) tea.Cmd {
	contacts := m.deps.Contacts
	return func() tea.Msg {
		ctx := context.Background()
		if c.ID == "" {
			fresh := model.NewContact(c.Name, c.Email, nil)
			fresh.Phone = c.Phone
			_, err := contacts.Create(ctx, fresh)
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{err: contacts.Update(ctx, c.ID, model.ContactPatch{
			Name:  &c.Name,
			Email: &c.Email,
			Phone: &c.Phone,
		})}
	}
}

// deleteTaskCmd asks for confirmation and deletes t.
func (m Model) deleteTaskCmd(t model.Task) tea.Cmd {
	tasks := m.deps.Tasks
	n := m.deps.Notifier
	return func() tea.Msg {
		ctx := context.Background()
		ok, err := n.Confirm(ctx, fmt.Sprintf("Delete task %q?", t.Title))
		if err != nil || !ok {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{err: tasks.Delete(ctx, t.ID)}
	}
}

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(cmd command.CommandMsg) tea.Cmd {
	if m.identity == "" && cmd.Name != "quit" && cmd.Name != "q" {
		return nil
	}
	switch cmd.Name {
	case "board":
		*m = m.showBoard()
	case "contacts":
		*m = m.showContacts()
	case "refresh", "sync":
		m.deps.Refresher.Refresh()
	case "new task":
		return m.openTaskForm(nil, m.board.FocusedLane(), cmd.Arg)
	case "new contact":
		return m.openContactForm(model.Contact{})
	case "login":
		if cmd.Arg != "" {
			return m.loginCmd(cmd.Arg)
		}
	case "guest":
		return m.loginCmd("")
	case "logout":
		m.deps.Session.Logout()
		return m.loadLoginOptions()
	case "quit", "q":
		m.confirm.Cancel()
		return tea.Quit
	default:
		m.deps.Notifier.Error(fmt.Sprintf("Unknown command %q", cmd.Name))
	}
	return nil
}
