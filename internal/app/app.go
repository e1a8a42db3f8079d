package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/kanban/internal/auth"
	"github.com/nhle/kanban/internal/board"
	"github.com/nhle/kanban/internal/cache"
	"github.com/nhle/kanban/internal/keys"
	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/mutation"
	"github.com/nhle/kanban/internal/selection"
	appsync "github.com/nhle/kanban/internal/sync"
	"github.com/nhle/kanban/internal/theme"
	"github.com/nhle/kanban/internal/ui"
	"github.com/nhle/kanban/internal/ui/boardview"
	"github.com/nhle/kanban/internal/ui/command"
	"github.com/nhle/kanban/internal/ui/contactlist"
	"github.com/nhle/kanban/internal/ui/form"
	helpview "github.com/nhle/kanban/internal/ui/help"
)

// toastDuration is how long a notification stays in the status bar.
const toastDuration = 3 * time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBoard ViewState = iota
	ViewContacts
	ViewHelp
	ViewCommand
	ViewTaskForm
	ViewContactForm
	ViewLogin
)

// Directory lists contacts for the login picker without going through
// the contact cache, which would prune guests while nobody is signed in.
type Directory interface {
	ListContacts(ctx context.Context) ([]model.Contact, error)
}

// Deps are the services the app model drives.
type Deps struct {
	Config    *model.AppConfig
	Notifier  *Notifier
	Tasks     *cache.TaskCache
	Contacts  *cache.ContactCache
	Engine    *mutation.Engine
	Drag      *board.Drag
	Coord     *selection.Coordinator
	Menu      *selection.MobileMenu
	Session   *auth.Session
	Refresher *appsync.Refresher
	Directory Directory
}

type identityMsg struct{ id string }

type intentMsg struct{ intent selection.Intent }

type restoredMsg struct{ ok bool }

type loginOptionsMsg struct{ contacts []model.Contact }

type loginDoneMsg struct{ err error }

type actionDoneMsg struct{ err error }

type toastExpiredMsg struct{ seq int }

// Model is the root Bubble Tea model that manages view routing,
// layout, and the bridge between the services and the views.
type Model struct {
	deps         Deps
	keys         *keys.KeyMap
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout

	board       boardview.Model
	contacts    contactlist.Model
	helpView    helpview.Model
	commandView command.Model
	taskForm    form.TaskModel
	contactForm form.ContactModel
	login       form.LoginModel

	confirm      form.ConfirmModel
	confirmQueue []confirmRequestMsg

	toast    string
	toastErr bool
	toastSeq int
	spinner  spinner.Model

	identity  string
	listening bool
	ready     bool
	cancels   []func()
}

// New creates the root model and subscribes it to every service stream.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.HelpStyle
	m := Model{
		deps:        d,
		keys:        k,
		currentView: ViewLogin,
		layout:      ui.NewLayout(80, 24, d.Config.Selection.CellWidth),
		board:       boardview.New(k, d.Engine, d.Drag, 80, 22),
		contacts:    contactlist.New(k, d.Coord, d.Menu, 80, 22),
		helpView:    helpview.New(k, 80, 22),
		commandView: command.New(80, 22),
		taskForm:    form.NewTask(80, 22),
		contactForm: form.NewContact(80, 22),
		login:       form.NewLogin(80, 22),
		spinner:     sp,
	}

	post := d.Notifier.box.post
	m.cancels = []func(){
		d.Tasks.Subscribe(func(tasks []model.Task) {
			post(boardview.TasksChangedMsg{Tasks: tasks})
		}),
		d.Contacts.Subscribe(func(contacts []model.Contact) {
			post(contactlist.ContactsChangedMsg{Contacts: contacts})
		}),
		d.Coord.Subscribe(func(st selection.State) {
			post(contactlist.SelectionChangedMsg{State: st})
		}),
		d.Coord.Narrow(func(bool) {
			post(contactlist.LayoutChangedMsg{Narrow: d.Coord.IsNarrow(), DetailOpen: d.Coord.IsDetailOpen()})
		}),
		d.Coord.DetailOpen(func(bool) {
			post(contactlist.LayoutChangedMsg{Narrow: d.Coord.IsNarrow(), DetailOpen: d.Coord.IsDetailOpen()})
		}),
		d.Menu.Visible(func(v bool) {
			post(contactlist.MenuChangedMsg{Visible: v})
		}),
		d.Coord.OnIntent(func(i selection.Intent) {
			post(intentMsg{intent: i})
		}),
		d.Session.Subscribe(func(id string) {
			post(identityMsg{id: id})
		}),
	}
	return m
}

// Close cancels every subscription and stops background work.
func (m Model) Close() {
	for _, cancel := range m.cancels {
		cancel()
	}
	m.deps.Refresher.Stop()
	m.deps.Notifier.Close()
}

// Init restores the remembered session and starts listening for
// service events.
func (m Model) Init() tea.Cmd {
	s := m.deps.Session
	return tea.Batch(
		m.deps.Notifier.box.wait(),
		m.spinner.Tick,
		func() tea.Msg {
			return restoredMsg{ok: s.Restore(context.Background())}
		},
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height, m.deps.Config.Selection.CellWidth)
		m.ready = true
		m.resize()
		m.deps.Coord.SetViewport(m.layout.LogicalWidth(), m.layout.LogicalHeight())
		return m.updateActiveView(msg)

	case eventMsg:
		next, cmd := m.Update(msg.inner)
		return next, tea.Batch(cmd, m.deps.Notifier.box.wait())

	case toastMsg:
		m.toastSeq++
		m.toast = msg.text
		m.toastErr = msg.err
		seq := m.toastSeq
		return m, tea.Tick(toastDuration, func(time.Time) tea.Msg {
			return toastExpiredMsg{seq: seq}
		})

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case confirmRequestMsg:
		if m.confirm.Active() {
			m.confirmQueue = append(m.confirmQueue, msg)
			return m, nil
		}
		return m, m.openConfirm(msg)

	case form.ConfirmDoneMsg:
		if len(m.confirmQueue) > 0 {
			next := m.confirmQueue[0]
			m.confirmQueue = m.confirmQueue[1:]
			return m, m.openConfirm(next)
		}
		return m, nil

	case restoredMsg:
		if msg.ok {
			return m, nil
		}
		return m, m.loadLoginOptions()

	case loginOptionsMsg:
		m.currentView = ViewLogin
		return m, m.login.Start(msg.contacts)

	case form.LoginMsg:
		return m, m.loginCmd(msg.ContactID)

	case loginDoneMsg:
		if msg.err != nil {
			m.deps.Notifier.Error("Login failed.")
			return m, m.loadLoginOptions()
		}
		return m, nil

	case identityMsg:
		return m.handleIdentity(msg.id)

	case appsync.RefreshResultMsg:
		return m, m.deps.Refresher.WaitForNextResult()

	case intentMsg:
		return m.handleIntent(msg.intent)

	case boardview.TasksChangedMsg, boardview.MutationDoneMsg:
		var cmd tea.Cmd
		m.board, cmd = m.board.Update(msg)
		return m, cmd

	case contactlist.ContactsChangedMsg:
		m.taskForm.SetContacts(msg.Contacts)
		var cmd tea.Cmd
		m.contacts, cmd = m.contacts.Update(msg)
		return m, cmd

	case contactlist.SelectionChangedMsg, contactlist.LayoutChangedMsg, contactlist.MenuChangedMsg:
		var cmd tea.Cmd
		m.contacts, cmd = m.contacts.Update(msg)
		return m, cmd

	case contactlist.RouteMsg:
		m.deps.Coord.SetRoute(msg.Route)
		return m, nil

	case contactlist.NewContactMsg:
		return m, m.openContactForm(model.Contact{})

	case boardview.NewTaskMsg:
		return m, m.openTaskForm(nil, msg.Status, "")

	case boardview.EditTaskMsg:
		t := msg.Task
		return m, m.openTaskForm(&t, t.Status, "")

	case boardview.DeleteTaskMsg:
		return m, m.deleteTaskCmd(msg.Task)

	case form.TaskSubmittedMsg:
		m.currentView = m.previousView
		return m, m.saveTaskCmd(msg.Task)

	case form.ContactSubmittedMsg:
		m.currentView = m.previousView
		return m, m.saveContactCmd(msg.Contact)

	case form.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case actionDoneMsg:
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.confirm.Cancel()
			return m, tea.Quit
		}
		if m.confirm.Active() {
			var cmd tea.Cmd
			m.confirm, cmd = m.confirm.Update(msg)
			return m, cmd
		}
		if !m.capturesText() {
			if next, cmd, ok := m.handleGlobalKey(msg); ok {
				return next, cmd
			}
		}
	}

	if m.confirm.Active() {
		var cmd tea.Cmd
		m.confirm, cmd = m.confirm.Update(msg)
		return m, cmd
	}

	return m.updateActiveView(msg)
}

// capturesText reports whether the active view consumes printable keys.
func (m Model) capturesText() bool {
	switch m.currentView {
	case ViewCommand, ViewTaskForm, ViewContactForm, ViewLogin:
		return true
	case ViewBoard:
		return m.board.Searching()
	}
	return false
}

func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "q":
		if m.currentView == ViewBoard || m.currentView == ViewContacts {
			m.confirm.Cancel()
			return m, tea.Quit, true
		}

	case "?":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.helpView.SetContext(m.viewTitle())
		m.currentView = ViewHelp
		return m, nil, true

	case ":":
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus(), true

	case "esc":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}

	case "1":
		next := m.showBoard()
		return next, nil, true

	case "2":
		next := m.showContacts()
		return next, nil, true

	case "r":
		if m.currentView == ViewBoard || m.currentView == ViewContacts {
			m.deps.Refresher.Refresh()
			return m, nil, true
		}
	}
	return m, nil, false
}

func (m Model) showBoard() Model {
	m.deps.Coord.Close()
	m.deps.Coord.SetRoute("/board")
	m.currentView = ViewBoard
	return m
}

func (m Model) showContacts() Model {
	m.deps.Coord.SetRoute("/contacts")
	m.currentView = ViewContacts
	return m
}

func (m Model) handleIdentity(id string) (tea.Model, tea.Cmd) {
	m.identity = id
	m.contacts.SetIdentity(id)
	if id == "" {
		m.deps.Refresher.Stop()
		m.deps.Coord.Close()
		m.currentView = ViewLogin
		return m, nil
	}

	m = m.showBoard()
	cmd := m.deps.Refresher.Start()
	if m.listening {
		// The result stream from the previous session is still read.
		return m, nil
	}
	m.listening = true
	return m, cmd
}

func (m Model) handleIntent(in selection.Intent) (tea.Model, tea.Cmd) {
	c, ok := m.deps.Contacts.Get(in.ID)
	if !ok {
		return m, nil
	}
	switch in.Kind {
	case selection.IntentEdit:
		return m, m.openContactForm(c)
	case selection.IntentDelete:
		coord := m.deps.Coord
		contacts := m.deps.Contacts
		question := fmt.Sprintf("Delete %s?", c.Name)
		return m, func() tea.Msg {
			return actionDoneMsg{err: coord.DeleteSelected(context.Background(), question, contacts.Delete)}
		}
	}
	return m, nil
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewBoard:
		m.board, cmd = m.board.Update(msg)
	case ViewContacts:
		m.contacts, cmd = m.contacts.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			m.currentView = m.previousView
			return m, nil
		}
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTaskForm:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewContactForm:
		m.contactForm, cmd = m.contactForm.Update(msg)
	case ViewLogin:
		m.login, cmd = m.login.Update(msg)
	}

	return m, cmd
}

func (m *Model) resize() {
	w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
	m.board.SetSize(w, h)
	m.contacts.SetSize(w, h)
	m.helpView.SetSize(w, h)
	m.commandView.SetSize(w, h)
	m.taskForm.SetSize(w, h)
	m.contactForm.SetSize(w, h)
	m.login.SetSize(w, h)
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Kanban · "+m.viewTitle(), m.syncStatus())
	content := m.renderContent()
	if m.confirm.Active() {
		content = m.confirm.View()
	}

	toast := ""
	if m.toast != "" {
		if m.toastErr {
			toast = theme.ToastErrorStyle.Render(m.toast)
		} else {
			toast = theme.ToastSuccessStyle.Render(m.toast)
		}
	}
	statusBar := m.layout.RenderStatusBar(m.keyHints(), toast)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewBoard:
		return m.board.View()
	case ViewContacts:
		return m.contacts.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewTaskForm:
		return m.taskForm.View()
	case ViewContactForm:
		return m.contactForm.View()
	case ViewLogin:
		return m.login.View()
	default:
		return ""
	}
}

func (m Model) viewTitle() string {
	switch m.currentView {
	case ViewBoard:
		return "Board"
	case ViewContacts:
		return "Contacts"
	case ViewHelp:
		return "Help"
	case ViewCommand:
		return "Command"
	case ViewTaskForm:
		return "Task"
	case ViewContactForm:
		return "Contact"
	default:
		return "Sign in"
	}
}

// syncStatus returns a short string describing the refresh state.
func (m Model) syncStatus() string {
	st := m.deps.Refresher.Status()
	switch st.State {
	case appsync.SyncRunning:
		return m.spinner.View() + " syncing"
	case appsync.SyncError:
		return "⚠ store unreachable"
	}
	if st.LastSync.IsZero() {
		return "not synced"
	}
	return "synced " + st.LastSync.Format("15:04")
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.confirm.Active() {
		return "←/→ choose | enter confirm"
	}
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewTaskForm, ViewContactForm:
		return "enter next | ctrl+c quit"
	case ViewLogin:
		return "enter sign in"
	case ViewContacts:
		if m.deps.Coord.IsNarrow() && m.deps.Coord.IsDetailOpen() {
			return "m options | esc back | 1 board"
		}
		return "enter open | n new | e edit | d delete | 1 board | ? help"
	default:
		if m.board.DetailOpen() {
			return "x toggle subtask | e edit | d delete | esc back"
		}
		if m.deps.Drag.Dragged() != nil {
			return "h/l choose lane | enter drop | esc cancel"
		}
		return "q quit | ? help | n new | / search | space pick up | 2 contacts"
	}
}
