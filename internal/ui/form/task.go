package form

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/theme"
)

// Categories offered by the task form.
var Categories = []string{"Technical Task", "User Story"}

const dateLayout = "2006-01-02"

// TaskSubmittedMsg is dispatched when the task form is completed. Task.ID
// is empty for a new task.
type TaskSubmittedMsg struct {
	Task model.Task
}

// CancelMsg is dispatched when the user aborts a form.
type CancelMsg struct{}

// taskBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type taskBindings struct {
	title       string
	description string
	category    string
	priority    model.Priority
	dueDate     string
	status      model.Status
	assignedTo  []string
	subtasks    string
}

// TaskModel is the Bubble Tea model for the task create/edit form.
type TaskModel struct {
	form     *huh.Form
	fb       *taskBindings
	editing  model.Task
	editMode bool
	contacts []model.Contact
	width    int
	height   int
}

// NewTask creates a new task form model.
func NewTask(width, height int) TaskModel {
	return TaskModel{
		fb:     &taskBindings{priority: model.PriorityMedium, status: model.StatusTodo},
		width:  width,
		height: height,
	}
}

// SetContacts sets the contacts offered as assignees.
func (m *TaskModel) SetContacts(contacts []model.Contact) {
	m.contacts = contacts
}

// Active reports whether a form is being edited.
func (m TaskModel) Active() bool {
	return m.form != nil
}

// StartCreate initializes the form for a new task in the given lane.
func (m *TaskModel) StartCreate(status model.Status, title string) tea.Cmd {
	m.editMode = false
	m.editing = model.NewTask()
	*m.fb = taskBindings{
		title:    title,
		category: Categories[0],
		priority: model.PriorityMedium,
		status:   status,
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form for editing an existing task.
func (m *TaskModel) StartEdit(t model.Task) tea.Cmd {
	m.editMode = true
	m.editing = t.Clone()
	*m.fb = taskBindings{
		title:       t.Title,
		description: t.Description,
		category:    t.Category,
		priority:    t.Priority,
		status:      t.Status,
		assignedTo:  append([]string(nil), t.AssignedTo...),
		subtasks:    formatSubtasks(t.Subtasks),
	}
	if due, ok := t.Due(); ok {
		m.fb.dueDate = due.Format(dateLayout)
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the task form.
func (m TaskModel) Update(msg tea.Msg) (TaskModel, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		submit := m.handleSubmit()
		m.form = nil
		return m, submit
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m TaskModel) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "Add Task"
	if m.editMode {
		titleText = "Edit Task"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *TaskModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *TaskModel) buildForm() *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("Enter a title").
			Value(&m.fb.title).
			Validate(validateRequired("Title")),
		huh.NewText().
			Title("Description").
			Placeholder("Enter a description").
			Value(&m.fb.description),
		huh.NewInput().
			Title("Due date").
			Placeholder("YYYY-MM-DD").
			Value(&m.fb.dueDate).
			Validate(validateDate),
		huh.NewSelect[model.Priority]().
			Title("Priority").
			Options(
				huh.NewOption("Urgent", model.PriorityUrgent),
				huh.NewOption("Medium", model.PriorityMedium),
				huh.NewOption("Low", model.PriorityLow),
			).
			Value(&m.fb.priority),
		huh.NewSelect[string]().
			Title("Category").
			Options(huh.NewOptions(Categories...)...).
			Value(&m.fb.category),
	}
	if f := m.assigneeField(); f != nil {
		fields = append(fields, f)
	}
	fields = append(fields,
		huh.NewText().
			Title("Subtasks").
			Description("One per line. Prefix with [x] when done.").
			Value(&m.fb.subtasks),
	)
	if m.editMode {
		opts := make([]huh.Option[model.Status], 0, len(model.Lanes()))
		for _, s := range model.Lanes() {
			opts = append(opts, huh.NewOption(s.Label(), s))
		}
		fields = append(fields,
			huh.NewSelect[model.Status]().
				Title("Status").
				Options(opts...).
				Value(&m.fb.status),
		)
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(formWidth(m.width)).WithHeight(formHeight(m.height))
}

func (m *TaskModel) assigneeField() huh.Field {
	if len(m.contacts) == 0 {
		return nil
	}
	opts := make([]huh.Option[string], len(m.contacts))
	for i, c := range m.contacts {
		opts[i] = huh.NewOption(c.Name, c.ID)
	}
	return huh.NewMultiSelect[string]().
		Title("Assigned to").
		Options(opts...).
		Value(&m.fb.assignedTo)
}

func (m TaskModel) handleSubmit() tea.Cmd {
	t := m.editing
	t.Title = strings.TrimSpace(m.fb.title)
	t.Description = strings.TrimSpace(m.fb.description)
	t.Category = m.fb.category
	t.Priority = m.fb.priority
	t.Status = m.fb.status
	t.AssignedTo = append([]string{}, m.fb.assignedTo...)
	t.Subtasks = ParseSubtasks(m.fb.subtasks)
	t.DueDate = 0
	if d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(m.fb.dueDate), time.Local); err == nil {
		t.DueDate = d.UnixMilli()
	}
	t.Normalize()
	return func() tea.Msg { return TaskSubmittedMsg{Task: t} }
}

// ParseSubtasks reads one subtask per non-blank line. A leading "[x]"
// marks the subtask completed and "[ ]" is accepted as open.
func ParseSubtasks(text string) []model.Subtask {
	subtasks := []model.Subtask{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		completed := false
		switch {
		case strings.HasPrefix(strings.ToLower(line), "[x]"):
			completed = true
			line = strings.TrimSpace(line[3:])
		case strings.HasPrefix(line, "[ ]"):
			line = strings.TrimSpace(line[3:])
		}
		if line == "" {
			continue
		}
		subtasks = append(subtasks, model.Subtask{Title: line, Completed: completed})
	}
	return subtasks
}

func formatSubtasks(subtasks []model.Subtask) string {
	lines := make([]string, len(subtasks))
	for i, s := range subtasks {
		mark := "[ ]"
		if s.Completed {
			mark = "[x]"
		}
		lines[i] = mark + " " + s.Title
	}
	return strings.Join(lines, "\n")
}

func formWidth(width int) int {
	return min(max(width-4, 40), 100)
}

func formHeight(height int) int {
	return max(height-4, 10)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("due date is required")
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}
