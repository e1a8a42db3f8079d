package boardview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/kanban/internal/board"
	"github.com/nhle/kanban/internal/keys"
	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/theme"
)

// Actions are the task mutations the board triggers.
type Actions interface {
	board.Mover
	ToggleSubtask(ctx context.Context, taskID string, index int) error
}

// TasksChangedMsg carries a new task list snapshot from the cache.
type TasksChangedMsg struct {
	Tasks []model.Task
}

// MutationDoneMsg is sent when a move or subtask toggle has settled.
// Failures have already been reported by the engine.
type MutationDoneMsg struct {
	Err error
}

// NewTaskMsg asks the app to open the create form for a lane.
type NewTaskMsg struct {
	Status model.Status
}

// EditTaskMsg asks the app to open the edit form.
type EditTaskMsg struct {
	Task model.Task
}

// DeleteTaskMsg asks the app to confirm and delete a task.
type DeleteTaskMsg struct {
	Task model.Task
}

// Model is the four-lane board view with search, keyboard drag and drop,
// and a task detail overlay.
type Model struct {
	keys    *keys.KeyMap
	actions Actions
	drag    *board.Drag

	tasks []model.Task
	lane  int
	rows  map[model.Status]int

	// hover is the lane the dragged card is over.
	hover model.Status

	searching bool
	search    textinput.Model

	detailID string
	subtask  int
	detail   viewport.Model

	now    func() time.Time
	width  int
	height int
}

// New creates the board view.
func New(k *keys.KeyMap, a Actions, d *board.Drag, width, height int) Model {
	si := textinput.New()
	si.Placeholder = "find task..."
	si.Prompt = "/ "
	si.Width = width - 4

	// Up and down move the subtask cursor; the viewport only pages.
	vp := viewport.New(max(width-8, 12), max(height-6, 3))
	vp.KeyMap.Up.SetEnabled(false)
	vp.KeyMap.Down.SetEnabled(false)
	vp.KeyMap.Left.SetEnabled(false)
	vp.KeyMap.Right.SetEnabled(false)

	return Model{
		keys:    k,
		actions: a,
		drag:    d,
		rows:    make(map[model.Status]int),
		search:  si,
		detail:  vp,
		now:     time.Now,
		width:   width,
		height:  height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Query returns the active search text.
func (m Model) Query() string {
	return m.search.Value()
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searching
}

// DetailOpen reports whether the task detail overlay is shown.
func (m Model) DetailOpen() bool {
	return m.detailID != ""
}

// FocusedLane returns the lane under the cursor.
func (m Model) FocusedLane() model.Status {
	return model.Lanes()[m.lane]
}

// Focused returns the task under the cursor.
func (m Model) Focused() (model.Task, bool) {
	if m.detailID != "" {
		return m.find(m.detailID)
	}
	lane := m.FocusedLane()
	tasks := board.Lane(m.tasks, lane, m.Query())
	row := m.rows[lane]
	if row < 0 || row >= len(tasks) {
		return model.Task{}, false
	}
	return tasks[row], true
}

// Update handles messages for the board view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TasksChangedMsg:
		m.tasks = msg.Tasks
		m.clampRows()
		if m.detailID != "" {
			if _, ok := m.find(m.detailID); !ok {
				m.detailID = ""
			}
		}
		return m, nil

	case MutationDoneMsg:
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKeys(msg)
		}
		if m.detailID != "" {
			return m.handleDetailKeys(msg)
		}
		return m.handleBoardKeys(msg)
	}

	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		m.clampRows()
		return m, nil
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.Reset()
		m.clampRows()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.clampRows()
	return m, cmd
}

func (m Model) handleBoardKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	dragging := m.drag.Dragged() != nil

	switch {
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Right):
		delta := 1
		if key.Matches(msg, m.keys.Left) {
			delta = -1
		}
		if dragging {
			m.drag.Leave(m.hover)
			m.hover = board.Neighbor(m.hover, delta)
			m.drag.Enter(m.hover)
			return m, nil
		}
		m.lane = laneIndex(board.Neighbor(m.FocusedLane(), delta))
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if !dragging {
			m.moveRow(-1)
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if !dragging {
			m.moveRow(1)
		}
		return m, nil

	case key.Matches(msg, m.keys.Pick):
		if dragging {
			m.drag.Cancel()
			return m, nil
		}
		t, ok := m.Focused()
		if !ok {
			return m, nil
		}
		m.drag.Start(&t)
		m.hover = board.LaneOf(t)
		m.drag.Enter(m.hover)
		return m, nil

	case key.Matches(msg, m.keys.Back):
		if dragging {
			m.drag.Cancel()
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if dragging {
			target := m.hover
			m.lane = laneIndex(target)
			return m, m.dropCmd(target)
		}
		if t, ok := m.Focused(); ok {
			m.detailID = t.ID
			m.subtask = 0
			m.detail.SetYOffset(0)
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		status := m.FocusedLane()
		return m, func() tea.Msg { return NewTaskMsg{Status: status} }

	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.Focused(); ok {
			return m, func() tea.Msg { return EditTaskMsg{Task: t} }
		}

	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.Focused(); ok {
			return m, func() tea.Msg { return DeleteTaskMsg{Task: t} }
		}
	}

	return m, nil
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	t, ok := m.find(m.detailID)
	if !ok {
		m.detailID = ""
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		m.detailID = ""
	case key.Matches(msg, m.keys.Up):
		m.subtask = max(m.subtask-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.subtask = min(m.subtask+1, max(len(t.Subtasks)-1, 0))
	case key.Matches(msg, m.keys.ToggleSubtask), key.Matches(msg, m.keys.Pick):
		if m.subtask < len(t.Subtasks) {
			return m, m.toggleCmd(t.ID, m.subtask)
		}
	case key.Matches(msg, m.keys.Edit):
		return m, func() tea.Msg { return EditTaskMsg{Task: t} }
	case key.Matches(msg, m.keys.Delete):
		return m, func() tea.Msg { return DeleteTaskMsg{Task: t} }
	default:
		m.detail.SetContent(m.detailBody(t))
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) dropCmd(lane model.Status) tea.Cmd {
	d := m.drag
	return func() tea.Msg {
		return MutationDoneMsg{Err: d.Drop(context.Background(), lane)}
	}
}

func (m Model) toggleCmd(id string, index int) tea.Cmd {
	a := m.actions
	return func() tea.Msg {
		return MutationDoneMsg{Err: a.ToggleSubtask(context.Background(), id, index)}
	}
}

func (m *Model) moveRow(delta int) {
	lane := m.FocusedLane()
	n := len(board.Lane(m.tasks, lane, m.Query()))
	m.rows[lane] = min(max(m.rows[lane]+delta, 0), max(n-1, 0))
}

func (m *Model) clampRows() {
	parts := board.Partition(m.tasks, m.Query())
	for lane, tasks := range parts {
		m.rows[lane] = min(m.rows[lane], max(len(tasks)-1, 0))
	}
}

func (m Model) find(id string) (model.Task, bool) {
	for _, t := range m.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

func laneIndex(s model.Status) int {
	for i, l := range model.Lanes() {
		if l == s {
			return i
		}
	}
	return 0
}

// View renders the board.
func (m Model) View() string {
	if m.detailID != "" {
		if t, ok := m.find(m.detailID); ok {
			return m.renderDetail(t)
		}
	}

	var top string
	if m.searching || m.Query() != "" {
		top = m.search.View() + "\n"
	}

	lanes := model.Lanes()
	laneWidth := max(m.width/len(lanes)-2, 12)
	parts := board.Partition(m.tasks, m.Query())
	dragged := m.drag.Dragged()

	cols := make([]string, len(lanes))
	for i, lane := range lanes {
		cols[i] = m.renderLane(lane, parts[lane], i == m.lane, dragged, laneWidth)
	}

	return top + lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) renderLane(
	lane model.Status,
	tasks []model.Task,
	focused bool,
	dragged *model.Task,
	width int,
) string {
	style := theme.LaneStyle
	if m.drag.Highlighted(lane) {
		style = theme.HighlightedLaneStyle
	}

	header := theme.StatusStyle(lane).Render(fmt.Sprintf("%s (%d)", lane.Label(), len(tasks)))
	lines := []string{header}
	if len(tasks) == 0 {
		lines = append(lines, theme.DimmedStyle.Render(emptyLaneText(lane, m.Query())))
	}
	for i, t := range tasks {
		line := truncate(t.Title, width-4)
		switch {
		case dragged != nil && dragged.ID == t.ID:
			line = theme.DraggedItemStyle.Render(line)
		case focused && i == m.rows[lane]:
			line = theme.SelectedItemStyle.Render(line)
		default:
			line = theme.ListItemStyle.Render(line)
		}
		lines = append(lines, line, m.renderMeta(t, width))
	}

	return style.
		Width(width).
		Height(max(m.height-4, 3)).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderMeta(t model.Task, width int) string {
	var parts []string
	parts = append(parts, theme.PriorityStyle(t.Priority).Render(string(t.Priority)))
	if done, total := t.SubtaskProgress(); total > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d", done, total))
	}
	for _, c := range t.Assignees {
		parts = append(parts, theme.BadgeStyle(c.IconColor).Render(c.Initials()))
	}
	return theme.ListItemStyle.MaxWidth(width).Render(strings.Join(parts, " "))
}

func (m Model) renderDetail(t model.Task) string {
	vp := m.detail
	vp.SetContent(m.detailBody(t))
	help := theme.HelpStyle.Render("x toggle subtask · e edit · d delete · pgup/pgdn scroll · esc back")

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 20)).
		Render(vp.View() + "\n" + help)
}

// detailBody renders the scrollable part of the detail overlay.
func (m Model) detailBody(t model.Task) string {
	var b strings.Builder
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	b.WriteString(title.Render(t.Title) + "\n")
	if t.Category != "" {
		b.WriteString(theme.DimmedStyle.Render(t.Category) + "\n")
	}
	b.WriteString("\n")
	if t.Description != "" {
		b.WriteString(t.Description + "\n\n")
	}
	b.WriteString("Status:   " + theme.StatusStyle(t.Status).Render(t.Status.Label()) + "\n")
	b.WriteString("Priority: " + theme.PriorityStyle(t.Priority).Render(string(t.Priority)) + "\n")
	if due, ok := t.Due(); ok {
		d := due.Format("2006-01-02")
		if t.Overdue(m.now()) {
			d = theme.OverdueStyle.Render(d + " overdue")
		}
		b.WriteString("Due:      " + d + "\n")
	}
	if len(t.Assignees) > 0 {
		names := make([]string, len(t.Assignees))
		for i, c := range t.Assignees {
			names[i] = theme.BadgeStyle(c.IconColor).Render(c.Initials()) + " " + c.Name
		}
		b.WriteString("Assigned: " + strings.Join(names, ", ") + "\n")
	}
	if len(t.Files) > 0 {
		names := make([]string, len(t.Files))
		for i, f := range t.Files {
			names[i] = f.Name
		}
		b.WriteString("Files:    " + strings.Join(names, ", ") + "\n")
	}
	if len(t.Subtasks) > 0 {
		b.WriteString("\nSubtasks\n")
		for i, s := range t.Subtasks {
			box := "[ ]"
			text := s.Title
			if s.Completed {
				box = "[x]"
				text = theme.DimmedStyle.Render(text)
			}
			line := box + " " + text
			if i == m.subtask {
				line = theme.SelectedItemStyle.Render(line)
			} else {
				line = theme.ListItemStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func emptyLaneText(lane model.Status, query string) string {
	if strings.TrimSpace(query) != "" {
		return "No matches"
	}
	return "No tasks " + strings.ToLower(lane.Label())
}

func truncate(s string, width int) string {
	if width <= 1 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	if len(r) > width-1 {
		r = r[:width-1]
	}
	return string(r) + "…"
}

// SetSize updates the board dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.search.Width = width - 4
	m.detail.Width = max(width-8, 12)
	m.detail.Height = max(height-6, 3)
}
