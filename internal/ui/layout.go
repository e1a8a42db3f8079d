package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/kanban/internal/theme"
)

// DefaultCellWidth approximates the width of one terminal column in
// logical pixels.
const DefaultCellWidth = 8

// Layout manages the multi-panel terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
	CellWidth       int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height, cellWidth int) Layout {
	if cellWidth <= 0 {
		cellWidth = DefaultCellWidth
	}
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
		CellWidth:       cellWidth,
	}
}

// LogicalWidth converts the terminal width to the pixel scale the
// breakpoint is expressed in.
func (l Layout) LogicalWidth() int {
	return l.Width * l.CellWidth
}

// LogicalHeight converts the terminal height to logical pixels.
func (l Layout) LogicalHeight() int {
	return l.Height * l.CellWidth
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// SplitWidths returns the list and detail pane widths. In narrow mode
// only one pane is shown at a time and it takes the whole width.
func (l Layout) SplitWidths(narrow bool) (list, detail int) {
	if narrow {
		return l.Width, l.Width
	}
	list = l.Width * 2 / 5
	return list, l.Width - list
}

// RenderHeader renders the top header bar with a title and sync status.
func (l Layout) RenderHeader(title string, syncStatus string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(syncStatus)

	gap := max(l.Width-lipgloss.Width(titleRendered)-lipgloss.Width(statusRendered), 0)

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		statusRendered,
	)
}

// RenderStatusBar renders the bottom status bar with keyboard hints, or
// the current toast when one is showing.
func (l Layout) RenderStatusBar(hints string, toast string) string {
	text := hints
	if toast != "" {
		text = toast
	}
	rendered := theme.StatusBarStyle.Render(text)

	gap := max(l.Width-lipgloss.Width(rendered), 0)

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
