package contactlist

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/kanban/internal/keys"
	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/selection"
	"github.com/nhle/kanban/tests/testutil"
)

type harness struct {
	m     Model
	coord *selection.Coordinator
	menu  *selection.MobileMenu
	sched *selection.ManualScheduler
}

func newHarness(t *testing.T, width int) *harness {
	t.Helper()
	sched := selection.NewManualScheduler()
	coord := selection.New(sched, selection.DefaultConfig(), testutil.NewRecorder(true))
	menu := selection.NewMobileMenu(coord)
	t.Cleanup(func() {
		menu.Close()
		coord.Dispose()
	})

	h := &harness{
		m:     New(keys.DefaultKeyMap(), coord, menu, 120, 40),
		coord: coord,
		menu:  menu,
		sched: sched,
	}
	coord.SetViewport(width, 600)
	h.send(ContactsChangedMsg{Contacts: []model.Contact{
		{ID: "a", Name: "anna", Email: "anna@example.com"},
		{ID: "b", Name: "Bob", Email: "bob@example.com"},
	}})
	h.sync()
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	h.m, cmd = h.m.Update(msg)
	return cmd
}

// sync feeds the coordinator's current signals into the view, the way
// the app forwards subscriptions.
func (h *harness) sync() {
	h.send(SelectionChangedMsg{State: h.coord.State()})
	h.send(LayoutChangedMsg{Narrow: h.coord.IsNarrow(), DetailOpen: h.coord.IsDetailOpen()})
	h.send(MenuChangedMsg{Visible: h.menu.IsVisible()})
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSelectOpensDetailAfterTransition(t *testing.T) {
	h := newHarness(t, 1200)

	h.send(runeKey("j"))
	cmd := h.send(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, RouteMsg{Route: "/contacts/b"}, cmd())

	h.sync()
	assert.Equal(t, selection.PhaseOpening, h.m.state.Phase)
	assert.NotContains(t, h.m.View(), "Email: bob@example.com")

	h.sched.Flush()
	h.sync()
	assert.Equal(t, selection.PhaseOpen, h.m.state.Phase)
	got, ok := h.m.Selected()
	require.True(t, ok)
	assert.Equal(t, "b", got.ID)
	assert.Contains(t, h.m.View(), "Email: bob@example.com")
}

func TestBackClosesSelection(t *testing.T) {
	h := newHarness(t, 1200)

	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	h.sched.Flush()
	h.sync()

	cmd := h.send(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, RouteMsg{Route: "/contacts"}, cmd())

	h.sched.Flush()
	h.sync()
	assert.Equal(t, selection.PhaseClosed, h.m.state.Phase)
}

func TestEditKeyRaisesIntent(t *testing.T) {
	h := newHarness(t, 1200)

	var got []selection.Intent
	cancel := h.coord.OnIntent(func(i selection.Intent) { got = append(got, i) })
	defer cancel()

	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	h.sched.Flush()
	h.sync()
	h.send(runeKey("e"))

	assert.Equal(t, []selection.Intent{{Kind: selection.IntentEdit, ID: "a"}}, got)
}

func TestNarrowMenuDismissesOnOutsideKey(t *testing.T) {
	h := newHarness(t, 400)

	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	h.coord.SetRoute("/contacts/a")
	h.sched.Flush()
	h.sync()
	require.True(t, h.m.detailOpen)

	h.send(runeKey("m"))
	h.sync()
	require.True(t, h.m.menuVisible)
	assert.Contains(t, h.m.View(), "Delete")

	h.send(runeKey("j"))
	h.sync()
	assert.False(t, h.m.menuVisible)
	assert.False(t, h.coord.Watching(selection.MobileMenuRegion))
}

func TestNarrowMenuDeleteRaisesIntent(t *testing.T) {
	h := newHarness(t, 400)

	var got []selection.Intent
	cancel := h.coord.OnIntent(func(i selection.Intent) { got = append(got, i) })
	defer cancel()

	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	h.coord.SetRoute("/contacts/a")
	h.sched.Flush()
	h.sync()

	h.send(runeKey("m"))
	h.sync()
	h.send(runeKey("d"))
	h.sync()

	assert.Equal(t, []selection.Intent{{Kind: selection.IntentDelete, ID: "a"}}, got)
	assert.False(t, h.m.menuVisible)
}

func TestListMarksCurrentIdentity(t *testing.T) {
	h := newHarness(t, 1200)
	h.m.SetIdentity("b")
	assert.Contains(t, h.m.View(), "Bob (You)")
}
