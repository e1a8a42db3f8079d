package help

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/kanban/internal/keys"
)

func titles(sections []Section) []string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		out = append(out, s.Title)
	}
	return out
}

func TestSectionsFollowContext(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	assert.Equal(t, []string{"Navigation", "General"}, titles(m.Sections()))

	m.SetContext("Board")
	sections := m.Sections()
	require.Equal(t, []string{"Board", "Navigation", "General"}, titles(sections))
	assert.Contains(t, sections[0].Bindings[2].Help().Desc, "pick up")

	m.SetContext("Contacts")
	assert.Equal(t, []string{"Contacts", "Navigation", "General"}, titles(m.Sections()))
}

func TestViewShowsContextTitle(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 30)
	m.SetContext("Contacts")

	out := m.View()
	assert.Contains(t, out, "Keyboard Shortcuts · Contacts")
	assert.Contains(t, out, "actions menu")
}
