package selection

import (
	"sync"

	"github.com/nhle/kanban/internal/observable"
)

// MobileMenuRegion is the region of the narrow viewport options menu.
const MobileMenuRegion Region = "mobile-menu"

// MobileMenu is the edit/delete options overlay shown for the open
// entity on narrow viewports. It closes on any outside interaction and
// whenever the entity stops being open.
type MobileMenu struct {
	coord *Coordinator

	mu      sync.Mutex
	release func()
	visible *observable.Subject[bool]
	cancel  func()
}

// NewMobileMenu attaches a hidden menu to c.
func NewMobileMenu(c *Coordinator) *MobileMenu {
	m := &MobileMenu{
		coord:   c,
		visible: observable.NewSubject(false),
	}
	m.cancel = c.Subscribe(func(st State) {
		if st.Phase != PhaseOpen && st.Phase != PhaseOpening {
			m.Hide()
		}
	})
	return m
}

// Visible delivers the menu visibility now and on every change.
func (m *MobileMenu) Visible(fn func(bool)) (cancel func()) {
	return m.visible.Subscribe(fn)
}

// IsVisible returns the current visibility.
func (m *MobileMenu) IsVisible() bool {
	return m.visible.Value()
}

// Show opens the menu if an entity is open on a narrow viewport.
func (m *MobileMenu) Show() bool {
	st := m.coord.State()
	if !m.coord.IsNarrow() || st.Phase != PhaseOpen {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.release != nil {
		return true
	}
	m.release = m.coord.WatchOutside(MobileMenuRegion, m.Hide)
	m.visible.Publish(true)
	return true
}

// Hide closes the menu and removes its outside listener.
func (m *MobileMenu) Hide() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.release == nil {
		return
	}
	m.release()
	m.release = nil
	m.visible.Publish(false)
}

// Toggle shows a hidden menu or hides a visible one.
func (m *MobileMenu) Toggle() {
	if m.IsVisible() {
		m.Hide()
		return
	}
	m.Show()
}

// Edit raises an edit intent for the open entity and hides the menu.
func (m *MobileMenu) Edit() bool {
	defer m.Hide()
	return m.coord.RequestEdit()
}

// Delete raises a delete intent for the open entity and hides the menu.
func (m *MobileMenu) Delete() bool {
	defer m.Hide()
	return m.coord.RequestDelete()
}

// Close detaches the menu from its coordinator.
func (m *MobileMenu) Close() {
	m.Hide()
	if m.cancel != nil {
		m.cancel()
	}
}
