package selection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/kanban/tests/testutil"
)

type rig struct {
	c     *Coordinator
	sched *ManualScheduler
	rec   *testutil.Recorder
	seen  []State
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{sched: NewManualScheduler(), rec: testutil.NewRecorder(true)}
	r.c = New(r.sched, DefaultConfig(), r.rec)
	cancel := r.c.Subscribe(func(st State) { r.seen = append(r.seen, st) })
	t.Cleanup(func() {
		cancel()
		r.c.Dispose()
	})
	return r
}

func (r *rig) frame() { r.sched.Advance(r.sched.Frame) }

func (r *rig) openFully(id string) {
	r.c.Select(id)
	r.sched.Flush()
}

func TestSelectRunsEnterTransition(t *testing.T) {
	r := newRig(t)

	r.c.Select("a")
	st := r.c.State()
	assert.Equal(t, PhaseOpening, st.Phase)
	assert.False(t, st.Animating)

	r.frame()
	assert.True(t, r.c.State().Animating)
	assert.Equal(t, PhaseOpening, r.c.State().Phase)

	r.sched.Advance(200 * time.Millisecond)
	assert.Equal(t, State{ID: "a", Phase: PhaseOpen, Animating: true}, r.c.State())
}

func TestCloseBeforeFirstFrameNeverAnimates(t *testing.T) {
	r := newRig(t)

	r.c.Select("a")
	r.c.Close()
	r.sched.Flush()

	for _, st := range r.seen {
		assert.False(t, st.Animating)
	}
	assert.Equal(t, State{}, r.c.State())
}

func TestSelectAnotherClosesFirst(t *testing.T) {
	r := newRig(t)
	r.openFully("a")

	r.c.Select("b")
	st := r.c.State()
	assert.Equal(t, "a", st.ID)
	assert.Equal(t, PhaseClosing, st.Phase)
	assert.Equal(t, "b", st.Pending)

	r.sched.Advance(200 * time.Millisecond)
	st = r.c.State()
	assert.Equal(t, "b", st.ID)
	assert.Equal(t, PhaseOpening, st.Phase)
	assert.Empty(t, st.Pending)
}

func TestRapidSelectsOnlyShowOneEntityAtATime(t *testing.T) {
	r := newRig(t)

	r.c.Select("a")
	r.c.Select("b")
	r.c.Select("c")
	r.sched.Flush()

	assert.Equal(t, State{ID: "c", Phase: PhaseOpen, Animating: true}, r.c.State())

	var opened []string
	for _, st := range r.seen {
		if st.Phase == PhaseOpening && !st.Animating {
			opened = append(opened, st.ID)
		}
		if st.Phase == PhaseOpening || st.Phase == PhaseOpen {
			assert.Empty(t, st.Pending)
		}
	}
	assert.Equal(t, []string{"a", "c"}, opened)
	for _, st := range r.seen {
		assert.NotEqual(t, "b", st.ID)
	}
}

func TestSelectSameEntityClearsPending(t *testing.T) {
	r := newRig(t)
	r.openFully("a")
	before := len(r.seen)

	r.c.Select("a")
	assert.Equal(t, PhaseOpen, r.c.State().Phase)
	assert.Equal(t, 0, r.sched.Pending())
	assert.Len(t, r.seen, before+1)
}

func TestCloseForgetsPending(t *testing.T) {
	r := newRig(t)
	r.openFully("a")

	r.c.Select("b")
	r.c.Close()
	r.sched.Flush()

	assert.Equal(t, State{}, r.c.State())
}

func TestSelectEmptyCloses(t *testing.T) {
	r := newRig(t)
	r.openFully("a")

	r.c.Select("")
	assert.Equal(t, PhaseClosing, r.c.State().Phase)
}

func TestViewportBreakpointClosesSelection(t *testing.T) {
	r := newRig(t)
	r.c.SetViewport(1200, 800)
	r.openFully("a")

	r.c.SetViewport(1000, 800)
	assert.Equal(t, PhaseOpen, r.c.State().Phase)
	assert.False(t, r.c.IsNarrow())

	r.c.SetViewport(600, 800)
	assert.True(t, r.c.IsNarrow())
	assert.Equal(t, PhaseClosing, r.c.State().Phase)
}

func TestFirstViewportDoesNotClose(t *testing.T) {
	r := newRig(t)
	r.openFully("a")

	r.c.SetViewport(600, 800)
	assert.Equal(t, PhaseOpen, r.c.State().Phase)
	assert.True(t, r.c.IsNarrow())
}

func TestDetailOpenFollowsRouteAndWidth(t *testing.T) {
	r := newRig(t)
	var flags []bool
	cancel := r.c.DetailOpen(func(v bool) { flags = append(flags, v) })
	defer cancel()

	r.c.SetViewport(600, 800)
	r.c.SetRoute("/contacts/42")
	assert.True(t, r.c.IsDetailOpen())

	r.c.SetRoute("/contacts")
	assert.False(t, r.c.IsDetailOpen())

	r.c.SetRoute("/contacts/42")
	r.c.SetViewport(1200, 800)
	assert.False(t, r.c.IsDetailOpen())
	assert.Equal(t, "/contacts/42", r.c.Route())
	assert.Contains(t, flags, true)
}

func TestParseRoute(t *testing.T) {
	tests := []struct {
		route, section, id string
	}{
		{"/contacts/42", "contacts", "42"},
		{"/contacts", "contacts", ""},
		{"/contacts/42?tab=info", "contacts", "42"},
		{"/", "", ""},
		{"/board", "board", ""},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			section, id := ParseRoute(tt.route)
			assert.Equal(t, tt.section, section)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestWatchOutside(t *testing.T) {
	r := newRig(t)
	calls := 0
	release := r.c.WatchOutside("menu", func() { calls++ })

	r.c.Interact("menu")
	assert.Equal(t, 0, calls)
	r.c.Interact("list")
	assert.Equal(t, 1, calls)

	replaced := 0
	release2 := r.c.WatchOutside("menu", func() { replaced++ })
	release()
	assert.True(t, r.c.Watching("menu"))

	r.c.Interact("")
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, replaced)

	release2()
	assert.False(t, r.c.Watching("menu"))
}

func TestDisposeStopsTimersAndWatchers(t *testing.T) {
	r := newRig(t)
	r.c.WatchOutside("menu", func() {})
	r.c.Select("a")

	r.c.Dispose()
	r.sched.Flush()

	assert.Equal(t, PhaseOpening, r.c.State().Phase)
	assert.False(t, r.c.State().Animating)
	assert.False(t, r.c.Watching("menu"))
}

func TestRequestIntents(t *testing.T) {
	r := newRig(t)
	var got []Intent
	cancel := r.c.OnIntent(func(i Intent) { got = append(got, i) })
	defer cancel()

	assert.False(t, r.c.RequestEdit())

	r.openFully("a")
	assert.True(t, r.c.RequestEdit())
	assert.True(t, r.c.RequestDelete())
	assert.Equal(t, []Intent{{Kind: IntentEdit, ID: "a"}, {Kind: IntentDelete, ID: "a"}}, got)
}

func TestMobileMenu(t *testing.T) {
	r := newRig(t)
	menu := NewMobileMenu(r.c)
	defer menu.Close()

	r.openFully("a")
	assert.False(t, menu.Show(), "wide viewport")

	r.c.SetViewport(600, 800)
	r.openFully("a")
	require.True(t, menu.Show())
	assert.True(t, menu.IsVisible())
	assert.True(t, r.c.Watching(MobileMenuRegion))

	r.c.Interact(MobileMenuRegion)
	assert.True(t, menu.IsVisible())

	r.c.Interact("")
	assert.False(t, menu.IsVisible())
	assert.False(t, r.c.Watching(MobileMenuRegion))
}

func TestMobileMenuHidesWhenSelectionCloses(t *testing.T) {
	r := newRig(t)
	menu := NewMobileMenu(r.c)
	defer menu.Close()
	r.c.SetViewport(600, 800)
	r.openFully("a")
	require.True(t, menu.Show())

	r.c.Close()
	assert.False(t, menu.IsVisible())
}

func TestMobileMenuEditRaisesIntent(t *testing.T) {
	r := newRig(t)
	menu := NewMobileMenu(r.c)
	defer menu.Close()
	var got []Intent
	cancel := r.c.OnIntent(func(i Intent) { got = append(got, i) })
	defer cancel()

	r.c.SetViewport(600, 800)
	r.openFully("a")
	menu.Toggle()
	require.True(t, menu.IsVisible())

	assert.True(t, menu.Edit())
	assert.False(t, menu.IsVisible())
	assert.Equal(t, []Intent{{Kind: IntentEdit, ID: "a"}}, got)
}

func TestDeleteSelectedNothingOpen(t *testing.T) {
	r := newRig(t)
	err := r.c.DeleteSelected(context.Background(), "Delete?", func(context.Context, string) error {
		t.Fatal("delete must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrNothingSelected)
	assert.Empty(t, r.rec.Questions())
}

func TestDeleteSelectedDeclined(t *testing.T) {
	r := newRig(t)
	r.rec.Answer = false
	r.openFully("a")

	called := false
	err := r.c.DeleteSelected(context.Background(), "Delete Eva?", func(context.Context, string) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, []string{"Delete Eva?"}, r.rec.Questions())
	assert.Equal(t, PhaseOpen, r.c.State().Phase)
}

func TestDeleteSelectedFailureKeepsSelection(t *testing.T) {
	r := newRig(t)
	r.openFully("a")
	boom := errors.New("boom")

	err := r.c.DeleteSelected(context.Background(), "Delete?", func(context.Context, string) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, PhaseOpen, r.c.State().Phase)
	assert.Empty(t, r.rec.Errors())
}

func TestDeleteSelectedClosesOnSuccess(t *testing.T) {
	r := newRig(t)
	r.openFully("a")

	var deleted string
	err := r.c.DeleteSelected(context.Background(), "Delete?", func(_ context.Context, id string) error {
		deleted = id
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "a", deleted)
	r.sched.Flush()
	assert.Equal(t, State{}, r.c.State())
}

func TestDeleteSelectedConfirmError(t *testing.T) {
	r := newRig(t)
	r.rec.ConfirmErr = context.Canceled
	r.openFully("a")

	err := r.c.DeleteSelected(context.Background(), "Delete?", func(context.Context, string) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, PhaseOpen, r.c.State().Phase)
}

func TestManualSchedulerOrdersCallbacks(t *testing.T) {
	s := NewManualScheduler()
	var order []string
	s.AfterFunc(20*time.Millisecond, func() { order = append(order, "late") })
	s.AfterFunc(10*time.Millisecond, func() { order = append(order, "early") })
	stopped := s.AfterFunc(5*time.Millisecond, func() { order = append(order, "stopped") })
	assert.True(t, stopped.Stop())

	s.Advance(15 * time.Millisecond)
	assert.Equal(t, []string{"early"}, order)
	assert.Equal(t, 1, s.Pending())

	s.Flush()
	assert.Equal(t, []string{"early", "late"}, order)
	assert.Equal(t, 20*time.Millisecond, s.Now())
}
