// Package selection tracks which entity is open for detail viewing and
// drives its enter and exit transitions, so at most one detail panel is
// ever animating or open.
package selection

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/kanban/internal/notify"
	"github.com/nhle/kanban/internal/observable"
)

// Phase is the transition state of the selected entity.
type Phase int

const (
	PhaseClosed Phase = iota
	PhaseOpening
	PhaseOpen
	PhaseClosing
)

func (p Phase) String() string {
	switch p {
	case PhaseClosed:
		return "closed"
	case PhaseOpening:
		return "opening"
	case PhaseOpen:
		return "open"
	case PhaseClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// State is a snapshot of the coordinator.
type State struct {
	// ID is the entity being opened, shown, or closed. Empty when closed.
	ID    string
	Phase Phase

	// Animating is set once the enter transition has started, one frame
	// after the opening phase began.
	Animating bool

	// Pending is the entity that opens once the current one has closed.
	Pending string
}

// Visible reports whether id is the entity on screen in any phase.
func (s State) Visible(id string) bool {
	return s.ID == id && s.Phase != PhaseClosed
}

// Config holds transition timings and the narrow viewport breakpoint.
type Config struct {
	Enter      time.Duration
	Exit       time.Duration
	Breakpoint int
}

// DefaultConfig returns 200ms transitions and an 850px breakpoint.
func DefaultConfig() Config {
	return Config{
		Enter:      200 * time.Millisecond,
		Exit:       200 * time.Millisecond,
		Breakpoint: 850,
	}
}

// ErrNothingSelected is returned by DeleteSelected when no entity is open.
var ErrNothingSelected = errors.New("nothing selected")

// Coordinator serializes selections of a single kind of entity.
//
// Subscribers are called while the coordinator holds its lock and must not
// call back into it, except through the read-only accessors.
type Coordinator struct {
	sched    Scheduler
	cfg      Config
	notifier notify.Notifier

	mu      sync.Mutex
	id      string
	phase   Phase
	anim    bool
	pending string
	gen     uint64
	timer   Timer

	route    string
	viewport bool
	narrow   bool

	state      *observable.Subject[State]
	narrowSig  *observable.Subject[bool]
	detailOpen *observable.Subject[bool]
	intents    *observable.Bus[Intent]

	outside *outsideWatchers
}

// New builds a closed coordinator.
func New(sched Scheduler, cfg Config, n notify.Notifier) *Coordinator {
	if cfg.Breakpoint <= 0 {
		cfg.Breakpoint = DefaultConfig().Breakpoint
	}
	return &Coordinator{
		sched:      sched,
		cfg:        cfg,
		notifier:   n,
		state:      observable.NewSubject(State{}),
		narrowSig:  observable.NewSubject(false),
		detailOpen: observable.NewSubject(false),
		intents:    observable.NewBus[Intent](),
		outside:    newOutsideWatchers(),
	}
}

// State returns the current snapshot.
func (c *Coordinator) State() State {
	return c.state.Value()
}

// Subscribe delivers the current state now and after every transition.
func (c *Coordinator) Subscribe(fn func(State)) (cancel func()) {
	return c.state.Subscribe(fn)
}

// Select opens id. Another open entity is closed first; a select during a
// transition replaces whatever was waiting to open.
func (c *Coordinator) Select(id string) {
	if id == "" {
		c.Close()
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case PhaseClosed:
		c.openLocked(id)
	case PhaseOpening, PhaseOpen:
		if c.id == id {
			c.pending = ""
			c.publishLocked()
			return
		}
		c.pending = id
		c.closeLocked()
	case PhaseClosing:
		c.pending = id
		c.publishLocked()
	}
}

// Close closes the open entity and forgets any pending selection.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = ""
	switch c.phase {
	case PhaseOpening, PhaseOpen:
		c.closeLocked()
	default:
		c.publishLocked()
	}
}

// Back handles back navigation from a detail view.
func (c *Coordinator) Back() {
	c.Close()
}

func (c *Coordinator) openLocked(id string) {
	c.stopTimerLocked()
	c.gen++
	gen := c.gen
	c.id = id
	c.phase = PhaseOpening
	c.anim = false
	c.timer = c.sched.NextFrame(func() { c.enterFrame(gen) })
	c.publishLocked()
}

// enterFrame starts the enter transition once layout has been committed.
func (c *Coordinator) enterFrame(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.phase != PhaseOpening {
		return
	}
	c.anim = true
	c.timer = c.sched.AfterFunc(c.cfg.Enter, func() { c.entered(gen) })
	c.publishLocked()
}

func (c *Coordinator) entered(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.phase != PhaseOpening {
		return
	}
	c.phase = PhaseOpen
	c.timer = nil
	c.publishLocked()
}

func (c *Coordinator) closeLocked() {
	c.stopTimerLocked()
	c.gen++
	gen := c.gen
	c.phase = PhaseClosing
	c.anim = false
	c.timer = c.sched.AfterFunc(c.cfg.Exit, func() { c.closed(gen) })
	c.publishLocked()
}

func (c *Coordinator) closed(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.phase != PhaseClosing {
		return
	}
	c.id = ""
	c.phase = PhaseClosed
	c.timer = nil
	if next := c.pending; next != "" {
		c.pending = ""
		c.openLocked(next)
		return
	}
	c.publishLocked()
}

func (c *Coordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) publishLocked() {
	c.state.Publish(State{
		ID:        c.id,
		Phase:     c.phase,
		Animating: c.anim,
		Pending:   c.pending,
	})
}

// Narrow delivers whether the viewport is below the breakpoint.
func (c *Coordinator) Narrow(fn func(bool)) (cancel func()) {
	return c.narrowSig.Subscribe(fn)
}

// IsNarrow returns the current narrow viewport flag.
func (c *Coordinator) IsNarrow() bool {
	return c.narrowSig.Value()
}

// DetailOpen delivers whether a contact detail view fills the narrow
// viewport.
func (c *Coordinator) DetailOpen(fn func(bool)) (cancel func()) {
	return c.detailOpen.Subscribe(fn)
}

// IsDetailOpen returns the current detail-open flag.
func (c *Coordinator) IsDetailOpen() bool {
	return c.detailOpen.Value()
}

// SetViewport records a resize. Crossing the breakpoint closes the open
// entity, since narrow and wide layouts present selection differently.
func (c *Coordinator) SetViewport(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	narrow := width < c.cfg.Breakpoint
	changed := c.viewport && narrow != c.narrow
	c.viewport = true
	c.narrow = narrow

	if changed && (c.phase == PhaseOpening || c.phase == PhaseOpen) {
		log.WithFields(log.Fields{
			"width":  width,
			"height": height,
			"narrow": narrow,
		}).Debug("viewport size class changed, closing selection")
		c.pending = ""
		c.closeLocked()
	}

	c.narrowSig.Publish(narrow)
	c.detailOpen.Publish(c.detailOpenLocked())
}

// SetRoute records a completed navigation.
func (c *Coordinator) SetRoute(route string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.route = route
	c.detailOpen.Publish(c.detailOpenLocked())
}

// Route returns the last navigated route.
func (c *Coordinator) Route() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.route
}

func (c *Coordinator) detailOpenLocked() bool {
	kind, id := ParseRoute(c.route)
	return c.narrow && kind == "contacts" && id != ""
}

// ParseRoute splits a route such as "/contacts/42" into its section and
// entity id.
func ParseRoute(route string) (section, id string) {
	route = strings.Trim(route, "/")
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	parts := strings.Split(route, "/")
	section = parts[0]
	if len(parts) > 1 {
		id = parts[1]
	}
	return section, id
}

// DeleteSelected asks for confirmation and deletes the open entity with
// del. The selection only closes when the delete succeeds; del is
// expected to surface its own failures to the user.
func (c *Coordinator) DeleteSelected(
	ctx context.Context,
	question string,
	del func(ctx context.Context, id string) error,
) error {
	st := c.State()
	if st.ID == "" || (st.Phase != PhaseOpen && st.Phase != PhaseOpening) {
		return ErrNothingSelected
	}

	ok, err := c.notifier.Confirm(ctx, question)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if err := del(ctx, st.ID); err != nil {
		log.WithField("id", st.ID).WithError(err).Warn("delete failed, keeping selection")
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.id == st.ID && (c.phase == PhaseOpen || c.phase == PhaseOpening) {
		c.pending = ""
		c.closeLocked()
	}
	return nil
}

// Dispose stops pending timers and releases every outside watcher.
func (c *Coordinator) Dispose() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.gen++
	c.mu.Unlock()
	c.outside.releaseAll()
}
