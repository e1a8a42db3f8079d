package selection

import (
	"slices"
	"sync"
)

// Region identifies an interactive area such as an overlay.
type Region string

// outsideWatchers holds at most one listener per region.
type outsideWatchers struct {
	mu    sync.Mutex
	next  int
	byReg map[Region]watcher
}

type watcher struct {
	id int
	fn func()
}

func newOutsideWatchers() *outsideWatchers {
	return &outsideWatchers{byReg: make(map[Region]watcher)}
}

// WatchOutside calls fn for every interaction that lands outside region.
// Watching a region again replaces its previous listener. The returned
// release removes the listener; releasing a replaced listener is a no-op.
func (c *Coordinator) WatchOutside(region Region, fn func()) (release func()) {
	w := c.outside

	w.mu.Lock()
	w.next++
	id := w.next
	w.byReg[region] = watcher{id: id, fn: fn}
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if cur, ok := w.byReg[region]; ok && cur.id == id {
			delete(w.byReg, region)
		}
	}
}

// Interact reports a user interaction inside hit. Every watcher of a
// different region is notified.
func (c *Coordinator) Interact(hit Region) {
	w := c.outside

	w.mu.Lock()
	regions := make([]Region, 0, len(w.byReg))
	for r := range w.byReg {
		if r != hit {
			regions = append(regions, r)
		}
	}
	slices.Sort(regions)
	fns := make([]func(), len(regions))
	for i, r := range regions {
		fns[i] = w.byReg[r].fn
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Watching reports whether region has a listener.
func (c *Coordinator) Watching(region Region) bool {
	c.outside.mu.Lock()
	defer c.outside.mu.Unlock()
	_, ok := c.outside.byReg[region]
	return ok
}

func (w *outsideWatchers) releaseAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	clear(w.byReg)
}
