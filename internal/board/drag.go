package board

import (
	"context"
	"sync"

	"github.com/nhle/kanban/internal/model"
)

// Mover changes a task's status.
type Mover interface {
	MoveStatus(ctx context.Context, taskID string, status model.Status) error
}

// Drag holds the card currently being dragged and the lanes highlighted
// as drop targets.
type Drag struct {
	mover Mover

	mu          sync.Mutex
	dragged     *model.Task
	highlighted map[model.Status]bool
}

// NewDrag returns an idle drag controller.
func NewDrag(m Mover) *Drag {
	return &Drag{mover: m, highlighted: make(map[model.Status]bool)}
}

// Start picks up t. A drag already in progress is replaced.
func (d *Drag) Start(t *model.Task) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dragged = t
}

// Dragged returns the card being dragged, or nil.
func (d *Drag) Dragged() *model.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dragged
}

// Enter highlights lane as the drop target.
func (d *Drag) Enter(lane model.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dragged == nil {
		return
	}
	d.highlighted[lane] = true
}

// Leave removes the highlight from lane.
func (d *Drag) Leave(lane model.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.highlighted, lane)
}

// Highlighted reports whether lane is marked as a drop target.
func (d *Drag) Highlighted(lane model.Status) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.highlighted[lane]
}

// Cancel drops the dragged card without moving it.
func (d *Drag) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

// Drop moves the dragged card to lane. The drag slot and every lane
// highlight are cleared whatever the outcome.
func (d *Drag) Drop(ctx context.Context, lane model.Status) error {
	d.mu.Lock()
	t := d.dragged
	d.resetLocked()
	d.mu.Unlock()

	if t == nil {
		return nil
	}
	return d.mover.MoveStatus(ctx, t.ID, lane)
}

func (d *Drag) resetLocked() {
	d.dragged = nil
	clear(d.highlighted)
}
