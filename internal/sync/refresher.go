package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
)

// SyncState represents the current state of a refresh.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus describes the last refresh.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// RefreshResultMsg is a tea.Msg sent when a refresh completes.
type RefreshResultMsg struct {
	Contacts int
	Tasks    int
	Error    error
}

// Loader reloads one cache from the store.
type Loader func(ctx context.Context) (int, error)

// fetchTimeout is the maximum time allowed for a single refresh.
const fetchTimeout = 30 * time.Second

// defaultInterval is used when no positive interval is configured.
const defaultInterval = 120 * time.Second

// Refresher reloads the caches on an interval and on demand. Loaders run
// in registration order, so contacts can be loaded before the tasks that
// reference them.
type Refresher struct {
	loaders   []namedLoader
	interval  time.Duration
	resultCh  chan RefreshResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
	status    SyncStatus
}

type namedLoader struct {
	name string
	load Loader
}

// New creates a Refresher with the given interval.
func New(interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Refresher{
		interval:  interval,
		resultCh:  make(chan RefreshResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
	}
}

// Register adds a loader. Register before Start.
func (r *Refresher) Register(name string, load Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders = append(r.loaders, namedLoader{name: name, load: load})
}

// Start returns a tea.Cmd that starts the refresh loop and waits for the
// first result.
func (r *Refresher) Start() tea.Cmd {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	stop := make(chan struct{})
	r.stopCh = stop
	r.mu.Unlock()

	go r.loop(stop)

	return r.waitForResult()
}

// Stop halts the refresh loop. A stopped Refresher can be started again.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	close(r.stopCh)
	r.running = false
}

// Refresh triggers an immediate reload. Triggers coalesce while one is
// already queued.
func (r *Refresher) Refresh() {
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns the state of the last refresh.
func (r *Refresher) Status() SyncStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Refresher) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sendResult(r.RefreshNow(context.Background()))

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.sendResult(r.RefreshNow(context.Background()))
		case <-r.triggerCh:
			r.sendResult(r.RefreshNow(context.Background()))
		}
	}
}

// RefreshNow runs every loader once and returns the combined result.
// A failing loader stops the pass so later loaders never see stale
// dependencies.
func (r *Refresher) RefreshNow(ctx context.Context) RefreshResultMsg {
	r.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	r.mu.Lock()
	loaders := append([]namedLoader{}, r.loaders...)
	r.mu.Unlock()

	var msg RefreshResultMsg
	for _, l := range loaders {
		n, err := l.load(ctx)
		if err != nil {
			err = fmt.Errorf("refreshing %s: %w", l.name, err)
			log.WithField("loader", l.name).WithError(err).Warn("refresh failed")
			r.setStatus(SyncError, err)
			msg.Error = err
			return msg
		}
		switch l.name {
		case "contacts":
			msg.Contacts = n
		case "tasks":
			msg.Tasks = n
		}
	}

	r.setStatus(SyncIdle, nil)
	return msg
}

func (r *Refresher) setStatus(state SyncState, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.State = state
	r.status.Error = err
	if state == SyncIdle {
		r.status.LastSync = time.Now()
	}
}

// sendResult sends a result without blocking.
func (r *Refresher) sendResult(msg RefreshResultMsg) {
	select {
	case r.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the loop
	}
}

func (r *Refresher) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-r.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next refresh
// result. Call it after handling a RefreshResultMsg to keep listening.
func (r *Refresher) WaitForNextResult() tea.Cmd {
	return r.waitForResult()
}
