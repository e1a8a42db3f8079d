package selection

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending scheduled callback.
type Timer interface {
	// Stop cancels the callback and reports whether it was still pending.
	Stop() bool
}

// Scheduler runs callbacks after a delay. NextFrame runs a callback once
// the next frame has been rendered.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	NextFrame(fn func()) Timer
}

// DefaultFrame is the frame interval of RealScheduler.
const DefaultFrame = 16 * time.Millisecond

// RealScheduler schedules on the wall clock.
type RealScheduler struct {
	Frame time.Duration
}

// AfterFunc wraps time.AfterFunc.
func (s RealScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// NextFrame runs fn after one frame interval.
func (s RealScheduler) NextFrame(fn func()) Timer {
	frame := s.Frame
	if frame <= 0 {
		frame = DefaultFrame
	}
	return time.AfterFunc(frame, fn)
}

// ManualScheduler is a virtual clock. Callbacks only run from Advance or
// Flush, on the calling goroutine.
type ManualScheduler struct {
	Frame time.Duration

	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// NewManualScheduler returns a scheduler at virtual time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{Frame: DefaultFrame}
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// AfterFunc schedules fn at now+d.
func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTimer{s: s, at: s.now + d, seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// NextFrame schedules fn one frame from now.
func (s *ManualScheduler) NextFrame(fn func()) Timer {
	return s.AfterFunc(s.Frame, fn)
}

// Now returns the elapsed virtual time.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns the number of timers that have not fired or stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, running due callbacks in time
// order. Callbacks scheduled while advancing run if they fall within d.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		t := s.popDue(target)
		if t == nil {
			break
		}
		t.fn()
	}

	s.mu.Lock()
	s.now = target
	s.mu.Unlock()
}

// Flush runs every pending callback, including ones scheduled by
// callbacks, until none remain.
func (s *ManualScheduler) Flush() {
	for {
		s.mu.Lock()
		var latest time.Duration
		live := false
		for _, t := range s.timers {
			if !t.stopped && !t.fired && (!live || t.at > latest) {
				latest = t.at
				live = true
			}
		}
		now := s.now
		s.mu.Unlock()
		if !live {
			return
		}
		s.Advance(latest - now)
	}
}

func (s *ManualScheduler) popDue(target time.Duration) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	s.timers = live
	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].at != s.timers[j].at {
			return s.timers[i].at < s.timers[j].at
		}
		return s.timers[i].seq < s.timers[j].seq
	})

	if len(s.timers) == 0 || s.timers[0].at > target {
		return nil
	}
	t := s.timers[0]
	t.fired = true
	if t.at > s.now {
		s.now = t.at
	}
	return t
}
