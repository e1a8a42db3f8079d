package app

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
)

// eventMsg wraps a message posted from outside the Bubble Tea loop.
type eventMsg struct {
	inner tea.Msg
}

// toastMsg shows a transient notification in the status bar.
type toastMsg struct {
	text string
	err  bool
}

// confirmRequestMsg asks the UI to show a yes/no dialog. The answer is
// sent on reply, which has room for one value.
type confirmRequestMsg struct {
	question string
	reply    chan bool
}

// mailbox is an unbounded queue of messages for the UI. Posting never
// blocks, so cache and coordinator callbacks can post while holding
// their own locks.
type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []tea.Msg
	closed bool
}

func newMailbox() *mailbox {
	b := &mailbox{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *mailbox) post(msg tea.Msg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.queue = append(b.queue, msg)
	b.cond.Signal()
}

func (b *mailbox) next() (tea.Msg, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.queue) == 0 && !b.closed {
		b.cond.Wait()
	}
	if len(b.queue) == 0 {
		return nil, false
	}
	msg := b.queue[0]
	b.queue[0] = nil
	b.queue = b.queue[1:]
	return msg, true
}

func (b *mailbox) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}

// wait returns a tea.Cmd that delivers the next posted message.
func (b *mailbox) wait() tea.Cmd {
	return func() tea.Msg {
		msg, ok := b.next()
		if !ok {
			return nil
		}
		return eventMsg{inner: msg}
	}
}

// Notifier is the terminal notification sink. Success and error messages
// become status bar toasts and confirmations open a dialog.
type Notifier struct {
	box *mailbox
}

// NewNotifier returns a notifier whose messages are delivered once the
// app model built with it is running.
func NewNotifier() *Notifier {
	return &Notifier{box: newMailbox()}
}

// Success implements notify.Notifier.
func (n *Notifier) Success(message string) {
	log.WithField("kind", "success").Debug(message)
	n.box.post(toastMsg{text: message})
}

// Error implements notify.Notifier.
func (n *Notifier) Error(message string) {
	log.WithField("kind", "error").Warn(message)
	n.box.post(toastMsg{text: message, err: true})
}

// Confirm implements notify.Notifier. It must not be called from the
// Bubble Tea update loop, since it blocks until the dialog is answered.
func (n *Notifier) Confirm(ctx context.Context, message string) (bool, error) {
	reply := make(chan bool, 1)
	n.box.post(confirmRequestMsg{question: message, reply: reply})
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Close releases anyone waiting for UI messages.
func (n *Notifier) Close() {
	n.box.close()
}
