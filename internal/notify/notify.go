// Package notify defines the sink services report outcomes to. The core
// never renders anything itself.
package notify

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Notifier receives user-facing outcomes of store operations.
type Notifier interface {
	Success(message string)
	Error(message string)

	// Confirm asks the user to approve a destructive action. It blocks
	// until the user answers or ctx is done.
	Confirm(ctx context.Context, message string) (bool, error)
}

// LogNotifier writes notifications to the log. Confirm answers with
// AutoConfirm, which makes it suitable for headless commands.
type LogNotifier struct {
	AutoConfirm bool
}

// Success logs at info level.
func (n LogNotifier) Success(message string) {
	log.WithField("kind", "success").Info(message)
}

// Error logs at warn level.
func (n LogNotifier) Error(message string) {
	log.WithField("kind", "error").Warn(message)
}

// Confirm logs the question and answers with AutoConfirm.
func (n LogNotifier) Confirm(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	log.WithFields(log.Fields{
		"kind":   "confirm",
		"answer": n.AutoConfirm,
	}).Info(message)
	return n.AutoConfirm, nil
}
