package testutil

import (
	"context"
	"sync"
)

// Recorder is a notify.Notifier that keeps every message. Confirm returns
// Answer and records the question.
type Recorder struct {
	mu        sync.Mutex
	successes []string
	errors    []string
	questions []string

	Answer     bool
	ConfirmErr error
}

// NewRecorder returns a recorder that answers confirmations with answer.
func NewRecorder(answer bool) *Recorder {
	return &Recorder{Answer: answer}
}

// Success implements notify.Notifier.
func (r *Recorder) Success(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, message)
}

// Error implements notify.Notifier.
func (r *Recorder) Error(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, message)
}

// Confirm implements notify.Notifier.
func (r *Recorder) Confirm(ctx context.Context, message string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions = append(r.questions, message)
	if r.ConfirmErr != nil {
		return false, r.ConfirmErr
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return r.Answer, nil
}

// Successes returns the recorded success messages.
func (r *Recorder) Successes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.successes...)
}

// Errors returns the recorded error messages.
func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

// Questions returns the recorded confirmation prompts.
func (r *Recorder) Questions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.questions...)
}
