// Package assistant wraps the external asynchronous completion service:
// persistent threads, per-turn runs, and the messages accumulated on a
// thread. The engine only sees this contract; the OpenAI-backed client
// lives in openai.go.
package assistant

import (
	"context"
	"errors"
)

// RunStatus is the lifecycle state of an asynchronous run.
type RunStatus string

const (
	StatusQueued     RunStatus = "queued"
	StatusInProgress RunStatus = "in_progress"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// Terminal reports whether a run in this status will never change again.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Thread is an opaque handle to the service's conversation thread.
type Thread struct {
	ID string
}

// Run is one asynchronous job executing the assistant against a thread.
// LastError carries the service's failure reason when Status is failed.
type Run struct {
	ID        string
	Status    RunStatus
	LastError string
}

// ThreadMessage is one entry of a thread's message list.
type ThreadMessage struct {
	Role string
	Text string
}

// Service is the external completion service contract.
type Service interface {
	// CreateThread starts a fresh thread.
	CreateThread(ctx context.Context) (Thread, error)

	// RetrieveThread fetches an existing thread. Unknown ids yield an
	// error satisfying IsNotFound.
	RetrieveThread(ctx context.Context, id string) (Thread, error)

	// CreateMessage attaches a message to the thread. While another run is
	// active on the thread the service rejects the attachment with an
	// error satisfying IsConflict.
	CreateMessage(ctx context.Context, threadID, role, content string) error

	// CreateRun starts a run against the thread's accumulated messages.
	CreateRun(ctx context.Context, threadID, instructions string) (Run, error)

	// RetrieveRun re-fetches a run's current status.
	RetrieveRun(ctx context.Context, threadID, runID string) (Run, error)

	// ListMessages returns the thread's messages newest-first.
	ListMessages(ctx context.Context, threadID string) ([]ThreadMessage, error)
}

// Sentinel errors. The OpenAI client maps API failures onto these so the
// engine can classify without knowing the provider's error shapes; fakes
// return them directly.
var (
	ErrConflict = errors.New("assistant: run active on thread")
	ErrNotFound = errors.New("assistant: not found")
)

// IsConflict reports whether err is the busy-thread conflict signal.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsNotFound reports whether err means the requested object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
