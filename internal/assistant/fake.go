package assistant

import (
	"context"
	"fmt"
	"sync"
)

// RunScript describes how one scripted run behaves: the sequence of
// statuses observed (first from CreateRun, the rest from RetrieveRun,
// last one repeated), the failure reason if it ends failed, and the
// assistant reply appended to the thread if it ends completed.
type RunScript struct {
	Statuses  []RunStatus
	LastError string
	Reply     string
}

// FakeService is a scripted in-memory Service used in tests and local
// development. Message attachment errors and run behavior are queued up
// front; unscripted runs complete immediately with an empty reply.
type FakeService struct {
	mu sync.Mutex

	threads    map[string][]ThreadMessage // oldest-first internally
	nextThread int
	nextRun    int

	// CreateMessageErrs is consumed one per CreateMessage call; nil
	// entries mean success. When exhausted, calls succeed.
	CreateMessageErrs []error

	// RunScripts is consumed one per CreateRun call.
	RunScripts []RunScript

	runs map[string]*scriptedRun

	CreateThreadCalls  int
	CreateMessageCalls int
	CreateRunCalls     int
	RetrieveRunCalls   int
}

type scriptedRun struct {
	threadID string
	script   RunScript
	step     int
	done     bool
}

// NewFakeService returns an empty scripted service.
func NewFakeService() *FakeService {
	return &FakeService{
		threads: make(map[string][]ThreadMessage),
		runs:    make(map[string]*scriptedRun),
	}
}

// SeedThread pre-creates a thread with the given id, as if an earlier
// conversation had built it.
func (f *FakeService) SeedThread(id string, messages ...ThreadMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads[id] = append([]ThreadMessage{}, messages...)
}

func (f *FakeService) CreateThread(ctx context.Context) (Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateThreadCalls++
	f.nextThread++
	id := fmt.Sprintf("thread_%d", f.nextThread)
	f.threads[id] = nil
	return Thread{ID: id}, nil
}

func (f *FakeService) RetrieveThread(ctx context.Context, id string) (Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.threads[id]; !ok {
		return Thread{}, fmt.Errorf("retrieve thread %s: %w", id, ErrNotFound)
	}
	return Thread{ID: id}, nil
}

func (f *FakeService) CreateMessage(ctx context.Context, threadID, role, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateMessageCalls++

	if len(f.CreateMessageErrs) > 0 {
		err := f.CreateMessageErrs[0]
		f.CreateMessageErrs = f.CreateMessageErrs[1:]
		if err != nil {
			return err
		}
	}

	if _, ok := f.threads[threadID]; !ok {
		return fmt.Errorf("create message on %s: %w", threadID, ErrNotFound)
	}
	f.threads[threadID] = append(f.threads[threadID], ThreadMessage{Role: role, Text: content})
	return nil
}

func (f *FakeService) CreateRun(ctx context.Context, threadID, instructions string) (Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateRunCalls++

	script := RunScript{Statuses: []RunStatus{StatusCompleted}}
	if len(f.RunScripts) > 0 {
		script = f.RunScripts[0]
		f.RunScripts = f.RunScripts[1:]
	}
	if len(script.Statuses) == 0 {
		script.Statuses = []RunStatus{StatusCompleted}
	}

	f.nextRun++
	id := fmt.Sprintf("run_%d", f.nextRun)
	r := &scriptedRun{threadID: threadID, script: script}
	f.runs[id] = r

	return f.observe(id, r), nil
}

func (f *FakeService) RetrieveRun(ctx context.Context, threadID, runID string) (Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RetrieveRunCalls++

	r, ok := f.runs[runID]
	if !ok {
		return Run{}, fmt.Errorf("retrieve run %s: %w", runID, ErrNotFound)
	}
	r.step++
	return f.observe(runID, r), nil
}

// observe returns the run at its current script step, appending the
// scripted reply when the run first reaches completed.
func (f *FakeService) observe(id string, r *scriptedRun) Run {
	step := r.step
	if step >= len(r.script.Statuses) {
		step = len(r.script.Statuses) - 1
	}
	status := r.script.Statuses[step]

	run := Run{ID: id, Status: status}
	if status == StatusFailed {
		run.LastError = r.script.LastError
	}
	if status == StatusCompleted && !r.done {
		r.done = true
		f.threads[r.threadID] = append(f.threads[r.threadID], ThreadMessage{
			Role: "assistant",
			Text: r.script.Reply,
		})
	}
	return run
}

// ListMessages returns the thread's messages newest-first, matching the
// real service's ordering.
func (f *FakeService) ListMessages(ctx context.Context, threadID string) ([]ThreadMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msgs, ok := f.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("list messages on %s: %w", threadID, ErrNotFound)
	}

	out := make([]ThreadMessage, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}
