package engine

import (
	"context"
	"fmt"

	"github.com/repchat/internal/assistant"
	"github.com/repchat/internal/retry"
)

// pollAction is the decision the poll state machine takes after observing
// a run status.
type pollAction int

const (
	pollWait pollAction = iota // queued / in_progress: sleep and re-fetch
	pollDone                   // completed: collect the reply
	pollFail                   // failed: raise with the run's last error
)

// nextPollAction is the pure transition function of the run state machine.
func nextPollAction(status assistant.RunStatus) pollAction {
	switch status {
	case assistant.StatusCompleted:
		return pollDone
	case assistant.StatusFailed:
		return pollFail
	default:
		return pollWait
	}
}

// syntheticFailureReply is what the caller sees when every attempt at
// running the assistant has been exhausted.
const syntheticFailureReply = "I could not reach the assistant service. Please try again shortly."

// runToCompletion creates a run against the thread and polls it to a
// terminal state, retrieving the assistant's newest reply on completion.
// The whole create-and-poll sequence is retried with the fixed bounded
// policy; each attempt is capped by the configured poll deadline so an
// unresponsive service cannot block a turn forever. When all attempts
// exhaust it returns a synthetic reply and ok=false instead of an error,
// so downstream handling can degrade.
func (e *Engine) runToCompletion(ctx context.Context, threadID, instructions string) (string, bool) {
	var reply string

	result := retry.Do(ctx, retry.FixedDelayConfig(e.cfg.RetryAttempts, e.cfg.RetryDelay), func() error {
		attemptCtx := ctx
		if e.cfg.PollDeadline > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, e.cfg.PollDeadline)
			defer cancel()
		}

		text, err := e.runOnce(attemptCtx, threadID, instructions)
		if err != nil {
			return err
		}
		reply = text
		return nil
	}, e.sleep, e.log)

	if !result.Success {
		e.log.Error().
			Str("thread_id", threadID).
			Int("attempts", result.Attempts).
			Err(result.LastError).
			Msg("run never completed, returning synthetic reply")
		return syntheticFailureReply, false
	}

	return reply, true
}

// runOnce executes one create-and-poll cycle.
func (e *Engine) runOnce(ctx context.Context, threadID, instructions string) (string, error) {
	run, err := e.svc.CreateRun(ctx, threadID, instructions)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}

	e.log.Debug().Str("thread_id", threadID).Str("run_id", run.ID).Msg("run created")

	for {
		switch nextPollAction(run.Status) {
		case pollDone:
			return e.latestAssistantReply(ctx, threadID)
		case pollFail:
			return "", fmt.Errorf("run %s failed: %s", run.ID, run.LastError)
		case pollWait:
			if err := e.sleep(ctx, e.cfg.PollInterval); err != nil {
				return "", fmt.Errorf("poll wait: %w", err)
			}
			run, err = e.svc.RetrieveRun(ctx, threadID, run.ID)
			if err != nil {
				return "", fmt.Errorf("retrieve run: %w", err)
			}
		}
	}
}

// latestAssistantReply picks the most recent assistant entry from the
// thread's message list, which the service returns newest-first.
func (e *Engine) latestAssistantReply(ctx context.Context, threadID string) (string, error) {
	messages, err := e.svc.ListMessages(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}

	for _, msg := range messages {
		if msg.Role == "assistant" {
			return msg.Text, nil
		}
	}

	return "", fmt.Errorf("no assistant reply on thread %s", threadID)
}
