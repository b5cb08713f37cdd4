package engine

import (
	"context"

	"github.com/repchat/internal/assistant"
)

// resolveThread maps a conversation to its external thread handle. An
// empty conversationID means a fresh thread; its id becomes the new
// conversation's id. Lookup failures are surfaced, not retried — retries
// belong to submission and polling.
func (e *Engine) resolveThread(ctx context.Context, conversationID string) (assistant.Thread, bool, *TurnError) {
	if conversationID == "" {
		thread, err := e.svc.CreateThread(ctx)
		if err != nil {
			return assistant.Thread{}, false, transientError("failed to create thread", err)
		}
		e.log.Info().Str("thread_id", thread.ID).Msg("created new thread")
		return thread, true, nil
	}

	thread, err := e.svc.RetrieveThread(ctx, conversationID)
	if err != nil {
		if assistant.IsNotFound(err) {
			return assistant.Thread{}, false, validationError("unknown conversation_id " + conversationID)
		}
		return assistant.Thread{}, false, transientError("failed to retrieve thread "+conversationID, err)
	}
	return thread, false, nil
}
