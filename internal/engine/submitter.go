package engine

import (
	"context"

	"github.com/repchat/internal/assistant"
	"github.com/repchat/internal/retry"
)

// submitMessage attaches the composed text to the thread as a user turn.
// The service rejects attachment while another run is active on the same
// thread; that conflict, and any other error, is retried with the fixed
// bounded policy. Best effort: exhausted retries return the last error,
// never an unbounded loop.
func (e *Engine) submitMessage(ctx context.Context, threadID, text string) error {
	result := retry.Do(ctx, retry.FixedDelayConfig(e.cfg.RetryAttempts, e.cfg.RetryDelay), func() error {
		err := e.svc.CreateMessage(ctx, threadID, "user", text)
		if err != nil && !assistant.IsConflict(err) {
			e.log.Warn().Str("thread_id", threadID).Err(err).Msg("message attach failed")
		}
		return err
	}, e.sleep, e.log)

	if result.Success {
		return nil
	}
	return result.LastError
}
