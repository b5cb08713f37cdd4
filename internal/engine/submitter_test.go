package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repchat/internal/assistant"
	"github.com/repchat/internal/store"
)

// noSleep skips delays instantly, failing only if the context is done.
func noSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// testConfig keeps every knob deterministic: a deadline far beyond any
// test's runtime, and delays that the injected sleep skips anyway.
func testConfig() Config {
	return Config{
		PollInterval:  time.Millisecond,
		PollDeadline:  time.Minute,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}
}

func newTestEngine(svc assistant.Service, st store.Store) *Engine {
	return New(svc, st, testConfig(), zerolog.Nop(), WithSleep(noSleep))
}

func TestSubmitMessage_PersistentConflictExhaustsRetries(t *testing.T) {
	svc := assistant.NewFakeService()
	svc.SeedThread("thread_1")
	svc.CreateMessageErrs = []error{
		fmt.Errorf("attach: %w", assistant.ErrConflict),
		fmt.Errorf("attach: %w", assistant.ErrConflict),
		fmt.Errorf("attach: %w", assistant.ErrConflict),
	}

	e := newTestEngine(svc, store.NewMemStore())
	err := e.submitMessage(context.Background(), "thread_1", "hello")

	require.Error(t, err)
	assert.True(t, assistant.IsConflict(err))
	assert.Equal(t, 3, svc.CreateMessageCalls, "one call per configured attempt, then stop")
}

func TestSubmitMessage_ConflictClearsOnRetry(t *testing.T) {
	svc := assistant.NewFakeService()
	svc.SeedThread("thread_1")
	svc.CreateMessageErrs = []error{
		fmt.Errorf("attach: %w", assistant.ErrConflict),
		nil,
	}

	e := newTestEngine(svc, store.NewMemStore())
	err := e.submitMessage(context.Background(), "thread_1", "hello")

	require.NoError(t, err)
	assert.Equal(t, 2, svc.CreateMessageCalls)
}

func TestSubmitMessage_NonConflictErrorAlsoRetried(t *testing.T) {
	svc := assistant.NewFakeService()
	svc.SeedThread("thread_1")
	svc.CreateMessageErrs = []error{
		errors.New("connection reset"),
		errors.New("connection reset"),
		nil,
	}

	e := newTestEngine(svc, store.NewMemStore())
	err := e.submitMessage(context.Background(), "thread_1", "hello")

	require.NoError(t, err)
	assert.Equal(t, 3, svc.CreateMessageCalls)
}
