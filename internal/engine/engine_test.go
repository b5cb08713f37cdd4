package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repchat/internal/assistant"
	"github.com/repchat/internal/store"
)

func TestHandleTurn_NewConversation(t *testing.T) {
	svc := assistant.NewFakeService()
	svc.RunScripts = []assistant.RunScript{{
		Statuses: []assistant.RunStatus{assistant.StatusCompleted},
		Reply:    `{"reply":"Hello!","updated_notes":"new user, friendly","score_change":5}`,
	}}
	st := store.NewMemStore()

	e := newTestEngine(svc, st)
	res := e.HandleTurn(context.Background(), TurnRequest{UserID: "u1", Message: "hi"})

	require.Nil(t, res.Err)
	assert.Equal(t, "Hello!", res.Message)
	assert.Equal(t, "thread_1", res.ConversationID, "new thread handle becomes the conversation id")
	assert.Equal(t, 5, res.UpdatedScore)
	assert.Equal(t, 5, res.ScoreChange)
	assert.Equal(t, "new user, friendly", res.UserNotes)
	assert.False(t, res.Degraded)

	// Both sides of the turn are durable, user message first.
	msgs, err := st.GetMessages(context.Background(), res.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, store.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, store.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello!", msgs[1].Content)

	user, err := st.GetOrCreateUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, user.Score)
	assert.Equal(t, "new user, friendly", user.Notes)
}

func TestHandleTurn_ExistingConversationPreservesNotes(t *testing.T) {
	svc := assistant.NewFakeService()
	svc.SeedThread("thread_7")
	svc.RunScripts = []assistant.RunScript{{
		Statuses: []assistant.RunStatus{assistant.StatusInProgress, assistant.StatusCompleted},
		Reply:    `{"reply":"Welcome back","updated_notes":"","score_change":-30}`,
	}}

	st := store.NewMemStore()
	ctx := context.Background()
	_, err := st.GetOrCreateUser(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, st.CommitTurn(ctx, store.TurnRecord{
		ConversationID:     "thread_7",
		UserID:             "u1",
		CreateConversation: true,
		UserMessage:        "earlier question",
		AssistantMessage:   "earlier answer",
		Notes:              "likes trivia",
		Score:              100,
	}))

	e := newTestEngine(svc, st)
	res := e.HandleTurn(ctx, TurnRequest{UserID: "u1", Message: "again", ConversationID: "thread_7"})

	require.Nil(t, res.Err)
	assert.Equal(t, "thread_7", res.ConversationID)
	assert.Equal(t, 70, res.UpdatedScore)
	assert.Equal(t, -30, res.ScoreChange)
	assert.Equal(t, "likes trivia", res.UserNotes, "empty updated_notes keeps existing notes")

	msgs, err := st.GetMessages(ctx, "thread_7")
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestHandleTurn_DegradedReplyStillCommits(t *testing.T) {
	svc := assistant.NewFakeService()
	svc.RunScripts = []assistant.RunScript{{
		Statuses: []assistant.RunStatus{assistant.StatusCompleted},
		Reply:    "Sorry, I can only answer in plain text today.",
	}}
	st := store.NewMemStore()

	e := newTestEngine(svc, st)
	res := e.HandleTurn(context.Background(), TurnRequest{UserID: "u1", Message: "hi"})

	require.Nil(t, res.Err)
	assert.True(t, res.Degraded)
	assert.Equal(t, "Sorry, I can only answer in plain text today.", res.Message)
	assert.Equal(t, 0, res.UpdatedScore, "degraded turn never moves the score")

	msgs, err := st.GetMessages(context.Background(), res.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, res.Message, msgs[1].Content)
}

func TestHandleTurn_RunRetriesExhaustedCommitsNothing(t *testing.T) {
	svc := assistant.NewFakeService()
	svc.RunScripts = []assistant.RunScript{
		{Statuses: []assistant.RunStatus{assistant.StatusFailed}, LastError: "server_error"},
		{Statuses: []assistant.RunStatus{assistant.StatusFailed}, LastError: "server_error"},
		{Statuses: []assistant.RunStatus{assistant.StatusFailed}, LastError: "server_error"},
	}
	st := store.NewMemStore()

	e := newTestEngine(svc, st)
	res := e.HandleTurn(context.Background(), TurnRequest{UserID: "u1", Message: "hi"})

	require.NotNil(t, res.Err)
	assert.Equal(t, KindFatal, res.Err.Kind)
	assert.Equal(t, syntheticFailureReply, res.Message)
	assert.Equal(t, 0, res.UpdatedScore)

	msgs, err := st.GetMessages(context.Background(), res.ConversationID)
	require.NoError(t, err)
	assert.Empty(t, msgs, "failed turn leaves no partial record")
}

func TestHandleTurn_ValidationErrors(t *testing.T) {
	e := newTestEngine(assistant.NewFakeService(), store.NewMemStore())

	res := e.HandleTurn(context.Background(), TurnRequest{Message: "hi"})
	require.NotNil(t, res.Err)
	assert.Equal(t, KindValidation, res.Err.Kind)

	res = e.HandleTurn(context.Background(), TurnRequest{UserID: "u1"})
	require.NotNil(t, res.Err)
	assert.Equal(t, KindValidation, res.Err.Kind)
}

func TestHandleTurn_UnknownConversationID(t *testing.T) {
	e := newTestEngine(assistant.NewFakeService(), store.NewMemStore())

	res := e.HandleTurn(context.Background(), TurnRequest{
		UserID:         "u1",
		Message:        "hi",
		ConversationID: "thread_missing",
	})

	require.NotNil(t, res.Err)
	assert.Equal(t, KindValidation, res.Err.Kind)
}

func TestHandleTurn_ConflictExhausted(t *testing.T) {
	svc := assistant.NewFakeService()
	svc.SeedThread("thread_1")
	svc.CreateMessageErrs = []error{
		fmt.Errorf("attach: %w", assistant.ErrConflict),
		fmt.Errorf("attach: %w", assistant.ErrConflict),
		fmt.Errorf("attach: %w", assistant.ErrConflict),
	}
	st := store.NewMemStore()

	e := newTestEngine(svc, st)
	res := e.HandleTurn(context.Background(), TurnRequest{
		UserID:         "u1",
		Message:        "hi",
		ConversationID: "thread_1",
	})

	require.NotNil(t, res.Err)
	assert.Equal(t, KindConflict, res.Err.Kind)
	assert.Equal(t, "thread_1", res.ConversationID)

	msgs, err := st.GetMessages(context.Background(), "thread_1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

// A zero Config picks up the production defaults, so the retry bound
// still holds when callers skip configuration entirely.
func TestHandleTurn_ZeroConfigUsesDefaults(t *testing.T) {
	svc := assistant.NewFakeService()
	svc.SeedThread("thread_1")
	svc.CreateMessageErrs = []error{
		fmt.Errorf("attach: %w", assistant.ErrConflict),
		fmt.Errorf("attach: %w", assistant.ErrConflict),
		fmt.Errorf("attach: %w", assistant.ErrConflict),
		fmt.Errorf("attach: %w", assistant.ErrConflict),
	}

	e := New(svc, store.NewMemStore(), Config{}, zerolog.Nop(), WithSleep(noSleep))
	res := e.HandleTurn(context.Background(), TurnRequest{
		UserID:         "u1",
		Message:        "hi",
		ConversationID: "thread_1",
	})

	require.NotNil(t, res.Err)
	assert.Equal(t, KindConflict, res.Err.Kind)
	assert.Equal(t, DefaultConfig().RetryAttempts, svc.CreateMessageCalls,
		"default attempt bound applies, never a fourth call")
}

func TestHandleTurn_ScoreClampedAtCeiling(t *testing.T) {
	svc := assistant.NewFakeService()
	svc.RunScripts = []assistant.RunScript{{
		Statuses: []assistant.RunStatus{assistant.StatusCompleted},
		Reply:    `{"reply":"great job","score_change":50}`,
	}}

	st := store.NewMemStore()
	ctx := context.Background()
	_, err := st.GetOrCreateUser(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, st.UpdateUser(ctx, "u1", "", 995))

	e := newTestEngine(svc, st)
	res := e.HandleTurn(ctx, TurnRequest{UserID: "u1", Message: "hi"})

	require.Nil(t, res.Err)
	assert.Equal(t, 50, res.ScoreChange)
	assert.Equal(t, 1000, res.UpdatedScore, "score caps at the ceiling, not 1045")
}

func TestHandleTurn_ScoreClampedAtFloor(t *testing.T) {
	svc := assistant.NewFakeService()
	svc.RunScripts = []assistant.RunScript{{
		Statuses: []assistant.RunStatus{assistant.StatusCompleted},
		Reply:    `{"reply":"ouch","score_change":-100}`,
	}}

	e := newTestEngine(svc, store.NewMemStore())
	res := e.HandleTurn(context.Background(), TurnRequest{UserID: "u1", Message: "hi"})

	require.Nil(t, res.Err)
	assert.Equal(t, -100, res.ScoreChange)
	assert.Equal(t, 0, res.UpdatedScore, "score never drops below the floor")
}
