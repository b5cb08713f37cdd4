package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_GetOrCreateUser(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	u, err := s.GetOrCreateUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, 0, u.Score)

	require.NoError(t, s.UpdateUser(ctx, "u1", "notes", 42))

	again, err := s.GetOrCreateUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 42, again.Score)
	assert.Equal(t, "notes", again.Notes)
}

func TestMemStore_GetConversationMissingIsNil(t *testing.T) {
	s := NewMemStore()

	c, err := s.GetConversation(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestMemStore_CommitTurnOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	_, err := s.GetOrCreateUser(ctx, "u1")
	require.NoError(t, err)

	turns := []TurnRecord{
		{ConversationID: "c1", UserID: "u1", CreateConversation: true,
			UserMessage: "q1", AssistantMessage: "a1", Notes: "n", Score: 10},
		{ConversationID: "c1", UserID: "u1",
			UserMessage: "q2", AssistantMessage: "a2", Notes: "n", Score: 20},
	}
	for _, turn := range turns {
		require.NoError(t, s.CommitTurn(ctx, turn))
	}

	msgs, err := s.GetMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	wantContent := []string{"q1", "a1", "q2", "a2"}
	wantRoles := []Role{RoleUser, RoleAssistant, RoleUser, RoleAssistant}
	for i, msg := range msgs {
		assert.Equal(t, wantContent[i], msg.Content)
		assert.Equal(t, wantRoles[i], msg.Role)
		if i > 0 {
			assert.True(t, msgs[i-1].CreatedAt.Before(msg.CreatedAt),
				"timestamps must be strictly increasing")
		}
	}

	u, err := s.GetOrCreateUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 20, u.Score)
}

func TestMemStore_CommitTurnUnknownConversation(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	_, err := s.GetOrCreateUser(ctx, "u1")
	require.NoError(t, err)

	err = s.CommitTurn(ctx, TurnRecord{
		ConversationID: "nope", UserID: "u1",
		UserMessage: "q", AssistantMessage: "a",
	})
	require.Error(t, err)

	msgs, err := s.GetMessages(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, msgs, "rejected commit must not leak messages")
}

func TestMemStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	u, err := s.GetOrCreateUser(ctx, "u1")
	require.NoError(t, err)

	u.Score = 999
	u.Notes = "mutated"

	fresh, err := s.GetOrCreateUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Score)
	assert.Equal(t, "", fresh.Notes)
}
