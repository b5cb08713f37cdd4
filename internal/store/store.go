package store

import "context"

// Store is the persistence contract the orchestration engine depends on.
// Every call is atomic on its own; CommitTurn is the single commit boundary
// for a whole turn.
type Store interface {
	// GetOrCreateUser returns the user with the given id, creating it with
	// empty notes and score 0 on first reference.
	GetOrCreateUser(ctx context.Context, id string) (*User, error)

	// GetConversation returns the conversation or nil if it does not exist.
	GetConversation(ctx context.Context, id string) (*Conversation, error)

	// CreateConversation creates a conversation owned by ownerID. The id is
	// the external thread handle when the engine starts a fresh thread.
	CreateConversation(ctx context.Context, id, ownerID string) (*Conversation, error)

	// GetMessages returns the conversation's messages oldest-first.
	GetMessages(ctx context.Context, conversationID string) ([]Message, error)

	// UpdateUser replaces the user's notes and score.
	UpdateUser(ctx context.Context, id, notes string, score int) error

	// CommitTurn persists one completed turn in a single transaction:
	// the conversation row if still absent, the user and assistant messages
	// with increasing timestamps, and the user's new notes and score.
	CommitTurn(ctx context.Context, turn TurnRecord) error
}
