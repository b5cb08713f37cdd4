package store

import "time"

// Role identifies who produced a message. Stored explicitly on each row
// rather than inferred from list position, so a retried or dropped turn
// cannot shift the meaning of the history.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Score bounds. A user's score always stays inside [ScoreMin, ScoreMax].
const (
	ScoreMin = 0
	ScoreMax = 1000
)

// User is a chat participant with free-text notes and a bounded
// reputation score.
type User struct {
	ID          string    `json:"user_id"`
	Notes       string    `json:"notes"`
	Preferences string    `json:"preferences,omitempty"` // opaque JSON, not interpreted by the engine
	Score       int       `json:"score"`
	CreatedAt   time.Time `json:"created_at"`
}

// Conversation groups the messages of one assistant thread. Its ID equals
// the external thread handle when the conversation was created by the
// engine, and it never changes afterwards.
type Conversation struct {
	ID        string    `json:"conversation_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one turn half inside a conversation. Append-only, ordered by
// CreatedAt (ties broken by ID).
type Message struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"timestamp"`
}

// TurnRecord is everything one completed orchestration turn persists.
// CommitTurn writes it atomically: conversation row (if new), both
// messages, and the user's notes and score together.
type TurnRecord struct {
	ConversationID     string
	UserID             string
	CreateConversation bool
	UserMessage        string
	AssistantMessage   string
	Notes              string
	Score              int
}
