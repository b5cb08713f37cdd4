package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database and applies the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			notes TEXT NOT NULL DEFAULT '',
			preferences TEXT NOT NULL DEFAULT '',
			score INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(user_id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(conversation_id),
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, created_at, id)`,
	}

	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// GetOrCreateUser returns the user, creating it on first reference.
func (s *PostgresStore) GetOrCreateUser(ctx context.Context, id string) (*User, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user %s: %w", id, err)
	}

	user := &User{}
	err = s.pool.QueryRow(ctx, `
		SELECT user_id, notes, preferences, score, created_at
		FROM users WHERE user_id = $1
	`, id).Scan(&user.ID, &user.Notes, &user.Preferences, &user.Score, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", id, err)
	}

	return user, nil
}

// GetConversation returns the conversation, or nil if it does not exist.
func (s *PostgresStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	conv := &Conversation{}
	err := s.pool.QueryRow(ctx, `
		SELECT conversation_id, user_id, created_at
		FROM conversations WHERE conversation_id = $1
	`, id).Scan(&conv.ID, &conv.UserID, &conv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}
	return conv, nil
}

// CreateConversation creates a conversation row owned by ownerID.
func (s *PostgresStore) CreateConversation(ctx context.Context, id, ownerID string) (*Conversation, error) {
	conv := &Conversation{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (conversation_id, user_id)
		VALUES ($1, $2)
		RETURNING conversation_id, user_id, created_at
	`, id, ownerID).Scan(&conv.ID, &conv.UserID, &conv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation %s: %w", id, err)
	}
	return conv, nil
}

// GetMessages returns the conversation's messages oldest-first.
func (s *PostgresStore) GetMessages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	return messages, nil
}

// UpdateUser replaces the user's notes and score.
func (s *PostgresStore) UpdateUser(ctx context.Context, id, notes string, score int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET notes = $2, score = $3 WHERE user_id = $1
	`, id, notes, score)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", id)
	}
	return nil
}

// CommitTurn persists one completed turn in a single transaction.
func (s *PostgresStore) CommitTurn(ctx context.Context, turn TurnRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if turn.CreateConversation {
		_, err = tx.Exec(ctx, `
			INSERT INTO conversations (conversation_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (conversation_id) DO NOTHING
		`, turn.ConversationID, turn.UserID)
		if err != nil {
			return fmt.Errorf("failed to create conversation %s: %w", turn.ConversationID, err)
		}
	}

	// Explicit timestamps: Postgres now() is fixed per transaction, which
	// would give both halves of the turn the same value.
	base := time.Now().UTC()
	pairs := []struct {
		role    Role
		content string
		at      time.Time
	}{
		{RoleUser, turn.UserMessage, base},
		{RoleAssistant, turn.AssistantMessage, base.Add(time.Microsecond)},
	}

	for _, p := range pairs {
		_, err = tx.Exec(ctx, `
			INSERT INTO messages (conversation_id, role, content, created_at)
			VALUES ($1, $2, $3, $4)
		`, turn.ConversationID, p.role, p.content, p.at)
		if err != nil {
			return fmt.Errorf("failed to append %s message: %w", p.role, err)
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET notes = $2, score = $3 WHERE user_id = $1
	`, turn.UserID, turn.Notes, turn.Score)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", turn.UserID, err)
	}

	return tx.Commit(ctx)
}
