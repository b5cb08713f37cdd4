package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store used by tests and local development.
// It mirrors the transactional behavior of PostgresStore at call
// granularity: CommitTurn either applies everything or nothing.
type MemStore struct {
	mu            sync.Mutex
	users         map[string]*User
	conversations map[string]*Conversation
	messages      map[string][]Message
	nextMessageID int64
	clock         time.Time
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		users:         make(map[string]*User),
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]Message),
		nextMessageID: 1,
		clock:         time.Now().UTC(),
	}
}

// tick returns a strictly increasing timestamp.
func (s *MemStore) tick() time.Time {
	s.clock = s.clock.Add(time.Microsecond)
	return s.clock
}

func (s *MemStore) GetOrCreateUser(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}

	u := &User{ID: id, Score: 0, CreatedAt: s.tick()}
	s.users[id] = u
	copied := *u
	return &copied, nil
}

func (s *MemStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (s *MemStore) CreateConversation(ctx context.Context, id, ownerID string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; ok {
		return nil, fmt.Errorf("conversation %s already exists", id)
	}
	c := &Conversation{ID: id, UserID: ownerID, CreatedAt: s.tick()}
	s.conversations[id] = c
	copied := *c
	return &copied, nil
}

func (s *MemStore) GetMessages(ctx context.Context, conversationID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[conversationID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemStore) UpdateUser(ctx context.Context, id, notes string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %s not found", id)
	}
	u.Notes = notes
	u.Score = score
	return nil
}

func (s *MemStore) CommitTurn(ctx context.Context, turn TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[turn.UserID]
	if !ok {
		return fmt.Errorf("user %s not found", turn.UserID)
	}

	if turn.CreateConversation {
		if _, exists := s.conversations[turn.ConversationID]; !exists {
			s.conversations[turn.ConversationID] = &Conversation{
				ID:        turn.ConversationID,
				UserID:    turn.UserID,
				CreatedAt: s.tick(),
			}
		}
	} else if _, exists := s.conversations[turn.ConversationID]; !exists {
		return fmt.Errorf("conversation %s not found", turn.ConversationID)
	}

	for _, p := range []struct {
		role    Role
		content string
	}{
		{RoleUser, turn.UserMessage},
		{RoleAssistant, turn.AssistantMessage},
	} {
		s.messages[turn.ConversationID] = append(s.messages[turn.ConversationID], Message{
			ID:             s.nextMessageID,
			ConversationID: turn.ConversationID,
			Role:           p.role,
			Content:        p.content,
			CreatedAt:      s.tick(),
		})
		s.nextMessageID++
	}

	u.Notes = turn.Notes
	u.Score = turn.Score
	return nil
}
