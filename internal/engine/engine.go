// Package engine is the conversation orchestration core: it composes the
// assistant's context from user state and history, drives the external
// thread/run lifecycle with bounded retries, parses the structured reply,
// applies the clamped score delta, and commits the whole turn atomically.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/repchat/internal/assistant"
	"github.com/repchat/internal/store"
)

// defaultInstructions steers the assistant toward the structured payload
// the parser expects. A model that ignores it only degrades the turn.
const defaultInstructions = `Respond with a JSON object containing exactly these keys:
"reply" (your message to the user), "updated_notes" (revised notes about
the user, or an empty string to keep them), and "score_change" (an integer
between -100 and 100 adjusting the user's reputation).`

// Config carries the engine's timing and retry knobs.
type Config struct {
	PollInterval  time.Duration
	PollDeadline  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	Instructions  string
}

// DefaultConfig matches the service's production defaults: 1s polling,
// 120s per-attempt deadline, 3 attempts with a fixed 2s delay. New falls
// back to these for any knob left at its zero value.
func DefaultConfig() Config {
	return Config{
		PollInterval:  time.Second,
		PollDeadline:  120 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    2 * time.Second,
	}
}

// SleepFunc waits for d or until ctx is done. Injected so tests advance
// through retry and poll delays without real time passing.
type SleepFunc func(ctx context.Context, d time.Duration) error

func realSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Engine orchestrates one conversation turn end to end. All collaborators
// are explicit; there is no ambient client or session state.
type Engine struct {
	svc   assistant.Service
	store store.Store
	cfg   Config
	sleep SleepFunc
	log   zerolog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSleep replaces the real timer, for deterministic tests.
func WithSleep(sleep SleepFunc) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// New builds an Engine over the assistant service and store. Unset config
// knobs fall back to DefaultConfig.
func New(svc assistant.Service, st store.Store, cfg Config, log zerolog.Logger, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.PollDeadline <= 0 {
		cfg.PollDeadline = def.PollDeadline
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = def.RetryAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.Instructions == "" {
		cfg.Instructions = defaultInstructions
	}
	e := &Engine{
		svc:   svc,
		store: st,
		cfg:   cfg,
		sleep: realSleep,
		log:   log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TurnRequest is one user message to relay.
type TurnRequest struct {
	UserID         string
	Message        string
	ConversationID string // empty starts a new conversation
}

// TurnResult is the tagged outcome of a turn. Err is nil on success,
// including degraded parsing; the HTTP layer maps Err.Kind to a status
// code.
type TurnResult struct {
	Message        string
	ConversationID string
	UpdatedScore   int
	ScoreChange    int
	UserNotes      string
	Degraded       bool
	Err            *TurnError
}

// HandleTurn runs the full pipeline for one message. Each stage's failure
// short-circuits with a tagged error; after the assistant's reply is
// obtained, parse failures degrade instead of failing. The persistence
// commit at the end is the single atomic boundary: a failure before it
// leaves no partial record.
func (e *Engine) HandleTurn(ctx context.Context, req TurnRequest) TurnResult {
	if req.UserID == "" {
		return TurnResult{Err: validationError("user_id is required")}
	}
	if req.Message == "" {
		return TurnResult{Err: validationError("message is required")}
	}

	user, err := e.store.GetOrCreateUser(ctx, req.UserID)
	if err != nil {
		return TurnResult{Err: fatalError("failed to load user", err)}
	}

	var history []store.Message
	if req.ConversationID != "" {
		history, err = e.store.GetMessages(ctx, req.ConversationID)
		if err != nil {
			return TurnResult{Err: fatalError("failed to load history", err)}
		}
	}

	thread, isNew, terr := e.resolveThread(ctx, req.ConversationID)
	if terr != nil {
		return TurnResult{Err: terr}
	}
	conversationID := req.ConversationID
	if isNew {
		// The new thread handle doubles as the conversation id from here on.
		conversationID = thread.ID
	}

	composed := ComposeMessage(user, history, req.Message)
	if err := e.submitMessage(ctx, thread.ID, composed); err != nil {
		if assistant.IsConflict(err) {
			return TurnResult{ConversationID: conversationID,
				Err: conflictError("thread busy, retries exhausted", err)}
		}
		return TurnResult{ConversationID: conversationID,
			Err: fatalError("failed to attach message, retries exhausted", err)}
	}

	raw, ok := e.runToCompletion(ctx, thread.ID, e.cfg.Instructions)
	if !ok {
		return TurnResult{
			Message:        raw,
			ConversationID: conversationID,
			UpdatedScore:   user.Score,
			UserNotes:      user.Notes,
			Err:            fatalError("assistant run retries exhausted", nil),
		}
	}

	parsed := ParseReply(raw)
	if parsed.Degraded {
		e.log.Warn().Str("conversation_id", conversationID).Msg("unstructured assistant reply, passing through raw text")
	} else if parsed.Repaired {
		e.log.Info().Str("conversation_id", conversationID).Msg("assistant reply required JSON repair")
	}

	newScore := ApplyDelta(user.Score, parsed.ScoreChange)
	notes := user.Notes
	if parsed.UpdatedNotes != "" {
		notes = parsed.UpdatedNotes
	}

	if err := e.store.CommitTurn(ctx, store.TurnRecord{
		ConversationID:     conversationID,
		UserID:             user.ID,
		CreateConversation: isNew,
		UserMessage:        req.Message,
		AssistantMessage:   parsed.Reply,
		Notes:              notes,
		Score:              newScore,
	}); err != nil {
		// The caller already has the reply; losing it from durable history
		// here is the service's accepted consistency gap.
		return TurnResult{ConversationID: conversationID,
			Err: fatalError("failed to commit turn", err)}
	}

	e.log.Info().
		Str("user_id", user.ID).
		Str("conversation_id", conversationID).
		Int("score_change", parsed.ScoreChange).
		Int("updated_score", newScore).
		Bool("degraded", parsed.Degraded).
		Msg("turn completed")

	return TurnResult{
		Message:        parsed.Reply,
		ConversationID: conversationID,
		UpdatedScore:   newScore,
		ScoreChange:    parsed.ScoreChange,
		UserNotes:      notes,
		Degraded:       parsed.Degraded,
	}
}
