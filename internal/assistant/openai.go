package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIService implements Service against the OpenAI Assistants API.
type OpenAIService struct {
	client      *openai.Client
	assistantID string
}

// NewOpenAIService builds a client for the given API key and assistant.
// baseURL overrides the API endpoint when non-empty (proxies, test servers).
func NewOpenAIService(apiKey, assistantID, baseURL string) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIService{
		client:      openai.NewClientWithConfig(cfg),
		assistantID: assistantID,
	}
}

func (s *OpenAIService) CreateThread(ctx context.Context) (Thread, error) {
	thread, err := s.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return Thread{}, classify("create thread", err)
	}
	return Thread{ID: thread.ID}, nil
}

func (s *OpenAIService) RetrieveThread(ctx context.Context, id string) (Thread, error) {
	thread, err := s.client.RetrieveThread(ctx, id)
	if err != nil {
		return Thread{}, classify("retrieve thread", err)
	}
	return Thread{ID: thread.ID}, nil
}

func (s *OpenAIService) CreateMessage(ctx context.Context, threadID, role, content string) error {
	_, err := s.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    role,
		Content: content,
	})
	if err != nil {
		return classify("create message", err)
	}
	return nil
}

func (s *OpenAIService) CreateRun(ctx context.Context, threadID, instructions string) (Run, error) {
	run, err := s.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID:  s.assistantID,
		Instructions: instructions,
	})
	if err != nil {
		return Run{}, classify("create run", err)
	}
	return fromRun(run), nil
}

func (s *OpenAIService) RetrieveRun(ctx context.Context, threadID, runID string) (Run, error) {
	run, err := s.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return Run{}, classify("retrieve run", err)
	}
	return fromRun(run), nil
}

// ListMessages returns the thread's messages newest-first, which is the
// OpenAI default ordering.
func (s *OpenAIService) ListMessages(ctx context.Context, threadID string) ([]ThreadMessage, error) {
	list, err := s.client.ListMessage(ctx, threadID, nil, nil, nil, nil, nil)
	if err != nil {
		return nil, classify("list messages", err)
	}

	out := make([]ThreadMessage, 0, len(list.Messages))
	for _, msg := range list.Messages {
		out = append(out, ThreadMessage{
			Role: msg.Role,
			Text: firstText(msg),
		})
	}
	return out, nil
}

// firstText extracts the first text part of a message. Non-text parts
// (images, files) are skipped.
func firstText(msg openai.Message) string {
	for _, part := range msg.Content {
		if part.Text != nil {
			return part.Text.Value
		}
	}
	return ""
}

func fromRun(run openai.Run) Run {
	r := Run{ID: run.ID, Status: mapStatus(run.Status)}
	if run.LastError != nil {
		r.LastError = run.LastError.Message
	}
	return r
}

// mapStatus folds the provider's run states onto the engine's four.
// Cancellation and expiry are failures from the engine's point of view.
func mapStatus(s openai.RunStatus) RunStatus {
	switch s {
	case openai.RunStatusQueued:
		return StatusQueued
	case openai.RunStatusInProgress, openai.RunStatusRequiresAction, openai.RunStatusCancelling:
		return StatusInProgress
	case openai.RunStatusCompleted:
		return StatusCompleted
	default:
		return StatusFailed
	}
}

// classify maps provider errors onto the package sentinels so callers can
// use IsConflict / IsNotFound without importing the SDK.
func classify(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusNotFound:
			return fmt.Errorf("%s: %w: %s", op, ErrNotFound, apiErr.Message)
		case apiErr.HTTPStatusCode == http.StatusConflict,
			apiErr.HTTPStatusCode == http.StatusBadRequest && isRunActiveMessage(apiErr.Message):
			return fmt.Errorf("%s: %w: %s", op, ErrConflict, apiErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isRunActiveMessage matches the service's busy-thread rejection, which
// arrives as a plain 400 with a recognizable message.
func isRunActiveMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "while a run") && strings.Contains(lower, "is active")
}
