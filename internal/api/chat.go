package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/repchat/internal/engine"
	"github.com/repchat/internal/logging"
	"github.com/repchat/internal/store"
)

// ChatRequest is the /api/chat input shape.
type ChatRequest struct {
	Message        string `json:"message"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the /api/chat success shape.
type ChatResponse struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
	UpdatedScore   int    `json:"updated_score"`
	ScoreChange    int    `json:"score_change"`
	UserNotes      string `json:"user_notes"`
}

// ConversationResponse is the /api/conversations/:id shape.
type ConversationResponse struct {
	ConversationID string          `json:"conversation_id"`
	UserID         string          `json:"user_id"`
	Messages       []store.Message `json:"messages"`
}

// postChat relays one user message through the engine.
func (s *Server) postChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	requestID := uuid.NewString()
	log := logging.Component("api").With().Str("request_id", requestID).Logger()
	log.Info().Str("user_id", req.UserID).Str("conversation_id", req.ConversationID).Msg("chat request")

	result := s.engine.HandleTurn(c.Request().Context(), engine.TurnRequest{
		UserID:         req.UserID,
		Message:        req.Message,
		ConversationID: req.ConversationID,
	})

	if result.Err != nil {
		log.Warn().Str("kind", string(result.Err.Kind)).Err(result.Err).Msg("turn failed")
		return c.JSON(statusFor(result.Err.Kind), errorBody(result))
	}

	return c.JSON(http.StatusOK, ChatResponse{
		Message:        result.Message,
		ConversationID: result.ConversationID,
		UpdatedScore:   result.UpdatedScore,
		ScoreChange:    result.ScoreChange,
		UserNotes:      result.UserNotes,
	})
}

// getConversation returns a conversation with its ordered messages.
func (s *Server) getConversation(c echo.Context) error {
	id := c.Param("id")

	conv, err := s.store.GetConversation(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to load conversation",
		})
	}
	if conv == nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "conversation not found",
		})
	}

	messages, err := s.store.GetMessages(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to load messages",
		})
	}

	return c.JSON(http.StatusOK, ConversationResponse{
		ConversationID: conv.ID,
		UserID:         conv.UserID,
		Messages:       messages,
	})
}

// statusFor maps a turn error kind to an HTTP status. Downgrading failures
// into 200-shaped bodies is exactly what this layer exists to avoid.
func statusFor(kind engine.ErrKind) int {
	switch kind {
	case engine.KindValidation:
		return http.StatusBadRequest
	case engine.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// errorBody shapes a failed turn. Validation failures carry an error field;
// engine failures keep the message field so clients always have text to
// show, alongside an explicit error marker.
func errorBody(result engine.TurnResult) map[string]string {
	body := map[string]string{
		"error": result.Err.Detail,
	}
	if result.Message != "" {
		body["message"] = result.Message
	}
	return body
}
