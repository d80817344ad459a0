// Package whatsapp receives messages from a WhatsApp bridge over a JSON
// webhook and replies in the response body.
package whatsapp

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"smmbridge/internal/pipeline"
)

// InboundMessage is the bridge's delivery payload.
type InboundMessage struct {
	MessageID string `json:"message_id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	IsGroup   bool   `json:"is_group"`
	GroupID   string `json:"group_id"`
}

// OutboundReply is returned in the webhook response; the bridge delivers
// Reply back into the chat when Handled is true.
type OutboundReply struct {
	Handled bool   `json:"handled"`
	Reply   string `json:"reply,omitempty"`
}

// MessageHandler routes one normalized inbound message. Satisfied by
// pipeline.Pipeline.
type MessageHandler interface {
	Handle(ctx context.Context, in pipeline.Inbound) pipeline.Reply
}

// Handler serves the bridge webhook.
type Handler struct {
	pipe   MessageHandler
	userID uint
	logger *zap.Logger
}

func NewHandler(pipe MessageHandler, userID uint, logger *zap.Logger) *Handler {
	return &Handler{pipe: pipe, userID: userID, logger: logger}
}

// Receive handles POST /webhook/whatsapp.
func (h *Handler) Receive(c echo.Context) error {
	var msg InboundMessage
	if err := c.Bind(&msg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"error": "malformed payload"})
	}
	if strings.TrimSpace(msg.Sender) == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"error": "sender is required"})
	}

	sender := msg.Sender
	if !strings.HasPrefix(sender, "wa:") {
		sender = "wa:" + sender
	}

	reply := h.pipe.Handle(c.Request().Context(), pipeline.Inbound{
		SenderID: sender,
		Text:     msg.Text,
		IsGroup:  msg.IsGroup,
		GroupID:  msg.GroupID,
		Platform: "whatsapp",
		UserID:   h.userID,
	})

	return c.JSON(http.StatusOK, OutboundReply{Handled: reply.Handled, Reply: reply.Text})
}
