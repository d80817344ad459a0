package telegram

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"smmbridge/internal/models"
	"smmbridge/internal/pkg/telegram"
)

// OperatorForwarder relays actions to the operator chat through the raw
// Bot API. It backs both the engine's forward action mode and the
// pipeline's ticket relay.
type OperatorForwarder struct {
	api    *telegram.BotAPI
	chatID string
	logger *zap.Logger
}

func NewOperatorForwarder(api *telegram.BotAPI, chatID string, logger *zap.Logger) *OperatorForwarder {
	return &OperatorForwarder{api: api, chatID: chatID, logger: logger}
}

// Forward posts one actionable command to the operator chat.
func (f *OperatorForwarder) Forward(ctx context.Context, order *models.Order, cmd models.CommandKind, senderID string) error {
	if f.chatID == "" {
		return fmt.Errorf("no operator chat configured")
	}
	text := fmt.Sprintf(
		"⚙️ <b>%s</b> requested\nOrder: <code>%s</code>\nService: %s\nStatus: %s\nFrom: %s",
		cmd, order.ExternalID, order.ServiceName, order.Status, senderID,
	)
	if _, err := f.api.SendMessage(f.chatID, text, nil); err != nil {
		return fmt.Errorf("operator forward: %w", err)
	}
	f.logger.Info("command forwarded to operator",
		zap.String("command", string(cmd)), zap.String("order", order.ExternalID))
	return nil
}

// NotifyOperator posts free-form text (tickets, verification codes).
func (f *OperatorForwarder) NotifyOperator(ctx context.Context, text string) error {
	if f.chatID == "" {
		return fmt.Errorf("no operator chat configured")
	}
	_, err := f.api.SendMessage(f.chatID, text, nil)
	return err
}
