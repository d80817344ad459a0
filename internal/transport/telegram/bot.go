// Package telegram adapts Telegram chats onto the command pipeline.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"smmbridge/internal/config"
	"smmbridge/internal/pipeline"
)

const handleTimeout = 60 * time.Second

// MessageHandler routes one normalized inbound message. Satisfied by
// pipeline.Pipeline.
type MessageHandler interface {
	Handle(ctx context.Context, in pipeline.Inbound) pipeline.Reply
}

// Bot wraps the telebot instance and feeds every text message to the
// pipeline.
type Bot struct {
	tb         *tele.Bot
	webhook    *tele.Webhook
	useWebhook bool
	pipe       MessageHandler
	userID     uint
	logger     *zap.Logger
}

// New creates and configures the Telegram transport. Webhook mode is used
// when a public webhook URL is configured, long polling otherwise.
func New(cfg *config.Config, pipe MessageHandler, userID uint, logger *zap.Logger) (*Bot, error) {
	useWebhook := strings.TrimSpace(cfg.Telegram.WebhookURL) != ""

	var poller tele.Poller
	var webhook *tele.Webhook
	if useWebhook {
		webhook = &tele.Webhook{
			Listen:   "", // mounted on Echo instead of telebot's own server
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Telegram.WebhookURL},
		}
		poller = webhook
	} else {
		poller = &tele.LongPoller{Timeout: 10 * time.Second}
	}

	pref := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		OnError: func(err error, c tele.Context) {
			logger.Error("telebot error", zap.Error(err))
		},
	}

	tb, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telebot: %w", err)
	}

	b := &Bot{
		tb:         tb,
		webhook:    webhook,
		useWebhook: useWebhook,
		pipe:       pipe,
		userID:     userID,
		logger:     logger,
	}
	b.tb.Handle("/start", b.handleStart)
	b.tb.Handle(tele.OnText, b.handleText)

	return b, nil
}

// WebhookHandler returns the webhook handler for mounting on Echo.
// Returns nil when running in long-polling mode.
func (b *Bot) WebhookHandler() http.Handler {
	return b.webhook
}

// Start begins polling/webhook processing. Blocks.
func (b *Bot) Start() {
	if b.useWebhook {
		b.logger.Info("starting telegram transport", zap.String("mode", "webhook"))
	} else {
		if err := b.tb.RemoveWebhook(true); err != nil {
			b.logger.Warn("failed to remove webhook before long polling", zap.Error(err))
		}
		b.logger.Info("starting telegram transport", zap.String("mode", "polling"))
	}
	b.tb.Start()
}

// Stop gracefully shuts down the bot.
func (b *Bot) Stop() {
	b.tb.Stop()
}

func (b *Bot) handleStart(c tele.Context) error {
	return c.Send("Send me an order command, e.g.: refill 12345")
}

func (b *Bot) handleText(c tele.Context) error {
	chat := c.Chat()
	isGroup := chat.Type == tele.ChatGroup || chat.Type == tele.ChatSuperGroup

	in := pipeline.Inbound{
		SenderID: fmt.Sprintf("tg:%d", c.Sender().ID),
		Text:     c.Text(),
		IsGroup:  isGroup,
		Platform: "telegram",
		UserID:   b.userID,
	}
	if isGroup {
		in.GroupID = fmt.Sprintf("%d", chat.ID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	reply := b.pipe.Handle(ctx, in)
	if !reply.Handled || reply.Text == "" {
		return nil
	}
	return c.Reply(reply.Text)
}
