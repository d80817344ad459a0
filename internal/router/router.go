package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"smmbridge/internal/middleware"
	"smmbridge/internal/transport/whatsapp"
)

// Setup configures all routes for the Echo server.
func Setup(
	e *echo.Echo,
	whatsappHandler *whatsapp.Handler,
	webhookSecret string,
	deduper middleware.MessageDeduper,
	telegramWebhook http.Handler,
	logger *zap.Logger,
) {
	e.Use(echomw.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok"})
	})

	// WhatsApp bridge webhook (secret + deduplication).
	waGroup := e.Group("/webhook/whatsapp")
	waGroup.Use(middleware.WebhookSecret(webhookSecret))
	waGroup.Use(middleware.WebhookDedup(deduper))
	waGroup.POST("", whatsappHandler.Receive)

	// Telegram webhook (deduplication only; telebot validates the rest).
	if telegramWebhook != nil {
		tgGroup := e.Group("/webhook/telegram")
		tgGroup.Use(middleware.WebhookDedup(deduper))
		tgGroup.POST("", echo.WrapHandler(telegramWebhook))
	} else {
		logger.Info("telegram webhook route disabled (long polling)")
	}
}
