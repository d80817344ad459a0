package engine

import (
	"time"

	"go.uber.org/zap"

	"smmbridge/internal/messages"
	"smmbridge/internal/models"
)

// checkGuarantee verifies the order's service still carries a refill
// guarantee. Orders completed longer ago than the service's refill window
// are out of warranty.
func (e *Engine) checkGuarantee(order *models.Order) (string, bool) {
	svc, err := e.services.MatchByServiceName(order.UserID, order.ServiceName)
	if err != nil {
		e.logger.Error("guarantee lookup failed", zap.Error(err), zap.Uint("order_id", order.ID))
		return messages.InternalError, false
	}
	if svc == nil || !svc.Guarantee {
		if svc != nil && svc.DenyMessage != "" {
			return svc.DenyMessage, false
		}
		return messages.RefillNoGuarantee, false
	}
	if svc.RefillDays > 0 && order.CompletedAt != nil {
		window := time.Duration(svc.RefillDays) * 24 * time.Hour
		if time.Since(*order.CompletedAt) > window {
			return messages.RefillExpired, false
		}
	}
	return "", true
}
