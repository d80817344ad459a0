package panelapi

import (
	"strings"

	"smmbridge/internal/models"
)

// Upstream panels disagree on status vocabulary (case, synonyms like
// "canceled"/"cancelled"/"fail"). The lookup is fixed; anything
// unrecognized passes through upper-cased so downstream logic degrades
// gracefully instead of crashing on a new word.
var statusTable = map[string]models.OrderStatus{
	"pending":     models.OrderPending,
	"queued":      models.OrderPending,
	"processing":  models.OrderProcessing,
	"inprogress":  models.OrderInProgress,
	"in progress": models.OrderInProgress,
	"in_progress": models.OrderInProgress,
	"active":      models.OrderInProgress,
	"partial":     models.OrderPartial,
	"completed":   models.OrderCompleted,
	"complete":    models.OrderCompleted,
	"done":        models.OrderCompleted,
	"success":     models.OrderCompleted,
	"canceled":    models.OrderCancelled,
	"cancelled":   models.OrderCancelled,
	"cancel":      models.OrderCancelled,
	"fail":        models.OrderCancelled,
	"failed":      models.OrderCancelled,
	"refunded":    models.OrderRefunded,
	"refund":      models.OrderRefunded,
}

// NormalizeStatus maps an upstream status string onto the canonical enum.
func NormalizeStatus(raw string) models.OrderStatus {
	key := strings.ToLower(strings.TrimSpace(raw))
	if status, ok := statusTable[key]; ok {
		return status
	}
	return models.OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
}
