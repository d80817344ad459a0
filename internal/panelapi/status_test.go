package panelapi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"smmbridge/internal/models"
)

func TestNormalizeStatusSynonyms(t *testing.T) {
	assert.Equal(t, models.OrderCancelled, NormalizeStatus("Cancelled"))
	assert.Equal(t, models.OrderCancelled, NormalizeStatus("canceled"))
	assert.Equal(t, models.OrderCancelled, NormalizeStatus("FAIL"))
	assert.Equal(t, NormalizeStatus("Cancelled"), NormalizeStatus("canceled"))
}

func TestNormalizeStatusCanonical(t *testing.T) {
	cases := map[string]models.OrderStatus{
		"pending":     models.OrderPending,
		"Processing":  models.OrderProcessing,
		"In progress": models.OrderInProgress,
		"in_progress": models.OrderInProgress,
		"PARTIAL":     models.OrderPartial,
		"completed":   models.OrderCompleted,
		"Complete":    models.OrderCompleted,
		"refunded":    models.OrderRefunded,
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeStatus(raw), "raw %q", raw)
	}
}

func TestNormalizeStatusUnknownPassesThroughUppercased(t *testing.T) {
	assert.Equal(t, models.OrderStatus("AWAITING"), NormalizeStatus("awaiting"))
	assert.Equal(t, models.OrderStatus("AWAITING"), NormalizeStatus(" Awaiting "))
}
