package panelapi

import "smmbridge/internal/models"

// OrderInfo is the panel's view of one order, normalized across dialects.
type OrderInfo struct {
	ExternalID       string
	Status           models.OrderStatus
	ServiceName      string
	Quantity         int
	Charge           string
	StartCount       int
	Remains          int
	CustomerUsername string

	// Provider-layer fields: only some admin APIs expose them.
	Provider        string
	ProviderOrderID string
	ProviderStatus  string
}

// ExtractOrderInfo pulls order fields out of a successful Result. Panels
// disagree on field names, so every field is tried under its known
// aliases. Returns nil when the payload carries no recognizable order.
func ExtractOrderInfo(res Result) *OrderInfo {
	data := res.Data
	if data == nil {
		return nil
	}
	if inner, ok := data["order"].(map[string]interface{}); ok {
		data = inner
	}

	externalID := firstString(data, "order", "order_id", "id")
	status := firstString(data, "status", "order_status")
	if externalID == "" && status == "" {
		return nil
	}

	return &OrderInfo{
		ExternalID:       externalID,
		Status:           NormalizeStatus(status),
		ServiceName:      firstString(data, "service_name", "service", "name"),
		Quantity:         firstInt(data, "quantity", "count"),
		Charge:           firstString(data, "charge", "price", "cost"),
		StartCount:       firstInt(data, "start_count", "startcount", "start"),
		Remains:          firstInt(data, "remains", "remain"),
		CustomerUsername: firstString(data, "user", "username", "customer", "customer_username"),
		Provider:         firstString(data, "provider", "provider_name"),
		ProviderOrderID:  firstString(data, "provider_order_id", "external_id", "provider_order"),
		ProviderStatus:   firstString(data, "provider_status"),
	}
}
