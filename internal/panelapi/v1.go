package panelapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	"smmbridge/internal/models"
)

// v1Dialect speaks the action-based convention: every call is a POST to
// the panel root with key and action carried as form fields, responses are
// flat JSON with {status, error} shapes and "bad_auth" style error tokens.
type v1Dialect struct{}

func (v1Dialect) Name() string { return models.DialectV1 }

func (v1Dialect) Candidates(op Op) []Endpoint {
	switch op {
	case OpBalance:
		return []Endpoint{{Method: "POST", Path: "balance"}}
	case OpStatus:
		return []Endpoint{
			{Method: "POST", Path: "status"},
			{Method: "POST", Path: "orderstatus"},
			{Method: "POST", Path: "order_status"},
		}
	case OpAdminOrder:
		return []Endpoint{
			{Method: "POST", Path: "order"},
			{Method: "POST", Path: "getOrder"},
		}
	case OpRefill:
		return []Endpoint{
			{Method: "POST", Path: "refill"},
			{Method: "POST", Path: "refill_order"},
			{Method: "POST", Path: "createRefill"},
		}
	case OpCancel:
		return []Endpoint{
			{Method: "POST", Path: "cancel"},
			{Method: "POST", Path: "cancel_order"},
			{Method: "POST", Path: "setCancel"},
		}
	case OpSpeedUp:
		return []Endpoint{
			{Method: "POST", Path: "speedup"},
			{Method: "POST", Path: "speed_up"},
		}
	case OpOrders:
		return []Endpoint{
			{Method: "POST", Path: "orders"},
			{Method: "POST", Path: "getOrders"},
		}
	case OpProviders:
		return []Endpoint{
			{Method: "POST", Path: "providers"},
		}
	case OpProviderData:
		return []Endpoint{
			{Method: "POST", Path: "getProviderData"},
		}
	}
	return nil
}

func (v1Dialect) Do(ctx context.Context, httpc *resty.Client, panel *models.Panel, ep Endpoint, params map[string]string) (*resty.Response, error) {
	form := map[string]string{
		"key":    panel.APIKey,
		"action": ep.Path,
	}
	for k, v := range params {
		form[k] = v
	}
	return httpc.R().
		SetContext(ctx).
		SetFormData(form).
		Post(panel.BaseURL + "/adminapi/v1")
}

func (v1Dialect) Parse(status int, body []byte) Result {
	if kind := classifyHTTP(status); kind != KindNone {
		return failure(kind, fmt.Errorf("panel returned HTTP %d", status))
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		// Some panels answer bulk listings with a bare array.
		var list []map[string]interface{}
		if err2 := json.Unmarshal(body, &list); err2 == nil {
			return Result{Success: true, List: list, Raw: string(body)}
		}
		return failure(KindAPIError, fmt.Errorf("unparseable panel response: %w", err))
	}

	if errMsg := getString(raw, "error"); errMsg != "" {
		switch {
		case isAuthMessage(errMsg):
			return failure(KindUnauthorized, fmt.Errorf("panel auth rejected: %s", errMsg))
		case isNotFoundMessage(errMsg):
			return failure(KindNotFound, fmt.Errorf("panel: %s", errMsg))
		default:
			return failure(KindAPIError, fmt.Errorf("panel error: %s", errMsg))
		}
	}

	if st := getString(raw, "status"); st == "fail" || st == "error" {
		msg := firstString(raw, "message", "msg")
		if isNotFoundMessage(msg) {
			return failure(KindNotFound, fmt.Errorf("panel: %s", msg))
		}
		return failure(KindAPIError, fmt.Errorf("panel rejected request: %s", msg))
	}

	res := Result{Success: true, Data: raw, Raw: string(body)}
	if inner, ok := raw["orders"].([]interface{}); ok {
		res.List = toMapList(inner)
	}
	return res
}

func (d v1Dialect) Probe(status int, body []byte) bool {
	if looksLikeHTML(body) {
		return false
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return false
	}
	// A recognizable envelope is either a success shape or a structured
	// error such as bad_auth; both prove the dialect.
	if _, ok := raw["balance"]; ok {
		return true
	}
	if errMsg := getString(raw, "error"); errMsg != "" {
		return true
	}
	return getString(raw, "status") != ""
}

func toMapList(items []interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}
