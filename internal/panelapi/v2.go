package panelapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	"smmbridge/internal/models"
)

// v2Dialect speaks the RESTful convention: resource-path endpoints with
// the credential in an X-Api-Key header. Responses are sometimes
// double-wrapped in an outer {data: {...}} envelope that must be
// unwrapped before use.
type v2Dialect struct{}

func (v2Dialect) Name() string { return models.DialectV2 }

func (v2Dialect) Candidates(op Op) []Endpoint {
	switch op {
	case OpBalance:
		return []Endpoint{{Method: "GET", Path: "/adminapi/v2/balance"}}
	case OpStatus:
		return []Endpoint{
			{Method: "GET", Path: "/adminapi/v2/orders/{order}"},
			{Method: "GET", Path: "/api/v2/order/{order}"},
		}
	case OpAdminOrder:
		return []Endpoint{
			{Method: "GET", Path: "/adminapi/v2/orders/{order}"},
		}
	case OpRefill:
		return []Endpoint{
			{Method: "POST", Path: "/adminapi/v2/orders/{order}/refill"},
			{Method: "POST", Path: "/api/v2/order/{order}/refill"},
		}
	case OpCancel:
		return []Endpoint{
			{Method: "POST", Path: "/adminapi/v2/orders/{order}/cancel"},
			{Method: "POST", Path: "/api/v2/order/{order}/cancel"},
		}
	case OpSpeedUp:
		return []Endpoint{
			{Method: "POST", Path: "/adminapi/v2/orders/{order}/speedup"},
		}
	case OpOrders:
		return []Endpoint{
			{Method: "GET", Path: "/adminapi/v2/orders"},
		}
	}
	// Provider discovery is a v1-only surface.
	return nil
}

func (v2Dialect) Do(ctx context.Context, httpc *resty.Client, panel *models.Panel, ep Endpoint, params map[string]string) (*resty.Response, error) {
	req := httpc.R().
		SetContext(ctx).
		SetHeader("X-Api-Key", panel.APIKey).
		SetHeader("Accept", "application/json")

	url := panel.BaseURL + expandPath(ep.Path, params)
	if ep.Method == "GET" {
		return req.Get(url)
	}
	return req.SetHeader("Content-Type", "application/json").SetBody(params).Post(url)
}

func (v2Dialect) Parse(status int, body []byte) Result {
	if kind := classifyHTTP(status); kind != KindNone {
		msg := extractErrorMessage(body)
		if msg != "" && kind == KindAPIError && isNotFoundMessage(msg) {
			kind = KindNotFound
		}
		return failure(kind, fmt.Errorf("panel returned HTTP %d: %s", status, msg))
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return failure(KindAPIError, fmt.Errorf("unparseable panel response: %w", err))
	}

	raw = unwrapData(raw)

	if errMsg := firstString(raw, "error", "message_error"); errMsg != "" {
		if isNotFoundMessage(errMsg) {
			return failure(KindNotFound, fmt.Errorf("panel: %s", errMsg))
		}
		return failure(KindAPIError, fmt.Errorf("panel error: %s", errMsg))
	}

	res := Result{Success: true, Data: raw, Raw: string(body)}
	if inner, ok := raw["list"].([]interface{}); ok {
		res.List = toMapList(inner)
	}
	return res
}

func (v2Dialect) Probe(status int, body []byte) bool {
	if looksLikeHTML(body) {
		return false
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return false
	}
	inner := unwrapData(raw)
	if _, ok := inner["balance"]; ok {
		return true
	}
	if status == 401 || status == 403 {
		// A structured auth rejection still proves the dialect.
		return firstString(raw, "error", "message") != ""
	}
	return false
}

// unwrapData removes the optional outer {data: {...}} envelope. Nested
// envelopes are unwrapped repeatedly; panels have been seen double-wrapping.
func unwrapData(raw map[string]interface{}) map[string]interface{} {
	for i := 0; i < 3; i++ {
		inner, ok := raw["data"].(map[string]interface{})
		if !ok {
			return raw
		}
		raw = inner
	}
	return raw
}

func extractErrorMessage(body []byte) string {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return ""
	}
	return firstString(unwrapData(raw), "error", "message", "detail")
}
