package panelapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"smmbridge/internal/models"
)

// Op is a logical panel operation. The dialect maps it onto concrete
// endpoint candidates.
type Op string

const (
	OpBalance      Op = "balance" // cheap read, used as the detection probe
	OpStatus       Op = "status"
	OpAdminOrder   Op = "admin_order" // order detail via the admin surface
	OpRefill       Op = "refill"
	OpCancel       Op = "cancel"
	OpSpeedUp      Op = "speedup"
	OpOrders       Op = "orders"    // bulk order listing
	OpProviders    Op = "providers" // provider discovery
	OpProviderData Op = "provider_data"
)

// Endpoint is one candidate way of performing an Op: an action name for
// the v1 dialect, a path template for v2. Path templates may contain
// {order} and {from}/{to} placeholders.
type Endpoint struct {
	Method string
	Path   string
}

// Result is the normalized outcome of a panel call.
type Result struct {
	Success bool
	Data    map[string]interface{}
	List    []map[string]interface{}
	Raw     string

	Kind ErrorKind
	Err  error
}

func failure(kind ErrorKind, err error) Result {
	return Result{Kind: kind, Err: err}
}

// Dialect abstracts the two incompatible panel API conventions. Both
// implementations are stateless; per-panel credentials come in via the
// Panel row on each call.
type Dialect interface {
	Name() string

	// Candidates returns the ordered endpoint fallback chain for an op.
	// An empty slice means the dialect cannot perform the op.
	Candidates(op Op) []Endpoint

	// Do executes one endpoint attempt and returns the raw response.
	Do(ctx context.Context, httpc *resty.Client, panel *models.Panel, ep Endpoint, params map[string]string) (*resty.Response, error)

	// Parse turns a response body into a normalized Result.
	Parse(status int, body []byte) Result

	// Probe reports whether the body looks like this dialect's envelope:
	// a recognizable success or structured error rather than an opaque
	// transport error or an HTML challenge page.
	Probe(status int, body []byte) bool
}

func expandPath(path string, params map[string]string) string {
	out := path
	for key, val := range params {
		out = strings.ReplaceAll(out, "{"+key+"}", val)
	}
	return out
}

// --- Tolerant JSON helpers (panels are loose about types) ---

func getString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func getInt(m map[string]interface{}, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	}
	return 0
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s := getString(m, key); s != "" {
			return s
		}
	}
	return ""
}

func firstInt(m map[string]interface{}, keys ...string) int {
	for _, key := range keys {
		if _, ok := m[key]; ok {
			return getInt(m, key)
		}
	}
	return 0
}

func looksLikeHTML(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "<")
}
