package panelapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smmbridge/internal/limiter"
	"smmbridge/internal/models"
	"smmbridge/internal/pkg/httpclient"
)

func newTestClient(rec Recorder) *Client {
	return NewClient(httpclient.New(), limiter.NewThrottle(limiter.NewMemory(), 1000), rec, zap.NewNop())
}

type fakeRecorder struct {
	saved []*models.Panel
}

func (f *fakeRecorder) SavePanelDetection(p *models.Panel) error {
	f.saved = append(f.saved, p)
	return nil
}

func TestRequestV1EndpointFallback(t *testing.T) {
	var actions []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		action := r.Form.Get("action")
		actions = append(actions, action)
		switch action {
		case "refill":
			_, _ = w.Write([]byte(`{"error":"Incorrect request, no data"}`))
		case "refill_order":
			_, _ = w.Write([]byte(`{"refill":"991"}`))
		default:
			_, _ = w.Write([]byte(`{"error":"no data"}`))
		}
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	c := newTestClient(rec)
	panel := &models.Panel{ID: 1, Name: "p1", BaseURL: srv.URL, Dialect: models.DialectV1, APIKey: "k"}

	res := c.Request(context.Background(), panel, OpRefill, map[string]string{"order": "12345"})
	require.True(t, res.Success, "second candidate should have been accepted")
	assert.Equal(t, []string{"refill", "refill_order"}, actions)
	assert.Equal(t, "refill_order", panel.DetectedEndpoint(string(OpRefill)))
	assert.NotEmpty(t, rec.saved, "working endpoint is persisted")
}

func TestRequestDetectedEndpointTriedFirst(t *testing.T) {
	var actions []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		actions = append(actions, r.Form.Get("action"))
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	c := newTestClient(nil)
	panel := &models.Panel{ID: 2, Name: "p2", BaseURL: srv.URL, Dialect: models.DialectV1, APIKey: "k"}
	panel.SetDetectedEndpoint(string(OpCancel), "setCancel")

	res := c.Request(context.Background(), panel, OpCancel, map[string]string{"order": "1"})
	require.True(t, res.Success)
	assert.Equal(t, []string{"setCancel"}, actions, "detected endpoint bypasses the generic list")
}

func TestRequestUnauthorizedStopsFallback(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"error":"bad_auth"}`))
	}))
	defer srv.Close()

	c := newTestClient(nil)
	panel := &models.Panel{ID: 3, Name: "p3", BaseURL: srv.URL, Dialect: models.DialectV1, APIKey: "bad"}

	res := c.Request(context.Background(), panel, OpStatus, map[string]string{"order": "1"})
	require.False(t, res.Success)
	assert.Equal(t, KindUnauthorized, res.Kind)
	assert.Equal(t, 1, calls, "auth failure must not walk the candidate chain")
}

func TestRequestNotFoundCarriesDiagnostics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Order not found"}`))
	}))
	defer srv.Close()

	c := newTestClient(nil)
	panel := &models.Panel{ID: 4, Name: "p4", BaseURL: srv.URL, Dialect: models.DialectV1, APIKey: "k"}

	res := c.Request(context.Background(), panel, OpStatus, map[string]string{"order": "1"})
	require.False(t, res.Success)
	assert.Equal(t, KindNotFound, res.Kind)
	assert.Contains(t, res.Err.Error(), srv.URL, "diagnostic names the URLs tried")
}

func TestRequestConnectionError(t *testing.T) {
	c := newTestClient(nil)
	panel := &models.Panel{ID: 5, Name: "p5", BaseURL: "http://127.0.0.1:1", Dialect: models.DialectV1, APIKey: "k"}

	res := c.Request(context.Background(), panel, OpStatus, map[string]string{"order": "1"})
	require.False(t, res.Success)
	assert.Equal(t, KindConnectionError, res.Kind)
}

func TestDialectAutoDetection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/adminapi/v1" {
			_, _ = w.Write([]byte(`{"balance":"10.00","currency":"USD"}`))
			return
		}
		// The v2 probe gets an HTML challenge page, which must be rejected.
		_, _ = w.Write([]byte(`<html>captcha</html>`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	c := newTestClient(rec)
	panel := &models.Panel{ID: 6, Name: "p6", BaseURL: srv.URL, Dialect: models.DialectAuto, APIKey: "k"}

	res := c.Request(context.Background(), panel, OpBalance, nil)
	require.True(t, res.Success)
	assert.Equal(t, models.DialectV1, panel.Dialect)
	assert.NotEmpty(t, rec.saved)
}

func TestDialectAutoDetectionV2(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/adminapi/v1":
			_, _ = w.Write([]byte(`<html>not here</html>`))
		case "/adminapi/v2/balance":
			require.Equal(t, "k2", r.Header.Get("X-Api-Key"))
			_, _ = w.Write([]byte(`{"data":{"balance":"3.14"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(nil)
	panel := &models.Panel{ID: 7, Name: "p7", BaseURL: srv.URL, Dialect: models.DialectAuto, APIKey: "k2"}

	res := c.Request(context.Background(), panel, OpBalance, nil)
	require.True(t, res.Success)
	assert.Equal(t, "3.14", getString(res.Data, "balance"))
}

func TestOrderStatusAdminFirstThenGeneric(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/adminapi/v2/orders/42":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
		case "/api/v2/order/42":
			_, _ = w.Write([]byte(`{"data":{"order":"42","status":"completed"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
		}
	}))
	defer srv.Close()

	c := newTestClient(nil)
	panel := &models.Panel{ID: 8, Name: "p8", BaseURL: srv.URL, Dialect: models.DialectV2, APIKey: "k"}

	res := c.OrderStatus(context.Background(), panel, "42")
	require.True(t, res.Success)
	info := ExtractOrderInfo(res)
	require.NotNil(t, info)
	assert.Equal(t, models.OrderCompleted, info.Status)
}

func TestProviderDiscoveryEmptyIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"no data"}`))
	}))
	defer srv.Close()

	c := newTestClient(nil)
	panel := &models.Panel{ID: 9, Name: "p9", BaseURL: srv.URL, Dialect: models.DialectV1, APIKey: "k"}

	providers, res := c.Providers(context.Background(), panel)
	assert.True(t, res.Success, "no visible providers is a legitimate terminal state")
	assert.Empty(t, providers)
}

func TestProviderDiscoveryFromOrderListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("action") == "orders" {
			_, _ = w.Write([]byte(`{"status":"success","orders":[{"order":"1","provider":"alpha.example"},{"order":"2","provider":"beta.example"},{"order":"3","provider":"alpha.example"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"error":"no data"}`))
	}))
	defer srv.Close()

	c := newTestClient(nil)
	panel := &models.Panel{ID: 10, Name: "p10", BaseURL: srv.URL, Dialect: models.DialectV1, APIKey: "k"}

	providers, res := c.Providers(context.Background(), panel)
	require.True(t, res.Success)
	require.Len(t, providers, 2, "providers deduplicated")
	assert.Equal(t, "alpha.example", providers[0].Name)
}
