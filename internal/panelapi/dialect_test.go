package panelapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smmbridge/internal/models"
)

func TestV1ParseSuccessEnvelope(t *testing.T) {
	res := (v1Dialect{}).Parse(200, []byte(`{"status":"Completed","charge":"0.51","start_count":100,"remains":0}`))
	require.True(t, res.Success)
	assert.Equal(t, "Completed", getString(res.Data, "status"))
}

func TestV1ParseAuthError(t *testing.T) {
	res := (v1Dialect{}).Parse(200, []byte(`{"error":"bad_auth"}`))
	require.False(t, res.Success)
	assert.Equal(t, KindUnauthorized, res.Kind)
}

func TestV1ParseNotFoundError(t *testing.T) {
	res := (v1Dialect{}).Parse(200, []byte(`{"error":"Incorrect order ID"}`))
	require.False(t, res.Success)
	assert.Equal(t, KindNotFound, res.Kind)
}

func TestV1ParseBareArray(t *testing.T) {
	res := (v1Dialect{}).Parse(200, []byte(`[{"order":"1","provider":"smmkings.com"}]`))
	require.True(t, res.Success)
	require.Len(t, res.List, 1)
	assert.Equal(t, "smmkings.com", getString(res.List[0], "provider"))
}

func TestV1ParseHTTPErrorKinds(t *testing.T) {
	assert.Equal(t, KindUnauthorized, (v1Dialect{}).Parse(401, nil).Kind)
	assert.Equal(t, KindRateLimited, (v1Dialect{}).Parse(429, nil).Kind)
	assert.Equal(t, KindNotFound, (v1Dialect{}).Parse(404, nil).Kind)
}

func TestV2ParseUnwrapsDataEnvelope(t *testing.T) {
	res := (v2Dialect{}).Parse(200, []byte(`{"data":{"order":"99","status":"partial"}}`))
	require.True(t, res.Success)
	assert.Equal(t, "99", getString(res.Data, "order"))
}

func TestV2ParseUnwrapsDoubleEnvelope(t *testing.T) {
	res := (v2Dialect{}).Parse(200, []byte(`{"data":{"data":{"order":"99","status":"partial"}}}`))
	require.True(t, res.Success)
	assert.Equal(t, "99", getString(res.Data, "order"))
}

func TestV2ParseErrorField(t *testing.T) {
	res := (v2Dialect{}).Parse(200, []byte(`{"error":"Order not found"}`))
	require.False(t, res.Success)
	assert.Equal(t, KindNotFound, res.Kind)
}

func TestProbeRejectsHTMLChallenge(t *testing.T) {
	html := []byte("<html><body>Checking your browser</body></html>")
	assert.False(t, (v1Dialect{}).Probe(200, html))
	assert.False(t, (v2Dialect{}).Probe(200, html))
}

func TestV1ProbeAcceptsStructuredError(t *testing.T) {
	assert.True(t, (v1Dialect{}).Probe(200, []byte(`{"error":"bad_auth"}`)))
	assert.True(t, (v1Dialect{}).Probe(200, []byte(`{"balance":"12.30","currency":"USD"}`)))
}

func TestV2ProbeAcceptsBalance(t *testing.T) {
	assert.True(t, (v2Dialect{}).Probe(200, []byte(`{"data":{"balance":"5.00"}}`)))
	assert.False(t, (v2Dialect{}).Probe(200, []byte(`{"whatever":1}`)))
}

func TestExtractOrderInfoFieldAliases(t *testing.T) {
	res := Result{Data: map[string]interface{}{
		"order":       "12345",
		"status":      "In progress",
		"service":     "Instagram Followers",
		"quantity":    float64(1000),
		"charge":      "1.20",
		"start_count": float64(50),
		"remains":     float64(400),
		"user":        "resellerjoe",
		"provider":    "upstream.example",
	}}
	info := ExtractOrderInfo(res)
	require.NotNil(t, info)
	assert.Equal(t, "12345", info.ExternalID)
	assert.Equal(t, models.OrderInProgress, info.Status)
	assert.Equal(t, "Instagram Followers", info.ServiceName)
	assert.Equal(t, 1000, info.Quantity)
	assert.Equal(t, 50, info.StartCount)
	assert.Equal(t, "resellerjoe", info.CustomerUsername)
	assert.Equal(t, "upstream.example", info.Provider)
}

func TestExtractOrderInfoNestedOrder(t *testing.T) {
	res := Result{Data: map[string]interface{}{
		"order": map[string]interface{}{
			"id":     float64(777),
			"status": "completed",
		},
	}}
	info := ExtractOrderInfo(res)
	require.NotNil(t, info)
	assert.Equal(t, "777", info.ExternalID)
	assert.Equal(t, models.OrderCompleted, info.Status)
}

func TestExtractOrderInfoEmptyPayload(t *testing.T) {
	assert.Nil(t, ExtractOrderInfo(Result{}))
	assert.Nil(t, ExtractOrderInfo(Result{Data: map[string]interface{}{"foo": "bar"}}))
}
