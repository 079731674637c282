package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"emoney-core/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient implements HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func httpResponse(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(nil))}
}

func testAlert() domain.DiscrepancyAlert {
	return domain.DiscrepancyAlert{
		Date:         time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		TrustBalance: 995000,
		Liabilities:  1000000,
		Discrepancy:  -5000,
	}
}

func TestWebhookAlerter_DeliversSignedEvent(t *testing.T) {
	sigSvc := NewHMACSignatureService()
	var got *http.Request
	var body []byte

	client := &mockHTTPClient{doFunc: func(req *http.Request) (*http.Response, error) {
		got = req
		body, _ = io.ReadAll(req.Body)
		return httpResponse(http.StatusNoContent), nil
	}}

	a := NewWebhookAlerter("https://ops.example.com/hook", "whsec", sigSvc, client, 3, newTestLogger())
	require.NoError(t, a.SendDiscrepancyAlert(context.Background(), testAlert()))

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &event))
	assert.Equal(t, domain.AlertEventDiscrepancy, event["event"])
	assert.Equal(t, "2026-03-01", event["date"])
	alert := event["alert"].(map[string]interface{})
	assert.Equal(t, "-50.00", alert["discrepancy"])
	assert.Equal(t, "9950.00", alert["trust_balance"])

	ts, err := strconv.ParseInt(got.Header.Get(HeaderAlertTimestamp), 10, 64)
	require.NoError(t, err)
	assert.True(t, sigSvc.Verify("whsec", SignedPayload(ts, body), got.Header.Get(HeaderAlertSignature)))
}

func TestWebhookAlerter_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	client := &mockHTTPClient{doFunc: func(req *http.Request) (*http.Response, error) {
		if calls.Add(1) == 1 {
			return httpResponse(http.StatusBadGateway), nil
		}
		return httpResponse(http.StatusOK), nil
	}}

	a := NewWebhookAlerter("https://ops.example.com/hook", "s", NewHMACSignatureService(), client, 1, newTestLogger())
	a.retries = []time.Duration{time.Millisecond}

	require.NoError(t, a.SendDiscrepancyAlert(context.Background(), testAlert()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhookAlerter_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	client := &mockHTTPClient{doFunc: func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("connection refused")
	}}

	a := NewWebhookAlerter("https://ops.example.com/hook", "s", NewHMACSignatureService(), client, 2, newTestLogger())
	a.retries = []time.Duration{time.Millisecond, time.Millisecond}

	err := a.SendDiscrepancyAlert(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookAlerter_StopsOnContextCancel(t *testing.T) {
	client := &mockHTTPClient{doFunc: func(req *http.Request) (*http.Response, error) {
		return httpResponse(http.StatusInternalServerError), nil
	}}

	a := NewWebhookAlerter("https://ops.example.com/hook", "s", NewHMACSignatureService(), client, 3, newTestLogger())
	a.retries = []time.Duration{time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := a.SendDiscrepancyAlert(ctx, testAlert())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewWebhookAlerter_CapsRetries(t *testing.T) {
	a := NewWebhookAlerter("u", "s", NewHMACSignatureService(), &mockHTTPClient{}, 0, newTestLogger())
	assert.Empty(t, a.retries)

	a = NewWebhookAlerter("u", "s", NewHMACSignatureService(), &mockHTTPClient{}, 10, newTestLogger())
	assert.Len(t, a.retries, len(alertRetryIntervals))
}

func TestLogAlerter(t *testing.T) {
	var buf bytes.Buffer
	a := NewLogAlerter(newBufferLogger(&buf))

	require.NoError(t, a.SendDiscrepancyAlert(context.Background(), testAlert()))
	assert.Contains(t, buf.String(), `"discrepancy":"-50.00"`)
	assert.Contains(t, buf.String(), `"date":"2026-03-01"`)
}
