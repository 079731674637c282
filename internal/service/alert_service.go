package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"

	"github.com/rs/zerolog"
)

// Headers set on every alert delivery.
const (
	HeaderAlertSignature = "X-Alert-Signature"
	HeaderAlertTimestamp = "X-Alert-Timestamp"
)

// alertRetryIntervals are the pauses between delivery attempts.
var alertRetryIntervals = []time.Duration{
	1 * time.Second,
	5 * time.Second,
	15 * time.Second,
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookAlerter implements ports.AlertNotifier by POSTing a signed JSON event
// to the operations webhook, retrying non-2xx responses.
type WebhookAlerter struct {
	url        string
	secret     string
	sigSvc     ports.SignatureService
	httpClient HTTPClient
	retries    []time.Duration
	log        zerolog.Logger
}

// NewWebhookAlerter creates an alerter posting to url. maxRetries caps the
// number of redeliveries after the first attempt.
func NewWebhookAlerter(
	url, secret string,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	maxRetries int,
	log zerolog.Logger,
) *WebhookAlerter {
	retries := alertRetryIntervals
	if maxRetries >= 0 && maxRetries < len(retries) {
		retries = retries[:maxRetries]
	}
	return &WebhookAlerter{
		url:        url,
		secret:     secret,
		sigSvc:     sigSvc,
		httpClient: httpClient,
		retries:    retries,
		log:        log,
	}
}

// SendDiscrepancyAlert delivers the alert synchronously. Callers bound it with ctx.
func (a *WebhookAlerter) SendDiscrepancyAlert(ctx context.Context, alert domain.DiscrepancyAlert) error {
	now := time.Now().UTC()
	event := domain.AlertEvent{
		Event:     domain.AlertEventDiscrepancy,
		Date:      alert.Date.Format(domain.DateLayout),
		Alert:     alert,
		Timestamp: now.Unix(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	signature := a.sigSvc.Sign(a.secret, SignedPayload(event.Timestamp, body))

	var lastErr error
	for attempt := 0; attempt <= len(a.retries); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("alert delivery abandoned after %d attempts: %w", attempt, ctx.Err())
			case <-time.After(a.retries[attempt-1]):
			}
		}

		lastErr = a.post(ctx, body, signature, event.Timestamp)
		if lastErr == nil {
			a.log.Info().Str("date", event.Date).Int("attempt", attempt+1).Msg("alert: delivered")
			return nil
		}
		a.log.Warn().Err(lastErr).Str("date", event.Date).Int("attempt", attempt+1).Msg("alert: delivery failed")
	}

	return fmt.Errorf("alert delivery failed after %d attempts: %w", len(a.retries)+1, lastErr)
}

func (a *WebhookAlerter) post(ctx context.Context, body []byte, signature string, ts int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderAlertSignature, signature)
	req.Header.Set(HeaderAlertTimestamp, fmt.Sprintf("%d", ts))

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2xx response: %d", resp.StatusCode)
	}
	return nil
}

// LogAlerter implements ports.AlertNotifier by logging at error level. Used
// when no webhook is configured.
type LogAlerter struct {
	log zerolog.Logger
}

func NewLogAlerter(log zerolog.Logger) *LogAlerter {
	return &LogAlerter{log: log}
}

func (a *LogAlerter) SendDiscrepancyAlert(_ context.Context, alert domain.DiscrepancyAlert) error {
	a.log.Error().
		Str("date", alert.Date.Format(domain.DateLayout)).
		Str("trust_balance", alert.TrustBalance.String()).
		Str("liabilities", alert.Liabilities.String()).
		Str("discrepancy", alert.Discrepancy.String()).
		Msg("reconciliation discrepancy")
	return nil
}
