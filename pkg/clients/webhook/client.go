package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/stockmetrics/internal/config"
	"github.com/mamadbah2/stockmetrics/internal/domain/models"
)

// Client posts batch run summaries to an operator webhook.
type Client struct {
	httpClient *resty.Client
	url        string
}

// NewClient builds a webhook client using the provided configuration values.
func NewClient(cfg config.NotifyConfig) *Client {
	restyClient := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	if cfg.Token != "" {
		restyClient.SetAuthToken(cfg.Token)
	}

	return &Client{httpClient: restyClient, url: cfg.WebhookURL}
}

// batchEvent is the JSON body sent for each run.
type batchEvent struct {
	Event   string              `json:"event"`
	Text    string              `json:"text"`
	Summary models.BatchSummary `json:"summary"`
}

// apiError captures a JSON error body when the receiver returns one.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NotifyBatch posts summary to the webhook.
func (c *Client) NotifyBatch(ctx context.Context, summary models.BatchSummary) error {
	payload := batchEvent{
		Event:   "monthly_metrics.batch_finished",
		Text:    SummaryText(summary),
		Summary: summary,
	}

	apiErr := new(apiError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetError(apiErr).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("post batch summary: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Message
		if message == "" {
			message = apiErr.Error
		}
		return fmt.Errorf("webhook error: status=%d, message=%s", resp.StatusCode(), message)
	}

	return nil
}

// SummaryText renders a one-line human summary of a run.
func SummaryText(s models.BatchSummary) string {
	return fmt.Sprintf("Monthly metrics %s: %d/%d businesses synced, %d failed (run %s).",
		s.Period, s.Succeeded, s.Total, s.Failed, s.RunID)
}
