package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/DrSkyle/provtag/pkg/engine/report"
)

// SlackClient handles Slack notifications.
type SlackClient struct {
	WebhookURL string
	Channel    string // Optional: Override default channel
	HTTPClient *http.Client
}

// NewSlackClient initializes the Slack integration.
func NewSlackClient(webhookURL string, channel string) *SlackClient {
	return &SlackClient{
		WebhookURL: webhookURL,
		Channel:    channel,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendRunSummary posts the outcome of a reconciliation run.
func (s *SlackClient) SendRunSummary(ctx context.Context, summary *report.Summary) error {
	if s.WebhookURL == "" {
		return nil
	}

	jsonPayload, err := json.Marshal(s.constructPayload(summary))
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-200 status from slack: %d", resp.StatusCode)
	}
	return nil
}

// constructPayload builds the message blocks.
func (s *SlackClient) constructPayload(summary *report.Summary) map[string]interface{} {
	statusIcon := "🟢"
	if summary.Failures() > 0 {
		statusIcon = "🟡"
	}

	title := fmt.Sprintf("%s Provenance Reconciliation", statusIcon)
	if summary.DryRun {
		title += " (dry run)"
	}

	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]interface{}{
				"type": "plain_text",
				"text": title,
			},
		},
		{
			"type": "context",
			"elements": []map[string]interface{}{
				{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Run:* %s | *Date:* %s | *Region:* %s",
						summary.RunID, summary.Started.UTC().Format("2006-01-02"), summary.Region),
				},
			},
		},
		{
			"type": "divider",
		},
		{
			"type": "section",
			"fields": []map[string]interface{}{
				{"type": "mrkdwn", "text": fmt.Sprintf("*Resources Listed:*\n%d", summary.Listed)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Newly Tagged:*\n%d", summary.Resolved)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Creator Unknown:*\n%d", summary.ResolvedUnknown)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Already Tagged:*\n%d", summary.AlreadyTagged)},
			},
		},
	}

	if summary.Failures() > 0 {
		blocks = append(blocks, map[string]interface{}{
			"type": "section",
			"text": map[string]interface{}{
				"type": "mrkdwn",
				"text": fmt.Sprintf("⚠️ *%d resources failed* (%d resolve, %d write). They will be retried on the next run.",
					summary.Failures(), summary.FailedResolution, summary.FailedWrite),
			},
		})
	}

	payload := map[string]interface{}{
		"blocks": blocks,
	}

	if s.Channel != "" {
		payload["channel"] = s.Channel
	}

	return payload
}
