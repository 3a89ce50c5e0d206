package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// SlackConfig holds Slack webhook configuration.
type SlackConfig struct {
	WebhookURL string
}

// Validate validates the Slack configuration.
func (c *SlackConfig) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if !strings.HasPrefix(c.WebhookURL, "https://") {
		return fmt.Errorf("webhook URL must use HTTPS")
	}
	return nil
}

// SlackChannel posts escalation notifications to a Slack incoming webhook.
type SlackChannel struct {
	config     SlackConfig
	httpClient *http.Client
}

// NewSlackChannel creates a Slack channel.
func NewSlackChannel(config SlackConfig) (*SlackChannel, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid slack config: %w", err)
	}

	return &SlackChannel{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name returns "slack".
func (s *SlackChannel) Name() string {
	return "slack"
}

// Send posts the escalation to the webhook.
func (s *SlackChannel) Send(ctx context.Context, e *models.Escalation) error {
	payload := s.buildPayload(e)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Close is a no-op for the Slack channel.
func (s *SlackChannel) Close() error {
	return nil
}

// slackMessage is the Slack webhook payload.
type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

// slackBlock is one Slack Block Kit block.
type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

// slackText is text in Slack Block Kit.
type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// buildPayload builds the Block Kit message for an escalation.
func (s *SlackChannel) buildPayload(e *models.Escalation) slackMessage {
	emoji := urgencyEmoji(e.Urgency)
	timestamp := e.CreatedAt.Format("2006-01-02 15:04:05 MST")

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{
				Type:  "plain_text",
				Text:  fmt.Sprintf("%s PulseWatch Escalation: %s", emoji, e.Title),
				Emoji: true,
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Urgency:*\n%s %s", emoji, strings.ToUpper(string(e.Urgency))),
				},
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Routed to:*\n%s", e.Level),
				},
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Subject:*\n%s", e.SubjectID),
				},
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Created:*\n%s", timestamp),
				},
			},
		},
		{
			Type: "section",
			Text: &slackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*Reason:*\n%s", e.Reason),
			},
		},
	}

	if e.RecommendedAction != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*Recommended action:*\n%s", e.RecommendedAction),
			},
		})
	}

	blocks = append(blocks, slackBlock{
		Type: "context",
		Elements: []slackText{
			{
				Type: "mrkdwn",
				Text: fmt.Sprintf("Trigger: `%s` | ID: `%s`", e.TriggerRule, e.ID),
			},
		},
	})

	return slackMessage{Blocks: blocks}
}

// urgencyEmoji returns an emoji for the urgency level.
func urgencyEmoji(u models.Urgency) string {
	switch u {
	case models.UrgencyImmediate:
		return "\U0001F534" // red circle
	case models.UrgencyUrgent:
		return "\U0001F7E0" // orange circle
	case models.UrgencyRoutine:
		return "\U0001F7E1" // yellow circle
	default:
		return "\u26AA" // white circle
	}
}
