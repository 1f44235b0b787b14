package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/halcyon-security/breachradar/internal/core/ports"
)

// WebhookNotifier posts high-confidence incidents to a Slack-compatible
// incoming webhook. Delivery is best-effort: the orchestrator logs and
// swallows failures.
type WebhookNotifier struct {
	webhookURL  string
	mentionTeam string
	httpClient  *http.Client
}

func NewWebhookNotifier(webhookURL, mentionTeam string) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL:  webhookURL,
		mentionTeam: mentionTeam,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NotifyBreach sends a formatted alert for one newly persisted incident.
func (n *WebhookNotifier) NotifyBreach(incident ports.BreachNotification) error {
	payload := webhookMessage{
		Text:   fmt.Sprintf("🚨 High-confidence breach item: %s", incident.Title),
		Blocks: n.buildBlocks(incident),
	}

	return n.send(payload)
}

func (n *WebhookNotifier) buildBlocks(incident ports.BreachNotification) []webhookBlock {
	org := incident.Organization
	if org == "" {
		org = "unknown"
	}

	affected := "unknown"
	if incident.Affected != nil {
		affected = fmt.Sprintf("%d", *incident.Affected)
	}

	blocks := []webhookBlock{
		{
			Type: "header",
			Text: &webhookText{
				Type: "plain_text",
				Text: "🚨 Data Breach Detected",
			},
		},
		{
			Type: "section",
			Fields: []webhookText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Organization*\n%s", org)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Source*\n%s", incident.Source)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Confidence*\n%.2f", incident.Confidence)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Affected*\n%s", affected)},
			},
		},
	}

	if len(incident.DataTypes) > 0 {
		blocks = append(blocks, webhookBlock{
			Type: "section",
			Text: &webhookText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*Compromised data*\n%s", strings.Join(incident.DataTypes, ", ")),
			},
		})
	}

	detail := fmt.Sprintf("<%s|Read the report>", incident.Link)
	if incident.IncidentDate != "" {
		detail += fmt.Sprintf("\nIncident date: %s", incident.IncidentDate)
	}
	if n.mentionTeam != "" {
		detail += fmt.Sprintf("\ncc: %s", n.mentionTeam)
	}
	blocks = append(blocks, webhookBlock{
		Type: "section",
		Text: &webhookText{Type: "mrkdwn", Text: detail},
	})

	return blocks
}

func (n *WebhookNotifier) send(payload webhookMessage) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	resp, err := n.httpClient.Post(n.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

type webhookMessage struct {
	Text   string         `json:"text"`
	Blocks []webhookBlock `json:"blocks,omitempty"`
}

type webhookBlock struct {
	Type   string        `json:"type"`
	Text   *webhookText  `json:"text,omitempty"`
	Fields []webhookText `json:"fields,omitempty"`
}

type webhookText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
