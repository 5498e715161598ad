package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"context"

	"github.com/awstrack/awstrack/internal/domain/alert"
	"github.com/awstrack/awstrack/internal/pkg/errors"
)

// severity colors for Slack attachments
var slackColors = map[string]string{
	alert.SeverityInfo:     "#36a64f",
	alert.SeverityWarning:  "#ff9900",
	alert.SeverityCritical: "#8b0000",
}

// Slack delivers alerts to a Slack incoming webhook.
type Slack struct {
	webhookURL string
	channel    string
	httpClient *http.Client
}

// NewSlack creates a Slack notifier.
func NewSlack(webhookURL, channel string) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		channel:    channel,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name implements alert.Notifier.
func (s *Slack) Name() string {
	return alert.ChannelSlack
}

// Send implements alert.Notifier.
func (s *Slack) Send(ctx context.Context, a *alert.Alert) error {
	if s.webhookURL == "" {
		return errors.Dispatch(s.Name(), fmt.Errorf("no webhook URL configured"))
	}

	color, ok := slackColors[a.Severity]
	if !ok {
		color = slackColors[alert.SeverityInfo]
	}

	payload := map[string]interface{}{
		"channel":  s.channel,
		"username": "awstrack",
		"attachments": []map[string]interface{}{
			{
				"color":  color,
				"title":  a.Title,
				"text":   a.Message,
				"footer": "awstrack",
				"ts":     a.CreatedAt.Unix(),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Dispatch(s.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return errors.Dispatch(s.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Dispatch(s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return errors.Dispatch(s.Name(), fmt.Errorf("slack API error: %s", string(b)))
	}
	return nil
}
