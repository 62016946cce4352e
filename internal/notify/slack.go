package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Slack posts alerts to an incoming webhook as a colored attachment.
type Slack struct {
	Webhook string
	Client  *http.Client
}

// NewSlack returns nil for an empty webhook so callers can leave it out of a Multi.
func NewSlack(webhook string) *Slack {
	if webhook == "" {
		return nil
	}
	return &Slack{Webhook: webhook, Client: &http.Client{Timeout: 10 * time.Second}}
}

type slackAttachment struct {
	Color    string `json:"color"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Fallback string `json:"fallback"`
	TS       int64  `json:"ts"`
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

func statusColor(status string) string {
	switch status {
	case "OK":
		return "good"
	case "WARNING":
		return "warning"
	case "CRITICAL":
		return "danger"
	default:
		return "#8a8a8a"
	}
}

func (s *Slack) message(a Alert) slackMessage {
	title := a.Title()
	return slackMessage{
		Text: "*" + title + "*",
		Attachments: []slackAttachment{{
			Color:    statusColor(a.Result.Status),
			Title:    a.Target.Server,
			Text:     "```" + a.Text() + "```",
			Fallback: title,
			TS:       a.Result.CheckedAt.Unix(),
		}},
	}
}

func (s *Slack) Notify(ctx context.Context, a Alert) error {
	if s == nil || s.Webhook == "" {
		return errors.New("slack disabled")
	}
	body, err := json.Marshal(s.message(a))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}
	return nil
}
