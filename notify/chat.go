package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Chat posts messages to a chat incoming-webhook URL (Slack, Mattermost,
// Google Chat and compatible services accept the {"text": ...} body).
type Chat struct {
	url    string
	client *http.Client
}

// NewChat creates a Chat notifier. A nil client uses a 10 s timeout client.
func NewChat(url string, client *http.Client) *Chat {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Chat{url: url, client: client}
}

type chatBody struct {
	Text string `json:"text"`
}

func (c *Chat) Notify(ctx context.Context, msg Message) error {
	body, err := json.Marshal(chatBody{Text: msg.Text()})
	if err != nil {
		return fmt.Errorf("notify: chat: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: chat: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: chat: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: chat: unexpected status %d", resp.StatusCode)
	}
	return nil
}
