package macro_auto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DiscordNotifier posts run results to a Discord webhook.
type DiscordNotifier struct {
	WebhookURL string
	Client     *http.Client
	Timeout    time.Duration
}

func NewDiscordNotifier(url string, timeout time.Duration) *DiscordNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DiscordNotifier{
		WebhookURL: url,
		Client:     &http.Client{},
		Timeout:    timeout,
	}
}

// Notify is a no-op without a webhook URL. Discord answers 204 on success.
func (n *DiscordNotifier) Notify(ctx context.Context, msg string) error {
	if n == nil || n.WebhookURL == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, n.Timeout)
	defer cancel()

	buf, _ := json.Marshal(map[string]string{"content": msg})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notify: webhook answered %s", resp.Status)
	}
	return nil
}
