package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Notifier delivers user-facing messages through the external notification
// endpoint. Delivery is best-effort: callers log failures and move on.
type Notifier struct {
	endpoint string
	client   *http.Client
}

func New(endpoint string) *Notifier {
	return &Notifier{
		endpoint: endpoint,
		// Don't let a slow notification service block a settled transfer.
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type notification struct {
	RecipientAddress string `json:"recipientAddress"`
	Message          string `json:"message"`
}

// Send posts the message to the recipient's contact address. Anything other
// than a 2xx status is a delivery failure.
func (n *Notifier) Send(ctx context.Context, recipient, message string) error {
	body, err := json.Marshal(notification{
		RecipientAddress: recipient,
		Message:          message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Malipo-Notifier/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
}
