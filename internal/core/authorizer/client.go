package authorizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mwasomola/malipo/internal/core/domain"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 2 * time.Second
)

// Client asks the external authorization oracle whether a transfer may go
// ahead. The endpoint is a stateless yes/no check; the sender and amount ride
// along as query parameters so future versions of the oracle can use them.
type Client struct {
	endpoint    string
	client      *http.Client
	maxAttempts int
	backoff     time.Duration
}

func New(endpoint string, maxAttempts int, backoff time.Duration) *Client {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Client{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: 10 * time.Second},
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

// decision is the body the oracle returns on 2xx. Anything that does not
// decode into this shape counts as a denial for that attempt.
type decision struct {
	Status string `json:"status"`
	Data   struct {
		Authorization bool `json:"authorization"`
	} `json:"data"`
}

// Authorize returns nil when the oracle approves the transfer. Both denials
// and server errors are retried up to the attempt limit with a fixed pause
// between attempts; the pause honours context cancellation. After the last
// attempt the last classified failure is returned.
func (c *Client) Authorize(ctx context.Context, senderID uuid.UUID, amount decimal.Decimal) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		lastErr = c.attempt(ctx, senderID, amount)
		if lastErr == nil {
			return nil
		}

		slog.Warn("authorization attempt failed",
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"error", lastErr,
		)

		if attempt < c.maxAttempts {
			if err := sleep(ctx, c.backoff); err != nil {
				return err
			}
		}
	}
	return lastErr
}

func (c *Client) attempt(ctx context.Context, senderID uuid.UUID, amount decimal.Decimal) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuthorizationUnavailable, err)
	}

	q := url.Values{}
	q.Set("account", senderID.String())
	q.Set("amount", amount.StringFixed(2))
	req.URL.RawQuery = q.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuthorizationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", domain.ErrAuthorizationUnavailable, resp.StatusCode)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return domain.ErrAuthorizationDenied
	}

	var body decision
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.ErrAuthorizationDenied
	}
	if body.Status != "success" || !body.Data.Authorization {
		return domain.ErrAuthorizationDenied
	}
	return nil
}

// sleep blocks for d or until the context is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("authorization aborted: %w", ctx.Err())
	}
}
