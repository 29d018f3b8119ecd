package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/GudaSiva/Bank-App-Transactions/internal/core/domain"
)

// WebhookPublisher POSTs notifications as JSON to a configured endpoint.
type WebhookPublisher struct {
	url    string
	client *http.Client
}

func NewWebhookPublisher(url string) *WebhookPublisher {
	return &WebhookPublisher{
		url: url,
		// Slow receivers must not stall the dispatcher.
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (p *WebhookPublisher) Publish(ctx context.Context, n domain.Notification) error {
	data, err := json.Marshal(payload{
		ID:        n.ID.String(),
		UserID:    n.UserID.String(),
		Message:   n.Message,
		CreatedAt: n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
}
