// Package notify contains the outbound publishers the dispatcher can
// deliver through: a NATS subject or a webhook endpoint.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/GudaSiva/Bank-App-Transactions/internal/core/domain"
)

const subject = "bank.notifications"

type payload struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// NatsPublisher pushes notifications onto a NATS subject that downstream
// delivery channels (mail, push) subscribe to.
type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(url string) (*NatsPublisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return &NatsPublisher{nc: nc}, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, n domain.Notification) error {
	data, err := json.Marshal(payload{
		ID:        n.ID.String(),
		UserID:    n.UserID.String(),
		Message:   n.Message,
		CreatedAt: n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return err
	}
	return p.nc.Publish(subject, data)
}

func (p *NatsPublisher) Close() {
	p.nc.Close()
}
