package notify

import (
	"context"
	"log/slog"

	"github.com/GudaSiva/Bank-App-Transactions/internal/core/domain"
)

// LogPublisher is the development fallback when neither NATS nor a webhook
// endpoint is configured: deliveries just land in the log.
type LogPublisher struct {
	Log *slog.Logger
}

func (p *LogPublisher) Publish(ctx context.Context, n domain.Notification) error {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("notification", "user_id", n.UserID, "message", n.Message)
	return nil
}
