// Package notify delivers push notifications about tickets.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/averias/internal/domain"
)

// Notifier alerts the people who should act on a ticket. The returned count
// is the number of devices that accepted the message.
type Notifier interface {
	NotifyTicketCreated(ctx context.Context, ticket domain.Ticket) (int, error)
}

// DeviceStore is the slice of device persistence the push notifier needs.
type DeviceStore interface {
	ListActiveByUser(ctx context.Context, userID string) ([]domain.Device, error)
	Deactivate(ctx context.Context, token string) error
	Touch(ctx context.Context, token string, at time.Time) error
}

// LogNotifier records what would have been sent. Used when push is not configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyTicketCreated(_ context.Context, ticket domain.Ticket) (int, error) {
	fields := []zap.Field{
		zap.String("ticket_id", ticket.ID),
		zap.String("number", ticket.Number),
	}
	if ticket.AssignedToID != nil {
		fields = append(fields, zap.String("assignee_id", *ticket.AssignedToID))
	}
	n.logger.Info("push disabled; ticket created", fields...)
	return 0, nil
}
