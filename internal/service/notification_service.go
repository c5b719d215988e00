package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/averias/internal/events"
	"github.com/spec-kit/averias/internal/notify"
	"github.com/spec-kit/averias/internal/observability"
)

// NotificationService forwards committed ticket events to the notifier.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   notify.Notifier
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier notify.Notifier, metrics *observability.Metrics, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.logEvent)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.logEvent)
	n.dispatcher.Subscribe(events.EventTicketCommentAdded, n.logEvent)
	n.dispatcher.Subscribe(events.EventTicketSLAOverridden, n.logEvent)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if n.notifier == nil {
		return nil
	}
	sent, err := n.notifier.NotifyTicketCreated(ctx, payload.Ticket)
	n.metrics.RecordNotification(sent, err != nil, false)
	if err != nil {
		return fmt.Errorf("notify ticket %s: %w", payload.Ticket.Number, err)
	}
	n.logger.Debug("ticket notification delivered",
		zap.String("ticket_id", event.TicketID),
		zap.Int("devices", sent))
	return nil
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("ticket_id", event.TicketID),
		zap.String("user_id", event.Actor.UserID),
		zap.Any("payload", event.Payload))
	return nil
}
