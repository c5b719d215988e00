package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/averias/internal/events"
	"github.com/spec-kit/averias/internal/service"
)

// NotificationWorker owns the lifetime of push delivery. Handlers run on the
// dispatcher's goroutines; Stop drains whatever is still queued.
type NotificationWorker struct {
	dispatcher events.Dispatcher
	service    *service.NotificationService
	logger     *zap.Logger
	startOnce  sync.Once
}

// NewNotificationWorker wires the notification service to the dispatcher.
func NewNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{dispatcher: dispatcher, service: notificationService, logger: logger}
}

// Start subscribes the handlers. Calling it twice is a no-op.
func (w *NotificationWorker) Start() {
	w.startOnce.Do(func() {
		if w.service == nil {
			return
		}
		w.service.RegisterHandlers()
		w.logger.Info("notification worker started")
	})
}

// Stop closes the dispatcher and waits for queued events until ctx expires.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	if w.dispatcher == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		w.dispatcher.Close()
		close(done)
	}()
	select {
	case <-done:
		w.logger.Info("notification worker drained")
		return nil
	case <-ctx.Done():
		w.logger.Warn("notification worker stop timed out; pending events abandoned")
		return ctx.Err()
	}
}
